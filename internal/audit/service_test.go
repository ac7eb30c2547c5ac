package audit

import (
	"context"
	"testing"
)

func TestService_AppendRequiresTypeAndCall(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.Append(context.Background(), Event{CallID: "c"}); err == nil {
		t.Fatalf("expected error for missing type")
	}
	if err := svc.Append(context.Background(), Event{Type: EventTypeCallQueued}); err == nil {
		t.Fatalf("expected error for missing call reference")
	}
}

func TestService_RecordFillsIDAndTimestamp(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	svc.Record(context.Background(), Event{Type: EventTypeCallFinalized, ProviderCallID: "CA1", Message: "COMPLETED:max_turns"})

	evs := repo.Events()
	if len(evs) != 1 {
		t.Fatalf("expected 1 event, got %d", len(evs))
	}
	if evs[0].ID == "" || evs[0].CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp filled: %+v", evs[0])
	}
}

func TestService_RecordSwallowsErrors(t *testing.T) {
	var nilSvc *Service
	nilSvc.Record(context.Background(), Event{Type: EventTypeCallQueued, CallID: "c"})

	svc := NewService(nil)
	svc.Record(context.Background(), Event{Type: EventTypeCallQueued, CallID: "c"})
}
