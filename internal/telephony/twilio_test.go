package telephony

import (
	"context"
	"errors"
	"testing"

	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"
)

type fakeTwilioAPI struct {
	params *twilioapi.CreateCallParams
	sid    string
	err    error
}

func (f *fakeTwilioAPI) CreateCall(p *twilioapi.CreateCallParams) (*twilioapi.ApiV2010Call, error) {
	f.params = p
	if f.err != nil {
		return nil, f.err
	}
	sid := f.sid
	return &twilioapi.ApiV2010Call{Sid: &sid}, nil
}

func (f *fakeTwilioAPI) FetchAccount(string) (*twilioapi.ApiV2010Account, error) {
	return &twilioapi.ApiV2010Account{}, f.err
}

func TestTwilioProvider_PlaceCall(t *testing.T) {
	api := &fakeTwilioAPI{sid: "CA123"}
	p := &TwilioProvider{api: api, accountSID: "AC1", from: "+15550001111"}

	sid, err := p.PlaceCall(context.Background(), "+821012345678", "https://calls.example.com/")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if sid != "CA123" {
		t.Fatalf("expected sid CA123, got %q", sid)
	}
	if *api.params.To != "+821012345678" || *api.params.From != "+15550001111" {
		t.Fatalf("unexpected to/from: %q %q", *api.params.To, *api.params.From)
	}
	if *api.params.Url != "https://calls.example.com"+WelcomePath {
		t.Fatalf("unexpected voice url %q", *api.params.Url)
	}
	if *api.params.StatusCallback != "https://calls.example.com"+StatusPath {
		t.Fatalf("unexpected status callback %q", *api.params.StatusCallback)
	}
}

func TestTwilioProvider_PlaceCallErrors(t *testing.T) {
	p := &TwilioProvider{api: &fakeTwilioAPI{err: errors.New("21211 invalid number")}, from: "+1"}
	if _, err := p.PlaceCall(context.Background(), "+82", "https://x"); err == nil {
		t.Fatalf("expected provider error")
	}
	if _, err := p.PlaceCall(context.Background(), "", "https://x"); err == nil {
		t.Fatalf("expected error for empty destination")
	}

	empty := &TwilioProvider{api: &fakeTwilioAPI{}, from: "+1"}
	if _, err := empty.PlaceCall(context.Background(), "+82", "https://x"); err == nil {
		t.Fatalf("expected error for missing sid")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := empty.PlaceCall(ctx, "+82", "https://x"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}

func TestNewTwilioProvider_RequiresCredentials(t *testing.T) {
	if _, err := NewTwilioProvider(TwilioConfig{AccountSID: "AC1"}); err == nil {
		t.Fatalf("expected error")
	}
	p, err := NewTwilioProvider(TwilioConfig{AccountSID: "AC1", AuthToken: "t", FromNumber: "+1"})
	if err != nil || p.Name() != "twilio" {
		t.Fatalf("expected provider, got %v", err)
	}
}
