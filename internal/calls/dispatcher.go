package calls

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"carecall-platform/internal/audit"
	"carecall-platform/pkg/logger"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// Placer asks the telephony provider to ring a number. The provider calls back
// into callbackBaseURL for the conversation webhooks.
type Placer interface {
	PlaceCall(ctx context.Context, toNumber, callbackBaseURL string) (providerCallID string, err error)
}

// DispatchRequest describes one outbound call.
type DispatchRequest struct {
	MemberID    string
	PhoneNumber string
	Kind        Kind

	// ScheduleID is set for AUTO calls; informational only.
	ScheduleID int64
}

// Dispatcher owns CallRecord creation and provider id linkage.
type Dispatcher struct {
	repo            Repository
	placer          Placer
	members         MemberDirectory
	audit           *audit.Service
	callbackBaseURL string
	countryPrefix   string

	clock func() time.Time
	newID func() string
}

type DispatcherOptions struct {
	CallbackBaseURL string
	CountryPrefix   string

	// Members is needed only by DispatchMember.
	Members MemberDirectory
	Audit   *audit.Service
}

func NewDispatcher(repo Repository, placer Placer, opts DispatcherOptions) *Dispatcher {
	prefix := opts.CountryPrefix
	if prefix == "" {
		prefix = "+82"
	}
	return &Dispatcher{
		repo:            repo,
		placer:          placer,
		members:         opts.Members,
		audit:           opts.Audit,
		callbackBaseURL: opts.CallbackBaseURL,
		countryPrefix:   prefix,
		clock:           time.Now,
		newID:           uuid.NewString,
	}
}

// DispatchMember looks up the member's phone number and dispatches a call.
func (d *Dispatcher) DispatchMember(ctx context.Context, memberID string, kind Kind) (CallRecord, error) {
	if d.members == nil {
		return CallRecord{}, errors.New("calls: member directory not configured")
	}
	if memberID == "" {
		return CallRecord{}, ErrInvalidArgument
	}
	phone, err := d.members.PhoneNumber(ctx, memberID)
	if err != nil {
		return CallRecord{}, err
	}
	return d.Dispatch(ctx, DispatchRequest{MemberID: memberID, PhoneNumber: phone, Kind: kind})
}

// Dispatch creates a QUEUED record and asks the provider to place the call.
//
// On success the provider call id is stored and the status stays QUEUED; only
// finalization moves it further. On placement failure the record is marked
// FAILED and the placement error is returned.
func (d *Dispatcher) Dispatch(ctx context.Context, req DispatchRequest) (CallRecord, error) {
	if req.MemberID == "" || strings.TrimSpace(req.PhoneNumber) == "" {
		return CallRecord{}, ErrInvalidArgument
	}
	if req.Kind != KindManual && req.Kind != KindAuto {
		return CallRecord{}, ErrInvalidArgument
	}
	if d.repo == nil || d.placer == nil {
		return CallRecord{}, errors.New("calls: dispatcher not configured")
	}
	log := logger.From(ctx).With("member_id", req.MemberID, "kind", req.Kind)

	rec := CallRecord{
		ID:          d.newID(),
		MemberID:    req.MemberID,
		Kind:        req.Kind,
		Status:      StatusQueued,
		RequestedAt: d.clock(),
	}
	if err := d.repo.Create(ctx, rec); err != nil {
		dispatchCounter.WithLabelValues(string(req.Kind), "store_error").Inc()
		return CallRecord{}, fmt.Errorf("calls: create record: %w", err)
	}
	d.audit.Record(ctx, audit.Event{Type: audit.EventTypeCallQueued, CallID: rec.ID, MemberID: rec.MemberID, ScheduleID: req.ScheduleID})

	to := NormalizePhone(req.PhoneNumber, d.countryPrefix)

	timer := prometheus.NewTimer(placementDurationHist.WithLabelValues(string(req.Kind)))
	sid, err := d.placer.PlaceCall(ctx, to, d.callbackBaseURL)
	timer.ObserveDuration()
	if err != nil {
		dispatchCounter.WithLabelValues(string(req.Kind), "placement_failed").Inc()
		log.Error("call placement failed", "call_record_id", rec.ID, "err", err)
		if mErr := d.repo.MarkPlacementFailed(ctx, rec.ID); mErr != nil {
			log.Error("mark placement failed", "call_record_id", rec.ID, "err", mErr)
		} else {
			rec.Status = StatusFailed
		}
		d.audit.Record(ctx, audit.Event{Type: audit.EventTypePlacementFailed, CallID: rec.ID, MemberID: rec.MemberID, ScheduleID: req.ScheduleID, Message: err.Error()})
		return rec, fmt.Errorf("calls: place call: %w", err)
	}

	if err := d.repo.SetProviderCallID(ctx, rec.ID, sid); err != nil {
		dispatchCounter.WithLabelValues(string(req.Kind), "store_error").Inc()
		log.Error("store provider call id failed", "call_record_id", rec.ID, "call_sid", sid, "err", err)
		return rec, fmt.Errorf("calls: store provider call id: %w", err)
	}
	rec.ProviderCallID = sid

	dispatchCounter.WithLabelValues(string(req.Kind), "placed").Inc()
	d.audit.Record(ctx, audit.Event{Type: audit.EventTypeCallPlaced, CallID: rec.ID, ProviderCallID: sid, MemberID: rec.MemberID, ScheduleID: req.ScheduleID})
	log.Info("call placed", "call_record_id", rec.ID, "call_sid", sid)
	return rec, nil
}

// NormalizePhone strips every non-digit and replaces a leading national trunk
// "0" with countryPrefix. No further validation is done.
func NormalizePhone(raw, countryPrefix string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if strings.HasPrefix(digits, "0") {
		return countryPrefix + digits[1:]
	}
	return digits
}
