package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"carecall-platform/internal/audit"
	"carecall-platform/internal/calls"
	"carecall-platform/internal/sessions"
	"carecall-platform/pkg/logger"
)

var ErrInvalidCall = errors.New("conversation: call id is required")

// Renderer turns a spoken line into the provider's response document.
type Renderer interface {
	// RenderContinuation speaks message and gathers the next utterance,
	// posting it to nextActionURL.
	RenderContinuation(message, nextActionURL string) string
	// RenderTermination speaks message and hangs up.
	RenderTermination(message string) string
}

// Completer produces the next assistant line from the transcript so far.
type Completer interface {
	Complete(ctx context.Context, transcript []sessions.Turn) (string, error)
}

// Analyzer derives member tags from recent transcripts. anchor closes a
// trailing 7-day window.
type Analyzer interface {
	Analyze(ctx context.Context, memberID string, anchor time.Time) error
}

type Options struct {
	// RespondURL receives gathered speech.
	RespondURL string

	Analyzer Analyzer
	Audit    *audit.Service

	// Encode serializes the final transcript. Defaults to json.Marshal.
	Encode func(v any) ([]byte, error)
}

// Orchestrator drives one conversation per provider call id:
// STARTED (greeting rendered) -> ACTIVE (turns) -> FINALIZED (session removed).
type Orchestrator struct {
	sessions   sessions.Store
	calls      calls.Repository
	renderer   Renderer
	completer  Completer
	analyzer   Analyzer
	audit      *audit.Service
	respondURL string
	encode     func(v any) ([]byte, error)
}

func NewOrchestrator(store sessions.Store, repo calls.Repository, renderer Renderer, completer Completer, opts Options) *Orchestrator {
	enc := opts.Encode
	if enc == nil {
		enc = json.Marshal
	}
	return &Orchestrator{
		sessions:   store,
		calls:      repo,
		renderer:   renderer,
		completer:  completer,
		analyzer:   opts.Analyzer,
		audit:      opts.Audit,
		respondURL: opts.RespondURL,
		encode:     enc,
	}
}

// Start opens the session with the greeting and asks for the first answer.
// A redelivered start webhook repeats the last assistant line instead of
// resetting the transcript.
func (o *Orchestrator) Start(ctx context.Context, callID string) (string, error) {
	if callID == "" {
		return "", ErrInvalidCall
	}
	sess := sessions.Session{CallID: callID}
	sess.Append(sessions.SpeakerAssistant, GreetingMessage)

	err := o.sessions.Create(ctx, sess)
	if errors.Is(err, sessions.ErrExists) {
		existing, gErr := o.sessions.Get(ctx, callID)
		if gErr == nil {
			if last, ok := existing.LastAssistant(); ok {
				return o.renderer.RenderContinuation(last, o.respondURL), nil
			}
		}
		return o.renderer.RenderContinuation(GreetingMessage, o.respondURL), nil
	}
	if err != nil {
		return "", fmt.Errorf("conversation: start: %w", err)
	}

	logger.From(ctx).Info("conversation started", "call_id", callID)
	return o.renderer.RenderContinuation(GreetingMessage, o.respondURL), nil
}

// HandleUtterance applies one callee utterance and returns the next response
// document. An empty utterance means the gather timed out.
func (o *Orchestrator) HandleUtterance(ctx context.Context, callID, utterance string) (string, error) {
	if callID == "" {
		return "", ErrInvalidCall
	}
	log := logger.From(ctx).With("call_id", callID)
	utterance = strings.TrimSpace(utterance)

	if utterance == "" {
		return o.terminate(ctx, callID, calls.StatusFailed, ReasonTimeout)
	}
	if strings.Contains(utterance, HangupKeyword) {
		return o.terminate(ctx, callID, calls.StatusCompleted, ReasonUserRequest)
	}

	sess, err := o.sessions.Update(ctx, callID, func(s *sessions.Session) error {
		s.Append(sessions.SpeakerUser, utterance)
		return nil
	})
	if errors.Is(err, sessions.ErrNotFound) {
		log.Warn("utterance for call without live session")
		return o.renderer.RenderTermination(EndedMessage), nil
	}
	if err != nil {
		return "", fmt.Errorf("conversation: append utterance: %w", err)
	}
	turnsCounter.Inc()

	userTurns := sess.UserTurns()
	if userTurns == 1 && isVoicemail(utterance) {
		return o.terminate(ctx, callID, calls.StatusFailed, ReasonVoicemail)
	}
	if userTurns >= MaxTurns {
		return o.terminate(ctx, callID, calls.StatusCompleted, ReasonMaxTurns)
	}

	// The completion call runs outside the session update so a CAS retry
	// never repeats it.
	reply, err := o.completer.Complete(ctx, sess.Turns)
	if err != nil || strings.TrimSpace(reply) == "" {
		completionFallbackCounter.Inc()
		log.Error("completion failed, using fallback line", "err", err)
		reply = FallbackMessage
	}

	_, err = o.sessions.Update(ctx, callID, func(s *sessions.Session) error {
		s.Append(sessions.SpeakerAssistant, reply)
		return nil
	})
	if errors.Is(err, sessions.ErrNotFound) {
		// Finalized by a status callback while the completion was in flight.
		log.Info("session finalized during completion")
		return o.renderer.RenderTermination(EndedMessage), nil
	}
	if err != nil {
		return "", fmt.Errorf("conversation: append reply: %w", err)
	}

	log.Debug("assistant turn", "user_turns", userTurns)
	return o.renderer.RenderContinuation(reply, o.respondURL), nil
}

func (o *Orchestrator) terminate(ctx context.Context, callID string, status calls.Status, reason string) (string, error) {
	if err := o.Finalize(ctx, callID, status, reason); err != nil {
		logger.From(ctx).Error("finalize failed", "call_id", callID, "reason", reason, "err", err)
	}
	return o.renderer.RenderTermination(closingMessage(reason)), nil
}

// Finalize moves a live call to its terminal state. It is idempotent:
// without a live session it does nothing, and a record that already holds a
// transcript is never overwritten. The session is removed before anything
// else so a failure later on cannot leave it behind.
func (o *Orchestrator) Finalize(ctx context.Context, callID string, status calls.Status, reason string) error {
	log := logger.From(ctx).With("call_id", callID, "status", status, "reason", reason)

	sess, ok, err := o.sessions.Take(ctx, callID)
	if err != nil && !ok {
		finalizeCounter.WithLabelValues(string(status), "error").Inc()
		return fmt.Errorf("conversation: take session: %w", err)
	}
	if err != nil {
		log.Warn("session unreadable, finalizing with empty transcript", "err", err)
	}
	if !ok {
		finalizeCounter.WithLabelValues(string(status), "no_session").Inc()
		log.Info("finalize skipped: no live session")
		return nil
	}

	sess.Append(sessions.SpeakerSystem, systemTurn(reason))
	turns := sess.Turns
	if turns == nil {
		turns = []sessions.Turn{}
	}
	transcript := serializationErrPayload
	if b, encErr := o.encode(turns); encErr != nil {
		log.Error("transcript serialization failed", "err", encErr)
		status = calls.StatusFailed
	} else {
		transcript = string(b)
	}

	rec, err := o.calls.FindByProviderCallID(ctx, callID)
	if errors.Is(err, calls.ErrNotFound) {
		finalizeCounter.WithLabelValues(string(status), "no_record").Inc()
		log.Error("finalize: no call record for provider call id")
		return nil
	}
	if err != nil {
		finalizeCounter.WithLabelValues(string(status), "error").Inc()
		return fmt.Errorf("conversation: load record: %w", err)
	}
	if rec.Finalized() {
		finalizeCounter.WithLabelValues(string(status), "already_finalized").Inc()
		log.Info("finalize skipped: record already finalized", "call_record_id", rec.ID)
		return nil
	}

	written, err := o.calls.FinalizeTranscript(ctx, rec.ID, status, transcript)
	if err != nil {
		finalizeCounter.WithLabelValues(string(status), "error").Inc()
		return fmt.Errorf("conversation: write transcript: %w", err)
	}
	if !written {
		finalizeCounter.WithLabelValues(string(status), "already_finalized").Inc()
		log.Info("finalize lost race to a concurrent writer", "call_record_id", rec.ID)
		return nil
	}

	finalizeCounter.WithLabelValues(string(status), "written").Inc()
	log.Info("call finalized", "call_record_id", rec.ID, "user_turns", sess.UserTurns())
	o.audit.Record(ctx, audit.Event{
		Type:           audit.EventTypeCallFinalized,
		CallID:         rec.ID,
		ProviderCallID: callID,
		MemberID:       rec.MemberID,
		Message:        string(status) + ":" + reason,
	})

	if o.analyzer != nil && rec.MemberID != "" {
		if err := o.analyzer.Analyze(logger.Detach(ctx), rec.MemberID, rec.RequestedAt); err != nil {
			log.Error("post-call analysis failed", "member_id", rec.MemberID, "err", err)
		}
	}
	return nil
}

// HandleProviderStatus finalizes a call the provider reports as ended.
// Only "completed" counts as COMPLETED; every other terminal status is FAILED.
// Non-terminal progress statuses are ignored.
func (o *Orchestrator) HandleProviderStatus(ctx context.Context, callID, providerStatus string) error {
	if callID == "" {
		return ErrInvalidCall
	}
	providerStatus = strings.ToLower(strings.TrimSpace(providerStatus))
	if !IsTerminalProviderStatus(providerStatus) {
		logger.From(ctx).Debug("ignoring non-terminal call status", "call_id", callID, "provider_status", providerStatus)
		return nil
	}
	status := calls.StatusFailed
	if providerStatus == "completed" {
		status = calls.StatusCompleted
	}
	return o.Finalize(ctx, callID, status, UnexpectedReason(providerStatus))
}

// IsTerminalProviderStatus reports whether the provider will send no further
// events for a call in this status.
func IsTerminalProviderStatus(s string) bool {
	switch s {
	case "completed", "busy", "no-answer", "canceled", "failed":
		return true
	default:
		return false
	}
}
