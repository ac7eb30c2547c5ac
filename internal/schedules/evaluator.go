package schedules

import (
	"context"
	"fmt"
	"sync"
	"time"

	"carecall-platform/internal/calls"
	"carecall-platform/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/semaphore"
)

// Dispatcher places one outbound call.
type Dispatcher interface {
	Dispatch(ctx context.Context, req calls.DispatchRequest) (calls.CallRecord, error)
}

type EvaluatorOptions struct {
	Location *time.Location

	// MaxConcurrent bounds in-flight dispatches across ticks.
	MaxConcurrent int64

	// Guard defaults to a MemoryFireGuard.
	Guard FireGuard
}

// TickResult summarizes one evaluation pass.
type TickResult struct {
	Minute time.Time
	Active int
	Due    int
}

// Evaluator scans active schedules once per tick and hands every due one to
// its own goroutine. A tick never waits on call placement.
type Evaluator struct {
	repo       Repository
	dispatcher Dispatcher
	guard      FireGuard
	loc        *time.Location
	sem        *semaphore.Weighted
	wg         sync.WaitGroup
	clock      func() time.Time
}

func NewEvaluator(repo Repository, dispatcher Dispatcher, opts EvaluatorOptions) *Evaluator {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	limit := opts.MaxConcurrent
	if limit <= 0 {
		limit = 8
	}
	guard := opts.Guard
	if guard == nil {
		guard = NewMemoryFireGuard()
	}
	return &Evaluator{
		repo:       repo,
		dispatcher: dispatcher,
		guard:      guard,
		loc:        loc,
		sem:        semaphore.NewWeighted(limit),
		clock:      time.Now,
	}
}

// Tick evaluates schedules against the current minute.
func (e *Evaluator) Tick(ctx context.Context) (TickResult, error) {
	return e.TickAt(ctx, e.clock())
}

// TickAt evaluates schedules against the minute containing now.
// Dispatches continue in the background; use Wait to drain them.
func (e *Evaluator) TickAt(ctx context.Context, now time.Time) (TickResult, error) {
	timer := prometheus.NewTimer(tickDurationHist)
	defer timer.ObserveDuration()

	minute := now.In(e.loc).Truncate(time.Minute)
	res := TickResult{Minute: minute}
	log := logger.From(ctx).With("tick", minute.Format("2006-01-02T15:04"))

	active, err := e.repo.ListActive(ctx)
	if err != nil {
		log.Error("list active schedules failed", "err", err)
		return res, fmt.Errorf("schedules: list active: %w", err)
	}
	res.Active = len(active)

	seen := make(map[int64]struct{}, len(active))
	for _, s := range active {
		if _, dup := seen[s.ID]; dup {
			continue
		}
		seen[s.ID] = struct{}{}
		if !s.Active || !Due(s, minute) {
			continue
		}
		res.Due++
		schedulesDueCounter.Inc()
		e.wg.Add(1)
		go e.fire(ctx, s, minute)
	}

	log.Info("schedule tick", "active", res.Active, "due", res.Due)
	return res, nil
}

func (e *Evaluator) fire(ctx context.Context, s Schedule, minute time.Time) {
	defer e.wg.Done()
	log := logger.From(ctx).With("schedule_id", s.ID, "member_id", s.MemberID)
	defer func() {
		if p := recover(); p != nil {
			scheduleDispatchCounter.WithLabelValues("panic").Inc()
			log.Error("scheduled dispatch panicked", "panic", p)
		}
	}()

	if err := e.sem.Acquire(ctx, 1); err != nil {
		scheduleDispatchCounter.WithLabelValues("canceled").Inc()
		log.Warn("scheduled dispatch canceled", "err", err)
		return
	}
	defer e.sem.Release(1)

	claimed, err := e.guard.Claim(ctx, fireKey(s.ID, minute))
	if err != nil {
		scheduleDispatchCounter.WithLabelValues("guard_error").Inc()
		log.Error("fire guard claim failed", "err", err)
		return
	}
	if !claimed {
		scheduleDispatchCounter.WithLabelValues("already_claimed").Inc()
		log.Debug("schedule already fired this minute")
		return
	}

	rec, err := e.dispatcher.Dispatch(ctx, calls.DispatchRequest{
		MemberID:    s.MemberID,
		PhoneNumber: s.PhoneNumber,
		Kind:        calls.KindAuto,
		ScheduleID:  s.ID,
	})
	if err != nil {
		scheduleDispatchCounter.WithLabelValues("failed").Inc()
		log.Error("scheduled dispatch failed", "err", err)
		return
	}
	scheduleDispatchCounter.WithLabelValues("dispatched").Inc()
	log.Info("scheduled call dispatched", "call_record_id", rec.ID)
}

// Wait blocks until every dispatch started by previous ticks has returned.
func (e *Evaluator) Wait() { e.wg.Wait() }
