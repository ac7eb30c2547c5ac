package analysis

import (
	"context"
	"sync"
	"time"

	"carecall-platform/pkg/logger"
)

// Analyzer is satisfied by StatusAnalyzer.
type Analyzer interface {
	Analyze(ctx context.Context, memberID string, anchor time.Time) error
}

// Async runs an Analyzer in the background so call finalization never waits
// on the model. Errors are logged.
type Async struct {
	inner   Analyzer
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewAsync(inner Analyzer, timeout time.Duration) *Async {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Async{inner: inner, timeout: timeout}
}

// Analyze schedules the analysis and returns immediately.
func (a *Async) Analyze(ctx context.Context, memberID string, anchor time.Time) error {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		runCtx, cancel := context.WithTimeout(logger.Detach(ctx), a.timeout)
		defer cancel()
		defer func() {
			if p := recover(); p != nil {
				logger.From(ctx).Error("analysis panicked", "member_id", memberID, "panic", p)
			}
		}()
		if err := a.inner.Analyze(runCtx, memberID, anchor); err != nil {
			logger.From(ctx).Error("analysis failed", "member_id", memberID, "err", err)
		}
	}()
	return nil
}

// Wait blocks until all scheduled analyses have returned.
func (a *Async) Wait() { a.wg.Wait() }
