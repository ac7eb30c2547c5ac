package schedules

import (
	"context"
	"log/slog"
	"time"

	"carecall-platform/pkg/logger"

	"github.com/robfig/cron/v3"
)

// everyMinute fires at second zero of each minute.
const everyMinute = "* * * * *"

// Runner drives an Evaluator from a cron clock in the scheduler's zone.
type Runner struct {
	cron *cron.Cron
	eval *Evaluator
}

func NewRunner(eval *Evaluator, loc *time.Location, log *slog.Logger) *Runner {
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = slog.Default()
	}
	cl := cronLogger{l: log}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	return &Runner{cron: c, eval: eval}
}

// Start registers the tick and starts the cron clock. ctx bounds every
// tick and the dispatches it starts.
func (r *Runner) Start(ctx context.Context) error {
	_, err := r.cron.AddFunc(everyMinute, func() {
		_, _ = r.eval.Tick(ctx)
	})
	if err != nil {
		return err
	}
	r.cron.Start()
	logger.From(ctx).Info("schedule runner started")
	return nil
}

// Stop halts the clock and waits for running ticks and in-flight dispatches,
// or until ctx is done.
func (r *Runner) Stop(ctx context.Context) error {
	cronDone := r.cron.Stop()
	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		r.eval.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("cron: "+msg, append(keysAndValues, "err", err)...)
}
