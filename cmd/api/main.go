package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"carecall-platform/internal/analysis"
	"carecall-platform/internal/audit"
	"carecall-platform/internal/calls"
	"carecall-platform/internal/completion"
	"carecall-platform/internal/config"
	"carecall-platform/internal/conversation"
	"carecall-platform/internal/reporting"
	"carecall-platform/internal/schedules"
	"carecall-platform/internal/sessions"
	"carecall-platform/internal/telephony"
	"carecall-platform/pkg/logger"
	"carecall-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout = 20 * time.Second
	analysisTimeout = 2 * time.Minute
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)
	rootCtx = logger.With(rootCtx, log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	provider, err := telephony.NewTwilioProvider(telephony.TwilioConfig{
		AccountSID: cfg.Twilio.AccountSID,
		AuthToken:  cfg.Twilio.AuthToken,
		FromNumber: cfg.Twilio.FromNumber,
	})
	if err != nil {
		log.Error("twilio init failed", "err", err)
		os.Exit(1)
	}

	completer, err := completion.NewClient(completion.Config{
		APIKey:  cfg.OpenAI.APIKey,
		Model:   cfg.OpenAI.Model,
		BaseURL: cfg.OpenAI.BaseURL,
	})
	if err != nil {
		log.Error("completion init failed", "err", err)
		os.Exit(1)
	}

	var store sessions.Store
	switch cfg.Sessions.Backend {
	case config.SessionBackendMemory:
		store = sessions.NewMemoryStore(cfg.Sessions.TTL)
	default:
		store = sessions.NewRedisStore(rdb, cfg.Sessions.TTL)
	}

	loc := cfg.SchedulerLocation()
	callRepo := calls.NewPostgresRepo(db)
	scheduleRepo := schedules.NewPostgresRepo(db)
	statusRepo := analysis.NewPostgresStatusRepo(db)
	auditSvc := audit.NewService(audit.NewPostgresRepo(db))
	members := calls.NewPostgresMemberDirectory(db)

	analyzer := analysis.NewAsync(analysis.NewStatusAnalyzer(callRepo, completer, statusRepo), analysisTimeout)

	orchestrator := conversation.NewOrchestrator(store, callRepo, telephony.NewTwiMLRenderer(), completer, conversation.Options{
		RespondURL: telephony.CallbackURL(cfg.App.PublicBaseURL, telephony.RespondPath),
		Analyzer:   analyzer,
		Audit:      auditSvc,
	})

	dispatcher := calls.NewDispatcher(callRepo, provider, calls.DispatcherOptions{
		CallbackBaseURL: cfg.App.PublicBaseURL,
		CountryPrefix:   cfg.Calls.CountryPrefix,
		Members:         members,
		Audit:           auditSvc,
	})

	evaluator := schedules.NewEvaluator(scheduleRepo, dispatcher, schedules.EvaluatorOptions{
		Location:      loc,
		MaxConcurrent: int64(cfg.Scheduler.MaxConcurrentDispatch),
		Guard:         schedules.NewRedisFireGuard(rdb),
	})

	deps := routeDeps{
		db:           db,
		rdb:          rdb,
		provider:     provider,
		orchestrator: orchestrator,
		dispatcher:   dispatcher,
		schedules:    schedules.NewService(scheduleRepo, members),
		reports:      reporting.NewService(callRepo, loc),
		statuses:     statusRepo,
		summaries:    analysis.NewSummarizer(callRepo, completer),
		topics:       analysis.NewTopicRecommender(completer),
	}
	if cfg.Twilio.ValidateWebhooks {
		deps.signature = telephony.NewSignatureValidator(cfg.Twilio.AuthToken, cfg.App.PublicBaseURL)
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))
	registerRoutes(r, deps)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Scheduled dispatches outlive the signal; Stop drains them.
	var runner *schedules.Runner
	if cfg.Scheduler.Enabled {
		runner = schedules.NewRunner(evaluator, loc, log)
		if err := runner.Start(logger.With(context.Background(), log)); err != nil {
			log.Error("schedule runner init failed", "err", err)
			os.Exit(1)
		}
	} else {
		log.Info("schedule runner disabled")
	}

	g, groupCtx := errgroup.WithContext(rootCtx)

	g.Go(func() error {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "session_backend", cfg.Sessions.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown initiated")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var shutdownErr error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("http shutdown failed", "err", err)
			shutdownErr = errors.Join(shutdownErr, err)
		}
		if runner != nil {
			if err := runner.Stop(shutdownCtx); err != nil {
				log.Error("schedule runner stop timed out", "err", err)
				shutdownErr = errors.Join(shutdownErr, err)
			}
		}
		analyzer.Wait()
		return shutdownErr
	})

	if err := g.Wait(); err != nil {
		log.Error("api exited with error", "err", err)
		os.Exit(1)
	}
	log.Info("api stopped")
}
