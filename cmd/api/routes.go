package main

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"carecall-platform/internal/httpapi"
	"carecall-platform/internal/telephony"
	"carecall-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

type routeDeps struct {
	db       *sql.DB
	rdb      *redis.Client
	provider telephony.Provider

	orchestrator telephony.Conversation
	signature    *telephony.SignatureValidator

	dispatcher httpapi.CallDispatcher
	schedules  httpapi.ScheduleService
	reports    httpapi.Reports
	statuses   httpapi.StatusReader
	summaries  httpapi.Summaries
	topics     httpapi.Topics
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, d routeDeps) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/readyz", func(c *gin.Context) { readiness(c, d) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Provider webhooks. Signature checks are on whenever the validator is set.
	{
		hooks := r.Group("/")
		if d.signature != nil {
			hooks.Use(d.signature.Middleware())
		}
		telephony.TwilioVoiceHandler{
			Conversation: d.orchestrator,
			Renderer:     telephony.NewTwiMLRenderer(),
		}.Register(hooks)
	}

	v1 := r.Group("/v1")
	httpapi.Handlers{
		Dispatcher: d.dispatcher,
		Schedules:  d.schedules,
		Reports:    d.reports,
		Statuses:   d.statuses,
		Summaries:  d.summaries,
		Topics:     d.topics,
	}.Register(v1)
}

func readiness(c *gin.Context, d routeDeps) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	checks := gin.H{}
	ok := true
	if d.db != nil {
		if err := utils.HealthCheck(ctx, d.db, 2*time.Second); err != nil {
			checks["postgres"] = err.Error()
			ok = false
		} else {
			checks["postgres"] = "ok"
		}
	}
	if d.rdb != nil {
		if err := d.rdb.Ping(ctx).Err(); err != nil {
			checks["redis"] = err.Error()
			ok = false
		} else {
			checks["redis"] = "ok"
		}
	}
	if d.provider != nil {
		if err := d.provider.HealthCheck(ctx); err != nil {
			checks[d.provider.Name()] = err.Error()
			ok = false
		} else {
			checks[d.provider.Name()] = "ok"
		}
	}
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "checks": checks})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "checks": checks})
}
