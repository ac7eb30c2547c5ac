package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"carecall-platform/internal/analysis"
	"carecall-platform/internal/calls"
	"carecall-platform/internal/reporting"
	"carecall-platform/internal/schedules"
	"carecall-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type CallDispatcher interface {
	DispatchMember(ctx context.Context, memberID string, kind calls.Kind) (calls.CallRecord, error)
}

type ScheduleService interface {
	Create(ctx context.Context, memberID string, in schedules.CreateInput) (schedules.Schedule, error)
	Update(ctx context.Context, memberID string, scheduleID int64, p schedules.Patch) (schedules.Schedule, error)
}

type Reports interface {
	LatestAutoCallStatus(ctx context.Context, memberID string) (reporting.LatestCallStatus, error)
	CallHistory(ctx context.Context, memberID string) ([]reporting.CallHistoryEntry, error)
}

type StatusReader interface {
	Get(ctx context.Context, memberID string) (analysis.MemberStatus, error)
}

type Summaries interface {
	Summarize(ctx context.Context, memberID string) (string, error)
}

type Topics interface {
	Recommend(ctx context.Context) []analysis.Topic
}

type Handlers struct {
	Dispatcher CallDispatcher
	Schedules  ScheduleService
	Reports    Reports
	Statuses   StatusReader
	Summaries  Summaries
	Topics     Topics
}

// Register mounts the member routes on rg.
func (h Handlers) Register(rg gin.IRoutes) {
	rg.POST("/members/:member_id/calls", h.PlaceManualCall)
	rg.POST("/members/:member_id/schedules", h.CreateSchedule)
	rg.PATCH("/members/:member_id/schedules/:schedule_id", h.UpdateSchedule)
	rg.GET("/members/:member_id/calls/latest", h.LatestCallStatus)
	rg.GET("/members/:member_id/calls", h.CallHistory)
	rg.GET("/members/:member_id/status", h.MemberStatus)
	rg.GET("/members/:member_id/summary", h.ConversationSummary)
	rg.GET("/topics", h.RecommendTopics)
}

func memberID(c *gin.Context) (string, bool) {
	id := c.Param("member_id")
	if id == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "member_id required"})
		return "", false
	}
	return id, true
}

// --- Calls ---

// PlaceManualCall dispatches an immediate MANUAL call to the member.
func (h Handlers) PlaceManualCall(c *gin.Context) {
	if h.Dispatcher == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "dispatcher not configured"})
		return
	}
	id, ok := memberID(c)
	if !ok {
		return
	}
	rec, err := h.Dispatcher.DispatchMember(c.Request.Context(), id, calls.KindManual)
	switch {
	case err == nil:
		c.JSON(http.StatusAccepted, rec)
	case errors.Is(err, calls.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "member not found"})
	case errors.Is(err, calls.ErrInvalidArgument):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "member has no callable phone number"})
	case rec.ID != "":
		// Record exists but the provider refused the call.
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "call placement failed", "call_id": rec.ID, "status": rec.Status})
	default:
		logger.FromGin(c).Error("manual call failed", "member_id", id, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call dispatch failed"})
	}
}

func (h Handlers) LatestCallStatus(c *gin.Context) {
	if h.Reports == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reporting not configured"})
		return
	}
	id, ok := memberID(c)
	if !ok {
		return
	}
	st, err := h.Reports.LatestAutoCallStatus(c.Request.Context(), id)
	if err != nil {
		logger.FromGin(c).Error("latest call status failed", "member_id", id, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "status lookup failed"})
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h Handlers) CallHistory(c *gin.Context) {
	if h.Reports == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reporting not configured"})
		return
	}
	id, ok := memberID(c)
	if !ok {
		return
	}
	entries, err := h.Reports.CallHistory(c.Request.Context(), id)
	if err != nil {
		logger.FromGin(c).Error("call history failed", "member_id", id, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "history lookup failed"})
		return
	}
	if entries == nil {
		entries = []reporting.CallHistoryEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"calls": entries})
}

// MemberStatus returns the latest post-call classification.
func (h Handlers) MemberStatus(c *gin.Context) {
	if h.Statuses == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "analysis not configured"})
		return
	}
	id, ok := memberID(c)
	if !ok {
		return
	}
	st, err := h.Statuses.Get(c.Request.Context(), id)
	if errors.Is(err, analysis.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "no status for member"})
		return
	}
	if err != nil {
		logger.FromGin(c).Error("member status failed", "member_id", id, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "status lookup failed"})
		return
	}
	c.JSON(http.StatusOK, st)
}

// ConversationSummary returns a one-line summary of the member's last week of calls.
func (h Handlers) ConversationSummary(c *gin.Context) {
	if h.Summaries == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "analysis not configured"})
		return
	}
	id, ok := memberID(c)
	if !ok {
		return
	}
	summary, err := h.Summaries.Summarize(c.Request.Context(), id)
	if err != nil {
		logger.FromGin(c).Error("conversation summary failed", "member_id", id, "err", err)
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "summary unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

func (h Handlers) RecommendTopics(c *gin.Context) {
	if h.Topics == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "analysis not configured"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"topics": h.Topics.Recommend(c.Request.Context())})
}

// --- Schedules ---

type createScheduleRequest struct {
	StartDate schedules.Date      `json:"start_date"`
	Frequency schedules.Frequency `json:"frequency"`
	CallTime  schedules.ClockTime `json:"call_time"`
	Active    *bool               `json:"is_active,omitempty"`
}

type updateScheduleRequest struct {
	StartDate *schedules.Date      `json:"start_date,omitempty"`
	Frequency *schedules.Frequency `json:"frequency,omitempty"`
	CallTime  *schedules.ClockTime `json:"call_time,omitempty"`
	Active    *bool                `json:"is_active,omitempty"`
}

func (h Handlers) CreateSchedule(c *gin.Context) {
	if h.Schedules == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "schedules not configured"})
		return
	}
	id, ok := memberID(c)
	if !ok {
		return
	}
	var req createScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	s, err := h.Schedules.Create(c.Request.Context(), id, schedules.CreateInput{
		StartDate: req.StartDate,
		Frequency: req.Frequency,
		CallTime:  req.CallTime,
		Active:    req.Active,
	})
	if err != nil {
		h.scheduleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, s)
}

// UpdateSchedule applies a partial update to a schedule the member owns.
func (h Handlers) UpdateSchedule(c *gin.Context) {
	if h.Schedules == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "schedules not configured"})
		return
	}
	id, ok := memberID(c)
	if !ok {
		return
	}
	scheduleID, err := strconv.ParseInt(c.Param("schedule_id"), 10, 64)
	if err != nil || scheduleID <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid schedule_id"})
		return
	}
	var req updateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	s, err := h.Schedules.Update(c.Request.Context(), id, scheduleID, schedules.Patch{
		StartDate: req.StartDate,
		Frequency: req.Frequency,
		CallTime:  req.CallTime,
		Active:    req.Active,
	})
	if err != nil {
		h.scheduleError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h Handlers) scheduleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, schedules.ErrInvalidArgument):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, schedules.ErrForbidden):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "schedule belongs to another member"})
	case errors.Is(err, schedules.ErrMemberNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "member not found"})
	case errors.Is(err, schedules.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "schedule not found"})
	default:
		logger.FromGin(c).Error("schedule write failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "schedule write failed"})
	}
}
