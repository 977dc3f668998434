package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/secureplay/training/internal/events"
	"github.com/secureplay/training/internal/ingestion"
	"github.com/secureplay/training/internal/middleware"
)

// EventHandler exposes the ingestion and event query endpoints
type EventHandler struct {
	ingestor *ingestion.Ingestor
	store    events.Store
}

func NewEventHandler(ingestor *ingestion.Ingestor, store events.Store) *EventHandler {
	return &EventHandler{ingestor: ingestor, store: store}
}

type eventRequest struct {
	SessionID string                 `json:"session_id" binding:"required"`
	EventType string                 `json:"event_type" binding:"required"`
	Timestamp *time.Time             `json:"timestamp"`
	Payload   map[string]interface{} `json:"payload"`
}

func (r *eventRequest) toEvent(c *gin.Context) events.Event {
	e := events.Event{
		OrganizationID: middleware.GetOrganizationID(c),
		UserID:         middleware.GetUserID(c),
		SessionID:      r.SessionID,
		Type:           events.EventType(r.EventType),
		Payload:        r.Payload,
		Metadata: events.Metadata{
			UserAgent: c.Request.UserAgent(),
			IPAddress: c.ClientIP(),
		},
	}
	if r.Timestamp != nil {
		e.Timestamp = *r.Timestamp
	}
	return e
}

func writeIngestError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ingestion.ErrRateLimited):
		middleware.HandleAppError(c, middleware.NewTooManyRequestsError("Event rate limit exceeded"))
	case errors.Is(err, events.ErrUnknownEventType),
		errors.Is(err, events.ErrPayloadTooLarge),
		errors.Is(err, events.ErrMissingIdentity),
		errors.Is(err, ingestion.ErrEmptyBatch),
		errors.Is(err, ingestion.ErrBatchTooLarge):
		middleware.HandleAppError(c, middleware.NewBadRequestError(err.Error()))
	default:
		middleware.HandleAppError(c, middleware.NewInternalError(err))
	}
}

// Track handles POST /api/events. The event is validated and queued;
// 202 means it will be written, not that it has been.
func (h *EventHandler) Track(c *gin.Context) {
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleAppError(c, middleware.NewBadRequestError(err.Error()))
		return
	}

	event, err := h.ingestor.Submit(c.Request.Context(), req.toEvent(c))
	if err != nil {
		writeIngestError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"id":     event.ID,
		"status": "queued",
	})
}

type batchRequest struct {
	Events []eventRequest `json:"events" binding:"required"`
}

// TrackBatch handles POST /api/events/batch
func (h *EventHandler) TrackBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleAppError(c, middleware.NewBadRequestError(err.Error()))
		return
	}

	batch := make([]events.Event, len(req.Events))
	for i := range req.Events {
		batch[i] = req.Events[i].toEvent(c)
	}

	accepted, err := h.ingestor.SubmitBatch(c.Request.Context(), middleware.GetOrganizationID(c), batch)
	if err != nil {
		writeIngestError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"accepted": len(accepted),
		"status":   "queued",
	})
}

// Query handles GET /api/events
func (h *EventHandler) Query(c *gin.Context) {
	filters := events.Filters{
		OrganizationID: middleware.GetOrganizationID(c),
		UserID:         c.Query("user_id"),
		SessionID:      c.Query("session_id"),
	}

	if types := c.QueryArray("type"); len(types) > 0 {
		for _, t := range types {
			filters.Types = append(filters.Types, events.EventType(t))
		}
	}
	if v := c.Query("start_date"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filters.StartDate = t
		}
	}
	if v := c.Query("end_date"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filters.EndDate = t
		}
	}
	filters.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "100"))
	filters.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	result, err := h.store.Query(c.Request.Context(), filters)
	if err != nil {
		middleware.HandleAppError(c, middleware.NewInternalError(err))
		return
	}

	c.JSON(http.StatusOK, result)
}

// Counts handles GET /api/events/counts, grouped totals per event type
// within an optional time range
func (h *EventHandler) Counts(c *gin.Context) {
	var start, end time.Time
	if v := c.Query("start_date"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			start = t
		}
	}
	if v := c.Query("end_date"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			end = t
		}
	}

	counts, err := h.store.CountsByType(c.Request.Context(), middleware.GetOrganizationID(c), start, end)
	if err != nil {
		middleware.HandleAppError(c, middleware.NewInternalError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"counts": counts})
}

// Aggregates handles GET /api/events/aggregates
func (h *EventHandler) Aggregates(c *gin.Context) {
	period := events.Period(c.DefaultQuery("period", string(events.PeriodDaily)))
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))

	buckets, err := h.store.Aggregates(c.Request.Context(), middleware.GetOrganizationID(c), period, days)
	if err != nil {
		middleware.HandleAppError(c, middleware.NewInternalError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"period":  period,
		"days":    days,
		"buckets": buckets,
	})
}

// UserActivity handles GET /api/events/users/:id/activity
func (h *EventHandler) UserActivity(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))

	activity, err := h.store.UserActivity(c.Request.Context(), middleware.GetOrganizationID(c), c.Param("id"), days)
	if err != nil {
		middleware.HandleAppError(c, middleware.NewInternalError(err))
		return
	}

	c.JSON(http.StatusOK, activity)
}
