package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/secureplay/training/internal/jobs"
	"github.com/secureplay/training/internal/middleware"
	"github.com/secureplay/training/internal/models"
	"github.com/secureplay/training/internal/repository"
	"github.com/secureplay/training/internal/scoring"
)

// AnalyticsHandler serves scoring results and triggers recalculations
type AnalyticsHandler struct {
	resilience *scoring.ResilienceService
	analytics  *scoring.AnalyticsService
	risks      *repository.RiskRepository
	resRepo    *repository.ResilienceRepository
	queue      *jobs.Client
}

func NewAnalyticsHandler(
	resilience *scoring.ResilienceService,
	analytics *scoring.AnalyticsService,
	risks *repository.RiskRepository,
	resRepo *repository.ResilienceRepository,
	queue *jobs.Client,
) *AnalyticsHandler {
	return &AnalyticsHandler{
		resilience: resilience,
		analytics:  analytics,
		risks:      risks,
		resRepo:    resRepo,
		queue:      queue,
	}
}

// ResilienceScore handles GET /api/analytics/resilience
func (h *AnalyticsHandler) ResilienceScore(c *gin.Context) {
	score, err := h.resilience.LatestOrgScore(middleware.GetOrganizationID(c))
	if err != nil {
		middleware.HandleAppError(c, middleware.NewInternalError(err))
		return
	}
	if score == nil {
		middleware.HandleAppError(c, middleware.NewNotFoundError("Resilience score"))
		return
	}
	c.JSON(http.StatusOK, score)
}

// ResilienceHistory handles GET /api/analytics/resilience/history
func (h *AnalyticsHandler) ResilienceHistory(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))

	history, err := h.resilience.OrgHistory(middleware.GetOrganizationID(c), days)
	if err != nil {
		middleware.HandleAppError(c, middleware.NewInternalError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"days":    days,
		"history": history,
	})
}

// GroupScore handles GET /api/analytics/groups/:id/resilience
func (h *AnalyticsHandler) GroupScore(c *gin.Context) {
	score, err := h.resRepo.LatestGroupScore(c.Param("id"))
	if err != nil {
		middleware.HandleAppError(c, middleware.NewInternalError(err))
		return
	}
	if score == nil {
		middleware.HandleAppError(c, middleware.NewNotFoundError("Group resilience score"))
		return
	}
	c.JSON(http.StatusOK, score)
}

// RiskMatrix handles GET /api/analytics/risk-matrix
func (h *AnalyticsHandler) RiskMatrix(c *gin.Context) {
	matrix, err := h.analytics.RiskMatrix(middleware.GetOrganizationID(c))
	if err != nil {
		middleware.HandleAppError(c, middleware.NewInternalError(err))
		return
	}
	c.JSON(http.StatusOK, matrix)
}

// KnowledgeGaps handles GET /api/analytics/knowledge-gaps
func (h *AnalyticsHandler) KnowledgeGaps(c *gin.Context) {
	gaps, err := h.analytics.KnowledgeGaps(middleware.GetOrganizationID(c))
	if err != nil {
		middleware.HandleAppError(c, middleware.NewInternalError(err))
		return
	}
	c.JSON(http.StatusOK, gaps)
}

// UserRisk handles GET /api/analytics/users/:id/risk
func (h *AnalyticsHandler) UserRisk(c *gin.Context) {
	score, err := h.risks.FindByUser(c.Param("id"))
	if err != nil {
		middleware.HandleAppError(c, middleware.NewInternalError(err))
		return
	}
	if score == nil {
		middleware.HandleAppError(c, middleware.NewNotFoundError("Risk score"))
		return
	}
	c.JSON(http.StatusOK, score)
}

// Recalculate handles POST /api/analytics/recalculate. The work runs
// in the background; the response only confirms scheduling.
func (h *AnalyticsHandler) Recalculate(c *gin.Context) {
	orgID := middleware.GetOrganizationID(c)
	ctx := c.Request.Context()

	if err := h.queue.EnqueueAllUserRisks(ctx, orgID); err != nil {
		middleware.HandleAppError(c, middleware.NewInternalError(err))
		return
	}
	if err := h.queue.EnqueueOrgScore(ctx, orgID, time.Time{}, time.Time{}); err != nil {
		middleware.HandleAppError(c, middleware.NewInternalError(err))
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "scheduled"})
}

// RequestReport handles POST /api/analytics/reports
func (h *AnalyticsHandler) RequestReport(c *gin.Context) {
	var req struct {
		Type   string `json:"type" binding:"required"`
		Format string `json:"format"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleAppError(c, middleware.NewBadRequestError(err.Error()))
		return
	}

	switch req.Type {
	case models.ReportCompliance, models.ReportRisk, models.ReportEngagement:
	default:
		middleware.HandleAppError(c, middleware.NewBadRequestError("unknown report type"))
		return
	}
	if req.Format == "" {
		req.Format = "json"
	}

	payload := jobs.GenerateReportPayload{
		ReportID:       newReportID(),
		OrganizationID: middleware.GetOrganizationID(c),
		ReportType:     req.Type,
		Format:         req.Format,
		RequestedBy:    middleware.GetUserID(c),
	}
	if err := h.queue.EnqueueGenerateReport(c.Request.Context(), payload); err != nil {
		middleware.HandleAppError(c, middleware.NewInternalError(err))
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"report_id": payload.ReportID,
		"status":    "scheduled",
	})
}
