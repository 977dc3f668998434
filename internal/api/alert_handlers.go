package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/secureplay/training/internal/middleware"
	"github.com/secureplay/training/internal/models"
	"github.com/secureplay/training/internal/repository"
)

// AlertHandler serves alert read and acknowledgement endpoints
type AlertHandler struct {
	alerts *repository.AlertRepository
}

func NewAlertHandler(alerts *repository.AlertRepository) *AlertHandler {
	return &AlertHandler{alerts: alerts}
}

// Active handles GET /api/alerts, the unacknowledged alerts ordered by
// severity then recency
func (h *AlertHandler) Active(c *gin.Context) {
	alerts, err := h.alerts.FindUnacknowledged(middleware.GetOrganizationID(c))
	if err != nil {
		middleware.HandleAppError(c, middleware.NewInternalError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

// History handles GET /api/alerts/history
func (h *AlertHandler) History(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	includeAcked := c.Query("include_acknowledged") == "true"

	severity := models.AlertSeverity(c.Query("severity"))
	if severity != "" && !validSeverity(severity) {
		middleware.HandleAppError(c, middleware.NewBadRequestError("Unknown severity: "+string(severity)))
		return
	}

	alerts, err := h.alerts.History(middleware.GetOrganizationID(c), limit, includeAcked, severity)
	if err != nil {
		middleware.HandleAppError(c, middleware.NewInternalError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

func validSeverity(s models.AlertSeverity) bool {
	for _, known := range models.AlertSeverities {
		if s == known {
			return true
		}
	}
	return false
}

// Counts handles GET /api/alerts/counts
func (h *AlertHandler) Counts(c *gin.Context) {
	counts, err := h.alerts.CountsBySeverity(middleware.GetOrganizationID(c))
	if err != nil {
		middleware.HandleAppError(c, middleware.NewInternalError(err))
		return
	}
	c.JSON(http.StatusOK, counts)
}

// Acknowledge handles POST /api/alerts/:id/acknowledge. Acknowledging
// twice is a no-op; the original acknowledger is kept.
func (h *AlertHandler) Acknowledge(c *gin.Context) {
	existing, err := h.alerts.FindByID(c.Param("id"))
	if err != nil || existing.OrganizationID != middleware.GetOrganizationID(c) {
		middleware.HandleAppError(c, middleware.NewNotFoundError("Alert"))
		return
	}

	alert, err := h.alerts.Acknowledge(existing.ID, middleware.GetUserID(c))
	if err != nil {
		middleware.HandleAppError(c, middleware.NewInternalError(err))
		return
	}

	c.JSON(http.StatusOK, alert)
}
