package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/secureplay/training/internal/middleware"
	"github.com/secureplay/training/internal/repository"
)

func newReportID() string {
	return uuid.New().String()
}

// ReportHandler serves stored reports
type ReportHandler struct {
	reports *repository.ReportRepository
}

func NewReportHandler(reports *repository.ReportRepository) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Get handles GET /api/reports/:id. Returns 404 until the background
// generation has finished.
func (h *ReportHandler) Get(c *gin.Context) {
	report, err := h.reports.FindByID(c.Param("id"))
	if err != nil {
		middleware.HandleAppError(c, middleware.NewNotFoundError("Report"))
		return
	}
	if report.OrganizationID != middleware.GetOrganizationID(c) {
		middleware.HandleAppError(c, middleware.NewNotFoundError("Report"))
		return
	}

	c.JSON(http.StatusOK, report)
}

// List handles GET /api/reports
func (h *ReportHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	reports, err := h.reports.FindByOrg(middleware.GetOrganizationID(c), limit)
	if err != nil {
		middleware.HandleAppError(c, middleware.NewInternalError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"reports": reports})
}
