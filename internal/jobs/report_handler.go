package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"golang.org/x/time/rate"
	"gorm.io/datatypes"

	"github.com/secureplay/training/internal/models"
	"github.com/secureplay/training/internal/repository"
	"github.com/secureplay/training/pkg/logger"
)

// ReportGenerator assembles the content of one report. Rendering to
// PDF or CSV happens outside this service; the generator returns the
// structured data that gets stored and later formatted.
type ReportGenerator interface {
	Generate(ctx context.Context, orgID, reportType string) (map[string]interface{}, error)
}

// ReportHandler generates requested reports in the background. Report
// generation is expensive, so starts are additionally rate limited
// beyond the worker pool's concurrency.
type ReportHandler struct {
	generator ReportGenerator
	reports   *repository.ReportRepository
	starts    *rate.Limiter
}

// reportStartsPerMinute bounds how many report generations may begin
// per minute across the worker
const reportStartsPerMinute = 10

func NewReportHandler(generator ReportGenerator, reports *repository.ReportRepository) *ReportHandler {
	return &ReportHandler{
		generator: generator,
		reports:   reports,
		starts:    rate.NewLimiter(rate.Limit(reportStartsPerMinute)/60, 1),
	}
}

func (h *ReportHandler) HandleGenerateReport(ctx context.Context, t *asynq.Task) error {
	var p GenerateReportPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("invalid report payload: %w: %w", err, asynq.SkipRetry)
	}

	if err := h.starts.Wait(ctx); err != nil {
		return err
	}

	data, err := h.generator.Generate(ctx, p.OrganizationID, p.ReportType)
	if err != nil {
		return fmt.Errorf("report generation for %s: %w", p.OrganizationID, err)
	}

	encoded, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode report data: %w: %w", err, asynq.SkipRetry)
	}

	report := &models.Report{
		ID:             p.ReportID,
		OrganizationID: p.OrganizationID,
		Type:           p.ReportType,
		Title:          fmt.Sprintf("%s report", p.ReportType),
		Format:         p.Format,
		Data:           datatypes.JSON(encoded),
		RequestedBy:    p.RequestedBy,
	}
	if err := h.reports.Create(report); err != nil {
		return fmt.Errorf("failed to store report: %w", err)
	}

	logger.Info("Report generated", map[string]interface{}{
		"report_id":       report.ID,
		"organization_id": p.OrganizationID,
		"report_type":     p.ReportType,
	})
	return nil
}
