package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/secureplay/training/internal/alerts"
	"github.com/secureplay/training/internal/repository"
	"github.com/secureplay/training/pkg/logger"
)

// AlertHandler runs the alert engine checks
type AlertHandler struct {
	engine *alerts.Engine
	orgs   *repository.OrgRepository
}

func NewAlertHandler(engine *alerts.Engine, orgs *repository.OrgRepository) *AlertHandler {
	return &AlertHandler{engine: engine, orgs: orgs}
}

// HandleCheckAlerts runs the checks for one organization, or for all
// of them when the payload is empty (the hourly cron entry).
func (h *AlertHandler) HandleCheckAlerts(ctx context.Context, t *asynq.Task) error {
	if len(t.Payload()) == 0 {
		return h.checkAll(ctx)
	}

	var p CheckAlertsPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("invalid alert check payload: %w: %w", err, asynq.SkipRetry)
	}
	if p.OrganizationID == "" {
		return h.checkAll(ctx)
	}

	if _, err := h.engine.CheckAll(p.OrganizationID); err != nil {
		return fmt.Errorf("alert check for %s: %w", p.OrganizationID, err)
	}
	return nil
}

func (h *AlertHandler) checkAll(ctx context.Context) error {
	orgs, err := h.orgs.FindAll()
	if err != nil {
		return fmt.Errorf("failed to list organizations: %w", err)
	}

	var failures int
	for _, org := range orgs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := h.engine.CheckAll(org.ID); err != nil {
			failures++
			logger.Error("Alert check failed", err, map[string]interface{}{
				"organization_id": org.ID,
			})
		}
	}

	logger.Info("Hourly alert sweep finished", map[string]interface{}{
		"organizations": len(orgs),
		"failures":      failures,
	})
	return nil
}
