package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/secureplay/training/internal/repository"
	"github.com/secureplay/training/internal/scoring"
	"github.com/secureplay/training/pkg/logger"
)

// timeZero makes the scoring services apply their default trailing
// window
var timeZero = time.Time{}

// ScoringHandler runs resilience and risk calculations in the
// background
type ScoringHandler struct {
	risk       *scoring.RiskService
	resilience *scoring.ResilienceService
	orgs       *repository.OrgRepository
}

func NewScoringHandler(risk *scoring.RiskService, resilience *scoring.ResilienceService, orgs *repository.OrgRepository) *ScoringHandler {
	return &ScoringHandler{risk: risk, resilience: resilience, orgs: orgs}
}

func (h *ScoringHandler) HandleOrgScore(ctx context.Context, t *asynq.Task) error {
	var p OrgScorePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("invalid org score payload: %w: %w", err, asynq.SkipRetry)
	}

	if _, err := h.resilience.CalculateOrgScore(p.OrganizationID, p.PeriodStart, p.PeriodEnd); err != nil {
		return fmt.Errorf("org score calculation for %s: %w", p.OrganizationID, err)
	}
	return nil
}

func (h *ScoringHandler) HandleGroupScore(ctx context.Context, t *asynq.Task) error {
	var p GroupScorePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("invalid group score payload: %w: %w", err, asynq.SkipRetry)
	}

	if _, err := h.resilience.CalculateGroupScore(p.GroupID, p.PeriodStart, p.PeriodEnd); err != nil {
		return fmt.Errorf("group score calculation for %s: %w", p.GroupID, err)
	}
	return nil
}

func (h *ScoringHandler) HandleUserRisk(ctx context.Context, t *asynq.Task) error {
	var p UserRiskPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("invalid user risk payload: %w: %w", err, asynq.SkipRetry)
	}

	if _, err := h.risk.CalculateUserRisk(p.UserID); err != nil {
		return fmt.Errorf("risk calculation for user %s: %w", p.UserID, err)
	}
	return nil
}

func (h *ScoringHandler) HandleAllUserRisks(ctx context.Context, t *asynq.Task) error {
	var p AllUserRisksPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("invalid payload: %w: %w", err, asynq.SkipRetry)
	}

	_, failed, err := h.risk.CalculateAllUserRisks(p.OrganizationID, taskProgress(t))
	if err != nil {
		return fmt.Errorf("bulk risk calculation for %s: %w", p.OrganizationID, err)
	}
	if failed > 0 {
		logger.Warn("Bulk risk calculation finished with failures", map[string]interface{}{
			"organization_id": p.OrganizationID,
			"failed":          failed,
		})
	}
	return nil
}

// HandleDailyCalculation is the nightly cron entry. For every
// organization it recomputes user risks, the org snapshot, and each
// group snapshot. One organization failing does not stop the others.
func (h *ScoringHandler) HandleDailyCalculation(ctx context.Context, t *asynq.Task) error {
	orgs, err := h.orgs.FindAll()
	if err != nil {
		return fmt.Errorf("failed to list organizations: %w", err)
	}

	var failures int
	for _, org := range orgs {
		if err := ctx.Err(); err != nil {
			return err
		}

		if _, _, err := h.risk.CalculateAllUserRisks(org.ID, nil); err != nil {
			failures++
			logger.Error("Daily risk calculation failed", err, map[string]interface{}{
				"organization_id": org.ID,
			})
			continue
		}

		if _, err := h.resilience.CalculateOrgScore(org.ID, timeZero, timeZero); err != nil {
			failures++
			logger.Error("Daily org score failed", err, map[string]interface{}{
				"organization_id": org.ID,
			})
			continue
		}

		groups, err := h.orgs.Groups(org.ID)
		if err != nil {
			failures++
			continue
		}
		for _, group := range groups {
			if _, err := h.resilience.CalculateGroupScore(group.ID, timeZero, timeZero); err != nil {
				logger.Error("Daily group score failed", err, map[string]interface{}{
					"group_id": group.ID,
				})
			}
		}
	}

	logger.Info("Daily calculation finished", map[string]interface{}{
		"organizations": len(orgs),
		"failures":      failures,
	})
	return nil
}
