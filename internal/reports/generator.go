package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/secureplay/training/internal/models"
	"github.com/secureplay/training/internal/repository"
	"github.com/secureplay/training/internal/scoring"
)

// Generator assembles report content from the current scoring state.
// It produces structured data; rendering to a delivery format is a
// separate concern.
type Generator struct {
	users      *repository.UserRepository
	orgs       *repository.OrgRepository
	risks      *repository.RiskRepository
	resilience *repository.ResilienceRepository
	alerts     *repository.AlertRepository
	analytics  *scoring.AnalyticsService
}

func NewGenerator(
	users *repository.UserRepository,
	orgs *repository.OrgRepository,
	risks *repository.RiskRepository,
	resilience *repository.ResilienceRepository,
	alerts *repository.AlertRepository,
	analytics *scoring.AnalyticsService,
) *Generator {
	return &Generator{
		users:      users,
		orgs:       orgs,
		risks:      risks,
		resilience: resilience,
		alerts:     alerts,
		analytics:  analytics,
	}
}

func (g *Generator) Generate(ctx context.Context, orgID, reportType string) (map[string]interface{}, error) {
	switch reportType {
	case models.ReportCompliance:
		return g.complianceReport(orgID)
	case models.ReportRisk:
		return g.riskReport(orgID)
	case models.ReportEngagement:
		return g.engagementReport(orgID)
	default:
		return nil, fmt.Errorf("unknown report type %q", reportType)
	}
}

func (g *Generator) complianceReport(orgID string) (map[string]interface{}, error) {
	org, err := g.orgs.FindByID(orgID)
	if err != nil {
		return nil, err
	}

	latest, err := g.resilience.LatestOrgScore(orgID)
	if err != nil {
		return nil, err
	}

	required, err := g.orgs.RequiredCategories(orgID)
	if err != nil {
		return nil, err
	}

	report := map[string]interface{}{
		"organization":   org.Name,
		"generatedAt":    time.Now().UTC(),
		"requiredRooms":  required,
		"overallScore":   0.0,
		"completionRate": 0.0,
		"totalUsers":     0,
		"compliantUsers": 0,
	}
	if latest != nil {
		report["overallScore"] = latest.OverallScore
		report["completionRate"] = latest.CompletionScore
		report["totalUsers"] = latest.TotalUsers
		report["compliantUsers"] = latest.CompletedUsers
	}
	return report, nil
}

func (g *Generator) riskReport(orgID string) (map[string]interface{}, error) {
	matrix, err := g.analytics.RiskMatrix(orgID)
	if err != nil {
		return nil, err
	}

	counts, err := g.alerts.CountsBySeverity(orgID)
	if err != nil {
		return nil, err
	}

	// Level summary ordered most severe first; the matrix itself is a
	// map and loses ordering in JSON
	levels := append([]models.RiskLevel(nil), models.RiskLevels...)
	sort.Slice(levels, func(i, j int) bool { return levels[i].Rank() > levels[j].Rank() })
	summary := make([]map[string]interface{}, 0, len(levels))
	for _, level := range levels {
		summary = append(summary, map[string]interface{}{
			"level": level,
			"users": len(matrix[level]),
		})
	}

	return map[string]interface{}{
		"generatedAt":  time.Now().UTC(),
		"levelSummary": summary,
		"riskMatrix":   matrix,
		"openAlerts":   counts,
	}, nil
}

func (g *Generator) engagementReport(orgID string) (map[string]interface{}, error) {
	now := time.Now()

	total, err := g.users.CountActiveByOrg(orgID)
	if err != nil {
		return nil, err
	}
	activeMonth, err := g.users.CountActiveSince(orgID, now.AddDate(0, 0, -30))
	if err != nil {
		return nil, err
	}
	activeWeek, err := g.users.CountActiveSince(orgID, now.AddDate(0, 0, -7))
	if err != nil {
		return nil, err
	}

	engagementRate := 0.0
	if total > 0 {
		engagementRate = float64(activeMonth) / float64(total) * 100
	}

	history, err := g.resilience.OrgHistory(orgID, 30)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"generatedAt":     time.Now().UTC(),
		"totalUsers":      total,
		"activeLastWeek":  activeWeek,
		"activeLastMonth": activeMonth,
		"engagementRate":  engagementRate,
		"scoreHistory":    history,
	}, nil
}
