package scoring

import (
	"math"
	"time"

	"github.com/secureplay/training/internal/models"
	"github.com/secureplay/training/internal/monitoring"
	"github.com/secureplay/training/internal/repository"
	"github.com/secureplay/training/pkg/logger"
)

// Blend weights for the overall resilience score
const (
	completionWeight  = 0.5
	performanceWeight = 0.5
)

// DefaultPeriodDays is the trailing window when no explicit period is
// given
const DefaultPeriodDays = 30

// ResilienceService computes org- and group-level resilience snapshots
type ResilienceService struct {
	users      *repository.UserRepository
	progress   *repository.ProgressRepository
	orgs       *repository.OrgRepository
	risks      *repository.RiskRepository
	resilience *repository.ResilienceRepository
}

func NewResilienceService(
	users *repository.UserRepository,
	progress *repository.ProgressRepository,
	orgs *repository.OrgRepository,
	risks *repository.RiskRepository,
	resilience *repository.ResilienceRepository,
) *ResilienceService {
	return &ResilienceService{
		users:      users,
		progress:   progress,
		orgs:       orgs,
		risks:      risks,
		resilience: resilience,
	}
}

// resolvePeriod fills in the default trailing window
func resolvePeriod(start, end time.Time) (time.Time, time.Time) {
	now := time.Now()
	if end.IsZero() {
		end = now
	}
	if start.IsZero() {
		start = end.AddDate(0, 0, -DefaultPeriodDays)
	}
	return start, end
}

// CalculateOrgScore computes and appends one organization snapshot.
// An organization with no active users stores an explicit zero
// snapshot rather than skipping the period.
func (s *ResilienceService) CalculateOrgScore(orgID string, periodStart, periodEnd time.Time) (*models.OrganizationResilienceScore, error) {
	start, end := resolvePeriod(periodStart, periodEnd)

	users, err := s.users.FindActiveByOrg(orgID)
	if err != nil {
		return nil, err
	}

	snapshot := &models.OrganizationResilienceScore{
		OrganizationID: orgID,
		TotalUsers:     len(users),
		PeriodStart:    start,
		PeriodEnd:      end,
		CalculatedAt:   time.Now(),
	}

	if len(users) == 0 {
		if err := s.resilience.CreateOrgScore(snapshot); err != nil {
			return nil, err
		}
		monitoring.ResilienceScore.WithLabelValues(orgID).Set(0)
		return snapshot, nil
	}

	userIDs := make([]string, len(users))
	for i, u := range users {
		userIDs[i] = u.ID
	}

	completedUsers, err := s.progress.CountDistinctCompletedUsers(userIDs, start, end)
	if err != nil {
		return nil, err
	}
	completionScore := float64(completedUsers) / float64(len(users)) * 100

	avgAccuracy, err := s.progress.AverageAttemptScore(userIDs, start, end)
	if err != nil {
		return nil, err
	}
	_, avgTimeSpent, err := s.progress.AverageCompletionStats(userIDs, start, end)
	if err != nil {
		return nil, err
	}

	performanceScore := math.Min(100, avgAccuracy)
	overall := completionScore*completionWeight + performanceScore*performanceWeight

	activeUsers, err := s.users.CountActiveSince(orgID, start)
	if err != nil {
		return nil, err
	}

	riskCounts, err := s.risks.CountByLevel(userIDs)
	if err != nil {
		return nil, err
	}

	snapshot.OverallScore = overall
	snapshot.CompletionScore = completionScore
	snapshot.PerformanceScore = performanceScore
	snapshot.ActiveUsers = int(activeUsers)
	snapshot.CompletedUsers = int(completedUsers)
	snapshot.AverageAccuracy = avgAccuracy
	snapshot.AverageTimeSpent = int(math.Round(avgTimeSpent))
	snapshot.LowRiskCount = riskCounts[models.RiskLow]
	snapshot.MediumRiskCount = riskCounts[models.RiskMedium]
	snapshot.HighRiskCount = riskCounts[models.RiskHigh]
	snapshot.CriticalRiskCount = riskCounts[models.RiskCritical]

	if err := s.resilience.CreateOrgScore(snapshot); err != nil {
		return nil, err
	}

	monitoring.ResilienceScore.WithLabelValues(orgID).Set(overall)
	monitoring.HighRiskUsers.WithLabelValues(orgID).Set(float64(snapshot.HighRiskCount + snapshot.CriticalRiskCount))

	logger.Info("Organization resilience score calculated", map[string]interface{}{
		"organization_id": orgID,
		"overall_score":   overall,
		"total_users":     len(users),
	})
	return snapshot, nil
}

// CalculateGroupScore computes and appends one group snapshot. Groups
// with no members produce no snapshot.
func (s *ResilienceService) CalculateGroupScore(groupID string, periodStart, periodEnd time.Time) (*models.GroupResilienceScore, error) {
	start, end := resolvePeriod(periodStart, periodEnd)

	userIDs, err := s.orgs.GroupMemberIDs(groupID)
	if err != nil {
		return nil, err
	}
	if len(userIDs) == 0 {
		return nil, nil
	}

	completedUsers, err := s.progress.CountDistinctCompletedUsers(userIDs, start, end)
	if err != nil {
		return nil, err
	}
	completionScore := float64(completedUsers) / float64(len(userIDs)) * 100

	avgAccuracy, err := s.progress.AverageAttemptScore(userIDs, start, end)
	if err != nil {
		return nil, err
	}
	performanceScore := math.Min(100, avgAccuracy)
	overall := completionScore*completionWeight + performanceScore*performanceWeight

	riskCounts, err := s.risks.CountByLevel(userIDs)
	if err != nil {
		return nil, err
	}

	snapshot := &models.GroupResilienceScore{
		GroupID:           groupID,
		OverallScore:      overall,
		CompletionScore:   completionScore,
		PerformanceScore:  performanceScore,
		TotalUsers:        len(userIDs),
		CompletedUsers:    int(completedUsers),
		AverageAccuracy:   avgAccuracy,
		LowRiskCount:      riskCounts[models.RiskLow],
		MediumRiskCount:   riskCounts[models.RiskMedium],
		HighRiskCount:     riskCounts[models.RiskHigh],
		CriticalRiskCount: riskCounts[models.RiskCritical],
		PeriodStart:       start,
		PeriodEnd:         end,
		CalculatedAt:      time.Now(),
	}

	if err := s.resilience.CreateGroupScore(snapshot); err != nil {
		return nil, err
	}

	logger.Info("Group resilience score calculated", map[string]interface{}{
		"group_id":      groupID,
		"overall_score": overall,
		"total_users":   len(userIDs),
	})
	return snapshot, nil
}

// LatestOrgScore returns the most recent snapshot, or nil when none
// has been calculated yet
func (s *ResilienceService) LatestOrgScore(orgID string) (*models.OrganizationResilienceScore, error) {
	return s.resilience.LatestOrgScore(orgID)
}

// OrgHistory returns snapshots within a trailing window, oldest first
func (s *ResilienceService) OrgHistory(orgID string, days int) ([]models.OrganizationResilienceScore, error) {
	if days <= 0 {
		days = DefaultPeriodDays
	}
	return s.resilience.OrgHistory(orgID, days)
}
