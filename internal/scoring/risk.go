package scoring

import (
	"fmt"
	"math"
	"time"

	"github.com/secureplay/training/internal/models"
	"github.com/secureplay/training/internal/monitoring"
	"github.com/secureplay/training/internal/repository"
	"github.com/secureplay/training/pkg/logger"
)

// Risk factor weights. Each factor contributes its full weight when
// triggered; the total maps to a risk level.
const (
	WeightIncompleteTraining = 30.0
	WeightLowPhishingScore   = 25.0
	WeightInactive           = 20.0
	WeightLowPerformance     = 15.0
	WeightMultipleFailures   = 10.0
)

// Risk level thresholds on the 0-100 score
const (
	ThresholdCritical = 70.0
	ThresholdHigh     = 50.0
	ThresholdMedium   = 30.0
)

// Factor trigger conditions
const (
	inactivityDays       = 14
	phishingScoreFloor   = 70.0
	performanceFloor     = 60.0
	failedAttemptsCeil   = 10
	recentAttemptsWindow = 30 // days considered for engagement
	attemptSampleSize    = 100
)

// UserMetrics are the derived inputs to risk factor evaluation
type UserMetrics struct {
	UserID             string  `json:"user_id"`
	TrainingCompletion float64 `json:"training_completion"`
	PhishingScore      float64 `json:"phishing_score"`
	EngagementScore    float64 `json:"engagement_score"`
	PerformanceScore   float64 `json:"performance_score"`
	DaysSinceActivity  int     `json:"days_since_activity"`
	FailedAttempts     int     `json:"failed_attempts"`
}

// ProgressFunc receives the completed percentage of a bulk
// calculation. Calls are monotonic; the final call reports 100.
type ProgressFunc func(percent float64)

// RiskService computes and stores per-user risk scores
type RiskService struct {
	users    *repository.UserRepository
	progress *repository.ProgressRepository
	orgs     *repository.OrgRepository
	risks    *repository.RiskRepository
}

func NewRiskService(
	users *repository.UserRepository,
	progress *repository.ProgressRepository,
	orgs *repository.OrgRepository,
	risks *repository.RiskRepository,
) *RiskService {
	return &RiskService{users: users, progress: progress, orgs: orgs, risks: risks}
}

// CalculateUserRisk recomputes one user's risk score and upserts the
// snapshot. Recalculating with unchanged inputs yields the same row.
func (s *RiskService) CalculateUserRisk(userID string) (*models.UserRiskScore, error) {
	user, err := s.users.FindByID(userID)
	if err != nil {
		return nil, err
	}

	metrics, err := s.deriveMetrics(user)
	if err != nil {
		return nil, err
	}

	factors := EvaluateRiskFactors(*metrics)
	score := 0.0
	for _, f := range factors {
		score += f.Weight
	}
	score = math.Min(100, score)
	level := RiskLevelFor(score)

	snapshot := &models.UserRiskScore{
		UserID:             userID,
		RiskLevel:          level,
		RiskScore:          score,
		TrainingCompletion: metrics.TrainingCompletion,
		PhishingScore:      metrics.PhishingScore,
		EngagementScore:    metrics.EngagementScore,
		PerformanceScore:   metrics.PerformanceScore,
		LastActivityAt:     user.LastLoginAt,
		DaysSinceActivity:  metrics.DaysSinceActivity,
		CalculatedAt:       time.Now(),
	}
	if err := snapshot.SetFactors(factors); err != nil {
		return nil, fmt.Errorf("failed to encode risk factors: %w", err)
	}

	if err := s.risks.Upsert(snapshot); err != nil {
		return nil, fmt.Errorf("failed to store risk score: %w", err)
	}

	monitoring.RiskCalculations.Inc()
	logger.Debug("User risk score calculated", map[string]interface{}{
		"user_id":    userID,
		"risk_score": score,
		"risk_level": string(level),
	})
	return snapshot, nil
}

// CalculateAllUserRisks recomputes every active user in the
// organization. One user failing does not stop the rest; progress is
// reported after each user (pass nil when no one is watching).
func (s *RiskService) CalculateAllUserRisks(orgID string, progress ProgressFunc) (calculated int, failed int, err error) {
	users, err := s.users.FindActiveByOrg(orgID)
	if err != nil {
		return 0, 0, err
	}

	for i, user := range users {
		if _, err := s.CalculateUserRisk(user.ID); err != nil {
			failed++
			logger.Error("Risk calculation failed for user", err, map[string]interface{}{
				"user_id":         user.ID,
				"organization_id": orgID,
			})
		} else {
			calculated++
		}
		if progress != nil {
			progress(float64(i+1) / float64(len(users)) * 100)
		}
	}

	logger.Info("Bulk risk calculation finished", map[string]interface{}{
		"organization_id": orgID,
		"calculated":      calculated,
		"failed":          failed,
	})
	return calculated, failed, nil
}

// deriveMetrics computes the measurable inputs for one user
func (s *RiskService) deriveMetrics(user *models.User) (*UserMetrics, error) {
	now := time.Now()

	lastActivity := user.CreatedAt
	if user.LastLoginAt != nil {
		lastActivity = *user.LastLoginAt
	}
	daysSinceActivity := int(now.Sub(lastActivity).Hours() / 24)

	required, err := s.orgs.RequiredCategories(user.OrganizationID)
	if err != nil {
		return nil, err
	}

	completed, err := s.progress.CompletedByUser(user.ID)
	if err != nil {
		return nil, err
	}

	completedCategories := make(map[models.RoomCategory]bool)
	phishingScore := 0.0
	var phishingCompletedAt time.Time
	for _, p := range completed {
		if p.Room == nil {
			continue
		}
		completedCategories[p.Room.Category] = true
		// Most recent phishing completion wins; awareness decays, so an
		// old high score must not mask a fresh low one
		if p.Room.Category == models.RoomPhishing && p.CompletedAt != nil && p.CompletedAt.After(phishingCompletedAt) {
			phishingScore = p.Score
			phishingCompletedAt = *p.CompletedAt
		}
	}

	trainingCompletion := 100.0
	if len(required) > 0 {
		completedRequired := 0
		for _, cat := range required {
			if completedCategories[cat] {
				completedRequired++
			}
		}
		trainingCompletion = float64(completedRequired) / float64(len(required)) * 100
	}

	attempts, err := s.progress.RecentAttemptsByUser(user.ID, attemptSampleSize)
	if err != nil {
		return nil, err
	}

	windowStart := now.AddDate(0, 0, -recentAttemptsWindow)
	recentCount := 0
	totalScore := 0.0
	failedAttempts := 0
	for _, a := range attempts {
		totalScore += a.Score
		if !a.IsCorrect {
			failedAttempts++
		}
		if a.CreatedAt.After(windowStart) {
			recentCount++
		}
	}

	engagement := float64(recentCount) * 5
	if daysSinceActivity < 7 {
		engagement += 50
	}
	engagement = math.Min(100, engagement)

	performance := 0.0
	if len(attempts) > 0 {
		performance = totalScore / float64(len(attempts))
	}

	return &UserMetrics{
		UserID:             user.ID,
		TrainingCompletion: trainingCompletion,
		PhishingScore:      phishingScore,
		EngagementScore:    engagement,
		PerformanceScore:   performance,
		DaysSinceActivity:  daysSinceActivity,
		FailedAttempts:     failedAttempts,
	}, nil
}

// EvaluateRiskFactors applies the five factor checks to derived
// metrics. Pure function; the factor order is stable.
func EvaluateRiskFactors(m UserMetrics) []models.RiskFactor {
	var factors []models.RiskFactor

	if m.TrainingCompletion < 100 {
		factors = append(factors, models.RiskFactor{
			Factor:      models.FactorIncompleteTraining,
			Weight:      WeightIncompleteTraining,
			Description: fmt.Sprintf("Training %.0f%% complete", m.TrainingCompletion),
		})
	}

	if m.PhishingScore < phishingScoreFloor {
		factors = append(factors, models.RiskFactor{
			Factor:      models.FactorLowPhishingScore,
			Weight:      WeightLowPhishingScore,
			Description: fmt.Sprintf("Phishing awareness score: %.0f%%", m.PhishingScore),
		})
	}

	if m.DaysSinceActivity > inactivityDays {
		factors = append(factors, models.RiskFactor{
			Factor:      models.FactorInactive,
			Weight:      WeightInactive,
			Description: fmt.Sprintf("%d days since last activity", m.DaysSinceActivity),
		})
	}

	if m.PerformanceScore < performanceFloor {
		factors = append(factors, models.RiskFactor{
			Factor:      models.FactorLowPerformance,
			Weight:      WeightLowPerformance,
			Description: fmt.Sprintf("Average performance: %.0f%%", m.PerformanceScore),
		})
	}

	if m.FailedAttempts > failedAttemptsCeil {
		factors = append(factors, models.RiskFactor{
			Factor:      models.FactorMultipleFailures,
			Weight:      WeightMultipleFailures,
			Description: fmt.Sprintf("%d failed puzzle attempts", m.FailedAttempts),
		})
	}

	return factors
}

// RiskLevelFor maps a numeric score to its level bucket
func RiskLevelFor(score float64) models.RiskLevel {
	switch {
	case score >= ThresholdCritical:
		return models.RiskCritical
	case score >= ThresholdHigh:
		return models.RiskHigh
	case score >= ThresholdMedium:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}
