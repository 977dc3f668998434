package repository

import (
	"errors"

	"github.com/secureplay/training/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RiskRepository handles database operations for user risk scores
type RiskRepository struct {
	db *gorm.DB
}

// NewRiskRepository creates a new risk repository
func NewRiskRepository(db *gorm.DB) *RiskRepository {
	return &RiskRepository{db: db}
}

// Upsert replaces the user's risk snapshot in place. The row is keyed
// by user_id; re-running a computation fully overwrites prior factors
// and metrics.
func (r *RiskRepository) Upsert(score *models.UserRiskScore) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"risk_level",
			"risk_score",
			"risk_factors",
			"training_completion",
			"phishing_score",
			"engagement_score",
			"performance_score",
			"last_activity_at",
			"days_since_activity",
			"calculated_at",
		}),
	}).Create(score).Error
}

// FindByUser returns the current risk snapshot for a user, or nil if
// none has been computed yet
func (r *RiskRepository) FindByUser(userID string) (*models.UserRiskScore, error) {
	var score models.UserRiskScore
	err := r.db.First(&score, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &score, nil
}

// FindByUsers returns the risk snapshots for a set of users
func (r *RiskRepository) FindByUsers(userIDs []string) ([]models.UserRiskScore, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var scores []models.UserRiskScore
	err := r.db.Where("user_id IN ?", userIDs).Find(&scores).Error
	return scores, err
}

// CountByLevel returns the risk level breakdown for a set of users
func (r *RiskRepository) CountByLevel(userIDs []string) (map[models.RiskLevel]int, error) {
	counts := map[models.RiskLevel]int{
		models.RiskLow:      0,
		models.RiskMedium:   0,
		models.RiskHigh:     0,
		models.RiskCritical: 0,
	}
	scores, err := r.FindByUsers(userIDs)
	if err != nil {
		return nil, err
	}
	for _, s := range scores {
		counts[s.RiskLevel]++
	}
	return counts, nil
}

// FindByOrgAndLevels returns risk snapshots of an organization's users
// at the given levels, highest score first
func (r *RiskRepository) FindByOrgAndLevels(orgID string, levels []models.RiskLevel) ([]models.UserRiskScore, error) {
	var scores []models.UserRiskScore
	err := r.db.
		Joins("JOIN users ON users.id = user_risk_scores.user_id").
		Where("users.organization_id = ? AND user_risk_scores.risk_level IN ?", orgID, levels).
		Order("user_risk_scores.risk_score DESC").
		Find(&scores).Error
	return scores, err
}
