package repository

import (
	"errors"
	"time"

	"github.com/secureplay/training/internal/models"
	"gorm.io/gorm"
)

// ResilienceRepository handles the append-only resilience score history
type ResilienceRepository struct {
	db *gorm.DB
}

// NewResilienceRepository creates a new resilience repository
func NewResilienceRepository(db *gorm.DB) *ResilienceRepository {
	return &ResilienceRepository{db: db}
}

// CreateOrgScore appends a new organization snapshot. History rows are
// never updated.
func (r *ResilienceRepository) CreateOrgScore(score *models.OrganizationResilienceScore) error {
	return r.db.Create(score).Error
}

// CreateGroupScore appends a new group snapshot
func (r *ResilienceRepository) CreateGroupScore(score *models.GroupResilienceScore) error {
	return r.db.Create(score).Error
}

// LatestOrgScore returns the most recent snapshot for an organization,
// or nil if none exists
func (r *ResilienceRepository) LatestOrgScore(orgID string) (*models.OrganizationResilienceScore, error) {
	var score models.OrganizationResilienceScore
	err := r.db.Where("organization_id = ?", orgID).
		Order("calculated_at DESC").
		First(&score).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &score, nil
}

// RecentOrgScores returns the most recent snapshots, newest first
// (the score drop check compares the top two)
func (r *ResilienceRepository) RecentOrgScores(orgID string, limit int) ([]models.OrganizationResilienceScore, error) {
	var scores []models.OrganizationResilienceScore
	err := r.db.Where("organization_id = ?", orgID).
		Order("calculated_at DESC").
		Limit(limit).
		Find(&scores).Error
	return scores, err
}

// OrgHistory returns snapshots from the trailing N days, oldest first,
// for trend charts
func (r *ResilienceRepository) OrgHistory(orgID string, days int) ([]models.OrganizationResilienceScore, error) {
	since := time.Now().AddDate(0, 0, -days)
	var scores []models.OrganizationResilienceScore
	err := r.db.Where("organization_id = ? AND calculated_at >= ?", orgID, since).
		Order("calculated_at ASC").
		Find(&scores).Error
	return scores, err
}

// LatestGroupScore returns the most recent snapshot for a group, or nil
func (r *ResilienceRepository) LatestGroupScore(groupID string) (*models.GroupResilienceScore, error) {
	var score models.GroupResilienceScore
	err := r.db.Where("group_id = ?", groupID).
		Order("calculated_at DESC").
		First(&score).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &score, nil
}
