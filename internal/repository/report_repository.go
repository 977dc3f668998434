package repository

import (
	"github.com/secureplay/training/internal/models"
	"gorm.io/gorm"
)

// ReportRepository handles database operations for generated reports
type ReportRepository struct {
	db *gorm.DB
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Create stores a generated report
func (r *ReportRepository) Create(report *models.Report) error {
	return r.db.Create(report).Error
}

// FindByID finds a report by ID
func (r *ReportRepository) FindByID(id string) (*models.Report, error) {
	var report models.Report
	err := r.db.First(&report, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// FindByOrg returns the organization's reports, newest first
func (r *ReportRepository) FindByOrg(orgID string, limit int) ([]models.Report, error) {
	if limit <= 0 {
		limit = 50
	}
	var reports []models.Report
	err := r.db.Where("organization_id = ?", orgID).
		Order("created_at DESC").
		Limit(limit).
		Find(&reports).Error
	return reports, err
}
