package repository

import (
	"errors"
	"time"

	"github.com/secureplay/training/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// severityOrder ranks severities in SQL so CRITICAL sorts first on both
// PostgreSQL and SQLite
const severityOrder = "CASE severity WHEN 'CRITICAL' THEN 4 WHEN 'HIGH' THEN 3 WHEN 'MEDIUM' THEN 2 ELSE 1 END DESC"

// AlertRepository handles database operations for alerts
type AlertRepository struct {
	db *gorm.DB
}

// NewAlertRepository creates a new alert repository
func NewAlertRepository(db *gorm.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// Create inserts a new alert row
func (r *AlertRepository) Create(alert *models.Alert) error {
	return r.db.Create(alert).Error
}

// FindByID finds an alert by ID
func (r *AlertRepository) FindByID(id string) (*models.Alert, error) {
	var alert models.Alert
	err := r.db.First(&alert, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

// FindOpenByTitle returns an unacknowledged alert with the same title
// created at or after the given time, or nil. This is the dedup lookup.
func (r *AlertRepository) FindOpenByTitle(orgID, title string, since time.Time) (*models.Alert, error) {
	var alert models.Alert
	err := r.db.Where(
		"organization_id = ? AND title = ? AND is_acknowledged = ? AND created_at >= ?",
		orgID, title, false, since,
	).First(&alert).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &alert, nil
}

// RefreshMetadata overwrites the metadata of an existing alert without
// creating a new row
func (r *AlertRepository) RefreshMetadata(id string, metadata datatypes.JSON) error {
	return r.db.Model(&models.Alert{}).Where("id = ?", id).
		Update("metadata", metadata).Error
}

// FindUnacknowledged returns open alerts, most severe and most recent first
func (r *AlertRepository) FindUnacknowledged(orgID string) ([]models.Alert, error) {
	var alerts []models.Alert
	err := r.db.Where("organization_id = ? AND is_acknowledged = ?", orgID, false).
		Order(severityOrder).
		Order("created_at DESC").
		Find(&alerts).Error
	return alerts, err
}

// FindSince returns all alerts for the organization created at or after
// the given time (the milestone check scans their metadata tags)
func (r *AlertRepository) FindSince(orgID string, since time.Time) ([]models.Alert, error) {
	var alerts []models.Alert
	err := r.db.Where("organization_id = ? AND created_at >= ?", orgID, since).
		Find(&alerts).Error
	return alerts, err
}

// History returns past alerts, optionally including acknowledged ones
// and filtered by severity
func (r *AlertRepository) History(orgID string, limit int, includeAcknowledged bool, severity models.AlertSeverity) ([]models.Alert, error) {
	query := r.db.Where("organization_id = ?", orgID)
	if !includeAcknowledged {
		query = query.Where("is_acknowledged = ?", false)
	}
	if severity != "" {
		query = query.Where("severity = ?", severity)
	}
	if limit <= 0 {
		limit = 50
	}

	var alerts []models.Alert
	err := query.Order("created_at DESC").Limit(limit).Find(&alerts).Error
	return alerts, err
}

// Acknowledge marks an alert as acknowledged. Idempotent: acknowledging
// an already acknowledged alert keeps the original acknowledger.
func (r *AlertRepository) Acknowledge(id, userID string) (*models.Alert, error) {
	alert, err := r.FindByID(id)
	if err != nil {
		return nil, err
	}
	if alert.IsAcknowledged {
		return alert, nil
	}

	now := time.Now()
	alert.IsAcknowledged = true
	alert.AcknowledgedBy = userID
	alert.AcknowledgedAt = &now
	if err := r.db.Save(alert).Error; err != nil {
		return nil, err
	}
	return alert, nil
}

// CountsBySeverity returns open alert counts per severity
func (r *AlertRepository) CountsBySeverity(orgID string) (map[models.AlertSeverity]int, error) {
	counts := map[models.AlertSeverity]int{
		models.SeverityLow:      0,
		models.SeverityMedium:   0,
		models.SeverityHigh:     0,
		models.SeverityCritical: 0,
	}

	rows := []struct {
		Severity models.AlertSeverity
		Count    int
	}{}
	err := r.db.Model(&models.Alert{}).
		Where("organization_id = ? AND is_acknowledged = ?", orgID, false).
		Select("severity, COUNT(*) as count").
		Group("severity").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		counts[row.Severity] = row.Count
	}
	return counts, nil
}
