package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Report types
const (
	ReportCompliance = "COMPLIANCE"
	ReportRisk       = "RISK"
	ReportEngagement = "ENGAGEMENT"
)

// Report is a generated report stored for later download. The actual
// formatting is done by an external generator; this row only keeps the
// result and its parameters.
type Report struct {
	ID             string         `gorm:"primaryKey;size:36" json:"id"`
	OrganizationID string         `gorm:"index;size:36;not null" json:"organization_id"`
	Type           string         `gorm:"size:50;not null" json:"type"`
	Title          string         `gorm:"size:255" json:"title"`
	Format         string         `gorm:"size:10" json:"format"` // pdf, csv, json
	Data           datatypes.JSON `gorm:"type:jsonb" json:"data"`
	RequestedBy    string         `gorm:"size:36" json:"requested_by,omitempty"`
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`
}

func (r *Report) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}
