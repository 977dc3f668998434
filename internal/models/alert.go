package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AlertSeverity ranks how urgent an alert is
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "LOW"
	SeverityMedium   AlertSeverity = "MEDIUM"
	SeverityHigh     AlertSeverity = "HIGH"
	SeverityCritical AlertSeverity = "CRITICAL"
)

// AlertSeverities in ascending order
var AlertSeverities = []AlertSeverity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// Rank returns the ordinal position of the severity (LOW=0 .. CRITICAL=3)
func (s AlertSeverity) Rank() int {
	switch s {
	case SeverityMedium:
		return 1
	case SeverityHigh:
		return 2
	case SeverityCritical:
		return 3
	default:
		return 0
	}
}

// Alert kinds, stored in the metadata "type" tag
const (
	AlertDeadlineApproaching = "DEADLINE_APPROACHING"
	AlertLowEngagement       = "LOW_ENGAGEMENT"
	AlertHighRiskUser        = "HIGH_RISK_USER"
	AlertScoreDrop           = "SCORE_DROP"
	AlertCompletionMilestone = "COMPLETION_MILESTONE"
)

// Alert is an open or acknowledged notification for an organization.
// Metadata always carries a "type" tag plus check-specific data.
type Alert struct {
	ID             string         `gorm:"primaryKey;size:36" json:"id"`
	OrganizationID string         `gorm:"index;size:36;not null" json:"organization_id"`
	Title          string         `gorm:"size:255;not null" json:"title"`
	Message        string         `gorm:"size:1000" json:"message"`
	Severity       AlertSeverity  `gorm:"index;size:20;default:LOW" json:"severity"`
	Metadata       datatypes.JSON `gorm:"type:jsonb" json:"metadata"`
	IsAcknowledged bool           `gorm:"index;default:false" json:"is_acknowledged"`
	AcknowledgedBy string         `gorm:"size:36" json:"acknowledged_by,omitempty"`
	AcknowledgedAt *time.Time     `json:"acknowledged_at,omitempty"`
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func (a *Alert) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

// MetadataMap decodes the metadata column
func (a *Alert) MetadataMap() map[string]interface{} {
	if len(a.Metadata) == 0 {
		return nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(a.Metadata, &m); err != nil {
		return nil
	}
	return m
}

// SetMetadata encodes the given map into the metadata column
func (a *Alert) SetMetadata(m map[string]interface{}) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	a.Metadata = datatypes.JSON(data)
	return nil
}
