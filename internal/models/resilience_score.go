package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrganizationResilienceScore is one append-only snapshot of an
// organization's blended resilience score. History is retained for
// trend queries; rows are never updated.
type OrganizationResilienceScore struct {
	ID             string `gorm:"primaryKey;size:36" json:"id"`
	OrganizationID string `gorm:"index;size:36;not null" json:"organization_id"`

	OverallScore     float64 `gorm:"default:0" json:"overall_score"`
	CompletionScore  float64 `gorm:"default:0" json:"completion_score"`
	PerformanceScore float64 `gorm:"default:0" json:"performance_score"`

	TotalUsers     int `gorm:"default:0" json:"total_users"`
	ActiveUsers    int `gorm:"default:0" json:"active_users"`
	CompletedUsers int `gorm:"default:0" json:"completed_users"`

	AverageAccuracy  float64 `gorm:"default:0" json:"average_accuracy"`
	AverageTimeSpent int     `gorm:"default:0" json:"average_time_spent"`

	LowRiskCount      int `gorm:"default:0" json:"low_risk_count"`
	MediumRiskCount   int `gorm:"default:0" json:"medium_risk_count"`
	HighRiskCount     int `gorm:"default:0" json:"high_risk_count"`
	CriticalRiskCount int `gorm:"default:0" json:"critical_risk_count"`

	PeriodStart  time.Time `json:"period_start"`
	PeriodEnd    time.Time `json:"period_end"`
	CalculatedAt time.Time `gorm:"index" json:"calculated_at"`
}

func (s *OrganizationResilienceScore) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.CalculatedAt.IsZero() {
		s.CalculatedAt = time.Now()
	}
	return nil
}

// GroupResilienceScore is the group-level counterpart, also append-only
type GroupResilienceScore struct {
	ID      string `gorm:"primaryKey;size:36" json:"id"`
	GroupID string `gorm:"index;size:36;not null" json:"group_id"`

	OverallScore     float64 `gorm:"default:0" json:"overall_score"`
	CompletionScore  float64 `gorm:"default:0" json:"completion_score"`
	PerformanceScore float64 `gorm:"default:0" json:"performance_score"`

	TotalUsers     int `gorm:"default:0" json:"total_users"`
	CompletedUsers int `gorm:"default:0" json:"completed_users"`

	AverageAccuracy float64 `gorm:"default:0" json:"average_accuracy"`

	LowRiskCount      int `gorm:"default:0" json:"low_risk_count"`
	MediumRiskCount   int `gorm:"default:0" json:"medium_risk_count"`
	HighRiskCount     int `gorm:"default:0" json:"high_risk_count"`
	CriticalRiskCount int `gorm:"default:0" json:"critical_risk_count"`

	PeriodStart  time.Time `json:"period_start"`
	PeriodEnd    time.Time `json:"period_end"`
	CalculatedAt time.Time `gorm:"index" json:"calculated_at"`
}

func (s *GroupResilienceScore) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.CalculatedAt.IsZero() {
		s.CalculatedAt = time.Now()
	}
	return nil
}
