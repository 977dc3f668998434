package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RiskLevel buckets a user's numeric risk score
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// RiskLevels in ascending order
var RiskLevels = []RiskLevel{RiskLow, RiskMedium, RiskHigh, RiskCritical}

// Rank returns the ordinal position of the level (LOW=0 .. CRITICAL=3)
func (l RiskLevel) Rank() int {
	switch l {
	case RiskMedium:
		return 1
	case RiskHigh:
		return 2
	case RiskCritical:
		return 3
	default:
		return 0
	}
}

// Risk factor kinds
const (
	FactorIncompleteTraining = "INCOMPLETE_TRAINING"
	FactorLowPhishingScore   = "LOW_PHISHING_SCORE"
	FactorInactive           = "INACTIVE"
	FactorLowPerformance     = "LOW_PERFORMANCE"
	FactorMultipleFailures   = "MULTIPLE_FAILURES"
)

// RiskFactor is one triggered contributor to a user's risk score,
// stored as JSON inside UserRiskScore
type RiskFactor struct {
	Factor      string  `json:"factor"`
	Weight      float64 `json:"weight"`
	Description string  `json:"description"`
}

// UserRiskScore is the current risk snapshot for a user. One row per
// user, fully replaced on every recomputation.
type UserRiskScore struct {
	ID                 string         `gorm:"primaryKey;size:36" json:"id"`
	UserID             string         `gorm:"uniqueIndex;size:36;not null" json:"user_id"`
	RiskLevel          RiskLevel      `gorm:"index;size:20;default:LOW" json:"risk_level"`
	RiskScore          float64        `gorm:"default:0" json:"risk_score"`
	RiskFactors        datatypes.JSON `gorm:"type:jsonb" json:"risk_factors"`
	TrainingCompletion float64        `gorm:"default:0" json:"training_completion"`
	PhishingScore      float64        `gorm:"default:0" json:"phishing_score"`
	EngagementScore    float64        `gorm:"default:0" json:"engagement_score"`
	PerformanceScore   float64        `gorm:"default:0" json:"performance_score"`
	LastActivityAt     *time.Time     `json:"last_activity_at,omitempty"`
	DaysSinceActivity  int            `gorm:"default:0" json:"days_since_activity"`
	CalculatedAt       time.Time      `json:"calculated_at"`
}

func (s *UserRiskScore) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}

// Factors decodes the stored factor list
func (s *UserRiskScore) Factors() []RiskFactor {
	if len(s.RiskFactors) == 0 {
		return nil
	}
	var factors []RiskFactor
	if err := json.Unmarshal(s.RiskFactors, &factors); err != nil {
		return nil
	}
	return factors
}

// SetFactors encodes the factor list into the JSON column
func (s *UserRiskScore) SetFactors(factors []RiskFactor) error {
	data, err := json.Marshal(factors)
	if err != nil {
		return err
	}
	s.RiskFactors = datatypes.JSON(data)
	return nil
}
