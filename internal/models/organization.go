package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Organization represents a customer tenant
type Organization struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Domain    string    `gorm:"size:255" json:"domain"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ComplianceSettings *ComplianceSettings `gorm:"foreignKey:OrganizationID" json:"compliance_settings,omitempty"`
}

func (o *Organization) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	return nil
}

// ComplianceSettings holds per-organization training requirements.
// RequiredRooms is a JSON array of room categories; empty means the
// platform defaults apply.
type ComplianceSettings struct {
	ID                   string         `gorm:"primaryKey;size:36" json:"id"`
	OrganizationID       string         `gorm:"uniqueIndex;size:36;not null" json:"organization_id"`
	TrainingDeadlineDays int            `gorm:"default:30" json:"training_deadline_days"`
	RequiredRooms        datatypes.JSON `gorm:"type:jsonb" json:"required_rooms"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
}

func (c *ComplianceSettings) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

// RequiredCategories decodes the RequiredRooms JSON column
func (c *ComplianceSettings) RequiredCategories() []RoomCategory {
	if len(c.RequiredRooms) == 0 {
		return nil
	}
	var categories []RoomCategory
	if err := json.Unmarshal(c.RequiredRooms, &categories); err != nil {
		return nil
	}
	return categories
}

// SetRequiredCategories encodes categories into the RequiredRooms column
func (c *ComplianceSettings) SetRequiredCategories(categories []RoomCategory) error {
	data, err := json.Marshal(categories)
	if err != nil {
		return err
	}
	c.RequiredRooms = datatypes.JSON(data)
	return nil
}

// Group is a named subset of an organization's users (team, department)
type Group struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	OrganizationID string    `gorm:"index;size:36;not null" json:"organization_id"`
	Name           string    `gorm:"size:255;not null" json:"name"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (g *Group) BeforeCreate(tx *gorm.DB) error {
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	return nil
}

// UserGroup is the group membership join table
type UserGroup struct {
	UserID    string    `gorm:"primaryKey;size:36" json:"user_id"`
	GroupID   string    `gorm:"primaryKey;size:36;index" json:"group_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName overrides the table name
func (UserGroup) TableName() string {
	return "user_groups"
}
