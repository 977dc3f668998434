package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RoomCategory classifies a training room by security topic
type RoomCategory string

const (
	RoomPasswordAuth      RoomCategory = "PASSWORD_AUTH"
	RoomPhishing          RoomCategory = "PHISHING"
	RoomDataProtection    RoomCategory = "DATA_PROTECTION"
	RoomSocialEngineering RoomCategory = "SOCIAL_ENGINEERING"
	RoomMalware           RoomCategory = "MALWARE"
	RoomPhysicalSecurity  RoomCategory = "PHYSICAL_SECURITY"
)

// DefaultRequiredRooms are the compliance categories applied when an
// organization has not configured its own required set.
var DefaultRequiredRooms = []RoomCategory{
	RoomPasswordAuth,
	RoomPhishing,
	RoomDataProtection,
}

// Room represents one training scenario (an escape room)
type Room struct {
	ID        string       `gorm:"primaryKey;size:36" json:"id"`
	Name      string       `gorm:"size:255;not null" json:"name"`
	Category  RoomCategory `gorm:"index;size:50;not null" json:"category"`
	Order     int          `gorm:"default:0" json:"order"`
	IsActive  bool         `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`

	Puzzles []Puzzle `gorm:"foreignKey:RoomID" json:"puzzles,omitempty"`
}

func (r *Room) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

// Puzzle is a single challenge within a room
type Puzzle struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	RoomID    string    `gorm:"index;size:36;not null" json:"room_id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	MaxScore  int       `gorm:"default:100" json:"max_score"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *Puzzle) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}
