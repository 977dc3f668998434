package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Game progress statuses
const (
	ProgressInProgress   = "IN_PROGRESS"
	ProgressRoomComplete = "ROOM_COMPLETE"
	ProgressAbandoned    = "ABANDONED"
)

// GameProgress tracks a user's run through a room
type GameProgress struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	UserID      string     `gorm:"index;size:36;not null" json:"user_id"`
	RoomID      string     `gorm:"index;size:36;not null" json:"room_id"`
	Status      string     `gorm:"index;size:20;default:IN_PROGRESS" json:"status"`
	Score       float64    `gorm:"default:0" json:"score"`
	TimeSpent   int        `gorm:"default:0" json:"time_spent"` // seconds
	CompletedAt *time.Time `gorm:"index" json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Room *Room `gorm:"foreignKey:RoomID" json:"room,omitempty"`
}

func (g *GameProgress) BeforeCreate(tx *gorm.DB) error {
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	return nil
}

// TableName overrides the table name
func (GameProgress) TableName() string {
	return "game_progress"
}

// PuzzleAttempt records one answer submission for a puzzle
type PuzzleAttempt struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"index;size:36;not null" json:"user_id"`
	PuzzleID  string    `gorm:"index;size:36;not null" json:"puzzle_id"`
	RoomID    string    `gorm:"index;size:36" json:"room_id"`
	Score     float64   `gorm:"default:0" json:"score"`
	IsCorrect bool      `gorm:"default:false" json:"is_correct"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (p *PuzzleAttempt) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}
