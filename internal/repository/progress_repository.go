package repository

import (
	"time"

	"github.com/secureplay/training/internal/models"
	"gorm.io/gorm"
)

// ProgressRepository handles database operations for game progress and
// puzzle attempts
type ProgressRepository struct {
	db *gorm.DB
}

// NewProgressRepository creates a new progress repository
func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// CreateProgress creates a game progress record
func (r *ProgressRepository) CreateProgress(progress *models.GameProgress) error {
	return r.db.Create(progress).Error
}

// CreateAttempt creates a puzzle attempt record
func (r *ProgressRepository) CreateAttempt(attempt *models.PuzzleAttempt) error {
	return r.db.Create(attempt).Error
}

// CompletedByUser returns the user's completed rooms with room preloaded
func (r *ProgressRepository) CompletedByUser(userID string) ([]models.GameProgress, error) {
	var progress []models.GameProgress
	err := r.db.Where("user_id = ? AND status = ?", userID, models.ProgressRoomComplete).
		Preload("Room").
		Find(&progress).Error
	return progress, err
}

// RecentAttemptsByUser returns the user's most recent puzzle attempts,
// newest first
func (r *ProgressRepository) RecentAttemptsByUser(userID string, limit int) ([]models.PuzzleAttempt, error) {
	var attempts []models.PuzzleAttempt
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&attempts).Error
	return attempts, err
}

// CountDistinctCompletedUsers counts distinct users with at least one
// room completed within the period
func (r *ProgressRepository) CountDistinctCompletedUsers(userIDs []string, start, end time.Time) (int64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.Model(&models.GameProgress{}).
		Where("user_id IN ? AND status = ? AND completed_at >= ? AND completed_at <= ?",
			userIDs, models.ProgressRoomComplete, start, end).
		Distinct("user_id").
		Count(&count).Error
	return count, err
}

// AverageAttemptScore returns the mean puzzle attempt score over the period
func (r *ProgressRepository) AverageAttemptScore(userIDs []string, start, end time.Time) (float64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	var avg *float64
	err := r.db.Model(&models.PuzzleAttempt{}).
		Where("user_id IN ? AND created_at >= ? AND created_at <= ?", userIDs, start, end).
		Select("AVG(score)").
		Scan(&avg).Error
	if err != nil || avg == nil {
		return 0, err
	}
	return *avg, nil
}

// AverageCompletionStats returns mean score and mean time spent across
// completed rooms within the period
func (r *ProgressRepository) AverageCompletionStats(userIDs []string, start, end time.Time) (avgScore float64, avgTimeSpent float64, err error) {
	if len(userIDs) == 0 {
		return 0, 0, nil
	}
	row := struct {
		AvgScore *float64
		AvgTime  *float64
	}{}
	err = r.db.Model(&models.GameProgress{}).
		Where("user_id IN ? AND status = ? AND completed_at >= ? AND completed_at <= ?",
			userIDs, models.ProgressRoomComplete, start, end).
		Select("AVG(score) as avg_score, AVG(time_spent) as avg_time").
		Scan(&row).Error
	if err != nil {
		return 0, 0, err
	}
	if row.AvgScore != nil {
		avgScore = *row.AvgScore
	}
	if row.AvgTime != nil {
		avgTimeSpent = *row.AvgTime
	}
	return avgScore, avgTimeSpent, nil
}

// RoomStats holds per-room completion statistics for a set of users
type RoomStats struct {
	Completed int64
	Total     int64
	AvgScore  float64
}

// StatsForRoom returns completion counts and average completed score
// for the given users in one room (knowledge gap heatmap cells)
func (r *ProgressRepository) StatsForRoom(userIDs []string, roomID string) (*RoomStats, error) {
	stats := &RoomStats{}
	if len(userIDs) == 0 {
		return stats, nil
	}

	err := r.db.Model(&models.GameProgress{}).
		Where("user_id IN ? AND room_id = ?", userIDs, roomID).
		Count(&stats.Total).Error
	if err != nil {
		return nil, err
	}

	err = r.db.Model(&models.GameProgress{}).
		Where("user_id IN ? AND room_id = ? AND status = ?", userIDs, roomID, models.ProgressRoomComplete).
		Count(&stats.Completed).Error
	if err != nil {
		return nil, err
	}

	var avg *float64
	err = r.db.Model(&models.GameProgress{}).
		Where("user_id IN ? AND room_id = ? AND status = ?", userIDs, roomID, models.ProgressRoomComplete).
		Select("AVG(score)").
		Scan(&avg).Error
	if err != nil {
		return nil, err
	}
	if avg != nil {
		stats.AvgScore = *avg
	}

	return stats, nil
}

// ActiveRooms returns all active rooms ordered for display
func (r *ProgressRepository) ActiveRooms() ([]models.Room, error) {
	var rooms []models.Room
	err := r.db.Where("is_active = ?", true).
		Order(`"order" ASC`).
		Find(&rooms).Error
	return rooms, err
}
