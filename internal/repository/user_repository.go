package repository

import (
	"time"

	"github.com/secureplay/training/internal/models"
	"gorm.io/gorm"
)

// UserRepository handles database operations for users
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user
func (r *UserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// FindByID finds a user by ID
func (r *UserRepository) FindByID(id string) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail finds a user by email
func (r *UserRepository) FindByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, "email = ?", email).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Update updates a user
func (r *UserRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

// UpdateLastLogin stamps the user's last login time
func (r *UserRepository) UpdateLastLogin(userID string, at time.Time) error {
	return r.db.Model(&models.User{}).Where("id = ?", userID).
		Update("last_login_at", at).Error
}

// FindActiveByOrg returns all active users of an organization
func (r *UserRepository) FindActiveByOrg(orgID string) ([]models.User, error) {
	var users []models.User
	err := r.db.Where("organization_id = ? AND status = ?", orgID, models.UserStatusActive).
		Find(&users).Error
	return users, err
}

// FindActiveWithProgress returns active users with their completed room
// progress preloaded (used by deadline and milestone checks)
func (r *UserRepository) FindActiveWithProgress(orgID string) ([]models.User, error) {
	var users []models.User
	err := r.db.Where("organization_id = ? AND status = ?", orgID, models.UserStatusActive).
		Preload("Progress", "status = ?", models.ProgressRoomComplete).
		Preload("Progress.Room").
		Find(&users).Error
	return users, err
}

// CountActiveByOrg counts active users of an organization
func (r *UserRepository) CountActiveByOrg(orgID string) (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).
		Where("organization_id = ? AND status = ?", orgID, models.UserStatusActive).
		Count(&count).Error
	return count, err
}

// CountActiveSince counts active users who logged in at or after the
// given time
func (r *UserRepository) CountActiveSince(orgID string, since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).
		Where("organization_id = ? AND status = ? AND last_login_at >= ?",
			orgID, models.UserStatusActive, since).
		Count(&count).Error
	return count, err
}
