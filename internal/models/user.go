package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// User roles
const (
	RoleSuperAdmin = "SUPER_ADMIN"
	RoleOrgAdmin   = "ORG_ADMIN"
	RoleManager    = "MANAGER"
	RolePlayer     = "PLAYER"
)

// User statuses
const (
	UserStatusActive    = "ACTIVE"
	UserStatusInactive  = "INACTIVE"
	UserStatusSuspended = "SUSPENDED"
)

// User represents a trainee or admin account scoped to an organization
type User struct {
	ID             string     `gorm:"primaryKey;size:36" json:"id"`
	OrganizationID string     `gorm:"index;size:36;not null" json:"organization_id"`
	Email          string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password       string     `gorm:"size:255;not null" json:"-"` // Never expose in JSON
	FirstName      string     `gorm:"size:100" json:"first_name"`
	LastName       string     `gorm:"size:100" json:"last_name"`
	Role           string     `gorm:"size:20;default:PLAYER" json:"role"`
	Status         string     `gorm:"index;size:20;default:ACTIVE" json:"status"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	// Relationships
	Progress  []GameProgress  `gorm:"foreignKey:UserID" json:"progress,omitempty"`
	Attempts  []PuzzleAttempt `gorm:"foreignKey:UserID" json:"attempts,omitempty"`
	RiskScore *UserRiskScore  `gorm:"foreignKey:UserID" json:"risk_score,omitempty"`
}

// BeforeCreate hook to generate UUID
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}

// FullName returns the display name used in alerts and reports
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// SetPassword hashes and sets the user password
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

// CheckPassword verifies if the provided password is correct
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

// IsAdmin reports whether the user may manage the organization
func (u *User) IsAdmin() bool {
	return u.Role == RoleOrgAdmin || u.Role == RoleSuperAdmin
}

// Custom errors
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailAlreadyExists = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrGroupNotFound      = errors.New("group not found")
	ErrOrgNotFound        = errors.New("organization not found")
)
