package repository

import (
	"errors"

	"github.com/secureplay/training/internal/models"
	"gorm.io/gorm"
)

// OrgRepository handles database operations for organizations, groups
// and compliance settings
type OrgRepository struct {
	db *gorm.DB
}

// NewOrgRepository creates a new organization repository
func NewOrgRepository(db *gorm.DB) *OrgRepository {
	return &OrgRepository{db: db}
}

// Create creates a new organization
func (r *OrgRepository) Create(org *models.Organization) error {
	return r.db.Create(org).Error
}

// FindByID finds an organization by ID
func (r *OrgRepository) FindByID(id string) (*models.Organization, error) {
	var org models.Organization
	err := r.db.First(&org, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrOrgNotFound
		}
		return nil, err
	}
	return &org, nil
}

// FindAll returns all organizations (daily calculation walks these)
func (r *OrgRepository) FindAll() ([]models.Organization, error) {
	var orgs []models.Organization
	err := r.db.Find(&orgs).Error
	return orgs, err
}

// ComplianceSettings returns the organization's compliance settings, or
// nil if none are configured
func (r *OrgRepository) ComplianceSettings(orgID string) (*models.ComplianceSettings, error) {
	var settings models.ComplianceSettings
	err := r.db.First(&settings, "organization_id = ?", orgID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &settings, nil
}

// SaveComplianceSettings inserts or updates the organization's settings
func (r *OrgRepository) SaveComplianceSettings(settings *models.ComplianceSettings) error {
	existing, err := r.ComplianceSettings(settings.OrganizationID)
	if err != nil {
		return err
	}
	if existing == nil {
		return r.db.Create(settings).Error
	}
	settings.ID = existing.ID
	return r.db.Save(settings).Error
}

// RequiredCategories returns the organization's required room set,
// falling back to the platform defaults when unset
func (r *OrgRepository) RequiredCategories(orgID string) ([]models.RoomCategory, error) {
	settings, err := r.ComplianceSettings(orgID)
	if err != nil {
		return nil, err
	}
	if settings != nil {
		if categories := settings.RequiredCategories(); len(categories) > 0 {
			return categories, nil
		}
	}
	return models.DefaultRequiredRooms, nil
}

// Groups returns all groups of an organization
func (r *OrgRepository) Groups(orgID string) ([]models.Group, error) {
	var groups []models.Group
	err := r.db.Where("organization_id = ?", orgID).Find(&groups).Error
	return groups, err
}

// FindGroup finds a group by ID
func (r *OrgRepository) FindGroup(groupID string) (*models.Group, error) {
	var group models.Group
	err := r.db.First(&group, "id = ?", groupID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrGroupNotFound
		}
		return nil, err
	}
	return &group, nil
}

// GroupMemberIDs returns the user IDs belonging to a group
func (r *OrgRepository) GroupMemberIDs(groupID string) ([]string, error) {
	var ids []string
	err := r.db.Model(&models.UserGroup{}).
		Where("group_id = ?", groupID).
		Pluck("user_id", &ids).Error
	return ids, err
}

// AddGroupMember adds a user to a group
func (r *OrgRepository) AddGroupMember(groupID, userID string) error {
	return r.db.Create(&models.UserGroup{GroupID: groupID, UserID: userID}).Error
}

// CreateGroup creates a new group
func (r *OrgRepository) CreateGroup(group *models.Group) error {
	return r.db.Create(group).Error
}
