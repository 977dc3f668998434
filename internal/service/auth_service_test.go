package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/secureplay/training/internal/models"
	"github.com/secureplay/training/internal/repository"
	"github.com/secureplay/training/pkg/config"
)

func newAuthService(t *testing.T) (*AuthService, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(db))

	cfg := &config.Config{JWTSecret: "test-secret"}
	return NewAuthService(repository.NewUserRepository(db), cfg), db
}

func seedOrg(t *testing.T, db *gorm.DB) *models.Organization {
	t.Helper()
	org := &models.Organization{Name: "Acme Corp"}
	require.NoError(t, db.Create(org).Error)
	return org
}

func TestRegisterAndLogin(t *testing.T) {
	svc, db := newAuthService(t)
	org := seedOrg(t, db)

	user, err := svc.Register(org.ID, "jordan@acme.example", "hunter2!", "Jordan", "Lee", "")
	require.NoError(t, err)
	assert.Equal(t, models.RolePlayer, user.Role)
	assert.NotEqual(t, "hunter2!", user.Password)

	token, loggedIn, err := svc.Login("jordan@acme.example", "hunter2!")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.NotNil(t, loggedIn.LastLoginAt)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc, db := newAuthService(t)
	org := seedOrg(t, db)

	_, err := svc.Register(org.ID, "jordan@acme.example", "hunter2!", "Jordan", "Lee", "")
	require.NoError(t, err)

	_, err = svc.Register(org.ID, "jordan@acme.example", "different", "Jo", "Lee", "")
	assert.ErrorIs(t, err, models.ErrEmailAlreadyExists)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	svc, db := newAuthService(t)
	org := seedOrg(t, db)

	_, err := svc.Register(org.ID, "jordan@acme.example", "hunter2!", "Jordan", "Lee", "")
	require.NoError(t, err)

	_, _, err = svc.Login("jordan@acme.example", "wrong")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestLoginRejectsUnknownUser(t *testing.T) {
	svc, _ := newAuthService(t)
	_, _, err := svc.Login("nobody@acme.example", "whatever")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestLoginRejectsDeactivatedAccount(t *testing.T) {
	svc, db := newAuthService(t)
	org := seedOrg(t, db)

	user, err := svc.Register(org.ID, "jordan@acme.example", "hunter2!", "Jordan", "Lee", "")
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", user.ID).
		Update("status", models.UserStatusInactive).Error)

	_, _, err = svc.Login("jordan@acme.example", "hunter2!")
	assert.Error(t, err)
}

func TestTokenRoundTrip(t *testing.T) {
	svc, db := newAuthService(t)
	org := seedOrg(t, db)

	user, err := svc.Register(org.ID, "jordan@acme.example", "hunter2!", "Jordan", "Lee", models.RoleOrgAdmin)
	require.NoError(t, err)

	token, err := svc.GenerateToken(user)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, org.ID, claims.OrganizationID)
	assert.Equal(t, models.RoleOrgAdmin, claims.Role)
	assert.Equal(t, "secureplay", claims.Issuer)
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	svc, db := newAuthService(t)
	org := seedOrg(t, db)

	user, err := svc.Register(org.ID, "jordan@acme.example", "hunter2!", "Jordan", "Lee", "")
	require.NoError(t, err)

	token, err := svc.GenerateToken(user)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token + "x")
	assert.Error(t, err)

	otherSvc := NewAuthService(repository.NewUserRepository(db), &config.Config{JWTSecret: "other-secret"})
	_, err = otherSvc.ValidateToken(token)
	assert.Error(t, err)
}
