package reports

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/secureplay/training/internal/models"
	"github.com/secureplay/training/internal/repository"
	"github.com/secureplay/training/internal/scoring"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(db))
	return db
}

func newGenerator(db *gorm.DB) *Generator {
	users := repository.NewUserRepository(db)
	progress := repository.NewProgressRepository(db)
	orgs := repository.NewOrgRepository(db)
	risks := repository.NewRiskRepository(db)
	return NewGenerator(
		users,
		orgs,
		risks,
		repository.NewResilienceRepository(db),
		repository.NewAlertRepository(db),
		scoring.NewAnalyticsService(users, progress, orgs, risks),
	)
}

func seedOrg(t *testing.T, db *gorm.DB) *models.Organization {
	t.Helper()
	org := &models.Organization{Name: "Acme Corp"}
	require.NoError(t, db.Create(org).Error)
	return org
}

func seedUser(t *testing.T, db *gorm.DB, orgID string) *models.User {
	t.Helper()
	now := time.Now()
	user := &models.User{
		OrganizationID: orgID,
		Email:          "user-" + uuid.NewString() + "@example.com",
		FirstName:      "Riley",
		LastName:       "Nguyen",
		Role:           models.RolePlayer,
		Status:         models.UserStatusActive,
		LastLoginAt:    &now,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestRiskReportLevelSummary(t *testing.T) {
	db := newTestDB(t)
	org := seedOrg(t, db)
	risks := repository.NewRiskRepository(db)

	critical := seedUser(t, db, org.ID)
	seedUser(t, db, org.ID) // never scored, lands under LOW
	require.NoError(t, risks.Upsert(&models.UserRiskScore{
		UserID: critical.ID, RiskLevel: models.RiskCritical, RiskScore: 85,
	}))

	report, err := newGenerator(db).Generate(context.Background(), org.ID, models.ReportRisk)
	require.NoError(t, err)

	summary, ok := report["levelSummary"].([]map[string]interface{})
	require.True(t, ok)
	require.Len(t, summary, 4)

	// Most severe first, every level present even when empty
	assert.Equal(t, models.RiskCritical, summary[0]["level"])
	assert.Equal(t, 1, summary[0]["users"])
	assert.Equal(t, models.RiskHigh, summary[1]["level"])
	assert.Equal(t, 0, summary[1]["users"])
	assert.Equal(t, models.RiskMedium, summary[2]["level"])
	assert.Equal(t, models.RiskLow, summary[3]["level"])
	assert.Equal(t, 1, summary[3]["users"])
}

func TestEngagementReport(t *testing.T) {
	db := newTestDB(t)
	org := seedOrg(t, db)
	seedUser(t, db, org.ID)
	seedUser(t, db, org.ID)

	report, err := newGenerator(db).Generate(context.Background(), org.ID, models.ReportEngagement)
	require.NoError(t, err)

	assert.EqualValues(t, 2, report["totalUsers"])
	assert.InDelta(t, 100.0, report["engagementRate"], 0.001)
}

func TestGenerateRejectsUnknownType(t *testing.T) {
	db := newTestDB(t)
	org := seedOrg(t, db)

	_, err := newGenerator(db).Generate(context.Background(), org.ID, "WEATHER")
	assert.Error(t, err)
}
