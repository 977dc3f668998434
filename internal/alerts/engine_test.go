package alerts

import (
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

func newEngine(db *gorm.DB) *Engine {
	return NewEngine(
		repository.NewUserRepository(db),
		repository.NewOrgRepository(db),
		repository.NewRiskRepository(db),
		repository.NewResilienceRepository(db),
		repository.NewAlertRepository(db),
	)
}

func seedOrg(t *testing.T, db *gorm.DB) *models.Organization {
	t.Helper()
	org := &models.Organization{Name: "Acme Corp"}
	require.NoError(t, db.Create(org).Error)
	return org
}

func seedCompliance(t *testing.T, db *gorm.DB, orgID string, deadlineDays int) {
	t.Helper()
	settings := &models.ComplianceSettings{
		OrganizationID:       orgID,
		TrainingDeadlineDays: deadlineDays,
	}
	require.NoError(t, settings.SetRequiredCategories(models.DefaultRequiredRooms))
	require.NoError(t, db.Create(settings).Error)
}

func seedUser(t *testing.T, db *gorm.DB, orgID string, lastLogin time.Time) *models.User {
	t.Helper()
	user := &models.User{
		OrganizationID: orgID,
		Email:          "user-" + uuid.NewString() + "@example.com",
		FirstName:      "Sam",
		LastName:       "Okafor",
		Role:           models.RolePlayer,
		Status:         models.UserStatusActive,
	}
	if !lastLogin.IsZero() {
		user.LastLoginAt = &lastLogin
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedOrgSnapshot(t *testing.T, db *gorm.DB, orgID string, overall float64, at time.Time) {
	t.Helper()
	require.NoError(t, db.Create(&models.OrganizationResilienceScore{
		OrganizationID: orgID,
		OverallScore:   overall,
		CalculatedAt:   at,
	}).Error)
}

func TestCheckLowEngagementFires(t *testing.T) {
	db := newTestDB(t)
	org := seedOrg(t, db)

	// 1 of 5 users active in the last 30 days: 20% engagement
	seedUser(t, db, org.ID, time.Now())
	for i := 0; i < 4; i++ {
		seedUser(t, db, org.ID, time.Now().AddDate(0, 0, -60))
	}

	engine := newEngine(db)
	candidates, err := engine.CheckLowEngagement(org.ID)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, models.AlertLowEngagement, candidates[0].Type)
	assert.Equal(t, models.SeverityMedium, candidates[0].Severity)
}

func TestCheckLowEngagementSeverityEscalates(t *testing.T) {
	db := newTestDB(t)
	org := seedOrg(t, db)

	// 1 of 10 active: 10%, below the 15% escalation threshold
	seedUser(t, db, org.ID, time.Now())
	for i := 0; i < 9; i++ {
		seedUser(t, db, org.ID, time.Now().AddDate(0, 0, -60))
	}

	engine := newEngine(db)
	candidates, err := engine.CheckLowEngagement(org.ID)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, models.SeverityHigh, candidates[0].Severity)
}

func TestCheckLowEngagementQuietWhenHealthy(t *testing.T) {
	db := newTestDB(t)
	org := seedOrg(t, db)
	seedUser(t, db, org.ID, time.Now())

	engine := newEngine(db)
	candidates, err := engine.CheckLowEngagement(org.ID)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestCheckScoreDrop(t *testing.T) {
	db := newTestDB(t)
	org := seedOrg(t, db)
	seedOrgSnapshot(t, db, org.ID, 75, time.Now().Add(-2*time.Hour))
	seedOrgSnapshot(t, db, org.ID, 60, time.Now().Add(-1*time.Hour))

	engine := newEngine(db)
	candidates, err := engine.CheckScoreDrop(org.ID)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, models.AlertScoreDrop, candidates[0].Type)
	assert.Equal(t, models.SeverityMedium, candidates[0].Severity)
	assert.InDelta(t, 15.0, candidates[0].Metadata["drop"], 0.001)
}

func TestCheckScoreDropSevere(t *testing.T) {
	db := newTestDB(t)
	org := seedOrg(t, db)
	seedOrgSnapshot(t, db, org.ID, 80, time.Now().Add(-2*time.Hour))
	seedOrgSnapshot(t, db, org.ID, 55, time.Now().Add(-1*time.Hour))

	engine := newEngine(db)
	candidates, err := engine.CheckScoreDrop(org.ID)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, models.SeverityHigh, candidates[0].Severity)
}

func TestCheckScoreDropIgnoresSmallDips(t *testing.T) {
	db := newTestDB(t)
	org := seedOrg(t, db)
	seedOrgSnapshot(t, db, org.ID, 75, time.Now().Add(-2*time.Hour))
	seedOrgSnapshot(t, db, org.ID, 70, time.Now().Add(-1*time.Hour))

	engine := newEngine(db)
	candidates, err := engine.CheckScoreDrop(org.ID)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestCheckHighRiskUsers(t *testing.T) {
	db := newTestDB(t)
	org := seedOrg(t, db)
	riskRepo := repository.NewRiskRepository(db)

	critical := seedUser(t, db, org.ID, time.Now())
	high := seedUser(t, db, org.ID, time.Now())
	low := seedUser(t, db, org.ID, time.Now())

	require.NoError(t, riskRepo.Upsert(&models.UserRiskScore{UserID: critical.ID, RiskLevel: models.RiskCritical, RiskScore: 85}))
	require.NoError(t, riskRepo.Upsert(&models.UserRiskScore{UserID: high.ID, RiskLevel: models.RiskHigh, RiskScore: 55}))
	require.NoError(t, riskRepo.Upsert(&models.UserRiskScore{UserID: low.ID, RiskLevel: models.RiskLow, RiskScore: 5}))

	engine := newEngine(db)
	candidates, err := engine.CheckHighRiskUsers(org.ID)
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	assert.Equal(t, models.SeverityCritical, candidates[0].Severity)
	assert.Equal(t, "1 users at critical risk", candidates[0].Title)
	assert.Equal(t, models.SeverityHigh, candidates[1].Severity)
}

func TestDeduplicationRefreshesMetadata(t *testing.T) {
	db := newTestDB(t)
	org := seedOrg(t, db)
	engine := newEngine(db)

	first := Candidate{
		Type:     models.AlertLowEngagement,
		Severity: models.SeverityMedium,
		Title:    "Low organization engagement",
		Message:  "Only 20.0% of users have been active in the last 30 days.",
		Metadata: map[string]interface{}{"engagementRate": 20.0},
	}
	require.NoError(t, engine.persistIfNew(org.ID, first))

	second := first
	second.Metadata = map[string]interface{}{"engagementRate": 18.0}
	require.NoError(t, engine.persistIfNew(org.ID, second))

	var stored []models.Alert
	require.NoError(t, db.Where("organization_id = ?", org.ID).Find(&stored).Error)
	require.Len(t, stored, 1)
	assert.InDelta(t, 18.0, stored[0].MetadataMap()["engagementRate"], 0.001)
}

func TestDeduplicationRespectsAcknowledgement(t *testing.T) {
	db := newTestDB(t)
	org := seedOrg(t, db)
	user := seedUser(t, db, org.ID, time.Now())
	engine := newEngine(db)
	alertRepo := repository.NewAlertRepository(db)

	candidate := Candidate{
		Type:     models.AlertScoreDrop,
		Severity: models.SeverityMedium,
		Title:    "Resilience score decreased",
		Message:  "Organization resilience score dropped by 12.0 points (58.0 from 70.0).",
		Metadata: map[string]interface{}{"drop": 12.0},
	}
	require.NoError(t, engine.persistIfNew(org.ID, candidate))

	var created models.Alert
	require.NoError(t, db.Where("organization_id = ?", org.ID).First(&created).Error)
	_, err := alertRepo.Acknowledge(created.ID, user.ID)
	require.NoError(t, err)

	// An acknowledged alert no longer suppresses a new one
	require.NoError(t, engine.persistIfNew(org.ID, candidate))

	var count int64
	require.NoError(t, db.Model(&models.Alert{}).Where("organization_id = ?", org.ID).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestMilestoneFiresHighestOnly(t *testing.T) {
	db := newTestDB(t)
	org := seedOrg(t, db)
	seedCompliance(t, db, org.ID, 30)

	rooms := make(map[models.RoomCategory]*models.Room)
	for _, cat := range models.DefaultRequiredRooms {
		room := &models.Room{Name: string(cat), Category: cat, IsActive: true}
		require.NoError(t, db.Create(room).Error)
		rooms[cat] = room
	}

	// 9 of 10 users fully compliant: 90% completion, which crosses
	// the 25, 50, 75, and 90 milestones at once.
	for i := 0; i < 10; i++ {
		user := seedUser(t, db, org.ID, time.Now())
		if i == 0 {
			continue
		}
		for _, room := range rooms {
			now := time.Now()
			require.NoError(t, db.Create(&models.GameProgress{
				UserID:      user.ID,
				RoomID:      room.ID,
				Status:      models.ProgressRoomComplete,
				Score:       90,
				CompletedAt: &now,
			}).Error)
		}
	}

	engine := newEngine(db)
	candidates, err := engine.CheckCompletionMilestones(org.ID)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, 90, candidates[0].Metadata["milestone"])

	// Persist it, then re-check: the announced milestone suppresses a
	// repeat within the window.
	require.NoError(t, engine.persistIfNew(org.ID, candidates[0]))
	again, err := engine.CheckCompletionMilestones(org.ID)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestCheckDeadlineApproaching(t *testing.T) {
	db := newTestDB(t)
	org := seedOrg(t, db)
	seedCompliance(t, db, org.ID, 30)

	// User created 28 days ago with nothing completed: 2 days left,
	// inside the 3-day warning but not the 1-day one.
	user := seedUser(t, db, org.ID, time.Now())
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", user.ID).
		Update("created_at", time.Now().AddDate(0, 0, -28)).Error)

	engine := newEngine(db)
	candidates, err := engine.CheckDeadlineApproaching(org.ID)
	require.NoError(t, err)

	require.Len(t, candidates, 2)
	assert.Equal(t, 7, candidates[0].Metadata["daysRemaining"])
	assert.Equal(t, models.SeverityHigh, candidates[0].Severity)
	assert.Equal(t, 3, candidates[1].Metadata["daysRemaining"])
}

func TestCheckAllOrdersMostSevereFirst(t *testing.T) {
	db := newTestDB(t)
	org := seedOrg(t, db)
	riskRepo := repository.NewRiskRepository(db)

	// Low engagement (MEDIUM): 1 of 5 users active recently
	active := seedUser(t, db, org.ID, time.Now())
	for i := 0; i < 4; i++ {
		seedUser(t, db, org.ID, time.Now().AddDate(0, 0, -60))
	}
	// One critical-risk user (CRITICAL)
	require.NoError(t, riskRepo.Upsert(&models.UserRiskScore{
		UserID: active.ID, RiskLevel: models.RiskCritical, RiskScore: 85,
	}))

	engine := newEngine(db)
	candidates, err := engine.CheckAll(org.ID)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(candidates), 2)

	assert.Equal(t, models.SeverityCritical, candidates[0].Severity)
	for i := 1; i < len(candidates); i++ {
		assert.LessOrEqual(t, candidates[i].Severity.Rank(), candidates[i-1].Severity.Rank())
	}
}

func TestCheckAllPersistsDeduplicated(t *testing.T) {
	db := newTestDB(t)
	org := seedOrg(t, db)

	// Low engagement setup
	seedUser(t, db, org.ID, time.Now())
	for i := 0; i < 4; i++ {
		seedUser(t, db, org.ID, time.Now().AddDate(0, 0, -60))
	}

	engine := newEngine(db)
	_, err := engine.CheckAll(org.ID)
	require.NoError(t, err)
	_, err = engine.CheckAll(org.ID)
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.Alert{}).
		Where("organization_id = ? AND title = ?", org.ID, "Low organization engagement").
		Count(&count).Error)
	assert.EqualValues(t, 1, count)
}
