package scoring

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

func newRiskService(db *gorm.DB) *RiskService {
	return NewRiskService(
		repository.NewUserRepository(db),
		repository.NewProgressRepository(db),
		repository.NewOrgRepository(db),
		repository.NewRiskRepository(db),
	)
}

func seedOrg(t *testing.T, db *gorm.DB) *models.Organization {
	t.Helper()
	org := &models.Organization{Name: "Acme Corp"}
	require.NoError(t, db.Create(org).Error)
	return org
}

func seedUser(t *testing.T, db *gorm.DB, orgID string, lastLogin time.Time) *models.User {
	t.Helper()
	user := &models.User{
		OrganizationID: orgID,
		Email:          "user-" + uuid.NewString() + "@example.com",
		FirstName:      "Jamie",
		LastName:       "Reyes",
		Role:           models.RolePlayer,
		Status:         models.UserStatusActive,
	}
	if !lastLogin.IsZero() {
		user.LastLoginAt = &lastLogin
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedRoom(t *testing.T, db *gorm.DB, category models.RoomCategory) *models.Room {
	t.Helper()
	room := &models.Room{Name: string(category), Category: category, IsActive: true}
	require.NoError(t, db.Create(room).Error)
	return room
}

func completeRoom(t *testing.T, db *gorm.DB, userID, roomID string, score float64) {
	t.Helper()
	now := time.Now()
	require.NoError(t, db.Create(&models.GameProgress{
		UserID:      userID,
		RoomID:      roomID,
		Status:      models.ProgressRoomComplete,
		Score:       score,
		CompletedAt: &now,
	}).Error)
}

func TestRiskLevelFor(t *testing.T) {
	assert.Equal(t, models.RiskLow, RiskLevelFor(0))
	assert.Equal(t, models.RiskLow, RiskLevelFor(29))
	assert.Equal(t, models.RiskMedium, RiskLevelFor(30))
	assert.Equal(t, models.RiskMedium, RiskLevelFor(49))
	assert.Equal(t, models.RiskHigh, RiskLevelFor(50))
	assert.Equal(t, models.RiskHigh, RiskLevelFor(69))
	assert.Equal(t, models.RiskCritical, RiskLevelFor(70))
	assert.Equal(t, models.RiskCritical, RiskLevelFor(100))
}

func TestEvaluateRiskFactorsAllTriggered(t *testing.T) {
	factors := EvaluateRiskFactors(UserMetrics{
		TrainingCompletion: 50,
		PhishingScore:      40,
		EngagementScore:    10,
		PerformanceScore:   30,
		DaysSinceActivity:  30,
		FailedAttempts:     15,
	})

	require.Len(t, factors, 5)
	total := 0.0
	for _, f := range factors {
		total += f.Weight
	}
	assert.Equal(t, 100.0, total)
	assert.Equal(t, models.RiskCritical, RiskLevelFor(total))
}

func TestEvaluateRiskFactorsNoneTriggered(t *testing.T) {
	factors := EvaluateRiskFactors(UserMetrics{
		TrainingCompletion: 100,
		PhishingScore:      85,
		EngagementScore:    90,
		PerformanceScore:   75,
		DaysSinceActivity:  2,
		FailedAttempts:     3,
	})
	assert.Empty(t, factors)
}

func TestEvaluateRiskFactorsTrainingBoundary(t *testing.T) {
	base := UserMetrics{
		TrainingCompletion: 100,
		PhishingScore:      85,
		EngagementScore:    90,
		PerformanceScore:   75,
		DaysSinceActivity:  2,
		FailedAttempts:     3,
	}

	// 100% exactly does not trigger
	assert.Empty(t, EvaluateRiskFactors(base))

	// Just below does, at full weight
	base.TrainingCompletion = 99.9
	factors := EvaluateRiskFactors(base)
	require.Len(t, factors, 1)
	assert.Equal(t, models.FactorIncompleteTraining, factors[0].Factor)
	assert.Equal(t, WeightIncompleteTraining, factors[0].Weight)
}

func TestCalculateUserRiskPersistsSnapshot(t *testing.T) {
	db := newTestDB(t)
	org := seedOrg(t, db)
	user := seedUser(t, db, org.ID, time.Now())

	phishing := seedRoom(t, db, models.RoomPhishing)
	passwords := seedRoom(t, db, models.RoomPasswordAuth)
	dataProt := seedRoom(t, db, models.RoomDataProtection)
	completeRoom(t, db, user.ID, phishing.ID, 90)
	completeRoom(t, db, user.ID, passwords.ID, 88)
	completeRoom(t, db, user.ID, dataProt.ID, 92)

	svc := newRiskService(db)
	snapshot, err := svc.CalculateUserRisk(user.ID)
	require.NoError(t, err)

	// Completed all required rooms with a strong phishing score, so
	// neither the training nor phishing factor fires.
	assert.Equal(t, 100.0, snapshot.TrainingCompletion)
	assert.Equal(t, 90.0, snapshot.PhishingScore)
	for _, f := range snapshot.Factors() {
		assert.NotEqual(t, models.FactorIncompleteTraining, f.Factor)
		assert.NotEqual(t, models.FactorLowPhishingScore, f.Factor)
	}
}

func TestCalculateUserRiskUpsertIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	org := seedOrg(t, db)
	user := seedUser(t, db, org.ID, time.Now())

	svc := newRiskService(db)

	first, err := svc.CalculateUserRisk(user.ID)
	require.NoError(t, err)
	second, err := svc.CalculateUserRisk(user.ID)
	require.NoError(t, err)

	assert.Equal(t, first.RiskScore, second.RiskScore)
	assert.Equal(t, first.RiskLevel, second.RiskLevel)

	// Still exactly one row for the user
	var count int64
	require.NoError(t, db.Model(&models.UserRiskScore{}).Where("user_id = ?", user.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestCalculateAllUserRisksSurvivesPerUserFailure(t *testing.T) {
	db := newTestDB(t)
	org := seedOrg(t, db)
	seedUser(t, db, org.ID, time.Now())
	seedUser(t, db, org.ID, time.Time{})

	svc := newRiskService(db)
	calculated, failed, err := svc.CalculateAllUserRisks(org.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, calculated)
	assert.Equal(t, 0, failed)
}

func TestCalculateAllUserRisksReportsProgress(t *testing.T) {
	db := newTestDB(t)
	org := seedOrg(t, db)
	for i := 0; i < 4; i++ {
		seedUser(t, db, org.ID, time.Now())
	}

	svc := newRiskService(db)

	var reported []float64
	_, _, err := svc.CalculateAllUserRisks(org.ID, func(percent float64) {
		reported = append(reported, percent)
	})
	require.NoError(t, err)

	require.Len(t, reported, 4)
	for i := 1; i < len(reported); i++ {
		assert.Greater(t, reported[i], reported[i-1])
	}
	assert.InDelta(t, 25.0, reported[0], 0.001)
	assert.InDelta(t, 100.0, reported[3], 0.001)
}

func TestPhishingScoreUsesMostRecentCompletion(t *testing.T) {
	db := newTestDB(t)
	org := seedOrg(t, db)
	user := seedUser(t, db, org.ID, time.Now())

	first := seedRoom(t, db, models.RoomPhishing)
	refresher := seedRoom(t, db, models.RoomPhishing)

	older := time.Now().AddDate(0, 0, -20)
	newer := time.Now().AddDate(0, 0, -1)
	require.NoError(t, db.Create(&models.GameProgress{
		UserID:      user.ID,
		RoomID:      first.ID,
		Status:      models.ProgressRoomComplete,
		Score:       90,
		CompletedAt: &older,
	}).Error)
	require.NoError(t, db.Create(&models.GameProgress{
		UserID:      user.ID,
		RoomID:      refresher.ID,
		Status:      models.ProgressRoomComplete,
		Score:       40,
		CompletedAt: &newer,
	}).Error)

	svc := newRiskService(db)
	snapshot, err := svc.CalculateUserRisk(user.ID)
	require.NoError(t, err)

	// The latest completion counts, even when an older one scored higher
	assert.Equal(t, 40.0, snapshot.PhishingScore)

	found := false
	for _, f := range snapshot.Factors() {
		if f.Factor == models.FactorLowPhishingScore {
			found = true
		}
	}
	assert.True(t, found)
}
