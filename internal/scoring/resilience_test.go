package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/secureplay/training/internal/models"
	"github.com/secureplay/training/internal/repository"
)

func newResilienceService(db *gorm.DB) *ResilienceService {
	return NewResilienceService(
		repository.NewUserRepository(db),
		repository.NewProgressRepository(db),
		repository.NewOrgRepository(db),
		repository.NewRiskRepository(db),
		repository.NewResilienceRepository(db),
	)
}

func seedAttempt(t *testing.T, db *gorm.DB, userID string, score float64, correct bool) {
	t.Helper()
	require.NoError(t, db.Create(&models.PuzzleAttempt{
		UserID:    userID,
		PuzzleID:  "puzzle-1",
		Score:     score,
		IsCorrect: correct,
	}).Error)
}

func TestCalculateOrgScoreEmptyOrganization(t *testing.T) {
	db := newTestDB(t)
	org := seedOrg(t, db)

	svc := newResilienceService(db)
	snapshot, err := svc.CalculateOrgScore(org.ID, time.Time{}, time.Time{})
	require.NoError(t, err)

	assert.Equal(t, 0.0, snapshot.OverallScore)
	assert.Equal(t, 0.0, snapshot.CompletionScore)
	assert.Equal(t, 0.0, snapshot.PerformanceScore)
	assert.Equal(t, 0, snapshot.TotalUsers)

	// The zero snapshot is still stored for trend continuity
	stored, err := svc.LatestOrgScore(org.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, snapshot.ID, stored.ID)
}

func TestCalculateOrgScoreBlendedFormula(t *testing.T) {
	db := newTestDB(t)
	org := seedOrg(t, db)
	room := seedRoom(t, db, models.RoomPhishing)

	// Two users, one completed a room: completion 50%. Attempt
	// accuracy averages 40%.
	done := seedUser(t, db, org.ID, time.Now())
	idle := seedUser(t, db, org.ID, time.Now())
	completeRoom(t, db, done.ID, room.ID, 95)
	seedAttempt(t, db, done.ID, 50, true)
	seedAttempt(t, db, idle.ID, 30, false)

	svc := newResilienceService(db)
	snapshot, err := svc.CalculateOrgScore(org.ID, time.Time{}, time.Time{})
	require.NoError(t, err)

	assert.Equal(t, 50.0, snapshot.CompletionScore)
	assert.Equal(t, 40.0, snapshot.PerformanceScore)
	// overall = 0.5*50 + 0.5*40
	assert.InDelta(t, 45.0, snapshot.OverallScore, 0.001)
	assert.Equal(t, 2, snapshot.TotalUsers)
	assert.Equal(t, 1, snapshot.CompletedUsers)
}

func TestCalculateOrgScoreAppendsHistory(t *testing.T) {
	db := newTestDB(t)
	org := seedOrg(t, db)
	seedUser(t, db, org.ID, time.Now())

	svc := newResilienceService(db)
	_, err := svc.CalculateOrgScore(org.ID, time.Time{}, time.Time{})
	require.NoError(t, err)
	_, err = svc.CalculateOrgScore(org.ID, time.Time{}, time.Time{})
	require.NoError(t, err)

	history, err := svc.OrgHistory(org.ID, 30)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestCalculateGroupScoreEmptyGroupSkipped(t *testing.T) {
	db := newTestDB(t)
	org := seedOrg(t, db)
	group := &models.Group{OrganizationID: org.ID, Name: "Engineering"}
	require.NoError(t, db.Create(group).Error)

	svc := newResilienceService(db)
	snapshot, err := svc.CalculateGroupScore(group.ID, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Nil(t, snapshot)
}

func TestCalculateGroupScore(t *testing.T) {
	db := newTestDB(t)
	org := seedOrg(t, db)
	room := seedRoom(t, db, models.RoomDataProtection)

	group := &models.Group{OrganizationID: org.ID, Name: "Sales"}
	require.NoError(t, db.Create(group).Error)

	user := seedUser(t, db, org.ID, time.Now())
	require.NoError(t, db.Create(&models.UserGroup{UserID: user.ID, GroupID: group.ID}).Error)
	completeRoom(t, db, user.ID, room.ID, 80)
	seedAttempt(t, db, user.ID, 80, true)

	svc := newResilienceService(db)
	snapshot, err := svc.CalculateGroupScore(group.ID, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.NotNil(t, snapshot)

	assert.Equal(t, 100.0, snapshot.CompletionScore)
	assert.Equal(t, 80.0, snapshot.PerformanceScore)
	assert.InDelta(t, 90.0, snapshot.OverallScore, 0.001)
}

func TestRiskBreakdownCounts(t *testing.T) {
	db := newTestDB(t)
	org := seedOrg(t, db)
	user := seedUser(t, db, org.ID, time.Now())

	score := &models.UserRiskScore{
		UserID:    user.ID,
		RiskLevel: models.RiskCritical,
		RiskScore: 85,
	}
	require.NoError(t, repository.NewRiskRepository(db).Upsert(score))

	svc := newResilienceService(db)
	snapshot, err := svc.CalculateOrgScore(org.ID, time.Time{}, time.Time{})
	require.NoError(t, err)

	assert.Equal(t, 1, snapshot.CriticalRiskCount)
	assert.Equal(t, 0, snapshot.HighRiskCount)
	assert.Equal(t, 0, snapshot.LowRiskCount)
}
