package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/secureplay/training/internal/models"
	"github.com/secureplay/training/internal/repository"
)

func newAlertHandler(t *testing.T) (*AlertHandler, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(db))
	return NewAlertHandler(repository.NewAlertRepository(db)), db
}

func TestAlertHistoryRejectsUnknownSeverity(t *testing.T) {
	handler, _ := newAlertHandler(t)

	c, w := authedContext(t, http.MethodGet, "/api/alerts/history?severity=APOCALYPTIC")
	handler.History(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAlertHistoryFiltersBySeverity(t *testing.T) {
	handler, db := newAlertHandler(t)

	require.NoError(t, db.Create(&models.Alert{
		OrganizationID: "org-1", Title: "Resilience score decreased", Severity: models.SeverityHigh,
	}).Error)
	require.NoError(t, db.Create(&models.Alert{
		OrganizationID: "org-1", Title: "Low organization engagement", Severity: models.SeverityMedium,
	}).Error)

	c, w := authedContext(t, http.MethodGet, "/api/alerts/history?severity=HIGH")
	handler.History(c)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Alerts []models.Alert `json:"alerts"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Alerts, 1)
	assert.Equal(t, models.SeverityHigh, body.Alerts[0].Severity)
}
