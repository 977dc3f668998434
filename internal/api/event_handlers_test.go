package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secureplay/training/internal/events"
)

// stubStore serves canned responses and records the filters it saw
type stubStore struct {
	counts     map[string]int64
	countsOrg  string
	countStart time.Time
	countEnd   time.Time
}

func (s *stubStore) Insert(_ context.Context, event events.Event) (string, error) {
	return event.ID, nil
}

func (s *stubStore) InsertMany(_ context.Context, batch []events.Event) (int, error) {
	return len(batch), nil
}

func (s *stubStore) Query(_ context.Context, _ events.Filters) (*events.QueryResult, error) {
	return &events.QueryResult{}, nil
}

func (s *stubStore) CountsByType(_ context.Context, orgID string, start, end time.Time) (map[string]int64, error) {
	s.countsOrg = orgID
	s.countStart = start
	s.countEnd = end
	return s.counts, nil
}

func (s *stubStore) Aggregates(_ context.Context, _ string, _ events.Period, _ int) ([]events.Bucket, error) {
	return nil, nil
}

func (s *stubStore) UserActivity(_ context.Context, _, _ string, _ int) (*events.UserActivity, error) {
	return nil, nil
}

var _ events.Store = (*stubStore)(nil)

func authedContext(t *testing.T, method, target string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, target, nil)
	c.Set("user_id", "user-1")
	c.Set("organization_id", "org-1")
	return c, w
}

func TestEventCounts(t *testing.T) {
	store := &stubStore{counts: map[string]int64{"login": 12, "puzzle_completed": 7}}
	handler := NewEventHandler(nil, store)

	c, w := authedContext(t, http.MethodGet, "/api/events/counts")
	handler.Counts(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "org-1", store.countsOrg)

	var body struct {
		Counts map[string]int64 `json:"counts"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.EqualValues(t, 12, body.Counts["login"])
	assert.EqualValues(t, 7, body.Counts["puzzle_completed"])
}

func TestEventCountsParsesRange(t *testing.T) {
	store := &stubStore{counts: map[string]int64{}}
	handler := NewEventHandler(nil, store)

	c, w := authedContext(t, http.MethodGet,
		"/api/events/counts?start_date=2026-03-01T00:00:00Z&end_date=2026-03-31T00:00:00Z")
	handler.Counts(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2026, store.countStart.Year())
	assert.Equal(t, time.March, store.countStart.Month())
	assert.EqualValues(t, 31, store.countEnd.Day())
}

func TestEventCountsDefaultsToOpenRange(t *testing.T) {
	store := &stubStore{counts: map[string]int64{}}
	handler := NewEventHandler(nil, store)

	c, w := authedContext(t, http.MethodGet, "/api/events/counts")
	handler.Counts(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, store.countStart.IsZero())
	assert.True(t, store.countEnd.IsZero())
}
