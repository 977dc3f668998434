package events

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidType(t *testing.T) {
	assert.True(t, IsValidType(EventRoomCompleted))
	assert.True(t, IsValidType(EventPuzzleFailed))
	assert.True(t, IsValidType(EventLogin))
	assert.False(t, IsValidType("room_deleted"))
	assert.False(t, IsValidType(""))
}

func TestValidateAcceptsMinimalEvent(t *testing.T) {
	event := Event{
		OrganizationID: "org-1",
		UserID:         "user-1",
		SessionID:      "session-1",
		Type:           EventSessionStarted,
	}
	assert.NoError(t, Validate(&event))
}

func TestValidateRejectsMissingIdentity(t *testing.T) {
	cases := []struct {
		name  string
		event Event
	}{
		{"no organization", Event{UserID: "u", SessionID: "s", Type: EventLogin}},
		{"no user", Event{OrganizationID: "o", SessionID: "s", Type: EventLogin}},
		{"no session", Event{OrganizationID: "o", UserID: "u", Type: EventLogin}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, Validate(&tc.event), ErrMissingIdentity)
		})
	}
}

func TestValidateRejectsUnknownType(t *testing.T) {
	event := Event{
		OrganizationID: "org-1",
		UserID:         "user-1",
		SessionID:      "session-1",
		Type:           "keyboard_smashed",
	}
	err := Validate(&event)
	require.ErrorIs(t, err, ErrUnknownEventType)
	assert.Contains(t, err.Error(), "keyboard_smashed")
}

func TestValidateRejectsOversizedPayload(t *testing.T) {
	event := Event{
		OrganizationID: "org-1",
		UserID:         "user-1",
		SessionID:      "session-1",
		Type:           EventTeamChat,
		Payload: map[string]interface{}{
			"message": strings.Repeat("a", MaxPayloadBytes+1),
		},
	}
	assert.ErrorIs(t, Validate(&event), ErrPayloadTooLarge)
}

func mustParse(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return parsed
}

func TestRetentionExpiry(t *testing.T) {
	now := mustParse(t, "2026-03-01T00:00:00Z")

	assert.Equal(t, mustParse(t, "2026-03-31T00:00:00Z"), RetentionExpiry(now, 30))
	assert.Equal(t, mustParse(t, "2026-03-08T00:00:00Z"), RetentionExpiry(now, 7))

	// Zero and negative fall back to the default retention
	assert.Equal(t, mustParse(t, "2026-03-31T00:00:00Z"), RetentionExpiry(now, 0))
	assert.Equal(t, mustParse(t, "2026-03-31T00:00:00Z"), RetentionExpiry(now, -5))
}
