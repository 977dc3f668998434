package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// EventType represents the type of a behavioral event
type EventType string

const (
	// Room events
	EventRoomStarted   EventType = "room_started"
	EventRoomCompleted EventType = "room_completed"
	EventRoomFailed    EventType = "room_failed"
	EventRoomAbandoned EventType = "room_abandoned"

	// Puzzle events
	EventPuzzleStarted   EventType = "puzzle_started"
	EventPuzzleCompleted EventType = "puzzle_completed"
	EventPuzzleFailed    EventType = "puzzle_failed"
	EventPuzzleSkipped   EventType = "puzzle_skipped"

	// Hint events
	EventHintRequested EventType = "hint_requested"
	EventHintViewed    EventType = "hint_viewed"

	// Session events
	EventSessionStarted EventType = "session_started"
	EventSessionEnded   EventType = "session_ended"
	EventSessionPaused  EventType = "session_paused"
	EventSessionResumed EventType = "session_resumed"

	// Auth events
	EventLogin  EventType = "login"
	EventLogout EventType = "logout"

	// Team events
	EventTeamJoined EventType = "team_joined"
	EventTeamLeft   EventType = "team_left"
	EventTeamChat   EventType = "team_chat"

	// Progress events
	EventCheckpointReached EventType = "checkpoint_reached"
	EventBadgeEarned       EventType = "badge_earned"
	EventLevelUp           EventType = "level_up"
)

// knownTypes is the closed enumeration accepted at the ingestion boundary
var knownTypes = map[EventType]bool{
	EventRoomStarted:   true,
	EventRoomCompleted: true,
	EventRoomFailed:    true,
	EventRoomAbandoned: true,

	EventPuzzleStarted:   true,
	EventPuzzleCompleted: true,
	EventPuzzleFailed:    true,
	EventPuzzleSkipped:   true,

	EventHintRequested: true,
	EventHintViewed:    true,

	EventSessionStarted: true,
	EventSessionEnded:   true,
	EventSessionPaused:  true,
	EventSessionResumed: true,

	EventLogin:  true,
	EventLogout: true,

	EventTeamJoined: true,
	EventTeamLeft:   true,
	EventTeamChat:   true,

	EventCheckpointReached: true,
	EventBadgeEarned:       true,
	EventLevelUp:           true,
}

// IsValidType reports whether the type belongs to the closed enumeration
func IsValidType(t EventType) bool {
	return knownTypes[t]
}

// Metadata carries client context captured at ingestion
type Metadata struct {
	UserAgent  string `bson:"userAgent,omitempty" json:"user_agent,omitempty"`
	IPAddress  string `bson:"ipAddress,omitempty" json:"ip_address,omitempty"`
	DeviceType string `bson:"deviceType,omitempty" json:"device_type,omitempty"`
}

// Event is one immutable behavioral fact. Once written it is never
// mutated; the store deletes it automatically when ExpiresAt passes.
type Event struct {
	ID             string                 `bson:"_id,omitempty" json:"id"`
	OrganizationID string                 `bson:"organizationId" json:"organization_id"`
	UserID         string                 `bson:"userId" json:"user_id"`
	SessionID      string                 `bson:"sessionId" json:"session_id"`
	Type           EventType              `bson:"eventType" json:"event_type"`
	Timestamp      time.Time              `bson:"timestamp" json:"timestamp"`
	Payload        map[string]interface{} `bson:"payload" json:"payload"`
	Metadata       Metadata               `bson:"metadata" json:"metadata"`
	CreatedAt      time.Time              `bson:"createdAt" json:"created_at"`
	ExpiresAt      time.Time              `bson:"expiresAt" json:"expires_at"`
}

// Validation errors
var (
	ErrUnknownEventType = errors.New("unknown event type")
	ErrPayloadTooLarge  = errors.New("event payload too large")
	ErrMissingIdentity  = errors.New("event requires organization, user and session ids")
)

// MaxPayloadBytes caps the serialized payload size accepted at admission
const MaxPayloadBytes = 16 * 1024

// Validate checks an event against the closed type enumeration and the
// payload size limit. Called at the admission boundary; invalid events
// are rejected synchronously and never enqueued.
func Validate(e *Event) error {
	if e.OrganizationID == "" || e.UserID == "" || e.SessionID == "" {
		return ErrMissingIdentity
	}
	if !IsValidType(e.Type) {
		return fmt.Errorf("%w: %q", ErrUnknownEventType, e.Type)
	}
	if e.Payload != nil {
		data, err := json.Marshal(e.Payload)
		if err != nil {
			return fmt.Errorf("unserializable payload: %w", err)
		}
		if len(data) > MaxPayloadBytes {
			return fmt.Errorf("%w: %d bytes (limit %d)", ErrPayloadTooLarge, len(data), MaxPayloadBytes)
		}
	}
	return nil
}
