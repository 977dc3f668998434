package events

import (
	"context"
	"time"
)

// Period buckets for event aggregation
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

// Filters narrows event queries. OrganizationID is mandatory; all other
// fields are optional.
type Filters struct {
	OrganizationID string
	UserID         string
	SessionID      string
	Types          []EventType
	StartDate      time.Time
	EndDate        time.Time
	Limit          int // capped at MaxQueryLimit, default 100
	Offset         int
}

// MaxQueryLimit bounds a single event query page
const MaxQueryLimit = 1000

// QueryResult is one page of events plus paging information
type QueryResult struct {
	Events  []Event `json:"events"`
	Total   int64   `json:"total"`
	HasMore bool    `json:"has_more"`
}

// Bucket is one period of aggregated event activity
type Bucket struct {
	Date        string         `json:"date"`
	EventCounts map[string]int `json:"event_counts"`
	UniqueUsers int            `json:"unique_users"`
	TotalEvents int            `json:"total_events"`
}

// UserActivity summarizes one user's activity over a trailing window
type UserActivity struct {
	TotalEvents      int        `json:"total_events"`
	SessionsCount    int        `json:"sessions_count"`
	RoomsVisited     []string   `json:"rooms_visited"`
	PuzzlesCompleted int        `json:"puzzles_completed"`
	LastActive       *time.Time `json:"last_active"`
}

// Store is the time-series event store. The production implementation
// is MongoDB with a TTL index; tests use an in-memory fake.
type Store interface {
	Insert(ctx context.Context, event Event) (string, error)
	InsertMany(ctx context.Context, events []Event) (int, error)
	Query(ctx context.Context, filters Filters) (*QueryResult, error)
	CountsByType(ctx context.Context, orgID string, start, end time.Time) (map[string]int64, error)
	Aggregates(ctx context.Context, orgID string, period Period, days int) ([]Bucket, error)
	UserActivity(ctx context.Context, orgID, userID string, days int) (*UserActivity, error)
}

// Mirror receives a best-effort copy of every durably written event,
// e.g. for dashboard time-series in InfluxDB. Mirror failures must
// never fail ingestion.
type Mirror interface {
	Write(event Event)
	Flush()
}
