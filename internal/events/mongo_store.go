package events

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/secureplay/training/pkg/logger"
)

// MongoStore persists game telemetry events in MongoDB. Documents carry
// an expiresAt field served by a TTL index, so retention is enforced by
// the database itself.
type MongoStore struct {
	collection *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		collection: db.Collection("game_events"),
	}
}

func (s *MongoStore) Insert(ctx context.Context, event Event) (string, error) {
	if event.ID == "" {
		event.ID = primitive.NewObjectID().Hex()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	_, err := s.collection.InsertOne(ctx, event)
	if err != nil {
		return "", fmt.Errorf("failed to insert event: %w", err)
	}
	return event.ID, nil
}

func (s *MongoStore) InsertMany(ctx context.Context, batch []Event) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}

	docs := make([]interface{}, 0, len(batch))
	now := time.Now().UTC()
	for i := range batch {
		if batch[i].ID == "" {
			batch[i].ID = primitive.NewObjectID().Hex()
		}
		if batch[i].CreatedAt.IsZero() {
			batch[i].CreatedAt = now
		}
		docs = append(docs, batch[i])
	}

	res, err := s.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err != nil {
		// unordered insert may have written a subset
		if res != nil {
			return len(res.InsertedIDs), fmt.Errorf("failed to insert event batch: %w", err)
		}
		return 0, fmt.Errorf("failed to insert event batch: %w", err)
	}
	return len(res.InsertedIDs), nil
}

func (s *MongoStore) Query(ctx context.Context, filters Filters) (*QueryResult, error) {
	if filters.OrganizationID == "" {
		return nil, fmt.Errorf("organization id is required")
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 100
	}
	if limit > MaxQueryLimit {
		limit = MaxQueryLimit
	}
	offset := filters.Offset
	if offset < 0 {
		offset = 0
	}

	query := s.buildQuery(filters)

	total, err := s.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count events: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := s.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer cursor.Close(ctx)

	results := make([]Event, 0, limit)
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode events: %w", err)
	}

	return &QueryResult{
		Events:  results,
		Total:   total,
		HasMore: int64(offset+len(results)) < total,
	}, nil
}

func (s *MongoStore) buildQuery(filters Filters) bson.M {
	query := bson.M{"organizationId": filters.OrganizationID}

	if filters.UserID != "" {
		query["userId"] = filters.UserID
	}
	if filters.SessionID != "" {
		query["sessionId"] = filters.SessionID
	}
	if len(filters.Types) > 0 {
		query["eventType"] = bson.M{"$in": filters.Types}
	}

	timeRange := bson.M{}
	if !filters.StartDate.IsZero() {
		timeRange["$gte"] = filters.StartDate
	}
	if !filters.EndDate.IsZero() {
		timeRange["$lte"] = filters.EndDate
	}
	if len(timeRange) > 0 {
		query["timestamp"] = timeRange
	}

	return query
}

func (s *MongoStore) CountsByType(ctx context.Context, orgID string, start, end time.Time) (map[string]int64, error) {
	match := bson.M{"organizationId": orgID}
	timeRange := bson.M{}
	if !start.IsZero() {
		timeRange["$gte"] = start
	}
	if !end.IsZero() {
		timeRange["$lte"] = end
	}
	if len(timeRange) > 0 {
		match["timestamp"] = timeRange
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$eventType",
			"count": bson.M{"$sum": 1},
		}}},
	}

	cursor, err := s.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate event counts: %w", err)
	}
	defer cursor.Close(ctx)

	counts := make(map[string]int64)
	for cursor.Next(ctx) {
		var row struct {
			ID    string `bson:"_id"`
			Count int64  `bson:"count"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("failed to decode count row: %w", err)
		}
		counts[row.ID] = row.Count
	}
	return counts, cursor.Err()
}

// Aggregates buckets events by day, ISO week, or month over a trailing
// window and reports per-type counts plus distinct active users.
func (s *MongoStore) Aggregates(ctx context.Context, orgID string, period Period, days int) ([]Bucket, error) {
	if days <= 0 {
		days = 30
	}

	var dateFormat string
	switch period {
	case PeriodWeekly:
		dateFormat = "%Y-%U"
	case PeriodMonthly:
		dateFormat = "%Y-%m"
	default:
		dateFormat = "%Y-%m-%d"
	}

	since := time.Now().UTC().AddDate(0, 0, -days)

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"organizationId": orgID,
			"timestamp":      bson.M{"$gte": since},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{
				"date":      bson.M{"$dateToString": bson.M{"format": dateFormat, "date": "$timestamp"}},
				"eventType": "$eventType",
			},
			"count": bson.M{"$sum": 1},
			"users": bson.M{"$addToSet": "$userId"},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id.date", Value: 1}}}},
	}

	cursor, err := s.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate events: %w", err)
	}
	defer cursor.Close(ctx)

	type row struct {
		ID struct {
			Date      string `bson:"date"`
			EventType string `bson:"eventType"`
		} `bson:"_id"`
		Count int      `bson:"count"`
		Users []string `bson:"users"`
	}

	buckets := make(map[string]*Bucket)
	userSets := make(map[string]map[string]struct{})
	order := make([]string, 0)

	for cursor.Next(ctx) {
		var r row
		if err := cursor.Decode(&r); err != nil {
			return nil, fmt.Errorf("failed to decode aggregate row: %w", err)
		}

		b, ok := buckets[r.ID.Date]
		if !ok {
			b = &Bucket{Date: r.ID.Date, EventCounts: make(map[string]int)}
			buckets[r.ID.Date] = b
			userSets[r.ID.Date] = make(map[string]struct{})
			order = append(order, r.ID.Date)
		}
		b.EventCounts[r.ID.EventType] += r.Count
		b.TotalEvents += r.Count
		for _, u := range r.Users {
			userSets[r.ID.Date][u] = struct{}{}
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}

	out := make([]Bucket, 0, len(order))
	for _, date := range order {
		b := buckets[date]
		b.UniqueUsers = len(userSets[date])
		out = append(out, *b)
	}
	return out, nil
}

func (s *MongoStore) UserActivity(ctx context.Context, orgID, userID string, days int) (*UserActivity, error) {
	if days <= 0 {
		days = 30
	}
	since := time.Now().UTC().AddDate(0, 0, -days)

	query := bson.M{
		"organizationId": orgID,
		"userId":         userID,
		"timestamp":      bson.M{"$gte": since},
	}

	cursor, err := s.collection.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query user activity: %w", err)
	}
	defer cursor.Close(ctx)

	activity := &UserActivity{RoomsVisited: []string{}}
	sessions := make(map[string]struct{})
	rooms := make(map[string]struct{})

	for cursor.Next(ctx) {
		var e Event
		if err := cursor.Decode(&e); err != nil {
			return nil, fmt.Errorf("failed to decode event: %w", err)
		}

		activity.TotalEvents++
		if activity.LastActive == nil {
			t := e.Timestamp
			activity.LastActive = &t
		}
		if e.SessionID != "" {
			sessions[e.SessionID] = struct{}{}
		}
		if e.Type == EventPuzzleCompleted {
			activity.PuzzlesCompleted++
		}
		if e.Type == EventRoomStarted || e.Type == EventRoomCompleted {
			if roomID, ok := e.Payload["roomId"].(string); ok && roomID != "" {
				rooms[roomID] = struct{}{}
			}
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}

	activity.SessionsCount = len(sessions)
	for room := range rooms {
		activity.RoomsVisited = append(activity.RoomsVisited, room)
	}

	logger.Debug("User activity summarized", map[string]interface{}{
		"user_id":      userID,
		"total_events": activity.TotalEvents,
		"window_days":  days,
	})
	return activity, nil
}
