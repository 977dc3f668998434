package events

import (
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/secureplay/training/pkg/logger"
)

// InfluxMirror forwards a copy of every durably written event to
// InfluxDB for dashboard time-series. Writes are asynchronous and
// best-effort; the mirror never blocks or fails the ingestion path.
type InfluxMirror struct {
	writeAPI api.WriteAPI
}

func NewInfluxMirror(client influxdb2.Client, org, bucket string) *InfluxMirror {
	writeAPI := client.WriteAPI(org, bucket)

	go func() {
		for err := range writeAPI.Errors() {
			logger.Warn("InfluxDB mirror write failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	return &InfluxMirror{writeAPI: writeAPI}
}

func (m *InfluxMirror) Write(event Event) {
	point := influxdb2.NewPointWithMeasurement("game_events").
		AddTag("organization_id", event.OrganizationID).
		AddTag("event_type", string(event.Type)).
		AddField("user_id", event.UserID).
		AddField("session_id", event.SessionID).
		SetTime(event.Timestamp)

	if score, ok := event.Payload["score"].(float64); ok {
		point.AddField("score", score)
	}
	if spent, ok := event.Payload["timeSpent"].(float64); ok {
		point.AddField("time_spent", spent)
	}

	m.writeAPI.WritePoint(point)
}

func (m *InfluxMirror) Flush() {
	m.writeAPI.Flush()
}

// NopMirror satisfies Mirror when InfluxDB is not configured
type NopMirror struct{}

func (NopMirror) Write(Event) {}
func (NopMirror) Flush()      {}

var _ Mirror = (*InfluxMirror)(nil)
var _ Mirror = NopMirror{}

// RetentionExpiry computes the TTL anchor for a newly written event
func RetentionExpiry(now time.Time, retentionDays int) time.Time {
	if retentionDays <= 0 {
		retentionDays = 30
	}
	return now.AddDate(0, 0, retentionDays)
}
