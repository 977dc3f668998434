package jobs

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secureplay/training/internal/events"
)

func optionValue(t *testing.T, opts []asynq.Option, optType asynq.OptionType) interface{} {
	t.Helper()
	for _, opt := range opts {
		if opt.Type() == optType {
			return opt.Value()
		}
	}
	t.Fatalf("option %v not set", optType)
	return nil
}

func TestTaskRetryCeilings(t *testing.T) {
	families := []struct {
		name     string
		opts     []asynq.Option
		queue    string
		maxRetry int
	}{
		{"events", eventTaskOpts, QueueEvents, 3},
		{"batches", batchTaskOpts, QueueBatches, 3},
		{"scoring", scoringTaskOpts, QueueScoring, 3},
		{"alerts", alertTaskOpts, QueueAlerts, 5},
		{"reports", reportTaskOpts, QueueReports, 3},
	}

	for _, f := range families {
		t.Run(f.name, func(t *testing.T) {
			assert.Equal(t, f.queue, optionValue(t, f.opts, asynq.QueueOpt))
			assert.Equal(t, f.maxRetry, optionValue(t, f.opts, asynq.MaxRetryOpt))
		})
	}
}

func TestBackoffDoublesPerRetry(t *testing.T) {
	delay := backoffFor(QueueEvents)

	assert.Equal(t, time.Second, delay(0, nil, nil))
	assert.Equal(t, 2*time.Second, delay(1, nil, nil))
	assert.Equal(t, 4*time.Second, delay(2, nil, nil))
	assert.Equal(t, 32*time.Second, delay(5, nil, nil))
}

func TestBackoffPerQueueBase(t *testing.T) {
	assert.Equal(t, 5*time.Second, backoffFor(QueueScoring)(0, nil, nil))
	assert.Equal(t, 20*time.Second, backoffFor(QueueScoring)(2, nil, nil))
	assert.Equal(t, 2*time.Second, backoffFor(QueueAlerts)(0, nil, nil))
	assert.Equal(t, 10*time.Second, backoffFor(QueueReports)(0, nil, nil))
}

func TestBackoffUnknownQueueDefaults(t *testing.T) {
	assert.Equal(t, time.Second, backoffFor("mystery")(0, nil, nil))
}

func TestIngestEventTaskRoundTrip(t *testing.T) {
	event := events.Event{
		ID:             "evt-1",
		OrganizationID: "org-1",
		UserID:         "user-1",
		SessionID:      "session-1",
		Type:           events.EventRoomCompleted,
	}

	task, err := NewIngestEventTask(event)
	require.NoError(t, err)
	assert.Equal(t, TypeIngestEvent, task.Type())

	var payload IngestEventPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, event.ID, payload.Event.ID)
	assert.Equal(t, event.Type, payload.Event.Type)
}

func TestCheckAllAlertsTaskHasEmptyPayload(t *testing.T) {
	task := NewCheckAllAlertsTask()
	assert.Equal(t, TypeCheckAlerts, task.Type())
	assert.Empty(t, task.Payload())
}
