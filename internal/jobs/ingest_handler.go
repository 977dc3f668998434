package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/secureplay/training/internal/ingestion"
	"github.com/secureplay/training/pkg/logger"
)

// IngestHandler performs the durable write half of event ingestion
type IngestHandler struct {
	writer *ingestion.Writer
}

func NewIngestHandler(writer *ingestion.Writer) *IngestHandler {
	return &IngestHandler{writer: writer}
}

func (h *IngestHandler) HandleIngestEvent(ctx context.Context, t *asynq.Task) error {
	var p IngestEventPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("invalid event payload: %w: %w", err, asynq.SkipRetry)
	}

	if err := h.writer.WriteEvent(ctx, p.Event); err != nil {
		return fmt.Errorf("failed to write event %s: %w", p.Event.ID, err)
	}
	return nil
}

func (h *IngestHandler) HandleIngestBatch(ctx context.Context, t *asynq.Task) error {
	var p IngestBatchPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("invalid batch payload: %w: %w", err, asynq.SkipRetry)
	}

	written, err := h.writer.WriteBatch(ctx, p.Events, taskProgress(t))
	if err != nil {
		return fmt.Errorf("batch write stopped after %d of %d events: %w", written, len(p.Events), err)
	}

	logger.Info("Event batch written", map[string]interface{}{
		"events": written,
	})
	return nil
}

// taskProgress publishes completion percentages through the task's
// result writer so inspectors see how far a long batch has come.
func taskProgress(t *asynq.Task) func(percent float64) {
	w := t.ResultWriter()
	if w == nil {
		return nil
	}
	return func(percent float64) {
		if _, err := w.Write([]byte(fmt.Sprintf(`{"percent":%.1f}`, percent))); err != nil {
			logger.Debug("Failed to record task progress", map[string]interface{}{
				"task_id": w.TaskID(),
			})
		}
	}
}
