package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/secureplay/training/internal/events"
	"github.com/secureplay/training/internal/monitoring"
	"github.com/secureplay/training/pkg/logger"
)

var (
	ErrRateLimited   = errors.New("event rate limit exceeded")
	ErrEmptyBatch    = errors.New("event batch is empty")
	ErrBatchTooLarge = errors.New("event batch too large")
)

// MaxBatchSize caps a single batch submission
const MaxBatchSize = 1000

// WriteChunkSize is how many events one durable write handles at a time
const WriteChunkSize = 100

// Enqueuer hands admitted events to the background queue. Implemented
// by the jobs client; tests substitute an in-memory recorder.
type Enqueuer interface {
	EnqueueEvent(ctx context.Context, event events.Event) error
	EnqueueEventBatch(ctx context.Context, batch []events.Event) error
}

// Ingestor is the admission half of the pipeline. It validates and
// rate-limits synchronously, assigns identifiers, and enqueues; the
// durable write happens later in a worker.
type Ingestor struct {
	limiter AdmissionLimiter
	queue   Enqueuer
}

func NewIngestor(limiter AdmissionLimiter, queue Enqueuer) *Ingestor {
	return &Ingestor{limiter: limiter, queue: queue}
}

// Submit admits one event. On success the returned event carries its
// assigned ID and is already on the queue.
func (s *Ingestor) Submit(ctx context.Context, event events.Event) (*events.Event, error) {
	if err := events.Validate(&event); err != nil {
		monitoring.EventsRejected.WithLabelValues("invalid").Inc()
		return nil, err
	}

	if !s.limiter.Allow(event.OrganizationID) {
		monitoring.EventsRejected.WithLabelValues("rate_limited").Inc()
		logger.Warn("Event rejected by rate limit", map[string]interface{}{
			"organization_id": event.OrganizationID,
			"event_type":      string(event.Type),
		})
		return nil, ErrRateLimited
	}

	event.ID = uuid.New().String()
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	if err := s.queue.EnqueueEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to enqueue event: %w", err)
	}

	monitoring.EventsAdmitted.Inc()
	return &event, nil
}

// SubmitBatch admits up to MaxBatchSize events as one unit. The batch
// counts once against the rate limit and is enqueued as a single task.
func (s *Ingestor) SubmitBatch(ctx context.Context, orgID string, batch []events.Event) ([]events.Event, error) {
	if len(batch) == 0 {
		return nil, ErrEmptyBatch
	}
	if len(batch) > MaxBatchSize {
		monitoring.EventsRejected.WithLabelValues("batch_too_large").Inc()
		return nil, fmt.Errorf("%w: %d events (limit %d)", ErrBatchTooLarge, len(batch), MaxBatchSize)
	}

	now := time.Now().UTC()
	for i := range batch {
		batch[i].OrganizationID = orgID
		if err := events.Validate(&batch[i]); err != nil {
			monitoring.EventsRejected.WithLabelValues("invalid").Inc()
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		batch[i].ID = uuid.New().String()
		if batch[i].Timestamp.IsZero() {
			batch[i].Timestamp = now
		}
	}

	if !s.limiter.Allow(orgID) {
		monitoring.EventsRejected.WithLabelValues("rate_limited").Inc()
		return nil, ErrRateLimited
	}

	if err := s.queue.EnqueueEventBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("failed to enqueue event batch: %w", err)
	}

	monitoring.EventsAdmitted.Add(float64(len(batch)))
	return batch, nil
}

// ProgressFunc receives the completed percentage of a long-running
// write. Calls are monotonic; the final call reports 100.
type ProgressFunc func(percent float64)

// Writer is the durable half of the pipeline, invoked from queue
// workers. It stamps retention expiry, writes to the store, and mirrors
// best-effort.
type Writer struct {
	store         events.Store
	mirror        events.Mirror
	retentionDays int
}

func NewWriter(store events.Store, mirror events.Mirror, retentionDays int) *Writer {
	if mirror == nil {
		mirror = events.NopMirror{}
	}
	return &Writer{store: store, mirror: mirror, retentionDays: retentionDays}
}

// WriteEvent durably persists one admitted event
func (w *Writer) WriteEvent(ctx context.Context, event events.Event) error {
	now := time.Now().UTC()
	event.CreatedAt = now
	event.ExpiresAt = events.RetentionExpiry(now, w.retentionDays)

	if _, err := w.store.Insert(ctx, event); err != nil {
		return err
	}

	w.mirror.Write(event)
	monitoring.EventsWritten.Inc()
	return nil
}

// WriteBatch persists a batch in chunks so one oversized batch cannot
// hold a write connection for its whole duration. Progress is reported
// after every chunk; pass nil when no one is watching.
func (w *Writer) WriteBatch(ctx context.Context, batch []events.Event, progress ProgressFunc) (int, error) {
	now := time.Now().UTC()
	expiry := events.RetentionExpiry(now, w.retentionDays)
	for i := range batch {
		batch[i].CreatedAt = now
		batch[i].ExpiresAt = expiry
	}

	written := 0
	for start := 0; start < len(batch); start += WriteChunkSize {
		end := start + WriteChunkSize
		if end > len(batch) {
			end = len(batch)
		}

		n, err := w.store.InsertMany(ctx, batch[start:end])
		written += n
		if err != nil {
			return written, fmt.Errorf("chunk starting at %d: %w", start, err)
		}

		for _, e := range batch[start:end] {
			w.mirror.Write(e)
		}

		if progress != nil {
			progress(float64(written) / float64(len(batch)) * 100)
		}
		logger.Debug("Event chunk written", map[string]interface{}{
			"written": written,
			"total":   len(batch),
		})
	}

	monitoring.EventsWritten.Add(float64(written))
	return written, nil
}
