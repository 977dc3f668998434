package jobs

import (
	"context"
	"math"
	"time"

	"github.com/hibiken/asynq"

	"github.com/secureplay/training/internal/monitoring"
	"github.com/secureplay/training/pkg/logger"
)

// Per-queue worker pool sizes. Each queue gets its own asynq server so
// these are hard ceilings, not weighted shares.
const (
	eventWorkers   = 10
	batchWorkers   = 2
	scoringWorkers = 4
	alertWorkers   = 4
	reportWorkers  = 3
)

// Base retry delays per queue. Retry n waits base * 2^n.
var retryBase = map[string]time.Duration{
	QueueEvents:  time.Second,
	QueueBatches: time.Second,
	QueueScoring: 5 * time.Second,
	QueueAlerts:  2 * time.Second,
	QueueReports: 10 * time.Second,
}

// Handlers bundles everything the worker servers dispatch to
type Handlers struct {
	Ingest  *IngestHandler
	Scoring *ScoringHandler
	Alerts  *AlertHandler
	Reports *ReportHandler
}

// WorkerPool runs one asynq server per queue family
type WorkerPool struct {
	servers []*asynq.Server
}

// backoffFor returns the exponential retry delay for a queue
func backoffFor(queue string) asynq.RetryDelayFunc {
	base, ok := retryBase[queue]
	if !ok {
		base = time.Second
	}
	return func(n int, err error, t *asynq.Task) time.Duration {
		return base * time.Duration(math.Pow(2, float64(n)))
	}
}

// metricsMiddleware records task outcomes and durations
func metricsMiddleware(next asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
		start := time.Now()
		err := next.ProcessTask(ctx, t)
		monitoring.TaskDuration.WithLabelValues(t.Type()).Observe(time.Since(start).Seconds())
		if err != nil {
			monitoring.TasksFailed.WithLabelValues(t.Type()).Inc()
			return err
		}
		monitoring.TasksCompleted.WithLabelValues(t.Type()).Inc()
		return nil
	})
}

func newServer(redisOpt asynq.RedisClientOpt, queue string, concurrency int) *asynq.Server {
	return asynq.NewServer(redisOpt, asynq.Config{
		Concurrency:     concurrency,
		Queues:          map[string]int{queue: 1},
		RetryDelayFunc:  backoffFor(queue),
		ShutdownTimeout: 30 * time.Second,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.Error("Task failed", err, map[string]interface{}{
				"task_type": task.Type(),
				"queue":     queue,
			})
		}),
	})
}

// NewWorkerPool builds the per-queue servers and wires the handlers
func NewWorkerPool(redisOpt asynq.RedisClientOpt, h Handlers) *WorkerPool {
	mux := asynq.NewServeMux()
	mux.Use(metricsMiddleware)
	mux.HandleFunc(TypeIngestEvent, h.Ingest.HandleIngestEvent)
	mux.HandleFunc(TypeIngestBatch, h.Ingest.HandleIngestBatch)
	mux.HandleFunc(TypeCalcOrgScore, h.Scoring.HandleOrgScore)
	mux.HandleFunc(TypeCalcGroupScore, h.Scoring.HandleGroupScore)
	mux.HandleFunc(TypeCalcUserRisk, h.Scoring.HandleUserRisk)
	mux.HandleFunc(TypeCalcAllUserRisks, h.Scoring.HandleAllUserRisks)
	mux.HandleFunc(TypeDailyCalculation, h.Scoring.HandleDailyCalculation)
	mux.HandleFunc(TypeCheckAlerts, h.Alerts.HandleCheckAlerts)
	mux.HandleFunc(TypeGenerateReport, h.Reports.HandleGenerateReport)

	pool := &WorkerPool{}
	for _, q := range []struct {
		name    string
		workers int
	}{
		{QueueEvents, eventWorkers},
		{QueueBatches, batchWorkers},
		{QueueScoring, scoringWorkers},
		{QueueAlerts, alertWorkers},
		{QueueReports, reportWorkers},
	} {
		srv := newServer(redisOpt, q.name, q.workers)
		pool.servers = append(pool.servers, srv)
		go func(srv *asynq.Server, queue string) {
			if err := srv.Run(mux); err != nil {
				logger.Fatal("Worker server stopped", err, map[string]interface{}{
					"queue": queue,
				})
			}
		}(srv, q.name)
	}

	logger.Info("Worker pool started", map[string]interface{}{
		"queues": len(pool.servers),
	})
	return pool
}

// Shutdown drains all servers. In-flight tasks get the shutdown
// timeout to finish; unfinished ones are re-queued for the next start.
func (p *WorkerPool) Shutdown() {
	for _, srv := range p.servers {
		srv.Stop()
	}
	for _, srv := range p.servers {
		srv.Shutdown()
	}
	logger.Info("Worker pool stopped", nil)
}
