package jobs

import (
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/secureplay/training/pkg/logger"
)

// Scheduler registers the recurring calculation and alert tasks.
// Registration happens fresh on every process start, so restarting
// with changed schedules never leaves stale entries behind.
type Scheduler struct {
	scheduler *asynq.Scheduler
}

// NewScheduler wires the cron entries. dailyCron drives the full
// recalculation sweep, alertCron the alert checks.
func NewScheduler(redisOpt asynq.RedisClientOpt, dailyCron, alertCron string) (*Scheduler, error) {
	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
		PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
			if err != nil {
				logger.Error("Scheduled task enqueue failed", err, nil)
			}
		},
	})

	if _, err := scheduler.Register(dailyCron, NewDailyCalculationTask()); err != nil {
		return nil, fmt.Errorf("failed to register daily calculation: %w", err)
	}
	if _, err := scheduler.Register(alertCron, NewCheckAllAlertsTask()); err != nil {
		return nil, fmt.Errorf("failed to register alert check: %w", err)
	}

	logger.Info("Recurring tasks registered", map[string]interface{}{
		"daily_cron": dailyCron,
		"alert_cron": alertCron,
	})
	return &Scheduler{scheduler: scheduler}, nil
}

func (s *Scheduler) Start() error {
	return s.scheduler.Start()
}

func (s *Scheduler) Shutdown() {
	s.scheduler.Shutdown()
}
