package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/secureplay/training/internal/events"
)

// Task types
const (
	TypeIngestEvent      = "ingest:event"
	TypeIngestBatch      = "ingest:batch"
	TypeCalcOrgScore     = "scoring:org"
	TypeCalcGroupScore   = "scoring:group"
	TypeCalcUserRisk     = "scoring:user-risk"
	TypeCalcAllUserRisks = "scoring:all-user-risks"
	TypeDailyCalculation = "scoring:daily"
	TypeCheckAlerts      = "alerts:check"
	TypeGenerateReport   = "reports:generate"
)

// Queue names. Each queue is served by its own worker pool so
// per-family concurrency ceilings hold.
const (
	QueueEvents  = "events"
	QueueBatches = "batches"
	QueueScoring = "scoring"
	QueueAlerts  = "alerts"
	QueueReports = "reports"
)

// Retry ceilings. A task that still fails after these attempts goes to
// the archive instead of retrying indefinitely; alert sweeps get extra
// attempts because a missed sweep stays missed until the next cron run.
const (
	defaultMaxRetry = 3
	alertMaxRetry   = 5
)

// Per-family task options, applied by every constructor of that family
var (
	eventTaskOpts   = []asynq.Option{asynq.Queue(QueueEvents), asynq.MaxRetry(defaultMaxRetry)}
	batchTaskOpts   = []asynq.Option{asynq.Queue(QueueBatches), asynq.MaxRetry(defaultMaxRetry)}
	scoringTaskOpts = []asynq.Option{asynq.Queue(QueueScoring), asynq.MaxRetry(defaultMaxRetry)}
	alertTaskOpts   = []asynq.Option{asynq.Queue(QueueAlerts), asynq.MaxRetry(alertMaxRetry)}
	reportTaskOpts  = []asynq.Option{asynq.Queue(QueueReports), asynq.MaxRetry(defaultMaxRetry)}
)

// Task payloads

type IngestEventPayload struct {
	Event events.Event `json:"event"`
}

type IngestBatchPayload struct {
	Events []events.Event `json:"events"`
}

type OrgScorePayload struct {
	OrganizationID string    `json:"organization_id"`
	PeriodStart    time.Time `json:"period_start,omitempty"`
	PeriodEnd      time.Time `json:"period_end,omitempty"`
}

type GroupScorePayload struct {
	GroupID     string    `json:"group_id"`
	PeriodStart time.Time `json:"period_start,omitempty"`
	PeriodEnd   time.Time `json:"period_end,omitempty"`
}

type UserRiskPayload struct {
	UserID string `json:"user_id"`
}

type AllUserRisksPayload struct {
	OrganizationID string `json:"organization_id"`
}

type CheckAlertsPayload struct {
	OrganizationID string `json:"organization_id"`
}

type GenerateReportPayload struct {
	ReportID       string `json:"report_id"`
	OrganizationID string `json:"organization_id"`
	ReportType     string `json:"report_type"`
	Format         string `json:"format"`
	RequestedBy    string `json:"requested_by"`
}

// Task constructors

func NewIngestEventTask(event events.Event) (*asynq.Task, error) {
	payload, err := json.Marshal(IngestEventPayload{Event: event})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}
	return asynq.NewTask(TypeIngestEvent, payload, eventTaskOpts...), nil
}

func NewIngestBatchTask(batch []events.Event) (*asynq.Task, error) {
	payload, err := json.Marshal(IngestBatchPayload{Events: batch})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal batch payload: %w", err)
	}
	return asynq.NewTask(TypeIngestBatch, payload, batchTaskOpts...), nil
}

func NewOrgScoreTask(orgID string, start, end time.Time) (*asynq.Task, error) {
	payload, err := json.Marshal(OrgScorePayload{OrganizationID: orgID, PeriodStart: start, PeriodEnd: end})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeCalcOrgScore, payload, scoringTaskOpts...), nil
}

func NewGroupScoreTask(groupID string, start, end time.Time) (*asynq.Task, error) {
	payload, err := json.Marshal(GroupScorePayload{GroupID: groupID, PeriodStart: start, PeriodEnd: end})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeCalcGroupScore, payload, scoringTaskOpts...), nil
}

func NewUserRiskTask(userID string) (*asynq.Task, error) {
	payload, err := json.Marshal(UserRiskPayload{UserID: userID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeCalcUserRisk, payload, scoringTaskOpts...), nil
}

func NewAllUserRisksTask(orgID string) (*asynq.Task, error) {
	payload, err := json.Marshal(AllUserRisksPayload{OrganizationID: orgID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeCalcAllUserRisks, payload, scoringTaskOpts...), nil
}

func NewDailyCalculationTask() *asynq.Task {
	return asynq.NewTask(TypeDailyCalculation, nil, scoringTaskOpts...)
}

func NewCheckAlertsTask(orgID string) (*asynq.Task, error) {
	payload, err := json.Marshal(CheckAlertsPayload{OrganizationID: orgID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeCheckAlerts, payload, alertTaskOpts...), nil
}

// NewCheckAllAlertsTask is the hourly cron entry; the handler fans out
// one CheckAlerts task per organization.
func NewCheckAllAlertsTask() *asynq.Task {
	return asynq.NewTask(TypeCheckAlerts, nil, alertTaskOpts...)
}

func NewGenerateReportTask(p GenerateReportPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeGenerateReport, payload, reportTaskOpts...), nil
}
