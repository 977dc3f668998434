package alerts

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/secureplay/training/internal/models"
	"github.com/secureplay/training/internal/monitoring"
	"github.com/secureplay/training/internal/repository"
	"github.com/secureplay/training/pkg/logger"
)

// Alert thresholds
var deadlineWarningDays = []int{7, 3, 1}

const (
	lowEngagementPercent  = 30.0
	veryLowEngagement     = 15.0
	scoreDropThreshold    = 10.0
	severeScoreDrop       = 20.0
	dedupWindow           = 24 * time.Hour
	maxUsersInMetadata    = 10
	maxCriticalInMetadata = 5
)

// completionMilestones in ascending order; only the highest reached
// and not-yet-alerted milestone fires
var completionMilestones = []int{25, 50, 75, 90, 100}

// Candidate is one alert produced by a check, before deduplication
type Candidate struct {
	Type     string
	Severity models.AlertSeverity
	Title    string
	Message  string
	Metadata map[string]interface{}
}

// Engine runs the periodic alert checks for an organization and
// persists deduplicated alerts.
type Engine struct {
	users      *repository.UserRepository
	orgs       *repository.OrgRepository
	risks      *repository.RiskRepository
	resilience *repository.ResilienceRepository
	alerts     *repository.AlertRepository
	now        func() time.Time
}

func NewEngine(
	users *repository.UserRepository,
	orgs *repository.OrgRepository,
	risks *repository.RiskRepository,
	resilience *repository.ResilienceRepository,
	alerts *repository.AlertRepository,
) *Engine {
	return &Engine{
		users:      users,
		orgs:       orgs,
		risks:      risks,
		resilience: resilience,
		alerts:     alerts,
		now:        time.Now,
	}
}

// CheckAll runs every alert check concurrently and persists the
// results through the dedup window. A failing check logs and is
// skipped; the other checks still run.
func (e *Engine) CheckAll(orgID string) ([]Candidate, error) {
	checks := []struct {
		name string
		run  func(string) ([]Candidate, error)
	}{
		{"deadline_approaching", e.CheckDeadlineApproaching},
		{"low_engagement", e.CheckLowEngagement},
		{"high_risk_users", e.CheckHighRiskUsers},
		{"score_drop", e.CheckScoreDrop},
		{"completion_milestones", e.CheckCompletionMilestones},
	}

	results := make([][]Candidate, len(checks))
	var wg sync.WaitGroup
	for i, check := range checks {
		wg.Add(1)
		go func(i int, name string, run func(string) ([]Candidate, error)) {
			defer wg.Done()
			found, err := run(orgID)
			if err != nil {
				logger.Error("Alert check failed", err, map[string]interface{}{
					"check":           name,
					"organization_id": orgID,
				})
				return
			}
			results[i] = found
		}(i, check.name, check.run)
	}
	wg.Wait()

	var candidates []Candidate
	for _, found := range results {
		candidates = append(candidates, found...)
	}

	// Most severe first, so the order alerts land in is stable no
	// matter how the concurrent checks interleave
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Severity.Rank() > candidates[j].Severity.Rank()
	})

	for _, c := range candidates {
		if err := e.persistIfNew(orgID, c); err != nil {
			logger.Error("Failed to persist alert", err, map[string]interface{}{
				"organization_id": orgID,
				"title":           c.Title,
			})
		}
	}

	return candidates, nil
}

// CheckDeadlineApproaching flags users who have not finished required
// training inside the warning windows before their deadline.
func (e *Engine) CheckDeadlineApproaching(orgID string) ([]Candidate, error) {
	compliance, err := e.orgs.ComplianceSettings(orgID)
	if err != nil {
		return nil, err
	}
	if compliance == nil {
		return nil, nil
	}

	required := compliance.RequiredCategories()
	if len(required) == 0 {
		return nil, nil
	}

	users, err := e.users.FindActiveWithProgress(orgID)
	if err != nil {
		return nil, err
	}

	now := e.now()
	var candidates []Candidate

	for _, warningDays := range deadlineWarningDays {
		var approaching []string

		for _, user := range users {
			daysSinceJoin := int(now.Sub(user.CreatedAt).Hours() / 24)
			daysRemaining := compliance.TrainingDeadlineDays - daysSinceJoin
			if daysRemaining <= 0 || daysRemaining > warningDays {
				continue
			}

			completedCategories := make(map[models.RoomCategory]bool)
			for _, p := range user.Progress {
				if p.Room != nil {
					completedCategories[p.Room.Category] = true
				}
			}
			complete := true
			for _, cat := range required {
				if !completedCategories[cat] {
					complete = false
					break
				}
			}
			if !complete {
				approaching = append(approaching, user.FullName())
			}
		}

		if len(approaching) == 0 {
			continue
		}

		severity := models.SeverityHigh
		if warningDays <= 1 {
			severity = models.SeverityCritical
		}

		sample := approaching
		if len(sample) > maxUsersInMetadata {
			sample = sample[:maxUsersInMetadata]
		}

		candidates = append(candidates, Candidate{
			Type:     models.AlertDeadlineApproaching,
			Severity: severity,
			Title:    fmt.Sprintf("%d users approaching deadline", len(approaching)),
			Message:  fmt.Sprintf("%d users have %d day(s) or less to complete required training.", len(approaching), warningDays),
			Metadata: map[string]interface{}{
				"daysRemaining": warningDays,
				"userCount":     len(approaching),
				"users":         sample,
			},
		})
	}

	return candidates, nil
}

// CheckLowEngagement fires when too few users have been active in the
// trailing 30 days.
func (e *Engine) CheckLowEngagement(orgID string) ([]Candidate, error) {
	now := e.now()

	totalUsers, err := e.users.CountActiveByOrg(orgID)
	if err != nil {
		return nil, err
	}
	if totalUsers == 0 {
		return nil, nil
	}

	activeMonth, err := e.users.CountActiveSince(orgID, now.AddDate(0, 0, -30))
	if err != nil {
		return nil, err
	}
	activeWeek, err := e.users.CountActiveSince(orgID, now.AddDate(0, 0, -7))
	if err != nil {
		return nil, err
	}

	engagementRate := float64(activeMonth) / float64(totalUsers) * 100
	weeklyEngagement := float64(activeWeek) / float64(totalUsers) * 100

	if engagementRate >= lowEngagementPercent {
		return nil, nil
	}

	severity := models.SeverityMedium
	if engagementRate < veryLowEngagement {
		severity = models.SeverityHigh
	}

	return []Candidate{{
		Type:     models.AlertLowEngagement,
		Severity: severity,
		Title:    "Low organization engagement",
		Message:  fmt.Sprintf("Only %.1f%% of users have been active in the last 30 days.", engagementRate),
		Metadata: map[string]interface{}{
			"totalUsers":       totalUsers,
			"activeUsers":      activeMonth,
			"engagementRate":   engagementRate,
			"weeklyEngagement": weeklyEngagement,
		},
	}}, nil
}

// CheckHighRiskUsers surfaces users currently at HIGH or CRITICAL risk
func (e *Engine) CheckHighRiskUsers(orgID string) ([]Candidate, error) {
	scores, err := e.risks.FindByOrgAndLevels(orgID, []models.RiskLevel{models.RiskHigh, models.RiskCritical})
	if err != nil {
		return nil, err
	}

	var critical []models.UserRiskScore
	highCount := 0
	for _, s := range scores {
		switch s.RiskLevel {
		case models.RiskCritical:
			critical = append(critical, s)
		case models.RiskHigh:
			highCount++
		}
	}

	var candidates []Candidate

	if len(critical) > 0 {
		sample := critical
		if len(sample) > maxCriticalInMetadata {
			sample = sample[:maxCriticalInMetadata]
		}
		userMeta := make([]map[string]interface{}, 0, len(sample))
		for _, s := range sample {
			userMeta = append(userMeta, map[string]interface{}{
				"userId":    s.UserID,
				"riskScore": s.RiskScore,
				"factors":   s.Factors(),
			})
		}

		candidates = append(candidates, Candidate{
			Type:     models.AlertHighRiskUser,
			Severity: models.SeverityCritical,
			Title:    fmt.Sprintf("%d users at critical risk", len(critical)),
			Message:  fmt.Sprintf("%d users have been identified as critical security risks and require immediate attention.", len(critical)),
			Metadata: map[string]interface{}{
				"criticalCount": len(critical),
				"users":         userMeta,
			},
		})
	}

	if highCount > 0 {
		candidates = append(candidates, Candidate{
			Type:     models.AlertHighRiskUser,
			Severity: models.SeverityHigh,
			Title:    fmt.Sprintf("%d users at high risk", highCount),
			Message:  fmt.Sprintf("%d users have been identified as high security risks.", highCount),
			Metadata: map[string]interface{}{
				"highCount":     highCount,
				"totalHighRisk": highCount + len(critical),
			},
		})
	}

	return candidates, nil
}

// CheckScoreDrop compares the two most recent resilience snapshots
func (e *Engine) CheckScoreDrop(orgID string) ([]Candidate, error) {
	recent, err := e.resilience.RecentOrgScores(orgID, 2)
	if err != nil {
		return nil, err
	}
	if len(recent) < 2 {
		return nil, nil
	}

	current, previous := recent[0], recent[1]
	drop := previous.OverallScore - current.OverallScore
	if drop < scoreDropThreshold {
		return nil, nil
	}

	severity := models.SeverityMedium
	if drop >= severeScoreDrop {
		severity = models.SeverityHigh
	}

	return []Candidate{{
		Type:     models.AlertScoreDrop,
		Severity: severity,
		Title:    "Resilience score decreased",
		Message:  fmt.Sprintf("Organization resilience score dropped by %.1f points (%.1f from %.1f).", drop, current.OverallScore, previous.OverallScore),
		Metadata: map[string]interface{}{
			"currentScore":  current.OverallScore,
			"previousScore": previous.OverallScore,
			"drop":          drop,
			"currentDate":   current.CalculatedAt,
			"previousDate":  previous.CalculatedAt,
		},
	}}, nil
}

// CheckCompletionMilestones fires at most one milestone alert per run,
// for the highest milestone the completion rate has reached that has
// not already been announced within the dedup window.
func (e *Engine) CheckCompletionMilestones(orgID string) ([]Candidate, error) {
	compliance, err := e.orgs.ComplianceSettings(orgID)
	if err != nil {
		return nil, err
	}
	if compliance == nil {
		return nil, nil
	}
	required := compliance.RequiredCategories()
	if len(required) == 0 {
		return nil, nil
	}

	users, err := e.users.FindActiveWithProgress(orgID)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, nil
	}

	compliant := 0
	for _, user := range users {
		completedCategories := make(map[models.RoomCategory]bool)
		for _, p := range user.Progress {
			if p.Room != nil {
				completedCategories[p.Room.Category] = true
			}
		}
		complete := true
		for _, cat := range required {
			if !completedCategories[cat] {
				complete = false
				break
			}
		}
		if complete {
			compliant++
		}
	}

	completionRate := float64(compliant) / float64(len(users)) * 100

	announced, err := e.announcedMilestones(orgID)
	if err != nil {
		return nil, err
	}

	for i := len(completionMilestones) - 1; i >= 0; i-- {
		milestone := completionMilestones[i]
		if completionRate < float64(milestone) {
			continue
		}
		if announced[milestone] {
			break
		}

		return []Candidate{{
			Type:     models.AlertCompletionMilestone,
			Severity: models.SeverityLow,
			Title:    fmt.Sprintf("%d%% completion milestone reached!", milestone),
			Message:  fmt.Sprintf("Congratulations! %d%% of your organization has completed required training.", milestone),
			Metadata: map[string]interface{}{
				"milestone":      milestone,
				"completionRate": completionRate,
				"compliantUsers": compliant,
				"totalUsers":     len(users),
			},
		}}, nil
	}

	return nil, nil
}

// announcedMilestones scans alerts written within the dedup window for
// milestone markers
func (e *Engine) announcedMilestones(orgID string) (map[int]bool, error) {
	since := e.now().Add(-dedupWindow)
	recent, err := e.alerts.FindSince(orgID, since)
	if err != nil {
		return nil, err
	}

	announced := make(map[int]bool)
	for _, alert := range recent {
		meta := alert.MetadataMap()
		if meta == nil {
			continue
		}
		if milestone, ok := meta["milestone"].(float64); ok {
			announced[int(milestone)] = true
		}
	}
	return announced, nil
}

// persistIfNew creates the alert unless an unacknowledged one with the
// same title exists within the dedup window, in which case the
// existing alert's metadata is refreshed instead.
func (e *Engine) persistIfNew(orgID string, c Candidate) error {
	since := e.now().Add(-dedupWindow)

	existing, err := e.alerts.FindOpenByTitle(orgID, c.Title, since)
	if err != nil {
		return err
	}

	meta := make(map[string]interface{}, len(c.Metadata)+1)
	for k, v := range c.Metadata {
		meta[k] = v
	}
	meta["type"] = c.Type

	if existing != nil {
		if err := existing.SetMetadata(meta); err != nil {
			return err
		}
		monitoring.AlertsDeduplicated.WithLabelValues(c.Type).Inc()
		return e.alerts.RefreshMetadata(existing.ID, existing.Metadata)
	}

	alert := &models.Alert{
		OrganizationID: orgID,
		Title:          c.Title,
		Message:        c.Message,
		Severity:       c.Severity,
	}
	if err := alert.SetMetadata(meta); err != nil {
		return err
	}
	if err := e.alerts.Create(alert); err != nil {
		return err
	}

	monitoring.AlertsFired.WithLabelValues(c.Type, string(c.Severity)).Inc()
	logger.Info("Alert created", map[string]interface{}{
		"organization_id": orgID,
		"alert_type":      c.Type,
		"severity":        string(c.Severity),
		"title":           c.Title,
	})
	return nil
}
