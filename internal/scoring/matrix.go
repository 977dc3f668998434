package scoring

import (
	"sort"

	"github.com/secureplay/training/internal/models"
	"github.com/secureplay/training/internal/repository"
)

// MatrixEntry is one user's row in the risk matrix
type MatrixEntry struct {
	ID                 string              `json:"id"`
	Name               string              `json:"name"`
	Email              string              `json:"email"`
	RiskScore          float64             `json:"risk_score"`
	TrainingCompletion float64             `json:"training_completion"`
	PerformanceScore   float64             `json:"performance_score"`
	DaysSinceActivity  int                 `json:"days_since_activity"`
	RiskFactors        []models.RiskFactor `json:"risk_factors"`
}

// RiskMatrix groups active users by risk level, each level sorted by
// score descending. Users never scored yet appear under LOW.
type RiskMatrix map[models.RiskLevel][]MatrixEntry

// TopicCell is one room's aggregate for one group in the heatmap
type TopicCell struct {
	RoomID         string              `json:"room_id"`
	RoomName       string              `json:"room_name"`
	RoomCategory   models.RoomCategory `json:"room_category"`
	CompletionRate float64             `json:"completion_rate"`
	AverageScore   float64             `json:"average_score"`
	TotalAttempts  int                 `json:"total_attempts"`
}

// GroupRow is one group's row in the knowledge gap heatmap
type GroupRow struct {
	GroupID   string      `json:"group_id"`
	GroupName string      `json:"group_name"`
	Topics    []TopicCell `json:"topics"`
}

// KnowledgeGaps is the topic-by-group heatmap
type KnowledgeGaps struct {
	Rooms   []models.Room `json:"rooms"`
	Heatmap []GroupRow    `json:"heatmap"`
}

// AnalyticsService serves read-side risk visualizations
type AnalyticsService struct {
	users    *repository.UserRepository
	progress *repository.ProgressRepository
	orgs     *repository.OrgRepository
	risks    *repository.RiskRepository
}

func NewAnalyticsService(
	users *repository.UserRepository,
	progress *repository.ProgressRepository,
	orgs *repository.OrgRepository,
	risks *repository.RiskRepository,
) *AnalyticsService {
	return &AnalyticsService{users: users, progress: progress, orgs: orgs, risks: risks}
}

// RiskMatrix builds the per-level user grouping for an organization
func (s *AnalyticsService) RiskMatrix(orgID string) (RiskMatrix, error) {
	users, err := s.users.FindActiveByOrg(orgID)
	if err != nil {
		return nil, err
	}

	userIDs := make([]string, len(users))
	for i, u := range users {
		userIDs[i] = u.ID
	}

	scores, err := s.risks.FindByUsers(userIDs)
	if err != nil {
		return nil, err
	}
	scoreByUser := make(map[string]*models.UserRiskScore, len(scores))
	for i := range scores {
		scoreByUser[scores[i].UserID] = &scores[i]
	}

	matrix := make(RiskMatrix, len(models.RiskLevels))
	for _, level := range models.RiskLevels {
		matrix[level] = []MatrixEntry{}
	}

	for _, user := range users {
		entry := MatrixEntry{
			ID:    user.ID,
			Name:  user.FullName(),
			Email: user.Email,
		}
		level := models.RiskLow
		if score, ok := scoreByUser[user.ID]; ok {
			level = score.RiskLevel
			entry.RiskScore = score.RiskScore
			entry.TrainingCompletion = score.TrainingCompletion
			entry.PerformanceScore = score.PerformanceScore
			entry.DaysSinceActivity = score.DaysSinceActivity
			entry.RiskFactors = score.Factors()
		}
		matrix[level] = append(matrix[level], entry)
	}

	for level := range matrix {
		entries := matrix[level]
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].RiskScore > entries[j].RiskScore
		})
	}

	return matrix, nil
}

// KnowledgeGaps builds the topic-by-group completion heatmap. Groups
// without members are omitted.
func (s *AnalyticsService) KnowledgeGaps(orgID string) (*KnowledgeGaps, error) {
	groups, err := s.orgs.Groups(orgID)
	if err != nil {
		return nil, err
	}

	rooms, err := s.progress.ActiveRooms()
	if err != nil {
		return nil, err
	}

	heatmap := make([]GroupRow, 0, len(groups))
	for _, group := range groups {
		userIDs, err := s.orgs.GroupMemberIDs(group.ID)
		if err != nil {
			return nil, err
		}
		if len(userIDs) == 0 {
			continue
		}

		topics := make([]TopicCell, 0, len(rooms))
		for _, room := range rooms {
			stats, err := s.progress.StatsForRoom(userIDs, room.ID)
			if err != nil {
				return nil, err
			}

			cell := TopicCell{
				RoomID:        room.ID,
				RoomName:      room.Name,
				RoomCategory:  room.Category,
				TotalAttempts: int(stats.Total),
				AverageScore:  stats.AvgScore,
			}
			if stats.Total > 0 {
				cell.CompletionRate = float64(stats.Completed) / float64(stats.Total) * 100
			}
			topics = append(topics, cell)
		}

		heatmap = append(heatmap, GroupRow{
			GroupID:   group.ID,
			GroupName: group.Name,
			Topics:    topics,
		})
	}

	return &KnowledgeGaps{Rooms: rooms, Heatmap: heatmap}, nil
}
