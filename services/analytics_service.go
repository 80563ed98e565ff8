package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sahilchouksey/study-scheduler/model"
	"github.com/sahilchouksey/study-scheduler/utils/cache"
	"gorm.io/gorm"
)

const summaryCacheTTL = 60 * time.Second

// AnalyticsService computes weekly and periodic summaries from a user's
// session history. All queries are read-only.
type AnalyticsService struct {
	db    *gorm.DB
	cache *cache.RedisCache // optional; nil disables summary caching
}

// NewAnalyticsService creates a new analytics service
func NewAnalyticsService(db *gorm.DB, redisCache *cache.RedisCache) *AnalyticsService {
	return &AnalyticsService{
		db:    db,
		cache: redisCache,
	}
}

func (s *AnalyticsService) sessionsInWindow(ctx context.Context, userID uint, start, end time.Time) ([]model.StudySession, error) {
	var sessions []model.StudySession
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND scheduled_date >= ? AND scheduled_date < ?", userID, start, end).
		Order("scheduled_date ASC, start_time ASC").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}
	return sessions, nil
}

// WeeklySummary aggregates the user's sessions over the Monday-start week
// weekOffset weeks from now. An empty week yields a zeroed summary.
func (s *AnalyticsService) WeeklySummary(ctx context.Context, userID uint, weekOffset int) (*model.WeeklyScheduleSummary, error) {
	now := time.Now()
	weekStart := WeekStart(now, weekOffset)
	weekEnd := weekStart.AddDate(0, 0, 7)

	cacheKey := fmt.Sprintf("scheduler:summary:%d:%s", userID, weekStart.Format("2006-01-02"))
	if s.cache != nil {
		var cached model.WeeklyScheduleSummary
		if err := s.cache.GetJSON(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	sessions, err := s.sessionsInWindow(ctx, userID, weekStart, weekEnd)
	if err != nil {
		return nil, err
	}

	summary := &model.WeeklyScheduleSummary{
		WeekStart: weekStart,
		WeekEnd:   weekEnd.AddDate(0, 0, -1),
		Sessions:  []model.StudySessionResponse{},
	}

	for i := range sessions {
		session := &sessions[i]
		status := session.EffectiveStatus(now)

		summary.TotalSessions++
		summary.TotalPlannedHours += float64(session.DurationMinutes) / 60.0

		switch status {
		case model.ScheduleStatusCompleted:
			summary.CompletedSessions++
			summary.TotalActualHours += float64(session.DurationMinutes) * float64(session.CompletionPercentage) / 100.0 / 60.0
		case model.ScheduleStatusMissed:
			summary.MissedSessions++
		}

		summary.Sessions = append(summary.Sessions, session.ToResponse(now))
	}

	if summary.TotalSessions > 0 {
		summary.CompletionRate = float64(summary.CompletedSessions) / float64(summary.TotalSessions)
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, cacheKey, summary, summaryCacheTTL); err != nil {
			log.Printf("Failed to cache weekly summary: %v", err)
		}
	}

	return summary, nil
}

// Analytics aggregates the user's sessions over the current week or month.
// Period must be "week" or "month"; empty histories produce zeroed results.
func (s *AnalyticsService) Analytics(ctx context.Context, userID uint, period string) (*model.StudyAnalytics, error) {
	now := time.Now()

	var start, end time.Time
	switch period {
	case "week":
		start = WeekStart(now, 0)
		end = start.AddDate(0, 0, 7)
	case "month":
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 1, 0)
	default:
		return nil, fmt.Errorf("%w: period must be \"week\" or \"month\", got %q", ErrInvalidArgument, period)
	}

	sessions, err := s.sessionsInWindow(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}

	analytics := &model.StudyAnalytics{
		Period:      period,
		PeriodStart: start,
		PeriodEnd:   end.AddDate(0, 0, -1),
	}

	var completionSum int
	var completedCourseIDs []uint

	for i := range sessions {
		session := &sessions[i]
		status := session.EffectiveStatus(now)

		analytics.TotalSessions++
		switch status {
		case model.ScheduleStatusCompleted:
			analytics.CompletedSessions++
			analytics.TotalStudyHours += float64(session.DurationMinutes) * float64(session.CompletionPercentage) / 100.0 / 60.0
			completionSum += session.CompletionPercentage
			completedCourseIDs = append(completedCourseIDs, session.CourseID)
		case model.ScheduleStatusMissed:
			analytics.MissedSessions++
		case model.ScheduleStatusCancelled:
			analytics.CancelledSessions++
		default:
			analytics.ScheduledSessions++
		}
	}

	// Averaged only over completed sessions; never divides by zero.
	if analytics.CompletedSessions > 0 {
		analytics.AvgCompletionPercentage = float64(completionSum) / float64(analytics.CompletedSessions)
	}

	skill, err := s.mostStudiedSkill(ctx, completedCourseIDs)
	if err != nil {
		return nil, err
	}
	analytics.MostStudiedSkill = skill

	progress, err := s.comboProgressForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	analytics.ComboProgress = progress

	return analytics, nil
}

// mostStudiedSkill picks the mode of the skill-focus tag across the courses
// of the completed sessions, in session order. Ties resolve to the tag seen
// first, which keeps the result deterministic.
func (s *AnalyticsService) mostStudiedSkill(ctx context.Context, courseIDs []uint) (string, error) {
	if len(courseIDs) == 0 {
		return "", nil
	}

	uniq := map[uint]struct{}{}
	var distinct []uint
	for _, id := range courseIDs {
		if _, seen := uniq[id]; !seen {
			uniq[id] = struct{}{}
			distinct = append(distinct, id)
		}
	}

	var courses []model.Course
	if err := s.db.WithContext(ctx).Where("id IN ?", distinct).Find(&courses).Error; err != nil {
		return "", fmt.Errorf("failed to load courses: %w", err)
	}
	skillByCourse := make(map[uint]string, len(courses))
	for _, c := range courses {
		skillByCourse[c.ID] = c.SkillFocus
	}

	counts := map[string]int{}
	var order []string
	for _, id := range courseIDs {
		skill := skillByCourse[id]
		if skill == "" {
			continue
		}
		if _, seen := counts[skill]; !seen {
			order = append(order, skill)
		}
		counts[skill]++
	}

	best := ""
	bestCount := 0
	for _, skill := range order {
		if counts[skill] > bestCount {
			best = skill
			bestCount = counts[skill]
		}
	}
	return best, nil
}

// ComboProgress reports how many of a combo's courses the user has completed
// at least one session for.
func (s *AnalyticsService) ComboProgress(ctx context.Context, userID, comboID uint) (*model.ComboProgress, error) {
	var combo model.Combo
	if err := s.db.WithContext(ctx).First(&combo, comboID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load combo: %w", err)
	}

	var totalCourses int64
	if err := s.db.WithContext(ctx).Model(&model.Course{}).
		Where("combo_id = ?", comboID).
		Count(&totalCourses).Error; err != nil {
		return nil, fmt.Errorf("failed to count combo courses: %w", err)
	}

	var completedCourses int64
	if err := s.db.WithContext(ctx).Model(&model.StudySession{}).
		Where("user_id = ? AND combo_id = ? AND status = ?", userID, comboID, model.ScheduleStatusCompleted).
		Distinct("course_id").
		Count(&completedCourses).Error; err != nil {
		return nil, fmt.Errorf("failed to count completed courses: %w", err)
	}

	progress := &model.ComboProgress{
		ComboID:          comboID,
		ComboName:        combo.Name,
		CompletedCourses: int(completedCourses),
		TotalCourses:     int(totalCourses),
	}
	if totalCourses > 0 {
		progress.ProgressPercentage = float64(completedCourses) / float64(totalCourses) * 100.0
	}
	return progress, nil
}

// comboProgressForUser computes progress for every combo the user has
// sessions in
func (s *AnalyticsService) comboProgressForUser(ctx context.Context, userID uint) ([]model.ComboProgress, error) {
	var comboIDs []uint
	if err := s.db.WithContext(ctx).Model(&model.StudySession{}).
		Where("user_id = ? AND combo_id IS NOT NULL", userID).
		Distinct("combo_id").
		Order("combo_id ASC").
		Pluck("combo_id", &comboIDs).Error; err != nil {
		return nil, fmt.Errorf("failed to list combos: %w", err)
	}

	var result []model.ComboProgress
	for _, comboID := range comboIDs {
		progress, err := s.ComboProgress(ctx, userID, comboID)
		if err != nil {
			if err == ErrNotFound {
				continue // combo deleted since the sessions were created
			}
			return nil, err
		}
		result = append(result, *progress)
	}
	return result, nil
}
