package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"lms/cache"
	"lms/logger"
	"lms/models"
	"lms/repos"

	"github.com/jinzhu/now"
)

type CourseCompletionReport struct {
	CourseID        uint    `json:"course_id"`
	Total           int64   `json:"total_enrollments"`
	Active          int64   `json:"active"`
	Completed       int64   `json:"completed"`
	Dropped         int64   `json:"dropped"`
	Suspended       int64   `json:"suspended"`
	CompletionRate  float64 `json:"completion_rate"`
	AverageProgress float64 `json:"average_progress"`
}

type DashboardReport struct {
	TotalCourses         int64     `json:"total_courses"`
	PublishedCourses     int64     `json:"published_courses"`
	TotalLearners        int64     `json:"total_learners"`
	TotalInstructors     int64     `json:"total_instructors"`
	TotalEnrollments     int64     `json:"total_enrollments"`
	ActiveEnrollments    int64     `json:"active_enrollments"`
	CompletedEnrollments int64     `json:"completed_enrollments"`
	EnrollmentsThisWeek  int64     `json:"enrollments_this_week"`
	EnrollmentsThisMonth int64     `json:"enrollments_this_month"`
	AttemptsInProgress   int64     `json:"attempts_in_progress"`
	CompletionRate       float64   `json:"completion_rate"`
	GeneratedAt          time.Time `json:"generated_at"`
}

type QuizStatsReport struct {
	QuizID           uint    `json:"quiz_id"`
	Attempts         int64   `json:"attempts"`
	Submitted        int64   `json:"submitted"`
	Graded           int64   `json:"graded"`
	Passed           int64   `json:"passed"`
	PassRate         float64 `json:"pass_rate"`
	AverageScore     float64 `json:"average_score"`
	AverageTimeSpent float64 `json:"average_time_spent_seconds"`
}

type LearnerProgressReport struct {
	LearnerID uint                     `json:"learner_id"`
	Active    int                      `json:"active"`
	Completed int                      `json:"completed"`
	Average   float64                  `json:"average_progress"`
	Courses   []repos.LearnerCourseRow `json:"courses"`
}

// ReportingService serves read-only projections through the tag-invalidated cache.
type ReportingService struct {
	reports repos.ReportRepo
	log     *logger.Logger
	cache   cache.Store
	ttl     time.Duration
	now     func() time.Time
}

func NewReportingService(reports repos.ReportRepo, baseLog *logger.Logger, store cache.Store, ttl time.Duration, clock func() time.Time) *ReportingService {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &ReportingService{
		reports: reports,
		log:     baseLog.With("service", "ReportingService"),
		cache:   store,
		ttl:     ttl,
		now:     clock,
	}
}

func percent(part, whole int64) float64 {
	if whole <= 0 {
		return 0
	}
	return round2(float64(part) / float64(whole) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func (s *ReportingService) CourseCompletion(ctx context.Context, courseID uint) (*CourseCompletionReport, error) {
	key := fmt.Sprintf("report:course:%d:completion", courseID)
	tags := []string{cache.CourseTag(courseID)}
	return cache.Remember(ctx, s.cache, key, s.ttl, tags, func() (*CourseCompletionReport, error) {
		counts, err := s.reports.EnrollmentStatusCounts(ctx, courseID)
		if err != nil {
			return nil, fail(s.log, "course completion report", err, "course_id", courseID)
		}
		r := &CourseCompletionReport{CourseID: courseID}
		applyStatusCounts(counts, &r.Total, &r.Active, &r.Completed, &r.Dropped, &r.Suspended)
		r.CompletionRate = percent(r.Completed, r.Total-r.Dropped)
		avg, err := s.reports.AverageProgress(ctx, courseID)
		if err != nil {
			return nil, fail(s.log, "course completion report", err, "course_id", courseID)
		}
		r.AverageProgress = round2(avg)
		return r, nil
	})
}

func applyStatusCounts(counts []repos.StatusCount, total, active, completed, dropped, suspended *int64) {
	for _, c := range counts {
		*total += c.Count
		switch c.Status {
		case models.EnrollmentActive:
			*active += c.Count
		case models.EnrollmentCompleted:
			*completed += c.Count
		case models.EnrollmentDropped:
			*dropped += c.Count
		case models.EnrollmentSuspended:
			*suspended += c.Count
		}
	}
}

// Dashboard aggregates platform totals. Weeks start on Sunday in the clock's location.
func (s *ReportingService) Dashboard(ctx context.Context) (*DashboardReport, error) {
	return cache.Remember(ctx, s.cache, "report:dashboard", s.ttl, []string{cache.DashboardTag}, func() (*DashboardReport, error) {
		r, err := s.dashboard(ctx)
		if err != nil {
			return nil, fail(s.log, "dashboard report", err)
		}
		return r, nil
	})
}

func (s *ReportingService) dashboard(ctx context.Context) (*DashboardReport, error) {
	var err error
	r := &DashboardReport{GeneratedAt: s.now()}

	if r.TotalCourses, err = s.reports.CountCourses(ctx, ""); err != nil {
		return nil, err
	}
	if r.PublishedCourses, err = s.reports.CountCourses(ctx, models.CourseStatusPublished); err != nil {
		return nil, err
	}
	if r.TotalLearners, err = s.reports.CountUsersByRole(ctx, models.RoleLearner); err != nil {
		return nil, err
	}
	if r.TotalInstructors, err = s.reports.CountUsersByRole(ctx, models.RoleInstructor); err != nil {
		return nil, err
	}

	counts, err := s.reports.EnrollmentStatusCounts(ctx, 0)
	if err != nil {
		return nil, err
	}
	var dropped, suspended int64
	applyStatusCounts(counts, &r.TotalEnrollments, &r.ActiveEnrollments, &r.CompletedEnrollments, &dropped, &suspended)
	r.CompletionRate = percent(r.CompletedEnrollments, r.TotalEnrollments-dropped)

	t := now.With(r.GeneratedAt)
	if r.EnrollmentsThisWeek, err = s.reports.CountEnrollmentsSince(ctx, t.BeginningOfWeek()); err != nil {
		return nil, err
	}
	if r.EnrollmentsThisMonth, err = s.reports.CountEnrollmentsSince(ctx, t.BeginningOfMonth()); err != nil {
		return nil, err
	}
	if r.AttemptsInProgress, err = s.reports.CountAttemptsByStatus(ctx, models.AttemptInProgress); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *ReportingService) QuizStats(ctx context.Context, quizID uint) (*QuizStatsReport, error) {
	key := fmt.Sprintf("report:quiz:%d", quizID)
	return cache.Remember(ctx, s.cache, key, s.ttl, []string{cache.QuizTag(quizID)}, func() (*QuizStatsReport, error) {
		agg, err := s.reports.QuizAggregate(ctx, quizID)
		if err != nil {
			return nil, fail(s.log, "quiz report", err, "quiz_id", quizID)
		}
		return &QuizStatsReport{
			QuizID:           quizID,
			Attempts:         agg.Attempts,
			Submitted:        agg.Submitted,
			Graded:           agg.Graded,
			Passed:           agg.Passed,
			PassRate:         percent(agg.Passed, agg.Graded),
			AverageScore:     round2(agg.AverageScore),
			AverageTimeSpent: round2(agg.AverageTimeSpent),
		}, nil
	})
}

func (s *ReportingService) LearnerProgress(ctx context.Context, learnerID uint) (*LearnerProgressReport, error) {
	key := fmt.Sprintf("report:learner:%d", learnerID)
	return cache.Remember(ctx, s.cache, key, s.ttl, []string{cache.LearnerTag(learnerID)}, func() (*LearnerProgressReport, error) {
		rows, err := s.reports.LearnerCourses(ctx, learnerID)
		if err != nil {
			return nil, fail(s.log, "learner report", err, "learner_id", learnerID)
		}
		r := &LearnerProgressReport{LearnerID: learnerID, Courses: rows}
		if r.Courses == nil {
			r.Courses = []repos.LearnerCourseRow{}
		}
		var sum float64
		for _, row := range rows {
			switch row.Status {
			case models.EnrollmentActive:
				r.Active++
			case models.EnrollmentCompleted:
				r.Completed++
			}
			sum += row.Progress
		}
		if len(rows) > 0 {
			r.Average = round2(sum / float64(len(rows)))
		}
		return r, nil
	})
}
