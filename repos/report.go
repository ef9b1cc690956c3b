package repos

import (
	"context"
	"time"

	"lms/logger"
	"lms/models"

	"gorm.io/gorm"
)

type StatusCount struct {
	Status string
	Count  int64
}

type QuizAggregate struct {
	Attempts         int64
	Submitted        int64
	Graded           int64
	Passed           int64
	AverageScore     float64
	AverageTimeSpent float64
}

type LearnerCourseRow struct {
	EnrollmentID uint       `json:"enrollment_id"`
	CourseID     uint       `json:"course_id"`
	Title        string     `json:"title"`
	Status       string     `json:"status"`
	Progress     float64    `json:"progress"`
	CompletedAt  *time.Time `json:"completed_at"`
}

// ReportRepo holds read-only projections; nothing here writes.
type ReportRepo interface {
	EnrollmentStatusCounts(ctx context.Context, courseID uint) ([]StatusCount, error)
	AverageProgress(ctx context.Context, courseID uint) (float64, error)
	CountEnrollmentsSince(ctx context.Context, since time.Time) (int64, error)
	CountCourses(ctx context.Context, status string) (int64, error)
	CountUsersByRole(ctx context.Context, role string) (int64, error)
	CountAttemptsByStatus(ctx context.Context, status string) (int64, error)
	QuizAggregate(ctx context.Context, quizID uint) (QuizAggregate, error)
	LearnerCourses(ctx context.Context, learnerID uint) ([]LearnerCourseRow, error)
}

type reportRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReportRepo(db *gorm.DB, baseLog *logger.Logger) ReportRepo {
	return &reportRepo{db: db, log: baseLog.With("repo", "ReportRepo")}
}

func (r *reportRepo) EnrollmentStatusCounts(ctx context.Context, courseID uint) ([]StatusCount, error) {
	q := r.db.WithContext(ctx).Model(&models.Enrollment{}).Select("status, COUNT(*) AS count").Group("status")
	if courseID != 0 {
		q = q.Where("course_id = ?", courseID)
	}
	var rows []StatusCount
	err := q.Scan(&rows).Error
	return rows, err
}

func (r *reportRepo) AverageProgress(ctx context.Context, courseID uint) (float64, error) {
	var avg float64
	err := r.db.WithContext(ctx).Model(&models.Enrollment{}).
		Where("course_id = ? AND status <> ?", courseID, models.EnrollmentDropped).
		Select("COALESCE(AVG(progress), 0)").
		Scan(&avg).Error
	return avg, err
}

func (r *reportRepo) CountEnrollmentsSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Enrollment{}).Where("enrolled_at >= ?", since).Count(&count).Error
	return count, err
}

func (r *reportRepo) CountCourses(ctx context.Context, status string) (int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Course{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var count int64
	err := q.Count(&count).Error
	return count, err
}

func (r *reportRepo) CountUsersByRole(ctx context.Context, role string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("role = ?", role).Count(&count).Error
	return count, err
}

func (r *reportRepo) CountAttemptsByStatus(ctx context.Context, status string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Attempt{}).Where("status = ?", status).Count(&count).Error
	return count, err
}

func (r *reportRepo) QuizAggregate(ctx context.Context, quizID uint) (QuizAggregate, error) {
	var agg QuizAggregate
	base := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&models.Attempt{}).Where("quiz_id = ?", quizID)
	}
	if err := base().Count(&agg.Attempts).Error; err != nil {
		return agg, err
	}
	if err := base().Where("status IN ?", []string{models.AttemptSubmitted, models.AttemptGraded}).Count(&agg.Submitted).Error; err != nil {
		return agg, err
	}
	if err := base().Where("status = ?", models.AttemptGraded).Count(&agg.Graded).Error; err != nil {
		return agg, err
	}
	if err := base().Where("status = ? AND is_passed = ?", models.AttemptGraded, true).Count(&agg.Passed).Error; err != nil {
		return agg, err
	}
	if err := base().Where("status = ?", models.AttemptGraded).Select("COALESCE(AVG(score), 0)").Scan(&agg.AverageScore).Error; err != nil {
		return agg, err
	}
	if err := base().Where("time_spent_seconds IS NOT NULL").Select("COALESCE(AVG(time_spent_seconds), 0)").Scan(&agg.AverageTimeSpent).Error; err != nil {
		return agg, err
	}
	return agg, nil
}

func (r *reportRepo) LearnerCourses(ctx context.Context, learnerID uint) ([]LearnerCourseRow, error) {
	var rows []LearnerCourseRow
	err := r.db.WithContext(ctx).Table("enrollments").
		Select("enrollments.id AS enrollment_id, enrollments.course_id, courses.title, enrollments.status, enrollments.progress, enrollments.completed_at").
		Joins("JOIN courses ON courses.id = enrollments.course_id").
		Where("enrollments.learner_id = ? AND enrollments.deleted_at IS NULL", learnerID).
		Order("enrollments.enrolled_at desc").
		Scan(&rows).Error
	return rows, err
}
