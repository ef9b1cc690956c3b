package repos

import (
	"context"
	"time"

	"lms/logger"
	"lms/models"

	"gorm.io/gorm"
)

type AttemptFilter struct {
	QuizID    uint
	StudentID uint
	Status    string
}

type AttemptRepo interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Attempt, error)
	GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Attempt, error)
	// MaxAttemptNumber returns 0 when the student has no attempt on the quiz.
	MaxAttemptNumber(ctx context.Context, tx *gorm.DB, quizID, studentID uint) (int, error)
	Create(ctx context.Context, tx *gorm.DB, a *models.Attempt) error
	Save(ctx context.Context, tx *gorm.DB, a *models.Attempt) error
	List(ctx context.Context, tx *gorm.DB, filter AttemptFilter, page Page) ([]*models.Attempt, int64, error)
	ListExpired(ctx context.Context, tx *gorm.DB, cutoff time.Time, limit int) ([]*models.Attempt, error)
	CountInProgressByCourse(ctx context.Context, tx *gorm.DB, courseID uint) (int64, error)
	// BestGradedScores returns the student's highest graded score on each quiz of the course.
	BestGradedScores(ctx context.Context, tx *gorm.DB, courseID, studentID uint) ([]float64, error)

	GetAnswer(ctx context.Context, tx *gorm.DB, id uint) (*models.Answer, error)
	FindAnswer(ctx context.Context, tx *gorm.DB, attemptID, questionID uint) (*models.Answer, error)
	SaveAnswer(ctx context.Context, tx *gorm.DB, a *models.Answer) error
	ListAnswers(ctx context.Context, tx *gorm.DB, attemptID uint) ([]*models.Answer, error)
}

type attemptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAttemptRepo(db *gorm.DB, baseLog *logger.Logger) AttemptRepo {
	return &attemptRepo{db: db, log: baseLog.With("repo", "AttemptRepo")}
}

func (r *attemptRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Attempt, error) {
	var a models.Attempt
	if err := conn(ctx, r.db, tx).First(&a, id).Error; err != nil {
		return nil, notFound(err, "Attempt")
	}
	return &a, nil
}

func (r *attemptRepo) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Attempt, error) {
	var a models.Attempt
	if err := forUpdate(conn(ctx, r.db, tx)).First(&a, id).Error; err != nil {
		return nil, notFound(err, "Attempt")
	}
	return &a, nil
}

func (r *attemptRepo) MaxAttemptNumber(ctx context.Context, tx *gorm.DB, quizID, studentID uint) (int, error) {
	var max int
	err := conn(ctx, r.db, tx).Unscoped().Model(&models.Attempt{}).
		Where("quiz_id = ? AND student_id = ?", quizID, studentID).
		Select("COALESCE(MAX(attempt_number), 0)").
		Scan(&max).Error
	return max, err
}

func (r *attemptRepo) Create(ctx context.Context, tx *gorm.DB, a *models.Attempt) error {
	return conn(ctx, r.db, tx).Omit("Answers").Create(a).Error
}

func (r *attemptRepo) Save(ctx context.Context, tx *gorm.DB, a *models.Attempt) error {
	return conn(ctx, r.db, tx).Omit("Answers").Save(a).Error
}

func (r *attemptRepo) List(ctx context.Context, tx *gorm.DB, filter AttemptFilter, page Page) ([]*models.Attempt, int64, error) {
	q := conn(ctx, r.db, tx).Model(&models.Attempt{})
	if filter.QuizID != 0 {
		q = q.Where("quiz_id = ?", filter.QuizID)
	}
	if filter.StudentID != 0 {
		q = q.Where("student_id = ?", filter.StudentID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []*models.Attempt
	if err := q.Offset(page.Offset()).Limit(page.Size()).Order("start_at desc, id desc").Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *attemptRepo) ListExpired(ctx context.Context, tx *gorm.DB, cutoff time.Time, limit int) ([]*models.Attempt, error) {
	var out []*models.Attempt
	err := conn(ctx, r.db, tx).
		Where("status = ? AND ends_at < ?", models.AttemptInProgress, cutoff).
		Order("ends_at asc").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *attemptRepo) CountInProgressByCourse(ctx context.Context, tx *gorm.DB, courseID uint) (int64, error) {
	var count int64
	err := conn(ctx, r.db, tx).Model(&models.Attempt{}).
		Joins("JOIN quizzes ON quizzes.id = attempts.quiz_id AND quizzes.deleted_at IS NULL").
		Where("quizzes.course_id = ? AND attempts.status = ?", courseID, models.AttemptInProgress).
		Count(&count).Error
	return count, err
}

func (r *attemptRepo) BestGradedScores(ctx context.Context, tx *gorm.DB, courseID, studentID uint) ([]float64, error) {
	var scores []float64
	err := conn(ctx, r.db, tx).Model(&models.Attempt{}).
		Select("MAX(attempts.score)").
		Joins("JOIN quizzes ON quizzes.id = attempts.quiz_id AND quizzes.deleted_at IS NULL").
		Where("quizzes.course_id = ? AND attempts.student_id = ? AND attempts.status = ? AND attempts.score IS NOT NULL",
			courseID, studentID, models.AttemptGraded).
		Group("attempts.quiz_id").
		Order("attempts.quiz_id").
		Scan(&scores).Error
	return scores, err
}

func (r *attemptRepo) GetAnswer(ctx context.Context, tx *gorm.DB, id uint) (*models.Answer, error) {
	var a models.Answer
	if err := conn(ctx, r.db, tx).First(&a, id).Error; err != nil {
		return nil, notFound(err, "Answer")
	}
	return &a, nil
}

// FindAnswer returns (nil, nil) when the question has not been answered yet.
func (r *attemptRepo) FindAnswer(ctx context.Context, tx *gorm.DB, attemptID, questionID uint) (*models.Answer, error) {
	var rows []models.Answer
	err := conn(ctx, r.db, tx).
		Where("attempt_id = ? AND question_id = ?", attemptID, questionID).
		Limit(1).
		Find(&rows).Error
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}

func (r *attemptRepo) SaveAnswer(ctx context.Context, tx *gorm.DB, a *models.Answer) error {
	return conn(ctx, r.db, tx).Save(a).Error
}

func (r *attemptRepo) ListAnswers(ctx context.Context, tx *gorm.DB, attemptID uint) ([]*models.Answer, error) {
	var out []*models.Answer
	err := conn(ctx, r.db, tx).Where("attempt_id = ?", attemptID).Order("question_id asc").Find(&out).Error
	return out, err
}
