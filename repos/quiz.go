package repos

import (
	"context"

	"lms/logger"
	"lms/models"

	"gorm.io/gorm"
)

type QuizRepo interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Quiz, error)
	// GetByIDForUpdate locks the quiz row; attempt starts for the quiz serialize on it.
	GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Quiz, error)
	Create(ctx context.Context, tx *gorm.DB, quiz *models.Quiz) error
	Save(ctx context.Context, tx *gorm.DB, quiz *models.Quiz) error
	CountQuestions(ctx context.Context, tx *gorm.DB, quizID uint) (int64, error)
	GetQuestion(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error)
	ListQuestions(ctx context.Context, tx *gorm.DB, quizID uint) ([]*models.Question, error)
	CreateQuestion(ctx context.Context, tx *gorm.DB, q *models.Question) error
	GetOption(ctx context.Context, tx *gorm.DB, id uint) (*models.QuestionOption, error)
}

type quizRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuizRepo(db *gorm.DB, baseLog *logger.Logger) QuizRepo {
	return &quizRepo{db: db, log: baseLog.With("repo", "QuizRepo")}
}

func (r *quizRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Quiz, error) {
	var quiz models.Quiz
	if err := conn(ctx, r.db, tx).First(&quiz, id).Error; err != nil {
		return nil, notFound(err, "Quiz")
	}
	return &quiz, nil
}

func (r *quizRepo) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Quiz, error) {
	var quiz models.Quiz
	if err := forUpdate(conn(ctx, r.db, tx)).First(&quiz, id).Error; err != nil {
		return nil, notFound(err, "Quiz")
	}
	return &quiz, nil
}

func (r *quizRepo) Create(ctx context.Context, tx *gorm.DB, quiz *models.Quiz) error {
	return conn(ctx, r.db, tx).Create(quiz).Error
}

func (r *quizRepo) Save(ctx context.Context, tx *gorm.DB, quiz *models.Quiz) error {
	return conn(ctx, r.db, tx).Save(quiz).Error
}

func (r *quizRepo) CountQuestions(ctx context.Context, tx *gorm.DB, quizID uint) (int64, error) {
	var count int64
	err := conn(ctx, r.db, tx).Model(&models.Question{}).Where("quiz_id = ?", quizID).Count(&count).Error
	return count, err
}

func (r *quizRepo) GetQuestion(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	var q models.Question
	if err := conn(ctx, r.db, tx).First(&q, id).Error; err != nil {
		return nil, notFound(err, "Question")
	}
	return &q, nil
}

func (r *quizRepo) ListQuestions(ctx context.Context, tx *gorm.DB, quizID uint) ([]*models.Question, error) {
	var out []*models.Question
	err := conn(ctx, r.db, tx).
		Preload("Options", func(db *gorm.DB) *gorm.DB { return db.Order("option_order asc, id asc") }).
		Where("quiz_id = ?", quizID).
		Order("question_order asc, id asc").
		Find(&out).Error
	return out, err
}

// CreateQuestion inserts the question together with its options.
func (r *quizRepo) CreateQuestion(ctx context.Context, tx *gorm.DB, q *models.Question) error {
	return conn(ctx, r.db, tx).Create(q).Error
}

func (r *quizRepo) GetOption(ctx context.Context, tx *gorm.DB, id uint) (*models.QuestionOption, error) {
	var opt models.QuestionOption
	if err := conn(ctx, r.db, tx).First(&opt, id).Error; err != nil {
		return nil, notFound(err, "Option")
	}
	return &opt, nil
}
