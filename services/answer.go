package services

import (
	"context"
	"fmt"
	"time"

	"lms/apperr"
	"lms/logger"
	"lms/models"
	"lms/repos"

	"gorm.io/gorm"
)

type AnswerInput struct {
	QuestionID       uint
	SelectedOptionID *uint
	AnswerText       *string
	BooleanAnswer    *bool
}

type AnswerService struct {
	db       *gorm.DB
	log      *logger.Logger
	attempts repos.AttemptRepo
	quizzes  repos.QuizRepo
	deadline DeadlinePolicy
	now      func() time.Time
}

func NewAnswerService(
	db *gorm.DB,
	baseLog *logger.Logger,
	attempts repos.AttemptRepo,
	quizzes repos.QuizRepo,
	deadline DeadlinePolicy,
	now func() time.Time,
) *AnswerService {
	return &AnswerService{
		db:       db,
		log:      baseLog.With("service", "AnswerService"),
		attempts: attempts,
		quizzes:  quizzes,
		deadline: deadline,
		now:      now,
	}
}

// ScoreAnswer derives IsCorrect and QuestionScore from the question's key.
// opt is the selected option, or nil when none was chosen.
func ScoreAnswer(q *models.Question, opt *models.QuestionOption, a *models.Answer) {
	a.IsCorrect = nil
	switch {
	case opt != nil:
		correct := opt.IsCorrect
		a.IsCorrect = &correct
	case a.BooleanAnswer != nil && q.CorrectBoolean != nil:
		correct := *a.BooleanAnswer == *q.CorrectBoolean
		a.IsCorrect = &correct
	}

	a.QuestionScore = 0
	if a.IsCorrect != nil && *a.IsCorrect {
		a.QuestionScore = q.Score
	}
}

func TotalScore(answers []*models.Answer) float64 {
	var total float64
	for _, a := range answers {
		total += a.QuestionScore
	}
	return total
}

// Save writes one answer of an in-progress attempt.
func (s *AnswerService) Save(ctx context.Context, attemptID uint, in AnswerInput) (*models.Answer, error) {
	out, err := s.SaveMany(ctx, attemptID, []AnswerInput{in})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// SaveMany creates or updates the answers in one transaction; each is re-scored on write.
func (s *AnswerService) SaveMany(ctx context.Context, attemptID uint, inputs []AnswerInput) ([]*models.Answer, error) {
	if len(inputs) == 0 {
		return nil, apperr.Validation("At least one answer is required.")
	}

	out := make([]*models.Answer, 0, len(inputs))
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		attempt, err := s.attempts.GetByIDForUpdate(ctx, tx, attemptID)
		if err != nil {
			return err
		}
		if attempt.Status != models.AttemptInProgress {
			return apperr.ErrAttemptNotInProgress
		}
		if s.deadline.Strict && s.deadline.expired(attempt, s.now()) {
			return apperr.ErrAttemptTimeOver
		}

		for _, in := range inputs {
			a, err := s.saveOne(ctx, tx, attempt, in)
			if err != nil {
				return err
			}
			out = append(out, a)
		}
		return nil
	})
	if err != nil {
		return nil, fail(s.log, "save answers", err, "attempt_id", attemptID)
	}
	return out, nil
}

func (s *AnswerService) saveOne(ctx context.Context, tx *gorm.DB, attempt *models.Attempt, in AnswerInput) (*models.Answer, error) {
	q, err := s.quizzes.GetQuestion(ctx, tx, in.QuestionID)
	if err != nil {
		return nil, err
	}
	if q.QuizID != attempt.QuizID {
		return nil, apperr.ErrInvalidAnswer.WithHint(fmt.Sprintf("Question %d is not part of this quiz.", q.ID))
	}

	var opt *models.QuestionOption
	if in.SelectedOptionID != nil {
		opt, err = s.quizzes.GetOption(ctx, tx, *in.SelectedOptionID)
		if err != nil {
			return nil, err
		}
		if opt.QuestionID != q.ID {
			return nil, apperr.ErrInvalidAnswer.WithHint(fmt.Sprintf("Option %d does not belong to question %d.", opt.ID, q.ID))
		}
	}

	a, err := s.attempts.FindAnswer(ctx, tx, attempt.ID, q.ID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		a = &models.Answer{AttemptID: attempt.ID, QuestionID: q.ID}
	}
	a.SelectedOptionID = in.SelectedOptionID
	a.AnswerText = in.AnswerText
	a.BooleanAnswer = in.BooleanAnswer
	a.GradedBy = nil
	a.GradedAt = nil
	ScoreAnswer(q, opt, a)

	if err := s.attempts.SaveAnswer(ctx, tx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Grade sets a manual score on one answer of a submitted attempt, e.g. a free-text answer.
func (s *AnswerService) Grade(ctx context.Context, answerID uint, score float64, graderID uint) (*models.Answer, error) {
	var a *models.Answer
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		a, err = s.attempts.GetAnswer(ctx, tx, answerID)
		if err != nil {
			return err
		}
		attempt, err := s.attempts.GetByIDForUpdate(ctx, tx, a.AttemptID)
		if err != nil {
			return err
		}
		if attempt.Status != models.AttemptSubmitted {
			return apperr.ErrAttemptNotSubmitted
		}
		q, err := s.quizzes.GetQuestion(ctx, tx, a.QuestionID)
		if err != nil {
			return err
		}
		if score < 0 || score > q.Score {
			return apperr.ErrInvalidAnswer.WithHint(fmt.Sprintf("Score must be between 0 and %g.", q.Score))
		}

		correct := score == q.Score
		a.QuestionScore = score
		a.IsCorrect = &correct
		a.GradedBy = &graderID
		a.GradedAt = timePtr(s.now())
		return s.attempts.SaveAnswer(ctx, tx, a)
	})
	if err != nil {
		return nil, fail(s.log, "grade answer", err, "answer_id", answerID, "grader_id", graderID)
	}
	return a, nil
}
