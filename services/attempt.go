package services

import (
	"context"
	"time"

	"lms/apperr"
	"lms/cache"
	"lms/logger"
	"lms/models"
	"lms/repos"
	"lms/utils"

	"gorm.io/gorm"
)

// DeadlinePolicy decides what happens to a submission after ends_at.
// Lenient accepts it and marks it late; Strict rejects it once Grace has passed.
type DeadlinePolicy struct {
	Strict bool
	Grace  time.Duration
}

func (p DeadlinePolicy) expired(a *models.Attempt, at time.Time) bool {
	return at.After(a.EndsAt.Add(p.Grace))
}

// AttemptResult reports whether a submit or grade call changed the attempt.
// When Applied is false Attempt holds the unchanged current state.
type AttemptResult struct {
	Attempt *models.Attempt
	Applied bool
	Message string
}

type GradeInput struct {
	Score    *float64
	IsPassed *bool
}

type AttemptService struct {
	db       *gorm.DB
	log      *logger.Logger
	attempts repos.AttemptRepo
	quizzes  repos.QuizRepo
	deadline DeadlinePolicy
	cache    cache.Store
	notifier utils.Notifier
	now      func() time.Time
}

func NewAttemptService(
	db *gorm.DB,
	baseLog *logger.Logger,
	attempts repos.AttemptRepo,
	quizzes repos.QuizRepo,
	deadline DeadlinePolicy,
	store cache.Store,
	notifier utils.Notifier,
	now func() time.Time,
) *AttemptService {
	return &AttemptService{
		db:       db,
		log:      baseLog.With("service", "AttemptService"),
		attempts: attempts,
		quizzes:  quizzes,
		deadline: deadline,
		cache:    store,
		notifier: notifier,
		now:      now,
	}
}

// ElapsedSeconds is the whole seconds between start and end, never negative.
func ElapsedSeconds(start, end time.Time) int {
	d := end.Sub(start)
	if d < 0 {
		return 0
	}
	return int(d / time.Second)
}

// Start opens the next numbered attempt of quizID for studentID.
func (s *AttemptService) Start(ctx context.Context, quizID, studentID uint) (*models.Attempt, error) {
	var a *models.Attempt
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// the quiz row lock serializes concurrent starts computing the next number
		quiz, err := s.quizzes.GetByIDForUpdate(ctx, tx, quizID)
		if err != nil {
			return err
		}
		if quiz.Status != models.QuizStatusPublished {
			return apperr.ErrQuizNotPublished
		}
		if quiz.DurationMinutes <= 0 {
			return apperr.ErrInvalidQuizDuration
		}

		last, err := s.attempts.MaxAttemptNumber(ctx, tx, quizID, studentID)
		if err != nil {
			return err
		}
		now := s.now()
		a = &models.Attempt{
			QuizID:        quizID,
			StudentID:     studentID,
			AttemptNumber: last + 1,
			Status:        models.AttemptInProgress,
			StartAt:       now,
			EndsAt:        now.Add(time.Duration(quiz.DurationMinutes) * time.Minute),
		}
		return s.attempts.Create(ctx, tx, a)
	})
	if err != nil {
		return nil, fail(s.log, "start attempt", err, "quiz_id", quizID, "student_id", studentID)
	}

	s.log.Info("attempt started", "attempt_id", a.ID, "quiz_id", quizID, "student_id", studentID, "attempt_number", a.AttemptNumber)
	invalidate(ctx, s.cache, s.log, cache.QuizTag(quizID), cache.DashboardTag)
	return a, nil
}

// Submit closes an in-progress attempt. Any other status is reported back unchanged.
func (s *AttemptService) Submit(ctx context.Context, id uint) (*AttemptResult, error) {
	res, err := s.submit(ctx, id, false)
	if err != nil {
		return nil, fail(s.log, "submit attempt", err, "attempt_id", id)
	}
	return res, nil
}

func (s *AttemptService) submit(ctx context.Context, id uint, auto bool) (*AttemptResult, error) {
	res := &AttemptResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, err := s.attempts.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		res.Attempt = a
		if a.Status != models.AttemptInProgress {
			res.Message = "Attempt is already " + a.Status + "."
			return nil
		}

		now := s.now()
		meta := map[string]interface{}{}
		if s.deadline.expired(a, now) {
			if s.deadline.Strict && !auto {
				return apperr.ErrAttemptTimeOver
			}
			meta["late"] = true
			meta["late_by_seconds"] = ElapsedSeconds(a.EndsAt, now)
		}
		if auto {
			meta["auto_submitted"] = true
		}

		answers, err := s.attempts.ListAnswers(ctx, tx, a.ID)
		if err != nil {
			return err
		}
		meta["auto_score"] = TotalScore(answers)

		spent := ElapsedSeconds(a.StartAt, now)
		a.Status = models.AttemptSubmitted
		a.SubmittedAt = timePtr(now)
		a.TimeSpentSeconds = &spent
		a.Meta = mergeMeta(a.Meta, meta)
		if err := s.attempts.Save(ctx, tx, a); err != nil {
			return err
		}
		res.Applied = true
		res.Message = "Attempt submitted successfully."
		return nil
	})
	if err != nil {
		return nil, err
	}
	if res.Applied {
		invalidate(ctx, s.cache, s.log, cache.QuizTag(res.Attempt.QuizID), cache.LearnerTag(res.Attempt.StudentID), cache.DashboardTag)
	}
	return res, nil
}

// Grade scores a submitted attempt. A missing score is the sum of the answer scores and a
// missing pass flag is derived from the quiz passing score. Other statuses are reported unchanged.
func (s *AttemptService) Grade(ctx context.Context, id uint, in GradeInput, graderID uint) (*AttemptResult, error) {
	res := &AttemptResult{}
	var courseID uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, err := s.attempts.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		res.Attempt = a
		switch a.Status {
		case models.AttemptGraded:
			res.Message = "Attempt is already graded."
			return nil
		case models.AttemptInProgress:
			res.Message = "Attempt must be submitted before grading."
			return nil
		}

		quiz, err := s.quizzes.GetByID(ctx, tx, a.QuizID)
		if err != nil {
			return err
		}
		courseID = quiz.CourseID

		var score float64
		if in.Score != nil {
			score = *in.Score
		} else {
			answers, err := s.attempts.ListAnswers(ctx, tx, a.ID)
			if err != nil {
				return err
			}
			score = TotalScore(answers)
		}
		if score < 0 {
			return apperr.Validation("Score must not be negative.")
		}
		passed := score >= quiz.PassingScore
		if in.IsPassed != nil {
			passed = *in.IsPassed
		}

		now := s.now()
		a.Score = &score
		a.IsPassed = &passed
		a.GradedAt = timePtr(now)
		a.GradedBy = &graderID
		a.Status = models.AttemptGraded
		if a.TimeSpentSeconds == nil {
			end := now
			if a.SubmittedAt != nil {
				end = *a.SubmittedAt
			}
			spent := ElapsedSeconds(a.StartAt, end)
			a.TimeSpentSeconds = &spent
		}
		if err := s.attempts.Save(ctx, tx, a); err != nil {
			return err
		}
		res.Applied = true
		res.Message = "Attempt graded successfully."
		return nil
	})
	if err != nil {
		return nil, fail(s.log, "grade attempt", err, "attempt_id", id, "grader_id", graderID)
	}

	if res.Applied {
		a := res.Attempt
		s.log.Info("attempt graded", "attempt_id", a.ID, "score", *a.Score, "is_passed", *a.IsPassed, "grader_id", graderID)
		invalidate(ctx, s.cache, s.log, cache.QuizTag(a.QuizID), cache.CourseTag(courseID), cache.LearnerTag(a.StudentID), cache.DashboardTag)
		s.notifier.AttemptGraded(ctx, a)
	}
	return res, nil
}

// SubmitExpired auto-submits in-progress attempts whose grace window has passed.
// It returns how many attempts were closed; individual failures are logged and skipped.
func (s *AttemptService) SubmitExpired(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.deadline.Grace)
	expired, err := s.attempts.ListExpired(ctx, nil, cutoff, 200)
	if err != nil {
		return 0, fail(s.log, "list expired attempts", err)
	}

	closed := 0
	for _, a := range expired {
		if ctx.Err() != nil {
			return closed, ctx.Err()
		}
		res, err := s.submit(ctx, a.ID, true)
		if err != nil {
			s.log.Error("auto-submit failed", "attempt_id", a.ID, "error", err)
			continue
		}
		if res.Applied {
			closed++
		}
	}
	if closed > 0 {
		s.log.Info("expired attempts auto-submitted", "count", closed)
	}
	return closed, nil
}

func (s *AttemptService) Get(ctx context.Context, id uint) (*models.Attempt, error) {
	a, err := s.attempts.GetByID(ctx, nil, id)
	if err != nil {
		return nil, fail(s.log, "get attempt", err, "attempt_id", id)
	}
	answers, err := s.attempts.ListAnswers(ctx, nil, id)
	if err != nil {
		return nil, fail(s.log, "get attempt answers", err, "attempt_id", id)
	}
	a.Answers = make([]models.Answer, len(answers))
	for i, ans := range answers {
		a.Answers[i] = *ans
	}
	return a, nil
}

func (s *AttemptService) List(ctx context.Context, filter repos.AttemptFilter, page repos.Page) ([]*models.Attempt, int64, error) {
	rows, total, err := s.attempts.List(ctx, nil, filter, page)
	if err != nil {
		return nil, 0, fail(s.log, "list attempts", err)
	}
	return rows, total, nil
}
