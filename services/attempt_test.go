package services

import (
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"lms/apperr"
	"lms/config"
	"lms/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElapsedSeconds(t *testing.T) {
	start := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, 600, ElapsedSeconds(start, start.Add(10*time.Minute)))
	assert.Equal(t, 0, ElapsedSeconds(start, start.Add(-time.Minute)))
	assert.Equal(t, 1, ElapsedSeconds(start, start.Add(1500*time.Millisecond)))
}

func TestStartAndSubmitWithinWindow(t *testing.T) {
	f := newFixture(t)
	quiz := f.publishedQuiz(30)
	student := f.user(models.RoleLearner)
	t0 := f.clock.Now()

	a, err := f.svc.Attempts.Start(f.ctx, quiz.ID, student.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, a.AttemptNumber)
	assert.Equal(t, models.AttemptInProgress, a.Status)
	assert.True(t, a.EndsAt.Equal(t0.Add(30*time.Minute)))

	f.clock.Advance(10 * time.Minute)
	res, err := f.svc.Attempts.Submit(f.ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, models.AttemptSubmitted, res.Attempt.Status)
	require.NotNil(t, res.Attempt.TimeSpentSeconds)
	assert.Equal(t, 600, *res.Attempt.TimeSpentSeconds)

	stored, err := f.svc.Attempts.Get(f.ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, stored.EndsAt.Equal(t0.Add(30*time.Minute)), "ends_at never moves")
}

func TestStartRejectsUnpublishedQuiz(t *testing.T) {
	f := newFixture(t)
	quiz := f.publishedQuiz(30)
	require.NoError(t, f.db.Model(quiz).Update("status", models.QuizStatusDraft).Error)

	_, err := f.svc.Attempts.Start(f.ctx, quiz.ID, f.user(models.RoleLearner).ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrQuizNotPublished))
	assert.Equal(t, "Quiz is not published.", err.Error())
}

func TestStartRejectsInvalidDuration(t *testing.T) {
	f := newFixture(t)
	quiz := f.publishedQuiz(30)
	require.NoError(t, f.db.Model(quiz).Update("duration_minutes", 0).Error)

	_, err := f.svc.Attempts.Start(f.ctx, quiz.ID, f.user(models.RoleLearner).ID)
	assert.True(t, errors.Is(err, apperr.ErrInvalidQuizDuration))
}

func TestAttemptNumbersAreSequentialPerStudent(t *testing.T) {
	f := newFixture(t)
	quiz := f.publishedQuiz(15)
	alice, bob := f.user(models.RoleLearner), f.user(models.RoleLearner)

	for want := 1; want <= 3; want++ {
		a, err := f.svc.Attempts.Start(f.ctx, quiz.ID, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, want, a.AttemptNumber)
	}
	b, err := f.svc.Attempts.Start(f.ctx, quiz.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, b.AttemptNumber)
}

func TestConcurrentStartsGetDistinctNumbers(t *testing.T) {
	f := newFixture(t)
	quiz := f.publishedQuiz(15)
	student := f.user(models.RoleLearner)

	const n = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers []int
		errs    []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, err := f.svc.Attempts.Start(f.ctx, quiz.ID, student.ID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			numbers = append(numbers, a.AttemptNumber)
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	sort.Ints(numbers)
	want := make([]int, n)
	for i := range want {
		want[i] = i + 1
	}
	assert.Equal(t, want, numbers)
}

func TestSubmitTwiceIsNoOp(t *testing.T) {
	f := newFixture(t)
	quiz := f.publishedQuiz(30)
	a, err := f.svc.Attempts.Start(f.ctx, quiz.ID, f.user(models.RoleLearner).ID)
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	_, err = f.svc.Attempts.Submit(f.ctx, a.ID)
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	res, err := f.svc.Attempts.Submit(f.ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Equal(t, models.AttemptSubmitted, res.Attempt.Status)
	assert.Equal(t, 60, *res.Attempt.TimeSpentSeconds)
}

func TestGradeTwiceDoesNotReapply(t *testing.T) {
	f := newFixture(t)
	quiz := f.publishedQuiz(30)
	a, err := f.svc.Attempts.Start(f.ctx, quiz.ID, f.user(models.RoleLearner).ID)
	require.NoError(t, err)
	grader := f.user(models.RoleInstructor)

	// grading before submission is reported, not applied
	res, err := f.svc.Attempts.Grade(f.ctx, a.ID, GradeInput{}, grader.ID)
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Equal(t, models.AttemptInProgress, res.Attempt.Status)

	f.clock.Advance(5 * time.Minute)
	_, err = f.svc.Attempts.Submit(f.ctx, a.ID)
	require.NoError(t, err)

	score, passed := 8.0, true
	res, err = f.svc.Attempts.Grade(f.ctx, a.ID, GradeInput{Score: &score, IsPassed: &passed}, grader.ID)
	require.NoError(t, err)
	require.True(t, res.Applied)
	gradedAt := *res.Attempt.GradedAt

	f.clock.Advance(time.Hour)
	other := 1.0
	res, err = f.svc.Attempts.Grade(f.ctx, a.ID, GradeInput{Score: &other}, grader.ID)
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Equal(t, 8.0, *res.Attempt.Score)
	assert.True(t, res.Attempt.GradedAt.Equal(gradedAt))
	assert.Equal(t, []uint{a.ID}, f.notifier.graded)
}

func TestGradeDerivesScoreAndPass(t *testing.T) {
	f := newFixture(t)
	quiz := f.publishedQuiz(30) // passing score 2
	q := &models.Question{QuizID: quiz.ID, Text: "2+2?", QuestionType: models.QuestionMultipleChoice, Score: 3,
		Options: []models.QuestionOption{{Text: "4", IsCorrect: true}, {Text: "5"}}}
	require.NoError(t, f.db.Create(q).Error)

	a, err := f.svc.Attempts.Start(f.ctx, quiz.ID, f.user(models.RoleLearner).ID)
	require.NoError(t, err)
	_, err = f.svc.Answers.Save(f.ctx, a.ID, AnswerInput{QuestionID: q.ID, SelectedOptionID: &q.Options[0].ID})
	require.NoError(t, err)
	_, err = f.svc.Attempts.Submit(f.ctx, a.ID)
	require.NoError(t, err)

	res, err := f.svc.Attempts.Grade(f.ctx, a.ID, GradeInput{}, f.user(models.RoleInstructor).ID)
	require.NoError(t, err)
	assert.Equal(t, 3.0, *res.Attempt.Score)
	assert.True(t, *res.Attempt.IsPassed)
}

func TestLenientDeadlineMarksLateSubmission(t *testing.T) {
	f := newFixture(t)
	quiz := f.publishedQuiz(10)
	a, err := f.svc.Attempts.Start(f.ctx, quiz.ID, f.user(models.RoleLearner).ID)
	require.NoError(t, err)

	f.clock.Advance(20 * time.Minute)
	res, err := f.svc.Attempts.Submit(f.ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, res.Applied)

	var meta map[string]interface{}
	require.NoError(t, json.Unmarshal(res.Attempt.Meta, &meta))
	assert.Equal(t, true, meta["late"])
	assert.EqualValues(t, 600, meta["late_by_seconds"])
}

func TestStrictDeadlineRejectsLateSubmission(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.AttemptDeadlinePolicy = config.DeadlinePolicyStrict })
	quiz := f.publishedQuiz(10)
	a, err := f.svc.Attempts.Start(f.ctx, quiz.ID, f.user(models.RoleLearner).ID)
	require.NoError(t, err)

	// inside the grace window
	f.clock.Advance(10*time.Minute + 20*time.Second)
	res, err := f.svc.Attempts.Submit(f.ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, res.Applied)

	b, err := f.svc.Attempts.Start(f.ctx, quiz.ID, a.StudentID)
	require.NoError(t, err)
	f.clock.Advance(11 * time.Minute)
	_, err = f.svc.Attempts.Submit(f.ctx, b.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrAttemptTimeOver))
	assert.Equal(t, "Attempt time is over.", err.Error())
}

func TestSubmitExpired(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.AttemptDeadlinePolicy = config.DeadlinePolicyStrict })
	quiz := f.publishedQuiz(5)
	longQuiz := f.publishedQuiz(60)
	student := f.user(models.RoleLearner)

	expired, err := f.svc.Attempts.Start(f.ctx, quiz.ID, student.ID)
	require.NoError(t, err)
	running, err := f.svc.Attempts.Start(f.ctx, longQuiz.ID, student.ID)
	require.NoError(t, err)

	f.clock.Advance(10 * time.Minute)
	n, err := f.svc.Attempts.SubmitExpired(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.svc.Attempts.Get(f.ctx, expired.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AttemptSubmitted, got.Status)
	var meta map[string]interface{}
	require.NoError(t, json.Unmarshal(got.Meta, &meta))
	assert.Equal(t, true, meta["auto_submitted"])

	got, err = f.svc.Attempts.Get(f.ctx, running.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AttemptInProgress, got.Status)
}
