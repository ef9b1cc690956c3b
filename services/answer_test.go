package services

import (
	"errors"
	"testing"

	"lms/apperr"
	"lms/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestScoreAnswer(t *testing.T) {
	mc := &models.Question{Score: 2}
	tf := &models.Question{Score: 1, CorrectBoolean: boolPtr(true)}
	text := &models.Question{Score: 5}

	a := &models.Answer{}
	ScoreAnswer(mc, &models.QuestionOption{IsCorrect: true}, a)
	require.NotNil(t, a.IsCorrect)
	assert.True(t, *a.IsCorrect)
	assert.Equal(t, 2.0, a.QuestionScore)

	ScoreAnswer(mc, &models.QuestionOption{IsCorrect: false}, a)
	assert.False(t, *a.IsCorrect)
	assert.Equal(t, 0.0, a.QuestionScore)

	a = &models.Answer{BooleanAnswer: boolPtr(true)}
	ScoreAnswer(tf, nil, a)
	assert.True(t, *a.IsCorrect)
	assert.Equal(t, 1.0, a.QuestionScore)

	a = &models.Answer{BooleanAnswer: boolPtr(false)}
	ScoreAnswer(tf, nil, a)
	assert.False(t, *a.IsCorrect)

	// nothing to compare against
	s := "free text"
	a = &models.Answer{AnswerText: &s, IsCorrect: boolPtr(true), QuestionScore: 5}
	ScoreAnswer(text, nil, a)
	assert.Nil(t, a.IsCorrect)
	assert.Equal(t, 0.0, a.QuestionScore)
}

func TestTotalScore(t *testing.T) {
	assert.Equal(t, 0.0, TotalScore(nil))
	assert.Equal(t, 3.5, TotalScore([]*models.Answer{{QuestionScore: 1}, {QuestionScore: 2.5}, {QuestionScore: 0}}))
}

type quizWithQuestions struct {
	quiz *models.Quiz
	mc   *models.Question
	tf   *models.Question
	text *models.Question
}

func (f *fixture) quizWithQuestions() quizWithQuestions {
	f.t.Helper()
	quiz := f.publishedQuiz(30)
	mc := &models.Question{QuizID: quiz.ID, Text: "pick", QuestionType: models.QuestionMultipleChoice, Score: 2,
		Options: []models.QuestionOption{{Text: "right", IsCorrect: true}, {Text: "wrong"}}}
	tf := &models.Question{QuizID: quiz.ID, Text: "true?", QuestionType: models.QuestionTrueFalse, Score: 1, CorrectBoolean: boolPtr(false)}
	text := &models.Question{QuizID: quiz.ID, Text: "explain", QuestionType: models.QuestionText, Score: 4}
	for _, q := range []*models.Question{mc, tf, text} {
		require.NoError(f.t, f.db.Create(q).Error)
	}
	return quizWithQuestions{quiz: quiz, mc: mc, tf: tf, text: text}
}

func TestSaveAnswerRescoresOnEveryWrite(t *testing.T) {
	f := newFixture(t)
	qz := f.quizWithQuestions()
	a, err := f.svc.Attempts.Start(f.ctx, qz.quiz.ID, f.user(models.RoleLearner).ID)
	require.NoError(t, err)

	ans, err := f.svc.Answers.Save(f.ctx, a.ID, AnswerInput{QuestionID: qz.mc.ID, SelectedOptionID: &qz.mc.Options[1].ID})
	require.NoError(t, err)
	assert.False(t, *ans.IsCorrect)
	assert.Equal(t, 0.0, ans.QuestionScore)

	again, err := f.svc.Answers.Save(f.ctx, a.ID, AnswerInput{QuestionID: qz.mc.ID, SelectedOptionID: &qz.mc.Options[0].ID})
	require.NoError(t, err)
	assert.Equal(t, ans.ID, again.ID, "one answer per question")
	assert.True(t, *again.IsCorrect)
	assert.Equal(t, 2.0, again.QuestionScore)

	var count int64
	require.NoError(t, f.db.Model(&models.Answer{}).Where("attempt_id = ?", a.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestSaveManyAnswers(t *testing.T) {
	f := newFixture(t)
	qz := f.quizWithQuestions()
	a, err := f.svc.Attempts.Start(f.ctx, qz.quiz.ID, f.user(models.RoleLearner).ID)
	require.NoError(t, err)
	essay := "because"

	out, err := f.svc.Answers.SaveMany(f.ctx, a.ID, []AnswerInput{
		{QuestionID: qz.mc.ID, SelectedOptionID: &qz.mc.Options[0].ID},
		{QuestionID: qz.tf.ID, BooleanAnswer: boolPtr(false)},
		{QuestionID: qz.text.ID, AnswerText: &essay},
	})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, 3.0, TotalScore(out))
	assert.Nil(t, out[2].IsCorrect)
}

func TestSaveAnswerRejectsForeignQuestionAndOption(t *testing.T) {
	f := newFixture(t)
	qz := f.quizWithQuestions()
	other := f.quizWithQuestions()
	a, err := f.svc.Attempts.Start(f.ctx, qz.quiz.ID, f.user(models.RoleLearner).ID)
	require.NoError(t, err)

	_, err = f.svc.Answers.Save(f.ctx, a.ID, AnswerInput{QuestionID: other.mc.ID})
	assert.True(t, errors.Is(err, apperr.ErrInvalidAnswer))

	_, err = f.svc.Answers.Save(f.ctx, a.ID, AnswerInput{QuestionID: qz.mc.ID, SelectedOptionID: &other.mc.Options[0].ID})
	assert.True(t, errors.Is(err, apperr.ErrInvalidAnswer))
}

func TestSaveAnswerAfterSubmitFails(t *testing.T) {
	f := newFixture(t)
	qz := f.quizWithQuestions()
	a, err := f.svc.Attempts.Start(f.ctx, qz.quiz.ID, f.user(models.RoleLearner).ID)
	require.NoError(t, err)
	_, err = f.svc.Attempts.Submit(f.ctx, a.ID)
	require.NoError(t, err)

	_, err = f.svc.Answers.Save(f.ctx, a.ID, AnswerInput{QuestionID: qz.tf.ID, BooleanAnswer: boolPtr(true)})
	assert.True(t, errors.Is(err, apperr.ErrAttemptNotInProgress))
}

func TestGradeTextAnswer(t *testing.T) {
	f := newFixture(t)
	qz := f.quizWithQuestions()
	a, err := f.svc.Attempts.Start(f.ctx, qz.quiz.ID, f.user(models.RoleLearner).ID)
	require.NoError(t, err)
	essay := "because"
	ans, err := f.svc.Answers.Save(f.ctx, a.ID, AnswerInput{QuestionID: qz.text.ID, AnswerText: &essay})
	require.NoError(t, err)
	grader := f.user(models.RoleInstructor)

	_, err = f.svc.Answers.Grade(f.ctx, ans.ID, 3, grader.ID)
	assert.True(t, errors.Is(err, apperr.ErrAttemptNotSubmitted))

	_, err = f.svc.Attempts.Submit(f.ctx, a.ID)
	require.NoError(t, err)

	_, err = f.svc.Answers.Grade(f.ctx, ans.ID, 9, grader.ID)
	assert.True(t, errors.Is(err, apperr.ErrInvalidAnswer))

	graded, err := f.svc.Answers.Grade(f.ctx, ans.ID, 3, grader.ID)
	require.NoError(t, err)
	assert.Equal(t, 3.0, graded.QuestionScore)
	assert.Equal(t, grader.ID, *graded.GradedBy)
	assert.False(t, *graded.IsCorrect)

	res, err := f.svc.Attempts.Grade(f.ctx, a.ID, GradeInput{}, grader.ID)
	require.NoError(t, err)
	assert.Equal(t, 3.0, *res.Attempt.Score)
}
