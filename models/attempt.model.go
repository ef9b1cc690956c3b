package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Attempt statuses; transitions only move forward.
const (
	AttemptInProgress = "in_progress"
	AttemptSubmitted  = "submitted"
	AttemptGraded     = "graded"
)

type Attempt struct {
	gorm.Model
	QuizID           uint           `json:"quiz_id" gorm:"not null;uniqueIndex:idx_quiz_student_attempt"`
	StudentID        uint           `json:"student_id" gorm:"not null;uniqueIndex:idx_quiz_student_attempt"`
	AttemptNumber    int            `json:"attempt_number" gorm:"not null;uniqueIndex:idx_quiz_student_attempt"`
	Status           string         `json:"status" gorm:"default:'in_progress';index"`
	Score            *float64       `json:"score"`
	IsPassed         *bool          `json:"is_passed"`
	StartAt          time.Time      `json:"start_at"`
	EndsAt           time.Time      `json:"ends_at" gorm:"index"`
	SubmittedAt      *time.Time     `json:"submitted_at"`
	TimeSpentSeconds *int           `json:"time_spent_seconds"`
	GradedAt         *time.Time     `json:"graded_at"`
	GradedBy         *uint          `json:"graded_by"`
	Meta             datatypes.JSON `json:"meta,omitempty"`
	Answers          []Answer       `json:"answers,omitempty" gorm:"foreignKey:AttemptID"`
}

// Answer is one response to one question; IsCorrect and QuestionScore are always derived.
type Answer struct {
	gorm.Model
	AttemptID        uint       `json:"attempt_id" gorm:"not null;uniqueIndex:idx_attempt_question"`
	QuestionID       uint       `json:"question_id" gorm:"not null;uniqueIndex:idx_attempt_question"`
	SelectedOptionID *uint      `json:"selected_option_id"`
	AnswerText       *string    `json:"answer_text"`
	BooleanAnswer    *bool      `json:"boolean_answer"`
	IsCorrect        *bool      `json:"is_correct"`
	QuestionScore    float64    `json:"question_score" gorm:"default:0"`
	GradedBy         *uint      `json:"graded_by"`
	GradedAt         *time.Time `json:"graded_at"`
}
