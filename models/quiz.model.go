package models

import "gorm.io/gorm"

// Quiz statuses.
const (
	QuizStatusDraft     = "draft"
	QuizStatusPublished = "published"
	QuizStatusArchived  = "archived"
)

// Question types.
const (
	QuestionMultipleChoice = "multiple_choice"
	QuestionTrueFalse      = "true_false"
	QuestionText           = "text"
)

type Quiz struct {
	gorm.Model
	CourseID        uint    `json:"course_id" gorm:"index;not null"`
	UnitID          *uint   `json:"unit_id" gorm:"index"`
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	Status          string  `json:"status" gorm:"default:'draft'"`
	DurationMinutes int     `json:"duration_minutes"`
	PassingScore    float64 `json:"passing_score" gorm:"default:0"`
}

type Question struct {
	gorm.Model
	QuizID         uint             `json:"quiz_id" gorm:"index;not null"`
	Text           string           `json:"text" gorm:"type:text"`
	QuestionType   string           `json:"question_type" gorm:"default:'multiple_choice'"`
	Score          float64          `json:"score" gorm:"default:1"`
	CorrectBoolean *bool            `json:"correct_boolean,omitempty"`
	QuestionOrder  int              `json:"question_order" gorm:"default:1"`
	Options        []QuestionOption `json:"options,omitempty" gorm:"foreignKey:QuestionID"`
}

type QuestionOption struct {
	gorm.Model
	QuestionID  uint   `json:"question_id" gorm:"index;not null"`
	Text        string `json:"text"`
	IsCorrect   bool   `json:"is_correct" gorm:"default:false"`
	OptionOrder int    `json:"option_order" gorm:"default:1"`
}
