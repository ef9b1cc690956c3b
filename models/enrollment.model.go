package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Enrollment types.
const (
	EnrollmentTypeSelf     = "self"
	EnrollmentTypeAssigned = "assigned"
)

// Enrollment statuses.
const (
	EnrollmentActive    = "active"
	EnrollmentCompleted = "completed"
	EnrollmentDropped   = "dropped"
	EnrollmentSuspended = "suspended"
)

// Enrollment tracks a learner's participation in a course. Rows are soft-deleted only.
type Enrollment struct {
	gorm.Model
	LearnerID      uint           `json:"learner_id" gorm:"not null;uniqueIndex:idx_learner_course"`
	CourseID       uint           `json:"course_id" gorm:"not null;uniqueIndex:idx_learner_course;index"`
	EnrollmentType string         `json:"enrollment_type" gorm:"default:'self'"`
	Status         string         `json:"status" gorm:"default:'active';index"`
	EnrolledAt     time.Time      `json:"enrolled_at"`
	EnrolledBy     *uint          `json:"enrolled_by"`
	CompletedAt    *time.Time     `json:"completed_at"`
	Progress       float64        `json:"progress" gorm:"type:decimal(5,2);default:0"`
	FinalGrade     *float64       `json:"final_grade" gorm:"type:decimal(5,2)"`
	Meta           datatypes.JSON `json:"meta,omitempty"`
}

// LessonCompletion marks one lesson done for one enrollment.
type LessonCompletion struct {
	gorm.Model
	EnrollmentID uint      `json:"enrollment_id" gorm:"not null;uniqueIndex:idx_enrollment_lesson"`
	LessonID     uint      `json:"lesson_id" gorm:"not null;uniqueIndex:idx_enrollment_lesson"`
	CourseID     uint      `json:"course_id" gorm:"index;not null"`
	LearnerID    uint      `json:"learner_id" gorm:"index;not null"`
	CompletedAt  time.Time `json:"completed_at"`
}
