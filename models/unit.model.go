package models

import "gorm.io/gorm"

// Unit represents a section within a course
type Unit struct {
	gorm.Model
	CourseID    uint   `json:"course_id" gorm:"index;not null"`
	Title       string `json:"title"`
	Description string `json:"description"`
	UnitOrder   int    `json:"unit_order" gorm:"not null;default:1"` // position within the course
}

// Lesson is ordered within its unit; CourseID is denormalized for progress counts.
type Lesson struct {
	gorm.Model
	UnitID          uint   `json:"unit_id" gorm:"index;not null"`
	CourseID        uint   `json:"course_id" gorm:"index;not null"`
	Title           string `json:"title"`
	Content         string `json:"content" gorm:"type:text"`
	LessonOrder     int    `json:"lesson_order" gorm:"not null;default:1"`
	DurationMinutes int    `json:"duration_minutes" gorm:"default:0"`
}
