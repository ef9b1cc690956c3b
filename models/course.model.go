package models

import (
	"time"

	"gorm.io/gorm"
)

// Course statuses.
const (
	CourseStatusDraft     = "draft"
	CourseStatusPublished = "published"
	CourseStatusArchived  = "archived"
)

type CourseType struct {
	gorm.Model
	Name        string `json:"name" gorm:"uniqueIndex;not null"`
	Description string `json:"description"`
	IsActive    bool   `json:"is_active" gorm:"default:true"`
}

// Course represents a learning course
type Course struct {
	gorm.Model
	Title          string      `json:"title"`
	Description    string      `json:"description" gorm:"type:text"`
	CourseTypeID   uint        `json:"course_type_id" gorm:"index;not null"`
	CourseType     *CourseType `json:"course_type,omitempty" gorm:"foreignKey:CourseTypeID"`
	OrganizationID *uint       `json:"organization_id" gorm:"index"`
	Status         string      `json:"status" gorm:"default:'draft';index"`
	PublishedAt    *time.Time  `json:"published_at"`
	CreatedBy      uint        `json:"created_by"`
}

func (c *Course) IsPublished() bool {
	return c.Status == CourseStatusPublished
}

// CourseInstructor assigns an instructor to a course.
type CourseInstructor struct {
	gorm.Model
	CourseID     uint `json:"course_id" gorm:"not null;uniqueIndex:idx_course_instructor"`
	InstructorID uint `json:"instructor_id" gorm:"not null;uniqueIndex:idx_course_instructor"`
}
