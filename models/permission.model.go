package models

import (
	"gorm.io/gorm"
)

// Permission names granted on top of a user's role.
const (
	PermissionManageCourses = "manage-courses"
	PermissionGradeAttempts = "grade-attempts"
	PermissionViewReports   = "view-reports"
)

type Permission struct {
	gorm.Model
	UserID     uint   `json:"user_id" gorm:"not null;uniqueIndex:idx_user_permission"`
	Permission string `json:"permission" gorm:"type:varchar(255);not null;uniqueIndex:idx_user_permission"`
}
