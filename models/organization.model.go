package models

import "gorm.io/gorm"

// Organization groups courses and their learners.
type Organization struct {
	gorm.Model
	Name string `json:"name" gorm:"not null"`
}

// OrganizationMember is created as a side effect of enrolling in an organization course.
type OrganizationMember struct {
	gorm.Model
	OrganizationID uint   `json:"organization_id" gorm:"not null;uniqueIndex:idx_org_member"`
	UserID         uint   `json:"user_id" gorm:"not null;uniqueIndex:idx_org_member"`
	Role           string `json:"role" gorm:"default:'LEARNER'"`
}
