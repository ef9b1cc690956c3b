package repos

import (
	"context"
	"errors"
	"testing"
	"time"

	"lms/apperr"
	"lms/database"
	"lms/logger"
	"lms/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrollmentCreateDuplicateIsAlreadyEnrolled(t *testing.T) {
	db, err := database.OpenMemory()
	require.NoError(t, err)
	ctx := context.Background()

	learner := &models.User{Name: "Lin", Email: "lin@example.com", Password: "x", Role: models.RoleLearner}
	require.NoError(t, db.Create(learner).Error)
	ct := &models.CourseType{Name: "Track", IsActive: true}
	require.NoError(t, db.Create(ct).Error)
	course := &models.Course{Title: "SQL", Description: "d", CourseTypeID: ct.ID, Status: models.CourseStatusPublished}
	require.NoError(t, db.Create(course).Error)

	repo := NewEnrollmentRepo(db, logger.Nop())
	newRow := func() *models.Enrollment {
		return &models.Enrollment{
			LearnerID:      learner.ID,
			CourseID:       course.ID,
			EnrollmentType: models.EnrollmentTypeSelf,
			Status:         models.EnrollmentActive,
			EnrolledAt:     time.Now(),
		}
	}

	require.NoError(t, repo.Create(ctx, nil, newRow()))
	err = repo.Create(ctx, nil, newRow())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrAlreadyEnrolled))

	var count int64
	require.NoError(t, db.Model(&models.Enrollment{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}
