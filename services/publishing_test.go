package services

import (
	"errors"
	"testing"

	"lms/apperr"
	"lms/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnpublishabilityReasons(t *testing.T) {
	ok := CourseFacts{Title: "t", Description: "d", InstructorCount: 1, UnitCount: 1, CourseTypeActive: true}
	assert.True(t, IsPublishable(ok))
	assert.Empty(t, UnpublishabilityReasons(ok))

	all := UnpublishabilityReasons(CourseFacts{Title: " "})
	assert.Equal(t, []string{ReasonNoInstructor, ReasonNoUnit, ReasonCourseTypeActive, ReasonTitleRequired, ReasonDescriptionNeeded}, all)
}

func TestCourseWithoutInstructorIsNotPublishable(t *testing.T) {
	f := newFixture(t)
	c := f.draftCourse()
	f.unit(c.ID, 1)

	ok, err := f.svc.Publishing.IsCoursePublishable(f.ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	reasons, err := f.svc.Publishing.GetUnpublishabilityReasons(f.ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, reasons, 1)
	assert.Contains(t, reasons[0], "Course must have at least one instructor")

	_, err = f.svc.Publishing.Publish(f.ctx, c.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrCourseNotPublishable))
	var ae *apperr.Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, reasons, ae.Details)
}

func TestPublishAndUnpublish(t *testing.T) {
	f := newFixture(t)
	course, _ := f.publishedCourse(1)
	got, err := f.svc.Courses.GetCourse(f.ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CourseStatusPublished, got.Status)
	assert.NotNil(t, got.PublishedAt)

	unpublished, err := f.svc.Publishing.Unpublish(f.ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CourseStatusDraft, unpublished.Status)
	assert.Nil(t, unpublished.PublishedAt)
}

func TestUnpublishBlockedByAttemptInProgress(t *testing.T) {
	f := newFixture(t)
	course, _ := f.publishedCourse(1)
	quiz := &models.Quiz{CourseID: course.ID, Title: "final", Status: models.QuizStatusPublished, DurationMinutes: 20}
	require.NoError(t, f.db.Create(quiz).Error)
	a, err := f.svc.Attempts.Start(f.ctx, quiz.ID, f.user(models.RoleLearner).ID)
	require.NoError(t, err)

	_, err = f.svc.Publishing.Unpublish(f.ctx, course.ID)
	assert.True(t, errors.Is(err, apperr.ErrActiveAttemptInProgress))

	_, err = f.svc.Attempts.Submit(f.ctx, a.ID)
	require.NoError(t, err)
	_, err = f.svc.Publishing.Unpublish(f.ctx, course.ID)
	assert.NoError(t, err)
}

func TestDeleteUnitWithLessons(t *testing.T) {
	f := newFixture(t)
	c := f.draftCourse()
	first := f.unit(c.ID, 1)
	u := f.unit(c.ID, 2)
	third := f.unit(c.ID, 3)
	l1, l2 := f.lesson(u, 1), f.lesson(u, 2)

	err := f.svc.Publishing.DeleteUnit(f.ctx, u.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrUnitHasLessons))
	assert.Contains(t, err.Error(), "has 2 lesson(s)")

	require.NoError(t, f.svc.Publishing.DeleteLesson(f.ctx, l1.ID))
	require.NoError(t, f.svc.Publishing.DeleteLesson(f.ctx, l2.ID))
	require.NoError(t, f.svc.Publishing.DeleteUnit(f.ctx, u.ID))

	ids, err := f.svc.Ordering.Positions(f.ctx, nil, UnitScope(c.ID))
	require.NoError(t, err)
	assert.Equal(t, []uint{first.ID, third.ID}, ids)
	assert.Equal(t, []int{1, 2}, f.unitOrders(c.ID))
}

func TestDeleteLessonCompactsOrder(t *testing.T) {
	f := newFixture(t)
	u := f.unit(f.draftCourse().ID, 1)
	f.lesson(u, 1)
	mid := f.lesson(u, 2)
	f.lesson(u, 3)

	require.NoError(t, f.svc.Publishing.DeleteLesson(f.ctx, mid.ID))
	lessons, err := f.svc.Courses.ListLessons(f.ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, lessons, 2)
	assert.Equal(t, 1, lessons[0].LessonOrder)
	assert.Equal(t, 2, lessons[1].LessonOrder)
}

func TestDeleteCourseWithActiveEnrollment(t *testing.T) {
	f := newFixture(t)
	course, _ := f.publishedCourse(1)
	res, err := f.svc.Enrollments.Enroll(f.ctx, EnrollInput{CourseID: course.ID, LearnerID: f.user(models.RoleLearner).ID})
	require.NoError(t, err)

	err = f.svc.Publishing.DeleteCourse(f.ctx, course.ID)
	assert.True(t, errors.Is(err, apperr.ErrCourseHasActiveEnrollments))

	_, err = f.svc.Enrollments.UpdateStatus(f.ctx, res.Enrollment.ID, models.EnrollmentDropped)
	require.NoError(t, err)
	require.NoError(t, f.svc.Publishing.DeleteCourse(f.ctx, course.ID))

	_, err = f.svc.Courses.GetCourse(f.ctx, course.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestCourseTypeGuards(t *testing.T) {
	f := newFixture(t)
	course, _ := f.publishedCourse(1)
	typeID := course.CourseTypeID

	_, err := f.svc.Publishing.DeactivateCourseType(f.ctx, typeID)
	assert.True(t, errors.Is(err, apperr.ErrCourseTypeHasPublished))

	_, err = f.svc.Publishing.Unpublish(f.ctx, course.ID)
	require.NoError(t, err)
	ct, err := f.svc.Publishing.DeactivateCourseType(f.ctx, typeID)
	require.NoError(t, err)
	assert.False(t, ct.IsActive)

	err = f.svc.Publishing.DeleteCourseType(f.ctx, typeID)
	assert.True(t, errors.Is(err, apperr.ErrCourseTypeHasCourses))

	require.NoError(t, f.svc.Publishing.DeleteCourse(f.ctx, course.ID))
	assert.NoError(t, f.svc.Publishing.DeleteCourseType(f.ctx, typeID))
}
