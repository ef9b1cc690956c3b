package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"lms/apperr"
	"lms/cache"
	"lms/logger"
	"lms/models"
	"lms/repos"

	"gorm.io/gorm"
)

// CourseFacts are the inputs of the publishing gate.
type CourseFacts struct {
	Title            string
	Description      string
	InstructorCount  int64
	UnitCount        int64
	CourseTypeActive bool
}

const (
	ReasonNoInstructor      = "Course must have at least one instructor."
	ReasonNoUnit            = "Course must have at least one unit."
	ReasonCourseTypeActive  = "Course type must be active."
	ReasonTitleRequired     = "Course title is required."
	ReasonDescriptionNeeded = "Course description is required."
)

// UnpublishabilityReasons lists every failed publishing precondition, empty when publishable.
func UnpublishabilityReasons(f CourseFacts) []string {
	reasons := []string{}
	if f.InstructorCount < 1 {
		reasons = append(reasons, ReasonNoInstructor)
	}
	if f.UnitCount < 1 {
		reasons = append(reasons, ReasonNoUnit)
	}
	if !f.CourseTypeActive {
		reasons = append(reasons, ReasonCourseTypeActive)
	}
	if strings.TrimSpace(f.Title) == "" {
		reasons = append(reasons, ReasonTitleRequired)
	}
	if strings.TrimSpace(f.Description) == "" {
		reasons = append(reasons, ReasonDescriptionNeeded)
	}
	return reasons
}

func IsPublishable(f CourseFacts) bool {
	return len(UnpublishabilityReasons(f)) == 0
}

type PublishingService struct {
	db          *gorm.DB
	log         *logger.Logger
	courses     repos.CourseRepo
	courseTypes repos.CourseTypeRepo
	units       repos.UnitRepo
	lessons     repos.LessonRepo
	enrollments repos.EnrollmentRepo
	attempts    repos.AttemptRepo
	ordering    *OrderingService
	cache       cache.Store
	now         func() time.Time
}

func NewPublishingService(
	db *gorm.DB,
	baseLog *logger.Logger,
	courses repos.CourseRepo,
	courseTypes repos.CourseTypeRepo,
	units repos.UnitRepo,
	lessons repos.LessonRepo,
	enrollments repos.EnrollmentRepo,
	attempts repos.AttemptRepo,
	ordering *OrderingService,
	store cache.Store,
	now func() time.Time,
) *PublishingService {
	return &PublishingService{
		db:          db,
		log:         baseLog.With("service", "PublishingService"),
		courses:     courses,
		courseTypes: courseTypes,
		units:       units,
		lessons:     lessons,
		enrollments: enrollments,
		attempts:    attempts,
		ordering:    ordering,
		cache:       store,
		now:         now,
	}
}

func (s *PublishingService) facts(ctx context.Context, tx *gorm.DB, course *models.Course) (CourseFacts, error) {
	instructors, err := s.courses.CountInstructors(ctx, tx, course.ID)
	if err != nil {
		return CourseFacts{}, err
	}
	units, err := s.courses.CountUnits(ctx, tx, course.ID)
	if err != nil {
		return CourseFacts{}, err
	}
	return CourseFacts{
		Title:            course.Title,
		Description:      course.Description,
		InstructorCount:  instructors,
		UnitCount:        units,
		CourseTypeActive: course.CourseType != nil && course.CourseType.IsActive,
	}, nil
}

// GetUnpublishabilityReasons returns the failing preconditions of the course.
func (s *PublishingService) GetUnpublishabilityReasons(ctx context.Context, courseID uint) ([]string, error) {
	course, err := s.courses.GetByID(ctx, nil, courseID)
	if err != nil {
		return nil, fail(s.log, "check publishability", err, "course_id", courseID)
	}
	f, err := s.facts(ctx, nil, course)
	if err != nil {
		return nil, fail(s.log, "check publishability", err, "course_id", courseID)
	}
	return UnpublishabilityReasons(f), nil
}

func (s *PublishingService) IsCoursePublishable(ctx context.Context, courseID uint) (bool, error) {
	reasons, err := s.GetUnpublishabilityReasons(ctx, courseID)
	if err != nil {
		return false, err
	}
	return len(reasons) == 0, nil
}

// Publish moves the course to published when every precondition holds.
func (s *PublishingService) Publish(ctx context.Context, courseID uint) (*models.Course, error) {
	var course *models.Course
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		course, err = s.courses.GetByID(ctx, tx, courseID)
		if err != nil {
			return err
		}
		if course.IsPublished() {
			return nil
		}
		f, err := s.facts(ctx, tx, course)
		if err != nil {
			return err
		}
		if reasons := UnpublishabilityReasons(f); len(reasons) > 0 {
			return apperr.ErrCourseNotPublishable.WithDetails(reasons)
		}
		course.Status = models.CourseStatusPublished
		course.PublishedAt = timePtr(s.now())
		return s.courses.Save(ctx, tx, course)
	})
	if err != nil {
		return nil, fail(s.log, "publish course", err, "course_id", courseID)
	}
	s.log.Info("course published", "course_id", courseID)
	invalidate(ctx, s.cache, s.log, cache.CourseTag(courseID), cache.DashboardTag)
	return course, nil
}

// Unpublish returns the course to draft unless one of its quizzes has an attempt in progress.
func (s *PublishingService) Unpublish(ctx context.Context, courseID uint) (*models.Course, error) {
	var course *models.Course
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		course, err = s.courses.GetByID(ctx, tx, courseID)
		if err != nil {
			return err
		}
		if !course.IsPublished() {
			return nil
		}
		inProgress, err := s.attempts.CountInProgressByCourse(ctx, tx, courseID)
		if err != nil {
			return err
		}
		if inProgress > 0 {
			return apperr.ErrActiveAttemptInProgress.WithMessage(
				fmt.Sprintf("Course has %d quiz attempt(s) in progress.", inProgress))
		}
		course.Status = models.CourseStatusDraft
		course.PublishedAt = nil
		return s.courses.Save(ctx, tx, course)
	})
	if err != nil {
		return nil, fail(s.log, "unpublish course", err, "course_id", courseID)
	}
	invalidate(ctx, s.cache, s.log, cache.CourseTag(courseID), cache.DashboardTag)
	return course, nil
}

func (s *PublishingService) DeleteCourse(ctx context.Context, courseID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.courses.GetByID(ctx, tx, courseID); err != nil {
			return err
		}
		active, err := s.enrollments.CountByCourseStatus(ctx, tx, courseID, models.EnrollmentActive)
		if err != nil {
			return err
		}
		if active > 0 {
			return apperr.ErrCourseHasActiveEnrollments.WithMessage(
				fmt.Sprintf("Cannot delete course: it has %d active enrollment(s).", active))
		}
		return s.courses.Delete(ctx, tx, courseID)
	})
	if err != nil {
		return fail(s.log, "delete course", err, "course_id", courseID)
	}
	invalidate(ctx, s.cache, s.log, cache.CourseTag(courseID), cache.DashboardTag)
	return nil
}

// DeleteUnit removes an empty unit and closes the gap in its course's unit order.
func (s *PublishingService) DeleteUnit(ctx context.Context, unitID uint) error {
	var courseID uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		unit, err := s.units.GetByID(ctx, tx, unitID)
		if err != nil {
			return err
		}
		courseID = unit.CourseID
		lessons, err := s.units.CountLessons(ctx, tx, unitID)
		if err != nil {
			return err
		}
		if lessons > 0 {
			return apperr.ErrUnitHasLessons.WithMessage(
				fmt.Sprintf("Cannot delete unit: it has %d lesson(s).", lessons))
		}
		if err := s.units.Delete(ctx, tx, unitID); err != nil {
			return err
		}
		return s.ordering.Compact(ctx, tx, UnitScope(unit.CourseID))
	})
	if err != nil {
		return fail(s.log, "delete unit", err, "unit_id", unitID)
	}
	invalidate(ctx, s.cache, s.log, cache.CourseTag(courseID))
	return nil
}

// DeleteLesson removes a lesson and closes the gap in its unit's lesson order.
func (s *PublishingService) DeleteLesson(ctx context.Context, lessonID uint) error {
	var courseID uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lesson, err := s.lessons.GetByID(ctx, tx, lessonID)
		if err != nil {
			return err
		}
		courseID = lesson.CourseID
		if err := s.lessons.Delete(ctx, tx, lessonID); err != nil {
			return err
		}
		return s.ordering.Compact(ctx, tx, LessonScope(lesson.UnitID))
	})
	if err != nil {
		return fail(s.log, "delete lesson", err, "lesson_id", lessonID)
	}
	invalidate(ctx, s.cache, s.log, cache.CourseTag(courseID))
	return nil
}

func (s *PublishingService) DeactivateCourseType(ctx context.Context, typeID uint) (*models.CourseType, error) {
	var ct *models.CourseType
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		ct, err = s.courseTypes.GetByID(ctx, tx, typeID)
		if err != nil {
			return err
		}
		if !ct.IsActive {
			return nil
		}
		published, err := s.courseTypes.CountCourses(ctx, tx, typeID, models.CourseStatusPublished)
		if err != nil {
			return err
		}
		if published > 0 {
			return apperr.ErrCourseTypeHasPublished.WithMessage(
				fmt.Sprintf("Cannot deactivate course type: it has %d published course(s).", published))
		}
		ct.IsActive = false
		return s.courseTypes.Save(ctx, tx, ct)
	})
	if err != nil {
		return nil, fail(s.log, "deactivate course type", err, "course_type_id", typeID)
	}
	invalidate(ctx, s.cache, s.log, cache.DashboardTag)
	return ct, nil
}

func (s *PublishingService) DeleteCourseType(ctx context.Context, typeID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.courseTypes.GetByID(ctx, tx, typeID); err != nil {
			return err
		}
		courses, err := s.courseTypes.CountCourses(ctx, tx, typeID, "")
		if err != nil {
			return err
		}
		if courses > 0 {
			return apperr.ErrCourseTypeHasCourses.WithMessage(
				fmt.Sprintf("Cannot delete course type: it has %d course(s).", courses))
		}
		return s.courseTypes.Delete(ctx, tx, typeID)
	})
	if err != nil {
		return fail(s.log, "delete course type", err, "course_type_id", typeID)
	}
	invalidate(ctx, s.cache, s.log, cache.DashboardTag)
	return nil
}
