package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"lms/apperr"
	"lms/cache"
	"lms/logger"
	"lms/models"
	"lms/repos"
	"lms/utils"

	"gorm.io/gorm"
)

// enrollmentTransitions lists the statuses reachable from each status.
var enrollmentTransitions = map[string][]string{
	models.EnrollmentActive:    {models.EnrollmentCompleted, models.EnrollmentDropped, models.EnrollmentSuspended},
	models.EnrollmentDropped:   {models.EnrollmentActive},
	models.EnrollmentSuspended: {models.EnrollmentActive},
	models.EnrollmentCompleted: {models.EnrollmentActive},
}

func CanTransition(from, to string) bool {
	for _, s := range enrollmentTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func validEnrollmentStatus(s string) bool {
	_, ok := enrollmentTransitions[s]
	return ok
}

type EnrollInput struct {
	CourseID       uint
	LearnerID      uint
	EnrollmentType string
	EnrolledBy     *uint
}

type EnrollResult struct {
	Enrollment  *models.Enrollment
	Reactivated bool
}

type EnrollmentService struct {
	db          *gorm.DB
	log         *logger.Logger
	enrollments repos.EnrollmentRepo
	courses     repos.CourseRepo
	lessons     repos.LessonRepo
	attempts    repos.AttemptRepo
	cache       cache.Store
	notifier    utils.Notifier
	now         func() time.Time
}

func NewEnrollmentService(
	db *gorm.DB,
	baseLog *logger.Logger,
	enrollments repos.EnrollmentRepo,
	courses repos.CourseRepo,
	lessons repos.LessonRepo,
	attempts repos.AttemptRepo,
	store cache.Store,
	notifier utils.Notifier,
	now func() time.Time,
) *EnrollmentService {
	return &EnrollmentService{
		db:          db,
		log:         baseLog.With("service", "EnrollmentService"),
		enrollments: enrollments,
		courses:     courses,
		lessons:     lessons,
		attempts:    attempts,
		cache:       store,
		notifier:    notifier,
		now:         now,
	}
}

// Enroll creates the learner's enrollment, or reactivates a dropped, suspended or deleted one.
func (s *EnrollmentService) Enroll(ctx context.Context, in EnrollInput) (*EnrollResult, error) {
	if in.EnrollmentType == "" {
		in.EnrollmentType = models.EnrollmentTypeSelf
	}
	if in.EnrollmentType != models.EnrollmentTypeSelf && in.EnrollmentType != models.EnrollmentTypeAssigned {
		return nil, apperr.Validation("Enrollment type must be self or assigned.")
	}

	var res EnrollResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		course, err := s.courses.GetByID(ctx, tx, in.CourseID)
		if err != nil {
			return err
		}
		if !course.IsPublished() || course.CourseType == nil || !course.CourseType.IsActive {
			return apperr.ErrCourseNotEnrollable
		}

		now := s.now()
		existing, err := s.enrollments.FindByLearnerCourse(ctx, tx, in.LearnerID, in.CourseID)
		if err != nil {
			return err
		}

		switch {
		case existing == nil:
			e := &models.Enrollment{
				LearnerID:      in.LearnerID,
				CourseID:       in.CourseID,
				EnrollmentType: in.EnrollmentType,
				Status:         models.EnrollmentActive,
				EnrolledAt:     now,
				EnrolledBy:     in.EnrolledBy,
				Progress:       0,
			}
			if err := s.enrollments.Create(ctx, tx, e); err != nil {
				return err
			}
			res.Enrollment = e
		case existing.DeletedAt.Valid,
			existing.Status == models.EnrollmentDropped,
			existing.Status == models.EnrollmentSuspended:
			existing.DeletedAt = gorm.DeletedAt{}
			existing.Status = models.EnrollmentActive
			existing.CompletedAt = nil
			existing.EnrollmentType = in.EnrollmentType
			existing.EnrolledBy = in.EnrolledBy
			existing.Meta = mergeMeta(existing.Meta, map[string]interface{}{"reactivated_at": now})
			if err := s.enrollments.Save(ctx, tx, existing); err != nil {
				return err
			}
			res.Enrollment = existing
			res.Reactivated = true
		default:
			return apperr.ErrAlreadyEnrolled
		}

		if course.OrganizationID != nil {
			if err := s.enrollments.EnsureOrganizationMember(ctx, tx, *course.OrganizationID, in.LearnerID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fail(s.log, "enroll", err, "course_id", in.CourseID, "learner_id", in.LearnerID)
	}

	s.log.Info("learner enrolled", "enrollment_id", res.Enrollment.ID, "course_id", in.CourseID,
		"learner_id", in.LearnerID, "reactivated", res.Reactivated)
	s.invalidateFor(ctx, res.Enrollment)
	if !res.Reactivated {
		s.notifier.EnrollmentCreated(ctx, res.Enrollment)
	}
	return &res, nil
}

// UpdateStatus applies one transition of the enrollment state machine.
// Setting the current status again is a no-op.
func (s *EnrollmentService) UpdateStatus(ctx context.Context, id uint, status string) (*models.Enrollment, error) {
	if !validEnrollmentStatus(status) {
		return nil, apperr.Validation("Status must be one of active, completed, dropped, suspended.")
	}

	var (
		e         *models.Enrollment
		completed bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		e, err = s.enrollments.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if e.Status == status {
			return nil
		}
		if !CanTransition(e.Status, status) {
			return apperr.ErrInvalidStatusTransition.WithHint(
				fmt.Sprintf("Cannot change enrollment status from %s to %s.", e.Status, status))
		}

		if e.Status == models.EnrollmentCompleted {
			e.CompletedAt = nil
			e.FinalGrade = nil
		}
		if status == models.EnrollmentCompleted {
			if e.CompletedAt == nil {
				e.CompletedAt = timePtr(s.now())
			}
			if e.FinalGrade, err = s.finalGrade(ctx, tx, e); err != nil {
				return err
			}
			completed = true
		}
		e.Status = status
		return s.enrollments.Save(ctx, tx, e)
	})
	if err != nil {
		return nil, fail(s.log, "update enrollment status", err, "enrollment_id", id, "status", status)
	}

	s.invalidateFor(ctx, e)
	if completed {
		s.notifier.EnrollmentCompleted(ctx, e)
	}
	return e, nil
}

// ProgressPercent returns completed/total*100 rounded to two decimals, 0 for an empty course.
func ProgressPercent(completed, total int64) float64 {
	if total <= 0 || completed <= 0 {
		return 0
	}
	if completed >= total {
		return 100
	}
	return math.Round(float64(completed)/float64(total)*10000) / 100
}

// CalculateProgress computes the enrollment's progress without writing it.
func (s *EnrollmentService) CalculateProgress(ctx context.Context, id uint) (float64, error) {
	e, err := s.enrollments.GetByID(ctx, nil, id)
	if err != nil {
		return 0, fail(s.log, "calculate progress", err, "enrollment_id", id)
	}
	done, total, err := s.counts(ctx, nil, e)
	if err != nil {
		return 0, fail(s.log, "calculate progress", err, "enrollment_id", id)
	}
	return ProgressPercent(done, total), nil
}

// UpdateProgress persists the calculated progress and completes the enrollment
// once every lesson of the course is done.
func (s *EnrollmentService) UpdateProgress(ctx context.Context, id uint) (*models.Enrollment, error) {
	var (
		e         *models.Enrollment
		completed bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		e, err = s.enrollments.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		completed, err = s.applyProgress(ctx, tx, e)
		return err
	})
	if err != nil {
		return nil, fail(s.log, "update progress", err, "enrollment_id", id)
	}

	s.invalidateFor(ctx, e)
	if completed {
		s.notifier.EnrollmentCompleted(ctx, e)
	}
	return e, nil
}

// CompleteLesson records lessonID as done for an active enrollment and refreshes progress.
func (s *EnrollmentService) CompleteLesson(ctx context.Context, enrollmentID, lessonID uint) (*models.Enrollment, error) {
	var (
		e         *models.Enrollment
		completed bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		e, err = s.enrollments.GetByIDForUpdate(ctx, tx, enrollmentID)
		if err != nil {
			return err
		}
		if e.Status != models.EnrollmentActive {
			return apperr.ErrEnrollmentNotActive
		}
		lesson, err := s.lessons.GetByID(ctx, tx, lessonID)
		if err != nil {
			return err
		}
		if lesson.CourseID != e.CourseID {
			return apperr.Validation("Lesson does not belong to this course.")
		}

		if _, err := s.enrollments.MarkLessonComplete(ctx, tx, &models.LessonCompletion{
			EnrollmentID: e.ID,
			LessonID:     lesson.ID,
			CourseID:     e.CourseID,
			LearnerID:    e.LearnerID,
			CompletedAt:  s.now(),
		}); err != nil {
			return err
		}
		completed, err = s.applyProgress(ctx, tx, e)
		return err
	})
	if err != nil {
		return nil, fail(s.log, "complete lesson", err, "enrollment_id", enrollmentID, "lesson_id", lessonID)
	}

	s.invalidateFor(ctx, e)
	if completed {
		s.notifier.EnrollmentCompleted(ctx, e)
	}
	return e, nil
}

func (s *EnrollmentService) Get(ctx context.Context, id uint) (*models.Enrollment, error) {
	e, err := s.enrollments.GetByID(ctx, nil, id)
	if err != nil {
		return nil, fail(s.log, "get enrollment", err, "enrollment_id", id)
	}
	return e, nil
}

func (s *EnrollmentService) List(ctx context.Context, filter repos.EnrollmentFilter, page repos.Page) ([]*models.Enrollment, int64, error) {
	rows, total, err := s.enrollments.List(ctx, nil, filter, page)
	if err != nil {
		return nil, 0, fail(s.log, "list enrollments", err)
	}
	return rows, total, nil
}

func (s *EnrollmentService) counts(ctx context.Context, tx *gorm.DB, e *models.Enrollment) (done, total int64, err error) {
	total, err = s.lessons.CountByCourse(ctx, tx, e.CourseID)
	if err != nil {
		return 0, 0, err
	}
	done, err = s.enrollments.CountCompletedLessons(ctx, tx, e.ID)
	if err != nil {
		return 0, 0, err
	}
	return done, total, nil
}

// applyProgress writes progress on e inside tx and reports whether it just became completed.
func (s *EnrollmentService) applyProgress(ctx context.Context, tx *gorm.DB, e *models.Enrollment) (bool, error) {
	done, total, err := s.counts(ctx, tx, e)
	if err != nil {
		return false, err
	}
	e.Progress = ProgressPercent(done, total)

	justCompleted := false
	if total > 0 && done >= total {
		e.Progress = 100
		if e.CompletedAt == nil {
			e.CompletedAt = timePtr(s.now())
		}
		if e.Status != models.EnrollmentCompleted {
			e.Status = models.EnrollmentCompleted
			if e.FinalGrade, err = s.finalGrade(ctx, tx, e); err != nil {
				return false, err
			}
			justCompleted = true
		}
	}
	return justCompleted, s.enrollments.Save(ctx, tx, e)
}

// finalGrade averages the learner's best graded score per quiz of the course, nil without one.
func (s *EnrollmentService) finalGrade(ctx context.Context, tx *gorm.DB, e *models.Enrollment) (*float64, error) {
	scores, err := s.attempts.BestGradedScores(ctx, tx, e.CourseID, e.LearnerID)
	if err != nil || len(scores) == 0 {
		return nil, err
	}
	sum := 0.0
	for _, v := range scores {
		sum += v
	}
	grade := round2(sum / float64(len(scores)))
	return &grade, nil
}

func (s *EnrollmentService) invalidateFor(ctx context.Context, e *models.Enrollment) {
	invalidate(ctx, s.cache, s.log, cache.CourseTag(e.CourseID), cache.LearnerTag(e.LearnerID), cache.DashboardTag)
}
