package repos

import (
	"context"
	"errors"

	"lms/apperr"
	"lms/logger"
	"lms/models"

	"gorm.io/gorm"
)

type EnrollmentFilter struct {
	CourseID  uint
	LearnerID uint
	Status    string
}

type EnrollmentRepo interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Enrollment, error)
	GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Enrollment, error)
	// FindByLearnerCourse includes soft-deleted rows; it returns (nil, nil) when none exists.
	FindByLearnerCourse(ctx context.Context, tx *gorm.DB, learnerID, courseID uint) (*models.Enrollment, error)
	Create(ctx context.Context, tx *gorm.DB, e *models.Enrollment) error
	Save(ctx context.Context, tx *gorm.DB, e *models.Enrollment) error
	List(ctx context.Context, tx *gorm.DB, filter EnrollmentFilter, page Page) ([]*models.Enrollment, int64, error)
	CountByCourseStatus(ctx context.Context, tx *gorm.DB, courseID uint, status string) (int64, error)
	CountCompletedLessons(ctx context.Context, tx *gorm.DB, enrollmentID uint) (int64, error)
	// MarkLessonComplete is idempotent; created is false when the lesson was already done.
	MarkLessonComplete(ctx context.Context, tx *gorm.DB, c *models.LessonCompletion) (created bool, err error)
	EnsureOrganizationMember(ctx context.Context, tx *gorm.DB, orgID, userID uint) error
}

type enrollmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEnrollmentRepo(db *gorm.DB, baseLog *logger.Logger) EnrollmentRepo {
	return &enrollmentRepo{db: db, log: baseLog.With("repo", "EnrollmentRepo")}
}

func (r *enrollmentRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Enrollment, error) {
	var e models.Enrollment
	if err := conn(ctx, r.db, tx).First(&e, id).Error; err != nil {
		return nil, notFound(err, "Enrollment")
	}
	return &e, nil
}

func (r *enrollmentRepo) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Enrollment, error) {
	var e models.Enrollment
	if err := forUpdate(conn(ctx, r.db, tx)).First(&e, id).Error; err != nil {
		return nil, notFound(err, "Enrollment")
	}
	return &e, nil
}

func (r *enrollmentRepo) FindByLearnerCourse(ctx context.Context, tx *gorm.DB, learnerID, courseID uint) (*models.Enrollment, error) {
	var rows []models.Enrollment
	err := forUpdate(conn(ctx, r.db, tx).Unscoped()).
		Where("learner_id = ? AND course_id = ?", learnerID, courseID).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// Create inserts e. A concurrent insert for the same learner and course loses on the
// unique index and reports ErrAlreadyEnrolled.
func (r *enrollmentRepo) Create(ctx context.Context, tx *gorm.DB, e *models.Enrollment) error {
	err := conn(ctx, r.db, tx).Create(e).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.ErrAlreadyEnrolled
	}
	return err
}

func (r *enrollmentRepo) Save(ctx context.Context, tx *gorm.DB, e *models.Enrollment) error {
	return conn(ctx, r.db, tx).Unscoped().Save(e).Error
}

func (r *enrollmentRepo) List(ctx context.Context, tx *gorm.DB, filter EnrollmentFilter, page Page) ([]*models.Enrollment, int64, error) {
	q := conn(ctx, r.db, tx).Model(&models.Enrollment{})
	if filter.CourseID != 0 {
		q = q.Where("course_id = ?", filter.CourseID)
	}
	if filter.LearnerID != 0 {
		q = q.Where("learner_id = ?", filter.LearnerID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []*models.Enrollment
	if err := q.Offset(page.Offset()).Limit(page.Size()).Order("enrolled_at desc, id desc").Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *enrollmentRepo) CountByCourseStatus(ctx context.Context, tx *gorm.DB, courseID uint, status string) (int64, error) {
	q := conn(ctx, r.db, tx).Model(&models.Enrollment{}).Where("course_id = ?", courseID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var count int64
	err := q.Count(&count).Error
	return count, err
}

// CountCompletedLessons ignores completions of lessons that were deleted since.
func (r *enrollmentRepo) CountCompletedLessons(ctx context.Context, tx *gorm.DB, enrollmentID uint) (int64, error) {
	var count int64
	err := conn(ctx, r.db, tx).Model(&models.LessonCompletion{}).
		Joins("JOIN lessons ON lessons.id = lesson_completions.lesson_id AND lessons.deleted_at IS NULL").
		Where("lesson_completions.enrollment_id = ?", enrollmentID).
		Count(&count).Error
	return count, err
}

func (r *enrollmentRepo) MarkLessonComplete(ctx context.Context, tx *gorm.DB, c *models.LessonCompletion) (bool, error) {
	q := conn(ctx, r.db, tx)
	var existing []models.LessonCompletion
	if err := q.Where("enrollment_id = ? AND lesson_id = ?", c.EnrollmentID, c.LessonID).Limit(1).Find(&existing).Error; err != nil {
		return false, err
	}
	if len(existing) > 0 {
		*c = existing[0]
		return false, nil
	}
	if err := q.Create(c).Error; err != nil {
		return false, err
	}
	return true, nil
}

func (r *enrollmentRepo) EnsureOrganizationMember(ctx context.Context, tx *gorm.DB, orgID, userID uint) error {
	row := models.OrganizationMember{OrganizationID: orgID, UserID: userID, Role: models.RoleLearner}
	return conn(ctx, r.db, tx).
		Where("organization_id = ? AND user_id = ?", orgID, userID).
		FirstOrCreate(&row).Error
}
