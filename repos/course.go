package repos

import (
	"context"

	"lms/logger"
	"lms/models"

	"gorm.io/gorm"
)

type CourseFilter struct {
	Status       string
	CourseTypeID uint
	Search       string
}

type CourseRepo interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Course, error)
	Create(ctx context.Context, tx *gorm.DB, course *models.Course) error
	Save(ctx context.Context, tx *gorm.DB, course *models.Course) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
	List(ctx context.Context, tx *gorm.DB, filter CourseFilter, page Page) ([]*models.Course, int64, error)
	CountInstructors(ctx context.Context, tx *gorm.DB, courseID uint) (int64, error)
	AddInstructor(ctx context.Context, tx *gorm.DB, courseID, instructorID uint) error
	RemoveInstructor(ctx context.Context, tx *gorm.DB, courseID, instructorID uint) error
	IsInstructor(ctx context.Context, tx *gorm.DB, courseID, userID uint) (bool, error)
	CountUnits(ctx context.Context, tx *gorm.DB, courseID uint) (int64, error)
}

type courseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	return &courseRepo{db: db, log: baseLog.With("repo", "CourseRepo")}
}

func (r *courseRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Course, error) {
	var course models.Course
	if err := conn(ctx, r.db, tx).Preload("CourseType").First(&course, id).Error; err != nil {
		return nil, notFound(err, "Course")
	}
	return &course, nil
}

func (r *courseRepo) Create(ctx context.Context, tx *gorm.DB, course *models.Course) error {
	return conn(ctx, r.db, tx).Omit("CourseType").Create(course).Error
}

func (r *courseRepo) Save(ctx context.Context, tx *gorm.DB, course *models.Course) error {
	return conn(ctx, r.db, tx).Omit("CourseType").Save(course).Error
}

func (r *courseRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	return conn(ctx, r.db, tx).Delete(&models.Course{}, id).Error
}

func (r *courseRepo) List(ctx context.Context, tx *gorm.DB, filter CourseFilter, page Page) ([]*models.Course, int64, error) {
	q := conn(ctx, r.db, tx).Model(&models.Course{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.CourseTypeID != 0 {
		q = q.Where("course_type_id = ?", filter.CourseTypeID)
	}
	if filter.Search != "" {
		q = q.Where("title LIKE ?", "%"+filter.Search+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var courses []*models.Course
	if err := q.Offset(page.Offset()).Limit(page.Size()).Order("created_at desc").Find(&courses).Error; err != nil {
		return nil, 0, err
	}
	return courses, total, nil
}

func (r *courseRepo) CountInstructors(ctx context.Context, tx *gorm.DB, courseID uint) (int64, error) {
	var count int64
	err := conn(ctx, r.db, tx).Model(&models.CourseInstructor{}).Where("course_id = ?", courseID).Count(&count).Error
	return count, err
}

func (r *courseRepo) AddInstructor(ctx context.Context, tx *gorm.DB, courseID, instructorID uint) error {
	row := models.CourseInstructor{CourseID: courseID, InstructorID: instructorID}
	return conn(ctx, r.db, tx).
		Where("course_id = ? AND instructor_id = ?", courseID, instructorID).
		FirstOrCreate(&row).Error
}

func (r *courseRepo) RemoveInstructor(ctx context.Context, tx *gorm.DB, courseID, instructorID uint) error {
	return conn(ctx, r.db, tx).Unscoped().
		Where("course_id = ? AND instructor_id = ?", courseID, instructorID).
		Delete(&models.CourseInstructor{}).Error
}

func (r *courseRepo) IsInstructor(ctx context.Context, tx *gorm.DB, courseID, userID uint) (bool, error) {
	var count int64
	err := conn(ctx, r.db, tx).Model(&models.CourseInstructor{}).
		Where("course_id = ? AND instructor_id = ?", courseID, userID).Count(&count).Error
	return count > 0, err
}

func (r *courseRepo) CountUnits(ctx context.Context, tx *gorm.DB, courseID uint) (int64, error) {
	var count int64
	err := conn(ctx, r.db, tx).Model(&models.Unit{}).Where("course_id = ?", courseID).Count(&count).Error
	return count, err
}

type CourseTypeRepo interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.CourseType, error)
	Create(ctx context.Context, tx *gorm.DB, ct *models.CourseType) error
	Save(ctx context.Context, tx *gorm.DB, ct *models.CourseType) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
	List(ctx context.Context, tx *gorm.DB, onlyActive bool) ([]*models.CourseType, error)
	// CountCourses counts courses of the type; an empty status counts all of them.
	CountCourses(ctx context.Context, tx *gorm.DB, typeID uint, status string) (int64, error)
}

type courseTypeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseTypeRepo(db *gorm.DB, baseLog *logger.Logger) CourseTypeRepo {
	return &courseTypeRepo{db: db, log: baseLog.With("repo", "CourseTypeRepo")}
}

func (r *courseTypeRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.CourseType, error) {
	var ct models.CourseType
	if err := conn(ctx, r.db, tx).First(&ct, id).Error; err != nil {
		return nil, notFound(err, "Course type")
	}
	return &ct, nil
}

func (r *courseTypeRepo) Create(ctx context.Context, tx *gorm.DB, ct *models.CourseType) error {
	return conn(ctx, r.db, tx).Create(ct).Error
}

func (r *courseTypeRepo) Save(ctx context.Context, tx *gorm.DB, ct *models.CourseType) error {
	return conn(ctx, r.db, tx).Save(ct).Error
}

func (r *courseTypeRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	return conn(ctx, r.db, tx).Delete(&models.CourseType{}, id).Error
}

func (r *courseTypeRepo) List(ctx context.Context, tx *gorm.DB, onlyActive bool) ([]*models.CourseType, error) {
	q := conn(ctx, r.db, tx).Order("name asc")
	if onlyActive {
		q = q.Where("is_active = ?", true)
	}
	var out []*models.CourseType
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *courseTypeRepo) CountCourses(ctx context.Context, tx *gorm.DB, typeID uint, status string) (int64, error) {
	q := conn(ctx, r.db, tx).Model(&models.Course{}).Where("course_type_id = ?", typeID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var count int64
	err := q.Count(&count).Error
	return count, err
}
