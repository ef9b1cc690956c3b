package repos

import (
	"context"

	"lms/logger"
	"lms/models"

	"gorm.io/gorm"
)

type UnitRepo interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Unit, error)
	Create(ctx context.Context, tx *gorm.DB, unit *models.Unit) error
	Save(ctx context.Context, tx *gorm.DB, unit *models.Unit) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
	ListByCourse(ctx context.Context, tx *gorm.DB, courseID uint) ([]*models.Unit, error)
	CountLessons(ctx context.Context, tx *gorm.DB, unitID uint) (int64, error)
}

type unitRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUnitRepo(db *gorm.DB, baseLog *logger.Logger) UnitRepo {
	return &unitRepo{db: db, log: baseLog.With("repo", "UnitRepo")}
}

func (r *unitRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Unit, error) {
	var unit models.Unit
	if err := conn(ctx, r.db, tx).First(&unit, id).Error; err != nil {
		return nil, notFound(err, "Unit")
	}
	return &unit, nil
}

func (r *unitRepo) Create(ctx context.Context, tx *gorm.DB, unit *models.Unit) error {
	return conn(ctx, r.db, tx).Create(unit).Error
}

func (r *unitRepo) Save(ctx context.Context, tx *gorm.DB, unit *models.Unit) error {
	return conn(ctx, r.db, tx).Save(unit).Error
}

func (r *unitRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	return conn(ctx, r.db, tx).Delete(&models.Unit{}, id).Error
}

func (r *unitRepo) ListByCourse(ctx context.Context, tx *gorm.DB, courseID uint) ([]*models.Unit, error) {
	var units []*models.Unit
	err := conn(ctx, r.db, tx).Where("course_id = ?", courseID).Order("unit_order asc, id asc").Find(&units).Error
	return units, err
}

func (r *unitRepo) CountLessons(ctx context.Context, tx *gorm.DB, unitID uint) (int64, error) {
	var count int64
	err := conn(ctx, r.db, tx).Model(&models.Lesson{}).Where("unit_id = ?", unitID).Count(&count).Error
	return count, err
}

type LessonRepo interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Lesson, error)
	Create(ctx context.Context, tx *gorm.DB, lesson *models.Lesson) error
	Save(ctx context.Context, tx *gorm.DB, lesson *models.Lesson) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
	ListByUnit(ctx context.Context, tx *gorm.DB, unitID uint) ([]*models.Lesson, error)
	CountByCourse(ctx context.Context, tx *gorm.DB, courseID uint) (int64, error)
}

type lessonRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLessonRepo(db *gorm.DB, baseLog *logger.Logger) LessonRepo {
	return &lessonRepo{db: db, log: baseLog.With("repo", "LessonRepo")}
}

func (r *lessonRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Lesson, error) {
	var lesson models.Lesson
	if err := conn(ctx, r.db, tx).First(&lesson, id).Error; err != nil {
		return nil, notFound(err, "Lesson")
	}
	return &lesson, nil
}

func (r *lessonRepo) Create(ctx context.Context, tx *gorm.DB, lesson *models.Lesson) error {
	return conn(ctx, r.db, tx).Create(lesson).Error
}

func (r *lessonRepo) Save(ctx context.Context, tx *gorm.DB, lesson *models.Lesson) error {
	return conn(ctx, r.db, tx).Save(lesson).Error
}

func (r *lessonRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	return conn(ctx, r.db, tx).Delete(&models.Lesson{}, id).Error
}

func (r *lessonRepo) ListByUnit(ctx context.Context, tx *gorm.DB, unitID uint) ([]*models.Lesson, error) {
	var lessons []*models.Lesson
	err := conn(ctx, r.db, tx).Where("unit_id = ?", unitID).Order("lesson_order asc, id asc").Find(&lessons).Error
	return lessons, err
}

func (r *lessonRepo) CountByCourse(ctx context.Context, tx *gorm.DB, courseID uint) (int64, error) {
	var count int64
	err := conn(ctx, r.db, tx).Model(&models.Lesson{}).Where("course_id = ?", courseID).Count(&count).Error
	return count, err
}
