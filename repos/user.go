package repos

import (
	"context"
	"time"

	"lms/logger"
	"lms/models"

	"gorm.io/gorm"
)

type UserRepo interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.User, error)
	Create(ctx context.Context, tx *gorm.DB, user *models.User) error
	TouchLogin(ctx context.Context, tx *gorm.DB, user *models.User, ip, device string, at time.Time) error
	HasPermission(ctx context.Context, tx *gorm.DB, userID uint, permission string) (bool, error)
	Grant(ctx context.Context, tx *gorm.DB, userID uint, permission string) error
	SetRole(ctx context.Context, tx *gorm.DB, userID uint, role string) error
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return &userRepo{db: db, log: baseLog.With("repo", "UserRepo")}
}

func (r *userRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.User, error) {
	var user models.User
	if err := conn(ctx, r.db, tx).First(&user, id).Error; err != nil {
		return nil, notFound(err, "User")
	}
	return &user, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.User, error) {
	var user models.User
	if err := conn(ctx, r.db, tx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, notFound(err, "User")
	}
	return &user, nil
}

func (r *userRepo) Create(ctx context.Context, tx *gorm.DB, user *models.User) error {
	return conn(ctx, r.db, tx).Create(user).Error
}

func (r *userRepo) TouchLogin(ctx context.Context, tx *gorm.DB, user *models.User, ip, device string, at time.Time) error {
	q := conn(ctx, r.db, tx)
	if err := q.Model(user).Update("last_login", at).Error; err != nil {
		return err
	}
	return q.Create(&models.LoginTracking{UserID: user.ID, IPAddress: ip, Device: device, Timestamp: at}).Error
}

func (r *userRepo) HasPermission(ctx context.Context, tx *gorm.DB, userID uint, permission string) (bool, error) {
	var count int64
	err := conn(ctx, r.db, tx).Model(&models.Permission{}).
		Where("user_id = ? AND permission = ?", userID, permission).
		Count(&count).Error
	return count > 0, err
}

func (r *userRepo) Grant(ctx context.Context, tx *gorm.DB, userID uint, permission string) error {
	row := models.Permission{UserID: userID, Permission: permission}
	return conn(ctx, r.db, tx).
		Where("user_id = ? AND permission = ?", userID, permission).
		FirstOrCreate(&row).Error
}

func (r *userRepo) SetRole(ctx context.Context, tx *gorm.DB, userID uint, role string) error {
	res := conn(ctx, r.db, tx).Model(&models.User{}).Where("id = ?", userID).Update("role", role)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "User")
	}
	return nil
}
