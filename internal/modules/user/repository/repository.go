package repository

import (
	"context"

	"github.com/edushare/edushare-backend/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByID(ctx context.Context, id string) (*entity.User, error)
	FindByUsername(ctx context.Context, username string) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.User, error)
	FindAdmins(ctx context.Context) ([]*entity.User, error)
	Update(ctx context.Context, user *entity.User) error
	UpdateReputation(ctx context.Context, userID uuid.UUID, reputation float64) error
	UpdatePreferences(ctx context.Context, userID uuid.UUID, prefs map[string]any) error
	IncrementUploadCount(ctx context.Context, userID uuid.UUID) error
	// DecrementUploadCount clamps at zero: when the guarded decrement matches
	// no row the stored counter has drifted, and the caller recomputes it
	// from the materials table instead.
	DecrementUploadCount(ctx context.Context, userID uuid.UUID) (applied bool, err error)
	SetUploadCount(ctx context.Context, userID uuid.UUID, count int) error
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *entity.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	var user entity.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*entity.User, error) {
	var user entity.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	var user entity.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []*entity.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) FindAdmins(ctx context.Context) ([]*entity.User, error) {
	var admins []*entity.User
	if err := r.db.WithContext(ctx).Where("role = ?", entity.RoleAdmin).Find(&admins).Error; err != nil {
		return nil, err
	}
	return admins, nil
}

func (r *userRepository) Update(ctx context.Context, user *entity.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

func (r *userRepository) UpdateReputation(ctx context.Context, userID uuid.UUID, reputation float64) error {
	return r.db.WithContext(ctx).
		Model(&entity.User{}).
		Where("id = ?", userID).
		Update("reputation", reputation).Error
}

func (r *userRepository) UpdatePreferences(ctx context.Context, userID uuid.UUID, prefs map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&entity.User{}).
		Where("id = ?", userID).
		Updates(prefs).Error
}

func (r *userRepository) IncrementUploadCount(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&entity.User{}).
		Where("id = ?", userID).
		Update("upload_count", gorm.Expr("upload_count + 1")).Error
}

func (r *userRepository) DecrementUploadCount(ctx context.Context, userID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&entity.User{}).
		Where("id = ? AND upload_count > 0", userID).
		Update("upload_count", gorm.Expr("upload_count - 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *userRepository) SetUploadCount(ctx context.Context, userID uuid.UUID, count int) error {
	return r.db.WithContext(ctx).
		Model(&entity.User{}).
		Where("id = ?", userID).
		Update("upload_count", count).Error
}
