package repository

import (
	"time"

	"edulearn_backend/internal/model"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) CreateUser(user *model.User) error {
	return r.DB.Create(user).Error
}

func (r *UserRepository) FindUserByID(id uint) (*model.User, error) {
	var user model.User
	err := r.DB.First(&user, id).Error
	return &user, err
}

func (r *UserRepository) FindUserByEmail(email string) (*model.User, error) {
	var user model.User
	err := r.DB.Where("email = ?", email).First(&user).Error
	return &user, err
}

func (r *UserRepository) UpdateUser(user *model.User) error {
	return r.DB.Save(user).Error
}

func (r *UserRepository) TouchLastLogin(id uint, at time.Time) error {
	return r.DB.Model(&model.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"last_login": at, "last_seen": at}).
		Error
}

// TouchLastSeen is fired from the activity middleware on authenticated
// requests.
func (r *UserRepository) TouchLastSeen(id uint, at time.Time) error {
	return r.DB.Model(&model.User{}).
		Where("id = ?", id).
		Update("last_seen", at).
		Error
}
