package service

import (
	"errors"
	"time"

	"edulearn_backend/internal/model"
	"edulearn_backend/internal/util"
	"edulearn_backend/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UserStore interface {
	CreateUser(u *model.User) error
	FindUserByID(id uint) (*model.User, error)
	FindUserByEmail(email string) (*model.User, error)
	UpdateUser(u *model.User) error
	TouchLastLogin(id uint, at time.Time) error
}

type UserService struct {
	Store UserStore

	JWTSecret     string
	JWTExpiration time.Duration

	now func() time.Time
}

func NewUserService(store UserStore, secret string, expiration time.Duration) *UserService {
	return &UserService{Store: store, JWTSecret: secret, JWTExpiration: expiration, now: time.Now}
}

type RegisterReq struct {
	Name     string         `json:"name" binding:"required"`
	Email    string         `json:"email" binding:"required,email"`
	Password string         `json:"password" binding:"required,min=8"`
	Role     model.UserRole `json:"role"`
	Language string         `json:"language"`
}

func (s *UserService) Register(req RegisterReq) (*model.User, error) {
	if _, err := s.Store.FindUserByEmail(req.Email); err == nil {
		return nil, util.ErrEmailRegistered
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	role := req.Role
	if role != model.Instructor && role != model.Admin {
		role = model.Student
	}

	user := &model.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: string(hashed),
		Role:     role,
		Language: req.Language,
	}
	if user.Language == "" {
		user.Language = "en"
	}

	if err := s.Store.CreateUser(user); err != nil {
		return nil, err
	}

	logger.Log.Info("user registered",
		zap.Uint("userId", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

type LoginReq struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login verifies credentials and issues a signed token. A wrong email and a
// wrong password produce the same error.
func (s *UserService) Login(req LoginReq) (string, *model.User, error) {
	user, err := s.Store.FindUserByEmail(req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, util.ErrUserNotFound
		}
		return "", nil, err
	}
	if user.Disabled {
		return "", nil, util.ErrPermissionDenied
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return "", nil, util.ErrUserNotFound
	}

	token, err := util.GenerateJWT(user, s.JWTSecret, s.JWTExpiration)
	if err != nil {
		return "", nil, err
	}

	if err := s.Store.TouchLastLogin(user.ID, s.now()); err != nil {
		logger.Log.Warn("last login update failed", zap.Uint("userId", user.ID), zap.Error(err))
	}
	return token, user, nil
}

func (s *UserService) Profile(userID uint) (*model.User, error) {
	return s.Store.FindUserByID(userID)
}

type ProfileReq struct {
	Name     *string `json:"name"`
	Language *string `json:"language"`
	Avatar   *string `json:"avatar"`
}

func (s *UserService) UpdateProfile(userID uint, req ProfileReq) (*model.User, error) {
	user, err := s.Store.FindUserByID(userID)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Language != nil {
		user.Language = *req.Language
	}
	if req.Avatar != nil {
		user.Avatar = *req.Avatar
	}
	if err := s.Store.UpdateUser(user); err != nil {
		return nil, err
	}
	return user, nil
}
