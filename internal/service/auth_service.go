package service

import (
	"errors"
	"fmt"
	"time"

	"nmt_prep_backend/internal/config"
	"nmt_prep_backend/internal/model"
	"nmt_prep_backend/internal/repository"
	"nmt_prep_backend/internal/util"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService struct {
	Repo     *repository.UserRepository
	Progress *ProgressService
	cfg      *config.Config
}

func NewAuthService(repo *repository.UserRepository, progress *ProgressService, cfg *config.Config) *AuthService {
	return &AuthService{Repo: repo, Progress: progress, cfg: cfg}
}

type RegisterInput struct {
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResult struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

func (s *AuthService) Register(input RegisterInput) (*AuthResult, error) {
	if _, err := s.Repo.FindByEmail(input.Email); err == nil {
		return nil, util.ErrEmailRegistered
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Name:      input.Name,
		Email:     input.Email,
		Password:  string(hashed),
		Role:      model.Student,
		LastLogin: time.Now(),
		LastSeen:  time.Now(),
	}
	if err := s.Repo.Create(user); err != nil {
		return nil, err
	}

	return s.issueToken(user)
}

func (s *AuthService) Login(input LoginInput) (*AuthResult, error) {
	user, err := s.Repo.FindByEmail(input.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrInvalidCredentials
		}
		return nil, err
	}
	if user.Disabled {
		return nil, util.ErrAccountDisabled
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		return nil, util.ErrInvalidCredentials
	}

	if err := s.Repo.UpdateLastLogin(user.ID); err != nil {
		return nil, err
	}

	// Warm the progress session so the dashboard has data on first render.
	if err := s.Progress.StartSession(user.ID); err != nil {
		return nil, err
	}

	return s.issueToken(user)
}

func (s *AuthService) Logout(userID uint) error {
	return s.Progress.EndSession(userID)
}

func (s *AuthService) GetProfile(userID uint) (*model.User, error) {
	user, err := s.Repo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) issueToken(user *model.User) (*AuthResult, error) {
	token, err := util.GenerateJWT(user, s.cfg.JWT.Secret, s.cfg.JWT.ExpireTime)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &AuthResult{Token: token, User: user}, nil
}
