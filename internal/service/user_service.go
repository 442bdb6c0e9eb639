package service

import (
	"errors"
	"fmt"

	"nmt_prep_backend/internal/model"
	"nmt_prep_backend/internal/repository"
	"nmt_prep_backend/internal/util"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserService backs the admin panel's user management.
type UserService struct {
	Repo        *repository.UserRepository
	Permissions *repository.PermissionRepository
	Progress    *ProgressService
	ProgressDB  *repository.ProgressRepository
}

func NewUserService(repo *repository.UserRepository, permissions *repository.PermissionRepository, progress *ProgressService, progressDB *repository.ProgressRepository) *UserService {
	return &UserService{Repo: repo, Permissions: permissions, Progress: progress, ProgressDB: progressDB}
}

func (s *UserService) List(page, limit int) ([]model.User, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.Repo.List(page, limit)
}

func (s *UserService) Get(userID uint) (*model.User, error) {
	user, err := s.Repo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

type UpdateUserInput struct {
	Name     string `json:"name" binding:"omitempty,min=2,max=100"`
	Password string `json:"password" binding:"omitempty,min=6"`
	Avatar   string `json:"avatar"`
}

func (s *UserService) Update(userID uint, input UpdateUserInput) (*model.User, error) {
	user, err := s.Get(userID)
	if err != nil {
		return nil, err
	}

	if input.Name != "" {
		user.Name = input.Name
	}
	if input.Avatar != "" {
		user.Avatar = input.Avatar
	}
	if input.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.Password = string(hashed)
	}

	if err := s.Repo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) SetDisabled(userID uint, disabled bool) error {
	if _, err := s.Get(userID); err != nil {
		return err
	}
	return s.Repo.SetDisabled(userID, disabled)
}

// Delete removes the account with its permission row and stored progress.
func (s *UserService) Delete(userID uint) error {
	if _, err := s.Get(userID); err != nil {
		return err
	}
	// Close the session before dropping the stored row so the final
	// flush cannot recreate it.
	if err := s.Progress.EndSession(userID); err != nil {
		return err
	}
	if err := s.ProgressDB.Delete(userID); err != nil {
		return err
	}
	if err := s.Permissions.Delete(userID); err != nil {
		return err
	}
	return s.Repo.Delete(userID)
}
