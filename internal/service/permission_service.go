package service

import (
	"errors"

	"nmt_prep_backend/internal/model"
	"nmt_prep_backend/internal/repository"
	"nmt_prep_backend/internal/util"

	"gorm.io/gorm"
)

// PermissionService resolves which content categories a student may see.
// A per-user permission row overrides the account's default list; admins
// always see everything.
type PermissionService struct {
	Repo  *repository.PermissionRepository
	Users *repository.UserRepository
}

func NewPermissionService(repo *repository.PermissionRepository, users *repository.UserRepository) *PermissionService {
	return &PermissionService{Repo: repo, Users: users}
}

// AllowedCategories returns nil for unrestricted access.
func (s *PermissionService) AllowedCategories(claims *util.Claims) ([]string, error) {
	if claims.Role == model.Admin {
		return nil, nil
	}

	perm, err := s.Repo.FindByUser(claims.UserID)
	if err == nil {
		return perm.CategoryCodes(), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user, err := s.Users.FindByID(claims.UserID)
	if err != nil {
		return nil, err
	}
	codes := user.DefaultCategoryCodes()
	if codes == nil {
		codes = []string{}
	}
	return codes, nil
}

// CanAccessCategory checks a single category against the resolved list.
func (s *PermissionService) CanAccessCategory(claims *util.Claims, categoryCode string) (bool, error) {
	allowed, err := s.AllowedCategories(claims)
	if err != nil {
		return false, err
	}
	if allowed == nil {
		return true, nil
	}
	for _, code := range allowed {
		if code == categoryCode {
			return true, nil
		}
	}
	return false, nil
}

func (s *PermissionService) Grant(userID uint, categories []string) error {
	if _, err := s.Users.FindByID(userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrUserNotFound
		}
		return err
	}
	return s.Repo.Upsert(userID, categories)
}

func (s *PermissionService) Revoke(userID uint) error {
	return s.Repo.Delete(userID)
}

func (s *PermissionService) ListAll() ([]model.UserPermission, error) {
	return s.Repo.ListAll()
}
