package repository

import (
	"encoding/json"

	"nmt_prep_backend/internal/model"

	"gorm.io/gorm"
)

type PermissionRepository struct {
	DB *gorm.DB
}

func NewPermissionRepository(db *gorm.DB) *PermissionRepository {
	return &PermissionRepository{DB: db}
}

func (r *PermissionRepository) FindByUser(userID uint) (*model.UserPermission, error) {
	var perm model.UserPermission
	err := r.DB.Where("user_id = ?", userID).First(&perm).Error
	return &perm, err
}

// Upsert writes the override set for a user, creating the row when absent.
func (r *PermissionRepository) Upsert(userID uint, categories []string) error {
	raw, err := json.Marshal(categories)
	if err != nil {
		return err
	}

	return r.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.UserPermission{}).
			Where("user_id = ?", userID).
			Update("allowed_categories", json.RawMessage(raw))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		return tx.Create(&model.UserPermission{
			UserID:            userID,
			AllowedCategories: raw,
		}).Error
	})
}

func (r *PermissionRepository) Delete(userID uint) error {
	return r.DB.Where("user_id = ?", userID).Delete(&model.UserPermission{}).Error
}

func (r *PermissionRepository) ListAll() ([]model.UserPermission, error) {
	var perms []model.UserPermission
	err := r.DB.Order("user_id").Find(&perms).Error
	return perms, err
}
