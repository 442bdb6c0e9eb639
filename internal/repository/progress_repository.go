package repository

import (
	"encoding/json"
	"errors"
	"time"

	"nmt_prep_backend/internal/model"
	"nmt_prep_backend/internal/util"

	"gorm.io/gorm"
)

// ProgressRepository persists one snapshot row per user with upsert
// semantics. The row's updated_at carries the writer's monotonic version;
// a save that would overwrite a fresher row is refused with
// util.ErrStaleSnapshot so racing writers (check handler, periodic flush,
// tab-close beacon) cannot regress the stored state.
type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

func (r *ProgressRepository) Load(userID uint) (*model.UserProgress, error) {
	var row model.UserProgress
	err := r.DB.Where("user_id = ?", userID).First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *ProgressRepository) Save(userID uint, data json.RawMessage, version time.Time) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.UserProgress{}).
			Where("user_id = ? AND updated_at <= ?", userID, version).
			Updates(map[string]interface{}{
				"progress_data": data,
				"updated_at":    version,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}

		var existing model.UserProgress
		err := tx.Where("user_id = ?", userID).First(&existing).Error
		if err == nil {
			// A fresher version is already stored.
			return util.ErrStaleSnapshot
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		row := model.UserProgress{
			UserID:       userID,
			ProgressData: data,
			CreatedAt:    version,
			UpdatedAt:    version,
		}
		return tx.Create(&row).Error
	})
}

func (r *ProgressRepository) Delete(userID uint) error {
	return r.DB.Where("user_id = ?", userID).Delete(&model.UserProgress{}).Error
}

// ListAll returns every stored snapshot, freshest first. Admin statistics.
func (r *ProgressRepository) ListAll() ([]model.UserProgress, error) {
	var rows []model.UserProgress
	err := r.DB.Order("updated_at DESC").Find(&rows).Error
	return rows, err
}

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

func (r *AttemptRepository) Create(attempt *model.AttemptLog) error {
	return r.DB.Create(attempt).Error
}

func (r *AttemptRepository) ListByUser(userID uint, limit int) ([]model.AttemptLog, error) {
	var attempts []model.AttemptLog
	err := r.DB.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&attempts).Error
	return attempts, err
}

func (r *AttemptRepository) CountByUser(userID uint) (total int64, correct int64, err error) {
	err = r.DB.Model(&model.AttemptLog{}).Where("user_id = ?", userID).Count(&total).Error
	if err != nil {
		return 0, 0, err
	}
	err = r.DB.Model(&model.AttemptLog{}).
		Where("user_id = ? AND is_correct = ?", userID, true).
		Count(&correct).Error
	return total, correct, err
}
