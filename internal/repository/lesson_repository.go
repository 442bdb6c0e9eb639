package repository

import (
	"nmt_prep_backend/internal/model"

	"gorm.io/gorm"
)

type LessonRepository struct {
	DB *gorm.DB
}

func NewLessonRepository(db *gorm.DB) *LessonRepository {
	return &LessonRepository{DB: db}
}

func (r *LessonRepository) Create(lesson *model.Lesson) error {
	return r.DB.Create(lesson).Error
}

func (r *LessonRepository) FindByID(id string) (*model.Lesson, error) {
	var lesson model.Lesson
	err := r.DB.Where("id = ?", id).First(&lesson).Error
	return &lesson, err
}

func (r *LessonRepository) Update(lesson *model.Lesson) error {
	return r.DB.Save(lesson).Error
}

func (r *LessonRepository) Delete(id string) error {
	return r.DB.Where("id = ?", id).Delete(&model.Lesson{}).Error
}

func (r *LessonRepository) ListAll() ([]model.Lesson, error) {
	var lessons []model.Lesson
	err := r.DB.Order("date, time").Find(&lessons).Error
	return lessons, err
}

func (r *LessonRepository) ListByStudent(studentEmail string) ([]model.Lesson, error) {
	var lessons []model.Lesson
	err := r.DB.Where("student_email = ?", studentEmail).
		Order("date, time").
		Find(&lessons).Error
	return lessons, err
}

// ListByDateRange returns lessons between two YYYY-MM-DD dates, inclusive.
func (r *LessonRepository) ListByDateRange(startDate, endDate string) ([]model.Lesson, error) {
	var lessons []model.Lesson
	err := r.DB.Where("date >= ? AND date <= ?", startDate, endDate).
		Order("date, time").
		Find(&lessons).Error
	return lessons, err
}
