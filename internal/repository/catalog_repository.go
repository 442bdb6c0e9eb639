package repository

import (
	"nmt_prep_backend/internal/model"

	"gorm.io/gorm"
)

// CatalogRepository serves the authored content: categories, tests and
// their questions.
type CatalogRepository struct {
	DB *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{DB: db}
}

func (r *CatalogRepository) ListCategories() ([]model.Category, error) {
	var categories []model.Category
	err := r.DB.Where("enabled = ?", true).Order("`order`").Find(&categories).Error
	return categories, err
}

func (r *CatalogRepository) FindCategoryByCode(code string) (*model.Category, error) {
	var category model.Category
	err := r.DB.Where("code = ?", code).First(&category).Error
	return &category, err
}

func (r *CatalogRepository) CreateCategory(category *model.Category) error {
	return r.DB.Create(category).Error
}

func (r *CatalogRepository) UpdateCategory(category *model.Category) error {
	return r.DB.Save(category).Error
}

func (r *CatalogRepository) ListTests(categoryCodes []string, publishedOnly bool) ([]model.Test, error) {
	var tests []model.Test
	q := r.DB.Order("`order`")
	if len(categoryCodes) > 0 {
		q = q.Where("category_code IN ?", categoryCodes)
	}
	if publishedOnly {
		q = q.Where("is_published = ?", true)
	}
	err := q.Find(&tests).Error
	return tests, err
}

func (r *CatalogRepository) FindTestBySlug(slug string) (*model.Test, error) {
	var test model.Test
	err := r.DB.Where("slug = ?", slug).First(&test).Error
	return &test, err
}

func (r *CatalogRepository) CreateTest(test *model.Test) error {
	return r.DB.Create(test).Error
}

func (r *CatalogRepository) UpdateTest(test *model.Test) error {
	return r.DB.Save(test).Error
}

func (r *CatalogRepository) DeleteTest(testID uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("test_id = ?", testID).Delete(&model.Question{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Test{}, testID).Error
	})
}

func (r *CatalogRepository) ListQuestions(testID uint) ([]model.Question, error) {
	var questions []model.Question
	err := r.DB.Where("test_id = ?", testID).Order("position").Find(&questions).Error
	return questions, err
}

func (r *CatalogRepository) FindQuestion(testID uint, position int) (*model.Question, error) {
	var question model.Question
	err := r.DB.Where("test_id = ? AND position = ?", testID, position).First(&question).Error
	return &question, err
}

func (r *CatalogRepository) CountQuestions(testID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Question{}).Where("test_id = ?", testID).Count(&count).Error
	return count, err
}

func (r *CatalogRepository) CreateQuestion(question *model.Question) error {
	return r.DB.Create(question).Error
}

func (r *CatalogRepository) UpdateQuestion(question *model.Question) error {
	return r.DB.Save(question).Error
}

func (r *CatalogRepository) DeleteQuestion(questionID uint) error {
	return r.DB.Delete(&model.Question{}, questionID).Error
}
