package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"nmt_prep_backend/internal/config"
	"nmt_prep_backend/internal/grading"
	"nmt_prep_backend/internal/model"
	"nmt_prep_backend/internal/progress"
	"nmt_prep_backend/internal/repository"
	"nmt_prep_backend/internal/util"
	"nmt_prep_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const catalogCacheKey = "catalog:tests"

// CatalogService serves the authored content. The test list is cached in
// redis; question payloads handed to students never include answer keys.
type CatalogService struct {
	Repo     *repository.CatalogRepository
	Redis    *redis.Client
	cacheTTL time.Duration
}

func NewCatalogService(repo *repository.CatalogRepository, rdb *redis.Client, cfg *config.Config) *CatalogService {
	return &CatalogService{
		Repo:     repo,
		Redis:    rdb,
		cacheTTL: time.Duration(cfg.Catalog.CacheTTLMinutes) * time.Minute,
	}
}

type TestListItem struct {
	Slug          string `json:"slug"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	CategoryCode  string `json:"categoryCode"`
	QuestionCount int    `json:"questionCount"`
}

// StudentQuestion is the answer-key-free view delivered to the client.
// Right labels fall back to generated placeholders when none are authored.
type StudentQuestion struct {
	Position int      `json:"position"`
	Kind     string   `json:"kind"`
	Prompt   string   `json:"prompt"`
	Images   []string `json:"images,omitempty"`
	Options  []string `json:"options,omitempty"`
	Left     []string `json:"left,omitempty"`
	Right    []string `json:"right,omitempty"`
}

var placeholderLetters = []string{"А", "Б", "В", "Г", "Д"}

func placeholderRight(n int) []string {
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		letter := "?"
		if i < len(placeholderLetters) {
			letter = placeholderLetters[i]
		}
		out = append(out, "Подія "+letter)
	}
	return out
}

func (s *CatalogService) ListCategories() ([]model.Category, error) {
	return s.Repo.ListCategories()
}

func (s *CatalogService) ListTests(allowedCategories []string) ([]TestListItem, error) {
	items, err := s.cachedTestList()
	if err != nil {
		return nil, err
	}

	if allowedCategories == nil {
		return items, nil
	}

	allowed := make(map[string]bool, len(allowedCategories))
	for _, code := range allowedCategories {
		allowed[code] = true
	}

	filtered := make([]TestListItem, 0, len(items))
	for _, item := range items {
		if allowed[item.CategoryCode] {
			filtered = append(filtered, item)
		}
	}
	return filtered, nil
}

func (s *CatalogService) cachedTestList() ([]TestListItem, error) {
	ctx := context.Background()

	if s.Redis != nil {
		if raw, err := s.Redis.Get(ctx, catalogCacheKey).Bytes(); err == nil {
			var items []TestListItem
			if json.Unmarshal(raw, &items) == nil {
				return items, nil
			}
		}
	}

	tests, err := s.Repo.ListTests(nil, true)
	if err != nil {
		return nil, err
	}

	items := make([]TestListItem, 0, len(tests))
	for _, t := range tests {
		count, err := s.Repo.CountQuestions(t.ID)
		if err != nil {
			return nil, err
		}
		items = append(items, TestListItem{
			Slug:          t.Slug,
			Title:         t.Title,
			Description:   t.Description,
			CategoryCode:  t.CategoryCode,
			QuestionCount: int(count),
		})
	}

	if s.Redis != nil {
		if raw, err := json.Marshal(items); err == nil {
			if err := s.Redis.Set(ctx, catalogCacheKey, raw, s.cacheTTL).Err(); err != nil {
				logger.Log.Warn("catalog cache write failed", zap.Error(err))
			}
		}
	}
	return items, nil
}

// InvalidateCache drops the cached test list after admin edits.
func (s *CatalogService) InvalidateCache() {
	if s.Redis != nil {
		s.Redis.Del(context.Background(), catalogCacheKey)
	}
}

func (s *CatalogService) GetTest(slug string) (*model.Test, []StudentQuestion, error) {
	test, err := s.Repo.FindTestBySlug(slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, util.ErrTestNotFound
		}
		return nil, nil, err
	}

	questions, err := s.Repo.ListQuestions(test.ID)
	if err != nil {
		return nil, nil, err
	}

	out := make([]StudentQuestion, 0, len(questions))
	for _, q := range questions {
		gq := q.ToGrading()
		sq := StudentQuestion{
			Position: q.Position,
			Kind:     q.Kind,
			Prompt:   q.Prompt,
			Options:  gq.Options,
			Left:     gq.Left,
			Right:    gq.Right,
		}
		if len(q.Images) > 0 {
			_ = json.Unmarshal(q.Images, &sq.Images)
		}
		if (q.Kind == string(grading.Matching) || q.Kind == string(grading.Sequence)) && len(sq.Right) == 0 {
			sq.Right = placeholderRight(len(sq.Left))
		}
		out = append(out, sq)
	}
	return test, out, nil
}

func (s *CatalogService) CreateCategory(category *model.Category) error {
	return s.Repo.CreateCategory(category)
}

func (s *CatalogService) UpdateCategory(code, name, description string, order int, enabled *bool) (*model.Category, error) {
	category, err := s.Repo.FindCategoryByCode(code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCategoryNotFound
		}
		return nil, err
	}

	category.Name = name
	category.Description = description
	category.Order = order
	if enabled != nil {
		category.Enabled = *enabled
	}
	if err := s.Repo.UpdateCategory(category); err != nil {
		return nil, err
	}
	s.InvalidateCache()
	return category, nil
}

type TestInput struct {
	Slug         string `json:"slug" binding:"required,max=50"`
	Title        string `json:"title" binding:"required,max=255"`
	Description  string `json:"description"`
	CategoryCode string `json:"categoryCode" binding:"required"`
	Order        int    `json:"order"`
	IsPublished  bool   `json:"isPublished"`
}

func (s *CatalogService) CreateTest(input TestInput) (*model.Test, error) {
	if _, err := s.Repo.FindCategoryByCode(input.CategoryCode); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCategoryNotFound
		}
		return nil, err
	}

	test := &model.Test{
		Slug:         input.Slug,
		Title:        input.Title,
		Description:  input.Description,
		CategoryCode: input.CategoryCode,
		Order:        input.Order,
		IsPublished:  input.IsPublished,
	}
	if err := s.Repo.CreateTest(test); err != nil {
		return nil, err
	}
	s.InvalidateCache()
	return test, nil
}

func (s *CatalogService) UpdateTest(slug string, input TestInput) (*model.Test, error) {
	test, err := s.Repo.FindTestBySlug(slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrTestNotFound
		}
		return nil, err
	}

	test.Title = input.Title
	test.Description = input.Description
	test.CategoryCode = input.CategoryCode
	test.Order = input.Order
	test.IsPublished = input.IsPublished
	if err := s.Repo.UpdateTest(test); err != nil {
		return nil, err
	}
	s.InvalidateCache()
	return test, nil
}

func (s *CatalogService) DeleteTest(slug string) error {
	test, err := s.Repo.FindTestBySlug(slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrTestNotFound
		}
		return err
	}
	if err := s.Repo.DeleteTest(test.ID); err != nil {
		return err
	}
	s.InvalidateCache()
	return nil
}

func (s *CatalogService) SaveQuestion(slug string, question *model.Question) error {
	test, err := s.Repo.FindTestBySlug(slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrTestNotFound
		}
		return err
	}
	question.TestID = test.ID

	// Authored keys must grade cleanly before they are stored.
	if _, err := grading.Evaluate(question.ToGrading(), nil); err != nil {
		return err
	}

	existing, err := s.Repo.FindQuestion(test.ID, question.Position)
	if err == nil {
		question.ID = existing.ID
		question.CreatedAt = existing.CreatedAt
		err = s.Repo.UpdateQuestion(question)
	} else if errors.Is(err, gorm.ErrRecordNotFound) {
		err = s.Repo.CreateQuestion(question)
	}
	if err != nil {
		return err
	}
	s.InvalidateCache()
	return nil
}

func (s *CatalogService) DeleteQuestion(slug string, position int) error {
	test, err := s.Repo.FindTestBySlug(slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrTestNotFound
		}
		return err
	}
	question, err := s.Repo.FindQuestion(test.ID, position)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrQuestionNotFound
		}
		return err
	}
	if err := s.Repo.DeleteQuestion(question.ID); err != nil {
		return err
	}
	s.InvalidateCache()
	return nil
}

// TestDefs is the read-only catalog view the progress store consumes.
func (s *CatalogService) TestDefs() ([]progress.TestDef, error) {
	items, err := s.cachedTestList()
	if err != nil {
		return nil, err
	}

	defs := make([]progress.TestDef, 0, len(items))
	for _, item := range items {
		defs = append(defs, progress.TestDef{
			ID:            item.Slug,
			QuestionCount: item.QuestionCount,
		})
	}
	return defs, nil
}
