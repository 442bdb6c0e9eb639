package controller

import (
	"errors"
	"strconv"

	"nmt_prep_backend/internal/grading"
	"nmt_prep_backend/internal/service"
	"nmt_prep_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type TestController struct {
	Catalog     *service.CatalogService
	Testing     *service.TestingService
	Permissions *service.PermissionService
}

func NewTestController(catalog *service.CatalogService, testing *service.TestingService, permissions *service.PermissionService) *TestController {
	return &TestController{Catalog: catalog, Testing: testing, Permissions: permissions}
}

// ListCategories godoc
// @Summary List content categories
// @Tags tests
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]model.Category}
// @Router /api/categories [get]
func (c *TestController) ListCategories(ctx *gin.Context) {
	categories, err := c.Catalog.ListCategories()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, categories)
}

// ListTests godoc
// @Summary List tests visible to the caller
// @Tags tests
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]service.TestListItem}
// @Router /api/tests [get]
func (c *TestController) ListTests(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	allowed, err := c.Permissions.AllowedCategories(claims)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	tests, err := c.Catalog.ListTests(allowed)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, tests)
}

// GetTest godoc
// @Summary Fetch one test with its questions, answer keys stripped
// @Tags tests
// @Produce  json
// @Security BearerAuth
// @Param   slug path string true "test slug"
// @Success 200 {object} util.Response
// @Failure 403 {object} util.Response "category not accessible"
// @Failure 404 {object} util.Response
// @Router /api/tests/{slug} [get]
func (c *TestController) GetTest(ctx *gin.Context) {
	slug := ctx.Param("slug")
	test, questions, err := c.Catalog.GetTest(slug)
	if err != nil {
		if errors.Is(err, util.ErrTestNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	claims := util.GetUserFromContext(ctx)
	ok, err := c.Permissions.CanAccessCategory(claims, test.CategoryCode)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	if !ok {
		util.Forbidden(ctx)
		return
	}

	util.Success(ctx, gin.H{
		"slug":      test.Slug,
		"title":     test.Title,
		"questions": questions,
	})
}

type CheckAnswerRequest struct {
	// Empty means the question was left unanswered, which grades as wrong.
	Answer map[int]int `json:"answer"`
}

// CheckAnswer godoc
// @Summary Grade a submitted answer
// @Description Grades the answer, records the attempt and updates progress.
// @Tags tests
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   slug path string true "test slug"
// @Param   index path int true "question index"
// @Param   body body CheckAnswerRequest true "selected answer"
// @Success 200 {object} util.Response{data=service.CheckResult}
// @Failure 404 {object} util.Response
// @Router /api/tests/{slug}/questions/{index}/check [post]
func (c *TestController) CheckAnswer(ctx *gin.Context) {
	slug := ctx.Param("slug")
	index, err := strconv.Atoi(ctx.Param("index"))
	if err != nil || index < 0 {
		util.BadRequest(ctx, "invalid question index")
		return
	}

	var req CheckAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	result, err := c.Testing.CheckAnswer(claims.UserID, slug, index, grading.Answer(req.Answer))
	if err != nil {
		switch {
		case errors.Is(err, util.ErrTestNotFound), errors.Is(err, util.ErrQuestionNotFound):
			util.NotFound(ctx)
		case errors.Is(err, grading.ErrUnsupportedKind), errors.Is(err, grading.ErrMalformedQuestion):
			util.BadRequest(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, result)
}

// RecentAttempts godoc
// @Summary Recent graded attempts of the caller
// @Tags tests
// @Produce  json
// @Security BearerAuth
// @Param   limit query int false "max rows, default 50"
// @Success 200 {object} util.Response{data=[]model.AttemptLog}
// @Router /api/attempts [get]
func (c *TestController) RecentAttempts(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "50"))

	attempts, err := c.Testing.RecentAttempts(claims.UserID, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, attempts)
}
