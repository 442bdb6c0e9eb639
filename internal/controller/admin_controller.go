package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"nmt_prep_backend/internal/model"
	"nmt_prep_backend/internal/service"
	"nmt_prep_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AdminController struct {
	Users       *service.UserService
	Catalog     *service.CatalogService
	Permissions *service.PermissionService
	Statistics  *service.StatisticsService
	Storage     *service.StorageService
	Progress    *service.ProgressService
}

func NewAdminController(users *service.UserService, catalog *service.CatalogService, permissions *service.PermissionService, statistics *service.StatisticsService, storage *service.StorageService, progress *service.ProgressService) *AdminController {
	return &AdminController{
		Users:       users,
		Catalog:     catalog,
		Permissions: permissions,
		Statistics:  statistics,
		Storage:     storage,
		Progress:    progress,
	}
}

// ListUsers godoc
// @Summary Paged user list
// @Tags admin
// @Produce  json
// @Security BearerAuth
// @Param   page query int false "page, default 1"
// @Param   limit query int false "page size, default 20"
// @Success 200 {object} util.Response
// @Router /api/admin/users [get]
func (c *AdminController) ListUsers(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

	users, total, err := c.Users.List(page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"users": users, "total": total})
}

type SetDisabledRequest struct {
	Disabled bool `json:"disabled"`
}

// SetUserDisabled godoc
// @Summary Enable or disable an account
// @Tags admin
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "user id"
// @Param   body body SetDisabledRequest true "disabled flag"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/admin/users/{id}/disabled [put]
func (c *AdminController) SetUserDisabled(ctx *gin.Context) {
	userID, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "invalid user id")
		return
	}

	var req SetDisabledRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.Users.SetDisabled(uint(userID), req.Disabled); err != nil {
		if errors.Is(err, util.ErrUserNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, nil)
}

// DeleteUser godoc
// @Summary Delete an account with its progress and permissions
// @Tags admin
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "user id"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/admin/users/{id} [delete]
func (c *AdminController) DeleteUser(ctx *gin.Context) {
	userID, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "invalid user id")
		return
	}

	if err := c.Users.Delete(uint(userID)); err != nil {
		if errors.Is(err, util.ErrUserNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, nil)
}

type GrantPermissionRequest struct {
	Categories []string `json:"categories" binding:"required"`
}

// GrantPermission godoc
// @Summary Set the category list a student may access
// @Tags admin
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "user id"
// @Param   body body GrantPermissionRequest true "allowed category codes"
// @Success 200 {object} util.Response
// @Router /api/admin/users/{id}/permissions [put]
func (c *AdminController) GrantPermission(ctx *gin.Context) {
	userID, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "invalid user id")
		return
	}

	var req GrantPermissionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.Permissions.Grant(uint(userID), req.Categories); err != nil {
		if errors.Is(err, util.ErrUserNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, nil)
}

// RevokePermission godoc
// @Summary Remove the per-user category override
// @Tags admin
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "user id"
// @Success 200 {object} util.Response
// @Router /api/admin/users/{id}/permissions [delete]
func (c *AdminController) RevokePermission(ctx *gin.Context) {
	userID, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "invalid user id")
		return
	}

	if err := c.Permissions.Revoke(uint(userID)); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// ResetUserProgress godoc
// @Summary Wipe a student's recorded progress
// @Tags admin
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "user id"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/admin/users/{id}/progress/reset [post]
func (c *AdminController) ResetUserProgress(ctx *gin.Context) {
	userID, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "invalid user id")
		return
	}
	if _, err := c.Users.Get(uint(userID)); err != nil {
		if errors.Is(err, util.ErrUserNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	if _, err := c.Progress.Reset(uint(userID)); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	if err := c.Progress.Flush(uint(userID), "admin_reset"); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

type CategoryRequest struct {
	Code        string `json:"code" binding:"required,max=50"`
	Name        string `json:"name" binding:"required,max=255"`
	Description string `json:"description"`
	Order       int    `json:"order"`
	Enabled     *bool  `json:"enabled"`
}

// CreateCategory godoc
// @Summary Create a content category
// @Tags admin
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body CategoryRequest true "category data"
// @Success 201 {object} util.Response{data=model.Category}
// @Router /api/admin/categories [post]
func (c *AdminController) CreateCategory(ctx *gin.Context) {
	var req CategoryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	category := &model.Category{
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
		Order:       req.Order,
		Enabled:     req.Enabled == nil || *req.Enabled,
	}
	if err := c.Catalog.CreateCategory(category); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, category)
}

// UpdateCategory godoc
// @Summary Edit a content category
// @Tags admin
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   code path string true "category code"
// @Param   body body CategoryRequest true "category data"
// @Success 200 {object} util.Response{data=model.Category}
// @Failure 404 {object} util.Response
// @Router /api/admin/categories/{code} [put]
func (c *AdminController) UpdateCategory(ctx *gin.Context) {
	var req CategoryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	category, err := c.Catalog.UpdateCategory(ctx.Param("code"), req.Name, req.Description, req.Order, req.Enabled)
	if err != nil {
		if errors.Is(err, util.ErrCategoryNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, category)
}

// Statistics godoc
// @Summary Progress overview for every student
// @Tags admin
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]service.StudentStats}
// @Router /api/admin/statistics [get]
func (c *AdminController) StatisticsOverview(ctx *gin.Context) {
	stats, err := c.Statistics.Overview()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, stats)
}

// ExportStatistics godoc
// @Summary Download the progress overview as XLSX
// @Tags admin
// @Produce  application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Success 200 {file} binary
// @Router /api/admin/statistics/export [get]
func (c *AdminController) ExportStatistics(ctx *gin.Context) {
	buf, err := c.Statistics.ExportXLSX()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	filename := fmt.Sprintf("progress-%s.xlsx", time.Now().Format("2006-01-02"))
	ctx.Header("Content-Disposition", "attachment; filename="+filename)
	ctx.Data(200, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// CreateTest godoc
// @Summary Create a test
// @Tags admin
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body service.TestInput true "test data"
// @Success 201 {object} util.Response{data=model.Test}
// @Router /api/admin/tests [post]
func (c *AdminController) CreateTest(ctx *gin.Context) {
	var input service.TestInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	test, err := c.Catalog.CreateTest(input)
	if err != nil {
		if errors.Is(err, util.ErrCategoryNotFound) {
			util.BadRequest(ctx, "unknown category")
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Created(ctx, test)
}

// UpdateTest godoc
// @Summary Edit a test
// @Tags admin
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   slug path string true "test slug"
// @Param   body body service.TestInput true "test data"
// @Success 200 {object} util.Response{data=model.Test}
// @Failure 404 {object} util.Response
// @Router /api/admin/tests/{slug} [put]
func (c *AdminController) UpdateTest(ctx *gin.Context) {
	var input service.TestInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	test, err := c.Catalog.UpdateTest(ctx.Param("slug"), input)
	if err != nil {
		if errors.Is(err, util.ErrTestNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, test)
}

// DeleteTest godoc
// @Summary Delete a test with all its questions
// @Tags admin
// @Produce  json
// @Security BearerAuth
// @Param   slug path string true "test slug"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/admin/tests/{slug} [delete]
func (c *AdminController) DeleteTest(ctx *gin.Context) {
	if err := c.Catalog.DeleteTest(ctx.Param("slug")); err != nil {
		if errors.Is(err, util.ErrTestNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, nil)
}

// QuestionRequest carries the full authored question including the answer
// key. The stored model hides the key from student-facing JSON, so the
// admin surface needs its own shape.
type QuestionRequest struct {
	Position       int            `json:"position"`
	Kind           string         `json:"kind" binding:"required,oneof=single matching sequence"`
	Prompt         string         `json:"prompt" binding:"required"`
	Images         []string       `json:"images"`
	Options        []string       `json:"options"`
	Left           []string       `json:"left"`
	Right          []string       `json:"right"`
	CorrectSingle  *int           `json:"correctSingle"`
	CorrectMapping map[string]int `json:"correctMapping"`
	Explanation    string         `json:"explanation"`
}

func (r *QuestionRequest) toModel() *model.Question {
	q := &model.Question{
		Position:      r.Position,
		Kind:          r.Kind,
		Prompt:        r.Prompt,
		CorrectSingle: r.CorrectSingle,
		Explanation:   r.Explanation,
	}
	if len(r.Images) > 0 {
		q.Images, _ = json.Marshal(r.Images)
	}
	if len(r.Options) > 0 {
		q.Options, _ = json.Marshal(r.Options)
	}
	if len(r.Left) > 0 {
		q.LeftItems, _ = json.Marshal(r.Left)
	}
	if len(r.Right) > 0 {
		q.RightItems, _ = json.Marshal(r.Right)
	}
	if len(r.CorrectMapping) > 0 {
		q.CorrectMapping, _ = json.Marshal(r.CorrectMapping)
	}
	return q
}

// SaveQuestion godoc
// @Summary Create or replace a question at a position
// @Tags admin
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   slug path string true "test slug"
// @Param   body body QuestionRequest true "question with answer key"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/admin/tests/{slug}/questions [put]
func (c *AdminController) SaveQuestion(ctx *gin.Context) {
	var req QuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	question := req.toModel()
	if err := c.Catalog.SaveQuestion(ctx.Param("slug"), question); err != nil {
		if errors.Is(err, util.ErrTestNotFound) {
			util.NotFound(ctx)
		} else {
			util.BadRequest(ctx, err.Error())
		}
		return
	}
	util.Success(ctx, nil)
}

// DeleteQuestion godoc
// @Summary Delete a question
// @Tags admin
// @Produce  json
// @Security BearerAuth
// @Param   slug path string true "test slug"
// @Param   index path int true "question index"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/admin/tests/{slug}/questions/{index} [delete]
func (c *AdminController) DeleteQuestion(ctx *gin.Context) {
	index, err := strconv.Atoi(ctx.Param("index"))
	if err != nil {
		util.BadRequest(ctx, "invalid question index")
		return
	}

	if err := c.Catalog.DeleteQuestion(ctx.Param("slug"), index); err != nil {
		switch {
		case errors.Is(err, util.ErrTestNotFound), errors.Is(err, util.ErrQuestionNotFound):
			util.NotFound(ctx)
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, nil)
}

// UploadImage godoc
// @Summary Upload a question image
// @Tags admin
// @Accept  multipart/form-data
// @Produce  json
// @Security BearerAuth
// @Param   file formData file true "image file"
// @Success 200 {object} util.Response
// @Router /api/admin/uploads [post]
func (c *AdminController) UploadImage(ctx *gin.Context) {
	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "missing file")
		return
	}

	src, err := file.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer src.Close()

	filename := fmt.Sprintf("questions/%s%s", uuid.New().String(), fileExt(file.Filename))
	url, err := c.Storage.Upload(ctx.Request.Context(), filename, src, file.Size, file.Header.Get("Content-Type"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"url": url})
}

func fileExt(name string) string {
	for i := len(name) - 1; i >= 0 && name[i] != '/'; i-- {
		if name[i] == '.' {
			return name[i:]
		}
	}
	return ""
}
