package controller

import (
	"errors"
	"fmt"

	"nmt_prep_backend/internal/service"
	"nmt_prep_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type UserController struct {
	Users   *service.UserService
	Storage *service.StorageService
}

func NewUserController(users *service.UserService, storage *service.StorageService) *UserController {
	return &UserController{Users: users, Storage: storage}
}

// UpdateProfile godoc
// @Summary Update name, password or avatar URL of the caller
// @Tags users
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body service.UpdateUserInput true "profile changes"
// @Success 200 {object} util.Response{data=model.User}
// @Router /api/user/profile [put]
func (c *UserController) UpdateProfile(ctx *gin.Context) {
	var input service.UpdateUserInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	user, err := c.Users.Update(claims.UserID, input)
	if err != nil {
		if errors.Is(err, util.ErrUserNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, user)
}

// UploadAvatar godoc
// @Summary Upload an avatar image for the caller
// @Tags users
// @Accept  multipart/form-data
// @Produce  json
// @Security BearerAuth
// @Param   file formData file true "avatar image"
// @Success 200 {object} util.Response
// @Router /api/user/avatar/upload [post]
func (c *UserController) UploadAvatar(ctx *gin.Context) {
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

	claims := util.GetUserFromContext(ctx)
	filename := fmt.Sprintf("avatars/%s%s", uuid.New().String(), fileExt(file.Filename))
	url, err := c.Storage.Upload(ctx.Request.Context(), filename, src, file.Size, file.Header.Get("Content-Type"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	if _, err := c.Users.Update(claims.UserID, service.UpdateUserInput{Avatar: url}); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"url": url})
}
