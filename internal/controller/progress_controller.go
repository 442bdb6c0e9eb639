package controller

import (
	"nmt_prep_backend/internal/service"
	"nmt_prep_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	Progress *service.ProgressService
}

func NewProgressController(progress *service.ProgressService) *ProgressController {
	return &ProgressController{Progress: progress}
}

// GetProgress godoc
// @Summary Full per-test progress snapshot of the caller
// @Tags progress
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/progress [get]
func (c *ProgressController) GetProgress(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	snapshot, err := c.Progress.Snapshot(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, snapshot)
}

// GetSummary godoc
// @Summary Aggregate progress counters for the dashboard ring
// @Tags progress
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=progress.Summary}
// @Router /api/progress/summary [get]
func (c *ProgressController) GetSummary(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	summary, err := c.Progress.Summary(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, summary)
}

// GetStatus godoc
// @Summary Save indicator state, idle, saving, saved or error
// @Tags progress
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/progress/status [get]
func (c *ProgressController) GetStatus(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	util.Success(ctx, gin.H{"status": c.Progress.Status(claims.UserID)})
}

// Flush godoc
// @Summary Persist the snapshot immediately
// @Description Used by the client on tab close instead of waiting for the timer.
// @Tags progress
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/progress/save [post]
func (c *ProgressController) Flush(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if err := c.Progress.Flush(claims.UserID, "manual"); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"status": c.Progress.Status(claims.UserID)})
}

// Reset godoc
// @Summary Wipe all recorded progress of the caller
// @Tags progress
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/progress/reset [post]
func (c *ProgressController) Reset(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	snapshot, err := c.Progress.Reset(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, snapshot)
}
