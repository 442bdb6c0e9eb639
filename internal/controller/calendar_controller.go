package controller

import (
	"errors"

	"nmt_prep_backend/internal/service"
	"nmt_prep_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CalendarController struct {
	Calendar *service.CalendarService
}

func NewCalendarController(calendar *service.CalendarService) *CalendarController {
	return &CalendarController{Calendar: calendar}
}

// ListLessons godoc
// @Summary Lessons visible to the caller
// @Description Admins see the whole calendar, students only their own lessons.
// @Tags calendar
// @Produce  json
// @Security BearerAuth
// @Param   start query string false "range start, YYYY-MM-DD"
// @Param   end query string false "range end, YYYY-MM-DD"
// @Success 200 {object} util.Response{data=[]model.Lesson}
// @Router /api/calendar/lessons [get]
func (c *CalendarController) ListLessons(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	start := ctx.Query("start")
	end := ctx.Query("end")

	var err error
	var lessons interface{}
	if start != "" && end != "" {
		lessons, err = c.Calendar.ListRange(claims, start, end)
	} else {
		lessons, err = c.Calendar.ListFor(claims)
	}
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	util.Success(ctx, lessons)
}

// CreateLesson godoc
// @Summary Schedule a lesson
// @Tags calendar
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body service.LessonInput true "lesson data"
// @Success 201 {object} util.Response{data=model.Lesson}
// @Router /api/admin/calendar/lessons [post]
func (c *CalendarController) CreateLesson(ctx *gin.Context) {
	var input service.LessonInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	lesson, err := c.Calendar.Create(input, claims.Email)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	util.Created(ctx, lesson)
}

// UpdateLesson godoc
// @Summary Edit a scheduled lesson
// @Tags calendar
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path string true "lesson id"
// @Param   body body service.LessonInput true "lesson data"
// @Success 200 {object} util.Response{data=model.Lesson}
// @Failure 404 {object} util.Response
// @Router /api/admin/calendar/lessons/{id} [put]
func (c *CalendarController) UpdateLesson(ctx *gin.Context) {
	var input service.LessonInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	lesson, err := c.Calendar.Update(ctx.Param("id"), input)
	if err != nil {
		if errors.Is(err, util.ErrLessonNotFound) {
			util.NotFound(ctx)
		} else {
			util.BadRequest(ctx, err.Error())
		}
		return
	}
	util.Success(ctx, lesson)
}

// DeleteLesson godoc
// @Summary Remove a lesson from the calendar
// @Tags calendar
// @Produce  json
// @Security BearerAuth
// @Param   id path string true "lesson id"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/admin/calendar/lessons/{id} [delete]
func (c *CalendarController) DeleteLesson(ctx *gin.Context) {
	if err := c.Calendar.Delete(ctx.Param("id")); err != nil {
		if errors.Is(err, util.ErrLessonNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, nil)
}
