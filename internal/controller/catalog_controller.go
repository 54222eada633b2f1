package controller

import (
	"coder_edu_assessment/internal/service"
	"coder_edu_assessment/internal/util"

	"github.com/gin-gonic/gin"
)

type CatalogController struct {
	Service  *service.CatalogService
	Progress *service.ProgressService
}

func NewCatalogController(svc *service.CatalogService, progress *service.ProgressService) *CatalogController {
	return &CatalogController{Service: svc, Progress: progress}
}

// @Summary 创建系列
// @Tags 课程目录
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.CreateSeriesRequest true "系列"
// @Success 201 {object} util.Response{data=model.Series}
// @Router /teacher/series [post]
func (c *CatalogController) CreateSeries(ctx *gin.Context) {
	var req service.CreateSeriesRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	series, err := c.Service.CreateSeries(ctx.Request.Context(), req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Created(ctx, series)
}

// @Summary 获取系列（含课程与课时）
// @Tags 课程目录
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "系列ID"
// @Success 200 {object} util.Response{data=model.Series}
// @Router /series/{id} [get]
func (c *CatalogController) GetSeries(ctx *gin.Context) {
	id, ok := uintParam(ctx, "id")
	if !ok {
		return
	}
	series, err := c.Service.GetSeries(ctx.Request.Context(), id)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, series)
}

// @Summary 创建课程
// @Tags 课程目录
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "系列ID"
// @Param body body service.CreateCourseRequest true "课程"
// @Success 201 {object} util.Response{data=model.Course}
// @Router /teacher/series/{id}/courses [post]
func (c *CatalogController) CreateCourse(ctx *gin.Context) {
	seriesID, ok := uintParam(ctx, "id")
	if !ok {
		return
	}
	var req service.CreateCourseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	course, err := c.Service.CreateCourse(ctx.Request.Context(), seriesID, req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Created(ctx, course)
}

// @Summary 创建课时
// @Tags 课程目录
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "课程ID"
// @Param body body service.CreateLessonRequest true "课时"
// @Success 201 {object} util.Response{data=model.Lesson}
// @Router /teacher/courses/{id}/lessons [post]
func (c *CatalogController) CreateLesson(ctx *gin.Context) {
	courseID, ok := uintParam(ctx, "id")
	if !ok {
		return
	}
	var req service.CreateLessonRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	lesson, err := c.Service.CreateLesson(ctx.Request.Context(), courseID, req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Created(ctx, lesson)
}

// @Summary 报名系列
// @Tags 课程目录
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "系列ID"
// @Success 200 {object} util.Response{data=model.Enrollment}
// @Router /series/{id}/enroll [post]
func (c *CatalogController) Enroll(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	seriesID, ok := uintParam(ctx, "id")
	if !ok {
		return
	}
	c.Progress.SyncUser(ctx.Request.Context(), user)
	e, err := c.Progress.Enroll(ctx.Request.Context(), user.UserID, seriesID)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, e)
}

// @Summary 完成课时
// @Tags 课程目录
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "课时ID"
// @Success 200 {object} util.Response
// @Router /lessons/{id}/complete [post]
func (c *CatalogController) CompleteLesson(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	lessonID, ok := uintParam(ctx, "id")
	if !ok {
		return
	}
	if err := c.Progress.MarkLessonComplete(ctx.Request.Context(), user.UserID, lessonID); err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"lessonId": lessonID, "completed": true})
}
