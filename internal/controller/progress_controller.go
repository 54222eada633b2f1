package controller

import (
	"coder_edu_assessment/internal/service"
	"coder_edu_assessment/internal/util"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	Service *service.ProgressService
}

func NewProgressController(svc *service.ProgressService) *ProgressController {
	return &ProgressController{Service: svc}
}

// @Summary 我的系列进度
// @Tags 学习进度
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "系列ID"
// @Success 200 {object} util.Response{data=service.SeriesProgress}
// @Router /series/{id}/progress [get]
func (c *ProgressController) GetSeriesProgress(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	seriesID, ok := uintParam(ctx, "id")
	if !ok {
		return
	}
	p, err := c.Service.GetSeriesProgress(ctx.Request.Context(), user.UserID, seriesID)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, p)
}

// @Summary 系列是否已完成
// @Description 证书服务调用的唯一检查
// @Tags 学习进度
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "系列ID"
// @Param userId path int true "用户ID"
// @Success 200 {object} util.Response
// @Router /admin/series/{id}/users/{userId}/completion [get]
func (c *ProgressController) SeriesCompletion(ctx *gin.Context) {
	seriesID, ok := uintParam(ctx, "id")
	if !ok {
		return
	}
	userID, ok := uintParam(ctx, "userId")
	if !ok {
		return
	}
	complete, err := c.Service.IsSeriesComplete(ctx.Request.Context(), userID, seriesID)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"seriesId": seriesID, "userId": userID, "complete": complete})
}

// @Summary 将课程标记为完成
// @Tags 学习进度
// @Produce json
// @Security ApiKeyAuth
// @Param courseId path int true "课程ID"
// @Param userId path int true "用户ID"
// @Success 200 {object} util.Response{data=model.CourseProgress}
// @Router /admin/courses/{courseId}/users/{userId}/complete [post]
func (c *ProgressController) MarkCourseComplete(ctx *gin.Context) {
	courseID, ok := uintParam(ctx, "courseId")
	if !ok {
		return
	}
	userID, ok := uintParam(ctx, "userId")
	if !ok {
		return
	}
	cp, err := c.Service.MarkCourseComplete(ctx.Request.Context(), userID, courseID)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, cp)
}

// @Summary 重新计算所有进行中报名的进度
// @Tags 学习进度
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /admin/progress/reconcile [post]
func (c *ProgressController) Reconcile(ctx *gin.Context) {
	n, err := c.Service.ReconcileAll(ctx.Request.Context())
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"processed": n})
}
