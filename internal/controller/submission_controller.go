package controller

import (
	"coder_edu_assessment/internal/service"
	"coder_edu_assessment/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type SubmissionController struct {
	Service *service.SubmissionService
}

func NewSubmissionController(svc *service.SubmissionService) *SubmissionController {
	return &SubmissionController{Service: svc}
}

// @Summary 获取提交详情
// @Description 学生只能查看自己的提交
// @Tags 提交
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "提交ID"
// @Success 200 {object} util.Response{data=model.Submission}
// @Router /submissions/{id} [get]
func (c *SubmissionController) Get(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := uintParam(ctx, "id")
	if !ok {
		return
	}

	sub, err := c.Service.Get(ctx.Request.Context(), user, id)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, sub)
}

// @Summary 获取我在某测评上的提交
// @Tags 提交
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "测评ID"
// @Success 200 {object} util.Response{data=model.Submission}
// @Router /assessments/{id}/my-submission [get]
func (c *SubmissionController) GetMine(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	assessmentID, ok := uintParam(ctx, "id")
	if !ok {
		return
	}

	sub, err := c.Service.GetMine(ctx.Request.Context(), user.UserID, assessmentID)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, sub)
}

// @Summary 测评的提交列表
// @Tags 提交
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "测评ID"
// @Param status query string false "SUBMITTED 或 GRADED"
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(20)
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /teacher/assessments/{id}/submissions [get]
func (c *SubmissionController) List(ctx *gin.Context) {
	assessmentID, ok := uintParam(ctx, "id")
	if !ok {
		return
	}
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

	list, total, err := c.Service.List(ctx.Request.Context(), assessmentID, ctx.Query("status"), page, limit)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: list, Total: total, Page: page, Limit: limit})
}
