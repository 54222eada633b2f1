package controller

import (
	"coder_edu_assessment/internal/service"
	"coder_edu_assessment/internal/util"

	"github.com/gin-gonic/gin"
)

type AssessmentController struct {
	Service *service.AssessmentService
}

func NewAssessmentController(svc *service.AssessmentService) *AssessmentController {
	return &AssessmentController{Service: svc}
}

// @Summary 创建测评
// @Tags 测评管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.CreateAssessmentRequest true "测评"
// @Success 201 {object} util.Response{data=model.Assessment}
// @Router /teacher/assessments [post]
func (c *AssessmentController) Create(ctx *gin.Context) {
	var req service.CreateAssessmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	a, err := c.Service.Create(ctx.Request.Context(), req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Created(ctx, a)
}

// @Summary 获取测评（含答案）
// @Tags 测评管理
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "测评ID"
// @Success 200 {object} util.Response{data=model.Assessment}
// @Router /teacher/assessments/{id} [get]
func (c *AssessmentController) Get(ctx *gin.Context) {
	id, ok := uintParam(ctx, "id")
	if !ok {
		return
	}
	a, err := c.Service.Get(ctx.Request.Context(), id)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, a)
}

// @Summary 更新测评（发布、锁定、截止时间）
// @Tags 测评管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "测评ID"
// @Param body body service.UpdateAssessmentRequest true "更新内容"
// @Success 200 {object} util.Response{data=model.Assessment}
// @Router /teacher/assessments/{id} [patch]
func (c *AssessmentController) Update(ctx *gin.Context) {
	id, ok := uintParam(ctx, "id")
	if !ok {
		return
	}
	var req service.UpdateAssessmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	a, err := c.Service.Update(ctx.Request.Context(), id, req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, a)
}

// @Summary 更新题目
// @Description 已完成的评分不受影响，之后的评分使用新分值
// @Tags 测评管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "测评ID"
// @Param questionId path int true "题目ID"
// @Param body body service.UpdateQuestionRequest true "更新内容"
// @Success 200 {object} util.Response{data=model.Question}
// @Router /teacher/assessments/{id}/questions/{questionId} [patch]
func (c *AssessmentController) UpdateQuestion(ctx *gin.Context) {
	id, ok := uintParam(ctx, "id")
	if !ok {
		return
	}
	questionID, ok := uintParam(ctx, "questionId")
	if !ok {
		return
	}
	var req service.UpdateQuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	q, err := c.Service.UpdateQuestion(ctx.Request.Context(), id, questionID, req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, q)
}

// @Summary 获取测评（学生视图）
// @Tags 测评
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "测评ID"
// @Success 200 {object} util.Response{data=service.AssessmentView}
// @Router /assessments/{id} [get]
func (c *AssessmentController) GetForStudent(ctx *gin.Context) {
	id, ok := uintParam(ctx, "id")
	if !ok {
		return
	}
	view, err := c.Service.GetForStudent(ctx.Request.Context(), id)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// @Summary 课程下已发布的测评
// @Tags 测评
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "课程ID"
// @Success 200 {object} util.Response{data=[]model.Assessment}
// @Router /courses/{id}/assessments [get]
func (c *AssessmentController) ListByCourse(ctx *gin.Context) {
	courseID, ok := uintParam(ctx, "id")
	if !ok {
		return
	}
	list, err := c.Service.ListByCourse(ctx.Request.Context(), courseID, true)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, list)
}
