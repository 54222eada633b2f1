package controller

import (
	"coder_edu_assessment/internal/service"
	"coder_edu_assessment/internal/util"
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

type AssignmentController struct {
	Service *service.AssignmentService
}

func NewAssignmentController(svc *service.AssignmentService) *AssignmentController {
	return &AssignmentController{Service: svc}
}

type SubmitAssignmentRequest struct {
	Answers []service.AssignmentAnswerInput `json:"answers" binding:"dive"`
}

type GradeRequest struct {
	Answers         []service.MarkInput `json:"answers" binding:"required,dive"`
	OverallFeedback *string             `json:"overallFeedback"`
}

// @Summary 提交作业
// @Tags 作业
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "作业ID"
// @Param body body SubmitAssignmentRequest true "答案"
// @Success 201 {object} util.Response{data=service.SubmissionResult}
// @Router /assignments/{id}/submissions [post]
func (c *AssignmentController) Submit(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	assignmentID, ok := uintParam(ctx, "id")
	if !ok {
		return
	}

	var req SubmitAssignmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.Service.Submit(ctx.Request.Context(), user.UserID, assignmentID, req.Answers)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Created(ctx, result)
}

// @Summary 首次评分
// @Description 总分为本次提交分数之和
// @Tags 作业
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "提交ID"
// @Param body body GradeRequest true "评分"
// @Success 200 {object} util.Response{data=service.SubmissionResult}
// @Router /teacher/submissions/{id}/grade [post]
func (c *AssignmentController) Grade(ctx *gin.Context) {
	c.grade(ctx, c.Service.Grade)
}

// @Summary 重新评分
// @Description 只更新已有作答，总分按全部作答重新汇总
// @Tags 作业
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "提交ID"
// @Param body body GradeRequest true "评分"
// @Success 200 {object} util.Response{data=service.SubmissionResult}
// @Failure 409 {object} util.Response
// @Router /teacher/submissions/{id}/regrade [post]
func (c *AssignmentController) Regrade(ctx *gin.Context) {
	c.grade(ctx, c.Service.Regrade)
}

type gradeFunc func(ctx context.Context, submissionID uint, marks []service.MarkInput, overallFeedback *string) (*service.SubmissionResult, error)

func (c *AssignmentController) grade(ctx *gin.Context, fn gradeFunc) {
	submissionID, ok := uintParam(ctx, "id")
	if !ok {
		return
	}

	var req GradeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := fn(ctx.Request.Context(), submissionID, req.Answers, req.OverallFeedback)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// @Summary 上传作业附件
// @Tags 作业
// @Accept multipart/form-data
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "提交ID"
// @Param questionId path int true "题目ID"
// @Param file formData file true "附件"
// @Success 200 {object} util.Response{data=model.Answer}
// @Router /submissions/{id}/answers/{questionId}/attachment [post]
func (c *AssignmentController) UploadAttachment(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	submissionID, ok := uintParam(ctx, "id")
	if !ok {
		return
	}
	questionID, ok := uintParam(ctx, "questionId")
	if !ok {
		return
	}

	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, util.MaxAttachmentSize+1<<20)
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		util.HandleServiceError(ctx, fmt.Errorf("%w: open upload: %v", util.ErrStorage, err))
		return
	}
	defer file.Close()

	answer, err := c.Service.AttachFile(ctx.Request.Context(), user.UserID, submissionID, questionID, fileHeader.Filename, fileHeader.Size, file)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, answer)
}
