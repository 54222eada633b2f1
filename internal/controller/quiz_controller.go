package controller

import (
	"coder_edu_assessment/internal/service"
	"coder_edu_assessment/internal/util"

	"github.com/gin-gonic/gin"
)

type QuizController struct {
	Service *service.QuizService
}

func NewQuizController(svc *service.QuizService) *QuizController {
	return &QuizController{Service: svc}
}

type SubmitQuizRequest struct {
	Answers []service.QuizAnswerInput `json:"answers" binding:"dive"`
}

// @Summary 提交测验
// @Description 自动评分，每个学生每个测验只能提交一次
// @Tags 测验
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "测验ID"
// @Param body body SubmitQuizRequest true "答案"
// @Success 201 {object} util.Response{data=service.SubmissionResult}
// @Failure 409 {object} util.Response
// @Router /quizzes/{id}/submissions [post]
func (c *QuizController) Submit(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	quizID, ok := uintParam(ctx, "id")
	if !ok {
		return
	}

	var req SubmitQuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.Service.Submit(ctx.Request.Context(), user.UserID, quizID, req.Answers)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Created(ctx, result)
}
