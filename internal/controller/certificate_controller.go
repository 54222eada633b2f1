package controller

import (
	"coder_edu_assessment/internal/service"
	"coder_edu_assessment/internal/util"

	"github.com/gin-gonic/gin"
)

type CertificateController struct {
	Service *service.CertificateService
}

func NewCertificateController(svc *service.CertificateService) *CertificateController {
	return &CertificateController{Service: svc}
}

// @Summary 申请结业证书
// @Description 系列全部课程完成后才可申请，重复申请返回同一证书
// @Tags 证书
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "系列ID"
// @Success 200 {object} util.Response{data=model.Certificate}
// @Failure 403 {object} util.Response
// @Router /series/{id}/certificate [post]
func (c *CertificateController) Request(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	seriesID, ok := uintParam(ctx, "id")
	if !ok {
		return
	}
	cert, err := c.Service.Request(ctx.Request.Context(), user.UserID, seriesID)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, cert)
}

// @Summary 我的证书
// @Tags 证书
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Certificate}
// @Router /certificates [get]
func (c *CertificateController) ListMine(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	list, err := c.Service.ListMine(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, list)
}
