package controller

import (
	"coder_edu_assessment/internal/util"

	"github.com/gin-gonic/gin"
)

// uintParam 解析路径参数，失败时直接写回 400
func uintParam(ctx *gin.Context, name string) (uint, bool) {
	id, err := util.ParseID(ctx.Param(name))
	if err != nil {
		util.BadRequest(ctx, "invalid "+name)
		return 0, false
	}
	return id, true
}

func currentUser(ctx *gin.Context) (*util.Claims, bool) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return nil, false
	}
	return user, true
}
