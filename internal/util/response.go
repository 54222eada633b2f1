package util

import (
	"coder_edu_assessment/pkg/logger"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response 统一响应结构，错误响应带 kind 供客户端分支处理
type Response struct {
	Code    int         `json:"code"`
	Kind    string      `json:"kind,omitempty"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type PageResponse struct {
	List  interface{} `json:"list"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: http.StatusOK, Message: "success", Data: data})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Code: http.StatusCreated, Message: "created", Data: data})
}

func Error(c *gin.Context, code int, kind, message string) {
	c.JSON(code, Response{Code: code, Kind: kind, Message: message})
}

func Unauthorized(c *gin.Context) {
	Error(c, http.StatusUnauthorized, KindUnauthenticated, "Unauthorized")
}

func Forbidden(c *gin.Context) {
	Error(c, http.StatusForbidden, KindForbidden, "Forbidden")
}

// BadRequest 请求体或参数无法解析
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, KindInvalidArgument, message)
}

// HandleServiceError 将业务错误映射为带 kind 的结构化响应，内部错误不回显细节
func HandleServiceError(c *gin.Context, err error) {
	kind, status := classify(err)
	if status >= http.StatusInternalServerError {
		logger.Log.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		Error(c, status, kind, "Internal server error")
		return
	}
	Error(c, status, kind, err.Error())
}
