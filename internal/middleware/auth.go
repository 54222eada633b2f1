package middleware

import (
	"coder_edu_assessment/internal/config"
	"coder_edu_assessment/internal/model"
	"coder_edu_assessment/internal/util"
	"coder_edu_assessment/pkg/logger"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// 容忍认证服务与本服务之间的时钟偏差
const clockSkew = 30 * time.Second

// AuthMiddleware 校验认证服务签发的 Bearer 令牌，配置了 issuer 时一并校验
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	opts := []jwt.ParserOption{jwt.WithLeeway(clockSkew)}
	if cfg.JWT.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.JWT.Issuer))
	}

	return func(c *gin.Context) {
		token, err := util.BearerToken(c.GetHeader("Authorization"))
		if err != nil {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		claims, err := util.ParseJWT(token, cfg.JWT.Secret, opts...)
		if err != nil {
			logger.Log.Debug("Rejected bearer token", zap.String("path", c.FullPath()), zap.Error(err))
			util.Unauthorized(c)
			c.Abort()
			return
		}

		c.Set(util.ContextUserKey, claims)
		c.Next()
	}
}

// RoleMiddleware 管理员拥有全部权限
func RoleMiddleware(roles ...model.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := util.GetUserFromContext(c)
		if user == nil {
			util.Unauthorized(c)
			c.Abort()
			return
		}
		if user.Role != model.Admin && !slices.Contains(roles, user.Role) {
			logger.Log.Info("Role check failed",
				zap.Uint("userId", user.UserID), zap.String("role", string(user.Role)), zap.String("path", c.FullPath()))
			util.Forbidden(c)
			c.Abort()
			return
		}
		c.Next()
	}
}
