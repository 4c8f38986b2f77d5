package middleware

import (
	"strings"

	"pcq_backend/internal/config"
	"pcq_backend/internal/util"
	"pcq_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ServiceAuthMiddleware 校验 ServiceAuthorization 头中的 S2S 令牌
func ServiceAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := strings.TrimSpace(c.GetHeader(util.ServiceAuthorizationHeader))
		tokenString = strings.TrimPrefix(tokenString, util.BearerPrefix)

		if tokenString == "" {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		claims, err := util.ParseServiceToken(tokenString, cfg.S2S.Secret)
		if err != nil {
			logger.Log.Warn("Invalid service token", zap.String("path", c.FullPath()), zap.Error(err))
			util.Unauthorized(c)
			c.Abort()
			return
		}

		c.Set("service", claims)
		c.Next()
	}
}

// AllowServices 只允许列表中的服务访问；列表为空时拒绝所有调用
func AllowServices(services ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(services))
	for _, s := range services {
		allowed[strings.TrimSpace(s)] = true
	}

	return func(c *gin.Context) {
		service := util.GetServiceFromContext(c)
		if service == "" {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		if !allowed[service] {
			logger.Log.Warn("Service not allowed",
				zap.String("service", service),
				zap.String("path", c.FullPath()),
			)
			util.Forbidden(c)
			c.Abort()
			return
		}
		c.Next()
	}
}
