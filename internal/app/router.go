package app

import (
	"pcq_backend/docs"
	"pcq_backend/internal/config"
	"pcq_backend/internal/middleware"
	"pcq_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())
	router.GET("/health", c.health.HealthCheck)

	// 所有业务接口都要求 S2S 令牌，再按调用方服务名分组授权
	pcq := router.Group("/pcq/backend")
	pcq.Use(middleware.ServiceAuthMiddleware(cfg))
	{
		a.registerSubmissionRoutes(pcq, c, cfg)
		a.registerConsolidationRoutes(pcq, c, cfg)
		a.registerAdminRoutes(pcq, c, cfg)

		pcq.GET("/token/bulkscan", middleware.AllowServices(cfg.S2S.BulkScanServices...), c.token.BulkScanToken)
	}
}

func (a *App) registerSubmissionRoutes(group *gin.RouterGroup, c *controllers, cfg *config.Config) {
	group.POST("/submitAnswers", middleware.AllowServices(cfg.S2S.SubmitServices...), c.pcq.SubmitAnswers)
}

func (a *App) registerConsolidationRoutes(group *gin.RouterGroup, c *controllers, cfg *config.Config) {
	consolidation := group.Group("/consolidation")
	consolidation.Use(middleware.AllowServices(cfg.S2S.ConsolidationServices...))
	{
		consolidation.PUT("/addCaseForPCQ/:pcqId", c.consolidation.AddCaseForPcq)
		consolidation.GET("/pcqRecordWithoutCase", c.consolidation.RecordsWithoutCase)
		consolidation.GET("/pcqRecordForCase/:caseId", c.consolidation.RecordsForCase)
	}
}

func (a *App) registerAdminRoutes(group *gin.RouterGroup, c *controllers, cfg *config.Config) {
	admin := middleware.AllowServices(cfg.S2S.AdminServices...)
	group.GET("/getAnswer/:pcqId", admin, c.pcq.GetAnswer)
	group.DELETE("/deletePcqRecord/:pcqId", admin, c.pcq.DeleteAnswer)
}
