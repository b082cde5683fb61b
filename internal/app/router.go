package app

import (
	"institute_backend/docs"
	"institute_backend/internal/config"
	"institute_backend/internal/middleware"
	"institute_backend/internal/model"
	"institute_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	router.GET("/api/health", c.health.HealthCheck)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		registerExamRoutes(authGroup, c)
		registerResultRoutes(authGroup, c)

		teacher := authGroup.Group("/teacher")
		teacher.Use(middleware.RoleMiddleware(model.Teacher))
		{
			teacher.GET("/tests/:testId/standings", c.result.Standings)
		}
	}
}

func registerExamRoutes(group *gin.RouterGroup, c *controllers) {
	session := group.Group("/exams/:testId/session")
	{
		session.POST("", c.exam.OpenSession)
		session.GET("", c.exam.GetSession)
		session.PUT("/answers/:index", c.exam.SetAnswer)
		session.POST("/review/:index", c.exam.ToggleReview)
		session.POST("/submit", c.exam.Submit)
		session.GET("/stream", c.exam.Stream)
	}
}

func registerResultRoutes(group *gin.RouterGroup, c *controllers) {
	results := group.Group("/results")
	{
		results.GET("/me", c.result.MyResults)
		results.GET("/:id", c.result.GetResult)
		results.GET("/:id/rank", c.result.GetRank)
	}
}
