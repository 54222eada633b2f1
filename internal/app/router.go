package app

import (
	"coder_edu_assessment/docs"
	"coder_edu_assessment/internal/config"
	"coder_edu_assessment/internal/middleware"
	"coder_edu_assessment/internal/model"
	"coder_edu_assessment/pkg/monitoring"

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
		registerStudentRoutes(authGroup, c)
		registerTeacherRoutes(authGroup, c)
		registerAdminRoutes(authGroup, c)
	}
}

func registerStudentRoutes(rg *gin.RouterGroup, c *controllers) {
	// 目录与报名
	rg.GET("/series/:id", c.catalog.GetSeries)
	rg.POST("/series/:id/enroll", c.catalog.Enroll)
	rg.POST("/lessons/:id/complete", c.catalog.CompleteLesson)

	// 测评
	rg.GET("/courses/:id/assessments", c.assessment.ListByCourse)
	rg.GET("/assessments/:id", c.assessment.GetForStudent)
	rg.GET("/assessments/:id/my-submission", c.submission.GetMine)
	rg.POST("/quizzes/:id/submissions", c.quiz.Submit)
	rg.POST("/assignments/:id/submissions", c.assignment.Submit)
	rg.GET("/submissions/:id", c.submission.Get)
	rg.POST("/submissions/:id/answers/:questionId/attachment", c.assignment.UploadAttachment)

	// 进度与证书
	rg.GET("/series/:id/progress", c.progress.GetSeriesProgress)
	rg.POST("/series/:id/certificate", c.certificate.Request)
	rg.GET("/certificates", c.certificate.ListMine)
}

func registerTeacherRoutes(rg *gin.RouterGroup, c *controllers) {
	teacher := rg.Group("/teacher")
	teacher.Use(middleware.RoleMiddleware(model.Teacher))
	{
		teacher.POST("/series", c.catalog.CreateSeries)
		teacher.POST("/series/:id/courses", c.catalog.CreateCourse)
		teacher.POST("/courses/:id/lessons", c.catalog.CreateLesson)

		teacher.POST("/assessments", c.assessment.Create)
		teacher.GET("/assessments/:id", c.assessment.Get)
		teacher.PATCH("/assessments/:id", c.assessment.Update)
		teacher.PATCH("/assessments/:id/questions/:questionId", c.assessment.UpdateQuestion)
		teacher.GET("/assessments/:id/submissions", c.submission.List)

		teacher.POST("/submissions/:id/grade", c.assignment.Grade)
		teacher.POST("/submissions/:id/regrade", c.assignment.Regrade)
	}
}

func registerAdminRoutes(rg *gin.RouterGroup, c *controllers) {
	admin := rg.Group("/admin")
	admin.Use(middleware.RoleMiddleware(model.Admin))
	{
		admin.GET("/series/:id/users/:userId/completion", c.progress.SeriesCompletion)
		admin.POST("/courses/:courseId/users/:userId/complete", c.progress.MarkCourseComplete)
		admin.POST("/progress/reconcile", c.progress.Reconcile)
	}
}
