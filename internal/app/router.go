package app

import (
	"nmt_prep_backend/docs"
	"nmt_prep_backend/internal/config"
	"nmt_prep_backend/internal/middleware"
	"nmt_prep_backend/internal/model"
	"nmt_prep_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/auth/register", c.auth.Register)
		public.POST("/auth/login", c.auth.Login)
	}

	authorized := router.Group("/api")
	authorized.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		authorized.POST("/auth/logout", c.auth.Logout)
		authorized.GET("/auth/profile", c.auth.Profile)

		authorized.GET("/categories", c.test.ListCategories)
		authorized.GET("/tests", c.test.ListTests)
		authorized.GET("/tests/:slug", c.test.GetTest)
		authorized.POST("/tests/:slug/questions/:index/check", c.test.CheckAnswer)
		authorized.GET("/attempts", c.test.RecentAttempts)

		authorized.GET("/progress", c.progress.GetProgress)
		authorized.GET("/progress/summary", c.progress.GetSummary)
		authorized.GET("/progress/status", c.progress.GetStatus)
		authorized.POST("/progress/save", c.progress.Flush)
		authorized.POST("/progress/reset", c.progress.Reset)

		authorized.GET("/calendar/lessons", c.calendar.ListLessons)

		authorized.PUT("/user/profile", c.user.UpdateProfile)
		authorized.POST("/user/avatar/upload", c.user.UploadAvatar)
	}

	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.Admin))
	{
		admin.GET("/users", c.admin.ListUsers)
		admin.PUT("/users/:id/disabled", c.admin.SetUserDisabled)
		admin.DELETE("/users/:id", c.admin.DeleteUser)
		admin.PUT("/users/:id/permissions", c.admin.GrantPermission)
		admin.DELETE("/users/:id/permissions", c.admin.RevokePermission)
		admin.POST("/users/:id/progress/reset", c.admin.ResetUserProgress)

		admin.GET("/statistics", c.admin.StatisticsOverview)
		admin.GET("/statistics/export", c.admin.ExportStatistics)

		admin.POST("/categories", c.admin.CreateCategory)
		admin.PUT("/categories/:code", c.admin.UpdateCategory)

		admin.POST("/tests", c.admin.CreateTest)
		admin.PUT("/tests/:slug", c.admin.UpdateTest)
		admin.DELETE("/tests/:slug", c.admin.DeleteTest)
		admin.PUT("/tests/:slug/questions", c.admin.SaveQuestion)
		admin.DELETE("/tests/:slug/questions/:index", c.admin.DeleteQuestion)

		admin.POST("/uploads", c.admin.UploadImage)

		admin.POST("/calendar/lessons", c.calendar.CreateLesson)
		admin.PUT("/calendar/lessons/:id", c.calendar.UpdateLesson)
		admin.DELETE("/calendar/lessons/:id", c.calendar.DeleteLesson)
	}
}
