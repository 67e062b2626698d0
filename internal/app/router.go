package app

import (
	"edulearn_backend/docs"
	"edulearn_backend/internal/config"
	"edulearn_backend/internal/middleware"
	"edulearn_backend/internal/model"
	"edulearn_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/metrics", monitoring.PrometheusHandler())
	router.GET("/health", c.health.HealthCheck)

	api := router.Group("/api")

	// Public routes.
	api.POST("/register", c.auth.Register)
	api.POST("/login", c.auth.Login)
	api.GET("/plans", c.subscription.ListPlans)

	auth := api.Group("")
	auth.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		auth.GET("/profile", c.auth.Profile)
		auth.PUT("/profile", c.auth.UpdateProfile)

		auth.GET("/courses", c.course.ListCourses)
		auth.GET("/courses/:id", c.course.GetCourse)
		auth.POST("/courses/:id/enroll", c.course.Enroll)
		auth.DELETE("/courses/:id/enroll", c.course.Unenroll)

		auth.GET("/tests", c.test.ListTests)
		auth.GET("/tests/:id", c.test.GetTest)
		auth.POST("/tests/:id/start", c.submission.StartTest)

		auth.GET("/submissions/:id", c.submission.GetSubmission)
		auth.PUT("/submissions/:id/draft", c.submission.SaveDraft)
		auth.POST("/submissions/:id/submit", c.submission.SubmitTest)
		auth.POST("/submissions/:id/artifacts", c.submission.UploadArtifact)

		auth.GET("/subscription", c.subscription.CurrentPlan)
		auth.GET("/subscription/usage", c.subscription.Usage)
		auth.POST("/subscription/usage/:resource/sync", c.subscription.SyncUsage)
		auth.POST("/subscription/upgrade", c.subscription.Upgrade)
		auth.POST("/subscription/downgrade", c.subscription.Downgrade)
		auth.DELETE("/subscription", c.subscription.Cancel)
	}

	// Authoring routes require an instructor (admins pass the role check).
	instructor := api.Group("")
	instructor.Use(
		middleware.AuthMiddleware(cfg),
		middleware.ActivityMiddleware(repos.user),
		middleware.RoleMiddleware(model.Instructor),
	)
	{
		instructor.POST("/courses", c.course.CreateCourse)
		instructor.DELETE("/courses/:id", c.course.DeleteCourse)
		instructor.POST("/chapters", c.course.AddChapter)
		instructor.POST("/lessons", c.course.AddLesson)

		instructor.POST("/sessions", c.course.CreateSession)
		instructor.DELETE("/sessions/:id", c.course.DeleteSession)
		instructor.POST("/groups", c.course.CreateGroup)
		instructor.DELETE("/groups/:id", c.course.DeleteGroup)
		instructor.POST("/packs", c.course.CreatePack)
		instructor.DELETE("/packs/:id", c.course.DeletePack)

		instructor.POST("/tests", c.test.CreateTest)
		instructor.PUT("/tests/:id", c.test.UpdateTest)
		instructor.DELETE("/tests/:id", c.test.DeleteTest)
		instructor.POST("/tests/:id/questions", c.test.AddQuestion)
		instructor.PUT("/questions/:id", c.test.UpdateQuestion)
		instructor.DELETE("/questions/:id", c.test.DeleteQuestion)

		instructor.POST("/submissions/:id/grade", c.submission.GradeManually)
	}
}
