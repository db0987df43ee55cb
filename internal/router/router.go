package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/examly/exam-go-api/internal/config"
	"github.com/examly/exam-go-api/internal/handler"
	"github.com/examly/exam-go-api/internal/middleware"
	"github.com/examly/exam-go-api/internal/models"
	"github.com/examly/exam-go-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler        *handler.AuthHandler
	ExamHandler        *handler.ExamHandler
	AnswerHandler      *handler.AnswerHandler
	TeacherExamHandler *handler.TeacherExamHandler
	GradingHandler     *handler.GradingHandler
	JWTMiddleware      fiber.Handler
	DB                 *gorm.DB
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.DB))
	app.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.AuthHandler != nil {
		auth := api.Group("/auth", middleware.RateLimit("auth", 20, time.Minute))
		deps.AuthHandler.Register(auth)
		deps.AuthHandler.RegisterProtected(auth.Group("", jwtMiddleware))
	}

	student := api.Group("/student", jwtMiddleware, middleware.RequireRole(models.RoleStudent, models.RoleTeacher))
	if deps.ExamHandler != nil {
		deps.ExamHandler.Register(student.Group("/exams"))
	}
	if deps.AnswerHandler != nil {
		deps.AnswerHandler.Register(student.Group("/answers"))
	}

	teacher := api.Group("/teacher", jwtMiddleware, middleware.RequireRole(models.RoleTeacher))
	if deps.TeacherExamHandler != nil {
		deps.TeacherExamHandler.Register(teacher.Group("/exams"))
	}
	if deps.GradingHandler != nil {
		deps.GradingHandler.Register(teacher.Group("/answers"))
	}
}
