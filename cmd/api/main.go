package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/examly/exam-go-api/internal/auth"
	"github.com/examly/exam-go-api/internal/config"
	"github.com/examly/exam-go-api/internal/database"
	"github.com/examly/exam-go-api/internal/handler"
	"github.com/examly/exam-go-api/internal/middleware"
	"github.com/examly/exam-go-api/internal/models"
	"github.com/examly/exam-go-api/internal/repository"
	"github.com/examly/exam-go-api/internal/router"
	"github.com/examly/exam-go-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Exam{},
		&models.Question{},
		&models.Answer{},
		&models.ExamSubmission{},
		&models.ActivityLog{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	natsConn, err := database.ConnectNATS(cfg.NATSURL)
	if err != nil {
		logger.Warn().Err(err).Msg("nats unavailable, events disabled")
	} else {
		defer natsConn.Close()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTRefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	revoker := auth.NewRedisRevoker(redisClient)

	userRepo := repository.NewUserRepository(db)
	examRepo := repository.NewExamRepository(db)
	questionRepo := repository.NewQuestionRepository(db)
	answerRepo := repository.NewAnswerRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	events := service.NewEventPublisher(natsConn, redisClient, cfg.EventChannelBase, logger)
	activity := service.NewActivityService(activityRepo, logger)
	grader := service.NewAnswerGrader()

	authService := service.NewAuthService(userRepo, issuer, revoker, validate, logger)
	examService := service.NewExamService(examRepo, answerRepo, submissionRepo, logger)
	resultsService := service.NewResultsService(examRepo, answerRepo, submissionRepo, redisClient, cfg.ResultsCacheTTL, logger)
	submissionService := service.NewSubmissionService(questionRepo, answerRepo, submissionRepo, grader, validate, events, activity, cfg.StoreTimeout, logger)
	gradingService := service.NewGradingService(answerRepo, validate, events, activity, resultsService, logger)
	teacherExamService := service.NewTeacherExamService(examRepo, questionRepo, answerRepo, submissionRepo, validate, activity, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:        handler.NewAuthHandler(authService, logger),
		ExamHandler:        handler.NewExamHandler(examService, resultsService, logger),
		AnswerHandler:      handler.NewAnswerHandler(submissionService, logger),
		TeacherExamHandler: handler.NewTeacherExamHandler(teacherExamService, logger),
		GradingHandler:     handler.NewGradingHandler(gradingService, logger),
		JWTMiddleware:      middleware.JWTProtected(issuer, revoker),
		DB:                 db,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
