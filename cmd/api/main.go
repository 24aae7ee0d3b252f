package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"learnhub/internal/adapter"
	"learnhub/internal/adapter/enrollment"
	"learnhub/internal/adapter/notifier"
	"learnhub/internal/cache"
	"learnhub/internal/config"
	"learnhub/internal/database"
	"learnhub/internal/domain"
	"learnhub/internal/handler"
	"learnhub/internal/logger"
	"learnhub/internal/middleware"
	"learnhub/internal/repository"
	"learnhub/internal/service"
	"learnhub/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// requestLogger is a middleware that logs HTTP requests
func requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		path := c.Path()
		method := c.Method()

		err := c.Next()

		duration := time.Since(start)
		status := c.Response().StatusCode()

		logger.Get().Info("HTTP Request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("duration", duration),
			zap.String("ip", c.IP()),
		)

		return err
	}
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Initialize(cfg.Logger); err != nil {
		panic(err)
	}
	appLogger := logger.Get()
	defer logger.Sync()

	db, err := database.NewSQLXPostgresDB(cfg.GetDSN())
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		appLogger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	appLogger.Info("Successfully connected to Redis")
	cacheAdapter := adapter.NewRedisCacheAdapter(redisClient)
	publisher := notifier.NewRedisPublisher(redisClient)

	// Initialize repositories
	txManager := repository.NewTransactionManagerAdapter(db)
	hierarchyRepo := repository.NewSQLXHierarchyRepository(db)
	progressRepo := repository.NewSQLXProgressRepository(db)
	quizRepo := repository.NewSQLXQuizRepository(db)
	attemptRepo := repository.NewSQLXAttemptRepository(db)
	pointsRepo := repository.NewSQLXPointsRepository(db)
	enrollmentService := enrollment.NewSQLEnrollmentAdapter(db)

	// Initialize services
	pointsService := service.NewPointsService(pointsRepo, txManager, publisher)
	rankingService := service.NewRankingService(pointsRepo, cacheAdapter, txManager)
	progressService := service.NewProgressService(hierarchyRepo, progressRepo, quizRepo, attemptRepo, enrollmentService, txManager, publisher)
	assessmentService := service.NewAssessmentService(quizRepo, attemptRepo, progressService, pointsService, rankingService, enrollmentService, txManager, publisher)
	sweeper := service.NewAttemptSweeper(attemptRepo, quizRepo, txManager, cfg.Sweep.Concurrency)

	// Initialize handlers
	validator := validation.NewValidator()
	progressHandler := handler.NewProgressHandler(progressService, validator)
	assessmentHandler := handler.NewAssessmentHandler(assessmentService, validator)
	pointsHandler := handler.NewPointsHandler(pointsService, rankingService, validator)

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		ErrorHandler: middleware.ErrorHandler(),
	})

	app.Use(requestLogger())
	app.Use(cors.New(cors.Config{AllowOrigins: "*", AllowMethods: "GET,POST,PUT,DELETE,OPTIONS", AllowHeaders: "Origin,Content-Type,Accept,Authorization", MaxAge: 300}))
	app.Use(recover.New())

	protected := middleware.Protected(cfg.Auth.JWTSecret)
	staff := middleware.RequireRole(domain.RoleInstructor, domain.RoleAdmin)
	admin := middleware.RequireRole(domain.RoleAdmin)

	apiGroup := app.Group("/api", protected)

	// Progress routes
	apiGroup.Get("/nodes/:nodeId/access", progressHandler.CanAccess)
	apiGroup.Post("/sections/:sectionId/complete", progressHandler.CompleteSection)
	apiGroup.Post("/contents/:contentId/start", progressHandler.StartContent)
	apiGroup.Post("/contents/:contentId/end", progressHandler.EndContent)

	// Assessment routes
	apiGroup.Post("/quizzes/:quizId/attempts", assessmentHandler.StartAttempt)
	apiGroup.Post("/attempts/:attemptId/submit", assessmentHandler.SubmitAttempt)

	// Points and ranking routes
	apiGroup.Get("/courses/:courseId/points", pointsHandler.GetCoursePoints)
	apiGroup.Get("/courses/:courseId/leaderboard", pointsHandler.Leaderboard)
	apiGroup.Post("/points/bonus", staff, pointsHandler.AwardBonus)
	apiGroup.Post("/points/deduction", staff, pointsHandler.DeductPoints)
	apiGroup.Post("/courses/:courseId/points/:userId/recalculate", admin, pointsHandler.Recalculate)

	// Periodic expiry of abandoned attempts
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Sweep.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := sweeper.Sweep(ctx); err != nil {
			appLogger.Error("Attempt sweep failed", zap.Error(err))
		}
	}); err != nil {
		appLogger.Fatal("Failed to schedule attempt sweep", zap.Error(err))
	}
	scheduler.Start()

	go func() {
		appLogger.Info("Starting server", zap.Int("port", cfg.Server.Port), zap.String("env", os.Getenv("ENV")))
		if err := app.Listen(":" + strconv.Itoa(cfg.Server.Port)); err != nil {
			appLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	stopCtx := scheduler.Stop()
	<-stopCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		appLogger.Fatal("Server forced to shutdown", zap.Error(err))
	}
	appLogger.Info("Server exited gracefully")
}
