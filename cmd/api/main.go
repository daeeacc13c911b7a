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
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/grader-go-api/internal/config"
	"github.com/noah-isme/grader-go-api/internal/database"
	"github.com/noah-isme/grader-go-api/internal/handler"
	"github.com/noah-isme/grader-go-api/internal/middleware"
	"github.com/noah-isme/grader-go-api/internal/models"
	"github.com/noah-isme/grader-go-api/internal/repository"
	"github.com/noah-isme/grader-go-api/internal/router"
	"github.com/noah-isme/grader-go-api/internal/service"
	"github.com/noah-isme/grader-go-api/internal/worker"
	"github.com/noah-isme/grader-go-api/pkg/ai"
	cloud "github.com/noah-isme/grader-go-api/pkg/cloudinary"
	"github.com/noah-isme/grader-go-api/pkg/extract"
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

	if err := db.AutoMigrate(&models.Teacher{}, &models.Assignment{}, &models.Submission{}, &models.EvaluationResult{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	}

	var archiver service.FileArchiver
	if cfg.CloudinaryCloudName != "" {
		uploader, err := cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
		if err != nil {
			log.Fatalf("failed to create cloudinary client: %v", err)
		}
		archiver = uploader
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	evaluator, err := ai.NewOpenRouterEvaluator(ai.OpenRouterConfig{
		APIKey:  cfg.OpenRouterAPIKey,
		BaseURL: cfg.AIBaseURL,
		Model:   cfg.AIModel,
		Logger:  logger,
	})
	if err != nil {
		log.Fatalf("failed to create evaluator: %v", err)
	}

	extractor := extract.NewDocumentExtractor(logger)
	pool := worker.NewPool(cfg.WorkerConcurrency, logger)

	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	evaluationRepo := repository.NewEvaluationRepository(db)

	evaluationService := service.NewEvaluationService(evaluationRepo, assignmentRepo, submissionRepo, evaluator, logger)
	submissionService := service.NewSubmissionService(submissionRepo, assignmentRepo, evaluationService, evaluationRepo, extractor, archiver, pool, natsConn, service.SubmissionConfig{
		MaxFileSize:  cfg.MaxUploadSizeBytes(),
		MaxBatchSize: cfg.MaxBatchFiles,
	}, logger)
	assignmentService := service.NewAssignmentService(assignmentRepo, submissionRepo, evaluationRepo, evaluationService, redisClient, cfg.OverviewCacheTTL, logger)
	exportService := service.NewExportService(assignmentRepo, submissionRepo, evaluationRepo, logger)

	assignmentHandler := handler.NewAssignmentHandler(assignmentService, exportService, validate, logger)
	submissionHandler := handler.NewSubmissionHandler(submissionService, validate, logger)
	evaluationHandler := handler.NewEvaluationHandler(evaluationService, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    int(cfg.MaxUploadSizeBytes()) * cfg.MaxBatchFiles,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AssignmentHandler: assignmentHandler,
		SubmissionHandler: submissionHandler,
		EvaluationHandler: evaluationHandler,
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, pool)
}

func waitForShutdown(app *fiber.App, pool *worker.Pool) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	// Let in-flight batch evaluations release their processing flags.
	pool.Wait()

	log.Println("server stopped")
}
