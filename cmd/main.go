package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"progress-service/internal/config"
	"progress-service/internal/database/mongo"
	"progress-service/internal/database/redis"
	"progress-service/internal/event"
	"progress-service/internal/handlers"
	"progress-service/internal/repository"
	"progress-service/internal/services"
	"progress-service/pkg/discovery"

	"github.com/gofiber/fiber/v3"
)

func setupLogging() (*os.File, error) {
	logDir := filepath.Join("/evolvia", "log", "progress_service")
	err := os.MkdirAll(logDir, 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to create log directory: %v", err)
	}

	currentTime := time.Now()
	logFileName := fmt.Sprintf("log_%s.log", currentTime.Format("2006-01-02"))
	logFile := filepath.Join(logDir, logFileName)

	file, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %v", err)
	}

	log.SetOutput(file)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	return file, nil
}

func main() {
	logFile, err := setupLogging()
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logFile.Close()

	cfg := config.ServiceConfig

	if err := mongo.InitMongoDB(&cfg.MongoDB); err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer mongo.CloseDB()

	if err := redis.InitRedis(&cfg.Redis); err != nil {
		log.Printf("Warning: Redis unavailable, course summaries will not be cached: %v", err)
	}
	defer redis.CloseRedis()

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	})

	app.Get("/health", func(c fiber.Ctx) error {
		return c.Status(fiber.StatusOK).SendString("Progress Service is healthy")
	})

	// Initialize repositories
	progressRepo := repository.NewLessonProgressRepository(mongo.Database, "lesson_progress")
	submissionRepo := repository.NewSubmissionRepository(mongo.Database, "questionnaire_submissions")
	questionnaireRepo := repository.NewQuestionnaireRepository(mongo.Database, "questionnaires")
	structureRepo := repository.NewCourseStructureRepository(mongo.Database)

	indexCtx, indexCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := progressRepo.InitializeIndexes(indexCtx); err != nil {
		log.Printf("Warning: Failed to create lesson progress indexes: %v", err)
	}
	if err := submissionRepo.InitializeIndexes(indexCtx); err != nil {
		log.Printf("Warning: Failed to create submission indexes: %v", err)
	}
	if err := questionnaireRepo.InitializeIndexes(indexCtx); err != nil {
		log.Printf("Warning: Failed to create questionnaire indexes: %v", err)
	}
	indexCancel()

	var cache services.SummaryCache
	if redis.Client != nil {
		cache = repository.NewProgressCache(redis.Client, cfg.Progress.CourseSummaryCacheExpiry)
	}

	// Initialize event publisher
	var publisher event.Publisher
	eventPublisher, err := event.NewEventPublisher(cfg.RabbitMQ.URI, cfg.RabbitMQ.Exchange)
	if err != nil {
		log.Printf("Warning: Failed to initialize event publisher: %v", err)
	} else {
		publisher = eventPublisher
	}

	// Initialize services
	progressService := services.NewProgressService(progressRepo, structureRepo, cache, publisher)
	submissionService := services.NewSubmissionService(submissionRepo, questionnaireRepo, publisher, cfg.Progress.DefaultPassingScore, cfg.Progress.DefaultMaxAttempts)

	// Initialize event consumer for lesson content changes
	eventConsumer, err := event.NewEventConsumer(cfg.RabbitMQ.URI, progressService)
	if err != nil {
		log.Printf("Warning: Failed to initialize event consumer: %v", err)
	} else {
		if err := eventConsumer.Start(); err != nil {
			log.Printf("Warning: Failed to start event consumer: %v", err)
			eventConsumer.Close()
		} else {
			log.Println("Successfully started event consumer for lesson content changes")
			defer eventConsumer.Close()
		}
	}

	// Initialize and register handlers
	progressHandler := handlers.NewProgressHandler(progressService)
	progressHandler.RegisterRoutes(app)

	submissionHandler := handlers.NewSubmissionHandler(submissionService)
	submissionHandler.RegisterRoutes(app)

	shutdownChan := make(chan os.Signal, 1)
	doneChan := make(chan bool, 1)

	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := app.Listen(fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)); err != nil {
			log.Fatalf("Error starting server: %v", err)
		}
		doneChan <- true
	}()

	<-shutdownChan
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("Error shutting down HTTP server: %v", err)
	}

	// Close event publisher
	if eventPublisher != nil {
		if err := eventPublisher.Close(); err != nil {
			log.Printf("Error closing event publisher: %v", err)
		}
	}

	// Deregister from service discovery
	if discovery.ServiceDiscovery != nil {
		if err := discovery.ServiceDiscovery.Deregister(); err != nil {
			log.Printf("Error deregistering from service discovery: %v", err)
		}
	}

	<-doneChan
	log.Println("Server shutdown complete")
}
