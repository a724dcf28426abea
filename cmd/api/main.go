package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"alfredoptarigan/ai-interviewer/internal/config"
	"alfredoptarigan/ai-interviewer/internal/handlers"
	applog "alfredoptarigan/ai-interviewer/internal/logger"
	"alfredoptarigan/ai-interviewer/internal/repositories"
	"alfredoptarigan/ai-interviewer/internal/services"
)

func main() {
	cfg := config.Load()

	zl, err := applog.New(cfg.Server.Env)
	if err != nil {
		log.Fatalf("❌ Failed to initialize logger: %v", err)
	}
	defer zl.Sync()
	zl.Info("✅ Config loaded successfully", zap.String("env", cfg.Server.Env))

	db, err := config.InitDatabase(cfg, zl)
	if err != nil {
		zl.Fatal("❌ Failed to initialize database", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Repositories
	docRepo := repositories.NewDocumentRepository(db)
	candidateRepo := repositories.NewCandidateRepository(db)

	var sessionRepo repositories.SessionRepository
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			zl.Fatal("❌ Failed to connect to Redis", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		defer rdb.Close()
		sessionRepo = repositories.NewRedisSessionRepository(rdb, cfg.Redis.SessionTTL)
		zl.Info("✅ Redis session store connected", zap.String("addr", cfg.Redis.Addr))
	} else {
		sessionRepo = repositories.NewMemorySessionRepository()
		zl.Warn("⚠️ REDIS_ADDR not set, sessions are kept in memory")
	}
	zl.Info("✅ Repositories initialized successfully")

	// Services
	storageService := services.NewStorageService(cfg.Storage.UploadPath, cfg.Storage.MaxFileSize)
	if err := storageService.EnsureUploadDir(); err != nil {
		zl.Fatal("❌ Failed to create upload directory", zap.Error(err))
	}

	resumeParser, err := services.NewResumeParser(cfg.Parser.Mode, cfg.Parser.URL, services.NewDocumentTextExtractor(), zl)
	if err != nil {
		zl.Fatal("❌ Failed to initialize resume parser", zap.Error(err))
	}

	geminiService, err := services.NewGeminiService(services.GeminiOptions{
		APIKey:     cfg.Gemini.APIKey,
		Model:      cfg.Gemini.Model,
		EmbedModel: cfg.Gemini.EmbedModel,
		RetryDelay: cfg.Gemini.RetryDelay,
	}, zl)
	if err != nil {
		zl.Fatal("❌ Failed to initialize Gemini AI", zap.Error(err))
	}

	gatewayService, err := services.NewGatewayService(geminiService, cfg.Gemini.RetryMaxAttempts, cfg.Gemini.ContactCacheSize, zl)
	if err != nil {
		zl.Fatal("❌ Failed to initialize LLM gateway", zap.Error(err))
	}
	zl.Info("✅ Gemini AI initialized successfully", zap.String("model", cfg.Gemini.Model))

	var store services.TranscriptStore
	if cfg.Qdrant.Enabled {
		qdrantStore, err := services.NewQdrantStore(cfg.Qdrant.URL, cfg.Qdrant.APIKey, cfg.Qdrant.Collection, zl)
		if err != nil {
			zl.Fatal("❌ Failed to initialize Qdrant", zap.Error(err))
		}
		if err := qdrantStore.InitCollection(ctx); err != nil {
			zl.Fatal("❌ Failed to initialize Qdrant collection", zap.Error(err))
		}
		store = qdrantStore
		zl.Info("✅ Qdrant initialized successfully")
	}
	candidateIndex := services.NewCandidateIndex(geminiService, store, services.NewTextChunker(), zl)

	interviewService := services.NewInterviewService(services.InterviewDeps{
		Sessions:   sessionRepo,
		Candidates: candidateRepo,
		Documents:  docRepo,
		Storage:    storageService,
		Parser:     resumeParser,
		Gateway:    gatewayService,
		Index:      candidateIndex,
		Plan:       cfg.Interview.Plan,
		TimerGrace: cfg.Worker.TimerGrace,
	}, zl)
	zl.Info("✅ Services initialized successfully",
		zap.String("role", cfg.Interview.Plan.Role),
		zap.Int("questions", cfg.Interview.Plan.Total()))

	// Background work
	worker := services.NewWorker(interviewService, cfg.Worker.Concurrency, cfg.Worker.SweepInterval, zl)
	worker.Start(ctx)

	janitor := services.NewUploadJanitor(storageService, docRepo, cfg.Storage.PurgeSchedule, cfg.Storage.MaxAge, zl)
	if err := janitor.Start(); err != nil {
		zl.Fatal("❌ Failed to start upload janitor", zap.Error(err))
	}

	// HTTP
	app := fiber.New(fiber.Config{
		AppName:      "AI Interviewer API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		BodyLimit:    int(cfg.Storage.MaxFileSize) + 1<<20,
		ErrorHandler: customErrorHandler(zl),
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	handlers.RegisterRoutes(app, handlers.Handlers{
		Gateway:   handlers.NewGatewayHandler(gatewayService, zl),
		Session:   handlers.NewSessionHandler(interviewService, docRepo, zl),
		Candidate: handlers.NewCandidateHandler(candidateRepo, candidateIndex, zl),
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		zl.Info("🛑 Shutting down server...")
		janitor.Stop()
		worker.Stop()
		cancel()
		if err := app.Shutdown(); err != nil {
			zl.Error("❌ Server forced to shutdown", zap.Error(err))
		}
	}()

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	zl.Info("🚀 Server starting", zap.String("addr", addr))

	if err := app.Listen(addr); err != nil {
		zl.Fatal("❌ Failed to start server", zap.Error(err))
	}
}

func customErrorHandler(zl *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError

		var e *fiber.Error
		if errors.As(err, &e) {
			code = e.Code
		}

		if code >= fiber.StatusInternalServerError {
			zl.Error("❌ Unhandled request error", zap.String("path", c.Path()), zap.Error(err))
			return c.Status(code).JSON(fiber.Map{
				"error": "Something went wrong",
				"code":  code,
			})
		}

		return c.Status(code).JSON(fiber.Map{
			"error": err.Error(),
			"code":  code,
		})
	}
}
