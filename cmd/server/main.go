package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/orderbot/sheetsync/internal/application/dispatcher"
	"github.com/orderbot/sheetsync/internal/application/service"
	"github.com/orderbot/sheetsync/internal/config"
	"github.com/orderbot/sheetsync/internal/dedup"
	"github.com/orderbot/sheetsync/internal/infrastructure/external/openai"
	"github.com/orderbot/sheetsync/internal/lark"
	"github.com/orderbot/sheetsync/internal/parser"
	"github.com/orderbot/sheetsync/internal/storage"
	"github.com/orderbot/sheetsync/internal/syncengine"
	"github.com/orderbot/sheetsync/internal/webhook"
	"github.com/orderbot/sheetsync/internal/workflow"
	"github.com/orderbot/sheetsync/pkg/utils"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"
)

func main() {
	// Local secrets from .env, if present
	_ = gotenv.Load()

	cfg, err := config.Load(configPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting order sheet sync bot",
		zap.Int("port", cfg.Server.Port),
		zap.String("workbook", cfg.Store.WorkbookPath))

	location, err := time.LoadLocation(cfg.Store.Timezone)
	if err != nil {
		logger.Fatal("Invalid store timezone", zap.Error(err))
	}

	// Tabular store and sync engine
	store, err := storage.NewExcelStore(cfg.Store.WorkbookPath, logger)
	if err != nil {
		logger.Fatal("Failed to open workbook", zap.Error(err))
	}
	engine := syncengine.NewEngine(store, location, logger)

	// Messaging platform
	larkClient := lark.NewClient(lark.Config{
		AppID:     cfg.Lark.AppID,
		AppSecret: cfg.Lark.AppSecret,
	}, logger)
	messenger := lark.NewMessenger(larkClient, logger)

	// Parsing pipeline
	vocabulary := vocabularyFromConfig(cfg.Products)
	normalizer := parser.NewNormalizer(vocabulary)
	names := make([]string, len(vocabulary))
	for i, v := range vocabulary {
		names[i] = v.Canonical
	}
	extractor := openai.NewExtractor(
		cfg.OpenAI.APIKey,
		cfg.OpenAI.Model,
		cfg.OpenAI.Temperature,
		names,
		logger,
	)
	pipeline := parser.NewPipeline(parser.NewFastParser(normalizer), extractor, normalizer, logger)

	// Approval workflow and event pipeline
	approvals := workflow.New(messenger, engine, logger)
	orderService := service.NewOrderService(
		dedup.New(logger),
		pipeline,
		approvals,
		engine,
		messenger,
		logger,
	)

	eventDispatcher := dispatcher.New(logger)
	orderService.Register(eventDispatcher)
	defer eventDispatcher.Close()

	// Webhook endpoints
	verifier := webhook.NewVerifier(cfg.Lark.VerificationToken, logger)
	handler := webhook.NewHandler(verifier, eventDispatcher, larkClient.AppID(), logger)

	if cfg.Logger.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "sheetsync",
			"time":    time.Now().Format(time.RFC3339),
		})
	})
	router.POST(cfg.Lark.WebhookPath, handler.HandleEvent)
	router.POST(cfg.Lark.CardActionPath, handler.HandleCardAction)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited successfully")
}

func configPath() string {
	if path := os.Getenv("SHEETSYNC_CONFIG"); path != "" {
		return path
	}
	return "configs/config.yaml"
}

// vocabularyFromConfig converts configured products to the parser's
// vocabulary, falling back to the built-in defaults.
func vocabularyFromConfig(entries []config.ProductEntry) []parser.VocabularyEntry {
	if len(entries) == 0 {
		return parser.DefaultVocabulary()
	}
	vocabulary := make([]parser.VocabularyEntry, len(entries))
	for i, e := range entries {
		vocabulary[i] = parser.VocabularyEntry{
			Canonical: e.Canonical,
			Key:       e.Key,
			Synonyms:  e.Synonyms,
		}
	}
	return vocabulary
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
	}
}
