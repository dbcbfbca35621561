package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	pgxvector "github.com/pgvector/pgvector-go/pgx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"

	"github.com/paperstack/invoicehub/internal/api/handlers"
	"github.com/paperstack/invoicehub/internal/api/middleware"
	"github.com/paperstack/invoicehub/internal/config"
	"github.com/paperstack/invoicehub/internal/embeddings"
	"github.com/paperstack/invoicehub/internal/extract"
	"github.com/paperstack/invoicehub/internal/googleai"
	"github.com/paperstack/invoicehub/internal/huberrors"
	"github.com/paperstack/invoicehub/internal/huggingface"
	"github.com/paperstack/invoicehub/internal/imageprep"
	"github.com/paperstack/invoicehub/internal/observability"
	"github.com/paperstack/invoicehub/internal/openai"
	"github.com/paperstack/invoicehub/internal/repository"
	"github.com/paperstack/invoicehub/internal/service"
	"github.com/paperstack/invoicehub/pkg/cache"
	"github.com/paperstack/invoicehub/pkg/database"
)

const (
	embeddingProviderOpenAI      = "openai"
	embeddingProviderHuggingFace = "huggingface"
)

const searchQueryCacheSize = 1000

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogging(cfg.LogLevel)

	tracerProvider, err := observability.NewTracerProvider(cfg)
	if err != nil {
		slog.Error("Failed to create tracer provider", "error", err)
		os.Exit(1)
	}
	if tracerProvider != nil {
		otel.SetTracerProvider(tracerProvider)
	} else {
		slog.Info("Tracing disabled", "OTEL_TRACES_EXPORTER", cfg.OtelTracesExporter)
	}

	meterProvider, err := observability.NewMeterProvider(cfg)
	if err != nil {
		slog.Error("Failed to create meter provider", "error", err)
		os.Exit(1)
	}
	if meterProvider != nil {
		otel.SetMeterProvider(meterProvider)
	} else {
		slog.Info("Metrics disabled", "OTEL_METRICS_EXPORTER", cfg.OtelMetricsExporter)
	}

	if cfg.GoogleAIAPIKey == "" {
		slog.Error("GOOGLE_AI_API_KEY environment variable is required but not set")
		os.Exit(1)
	}

	// Register pgvector types on each new connection so embedding columns scan natively.
	db, err := database.NewPostgresPool(ctx, cfg.DatabaseURL,
		database.WithAfterConnect(pgxvector.RegisterTypes),
	)
	if err != nil {
		connErr := huberrors.NewConnectionError(err.Error())
		slog.Error("Failed to connect to database", "error", connErr)
		os.Exit(1)
	}
	defer db.Close()

	documentsRepo := repository.NewDocumentsRepository(db, cfg.EmbeddingDimensions)
	if err := documentsRepo.EnsureSchema(ctx); err != nil {
		slog.Error("Failed to ensure database schema", "error", err)
		os.Exit(1)
	}

	visionClient, err := googleai.NewClient(ctx, cfg.GoogleAIAPIKey,
		googleai.WithVisionModel(cfg.VisionModel),
		googleai.WithTextModel(cfg.TextModel),
	)
	if err != nil {
		slog.Error("Failed to create Gemini client", "error", err)
		os.Exit(1)
	}

	embeddingClient, err := newEmbeddingClient(cfg)
	if err != nil {
		slog.Error("Failed to create embedding client", "error", err)
		os.Exit(1)
	}

	extractor := extract.NewExtractor(visionClient)

	var enhance service.ImageEnhancer
	if cfg.EnhanceImages {
		enhance = imageprep.EnhanceForOCR
		slog.Info("Image enhancement enabled")
	}

	ingestService := service.NewIngestService(service.IngestServiceParams{
		Extractor:       extractor,
		EmbeddingClient: embeddingClient,
		Documents:       documentsRepo,
		Enhance:         enhance,
		Limiter:         rate.NewLimiter(rate.Limit(cfg.EmbeddingRateLimit), 1),
		Logger:          slog.Default(),
	})

	queryCache, err := cache.NewLoaderCache[[]float32](searchQueryCacheSize)
	if err != nil {
		slog.Error("Failed to create search query cache", "error", err)
		os.Exit(1)
	}

	searchService := service.NewSearchService(service.SearchServiceParams{
		EmbeddingClient: embeddingClient,
		DocumentsRepo:   documentsRepo,
		AnswerClient:    visionClient,
		QueryCache:      queryCache,
		Logger:          slog.Default(),
	})

	ingestHandler := handlers.NewIngestHandler(ingestService)
	searchHandler := handlers.NewSearchHandler(searchService)
	healthHandler := handlers.NewHealthHandler()

	// Public endpoints (no authentication required)
	publicMux := http.NewServeMux()
	publicMux.HandleFunc("GET /health", healthHandler.Check)

	// Protected endpoints (API key required)
	protectedMux := http.NewServeMux()
	protectedMux.HandleFunc("POST /v1/invoices/ingest", ingestHandler.Ingest)
	protectedMux.HandleFunc("POST /v1/invoices/search", searchHandler.Search)

	var protectedHandler http.Handler = protectedMux
	protectedHandler = middleware.Auth(cfg.APIKey)(protectedHandler)
	protectedHandler = middleware.MaxBody(cfg.MaxRequestBodyBytes)(protectedHandler)

	mainMux := http.NewServeMux()
	mainMux.Handle("/v1/", protectedHandler)
	mainMux.Handle("/", publicMux)

	otelOpts := []otelhttp.Option{
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health"
		}),
	}
	if meterProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithMeterProvider(meterProvider))
	}
	if tracerProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithTracerProvider(tracerProvider))
	}

	// Logging runs inside otelhttp so r.Context() has the span when we log.
	handler := middleware.RequestID(
		otelhttp.NewHandler(middleware.Logging(mainMux), "invoicehub-api", otelOpts...),
	)

	// Ingest uploads several images and waits on sequential model calls, so the
	// write timeout is generous compared to a plain CRUD API.
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("Starting server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	if err := observability.ShutdownTracerProvider(shutdownCtx, tracerProvider); err != nil {
		slog.Error("Tracer provider shutdown failed", "error", err)
	}
	if err := observability.ShutdownMeterProvider(shutdownCtx, meterProvider); err != nil {
		slog.Error("Meter provider shutdown failed", "error", err)
	}

	slog.Info("Server exited")
}

// newEmbeddingClient builds the configured embedding provider.
func newEmbeddingClient(cfg *config.Config) (embeddings.Client, error) {
	switch cfg.EmbeddingProvider {
	case embeddingProviderOpenAI:
		return openai.NewClient(cfg.EmbeddingProviderAPIKey,
			openai.WithModel(cfg.EmbeddingModel),
			openai.WithDimensions(cfg.EmbeddingDimensions),
		), nil
	case embeddingProviderHuggingFace:
		return huggingface.NewClient(cfg.EmbeddingProviderAPIKey,
			huggingface.WithModel(cfg.EmbeddingModel),
		), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.EmbeddingProvider)
	}
}

// setupLogging configures slog with the specified log level and installs the
// TraceContextHandler so request_id appears in request-scoped logs.
func setupLogging(level string) {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	handler := slog.NewTextHandler(os.Stdout, opts)
	slog.SetDefault(slog.New(observability.NewTraceContextHandler(handler)))
}
