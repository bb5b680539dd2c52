package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/shopquery-inc/shopquery-engine/pkg/config"
	"github.com/shopquery-inc/shopquery-engine/pkg/database"
	"github.com/shopquery-inc/shopquery-engine/pkg/handlers"
	"github.com/shopquery-inc/shopquery-engine/pkg/llm"
	"github.com/shopquery-inc/shopquery-engine/pkg/observability"
	"github.com/shopquery-inc/shopquery-engine/pkg/schema"
	"github.com/shopquery-inc/shopquery-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("database", cfg.Database.Database),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("llm_model", cfg.LLM.Model),
		zap.Duration("query_timeout", cfg.Pipeline.QueryTimeout),
		zap.Int("row_limit", cfg.Pipeline.RowLimit))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// The descriptor loads exactly once; an empty or unreachable schema
	// keeps the process from serving at all.
	descriptor, err := schema.Introspect(ctx, db.Pool, logger)
	if err != nil {
		logger.Fatal("Failed to load schema descriptor", zap.Error(err))
	}

	llmClient, err := llm.NewClient(&llm.Config{
		Provider: cfg.LLM.Provider,
		Endpoint: cfg.LLM.Endpoint,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create LLM client", zap.Error(err))
	}

	translator, err := services.NewTranslator(llmClient, descriptor, cfg.LLM.Temperature, cfg.LLM.Timeout, logger)
	if err != nil {
		logger.Fatal("Failed to create translator", zap.Error(err))
	}

	executor := db.Executor(cfg.Pipeline.QueryTimeout, cfg.Pipeline.RowLimit, logger)
	pipeline := services.NewPipeline(translator, executor, descriptor, cfg.Pipeline.MaxTranslateRetries, logger)

	mux := http.NewServeMux()

	handlers.NewHealthHandler(cfg, descriptor, logger).RegisterRoutes(mux)
	handlers.NewQueryHandler(pipeline, logger).RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	// Serve the browser page from ui/dist
	mux.Handle("/", http.FileServer(http.Dir("./ui/dist")))

	addr := cfg.BindAddr + ":" + cfg.Port
	server := &http.Server{
		Addr:              addr,
		Handler:           observability.MetricsMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("starting shopquery-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))
	if err := server.ListenAndServe(); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
