package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/outletmesh/outletmesh/internal/api"
	"github.com/outletmesh/outletmesh/internal/archive"
	archives3 "github.com/outletmesh/outletmesh/internal/archive/s3"
	"github.com/outletmesh/outletmesh/internal/auth"
	"github.com/outletmesh/outletmesh/internal/config"
	"github.com/outletmesh/outletmesh/internal/llm"
	"github.com/outletmesh/outletmesh/internal/observability"
	outletsqldb "github.com/outletmesh/outletmesh/internal/outlets/sqldb"
	querysqldb "github.com/outletmesh/outletmesh/internal/query/sqldb"
	schemasqldb "github.com/outletmesh/outletmesh/internal/schema/sqldb"
	"github.com/outletmesh/outletmesh/internal/store"
	"github.com/outletmesh/outletmesh/internal/workflow"
)

func main() {
	cfg, err := config.LoadFromEnv("outletmesh-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	db, err := store.Open(context.Background(), store.Config{
		Driver:          cfg.DB.Driver,
		DSN:             cfg.DB.DSN,
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxIdleTime: cfg.DB.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	})
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	dialect, err := store.DialectFor(cfg.DB.Driver)
	if err != nil {
		logger.Error("unsupported database driver", slog.Any("error", err))
		os.Exit(1)
	}

	outletRepo := outletsqldb.NewRepository(db)
	queryEngine := querysqldb.NewEngine(db)
	inspector := schemasqldb.NewInspector(db, dialect, cfg.Workflow.SchemaSampleRows)

	var controller *workflow.Controller
	if cfg.AI.APIKey != "" {
		chat, err := llm.NewOpenAIClient(llm.OpenAIConfig{
			BaseURL:     cfg.AI.BaseURL,
			APIKey:      cfg.AI.APIKey,
			Model:       cfg.AI.Model,
			Temperature: cfg.AI.Temperature,
			Timeout:     cfg.AI.Timeout,
		})
		if err != nil {
			logger.Error("failed to initialize chat client", slog.Any("error", err))
			os.Exit(1)
		}
		controller, err = workflow.NewController(
			workflow.Config{MaxGenerations: cfg.Workflow.MaxGenerations},
			workflow.Dependencies{
				Chat:      chat,
				Inspector: inspector,
				Runner:    workflow.NewEngineRunner(queryEngine, cfg.Workflow.RowLimit),
				Logger:    logger,
			},
		)
		if err != nil {
			logger.Error("failed to initialize workflow", slog.Any("error", err))
			os.Exit(1)
		}
	} else {
		logger.Warn("AI api key not set, question endpoint disabled")
	}

	readiness := api.CheckOutletDB(outletRepo)

	var archiver archive.Archiver
	if cfg.Archive.Enabled {
		objectStore, err := archives3.New(context.Background(), archives3.Config{
			Endpoint:         cfg.Archive.Endpoint,
			Region:           cfg.Archive.Region,
			Bucket:           cfg.Archive.Bucket,
			AccessKeyID:      cfg.Archive.AccessKeyID,
			SecretAccessKey:  cfg.Archive.SecretAccessKey,
			UseSSL:           cfg.Archive.UseSSL,
			Prefix:           cfg.Archive.Prefix,
			AutoCreateBucket: cfg.Archive.AutoCreateBucket,
		})
		if err != nil {
			logger.Error("failed to initialize run archive", slog.Any("error", err))
			os.Exit(1)
		}
		archiver, err = archive.NewObjectArchiver(objectStore)
		if err != nil {
			logger.Error("failed to initialize run archive", slog.Any("error", err))
			os.Exit(1)
		}
		readiness = api.CombineReadinessChecks(readiness, objectStore.HealthCheck)
	}

	deps := api.Dependencies{
		Logger:            logger,
		Readiness:         readiness,
		DependencyTimeout: time.Second,
		Outlets:           outletRepo,
		QueryEngine:       queryEngine,
		Inspector:         inspector,
		Archiver:          archiver,
		RowLimit:          cfg.Workflow.RowLimit,
	}
	if controller != nil {
		deps.Workflow = controller
	}
	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
