// Package app arma las dependencias compartidas por el servicio HTTP y la CLI.
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/JulioAnalista/vendas-audit/internal/config"
	"github.com/JulioAnalista/vendas-audit/internal/database"
	"github.com/JulioAnalista/vendas-audit/internal/email"
	"github.com/JulioAnalista/vendas-audit/internal/observability"
	"github.com/JulioAnalista/vendas-audit/internal/services"
	"github.com/sirupsen/logrus"
)

// App agrupa la base, los servicios opcionales y los importadores
type App struct {
	Config   *config.Config
	Logger   *logrus.Logger
	DB       *database.DB
	Redis    *database.Redis
	Archiver services.Archiver
	Notifier services.RunNotifier
	Importer *services.InvoiceImporter
	Batch    *services.BatchImporter

	shutdownTracing observability.Shutdown
}

// NewLogger configura el logger según la configuración
func NewLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}

// New conecta la base (y la migra si corresponde). Redis, el archivo S3 y
// Resend son opcionales: si fallan o no están configurados se continúa sin ellos.
func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*App, error) {
	shutdown, err := observability.InitTracing(ctx, cfg, os.Stderr, logger)
	if err != nil {
		logger.WithError(err).Warn("Tracing could not be initialized")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	if cfg.Database.MigrateOnStart {
		if err := database.Migrate(db, logger); err != nil {
			db.Close()
			return nil, err
		}
	}

	a := &App{
		Config:          cfg,
		Logger:          logger,
		DB:              db,
		shutdownTracing: shutdown,
	}

	// Redis guarda los snapshots de las corridas
	var runs services.RunStore
	if redis, err := database.ConnectRedis(cfg); err != nil {
		logger.Warnf("Error connecting to Redis, import runs will not be persisted: %v", err)
	} else {
		a.Redis = redis
		runs = redis
	}

	// Archivo de XML en S3
	if cfg.ArchiveEnabled() {
		storage, err := database.NewArchiveStorage(&cfg.Archive, logger)
		if err != nil {
			logger.Warnf("Error initializing archive storage: %v", err)
		} else {
			if err := storage.HealthCheck(ctx); err != nil {
				logger.Warnf("Archive storage health check failed: %v", err)
			} else {
				logger.Info("Archive storage connection healthy")
			}
			a.Archiver = services.NewArchiveService(storage, logger)
		}
	} else {
		logger.Warn("Archive storage credentials not provided, XML will only be kept in the database")
	}

	if cfg.EmailEnabled() {
		a.Notifier = email.NewResendService(cfg, logger)
		logger.Info("Resend service initialized successfully")
	} else {
		logger.Warn("Resend API key or operator email not provided, import summaries will not be emailed")
	}

	a.Importer = services.NewInvoiceImporter(db, a.Archiver, logger)
	a.Batch = services.NewBatchImporter(a.Importer, runs, a.Notifier, cfg.Import.BatchSize, logger).
		WithSourceRoot(cfg.Import.SourceRoot)

	return a, nil
}

// Close libera las conexiones y vacía los spans pendientes
func (a *App) Close(ctx context.Context) {
	a.DB.LogStats(a.Logger)
	if a.Redis != nil {
		a.Redis.LogStats(a.Logger)
		if err := a.Redis.Close(); err != nil {
			a.Logger.WithError(err).Warn("Error closing Redis")
		}
	}
	if err := a.DB.Close(); err != nil {
		a.Logger.WithError(err).Warn("Error closing database")
	}
	if a.shutdownTracing != nil {
		if err := a.shutdownTracing(ctx); err != nil {
			a.Logger.WithError(err).Warn("Error flushing traces")
		}
	}
}
