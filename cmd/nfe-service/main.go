package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/JulioAnalista/vendas-audit/internal/api"
	"github.com/JulioAnalista/vendas-audit/internal/app"
	"github.com/JulioAnalista/vendas-audit/internal/config"
	"github.com/JulioAnalista/vendas-audit/internal/services"
	"github.com/JulioAnalista/vendas-audit/internal/workflows"
	"github.com/gin-gonic/gin"
)

func main() {
	// Cargar configuración
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	logger := app.NewLogger(cfg)
	logger.Info("Starting NFe ingestion service...")

	// Configurar modo de Gin
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	a, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatalf("Error initializing service: %v", err)
	}

	// Inicializar cliente de Inngest
	var inngestHandler http.Handler
	inngestClient, err := workflows.NewInngestClient(cfg, logger)
	if err != nil {
		logger.Warnf("Inngest not available, folder imports will run synchronously: %v", err)
		inngestClient = nil
	} else if err := inngestClient.RegisterWorkflows(a.Batch); err != nil {
		logger.Warnf("Error registering workflows: %v", err)
		inngestClient = nil
	} else {
		inngestHandler = inngestClient.Handler()
	}

	// Inicializar API
	apiHandler := api.NewAPI(
		services.NewInvoiceService(a.DB, a.Archiver, logger),
		services.NewEmitterService(a.DB, logger),
		services.NewRecipientService(a.DB, logger),
		services.NewProductService(a.DB, logger),
		a.Importer,
		a.Batch,
		cfg,
		logger,
	).WithHealthCheck("database", a.DB)
	if a.Redis != nil {
		apiHandler.WithHealthCheck("redis", a.Redis)
	}
	if inngestClient != nil {
		apiHandler.WithDispatcher(inngestClient)
	}
	if cfg.Auth.OperatorAPIKey == "" {
		logger.Warn("OPERATOR_API_KEY not set, mutating endpoints will reject every request")
	}

	router := api.NewRouter(apiHandler, cfg, inngestHandler)

	// Crear servidor HTTP; las importaciones síncronas pueden tardar
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 30 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Canal para señales de terminación
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Infof("Server starting on %s:%s", cfg.Server.Host, cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Error starting server: %v", err)
		}
	}()

	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}
	a.Close(ctx)

	logger.Info("Server exited")
}
