package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/JulioAnalista/vendas-audit/internal/config"
	"github.com/JulioAnalista/vendas-audit/internal/models"
	"github.com/JulioAnalista/vendas-audit/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// FolderImportDispatcher delega la importación de una carpeta a un workflow
type FolderImportDispatcher interface {
	RequestFolderImport(ctx context.Context, dir string, recursive bool) (string, error)
}

// HealthChecker es una dependencia que reporta su estado en /health
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// API maneja todos los endpoints de la API
type API struct {
	invoiceService   *services.InvoiceService
	emitterService   *services.EmitterService
	recipientService *services.RecipientService
	productService   *services.ProductService
	importer         *services.InvoiceImporter
	batchImporter    *services.BatchImporter
	dispatcher       FolderImportDispatcher
	health           map[string]HealthChecker
	operatorKey      string
	recursive        bool
	logger           *logrus.Logger
}

// NewAPI crea una nueva instancia de la API
func NewAPI(
	invoiceService *services.InvoiceService,
	emitterService *services.EmitterService,
	recipientService *services.RecipientService,
	productService *services.ProductService,
	importer *services.InvoiceImporter,
	batchImporter *services.BatchImporter,
	cfg *config.Config,
	logger *logrus.Logger,
) *API {
	return &API{
		invoiceService:   invoiceService,
		emitterService:   emitterService,
		recipientService: recipientService,
		productService:   productService,
		importer:         importer,
		batchImporter:    batchImporter,
		health:           map[string]HealthChecker{},
		operatorKey:      cfg.Auth.OperatorAPIKey,
		recursive:        cfg.Import.Recursive,
		logger:           logger,
	}
}

// WithDispatcher hace asíncrona la importación de carpetas
func (api *API) WithDispatcher(dispatcher FolderImportDispatcher) *API {
	api.dispatcher = dispatcher
	return api
}

// WithHealthCheck agrega una dependencia al health check
func (api *API) WithHealthCheck(name string, checker HealthChecker) *API {
	api.health[name] = checker
	return api
}

// Health reporta el estado de la base y de las dependencias registradas
func (api *API) Health(c *gin.Context) {
	status := http.StatusOK
	checks := gin.H{}
	for name, checker := range api.health {
		if err := checker.HealthCheck(c.Request.Context()); err != nil {
			api.logger.WithError(err).WithField("dependency", name).Warn("Health check failed")
			checks[name] = "error"
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	c.JSON(status, gin.H{
		"status":  overall,
		"service": "vendas-audit",
		"checks":  checks,
	})
}

// AdminAuthMiddleware valida la API key del operador en X-API-Key
func (api *API) AdminAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if api.operatorKey == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, models.NewForbiddenError("Operator access is disabled"))
			return
		}

		apiKey := c.GetHeader("X-API-Key")
		if apiKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.NewUnauthorizedError("API key required"))
			return
		}
		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(api.operatorKey)) != 1 {
			api.logger.WithField("path", c.FullPath()).Warn("Rejected request with invalid API key")
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.NewUnauthorizedError("Invalid API key"))
			return
		}
		c.Next()
	}
}

// parseID lee el parámetro :id; responde 400 si no es un UUID
func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.NewValidationError("Invalid ID", []models.ErrorDetail{
			{Field: "id", Issue: "Must be a valid UUID"},
		}))
		return uuid.Nil, false
	}
	return id, true
}

// bindJSON decodifica el body; responde 400 si no es válido
func (api *API) bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		api.logger.WithError(err).WithField("path", c.FullPath()).Debug("Invalid request body")
		c.JSON(http.StatusBadRequest, models.NewValidationError("Invalid request format", []models.ErrorDetail{
			{Field: "body", Issue: err.Error()},
		}))
		return false
	}
	return true
}

// respondError traduce errores de servicio a la respuesta estandarizada
func (api *API) respondError(c *gin.Context, err error, action string) {
	var importErr *models.ImportError
	switch {
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, models.NewNotFoundError("Resource not found"))
	case errors.Is(err, models.ErrInvalidTransition):
		c.JSON(http.StatusConflict, models.NewConflictError(err.Error()))
	case errors.Is(err, models.ErrValidation), errors.Is(err, services.ErrOutsideSourceRoot):
		c.JSON(http.StatusBadRequest, models.NewValidationError(err.Error(), nil))
	case errors.As(err, &importErr) && importErr.Kind != models.ImportErrorPersistence:
		c.JSON(http.StatusUnprocessableEntity, models.NewImportFailedError(err.Error(), []models.ErrorDetail{
			{Field: "kind", Issue: string(importErr.Kind)},
		}))
	default:
		api.logger.WithError(err).WithField("path", c.FullPath()).Error("Error " + action)
		c.JSON(http.StatusInternalServerError, models.NewInternalError("Error "+action))
	}
}
