package api

import (
	"net/http"

	"github.com/JulioAnalista/vendas-audit/internal/config"
	"github.com/JulioAnalista/vendas-audit/internal/models"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const maxUploadMemory = 64 << 20

// NewRouter configura el router principal. inngestHandler puede ser nil.
func NewRouter(apiHandler *API, cfg *config.Config, inngestHandler http.Handler) *gin.Engine {
	router := gin.New()
	router.MaxMultipartMemory = maxUploadMemory

	// Middleware global
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	if cfg.Tracing.Enabled {
		router.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	}

	// Middleware de CORS para desarrollo
	if cfg.IsDevelopment() {
		router.Use(func(c *gin.Context) {
			c.Header("Access-Control-Allow-Origin", "*")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization, X-API-Key")

			if c.Request.Method == "OPTIONS" {
				c.AbortWithStatus(http.StatusNoContent)
				return
			}

			c.Next()
		})
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, models.NewErrorResponse(models.ErrorCodeNotFound, "Route not found"))
	})

	router.GET("/health", apiHandler.Health)

	if inngestHandler != nil {
		router.Any("/api/inngest", gin.WrapH(inngestHandler))
	}

	v1 := router.Group("/v1")
	{
		// Consultas
		v1.GET("/invoices", apiHandler.ListInvoices)
		v1.GET("/invoices/:id", apiHandler.GetInvoice)
		v1.GET("/invoices/:id/notes", apiHandler.GetInvoiceNotes)
		v1.GET("/invoices/:id/xml", apiHandler.DownloadXML)
		v1.GET("/invoices/:id/pdf", apiHandler.DownloadPDF)
		v1.GET("/imports/runs/:id", apiHandler.GetImportRun)

		// Endpoints del operador (protegidos)
		admin := v1.Group("")
		admin.Use(apiHandler.AdminAuthMiddleware())
		{
			admin.POST("/imports/document", apiHandler.ImportDocument)
			admin.POST("/imports/files", apiHandler.ImportFiles)
			admin.POST("/imports/archive", apiHandler.ImportArchive)
			admin.POST("/imports/folder", apiHandler.ImportFolder)

			admin.POST("/invoices/:id/state", apiHandler.ChangeInvoiceState)
			admin.POST("/invoices/:id/active", apiHandler.SetInvoiceActive)
			admin.DELETE("/invoices/:id", apiHandler.DeleteInvoice)
			admin.POST("/emitters/:id/active", apiHandler.SetEmitterActive)
			admin.POST("/recipients/:id/active", apiHandler.SetRecipientActive)
			admin.POST("/products/:id/active", apiHandler.SetProductActive)
			admin.PUT("/product-semantics/:code", apiHandler.UpdateProductSemantic)
		}
	}

	return router
}
