package api

import (
	"context"
	"net/http"

	"github.com/JulioAnalista/vendas-audit/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SetEmitterActive archiva o reactiva un emisor
func (api *API) SetEmitterActive(c *gin.Context) {
	api.setActive(c, "emitter", api.emitterService.SetActive)
}

// SetRecipientActive archiva o reactiva un destinatario
func (api *API) SetRecipientActive(c *gin.Context) {
	api.setActive(c, "recipient", api.recipientService.SetActive)
}

// SetProductActive archiva o reactiva un producto
func (api *API) SetProductActive(c *gin.Context) {
	api.setActive(c, "product", api.productService.SetActive)
}

func (api *API) setActive(c *gin.Context, entity string, set func(ctx context.Context, id uuid.UUID, active bool) error) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req models.SetActiveRequest
	if !api.bindJSON(c, &req) {
		return
	}

	if err := set(c.Request.Context(), id, *req.Active); err != nil {
		api.respondError(c, err, "updating "+entity)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "is_active": *req.Active})
}

// UpdateProductSemantic guarda el enriquecimiento semántico de un producto
func (api *API) UpdateProductSemantic(c *gin.Context) {
	code := c.Param("code")

	var req models.UpdateSemanticRequest
	if !api.bindJSON(c, &req) {
		return
	}

	product, err := api.productService.UpdateSemantic(c.Request.Context(), code, &req)
	if err != nil {
		api.respondError(c, err, "updating product")
		return
	}
	c.JSON(http.StatusOK, product)
}
