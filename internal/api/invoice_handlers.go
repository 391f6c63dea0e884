package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/JulioAnalista/vendas-audit/internal/models"
	"github.com/gin-gonic/gin"
)

// ListInvoices lista NFe con filtros por fecha, tipo de operación, estado y emisor
func (api *API) ListInvoices(c *gin.Context) {
	filter, details := parseInvoiceFilter(c)
	if len(details) > 0 {
		c.JSON(http.StatusBadRequest, models.NewValidationError("Invalid query parameters", details))
		return
	}

	response, err := api.invoiceService.ListInvoices(c.Request.Context(), filter)
	if err != nil {
		api.respondError(c, err, "listing invoices")
		return
	}
	c.JSON(http.StatusOK, response)
}

// GetInvoice obtiene una NFe con items, emisor y destinatario
func (api *API) GetInvoice(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	invoice, err := api.invoiceService.GetInvoice(c.Request.Context(), id)
	if err != nil {
		api.respondError(c, err, "retrieving invoice")
		return
	}
	c.JSON(http.StatusOK, invoice)
}

// GetInvoiceNotes obtiene las notas de auditoría de una NFe
func (api *API) GetInvoiceNotes(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	notes, err := api.invoiceService.GetNotes(c.Request.Context(), id)
	if err != nil {
		api.respondError(c, err, "retrieving invoice notes")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": notes})
}

// DownloadXML descarga el XML original
func (api *API) DownloadXML(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	data, fileName, err := api.invoiceService.DownloadXML(c.Request.Context(), id)
	if err != nil {
		api.respondError(c, err, "downloading XML")
		return
	}
	sendFile(c, "application/xml", fileName, data)
}

// DownloadPDF descarga el resumen PDF
func (api *API) DownloadPDF(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	data, fileName, err := api.invoiceService.DownloadPDF(c.Request.Context(), id)
	if err != nil {
		api.respondError(c, err, "generating PDF")
		return
	}
	sendFile(c, "application/pdf", fileName, data)
}

// ChangeInvoiceState aplica una transición manual de estado
func (api *API) ChangeInvoiceState(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req models.ChangeStateRequest
	if !api.bindJSON(c, &req) {
		return
	}

	invoice, err := api.invoiceService.ChangeState(c.Request.Context(), id, req.State)
	if err != nil {
		api.respondError(c, err, "changing invoice state")
		return
	}
	c.JSON(http.StatusOK, invoice)
}

// SetInvoiceActive archiva o reactiva una NFe
func (api *API) SetInvoiceActive(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req models.SetActiveRequest
	if !api.bindJSON(c, &req) {
		return
	}

	if err := api.invoiceService.SetActive(c.Request.Context(), id, *req.Active); err != nil {
		api.respondError(c, err, "updating invoice")
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "is_active": *req.Active})
}

// DeleteInvoice elimina una NFe en borrador o cancelada
func (api *API) DeleteInvoice(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := api.invoiceService.DeleteInvoice(c.Request.Context(), id); err != nil {
		api.respondError(c, err, "deleting invoice")
		return
	}
	c.Status(http.StatusNoContent)
}

func sendFile(c *gin.Context, contentType, fileName string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", fileName))
	c.Header("Content-Length", strconv.Itoa(len(data)))
	c.Data(http.StatusOK, contentType, data)
}

// parseInvoiceFilter lee los query params del listado. from y to aceptan
// YYYY-MM-DD (to incluye el día completo) o RFC3339.
func parseInvoiceFilter(c *gin.Context) (models.InvoiceFilter, []models.ErrorDetail) {
	var filter models.InvoiceFilter
	var details []models.ErrorDetail

	if raw := c.Query("from"); raw != "" {
		from, _, err := parseQueryTime(raw)
		if err != nil {
			details = append(details, models.ErrorDetail{Field: "from", Issue: "Must be YYYY-MM-DD or RFC3339"})
		} else {
			filter.From = &from
		}
	}
	if raw := c.Query("to"); raw != "" {
		to, dateOnly, err := parseQueryTime(raw)
		if err != nil {
			details = append(details, models.ErrorDetail{Field: "to", Issue: "Must be YYYY-MM-DD or RFC3339"})
		} else {
			if dateOnly {
				to = to.Add(24*time.Hour - time.Nanosecond)
			}
			filter.To = &to
		}
	}

	if raw := c.Query("operation_type"); raw != "" {
		op := models.OperationType(raw)
		if !op.IsValid() {
			details = append(details, models.ErrorDetail{Field: "operation_type", Issue: "Must be 'inbound' or 'outbound'"})
		}
		filter.OperationType = op
	}
	if raw := c.Query("state"); raw != "" {
		state := models.InvoiceState(raw)
		if !state.IsValid() {
			details = append(details, models.ErrorDetail{Field: "state", Issue: "Unknown state"})
		}
		filter.State = state
	}

	filter.EmitterCNPJ = c.Query("emitter_cnpj")
	filter.IncludeAll = c.Query("include_archived") == "true"
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "0"))

	return filter, details
}

func parseQueryTime(raw string) (time.Time, bool, error) {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	return t, false, err
}
