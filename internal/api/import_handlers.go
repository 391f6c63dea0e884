package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/JulioAnalista/vendas-audit/internal/models"
	"github.com/JulioAnalista/vendas-audit/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ImportDocument importa un XML enviado como multipart (campo file) o como body
func (api *API) ImportDocument(c *gin.Context) {
	var (
		data     []byte
		fileName string
		err      error
	)

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		header, ferr := c.FormFile("file")
		if ferr != nil {
			c.JSON(http.StatusBadRequest, models.NewValidationError("File required", []models.ErrorDetail{
				{Field: "file", Issue: ferr.Error()},
			}))
			return
		}
		fileName = header.Filename
		data, err = readUpload(header)
	} else {
		fileName = c.Query("file_name")
		data, err = io.ReadAll(c.Request.Body)
	}
	if err != nil {
		api.respondError(c, err, "reading upload")
		return
	}
	if len(data) == 0 {
		c.JSON(http.StatusBadRequest, models.NewValidationError("Empty document", []models.ErrorDetail{
			{Field: "body", Issue: "XML content required"},
		}))
		return
	}

	invoice, err := api.importer.ImportDocument(c.Request.Context(), data, services.ImportOptions{
		Notify:   true,
		FileName: fileName,
	})
	if err != nil {
		api.respondError(c, err, "importing document")
		return
	}

	c.JSON(http.StatusOK, invoice)
}

// ImportFiles importa una carga múltiple (campo files)
func (api *API) ImportFiles(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil || len(form.File["files"]) == 0 {
		c.JSON(http.StatusBadRequest, models.NewValidationError("Files required", []models.ErrorDetail{
			{Field: "files", Issue: "At least one XML file is required"},
		}))
		return
	}

	files := make([]services.NamedFile, 0, len(form.File["files"]))
	for _, header := range form.File["files"] {
		data, err := readUpload(header)
		if err != nil {
			api.respondError(c, err, "reading upload")
			return
		}
		files = append(files, services.NamedFile{Name: header.Filename, Data: data})
	}

	run, err := api.batchImporter.ImportFiles(c.Request.Context(), files)
	api.respondRun(c, run, err)
}

// ImportArchive importa las NFe de un ZIP (campo file o body)
func (api *API) ImportArchive(c *gin.Context) {
	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		header, ferr := c.FormFile("file")
		if ferr != nil {
			c.JSON(http.StatusBadRequest, models.NewValidationError("File required", []models.ErrorDetail{
				{Field: "file", Issue: ferr.Error()},
			}))
			return
		}
		data, err = readUpload(header)
	} else {
		data, err = io.ReadAll(c.Request.Body)
	}
	if err != nil {
		api.respondError(c, err, "reading upload")
		return
	}

	run, err := api.batchImporter.ImportArchive(c.Request.Context(), data)
	if err != nil && run == nil && !errors.Is(err, models.ErrNothingImported) {
		c.JSON(http.StatusBadRequest, models.NewValidationError("Invalid archive", []models.ErrorDetail{
			{Field: "file", Issue: err.Error()},
		}))
		return
	}
	api.respondRun(c, run, err)
}

// ImportFolder importa una carpeta del servidor. Con dispatcher configurado
// la corrida se delega al workflow y se responde 202.
func (api *API) ImportFolder(c *gin.Context) {
	var req models.ImportFolderRequest
	if !api.bindJSON(c, &req) {
		return
	}

	recursive := api.recursive
	if req.Recursive != nil {
		recursive = *req.Recursive
	}

	dir, err := api.batchImporter.ResolveFolder(req.Dir)
	if err != nil {
		api.respondError(c, err, "resolving folder")
		return
	}

	if api.dispatcher != nil {
		eventID, err := api.dispatcher.RequestFolderImport(c.Request.Context(), dir, recursive)
		if err != nil {
			api.respondError(c, err, "queueing folder import")
			return
		}
		api.logger.WithFields(logrus.Fields{
			"dir":      dir,
			"event_id": eventID,
		}).Info("Folder import queued")
		c.JSON(http.StatusAccepted, models.ImportQueuedResponse{EventID: eventID, Dir: dir, Status: "queued"})
		return
	}

	run, err := api.batchImporter.ImportFolder(c.Request.Context(), dir, recursive)
	if err != nil && run == nil {
		c.JSON(http.StatusBadRequest, models.NewValidationError("Folder could not be imported", []models.ErrorDetail{
			{Field: "dir", Issue: err.Error()},
		}))
		return
	}
	if run != nil {
		if serr := api.batchImporter.SendSummary(c.Request.Context(), run); serr != nil {
			api.logger.WithError(serr).WithField("run_id", run.ID).Warn("Failed to send import summary")
		}
	}
	api.respondRun(c, run, err)
}

// GetImportRun obtiene el snapshot de una corrida
func (api *API) GetImportRun(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	run, err := api.batchImporter.GetRun(c.Request.Context(), id)
	if err != nil {
		api.respondError(c, err, "retrieving import run")
		return
	}
	c.JSON(http.StatusOK, run)
}

// respondRun responde con el resumen de la corrida; sin documentos importados es 422
func (api *API) respondRun(c *gin.Context, run *models.ImportRun, err error) {
	switch {
	case err == nil:
		c.JSON(http.StatusOK, models.NewImportResponse(run))
	case errors.Is(err, models.ErrNothingImported) && run != nil:
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": models.NewImportFailedError(err.Error(), nil).Error,
			"run":   models.NewImportResponse(run),
		})
	case run != nil:
		api.logger.WithError(err).WithField("run_id", run.ID).Error("Import run interrupted")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": models.NewInternalError("Import run interrupted").Error,
			"run":   models.NewImportResponse(run),
		})
	default:
		api.respondError(c, err, "importing files")
	}
}

func readUpload(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("error opening upload %s: %w", header.Filename, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("error reading upload %s: %w", header.Filename, err)
	}
	return data, nil
}
