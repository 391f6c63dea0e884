package workflows

import (
	"context"
	"fmt"
	"net/http"

	"github.com/JulioAnalista/vendas-audit/internal/config"
	"github.com/JulioAnalista/vendas-audit/internal/services"
	"github.com/inngest/inngestgo"
	"github.com/sirupsen/logrus"
)

// InngestClient maneja la configuración y registro de workflows
type InngestClient struct {
	client inngestgo.Client
	logger *logrus.Logger
}

// NewInngestClient crea una nueva instancia del cliente
func NewInngestClient(cfg *config.Config, logger *logrus.Logger) (*InngestClient, error) {
	// Verificar que las credenciales estén configuradas
	if cfg.Inngest.EventKey == "" {
		return nil, fmt.Errorf("INNGEST_EVENT_KEY not configured")
	}

	if cfg.Inngest.SigningKey == "" {
		return nil, fmt.Errorf("INNGEST_SIGNING_KEY not configured")
	}

	dev := cfg.Inngest.Dev
	client, err := inngestgo.NewClient(inngestgo.ClientOpts{
		EventKey:   &cfg.Inngest.EventKey,
		SigningKey: &cfg.Inngest.SigningKey,
		AppID:      cfg.Inngest.AppID,
		Dev:        &dev,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating Inngest client: %w", err)
	}

	return &InngestClient{
		client: client,
		logger: logger,
	}, nil
}

// RegisterWorkflows registra la importación asíncrona de carpetas
func (c *InngestClient) RegisterWorkflows(batch *services.BatchImporter) error {
	workflow := NewImportWorkflow(batch, c.logger)

	_, err := inngestgo.CreateFunction(
		c.client,
		inngestgo.FunctionOpts{
			ID:   FolderImportFunctionID,
			Name: "Importação de pasta de NFe",
		},
		inngestgo.EventTrigger(FolderImportEvent, nil),
		workflow.ImportFolder,
	)
	if err != nil {
		return fmt.Errorf("error registering %s: %w", FolderImportFunctionID, err)
	}

	c.logger.WithField("function", FolderImportFunctionID).Info("Workflow registered with Inngest")
	return nil
}

// RequestFolderImport publica el evento que dispara la importación de dir
func (c *InngestClient) RequestFolderImport(ctx context.Context, dir string, recursive bool) (string, error) {
	eventID, err := c.client.Send(ctx, inngestgo.Event{
		Name: FolderImportEvent,
		Data: map[string]any{
			"dir":       dir,
			"recursive": recursive,
		},
	})
	if err != nil {
		return "", fmt.Errorf("error sending %s event: %w", FolderImportEvent, err)
	}
	return eventID, nil
}

// Handler retorna el endpoint que Inngest invoca para ejecutar los workflows
func (c *InngestClient) Handler() http.Handler {
	return c.client.Serve()
}
