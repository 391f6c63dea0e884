package services

import (
	"context"
	"fmt"

	"github.com/JulioAnalista/vendas-audit/internal/database"
	"github.com/JulioAnalista/vendas-audit/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// InvoiceService maneja la consulta y el ciclo de vida de las NFe importadas
type InvoiceService struct {
	invoiceRepo       *database.InvoiceRepository
	emitterRepo       *database.EmitterRepository
	recipientRepo     *database.RecipientRepository
	documentGenerator *DocumentGenerator
	archiver          Archiver
	logger            *logrus.Logger
}

// NewInvoiceService crea una nueva instancia del servicio. archiver puede ser nil.
func NewInvoiceService(db *database.DB, archiver Archiver, logger *logrus.Logger) *InvoiceService {
	return &InvoiceService{
		invoiceRepo:       database.NewInvoiceRepository(db, logger),
		emitterRepo:       database.NewEmitterRepository(db, logger),
		recipientRepo:     database.NewRecipientRepository(db, logger),
		documentGenerator: NewDocumentGenerator(logger),
		archiver:          archiver,
		logger:            logger,
	}
}

// GetInvoice obtiene una NFe con items, emisor y destinatario
func (s *InvoiceService) GetInvoice(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	invoice, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if invoice.Items, err = s.invoiceRepo.GetItems(ctx, id); err != nil {
		return nil, fmt.Errorf("error getting invoice items: %w", err)
	}
	invoice.ItemCount = len(invoice.Items)
	if invoice.Emitter, err = s.emitterRepo.GetByID(ctx, invoice.EmitterID); err != nil {
		return nil, fmt.Errorf("error getting emitter: %w", err)
	}
	if invoice.Recipient, err = s.recipientRepo.GetByID(ctx, invoice.RecipientID); err != nil {
		return nil, fmt.Errorf("error getting recipient: %w", err)
	}
	return invoice, nil
}

// ListInvoices lista NFe con filtros y paginación
func (s *InvoiceService) ListInvoices(ctx context.Context, filter models.InvoiceFilter) (*models.InvoiceListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = defaultPageSize
	}
	if filter.PageSize > maxPageSize {
		filter.PageSize = maxPageSize
	}

	invoices, total, err := s.invoiceRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &models.InvoiceListResponse{
		Items:    invoices,
		Page:     filter.Page,
		PageSize: filter.PageSize,
		Total:    total,
	}, nil
}

// ChangeState aplica una transición manual y deja una nota de auditoría
func (s *InvoiceService) ChangeState(ctx context.Context, id uuid.UUID, target models.InvoiceState) (*models.Invoice, error) {
	invoice, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !target.IsValid() || !invoice.State.CanTransitionTo(target) {
		return nil, fmt.Errorf("%s -> %s: %w", invoice.State, target, models.ErrInvalidTransition)
	}

	note := fmt.Sprintf("Estado alterado de %s para %s", invoice.State, target)
	if err := s.invoiceRepo.UpdateState(ctx, id, invoice.State, target, note); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"invoice_id": id,
		"from":       invoice.State,
		"to":         target,
	}).Info("Invoice state changed")

	return s.GetInvoice(ctx, id)
}

// SetActive archiva o reactiva una NFe
func (s *InvoiceService) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	if err := s.invoiceRepo.SetActive(ctx, id, active); err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{
		"invoice_id": id,
		"active":     active,
	}).Info("Invoice active flag changed")
	return nil
}

// DeleteInvoice elimina una NFe en borrador o cancelada junto con su copia
// archivada. Importadas y procesadas deben cancelarse antes.
func (s *InvoiceService) DeleteInvoice(ctx context.Context, id uuid.UUID) error {
	invoice, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if invoice.State != models.InvoiceStateDraft && invoice.State != models.InvoiceStateCancelled {
		return fmt.Errorf("cannot delete invoice in state %s: %w", invoice.State, models.ErrInvalidTransition)
	}

	if err := s.invoiceRepo.Delete(ctx, id); err != nil {
		return err
	}

	if invoice.ArchiveKey != nil && s.archiver != nil {
		if err := s.archiver.DeleteXML(ctx, *invoice.ArchiveKey); err != nil {
			s.logger.WithError(err).WithField("archive_key", *invoice.ArchiveKey).Warn("Archived XML could not be removed")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"invoice_id": id,
		"access_key": invoice.AccessKey,
	}).Info("Invoice deleted")
	return nil
}

// GetNotes obtiene las notas de auditoría de una NFe
func (s *InvoiceService) GetNotes(ctx context.Context, id uuid.UUID) ([]models.InvoiceNote, error) {
	if _, err := s.invoiceRepo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.invoiceRepo.GetNotes(ctx, id)
}

// DownloadXML retorna el XML original. Si la copia en base está vacía se
// descarga del archivo.
func (s *InvoiceService) DownloadXML(ctx context.Context, id uuid.UUID) ([]byte, string, error) {
	invoice, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}

	fileName := invoice.XMLFileName
	if fileName == "" {
		fileName = invoice.AccessKey + ".xml"
	}

	if invoice.XMLOriginal != "" {
		return []byte(invoice.XMLOriginal), fileName, nil
	}
	if invoice.ArchiveKey != nil && s.archiver != nil {
		data, err := s.archiver.FetchXML(ctx, *invoice.ArchiveKey)
		if err != nil {
			return nil, "", err
		}
		return data, fileName, nil
	}
	return nil, "", fmt.Errorf("XML for invoice %s: %w", id, models.ErrNotFound)
}

// DownloadPDF genera el resumen PDF de la NFe
func (s *InvoiceService) DownloadPDF(ctx context.Context, id uuid.UUID) ([]byte, string, error) {
	invoice, err := s.GetInvoice(ctx, id)
	if err != nil {
		return nil, "", err
	}

	data, err := s.documentGenerator.GenerateInvoicePDF(invoice)
	if err != nil {
		return nil, "", err
	}
	return data, fmt.Sprintf("nfe_%s.pdf", invoice.AccessKey), nil
}
