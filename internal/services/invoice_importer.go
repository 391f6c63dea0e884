package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JulioAnalista/vendas-audit/internal/database"
	"github.com/JulioAnalista/vendas-audit/internal/models"
	"github.com/JulioAnalista/vendas-audit/internal/nfe"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/JulioAnalista/vendas-audit/internal/services"

// ImportOptions controla los efectos secundarios de una importación
type ImportOptions struct {
	// Notify registra la nota de auditoría; se omite en importaciones por lote
	Notify bool
	// FileName es el nombre de origen, usado en logs y guardado con la NFe
	FileName string
	// Cache se comparte dentro de un lote; nil usa un cache propio
	Cache *ReferenceCache
}

// InvoiceImporter convierte un XML de NFe en filas normalizadas
type InvoiceImporter struct {
	invoiceRepo *database.InvoiceRepository
	resolver    *EntityResolver
	reader      *nfe.Reader
	archiver    Archiver
	tracer      trace.Tracer
	logger      *logrus.Logger
}

// NewInvoiceImporter crea una nueva instancia del importador. archiver puede ser nil.
func NewInvoiceImporter(db *database.DB, archiver Archiver, logger *logrus.Logger) *InvoiceImporter {
	return &InvoiceImporter{
		invoiceRepo: database.NewInvoiceRepository(db, logger),
		resolver:    NewEntityResolver(db, logger),
		reader:      nfe.NewReader(logger),
		archiver:    archiver,
		tracer:      otel.Tracer(tracerName),
		logger:      logger,
	}
}

// WithReader reemplaza el lector de XML
func (s *InvoiceImporter) WithReader(reader *nfe.Reader) *InvoiceImporter {
	clone := *s
	clone.reader = reader
	return &clone
}

// ImportDocument importa una NFe. Si la chave de acesso ya existe retorna la
// NFe guardada sin escribir nada. Los errores fatales son *models.ImportError.
func (s *InvoiceImporter) ImportDocument(ctx context.Context, data []byte, opts ImportOptions) (*models.Invoice, error) {
	ctx, span := s.tracer.Start(ctx, "nfe.import_document",
		trace.WithAttributes(attribute.String("nfe.file", opts.FileName)))
	defer span.End()

	invoice, err := s.importDocument(ctx, data, opts, span)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return invoice, nil
}

func (s *InvoiceImporter) importDocument(ctx context.Context, data []byte, opts ImportOptions, span trace.Span) (*models.Invoice, error) {
	cache := opts.Cache
	if cache == nil {
		cache = NewReferenceCache()
	}

	doc, err := s.reader.Read(data, opts.FileName)
	if err != nil {
		return nil, models.NewImportError(models.ImportErrorInvalidXML, opts.FileName, err)
	}

	accessKey := doc.AccessKey()
	if accessKey == "" {
		return nil, models.NewImportError(models.ImportErrorMissingAccessKey, opts.FileName, models.ErrMissingAccessKey)
	}
	span.SetAttributes(attribute.String("nfe.access_key", accessKey))

	existing, err := s.invoiceRepo.GetByAccessKey(ctx, accessKey)
	if err == nil {
		s.logger.WithFields(logrus.Fields{
			"access_key": accessKey,
			"invoice_id": existing.ID,
			"file":       opts.FileName,
		}).Info("Invoice already imported")
		span.SetAttributes(attribute.Bool("nfe.duplicate", true))
		return s.withRelations(ctx, existing)
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, models.NewImportError(models.ImportErrorPersistence, accessKey, err)
	}

	cnpj, emitterAttrs := doc.Emitter()
	if cnpj == "" {
		return nil, models.NewImportError(models.ImportErrorMissingEmitterTaxID, accessKey, models.ErrMissingEmitterTaxID)
	}

	emitter, err := s.resolver.ResolveEmitter(ctx, cache, cnpj, emitterAttrs)
	if err != nil {
		return nil, models.NewImportError(models.ImportErrorPersistence, accessKey, err)
	}

	recipientAttrs, present := doc.Recipient()
	recipient, err := s.resolver.ResolveRecipient(ctx, cache, accessKey, recipientAttrs, present)
	if err != nil {
		return nil, models.NewImportError(models.ImportErrorPersistence, accessKey, err)
	}

	ident := doc.Identification()
	now := time.Now().UTC()
	invoice := &models.Invoice{
		ID:            uuid.New(),
		AccessKey:     accessKey,
		Number:        ident.Number,
		Series:        ident.Series,
		Model:         ident.Model,
		OperationType: ident.OperationType,
		IssueDate:     ident.IssueDate.UTC(),
		EntryDate:     utcPtr(ident.EntryDate),
		EmitterID:     emitter.ID,
		RecipientID:   recipient.ID,
		Totals:        doc.Totals(),
		State:         models.InvoiceStateImported,
		XMLOriginal:   doc.XML,
		XMLFileName:   opts.FileName,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	created, err := s.invoiceRepo.Create(ctx, invoice)
	if err != nil {
		return nil, models.NewImportError(models.ImportErrorPersistence, accessKey, err)
	}
	if !created {
		// Otro import guardó la misma chave entre la búsqueda y el INSERT
		winner, err := s.invoiceRepo.GetByAccessKey(ctx, accessKey)
		if err != nil {
			return nil, models.NewImportError(models.ImportErrorPersistence, accessKey, err)
		}
		return s.withRelations(ctx, winner)
	}

	imported, skipped := s.importItems(ctx, cache, doc, invoice)
	span.SetAttributes(
		attribute.Int("nfe.items", imported),
		attribute.Int("nfe.items_skipped", skipped),
	)

	if opts.Notify {
		note := fmt.Sprintf("NFe importada com sucesso. Chave: %s. Itens: %d", accessKey, imported)
		if skipped > 0 {
			note += fmt.Sprintf(" (%d ignorados)", skipped)
		}
		if _, err := s.invoiceRepo.AddNote(ctx, invoice.ID, note); err != nil {
			s.logger.WithError(err).WithField("invoice_id", invoice.ID).Warn("Failed to add import note")
		}
	}

	s.archive(ctx, invoice, data)

	s.logger.WithFields(logrus.Fields{
		"invoice_id":    invoice.ID,
		"access_key":    accessKey,
		"emitter_cnpj":  emitter.CNPJ,
		"items":         imported,
		"items_skipped": skipped,
		"total_amount":  invoice.Totals.Total,
	}).Info("Invoice imported successfully")

	return s.withRelations(ctx, invoice)
}

// importItems persiste cada det. Un item con problema se registra y se omite.
func (s *InvoiceImporter) importItems(ctx context.Context, cache *ReferenceCache, doc *nfe.Document, invoice *models.Invoice) (int, int) {
	imported, skipped := 0, 0
	for i, det := range doc.Items() {
		position := i + 1
		log := s.logger.WithFields(logrus.Fields{
			"access_key": invoice.AccessKey,
			"position":   position,
		})

		item, err := doc.ReadItem(det, position)
		if err != nil {
			log.WithError(err).Warn("Skipping line item")
			skipped++
			continue
		}

		product, err := s.resolver.ResolveProduct(ctx, cache, item.ProductCode, item.Product)
		if err != nil {
			log.WithError(err).Warn("Skipping line item, product could not be resolved")
			skipped++
			continue
		}

		lineItem := &models.LineItem{
			ID:         uuid.New(),
			InvoiceID:  invoice.ID,
			ProductID:  product.ID,
			ItemNumber: item.Number,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			TotalPrice: item.TotalPrice,
			Discount:   item.Discount,
			ICMS:       item.ICMS,
			IPI:        item.IPI,
			PIS:        item.PIS,
			COFINS:     item.COFINS,
			CreatedAt:  time.Now().UTC(),
		}
		created, err := s.invoiceRepo.CreateItem(ctx, lineItem)
		if err != nil {
			log.WithError(err).Warn("Skipping line item, insert failed")
			skipped++
			continue
		}
		if !created {
			log.WithField("item_number", item.Number).Warn("Duplicate line item ignored")
			skipped++
			continue
		}
		imported++
	}
	return imported, skipped
}

func (s *InvoiceImporter) archive(ctx context.Context, invoice *models.Invoice, data []byte) {
	if s.archiver == nil {
		return
	}
	key, err := s.archiver.ArchiveXML(ctx, invoice, data)
	if err != nil {
		s.logger.WithError(err).WithField("invoice_id", invoice.ID).Warn("Failed to archive invoice XML")
		return
	}
	if err := s.invoiceRepo.SetArchiveKey(ctx, invoice.ID, key); err != nil {
		s.logger.WithError(err).WithField("invoice_id", invoice.ID).Warn("Failed to record archive key")
		return
	}
	invoice.ArchiveKey = &key
}

// withRelations carga items, emisor y destinatario de una NFe ya guardada. Un
// fallo al recargar no deshace el import: se registra y se retorna la NFe con
// lo que se pudo cargar.
func (s *InvoiceImporter) withRelations(ctx context.Context, invoice *models.Invoice) (*models.Invoice, error) {
	log := s.logger.WithFields(logrus.Fields{
		"invoice_id": invoice.ID,
		"access_key": invoice.AccessKey,
	})

	if items, err := s.invoiceRepo.GetItems(ctx, invoice.ID); err != nil {
		log.WithError(err).Warn("Failed to reload invoice items")
	} else {
		invoice.Items = items
		invoice.ItemCount = len(items)
	}

	if emitter, err := s.resolver.emitterRepo.GetByID(ctx, invoice.EmitterID); err != nil {
		log.WithError(err).Warn("Failed to reload invoice emitter")
	} else {
		invoice.Emitter = emitter
	}

	if recipient, err := s.resolver.recipientRepo.GetByID(ctx, invoice.RecipientID); err != nil {
		log.WithError(err).Warn("Failed to reload invoice recipient")
	} else {
		invoice.Recipient = recipient
	}
	return invoice, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
