package services

import (
	"context"
	"fmt"
	"path"

	"github.com/JulioAnalista/vendas-audit/internal/models"
	"github.com/sirupsen/logrus"
)

// ObjectStorage es el bucket donde se guardan los XML originales
type ObjectStorage interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Download(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// Archiver guarda una copia del XML de una NFe importada
type Archiver interface {
	ArchiveXML(ctx context.Context, invoice *models.Invoice, xml []byte) (string, error)
	FetchXML(ctx context.Context, key string) ([]byte, error)
	DeleteXML(ctx context.Context, key string) error
}

// ArchiveService organiza los XML en el bucket por año y mes de emisión
type ArchiveService struct {
	storage ObjectStorage
	prefix  string
	logger  *logrus.Logger
}

// NewArchiveService crea una nueva instancia del servicio
func NewArchiveService(storage ObjectStorage, logger *logrus.Logger) *ArchiveService {
	return &ArchiveService{
		storage: storage,
		prefix:  "nfe",
		logger:  logger,
	}
}

// ObjectKey retorna la clave del XML: nfe/<año>/<mes>/<chave>.xml
func (s *ArchiveService) ObjectKey(invoice *models.Invoice) string {
	issue := invoice.IssueDate.UTC()
	return path.Join(s.prefix, issue.Format("2006"), issue.Format("01"), invoice.AccessKey+".xml")
}

// ArchiveXML sube el XML original y retorna la clave del objeto
func (s *ArchiveService) ArchiveXML(ctx context.Context, invoice *models.Invoice, xml []byte) (string, error) {
	key := s.ObjectKey(invoice)
	if err := s.storage.Upload(ctx, key, xml, "application/xml"); err != nil {
		return "", fmt.Errorf("error archiving invoice XML: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"invoice_id": invoice.ID,
		"access_key": invoice.AccessKey,
		"key":        key,
	}).Info("Invoice XML archived")
	return key, nil
}

// FetchXML descarga un XML archivado
func (s *ArchiveService) FetchXML(ctx context.Context, key string) ([]byte, error) {
	data, err := s.storage.Download(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("error fetching archived XML: %w", err)
	}
	return data, nil
}

// DeleteXML elimina la copia archivada
func (s *ArchiveService) DeleteXML(ctx context.Context, key string) error {
	if err := s.storage.Delete(ctx, key); err != nil {
		return fmt.Errorf("error deleting archived XML: %w", err)
	}
	return nil
}
