package services

import (
	"context"

	"github.com/JulioAnalista/vendas-audit/internal/database"
	"github.com/JulioAnalista/vendas-audit/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RecipientService maneja el archivo de destinatarios
type RecipientService struct {
	recipientRepo *database.RecipientRepository
	logger        *logrus.Logger
}

// NewRecipientService crea una nueva instancia del servicio
func NewRecipientService(db *database.DB, logger *logrus.Logger) *RecipientService {
	return &RecipientService{
		recipientRepo: database.NewRecipientRepository(db, logger),
		logger:        logger,
	}
}

// GetByID obtiene un destinatario por ID
func (s *RecipientService) GetByID(ctx context.Context, id uuid.UUID) (*models.Recipient, error) {
	return s.recipientRepo.GetByID(ctx, id)
}

// SetActive archiva o reactiva un destinatario
func (s *RecipientService) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	if err := s.recipientRepo.SetActive(ctx, id, active); err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{"recipient_id": id, "active": active}).Info("Recipient active flag changed")
	return nil
}
