package services

import (
	"context"

	"github.com/JulioAnalista/vendas-audit/internal/database"
	"github.com/JulioAnalista/vendas-audit/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// EmitterService maneja el archivo de emisores
type EmitterService struct {
	emitterRepo *database.EmitterRepository
	logger      *logrus.Logger
}

// NewEmitterService crea una nueva instancia del servicio
func NewEmitterService(db *database.DB, logger *logrus.Logger) *EmitterService {
	return &EmitterService{
		emitterRepo: database.NewEmitterRepository(db, logger),
		logger:      logger,
	}
}

// GetByID obtiene un emisor por ID
func (s *EmitterService) GetByID(ctx context.Context, id uuid.UUID) (*models.Emitter, error) {
	return s.emitterRepo.GetByID(ctx, id)
}

// SetActive archiva o reactiva un emisor; las NFe existentes no cambian
func (s *EmitterService) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	if err := s.emitterRepo.SetActive(ctx, id, active); err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{"emitter_id": id, "active": active}).Info("Emitter active flag changed")
	return nil
}
