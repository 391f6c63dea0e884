package services

import (
	"context"
	"fmt"
	"math"

	"github.com/JulioAnalista/vendas-audit/internal/database"
	"github.com/JulioAnalista/vendas-audit/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ProductService maneja la lógica de negocio para Product
type ProductService struct {
	productRepo *database.ProductRepository
	logger      *logrus.Logger
}

// NewProductService crea una nueva instancia del servicio
func NewProductService(db *database.DB, logger *logrus.Logger) *ProductService {
	return &ProductService{
		productRepo: database.NewProductRepository(db, logger),
		logger:      logger,
	}
}

// GetByCode obtiene un producto por código
func (s *ProductService) GetByCode(ctx context.Context, code string) (*models.Product, error) {
	return s.productRepo.GetByCode(ctx, code)
}

// UpdateSemantic guarda la clasificación y el embedding calculados fuera del servicio
func (s *ProductService) UpdateSemantic(ctx context.Context, code string, req *models.UpdateSemanticRequest) (*models.Product, error) {
	if err := validateEmbedding(req.Embedding); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}

	product, err := s.productRepo.UpdateSemantic(ctx, code, req)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"product_id": product.ID,
		"code":       code,
		"dimensions": len(req.Embedding),
	}).Info("Product semantic attributes updated")

	return product, nil
}

// SetActive archiva o reactiva un producto
func (s *ProductService) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	if err := s.productRepo.SetActive(ctx, id, active); err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{"product_id": id, "active": active}).Info("Product active flag changed")
	return nil
}

func validateEmbedding(values []float64) error {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("embedding value %d is not a finite number", i)
		}
	}
	return nil
}
