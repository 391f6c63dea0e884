package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/JulioAnalista/vendas-audit/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const productColumns = `
	id, code, name, description, ncm, cfop, unit,
	semantic_ncm, semantic_description, embedding, last_semantic_update,
	is_active, created_at, updated_at`

// ProductRepository maneja las operaciones de base de datos para Product
type ProductRepository struct {
	db     *DB
	logger *logrus.Logger
}

// NewProductRepository crea una nueva instancia del repositorio
func NewProductRepository(db *DB, logger *logrus.Logger) *ProductRepository {
	return &ProductRepository{
		db:     db,
		logger: logger,
	}
}

// productRow agrega los campos que necesitan conversión al escanear
type productRow struct {
	product   models.Product
	embedding string
	lastSem   sql.NullTime
}

func (p *productRow) dest() []interface{} {
	pr := &p.product
	return []interface{}{
		&pr.ID, &pr.Code, &pr.Name, &pr.Description, &pr.NCM, &pr.CFOP, &pr.Unit,
		&pr.SemanticNCM, &pr.SemanticDescription, &p.embedding, &p.lastSem,
		&pr.IsActive, &pr.CreatedAt, &pr.UpdatedAt,
	}
}

func (p *productRow) toModel() (*models.Product, error) {
	if p.embedding != "" {
		if err := json.Unmarshal([]byte(p.embedding), &p.product.Embedding); err != nil {
			return nil, fmt.Errorf("error decoding embedding of product %s: %w", p.product.Code, err)
		}
	}
	if p.lastSem.Valid {
		t := p.lastSem.Time
		p.product.LastSemanticUpdate = &t
	}
	return &p.product, nil
}

func (r *ProductRepository) getOne(ctx context.Context, where string, arg interface{}) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE ` + where + ` = $1`

	var row productRow
	if err := r.db.QueryRowWithTimeout(ctx, query, []interface{}{arg}, row.dest()...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("product %v: %w", arg, models.ErrNotFound)
		}
		return nil, fmt.Errorf("error querying product: %w", err)
	}
	return row.toModel()
}

// GetByID obtiene un producto por ID
func (r *ProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return r.getOne(ctx, "id", id)
}

// GetByCode obtiene un producto por código, incluyendo archivados
func (r *ProductRepository) GetByCode(ctx context.Context, code string) (*models.Product, error) {
	return r.getOne(ctx, "code", code)
}

// Create inserta el producto si el código no existe
func (r *ProductRepository) Create(ctx context.Context, p *models.Product) (bool, error) {
	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (code) DO NOTHING
	`

	embedding, err := encodeEmbedding(p.Embedding)
	if err != nil {
		return false, err
	}

	result, err := r.db.ExecWithTimeout(ctx, query,
		p.ID, p.Code, p.Name, p.Description, p.NCM, p.CFOP, p.Unit,
		p.SemanticNCM, p.SemanticDescription, embedding, p.LastSemanticUpdate,
		p.IsActive, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("error creating product: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error getting rows affected: %w", err)
	}
	return affected > 0, nil
}

// UpdateSemantic guarda el enriquecimiento producido por el colaborador externo
func (r *ProductRepository) UpdateSemantic(ctx context.Context, code string, req *models.UpdateSemanticRequest) (*models.Product, error) {
	embedding, err := encodeEmbedding(req.Embedding)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	query := `
		UPDATE products
		SET semantic_ncm = $1, semantic_description = $2, embedding = $3,
			last_semantic_update = $4, updated_at = $5
		WHERE code = $6
	`

	result, err := r.db.ExecWithTimeout(ctx, query,
		req.SemanticNCM, req.SemanticDescription, embedding, now, now, code,
	)
	if err != nil {
		return nil, fmt.Errorf("error updating product semantics: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("error getting rows affected: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("product %s: %w", code, models.ErrNotFound)
	}

	return r.GetByCode(ctx, code)
}

// SetActive archiva o reactiva un producto
func (r *ProductRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return setActive(ctx, r.db, "products", id, active)
}

func encodeEmbedding(values []float64) (string, error) {
	if len(values) == 0 {
		return "", nil
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("error encoding embedding: %w", err)
	}
	return string(raw), nil
}
