package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/JulioAnalista/vendas-audit/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const recipientColumns = `
	id, tax_id, tax_id_kind, cnpj, cpf, name, state_registration, phone, email,
	street, number, complement, district, city, state, zip_code, country,
	is_active, created_at, updated_at`

// RecipientRepository maneja las operaciones de base de datos para Recipient
type RecipientRepository struct {
	db     *DB
	logger *logrus.Logger
}

// NewRecipientRepository crea una nueva instancia del repositorio
func NewRecipientRepository(db *DB, logger *logrus.Logger) *RecipientRepository {
	return &RecipientRepository{
		db:     db,
		logger: logger,
	}
}

func recipientDest(rc *models.Recipient) []interface{} {
	return []interface{}{
		&rc.ID, &rc.TaxID, &rc.TaxIDKind, &rc.CNPJ, &rc.CPF, &rc.Name, &rc.StateRegistration, &rc.Phone, &rc.Email,
		&rc.Street, &rc.Number, &rc.Complement, &rc.District, &rc.City, &rc.State, &rc.ZipCode, &rc.Country,
		&rc.IsActive, &rc.CreatedAt, &rc.UpdatedAt,
	}
}

// GetByID obtiene un destinatario por ID
func (r *RecipientRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Recipient, error) {
	query := `SELECT ` + recipientColumns + ` FROM recipients WHERE id = $1`

	var recipient models.Recipient
	if err := r.db.QueryRowWithTimeout(ctx, query, []interface{}{id}, recipientDest(&recipient)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("recipient %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("error querying recipient: %w", err)
	}
	return &recipient, nil
}

// GetByTaxID obtiene un destinatario por su clave natural (CNPJ, CPF o sintética)
func (r *RecipientRepository) GetByTaxID(ctx context.Context, taxID string) (*models.Recipient, error) {
	query := `SELECT ` + recipientColumns + ` FROM recipients WHERE tax_id = $1`

	var recipient models.Recipient
	if err := r.db.QueryRowWithTimeout(ctx, query, []interface{}{taxID}, recipientDest(&recipient)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("recipient with tax ID %s: %w", taxID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("error querying recipient: %w", err)
	}
	return &recipient, nil
}

// Create inserta el destinatario si la clave no existe
func (r *RecipientRepository) Create(ctx context.Context, rc *models.Recipient) (bool, error) {
	query := `
		INSERT INTO recipients (` + recipientColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		ON CONFLICT (tax_id) DO NOTHING
	`

	result, err := r.db.ExecWithTimeout(ctx, query,
		rc.ID, rc.TaxID, rc.TaxIDKind, rc.CNPJ, rc.CPF, rc.Name, rc.StateRegistration, rc.Phone, rc.Email,
		rc.Street, rc.Number, rc.Complement, rc.District, rc.City, rc.State, rc.ZipCode, rc.Country,
		rc.IsActive, rc.CreatedAt, rc.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("error creating recipient: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error getting rows affected: %w", err)
	}
	return affected > 0, nil
}

// SetActive archiva o reactiva un destinatario
func (r *RecipientRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return setActive(ctx, r.db, "recipients", id, active)
}
