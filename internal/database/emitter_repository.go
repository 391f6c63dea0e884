package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/JulioAnalista/vendas-audit/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const emitterColumns = `
	id, cnpj, name, trade_name, state_registration, phone, email,
	street, number, complement, district, city, state, zip_code, country,
	is_active, created_at, updated_at`

// EmitterRepository maneja las operaciones de base de datos para Emitter
type EmitterRepository struct {
	db     *DB
	logger *logrus.Logger
}

// NewEmitterRepository crea una nueva instancia del repositorio
func NewEmitterRepository(db *DB, logger *logrus.Logger) *EmitterRepository {
	return &EmitterRepository{
		db:     db,
		logger: logger,
	}
}

func emitterDest(e *models.Emitter) []interface{} {
	return []interface{}{
		&e.ID, &e.CNPJ, &e.Name, &e.TradeName, &e.StateRegistration, &e.Phone, &e.Email,
		&e.Street, &e.Number, &e.Complement, &e.District, &e.City, &e.State, &e.ZipCode, &e.Country,
		&e.IsActive, &e.CreatedAt, &e.UpdatedAt,
	}
}

// GetByID obtiene un emisor por ID
func (r *EmitterRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Emitter, error) {
	query := `SELECT ` + emitterColumns + ` FROM emitters WHERE id = $1`

	var emitter models.Emitter
	if err := r.db.QueryRowWithTimeout(ctx, query, []interface{}{id}, emitterDest(&emitter)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("emitter %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("error querying emitter: %w", err)
	}
	return &emitter, nil
}

// GetByCNPJ obtiene un emisor por CNPJ, incluyendo archivados
func (r *EmitterRepository) GetByCNPJ(ctx context.Context, cnpj string) (*models.Emitter, error) {
	query := `SELECT ` + emitterColumns + ` FROM emitters WHERE cnpj = $1`

	var emitter models.Emitter
	if err := r.db.QueryRowWithTimeout(ctx, query, []interface{}{cnpj}, emitterDest(&emitter)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("emitter with CNPJ %s: %w", cnpj, models.ErrNotFound)
		}
		return nil, fmt.Errorf("error querying emitter: %w", err)
	}
	return &emitter, nil
}

// Create inserta el emisor si el CNPJ no existe. Retorna false cuando otro
// registro ya ocupaba el CNPJ.
func (r *EmitterRepository) Create(ctx context.Context, e *models.Emitter) (bool, error) {
	query := `
		INSERT INTO emitters (` + emitterColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (cnpj) DO NOTHING
	`

	result, err := r.db.ExecWithTimeout(ctx, query,
		e.ID, e.CNPJ, e.Name, e.TradeName, e.StateRegistration, e.Phone, e.Email,
		e.Street, e.Number, e.Complement, e.District, e.City, e.State, e.ZipCode, e.Country,
		e.IsActive, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("error creating emitter: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error getting rows affected: %w", err)
	}

	if affected > 0 {
		r.logger.WithFields(logrus.Fields{
			"emitter_id": e.ID,
			"cnpj":       e.CNPJ,
		}).Debug("Emitter created")
	}
	return affected > 0, nil
}

// SetActive archiva o reactiva un emisor
func (r *EmitterRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return setActive(ctx, r.db, "emitters", id, active)
}

// setActive es el soft delete compartido por las tablas de referencia
func setActive(ctx context.Context, db *DB, table string, id uuid.UUID, active bool) error {
	query := fmt.Sprintf(`UPDATE %s SET is_active = $1, updated_at = $2 WHERE id = $3`, table)

	result, err := db.ExecWithTimeout(ctx, query, active, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("error updating %s: %w", table, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%s %s: %w", table, id, models.ErrNotFound)
	}
	return nil
}
