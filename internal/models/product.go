package models

import (
	"time"

	"github.com/google/uuid"
)

// PlaceholderProductCode se usa cuando el item no informa cProd
const PlaceholderProductCode = "SEM_CODIGO"

// Product representa un producto identificado por su código (cProd)
type Product struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Code        string    `json:"code" db:"code"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	NCM         string    `json:"ncm" db:"ncm"`
	CFOP        string    `json:"cfop" db:"cfop"`
	Unit        string    `json:"unit" db:"unit"`

	// Enriquecimiento semántico escrito por un colaborador externo
	SemanticNCM         string     `json:"semantic_ncm,omitempty" db:"semantic_ncm"`
	SemanticDescription string     `json:"semantic_description,omitempty" db:"semantic_description"`
	Embedding           []float64  `json:"embedding,omitempty" db:"embedding"`
	LastSemanticUpdate  *time.Time `json:"last_semantic_update,omitempty" db:"last_semantic_update"`

	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ProductAttrs son los datos del bloque prod usados al crear un producto
type ProductAttrs struct {
	Name        string
	Description string
	NCM         string
	CFOP        string
	Unit        string
}

// NewProduct construye un producto nuevo
func NewProduct(code string, attrs ProductAttrs) *Product {
	now := time.Now().UTC()
	name := attrs.Name
	if name == "" {
		name = "Produto"
	}
	description := attrs.Description
	if description == "" {
		description = name
	}
	return &Product{
		ID:          uuid.New(),
		Code:        code,
		Name:        name,
		Description: description,
		NCM:         attrs.NCM,
		CFOP:        attrs.CFOP,
		Unit:        attrs.Unit,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// UpdateSemanticRequest representa el request del enriquecimiento semántico
type UpdateSemanticRequest struct {
	SemanticNCM         string    `json:"semantic_ncm"`
	SemanticDescription string    `json:"semantic_description"`
	Embedding           []float64 `json:"embedding"`
}
