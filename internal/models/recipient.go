package models

import (
	"time"

	"github.com/google/uuid"
)

// TaxIDKind indica de dónde proviene la clave natural del destinatario
type TaxIDKind string

const (
	TaxIDKindCNPJ      TaxIDKind = "cnpj"
	TaxIDKindCPF       TaxIDKind = "cpf"
	TaxIDKindSynthetic TaxIDKind = "synthetic"
	TaxIDKindDefault   TaxIDKind = "default"
)

const (
	// DefaultRecipientTaxID identifica al destinatario compartido de las NFe sin bloque dest
	DefaultRecipientTaxID = "DESTINATARIO_PADRAO"
	// DefaultRecipientName es el nombre del destinatario compartido
	DefaultRecipientName = "Destinatário Padrão"
	// SyntheticTaxIDPrefix antecede a los últimos 8 caracteres de la chave de acesso
	SyntheticTaxIDPrefix = "SEMDOC-"
)

// Recipient representa el destinatario de una NFe
type Recipient struct {
	ID                uuid.UUID `json:"id" db:"id"`
	TaxID             string    `json:"tax_id" db:"tax_id"`
	TaxIDKind         TaxIDKind `json:"tax_id_kind" db:"tax_id_kind"`
	CNPJ              string    `json:"cnpj,omitempty" db:"cnpj"`
	CPF               string    `json:"cpf,omitempty" db:"cpf"`
	Name              string    `json:"name" db:"name"`
	StateRegistration string    `json:"state_registration" db:"state_registration"`
	Phone             string    `json:"phone" db:"phone"`
	Email             string    `json:"email" db:"email"`
	Address
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// RecipientAttrs son los datos leídos del bloque dest
type RecipientAttrs struct {
	CNPJ              string
	CPF               string
	Name              string
	StateRegistration string
	Phone             string
	Email             string
	Address           Address
}

// SyntheticTaxID deriva la clave de un destinatario sin CNPJ ni CPF.
// No es resistente a colisiones: dos chaves con el mismo sufijo comparten destinatario.
func SyntheticTaxID(accessKey string) string {
	tail := accessKey
	if len(tail) > 8 {
		tail = tail[len(tail)-8:]
	}
	return SyntheticTaxIDPrefix + tail
}

// NewRecipient construye un destinatario nuevo
func NewRecipient(taxID string, kind TaxIDKind, attrs RecipientAttrs) *Recipient {
	now := time.Now().UTC()
	name := attrs.Name
	if name == "" {
		if kind == TaxIDKindDefault {
			name = DefaultRecipientName
		} else {
			name = taxID
		}
	}
	address := attrs.Address
	if address.Country == "" {
		address.Country = DefaultCountry
	}
	return &Recipient{
		ID:                uuid.New(),
		TaxID:             taxID,
		TaxIDKind:         kind,
		CNPJ:              attrs.CNPJ,
		CPF:               attrs.CPF,
		Name:              name,
		StateRegistration: attrs.StateRegistration,
		Phone:             attrs.Phone,
		Email:             attrs.Email,
		Address:           address,
		IsActive:          true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}
