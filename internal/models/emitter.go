package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultCountry es el país asumido cuando el XML no informa xPais
const DefaultCountry = "BRASIL"

// Address agrupa los campos de dirección de emisores y destinatarios
type Address struct {
	Street     string `json:"street" db:"street"`
	Number     string `json:"number" db:"number"`
	Complement string `json:"complement" db:"complement"`
	District   string `json:"district" db:"district"`
	City       string `json:"city" db:"city"`
	State      string `json:"state" db:"state"`
	ZipCode    string `json:"zip_code" db:"zip_code"`
	Country    string `json:"country" db:"country"`
}

// Emitter representa la empresa emisora de una NFe
type Emitter struct {
	ID                uuid.UUID `json:"id" db:"id"`
	CNPJ              string    `json:"cnpj" db:"cnpj"`
	Name              string    `json:"name" db:"name"`
	TradeName         string    `json:"trade_name" db:"trade_name"`
	StateRegistration string    `json:"state_registration" db:"state_registration"`
	Phone             string    `json:"phone" db:"phone"`
	Email             string    `json:"email" db:"email"`
	Address
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// EmitterAttrs son los datos leídos del bloque emit usados al crear un emisor
type EmitterAttrs struct {
	Name              string
	TradeName         string
	StateRegistration string
	Phone             string
	Email             string
	Address           Address
}

// NewEmitter construye un emisor nuevo con valores por defecto validados
func NewEmitter(cnpj string, attrs EmitterAttrs) *Emitter {
	now := time.Now().UTC()
	name := attrs.Name
	if name == "" {
		name = cnpj
	}
	address := attrs.Address
	if address.Country == "" {
		address.Country = DefaultCountry
	}
	return &Emitter{
		ID:                uuid.New(),
		CNPJ:              cnpj,
		Name:              name,
		TradeName:         attrs.TradeName,
		StateRegistration: attrs.StateRegistration,
		Phone:             attrs.Phone,
		Email:             attrs.Email,
		Address:           address,
		IsActive:          true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// SetActiveRequest representa el request para archivar o reactivar un registro
type SetActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}
