package models

import (
	"time"

	"github.com/google/uuid"
)

// OperationType representa la dirección de la operación fiscal (tpNF)
type OperationType string

const (
	OperationTypeInbound  OperationType = "inbound"
	OperationTypeOutbound OperationType = "outbound"
)

// OperationTypeFromTpNF traduce el campo tpNF (0 entrada, 1 salida)
func OperationTypeFromTpNF(tpNF string) OperationType {
	if tpNF == "1" {
		return OperationTypeOutbound
	}
	return OperationTypeInbound
}

// IsValid indica si el tipo de operación es conocido
func (o OperationType) IsValid() bool {
	return o == OperationTypeInbound || o == OperationTypeOutbound
}

// InvoiceState representa el estado del ciclo de vida de una NFe importada
type InvoiceState string

const (
	InvoiceStateDraft     InvoiceState = "draft"
	InvoiceStateImported  InvoiceState = "imported"
	InvoiceStateProcessed InvoiceState = "processed"
	InvoiceStateCancelled InvoiceState = "cancelled"
)

// allowedTransitions define las transiciones manuales permitidas.
// La importación siempre produce InvoiceStateImported.
var allowedTransitions = map[InvoiceState][]InvoiceState{
	InvoiceStateDraft:     {InvoiceStateImported, InvoiceStateProcessed, InvoiceStateCancelled},
	InvoiceStateImported:  {InvoiceStateDraft, InvoiceStateProcessed, InvoiceStateCancelled},
	InvoiceStateProcessed: {InvoiceStateDraft, InvoiceStateCancelled},
	InvoiceStateCancelled: {InvoiceStateDraft},
}

// IsValid indica si el estado es conocido
func (s InvoiceState) IsValid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// CanTransitionTo indica si se permite pasar de s a target
func (s InvoiceState) CanTransitionTo(target InvoiceState) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// InvoiceTotals agrupa los totales del bloque ICMSTot
type InvoiceTotals struct {
	Products  float64 `json:"products" db:"total_products"`
	Freight   float64 `json:"freight" db:"total_freight"`
	Insurance float64 `json:"insurance" db:"total_insurance"`
	Discount  float64 `json:"discount" db:"total_discount"`
	Other     float64 `json:"other" db:"total_other"`
	ICMS      float64 `json:"icms" db:"total_icms"`
	IPI       float64 `json:"ipi" db:"total_ipi"`
	PIS       float64 `json:"pis" db:"total_pis"`
	COFINS    float64 `json:"cofins" db:"total_cofins"`
	Total     float64 `json:"total" db:"total_amount"`
}

// Invoice representa una NFe importada
type Invoice struct {
	ID            uuid.UUID     `json:"id" db:"id"`
	AccessKey     string        `json:"access_key" db:"access_key"`
	Number        string        `json:"number" db:"number"`
	Series        string        `json:"series" db:"series"`
	Model         string        `json:"model" db:"model"`
	OperationType OperationType `json:"operation_type" db:"operation_type"`
	IssueDate     time.Time     `json:"issue_date" db:"issue_date"`
	EntryDate     *time.Time    `json:"entry_date,omitempty" db:"entry_date"`
	EmitterID     uuid.UUID     `json:"emitter_id" db:"emitter_id"`
	RecipientID   uuid.UUID     `json:"recipient_id" db:"recipient_id"`
	Totals        InvoiceTotals `json:"totals"`
	State         InvoiceState  `json:"state" db:"state"`

	// XML original conservado para auditoría
	XMLOriginal string  `json:"-" db:"xml_original"`
	XMLFileName string  `json:"xml_file_name" db:"xml_file_name"`
	ArchiveKey  *string `json:"archive_key,omitempty" db:"archive_key"`

	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// Cantidad de items (calculada en listados y detalle)
	ItemCount int `json:"item_count" db:"item_count"`

	// Relaciones (populadas en consultas)
	Emitter   *Emitter   `json:"emitter,omitempty"`
	Recipient *Recipient `json:"recipient,omitempty"`
	Items     []LineItem `json:"items,omitempty"`
}

// LineItem representa un item (det) de una NFe
type LineItem struct {
	ID         uuid.UUID `json:"id" db:"id"`
	InvoiceID  uuid.UUID `json:"invoice_id" db:"invoice_id"`
	ProductID  uuid.UUID `json:"product_id" db:"product_id"`
	ItemNumber int       `json:"item_number" db:"item_number"`
	Quantity   float64   `json:"quantity" db:"quantity"`
	UnitPrice  float64   `json:"unit_price" db:"unit_price"`
	TotalPrice float64   `json:"total_price" db:"total_price"`
	Discount   float64   `json:"discount" db:"discount"`
	ICMS       float64   `json:"icms" db:"icms"`
	IPI        float64   `json:"ipi" db:"ipi"`
	PIS        float64   `json:"pis" db:"pis"`
	COFINS     float64   `json:"cofins" db:"cofins"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`

	Product *Product `json:"product,omitempty"`
}

// InvoiceNote es una nota de auditoría asociada a una NFe
type InvoiceNote struct {
	ID        uuid.UUID `json:"id" db:"id"`
	InvoiceID uuid.UUID `json:"invoice_id" db:"invoice_id"`
	Body      string    `json:"body" db:"body"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// InvoiceFilter representa los filtros del listado de NFe
type InvoiceFilter struct {
	From          *time.Time
	To            *time.Time
	OperationType OperationType
	State         InvoiceState
	EmitterCNPJ   string
	IncludeAll    bool
	Page          int
	PageSize      int
}

// InvoiceListResponse representa la respuesta paginada del listado
type InvoiceListResponse struct {
	Items    []Invoice `json:"items"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
	Total    int       `json:"total"`
}

// ChangeStateRequest representa el request de transición de estado
type ChangeStateRequest struct {
	State InvoiceState `json:"state" binding:"required,oneof=draft imported processed cancelled"`
}
