package models

import (
	"errors"
	"fmt"
)

// ErrorCode representa el código de error
type ErrorCode string

const (
	ErrorCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrorCodeUnauthorized   ErrorCode = "UNAUTHORIZED"
	ErrorCodeForbidden      ErrorCode = "FORBIDDEN"
	ErrorCodeNotFound       ErrorCode = "NOT_FOUND"
	ErrorCodeConflict       ErrorCode = "CONFLICT"
	ErrorCodeImportFailed   ErrorCode = "IMPORT_FAILED"
	ErrorCodeInternal       ErrorCode = "INTERNAL"
)

var (
	// ErrNotFound se envuelve cuando una consulta no encuentra el registro
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition indica una transición de estado no permitida
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrValidation indica datos de entrada rechazados
	ErrValidation = errors.New("validation error")

	ErrInvalidXML          = errors.New("invalid NFe XML")
	ErrMissingAccessKey    = errors.New("access key not found in document")
	ErrMissingEmitterTaxID = errors.New("emitter CNPJ not found in document")
	ErrNothingImported     = errors.New("no document was imported")
)

// ImportErrorKind clasifica los errores fatales por documento
type ImportErrorKind string

const (
	ImportErrorInvalidXML          ImportErrorKind = "invalid_xml"
	ImportErrorMissingAccessKey    ImportErrorKind = "missing_access_key"
	ImportErrorMissingEmitterTaxID ImportErrorKind = "missing_emitter_tax_id"
	ImportErrorPersistence         ImportErrorKind = "persistence"
)

// ImportError es un error fatal para un documento; no afecta a los demás del lote
type ImportError struct {
	Kind     ImportErrorKind
	Document string
	Err      error
}

// NewImportError crea un error de importación
func NewImportError(kind ImportErrorKind, document string, err error) *ImportError {
	return &ImportError{Kind: kind, Document: document, Err: err}
}

func (e *ImportError) Error() string {
	if e.Document != "" {
		return fmt.Sprintf("import %s failed (%s): %v", e.Document, e.Kind, e.Err)
	}
	return fmt.Sprintf("import failed (%s): %v", e.Kind, e.Err)
}

func (e *ImportError) Unwrap() error {
	return e.Err
}

// ErrorDetail representa un detalle específico del error
type ErrorDetail struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

// ErrorResponse representa la respuesta de error estandarizada
type ErrorResponse struct {
	Error ErrorInfo `json:"error"`
}

// ErrorInfo representa la información del error
type ErrorInfo struct {
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

// NewErrorResponse crea una nueva respuesta de error
func NewErrorResponse(code ErrorCode, message string) ErrorResponse {
	return ErrorResponse{
		Error: ErrorInfo{
			Code:    string(code),
			Message: message,
		},
	}
}

// NewValidationError crea un error de validación con detalles
func NewValidationError(message string, details []ErrorDetail) ErrorResponse {
	return ErrorResponse{
		Error: ErrorInfo{
			Code:    string(ErrorCodeInvalidRequest),
			Message: message,
			Details: details,
		},
	}
}

// NewConflictError crea un error de conflicto (idempotencia)
func NewConflictError(message string) ErrorResponse {
	return ErrorResponse{
		Error: ErrorInfo{
			Code:    string(ErrorCodeConflict),
			Message: message,
		},
	}
}

// NewUnauthorizedError crea un error de autenticación
func NewUnauthorizedError(message string) ErrorResponse {
	return ErrorResponse{
		Error: ErrorInfo{
			Code:    string(ErrorCodeUnauthorized),
			Message: message,
		},
	}
}

// NewForbiddenError crea un error de permisos
func NewForbiddenError(message string) ErrorResponse {
	return ErrorResponse{
		Error: ErrorInfo{
			Code:    string(ErrorCodeForbidden),
			Message: message,
		},
	}
}

// NewNotFoundError crea un error de recurso no encontrado
func NewNotFoundError(message string) ErrorResponse {
	return ErrorResponse{
		Error: ErrorInfo{
			Code:    string(ErrorCodeNotFound),
			Message: message,
		},
	}
}

// NewImportFailedError crea un error de importación visible para el operador
func NewImportFailedError(message string, details []ErrorDetail) ErrorResponse {
	return ErrorResponse{
		Error: ErrorInfo{
			Code:    string(ErrorCodeImportFailed),
			Message: message,
			Details: details,
		},
	}
}

// NewInternalError crea un error interno del servidor
func NewInternalError(message string) ErrorResponse {
	return ErrorResponse{
		Error: ErrorInfo{
			Code:    string(ErrorCodeInternal),
			Message: message,
		},
	}
}
