package models

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LogLevel representa la severidad de una entrada del log de importación
type LogLevel string

const (
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
	LogLevelSuccess LogLevel = "success"
)

var logLevelColors = map[LogLevel]string{
	LogLevelInfo:    "blue",
	LogLevelWarning: "orange",
	LogLevelError:   "red",
	LogLevelSuccess: "green",
}

// LogEntry es una línea del log visible para el operador
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     LogLevel  `json:"level"`
	Message   string    `json:"message"`
}

// HTML renderiza la entrada escapando el mensaje
func (e LogEntry) HTML() string {
	color, ok := logLevelColors[e.Level]
	if !ok {
		color = "black"
	}
	return fmt.Sprintf(`<p style="color: %s;">[%s] %s</p>`,
		color, e.Timestamp.Format("15:04:05"), html.EscapeString(e.Message))
}

// RunStatus representa el estado de una corrida de importación
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// ImportRun acumula contadores, log e IDs importados de una corrida por lotes
type ImportRun struct {
	ID            uuid.UUID   `json:"id"`
	Source        string      `json:"source"`
	Status        RunStatus   `json:"status"`
	TotalFiles    int         `json:"total_files"`
	TotalImported int         `json:"total_imported"`
	TotalErrors   int         `json:"total_errors"`
	BatchSize     int         `json:"batch_size"`
	BatchesDone   int         `json:"batches_done"`
	InvoiceIDs    []uuid.UUID `json:"invoice_ids"`
	Log           []LogEntry  `json:"log"`
	StartedAt     time.Time   `json:"started_at"`
	FinishedAt    *time.Time  `json:"finished_at,omitempty"`
}

// NewImportRun crea una corrida vacía
func NewImportRun(source string, batchSize int) *ImportRun {
	return &ImportRun{
		ID:         uuid.New(),
		Source:     source,
		Status:     RunStatusRunning,
		BatchSize:  batchSize,
		InvoiceIDs: []uuid.UUID{},
		Log:        []LogEntry{},
		StartedAt:  time.Now().UTC(),
	}
}

// AddLog agrega una entrada con timestamp
func (r *ImportRun) AddLog(level LogLevel, format string, args ...interface{}) {
	r.Log = append(r.Log, LogEntry{
		Timestamp: time.Now(),
		Level:     level,
		Message:   fmt.Sprintf(format, args...),
	})
}

// Finish marca la corrida como terminada
func (r *ImportRun) Finish(status RunStatus) {
	now := time.Now().UTC()
	r.Status = status
	r.FinishedAt = &now
}

// HTMLLog renderiza el log completo para el operador
func (r *ImportRun) HTMLLog() string {
	var b strings.Builder
	for _, entry := range r.Log {
		b.WriteString(entry.HTML())
		b.WriteString("\n")
	}
	return b.String()
}

// ImportResponse representa la respuesta de un endpoint de importación
type ImportResponse struct {
	RunID         uuid.UUID   `json:"run_id"`
	Status        RunStatus   `json:"status"`
	TotalFiles    int         `json:"total_files"`
	TotalImported int         `json:"total_imported"`
	TotalErrors   int         `json:"total_errors"`
	InvoiceIDs    []uuid.UUID `json:"invoice_ids"`
	Log           []LogEntry  `json:"log,omitempty"`
}

// NewImportResponse arma la respuesta a partir de la corrida
func NewImportResponse(run *ImportRun) ImportResponse {
	return ImportResponse{
		RunID:         run.ID,
		Status:        run.Status,
		TotalFiles:    run.TotalFiles,
		TotalImported: run.TotalImported,
		TotalErrors:   run.TotalErrors,
		InvoiceIDs:    run.InvoiceIDs,
		Log:           run.Log,
	}
}

// ImportFolderRequest representa el request de importación de una carpeta del servidor
// Recursive nil usa el valor por defecto de la configuración.
type ImportFolderRequest struct {
	Dir       string `json:"dir" binding:"required"`
	Recursive *bool  `json:"recursive"`
}

// ImportQueuedResponse es la respuesta de una importación delegada al workflow
type ImportQueuedResponse struct {
	EventID string `json:"event_id"`
	Dir     string `json:"dir"`
	Status  string `json:"status"`
}
