package email

import (
	"context"
	"testing"

	"github.com/JulioAnalista/vendas-audit/internal/config"
	"github.com/JulioAnalista/vendas-audit/internal/models"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
)

func newTestService(operator string) *ResendService {
	logger, _ := test.NewNullLogger()
	cfg := &config.Config{
		Server: config.ServerConfig{BaseURL: "http://localhost:8081"},
		Email:  config.EmailConfig{ResendAPIKey: "re_test", OperatorEmail: operator},
	}
	return NewResendService(cfg, logger)
}

func TestSubject(t *testing.T) {
	tests := []struct {
		name     string
		status   models.RunStatus
		imported int
		errors   int
		want     string
	}{
		{name: "clean run", status: models.RunStatusCompleted, imported: 10, want: "Importação concluída: 10 NFe importadas"},
		{name: "run with errors", status: models.RunStatusCompleted, imported: 9, errors: 1, want: "Importação com erros: 9 importadas, 1 com erro"},
		{name: "failed run", status: models.RunStatusFailed, errors: 3, want: "Importação com erros: 0 importadas, 3 com erro"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := &models.ImportRun{Status: tt.status, TotalImported: tt.imported, TotalErrors: tt.errors}
			assert.Equal(t, tt.want, Subject(run))
		})
	}
}

func TestRenderSummary(t *testing.T) {
	service := newTestService("ops@example.com")
	assert.Equal(t, defaultFrom, service.fromEmail)

	run := models.NewImportRun("folder:/data/<lote>", 1000)
	run.TotalFiles = 2
	run.TotalImported = 1
	run.TotalErrors = 1
	run.AddLog(models.LogLevelError, "nfe_02.xml: <broken> document")
	run.Finish(models.RunStatusCompleted)

	body := service.RenderSummary(run)
	assert.Contains(t, body, run.ID.String())
	assert.Contains(t, body, "folder:/data/&lt;lote&gt;")
	assert.Contains(t, body, "&lt;broken&gt;")
	assert.Contains(t, body, `color: red;`)
	assert.Contains(t, body, "http://localhost:8081/v1/imports/runs/"+run.ID.String())
	assert.NotContains(t, body, "<broken>")
}

func TestSendImportSummaryRequiresOperator(t *testing.T) {
	service := newTestService("")

	err := service.SendImportSummary(context.Background(), models.NewImportRun("files", 10))
	assert.Error(t, err)
}
