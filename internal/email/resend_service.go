package email

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/JulioAnalista/vendas-audit/internal/config"
	"github.com/JulioAnalista/vendas-audit/internal/models"
	"github.com/resend/resend-go/v2"
	"github.com/sirupsen/logrus"
)

const defaultFrom = "onboarding@resend.dev"

// ResendService envía el resumen de las corridas de importación usando Resend API
type ResendService struct {
	client    *resend.Client
	fromEmail string
	toEmail   string
	baseURL   string
	logger    *logrus.Logger
}

// NewResendService crea una nueva instancia de ResendService
func NewResendService(cfg *config.Config, logger *logrus.Logger) *ResendService {
	from := cfg.Email.From
	if from == "" {
		from = defaultFrom
	}
	return &ResendService{
		client:    resend.NewClient(cfg.Email.ResendAPIKey),
		fromEmail: from,
		toEmail:   cfg.Email.OperatorEmail,
		baseURL:   cfg.Server.BaseURL,
		logger:    logger,
	}
}

// Subject arma el asunto según el resultado de la corrida
func Subject(run *models.ImportRun) string {
	if run.Status == models.RunStatusCompleted && run.TotalErrors == 0 {
		return fmt.Sprintf("Importação concluída: %d NFe importadas", run.TotalImported)
	}
	return fmt.Sprintf("Importação com erros: %d importadas, %d com erro", run.TotalImported, run.TotalErrors)
}

// RenderSummary arma el HTML del resumen con contadores y log
func (s *ResendService) RenderSummary(run *models.ImportRun) string {
	finished := "-"
	if run.FinishedAt != nil {
		finished = run.FinishedAt.Format("02/01/2006 15:04:05")
	}

	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Resumo da importação</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 700px; margin: 0 auto; padding: 20px; }
        .header { background-color: #f8f9fa; padding: 20px; text-align: center; border-radius: 8px; }
        .content { padding: 20px; }
        .log { font-family: monospace; font-size: 12px; background-color: #fdfdfd; padding: 10px; border: 1px solid #eee; }
        .footer { margin-top: 30px; padding: 20px; background-color: #f8f9fa; border-radius: 8px; font-size: 14px; color: #666; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Resumo da importação de NFe</h1>
            <p>Corrida: %s</p>
            <p>Origem: %s</p>
        </div>

        <div class="content">
            <ul>
                <li><strong>Status:</strong> %s</li>
                <li><strong>Arquivos:</strong> %d</li>
                <li><strong>Importadas:</strong> %d</li>
                <li><strong>Com erro:</strong> %d</li>
                <li><strong>Lotes:</strong> %d (tamanho %d)</li>
                <li><strong>Início:</strong> %s</li>
                <li><strong>Fim:</strong> %s</li>
            </ul>

            <p>Consulte a corrida em <a href="%s/v1/imports/runs/%s">%s/v1/imports/runs/%s</a></p>

            <h2>Log</h2>
            <div class="log">
%s
            </div>
        </div>

        <div class="footer">
            <p>Este é um email automático do serviço de auditoria de vendas.</p>
        </div>
    </div>
</body>
</html>`,
		run.ID,
		html.EscapeString(run.Source),
		run.Status,
		run.TotalFiles,
		run.TotalImported,
		run.TotalErrors,
		run.BatchesDone, run.BatchSize,
		run.StartedAt.Format("02/01/2006 15:04:05"),
		finished,
		s.baseURL, run.ID, s.baseURL, run.ID,
		run.HTMLLog())
}

// SendImportSummary envía el resumen de la corrida al operador
func (s *ResendService) SendImportSummary(ctx context.Context, run *models.ImportRun) error {
	if s.toEmail == "" {
		return fmt.Errorf("operator email not configured")
	}

	subject := Subject(run)
	request := &resend.SendEmailRequest{
		From:    s.fromEmail,
		To:      []string{s.toEmail},
		Subject: subject,
		Html:    s.RenderSummary(run),
		Tags: []resend.Tag{
			{Name: "run_id", Value: run.ID.String()},
		},
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	result, err := s.client.Emails.SendWithContext(ctx, request)
	if err != nil {
		return fmt.Errorf("error sending email via Resend: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"email_id": result.Id,
		"to":       s.toEmail,
		"run_id":   run.ID,
		"subject":  subject,
	}).Info("Import summary sent via Resend")

	return nil
}
