package services

import (
	"bytes"
	"fmt"
	"time"

	"github.com/JulioAnalista/vendas-audit/internal/models"
	"github.com/jung-kurt/gofpdf"
	"github.com/sirupsen/logrus"
)

// DocumentGenerator genera el resumen PDF de una NFe importada
type DocumentGenerator struct {
	logger *logrus.Logger
	now    func() time.Time
}

// NewDocumentGenerator crea una nueva instancia del generador
func NewDocumentGenerator(logger *logrus.Logger) *DocumentGenerator {
	return &DocumentGenerator{
		logger: logger,
		now:    time.Now,
	}
}

// GenerateInvoicePDF genera el resumen de la NFe con emisor, destinatario,
// items y totales. invoice debe venir con sus relaciones cargadas.
func (d *DocumentGenerator) GenerateInvoicePDF(invoice *models.Invoice) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr("NFe "+invoice.AccessKey), false)
	pdf.AddPage()

	// Encabezado
	pdf.SetFillColor(41, 128, 185)
	pdf.Rect(0, 0, 210, 36, "F")
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Arial", "B", 20)
	pdf.Cell(190, 12, tr(fmt.Sprintf("NOTA FISCAL ELETRÔNICA Nº %s", invoice.Number)))
	pdf.Ln(12)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(190, 6, tr(fmt.Sprintf("Série %s  Modelo %s  %s", invoice.Series, invoice.Model, operationLabel(invoice.OperationType))))
	pdf.Ln(6)
	pdf.Cell(190, 6, tr(fmt.Sprintf("Chave de acesso: %s", invoice.AccessKey)))
	pdf.Ln(6)

	pdf.SetTextColor(44, 62, 80)

	// Emisor (izquierda) y destinatario (derecha)
	pdf.SetY(44)
	if invoice.Emitter != nil {
		d.partyBlock(pdf, tr, 10, "EMITENTE", invoice.Emitter.Name, "CNPJ: "+invoice.Emitter.CNPJ, invoice.Emitter.Address)
	}
	if invoice.Recipient != nil {
		d.partyBlock(pdf, tr, 105, "DESTINATÁRIO", invoice.Recipient.Name, recipientDocument(invoice.Recipient), invoice.Recipient.Address)
	}

	pdf.SetY(82)
	pdf.SetX(10)
	pdf.SetFont("Arial", "", 10)
	dates := fmt.Sprintf("Emissão: %s", invoice.IssueDate.Format("02/01/2006 15:04"))
	if invoice.EntryDate != nil {
		dates += fmt.Sprintf("    Saída/Entrada: %s", invoice.EntryDate.Format("02/01/2006 15:04"))
	}
	pdf.Cell(190, 6, tr(dates))
	pdf.Ln(6)
	pdf.Cell(190, 6, tr(fmt.Sprintf("Estado: %s", invoice.State)))
	pdf.Ln(10)

	// Tabla de items
	colWidths := []float64{12, 24, 64, 20, 22, 24, 24}
	colHeaders := []string{"Item", "Código", "Descrição", "NCM", "Qtd.", "V. Unit.", "V. Total"}

	pdf.SetFillColor(236, 240, 241)
	pdf.SetFont("Arial", "B", 9)
	for i, header := range colHeaders {
		pdf.CellFormat(colWidths[i], 8, tr(header), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 8)
	rowHeight := 7.0
	for i, item := range invoice.Items {
		if i%2 == 0 {
			pdf.SetFillColor(248, 249, 250)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}

		code, name, ncm := "", "", ""
		if item.Product != nil {
			code, name, ncm = item.Product.Code, item.Product.Name, item.Product.NCM
		}
		pdf.CellFormat(colWidths[0], rowHeight, fmt.Sprintf("%d", item.ItemNumber), "1", 0, "C", true, 0, "")
		pdf.CellFormat(colWidths[1], rowHeight, tr(truncate(code, 14)), "1", 0, "L", true, 0, "")
		pdf.CellFormat(colWidths[2], rowHeight, tr(truncate(name, 40)), "1", 0, "L", true, 0, "")
		pdf.CellFormat(colWidths[3], rowHeight, ncm, "1", 0, "C", true, 0, "")
		pdf.CellFormat(colWidths[4], rowHeight, fmt.Sprintf("%.4f", item.Quantity), "1", 0, "R", true, 0, "")
		pdf.CellFormat(colWidths[5], rowHeight, fmt.Sprintf("%.2f", item.UnitPrice), "1", 0, "R", true, 0, "")
		pdf.CellFormat(colWidths[6], rowHeight, fmt.Sprintf("%.2f", item.TotalPrice), "1", 0, "R", true, 0, "")
		pdf.Ln(rowHeight)
	}

	// Totales
	totalY := pdf.GetY() + 8
	pdf.SetY(totalY)
	pdf.SetDrawColor(189, 195, 199)
	pdf.Line(110, totalY, 200, totalY)
	pdf.Ln(4)

	t := invoice.Totals
	rows := []struct {
		label string
		value float64
	}{
		{"Produtos", t.Products},
		{"Frete", t.Freight},
		{"Seguro", t.Insurance},
		{"Desconto", t.Discount},
		{"Outras despesas", t.Other},
		{"ICMS", t.ICMS},
		{"IPI", t.IPI},
		{"PIS", t.PIS},
		{"COFINS", t.COFINS},
	}
	pdf.SetFont("Arial", "", 10)
	for _, row := range rows {
		pdf.SetX(110)
		pdf.Cell(55, 6, tr(row.label+":"))
		pdf.CellFormat(35, 6, fmt.Sprintf("R$ %.2f", row.value), "", 0, "R", false, 0, "")
		pdf.Ln(6)
	}

	pdf.SetFont("Arial", "B", 12)
	pdf.SetFillColor(41, 128, 185)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetX(110)
	pdf.CellFormat(55, 10, "TOTAL DA NOTA:", "", 0, "L", true, 0, "")
	pdf.CellFormat(35, 10, fmt.Sprintf("R$ %.2f", t.Total), "", 0, "R", true, 0, "")
	pdf.Ln(10)

	// Pie
	pdf.SetY(275)
	pdf.SetTextColor(149, 165, 166)
	pdf.SetFont("Arial", "", 8)
	pdf.Cell(190, 5, tr(fmt.Sprintf("Resumo gerado em %s a partir do XML importado (%s)",
		d.now().Format("02/01/2006 15:04:05"), invoice.XMLFileName)))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("error generating PDF: %w", err)
	}

	d.logger.WithFields(logrus.Fields{
		"invoice_id": invoice.ID,
		"pdf_size":   buf.Len(),
	}).Debug("Invoice PDF generated")

	return buf.Bytes(), nil
}

func (d *DocumentGenerator) partyBlock(pdf *gofpdf.Fpdf, tr func(string) string, x float64, title, name, document string, addr models.Address) {
	pdf.SetXY(x, 44)
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(95, 7, tr(title))
	pdf.SetXY(x, 51)
	pdf.SetFont("Arial", "", 9)
	pdf.Cell(95, 5, tr(truncate(name, 55)))
	pdf.SetXY(x, 56)
	pdf.Cell(95, 5, tr(document))

	street := addr.Street
	if addr.Number != "" {
		street += ", " + addr.Number
	}
	pdf.SetXY(x, 61)
	pdf.Cell(95, 5, tr(truncate(street, 55)))
	pdf.SetXY(x, 66)
	pdf.Cell(95, 5, tr(fmt.Sprintf("%s %s %s", addr.City, addr.State, addr.ZipCode)))
}

func operationLabel(op models.OperationType) string {
	if op == models.OperationTypeOutbound {
		return "Saída"
	}
	return "Entrada"
}

func recipientDocument(r *models.Recipient) string {
	switch {
	case r.CNPJ != "":
		return "CNPJ: " + r.CNPJ
	case r.CPF != "":
		return "CPF: " + r.CPF
	default:
		return "Sem documento"
	}
}

func truncate(value string, max int) string {
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	return string(runes[:max-3]) + "..."
}
