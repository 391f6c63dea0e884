package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JulioAnalista/vendas-audit/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const invoiceColumns = `
	id, access_key, number, series, model, operation_type, issue_date, entry_date,
	emitter_id, recipient_id,
	total_products, total_freight, total_insurance, total_discount, total_other,
	total_icms, total_ipi, total_pis, total_cofins, total_amount,
	state, xml_original, xml_file_name, archive_key, is_active, created_at, updated_at`

// listColumns omite el XML original, que puede ser grande
const invoiceListColumns = `
	id, access_key, number, series, model, operation_type, issue_date, entry_date,
	emitter_id, recipient_id,
	total_products, total_freight, total_insurance, total_discount, total_other,
	total_icms, total_ipi, total_pis, total_cofins, total_amount,
	state, '' AS xml_original, xml_file_name, archive_key, is_active, created_at, updated_at,
	(SELECT COUNT(*) FROM invoice_items ii WHERE ii.invoice_id = invoices.id) AS item_count`

const lineItemColumns = `
	id, invoice_id, product_id, item_number, quantity, unit_price, total_price,
	discount, icms, ipi, pis, cofins, created_at`

// InvoiceRepository maneja las operaciones de base de datos para Invoice
type InvoiceRepository struct {
	db     *DB
	logger *logrus.Logger
}

// NewInvoiceRepository crea una nueva instancia del repositorio
func NewInvoiceRepository(db *DB, logger *logrus.Logger) *InvoiceRepository {
	return &InvoiceRepository{
		db:     db,
		logger: logger,
	}
}

// invoiceRow agrega los campos anulables que se convierten al escanear
type invoiceRow struct {
	invoice    models.Invoice
	entryDate  sql.NullTime
	archiveKey sql.NullString
}

func (row *invoiceRow) dest() []interface{} {
	inv := &row.invoice
	t := &inv.Totals
	return []interface{}{
		&inv.ID, &inv.AccessKey, &inv.Number, &inv.Series, &inv.Model, &inv.OperationType, &inv.IssueDate, &row.entryDate,
		&inv.EmitterID, &inv.RecipientID,
		&t.Products, &t.Freight, &t.Insurance, &t.Discount, &t.Other,
		&t.ICMS, &t.IPI, &t.PIS, &t.COFINS, &t.Total,
		&inv.State, &inv.XMLOriginal, &inv.XMLFileName, &row.archiveKey, &inv.IsActive, &inv.CreatedAt, &inv.UpdatedAt,
	}
}

func (row *invoiceRow) toModel() *models.Invoice {
	inv := row.invoice
	if row.entryDate.Valid {
		t := row.entryDate.Time
		inv.EntryDate = &t
	}
	if row.archiveKey.Valid {
		key := row.archiveKey.String
		inv.ArchiveKey = &key
	}
	return &inv
}

func (r *InvoiceRepository) getOne(ctx context.Context, where string, arg interface{}) (*models.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE ` + where + ` = $1`

	var row invoiceRow
	if err := r.db.QueryRowWithTimeout(ctx, query, []interface{}{arg}, row.dest()...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("invoice %v: %w", arg, models.ErrNotFound)
		}
		return nil, fmt.Errorf("error querying invoice: %w", err)
	}
	return row.toModel(), nil
}

// GetByID obtiene una NFe por ID, sin items
func (r *InvoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	return r.getOne(ctx, "id", id)
}

// GetByAccessKey obtiene una NFe por su chave de acesso
func (r *InvoiceRepository) GetByAccessKey(ctx context.Context, accessKey string) (*models.Invoice, error) {
	return r.getOne(ctx, "access_key", accessKey)
}

// Create inserta la NFe si la chave de acesso no existe. Retorna false si
// otro import ya la registró.
func (r *InvoiceRepository) Create(ctx context.Context, inv *models.Invoice) (bool, error) {
	query := `
		INSERT INTO invoices (` + invoiceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
			$21, $22, $23, $24, $25, $26, $27)
		ON CONFLICT (access_key) DO NOTHING
	`

	t := inv.Totals
	result, err := r.db.ExecWithTimeout(ctx, query,
		inv.ID, inv.AccessKey, inv.Number, inv.Series, inv.Model, inv.OperationType, inv.IssueDate, inv.EntryDate,
		inv.EmitterID, inv.RecipientID,
		t.Products, t.Freight, t.Insurance, t.Discount, t.Other,
		t.ICMS, t.IPI, t.PIS, t.COFINS, t.Total,
		inv.State, inv.XMLOriginal, inv.XMLFileName, inv.ArchiveKey, inv.IsActive, inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("error inserting invoice: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error getting rows affected: %w", err)
	}
	return affected > 0, nil
}

// CreateItem inserta un item; un reintento con el mismo (invoice, product,
// item_number) no duplica la línea y retorna false.
func (r *InvoiceRepository) CreateItem(ctx context.Context, item *models.LineItem) (bool, error) {
	query := `
		INSERT INTO invoice_items (` + lineItemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (invoice_id, product_id, item_number) DO NOTHING
	`

	result, err := r.db.ExecWithTimeout(ctx, query,
		item.ID, item.InvoiceID, item.ProductID, item.ItemNumber, item.Quantity, item.UnitPrice, item.TotalPrice,
		item.Discount, item.ICMS, item.IPI, item.PIS, item.COFINS, item.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("error inserting invoice item: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error getting rows affected: %w", err)
	}
	return affected > 0, nil
}

// GetItems obtiene los items de una NFe con su producto, ordenados por número
func (r *InvoiceRepository) GetItems(ctx context.Context, invoiceID uuid.UUID) ([]models.LineItem, error) {
	query := `
		SELECT i.id, i.invoice_id, i.product_id, i.item_number, i.quantity, i.unit_price, i.total_price,
			i.discount, i.icms, i.ipi, i.pis, i.cofins, i.created_at,
			p.code, p.name, p.ncm, p.cfop, p.unit
		FROM invoice_items i
		JOIN products p ON p.id = i.product_id
		WHERE i.invoice_id = $1
		ORDER BY i.item_number
	`

	items := []models.LineItem{}
	err := r.db.QueryWithTimeout(ctx, query, []interface{}{invoiceID}, func(rows *sql.Rows) error {
		var item models.LineItem
		product := models.Product{}
		if err := rows.Scan(
			&item.ID, &item.InvoiceID, &item.ProductID, &item.ItemNumber, &item.Quantity, &item.UnitPrice, &item.TotalPrice,
			&item.Discount, &item.ICMS, &item.IPI, &item.PIS, &item.COFINS, &item.CreatedAt,
			&product.Code, &product.Name, &product.NCM, &product.CFOP, &product.Unit,
		); err != nil {
			return fmt.Errorf("error scanning invoice item: %w", err)
		}
		product.ID = item.ProductID
		item.Product = &product
		items = append(items, item)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error querying invoice items: %w", err)
	}
	return items, nil
}

// List obtiene NFe filtradas por rango de fechas, tipo de operación, estado y emisor
func (r *InvoiceRepository) List(ctx context.Context, filter models.InvoiceFilter) ([]models.Invoice, int, error) {
	var conditions []string
	var args []interface{}
	add := func(condition string, arg interface{}) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}

	if !filter.IncludeAll {
		conditions = append(conditions, "is_active = TRUE")
	}
	if filter.From != nil {
		add("issue_date >= $%d", filter.From.UTC())
	}
	if filter.To != nil {
		add("issue_date <= $%d", filter.To.UTC())
	}
	if filter.OperationType != "" {
		add("operation_type = $%d", filter.OperationType)
	}
	if filter.State != "" {
		add("state = $%d", filter.State)
	}
	if filter.EmitterCNPJ != "" {
		add("emitter_id IN (SELECT id FROM emitters WHERE cnpj = $%d)", filter.EmitterCNPJ)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRowWithTimeout(ctx, `SELECT COUNT(*) FROM invoices`+where, args, &total); err != nil {
		return nil, 0, fmt.Errorf("error counting invoices: %w", err)
	}

	pageSize := filter.PageSize
	page := filter.Page
	if page < 1 {
		page = 1
	}
	query := fmt.Sprintf(`SELECT %s FROM invoices%s ORDER BY issue_date DESC, access_key LIMIT $%d OFFSET $%d`,
		invoiceListColumns, where, len(args)+1, len(args)+2)
	pageArgs := append(append([]interface{}{}, args...), pageSize, (page-1)*pageSize)

	invoices := []models.Invoice{}
	err := r.db.QueryWithTimeout(ctx, query, pageArgs, func(rows *sql.Rows) error {
		var row invoiceRow
		if err := rows.Scan(append(row.dest(), &row.invoice.ItemCount)...); err != nil {
			return fmt.Errorf("error scanning invoice: %w", err)
		}
		invoices = append(invoices, *row.toModel())
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("error listing invoices: %w", err)
	}
	return invoices, total, nil
}

// UpdateState cambia el estado si sigue siendo from y registra la nota en la
// misma transacción
func (r *InvoiceRepository) UpdateState(ctx context.Context, id uuid.UUID, from, to models.InvoiceState, note string) error {
	return r.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		result, err := tx.ExecContext(ctx,
			`UPDATE invoices SET state = $1, updated_at = $2 WHERE id = $3 AND state = $4`,
			to, now, id, from,
		)
		if err != nil {
			return fmt.Errorf("error updating invoice state: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("error getting rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("invoice %s is no longer %s: %w", id, from, models.ErrInvalidTransition)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO invoice_notes (id, invoice_id, body, created_at) VALUES ($1, $2, $3, $4)`,
			uuid.New(), id, note, now,
		); err != nil {
			return fmt.Errorf("error inserting invoice note: %w", err)
		}
		return nil
	})
}

// SetArchiveKey registra la clave del XML en el archivo de objetos
func (r *InvoiceRepository) SetArchiveKey(ctx context.Context, id uuid.UUID, key string) error {
	_, err := r.db.ExecWithTimeout(ctx,
		`UPDATE invoices SET archive_key = $1, updated_at = $2 WHERE id = $3`,
		key, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("error updating archive key: %w", err)
	}
	return nil
}

// SetActive archiva o reactiva una NFe
func (r *InvoiceRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return setActive(ctx, r.db, "invoices", id, active)
}

// Delete elimina la NFe; items y notas se eliminan en cascada
func (r *InvoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecWithTimeout(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting invoice: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("invoice %s: %w", id, models.ErrNotFound)
	}
	return nil
}

// AddNote agrega una nota de auditoría
func (r *InvoiceRepository) AddNote(ctx context.Context, invoiceID uuid.UUID, body string) (*models.InvoiceNote, error) {
	note := &models.InvoiceNote{
		ID:        uuid.New(),
		InvoiceID: invoiceID,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}

	_, err := r.db.ExecWithTimeout(ctx,
		`INSERT INTO invoice_notes (id, invoice_id, body, created_at) VALUES ($1, $2, $3, $4)`,
		note.ID, note.InvoiceID, note.Body, note.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("error inserting invoice note: %w", err)
	}
	return note, nil
}

// GetNotes obtiene las notas de una NFe en orden cronológico
func (r *InvoiceRepository) GetNotes(ctx context.Context, invoiceID uuid.UUID) ([]models.InvoiceNote, error) {
	notes := []models.InvoiceNote{}
	err := r.db.QueryWithTimeout(ctx,
		`SELECT id, invoice_id, body, created_at FROM invoice_notes WHERE invoice_id = $1 ORDER BY created_at, id`,
		[]interface{}{invoiceID},
		func(rows *sql.Rows) error {
			var note models.InvoiceNote
			if err := rows.Scan(&note.ID, &note.InvoiceID, &note.Body, &note.CreatedAt); err != nil {
				return fmt.Errorf("error scanning invoice note: %w", err)
			}
			notes = append(notes, note)
			return nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("error querying invoice notes: %w", err)
	}
	return notes, nil
}
