package services

import (
	"context"
	"testing"

	"github.com/JulioAnalista/vendas-audit/internal/database"
	"github.com/JulioAnalista/vendas-audit/internal/models"
	"github.com/JulioAnalista/vendas-audit/internal/nfe/nfetest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedImported(t *testing.T, archiver Archiver, seqs ...int) (*InvoiceService, *database.DB, []*models.Invoice) {
	t.Helper()
	importer, db := newTestImporter(t, archiver)
	var invoices []*models.Invoice
	for _, seq := range seqs {
		invoice, err := importer.ImportDocument(context.Background(), nfetest.NewInvoice(seq).XML(), ImportOptions{FileName: "seed.xml"})
		require.NoError(t, err)
		invoices = append(invoices, invoice)
	}
	return NewInvoiceService(db, archiver, newTestLogger()), db, invoices
}

func TestGetInvoice(t *testing.T) {
	service, _, seeded := seedImported(t, nil, 1)
	ctx := context.Background()

	invoice, err := service.GetInvoice(ctx, seeded[0].ID)
	require.NoError(t, err)
	assert.Equal(t, seeded[0].AccessKey, invoice.AccessKey)
	assert.Len(t, invoice.Items, 2)
	require.NotNil(t, invoice.Emitter)
	require.NotNil(t, invoice.Recipient)

	_, err = service.GetInvoice(ctx, uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestChangeState(t *testing.T) {
	tests := []struct {
		name    string
		steps   []models.InvoiceState
		wantErr bool
	}{
		{name: "imported to processed", steps: []models.InvoiceState{models.InvoiceStateProcessed}},
		{name: "processed back to draft", steps: []models.InvoiceState{models.InvoiceStateProcessed, models.InvoiceStateDraft}},
		{name: "cancelled can only reopen as draft", steps: []models.InvoiceState{models.InvoiceStateCancelled, models.InvoiceStateProcessed}, wantErr: true},
		{name: "same state", steps: []models.InvoiceState{models.InvoiceStateImported}, wantErr: true},
		{name: "unknown state", steps: []models.InvoiceState{"archived"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, _, seeded := seedImported(t, nil, 2)
			ctx := context.Background()

			var err error
			var invoice *models.Invoice
			for _, step := range tt.steps {
				invoice, err = service.ChangeState(ctx, seeded[0].ID, step)
				if err != nil {
					break
				}
			}

			if tt.wantErr {
				assert.ErrorIs(t, err, models.ErrInvalidTransition)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.steps[len(tt.steps)-1], invoice.State)

			notes, err := service.GetNotes(ctx, seeded[0].ID)
			require.NoError(t, err)
			assert.Len(t, notes, len(tt.steps))
			bodies := make([]string, len(notes))
			for i, note := range notes {
				bodies[i] = note.Body
			}
			assert.Contains(t, bodies, "Estado alterado de imported para "+string(tt.steps[0]))
		})
	}
}

func TestChangeStateNotFound(t *testing.T) {
	service, _, _ := seedImported(t, nil)

	_, err := service.ChangeState(context.Background(), uuid.New(), models.InvoiceStateProcessed)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestListInvoicesDefaults(t *testing.T) {
	service, _, seeded := seedImported(t, nil, 1, 2, 3)
	ctx := context.Background()

	list, err := service.ListInvoices(ctx, models.InvoiceFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, list.Page)
	assert.Equal(t, defaultPageSize, list.PageSize)
	assert.Equal(t, 3, list.Total)
	assert.Len(t, list.Items, 3)

	list, err = service.ListInvoices(ctx, models.InvoiceFilter{PageSize: 10000})
	require.NoError(t, err)
	assert.Equal(t, maxPageSize, list.PageSize)

	require.NoError(t, service.SetActive(ctx, seeded[0].ID, false))
	list, err = service.ListInvoices(ctx, models.InvoiceFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, list.Total)

	list, err = service.ListInvoices(ctx, models.InvoiceFilter{IncludeAll: true})
	require.NoError(t, err)
	assert.Equal(t, 3, list.Total)
}

func TestDownloadXML(t *testing.T) {
	service, _, seeded := seedImported(t, nil, 4)

	data, name, err := service.DownloadXML(context.Background(), seeded[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "seed.xml", name)
	assert.Equal(t, string(nfetest.NewInvoice(4).XML()), string(data))

	_, _, err = service.DownloadXML(context.Background(), uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDownloadPDF(t *testing.T) {
	service, _, seeded := seedImported(t, nil, 5)

	data, name, err := service.DownloadPDF(context.Background(), seeded[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "nfe_"+nfetest.AccessKey(5)+".pdf", name)
	assert.True(t, len(data) > 4)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestDocumentGeneratorTruncate(t *testing.T) {
	assert.Equal(t, "curto", truncate("curto", 10))
	assert.Equal(t, "Parafus...", truncate("Parafuso sextavado", 10))
	assert.Equal(t, "Descriç...", truncate("Descrição longa", 10))
}

func TestDeleteInvoice(t *testing.T) {
	archiver := newFakeArchiver()
	service, _, seeded := seedImported(t, archiver, 1)
	ctx := context.Background()
	id := seeded[0].ID
	require.Len(t, archiver.objects, 1)

	err := service.DeleteInvoice(ctx, id)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	_, err = service.ChangeState(ctx, id, models.InvoiceStateCancelled)
	require.NoError(t, err)

	require.NoError(t, service.DeleteInvoice(ctx, id))
	assert.Empty(t, archiver.objects)

	_, err = service.GetInvoice(ctx, id)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.ErrorIs(t, service.DeleteInvoice(ctx, id), models.ErrNotFound)
}
