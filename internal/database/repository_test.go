package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/JulioAnalista/vendas-audit/internal/database"
	"github.com/JulioAnalista/vendas-audit/internal/database/dbtest"
	"github.com/JulioAnalista/vendas-audit/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type repos struct {
	db         *database.DB
	emitters   *database.EmitterRepository
	recipients *database.RecipientRepository
	products   *database.ProductRepository
	invoices   *database.InvoiceRepository
}

func newRepos(t *testing.T) repos {
	db := dbtest.New(t)
	logger, _ := test.NewNullLogger()
	return repos{
		db:         db,
		emitters:   database.NewEmitterRepository(db, logger),
		recipients: database.NewRecipientRepository(db, logger),
		products:   database.NewProductRepository(db, logger),
		invoices:   database.NewInvoiceRepository(db, logger),
	}
}

// seedInvoice crea emisor, destinatario y una NFe con la chave indicada
func seedInvoice(t *testing.T, r repos, accessKey string, issue time.Time, op models.OperationType) *models.Invoice {
	t.Helper()
	ctx := context.Background()

	emitter, err := r.emitters.GetByCNPJ(ctx, "12345678000190")
	if err != nil {
		emitter = models.NewEmitter("12345678000190", models.EmitterAttrs{Name: "Comercial Exemplo"})
		_, err = r.emitters.Create(ctx, emitter)
		require.NoError(t, err)
	}

	recipient, err := r.recipients.GetByTaxID(ctx, models.DefaultRecipientTaxID)
	if err != nil {
		recipient = models.NewRecipient(models.DefaultRecipientTaxID, models.TaxIDKindDefault, models.RecipientAttrs{})
		_, err = r.recipients.Create(ctx, recipient)
		require.NoError(t, err)
	}

	now := time.Now().UTC()
	inv := &models.Invoice{
		ID:            uuid.New(),
		AccessKey:     accessKey,
		Number:        "1",
		Series:        "1",
		Model:         "55",
		OperationType: op,
		IssueDate:     issue.UTC(),
		EmitterID:     emitter.ID,
		RecipientID:   recipient.ID,
		Totals:        models.InvoiceTotals{Products: 100, Total: 100},
		State:         models.InvoiceStateImported,
		XMLOriginal:   "<NFe/>",
		XMLFileName:   accessKey + ".xml",
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	created, err := r.invoices.Create(ctx, inv)
	require.NoError(t, err)
	require.True(t, created)
	return inv
}

func TestEmitterCreateIsFirstWriteWins(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()

	first := models.NewEmitter("12345678000190", models.EmitterAttrs{Name: "Primeiro Nome"})
	created, err := r.emitters.Create(ctx, first)
	require.NoError(t, err)
	assert.True(t, created)

	second := models.NewEmitter("12345678000190", models.EmitterAttrs{Name: "Outro Nome"})
	created, err = r.emitters.Create(ctx, second)
	require.NoError(t, err)
	assert.False(t, created)

	stored, err := r.emitters.GetByCNPJ(ctx, "12345678000190")
	require.NoError(t, err)
	assert.Equal(t, first.ID, stored.ID)
	assert.Equal(t, "Primeiro Nome", stored.Name)
	assert.Equal(t, models.DefaultCountry, stored.Country)
}

func TestGetByIDNotFound(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()

	_, err := r.emitters.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = r.recipients.GetByTaxID(ctx, "00000000000")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = r.products.GetByCode(ctx, "NOPE")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = r.invoices.GetByAccessKey(ctx, "NOPE")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSetActiveKeepsArchivedRowsVisibleByKey(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()

	recipient := models.NewRecipient("98765432000110", models.TaxIDKindCNPJ, models.RecipientAttrs{Name: "Cliente"})
	_, err := r.recipients.Create(ctx, recipient)
	require.NoError(t, err)

	require.NoError(t, r.recipients.SetActive(ctx, recipient.ID, false))

	stored, err := r.recipients.GetByTaxID(ctx, "98765432000110")
	require.NoError(t, err)
	assert.False(t, stored.IsActive)

	assert.ErrorIs(t, r.recipients.SetActive(ctx, uuid.New(), true), models.ErrNotFound)
}

func TestProductSemanticUpdate(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()

	product := models.NewProduct("P001", models.ProductAttrs{Name: "Parafuso", NCM: "73181500"})
	created, err := r.products.Create(ctx, product)
	require.NoError(t, err)
	require.True(t, created)

	stored, err := r.products.GetByCode(ctx, "P001")
	require.NoError(t, err)
	assert.Nil(t, stored.LastSemanticUpdate)
	assert.Empty(t, stored.Embedding)

	updated, err := r.products.UpdateSemantic(ctx, "P001", &models.UpdateSemanticRequest{
		SemanticNCM:         "Parafusos de aço",
		SemanticDescription: "Parafuso sextavado",
		Embedding:           []float64{0.25, -0.5, 1},
	})
	require.NoError(t, err)
	assert.Equal(t, "Parafusos de aço", updated.SemanticNCM)
	assert.Equal(t, []float64{0.25, -0.5, 1}, updated.Embedding)
	assert.NotNil(t, updated.LastSemanticUpdate)

	_, err = r.products.UpdateSemantic(ctx, "MISSING", &models.UpdateSemanticRequest{})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestInvoiceCreateDuplicateAccessKey(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()

	inv := seedInvoice(t, r, "35230512345678000190550010000000011000000010", time.Now(), models.OperationTypeOutbound)

	dup := *inv
	dup.ID = uuid.New()
	created, err := r.invoices.Create(ctx, &dup)
	require.NoError(t, err)
	assert.False(t, created)

	stored, err := r.invoices.GetByAccessKey(ctx, inv.AccessKey)
	require.NoError(t, err)
	assert.Equal(t, inv.ID, stored.ID)
	assert.Equal(t, "<NFe/>", stored.XMLOriginal)
	assert.Nil(t, stored.EntryDate)
	assert.Nil(t, stored.ArchiveKey)
}

func TestInvoiceListCountsItems(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()

	withItems := seedInvoice(t, r, "K1", time.Date(2023, 5, 10, 12, 0, 0, 0, time.UTC), models.OperationTypeOutbound)
	seedInvoice(t, r, "K2", time.Date(2023, 4, 10, 12, 0, 0, 0, time.UTC), models.OperationTypeOutbound)

	product := models.NewProduct("P001", models.ProductAttrs{Name: "Parafuso"})
	_, err := r.products.Create(ctx, product)
	require.NoError(t, err)
	for n := 1; n <= 3; n++ {
		_, err := r.invoices.CreateItem(ctx, &models.LineItem{
			ID:         uuid.New(),
			InvoiceID:  withItems.ID,
			ProductID:  product.ID,
			ItemNumber: n,
			Quantity:   1,
			CreatedAt:  time.Now().UTC(),
		})
		require.NoError(t, err)
	}

	invoices, total, err := r.invoices.List(ctx, models.InvoiceFilter{PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Len(t, invoices, 2)
	assert.Equal(t, "K1", invoices[0].AccessKey)
	assert.Equal(t, 3, invoices[0].ItemCount)
	assert.Equal(t, "K2", invoices[1].AccessKey)
	assert.Zero(t, invoices[1].ItemCount)
}

func TestInvoiceItemsAreUniqueAndCascade(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()

	inv := seedInvoice(t, r, "35230512345678000190550010000000021000000020", time.Now(), models.OperationTypeInbound)
	product := models.NewProduct("P001", models.ProductAttrs{Name: "Parafuso"})
	_, err := r.products.Create(ctx, product)
	require.NoError(t, err)

	item := &models.LineItem{
		ID:         uuid.New(),
		InvoiceID:  inv.ID,
		ProductID:  product.ID,
		ItemNumber: 1,
		Quantity:   10,
		UnitPrice:  5,
		TotalPrice: 50,
		ICMS:       6,
		CreatedAt:  time.Now().UTC(),
	}
	created, err := r.invoices.CreateItem(ctx, item)
	require.NoError(t, err)
	assert.True(t, created)

	retry := *item
	retry.ID = uuid.New()
	created, err = r.invoices.CreateItem(ctx, &retry)
	require.NoError(t, err)
	assert.False(t, created)

	items, err := r.invoices.GetItems(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "P001", items[0].Product.Code)
	assert.InDelta(t, 50.0, items[0].TotalPrice, 0.001)

	_, err = r.invoices.AddNote(ctx, inv.ID, "Importado")
	require.NoError(t, err)

	require.NoError(t, r.invoices.Delete(ctx, inv.ID))

	items, err = r.invoices.GetItems(ctx, inv.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
	notes, err := r.invoices.GetNotes(ctx, inv.ID)
	require.NoError(t, err)
	assert.Empty(t, notes)

	// el producto sobrevive a la NFe
	_, err = r.products.GetByID(ctx, product.ID)
	assert.NoError(t, err)
}

func TestInvoiceUpdateState(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()

	inv := seedInvoice(t, r, "35230512345678000190550010000000031000000030", time.Now(), models.OperationTypeOutbound)

	require.NoError(t, r.invoices.UpdateState(ctx, inv.ID, models.InvoiceStateImported, models.InvoiceStateProcessed, "Estado alterado"))

	stored, err := r.invoices.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStateProcessed, stored.State)

	// el estado ya no es imported
	err = r.invoices.UpdateState(ctx, inv.ID, models.InvoiceStateImported, models.InvoiceStateCancelled, "x")
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	notes, err := r.invoices.GetNotes(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "Estado alterado", notes[0].Body)
}

func TestInvoiceList(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()

	may := time.Date(2023, 5, 10, 12, 0, 0, 0, time.UTC)
	june := time.Date(2023, 6, 10, 12, 0, 0, 0, time.UTC)
	july := time.Date(2023, 7, 10, 12, 0, 0, 0, time.UTC)

	seedInvoice(t, r, "K1", may, models.OperationTypeOutbound)
	seedInvoice(t, r, "K2", june, models.OperationTypeInbound)
	archived := seedInvoice(t, r, "K3", july, models.OperationTypeOutbound)
	require.NoError(t, r.invoices.SetActive(ctx, archived.ID, false))

	from := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		filter models.InvoiceFilter
		keys   []string
		total  int
	}{
		{
			name:   "active only, newest first",
			filter: models.InvoiceFilter{PageSize: 10},
			keys:   []string{"K2", "K1"},
			total:  2,
		},
		{
			name:   "include archived",
			filter: models.InvoiceFilter{IncludeAll: true, PageSize: 10},
			keys:   []string{"K3", "K2", "K1"},
			total:  3,
		},
		{
			name:   "date range",
			filter: models.InvoiceFilter{From: &from, IncludeAll: true, PageSize: 10},
			keys:   []string{"K3", "K2"},
			total:  2,
		},
		{
			name:   "operation type",
			filter: models.InvoiceFilter{OperationType: models.OperationTypeOutbound, PageSize: 10},
			keys:   []string{"K1"},
			total:  1,
		},
		{
			name:   "emitter cnpj",
			filter: models.InvoiceFilter{EmitterCNPJ: "12345678000190", IncludeAll: true, PageSize: 10},
			keys:   []string{"K3", "K2", "K1"},
			total:  3,
		},
		{
			name:   "second page",
			filter: models.InvoiceFilter{IncludeAll: true, Page: 2, PageSize: 2},
			keys:   []string{"K1"},
			total:  3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			invoices, total, err := r.invoices.List(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.total, total)

			var keys []string
			for _, inv := range invoices {
				keys = append(keys, inv.AccessKey)
				assert.Empty(t, inv.XMLOriginal)
			}
			assert.Equal(t, tt.keys, keys)
		})
	}
}

func TestInvoiceArchiveKey(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()

	inv := seedInvoice(t, r, "K9", time.Now(), models.OperationTypeOutbound)
	require.NoError(t, r.invoices.SetArchiveKey(ctx, inv.ID, "nfe/2023/05/K9.xml"))

	stored, err := r.invoices.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ArchiveKey)
	assert.Equal(t, "nfe/2023/05/K9.xml", *stored.ArchiveKey)
}
