package nfe

import (
	"testing"
	"time"

	"github.com/JulioAnalista/vendas-audit/internal/models"
	"github.com/JulioAnalista/vendas-audit/internal/nfe/nfetest"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func newTestReader(t *testing.T) *Reader {
	t.Helper()
	logger, _ := test.NewNullLogger()
	return NewReader(logger)
}

func TestReadRejectsMalformedXML(t *testing.T) {
	reader := newTestReader(t)

	for name, data := range map[string]string{
		"truncated": `<NFe><infNFe>`,
		"no root":   `just text`,
		"empty":     ``,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := reader.Read([]byte(data), name+".xml")
			require.Error(t, err)
			assert.ErrorIs(t, err, models.ErrInvalidXML)
		})
	}
}

func TestDocumentReadsFullInvoice(t *testing.T) {
	inv := nfetest.NewInvoice(7)
	inv.EntryDate = "2023-05-11T09:00:00-03:00"

	doc, err := newTestReader(t).Read(inv.XML(), "nota.xml")
	require.NoError(t, err)

	assert.Equal(t, DefaultNamespace, doc.Namespaces.URI())
	assert.Equal(t, nfetest.AccessKey(7), doc.AccessKey())

	ide := doc.Identification()
	assert.Equal(t, "1007", ide.Number)
	assert.Equal(t, "1", ide.Series)
	assert.Equal(t, "55", ide.Model)
	assert.Equal(t, models.OperationTypeOutbound, ide.OperationType)
	assert.True(t, time.Date(2023, 5, 10, 14, 30, 0, 0, time.UTC).Equal(ide.IssueDate))
	require.NotNil(t, ide.EntryDate)
	assert.True(t, time.Date(2023, 5, 11, 9, 0, 0, 0, time.UTC).Equal(*ide.EntryDate))

	cnpj, emitter := doc.Emitter()
	assert.Equal(t, "12345678000190", cnpj)
	assert.Equal(t, "Comercial Exemplo Ltda", emitter.Name)
	assert.Equal(t, "123456789", emitter.StateRegistration)
	assert.Equal(t, "Sao Paulo", emitter.Address.City)
	assert.Equal(t, "1133334444", emitter.Phone)

	recipient, found := doc.Recipient()
	require.True(t, found)
	assert.Equal(t, "98765432000110", recipient.CNPJ)
	assert.Equal(t, models.DefaultCountry, recipient.Address.Country)

	totals := doc.Totals()
	assert.InDelta(t, 150.0, totals.Total, 0.001)
	assert.InDelta(t, 18.0, totals.ICMS, 0.001)
	assert.Zero(t, totals.Freight)

	dets := doc.Items()
	require.Len(t, dets, 2)
	item, err := doc.ReadItem(dets[1], 2)
	require.NoError(t, err)
	assert.Equal(t, 2, item.Number)
	assert.Equal(t, "P002", item.ProductCode)
	assert.Equal(t, "Porca", item.Product.Name)
	assert.Equal(t, "73181600", item.Product.NCM)
	assert.InDelta(t, 20.0, item.Quantity, 0.001)
	assert.InDelta(t, 100.0, item.TotalPrice, 0.001)
	assert.InDelta(t, 12.0, item.ICMS, 0.001)
	assert.InDelta(t, 0.66, item.PIS, 0.001)
	assert.Zero(t, item.IPI)
}

func TestDocumentPlaceholders(t *testing.T) {
	inv := nfetest.NewInvoice(1)
	inv.Number, inv.Series, inv.Model, inv.TpNF = "", "", "", ""
	inv.Items = []nfetest.Item{{Name: "Sem codigo"}}

	doc, err := newTestReader(t).Read(inv.XML(), "")
	require.NoError(t, err)

	ide := doc.Identification()
	assert.Equal(t, "Novo", ide.Number)
	assert.Equal(t, "SN", ide.Series)
	assert.Equal(t, "SN", ide.Model)
	assert.Equal(t, models.OperationTypeInbound, ide.OperationType)
	assert.Nil(t, ide.EntryDate)

	item, err := doc.ReadItem(doc.Items()[0], 5)
	require.NoError(t, err)
	assert.Equal(t, 5, item.Number)
	assert.Equal(t, models.PlaceholderProductCode, item.ProductCode)
	assert.Equal(t, 1.0, item.Quantity)
}

func TestReadItemWithoutProduct(t *testing.T) {
	inv := nfetest.NewInvoice(1)
	inv.Items = []nfetest.Item{{Number: "1", OmitProduct: true}}

	doc, err := newTestReader(t).Read(inv.XML(), "")
	require.NoError(t, err)

	_, err = doc.ReadItem(doc.Items()[0], 1)
	assert.ErrorIs(t, err, ErrMissingProduct)
}

func TestAccessKeyFallbacks(t *testing.T) {
	reader := newTestReader(t)

	t.Run("protocol chNFe when Id is absent", func(t *testing.T) {
		doc, err := reader.Read([]byte(`<nfeProc xmlns="http://www.portalfiscal.inf.br/nfe"><NFe><infNFe/></NFe><protNFe><infProt><chNFe>`+nfetest.AccessKey(3)+`</chNFe></infProt></protNFe></nfeProc>`), "")
		require.NoError(t, err)
		assert.Equal(t, nfetest.AccessKey(3), doc.AccessKey())
	})

	t.Run("Id attribute wins inside nfeProc", func(t *testing.T) {
		inv := nfetest.NewInvoice(6)
		inv.WrapInProc = true
		doc, err := reader.Read(inv.XML(), "")
		require.NoError(t, err)
		assert.Equal(t, nfetest.AccessKey(6), doc.AccessKey())
		assert.Equal(t, "infNFe", doc.InfNFe().Tag)
	})

	t.Run("recursive search", func(t *testing.T) {
		doc, err := reader.Read([]byte(`<envelope><body><evento><chNFe>`+nfetest.AccessKey(4)+`</chNFe></evento></body></envelope>`), "")
		require.NoError(t, err)
		assert.Equal(t, nfetest.AccessKey(4), doc.AccessKey())
	})

	t.Run("absent", func(t *testing.T) {
		inv := nfetest.NewInvoice(5)
		inv.AccessKey = ""
		doc, err := reader.Read(inv.XML(), "")
		require.NoError(t, err)
		assert.Empty(t, doc.AccessKey())
	})
}

func TestReadWithoutNamespaceDeclaration(t *testing.T) {
	inv := nfetest.NewInvoice(9)
	inv.OmitNamespace = true

	logger, hook := test.NewNullLogger()
	doc, err := NewReader(logger).Read(inv.XML(), "")
	require.NoError(t, err)

	assert.Equal(t, DefaultNamespace, doc.Namespaces.URI())
	assert.NotEmpty(t, hook.AllEntries())
	assert.Equal(t, nfetest.AccessKey(9), doc.AccessKey())
	cnpj, _ := doc.Emitter()
	assert.Equal(t, "12345678000190", cnpj)
	assert.Len(t, doc.Items(), 2)
}

func TestReadLatin1Document(t *testing.T) {
	inv := nfetest.NewInvoice(2)
	inv.EmitterName = "Comércio São João"
	utf8XML := string(inv.XML())
	latin := []byte(`<?xml version="1.0" encoding="ISO-8859-1"?>` + utf8XML[len(`<?xml version="1.0" encoding="UTF-8"?>`):])
	encoded, err := charmap.ISO8859_1.NewEncoder().Bytes(latin)
	require.NoError(t, err)

	doc, err := newTestReader(t).Read(encoded, "latin1.xml")
	require.NoError(t, err)

	_, emitter := doc.Emitter()
	assert.Equal(t, "Comércio São João", emitter.Name)
	assert.Contains(t, doc.XML, "Comércio São João")
}
