package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/JulioAnalista/vendas-audit/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStorage struct {
	objects      map[string][]byte
	contentTypes map[string]string
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{objects: map[string][]byte{}, contentTypes: map[string]string{}}
}

func (m *memoryStorage) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	m.objects[key] = data
	m.contentTypes[key] = contentType
	return nil
}

func (m *memoryStorage) Download(ctx context.Context, key string) ([]byte, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return data, nil
}

func (m *memoryStorage) Delete(ctx context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func TestArchiveService(t *testing.T) {
	storage := newMemoryStorage()
	service := NewArchiveService(storage, newTestLogger())
	ctx := context.Background()

	invoice := &models.Invoice{
		AccessKey: "35230512345678000190550010000000011000000010",
		// 23:30 en -03:00 ya es el mes siguiente en UTC
		IssueDate: time.Date(2023, 5, 31, 23, 30, 0, 0, time.FixedZone("BRT", -3*3600)),
	}

	key, err := service.ArchiveXML(ctx, invoice, []byte("<NFe/>"))
	require.NoError(t, err)
	assert.Equal(t, "nfe/2023/06/35230512345678000190550010000000011000000010.xml", key)
	assert.Equal(t, "application/xml", storage.contentTypes[key])

	data, err := service.FetchXML(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "<NFe/>", string(data))

	require.NoError(t, service.DeleteXML(ctx, key))
	_, err = service.FetchXML(ctx, key)
	assert.ErrorContains(t, err, "error fetching archived XML")
}
