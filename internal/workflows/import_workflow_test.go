package workflows

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/JulioAnalista/vendas-audit/internal/config"
	"github.com/JulioAnalista/vendas-audit/internal/database/dbtest"
	"github.com/JulioAnalista/vendas-audit/internal/models"
	"github.com/JulioAnalista/vendas-audit/internal/nfe/nfetest"
	"github.com/JulioAnalista/vendas-audit/internal/services"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRunStore struct {
	mu   sync.Mutex
	runs map[uuid.UUID]models.ImportRun
}

func (m *memoryRunStore) SaveRun(ctx context.Context, run *models.ImportRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.runs == nil {
		m.runs = make(map[uuid.UUID]models.ImportRun)
	}
	m.runs[run.ID] = *run
	return nil
}

func (m *memoryRunStore) GetRun(ctx context.Context, id uuid.UUID) (*models.ImportRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &run, nil
}

func newTestWorkflow(t *testing.T, root string) *ImportWorkflow {
	t.Helper()
	return newTestWorkflowWithStore(t, root, nil)
}

func newTestWorkflowWithStore(t *testing.T, root string, runs services.RunStore) *ImportWorkflow {
	t.Helper()
	logger, _ := test.NewNullLogger()
	importer := services.NewInvoiceImporter(dbtest.New(t), nil, logger)
	batch := services.NewBatchImporter(importer, runs, nil, 2, logger).WithSourceRoot(root)
	return NewImportWorkflow(batch, logger)
}

func TestImportFolderStep(t *testing.T) {
	root := t.TempDir()
	for i := 1; i <= 3; i++ {
		path := filepath.Join(root, fmt.Sprintf("nfe_%d.xml", i))
		require.NoError(t, os.WriteFile(path, nfetest.NewInvoice(i).XML(), 0o644))
	}
	workflow := newTestWorkflow(t, root)

	summary, err := workflow.importFolder(context.Background(), FolderImportEventData{Dir: ".", Recursive: false})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, summary.RunID)
	assert.Equal(t, 3, summary.TotalFiles)
	assert.Equal(t, 3, summary.TotalImported)
	assert.Equal(t, 2, summary.BatchesDone)
	assert.Equal(t, models.RunStatusCompleted, summary.Status)
}

func TestLoadRunReadsSnapshotFromStore(t *testing.T) {
	root := t.TempDir()
	for i := 1; i <= 3; i++ {
		path := filepath.Join(root, fmt.Sprintf("nfe_%d.xml", i))
		require.NoError(t, os.WriteFile(path, nfetest.NewInvoice(20+i).XML(), 0o644))
	}
	store := &memoryRunStore{}
	workflow := newTestWorkflowWithStore(t, root, store)

	summary, err := workflow.importFolder(context.Background(), FolderImportEventData{Dir: "."})
	require.NoError(t, err)

	run := workflow.loadRun(context.Background(), summary)
	require.NotNil(t, run)
	assert.Equal(t, summary.RunID, run.ID)
	assert.Len(t, run.InvoiceIDs, 3)
	assert.NotEmpty(t, run.Log)
	assert.Equal(t, models.RunStatusCompleted, run.Status)
}

func TestLoadRunFallsBackToCounters(t *testing.T) {
	workflow := newTestWorkflow(t, t.TempDir())
	summary := RunSummary{
		RunID:         uuid.New(),
		Source:        "/data/nfe",
		Status:        models.RunStatusCompleted,
		TotalFiles:    5,
		TotalImported: 4,
		TotalErrors:   1,
		BatchesDone:   3,
	}

	run := workflow.loadRun(context.Background(), summary)
	require.NotNil(t, run)
	assert.Equal(t, summary.RunID, run.ID)
	assert.Equal(t, "/data/nfe", run.Source)
	assert.Equal(t, models.RunStatusCompleted, run.Status)
	assert.Equal(t, 5, run.TotalFiles)
	assert.Equal(t, 4, run.TotalImported)
	assert.Equal(t, 1, run.TotalErrors)
	assert.Equal(t, 3, run.BatchesDone)
	assert.Empty(t, run.InvoiceIDs)
}

func TestImportFolderStepReportsEmptyRun(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "bad.xml"), []byte("<NFe><infNFe"), 0o644))
	workflow := newTestWorkflow(t, root)

	summary, err := workflow.importFolder(context.Background(), FolderImportEventData{Dir: root})
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, summary.Status)
	assert.Equal(t, 1, summary.TotalErrors)
}

func TestImportFolderStepRejectsBadFolders(t *testing.T) {
	root := t.TempDir()
	workflow := newTestWorkflow(t, root)

	tests := []struct {
		name string
		dir  string
	}{
		{name: "outside source root", dir: "../elsewhere"},
		{name: "empty folder", dir: "."},
		{name: "missing folder", dir: "missing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary, err := workflow.importFolder(context.Background(), FolderImportEventData{Dir: tt.dir})
			assert.Error(t, err)
			assert.Equal(t, RunSummary{}, summary)
		})
	}
}

func TestNewInngestClientRequiresKeys(t *testing.T) {
	logger, _ := test.NewNullLogger()

	tests := []struct {
		name string
		cfg  config.InngestConfig
	}{
		{name: "missing event key", cfg: config.InngestConfig{SigningKey: "signkey-test-123"}},
		{name: "missing signing key", cfg: config.InngestConfig{EventKey: "event-key"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewInngestClient(&config.Config{Inngest: tt.cfg}, logger)
			assert.Error(t, err)
			assert.Nil(t, client)
		})
	}
}
