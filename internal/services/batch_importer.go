package services

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/JulioAnalista/vendas-audit/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultBatchSize = 1000
	progressEvery    = 10
)

// ErrOutsideSourceRoot indica una carpeta fuera de la raíz permitida
var ErrOutsideSourceRoot = errors.New("folder is outside the import source root")

// RunStore guarda snapshots de las corridas para consultarlas luego
type RunStore interface {
	SaveRun(ctx context.Context, run *models.ImportRun) error
	GetRun(ctx context.Context, id uuid.UUID) (*models.ImportRun, error)
}

// RunNotifier envía el resumen de una corrida al operador
type RunNotifier interface {
	SendImportSummary(ctx context.Context, run *models.ImportRun) error
}

// NamedFile es un archivo recibido en memoria (upload múltiple)
type NamedFile struct {
	Name string
	Data []byte
}

// sourceFile se lee recién cuando le toca su turno
type sourceFile struct {
	name string
	load func() ([]byte, error)
}

// BatchImporter importa carpetas, listas de archivos y ZIP en lotes secuenciales
type BatchImporter struct {
	importer   *InvoiceImporter
	runs       RunStore
	notifier   RunNotifier
	batchSize  int
	sourceRoot string
	logger     *logrus.Logger
}

// NewBatchImporter crea una nueva instancia. runs y notifier pueden ser nil.
func NewBatchImporter(importer *InvoiceImporter, runs RunStore, notifier RunNotifier, batchSize int, logger *logrus.Logger) *BatchImporter {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &BatchImporter{
		importer:  importer,
		runs:      runs,
		notifier:  notifier,
		batchSize: batchSize,
		logger:    logger,
	}
}

// WithSourceRoot restringe ImportFolder a carpetas dentro de root
func (b *BatchImporter) WithSourceRoot(root string) *BatchImporter {
	clone := *b
	clone.sourceRoot = root
	return &clone
}

// ResolveFolder valida la carpeta contra la raíz configurada
func (b *BatchImporter) ResolveFolder(dir string) (string, error) {
	if b.sourceRoot == "" {
		return filepath.Clean(dir), nil
	}

	root, err := filepath.Abs(b.sourceRoot)
	if err != nil {
		return "", fmt.Errorf("error resolving source root: %w", err)
	}
	target := dir
	if !filepath.IsAbs(target) {
		target = filepath.Join(root, target)
	}
	target = filepath.Clean(target)

	rel, err := filepath.Rel(root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s: %w", dir, ErrOutsideSourceRoot)
	}
	return target, nil
}

// ImportFolder importa todos los *.xml de dir, opcionalmente recursivo
func (b *BatchImporter) ImportFolder(ctx context.Context, dir string, recursive bool) (*models.ImportRun, error) {
	folder, err := b.ResolveFolder(dir)
	if err != nil {
		return nil, err
	}

	files, err := listXMLFiles(folder, recursive)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no XML files found in %s", folder)
	}

	sources := make([]sourceFile, len(files))
	for i, path := range files {
		path := path
		sources[i] = sourceFile{name: path, load: func() ([]byte, error) { return os.ReadFile(path) }}
	}
	return b.run(ctx, "folder:"+folder, sources)
}

// ImportFiles importa una lista explícita de archivos en el orden de sus nombres
func (b *BatchImporter) ImportFiles(ctx context.Context, files []NamedFile) (*models.ImportRun, error) {
	if len(files) == 0 {
		return nil, errors.New("no files to import")
	}

	sorted := make([]NamedFile, len(files))
	copy(sorted, files)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	sources := make([]sourceFile, len(sorted))
	for i, f := range sorted {
		data := f.Data
		sources[i] = sourceFile{name: f.Name, load: func() ([]byte, error) { return data, nil }}
	}
	return b.run(ctx, "files", sources)
}

// ImportArchive importa las entradas .xml de un ZIP
func (b *BatchImporter) ImportArchive(ctx context.Context, data []byte) (*models.ImportRun, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("error opening zip archive: %w", err)
	}

	var entries []*zip.File
	for _, f := range reader.File {
		if f.FileInfo().IsDir() || !isXMLFile(f.Name) {
			continue
		}
		entries = append(entries, f)
	}
	if len(entries) == 0 {
		return nil, errors.New("no XML files found in archive")
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	sources := make([]sourceFile, len(entries))
	for i, f := range entries {
		f := f
		sources[i] = sourceFile{name: f.Name, load: func() ([]byte, error) {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}}
	}
	return b.run(ctx, "archive", sources)
}

// GetRun obtiene el snapshot de una corrida
func (b *BatchImporter) GetRun(ctx context.Context, id uuid.UUID) (*models.ImportRun, error) {
	if b.runs == nil {
		return nil, fmt.Errorf("import run %s: %w", id, models.ErrNotFound)
	}
	return b.runs.GetRun(ctx, id)
}

// SendSummary envía el resumen de la corrida si hay un notificador configurado
func (b *BatchImporter) SendSummary(ctx context.Context, run *models.ImportRun) error {
	if b.notifier == nil {
		return nil
	}
	return b.notifier.SendImportSummary(ctx, run)
}

func (b *BatchImporter) run(ctx context.Context, source string, files []sourceFile) (*models.ImportRun, error) {
	ctx, span := b.importer.tracer.Start(ctx, "nfe.import_batch",
		trace.WithAttributes(
			attribute.String("nfe.source", source),
			attribute.Int("nfe.files", len(files)),
		))
	defer span.End()

	run := models.NewImportRun(source, b.batchSize)
	run.TotalFiles = len(files)
	totalBatches := (len(files) + b.batchSize - 1) / b.batchSize
	run.AddLog(models.LogLevelInfo, "Starting import of %d files in %d batches", len(files), totalBatches)
	b.snapshot(ctx, run)

	log := b.logger.WithFields(logrus.Fields{
		"run_id": run.ID,
		"source": source,
	})
	log.WithField("files", len(files)).Info("Import run started")

	cache := NewReferenceCache()
	seen := make(map[uuid.UUID]struct{}, len(files))
	// el lote en curso termina aunque se cancele ctx; la cancelación se
	// revisa entre lotes
	work := context.WithoutCancel(ctx)

	for batch := 0; batch < totalBatches; batch++ {
		if err := ctx.Err(); err != nil {
			run.AddLog(models.LogLevelError, "Import cancelled before batch %d: %v", batch+1, err)
			run.Finish(models.RunStatusFailed)
			b.snapshot(work, run)
			return run, err
		}

		start := batch * b.batchSize
		end := start + b.batchSize
		if end > len(files) {
			end = len(files)
		}
		run.AddLog(models.LogLevelInfo, "Batch %d/%d: files %d-%d", batch+1, totalBatches, start+1, end)

		imported, failed := 0, 0
		for i := start; i < end; i++ {
			if err := b.importFile(work, run, cache, seen, files[i]); err != nil {
				failed++
				run.TotalErrors++
				run.AddLog(models.LogLevelError, "%s: %v", files[i].name, err)
				log.WithError(err).WithField("file", files[i].name).Warn("File import failed")
			} else {
				imported++
				run.TotalImported++
			}

			done := i - start + 1
			if done%progressEvery == 0 || i == end-1 {
				run.AddLog(models.LogLevelInfo, "Progress: %d/%d files of batch %d", done, end-start, batch+1)
			}
		}

		level := models.LogLevelSuccess
		if failed > 0 {
			level = models.LogLevelWarning
		}
		run.AddLog(level, "Batch %d finished: %d imported, %d failed", batch+1, imported, failed)
		run.BatchesDone++

		cached := cache.Len()
		cache.Clear()
		runtime.GC()
		b.snapshot(work, run)

		log.WithFields(logrus.Fields{
			"batch":             batch + 1,
			"imported":          imported,
			"failed":            failed,
			"cached_references": cached,
		}).Info("Import batch finished")
	}

	span.SetAttributes(
		attribute.Int("nfe.imported", run.TotalImported),
		attribute.Int("nfe.errors", run.TotalErrors),
	)

	if run.TotalImported == 0 {
		run.AddLog(models.LogLevelError, "No document was imported (%d errors)", run.TotalErrors)
		run.Finish(models.RunStatusFailed)
		b.snapshot(work, run)
		log.Warn("Import run finished without imported documents")
		return run, models.ErrNothingImported
	}

	run.AddLog(models.LogLevelSuccess, "Import finished: %d imported, %d failed out of %d files",
		run.TotalImported, run.TotalErrors, run.TotalFiles)
	run.Finish(models.RunStatusCompleted)
	b.snapshot(work, run)

	log.WithFields(logrus.Fields{
		"imported": run.TotalImported,
		"errors":   run.TotalErrors,
	}).Info("Import run finished")
	return run, nil
}

func (b *BatchImporter) importFile(ctx context.Context, run *models.ImportRun, cache *ReferenceCache, seen map[uuid.UUID]struct{}, file sourceFile) error {
	data, err := file.load()
	if err != nil {
		return fmt.Errorf("error reading file: %w", err)
	}

	invoice, err := b.importer.ImportDocument(ctx, data, ImportOptions{
		FileName: filepath.Base(file.name),
		Cache:    cache,
	})
	if err != nil {
		return err
	}
	if _, dup := seen[invoice.ID]; !dup {
		seen[invoice.ID] = struct{}{}
		run.InvoiceIDs = append(run.InvoiceIDs, invoice.ID)
	}
	return nil
}

func (b *BatchImporter) snapshot(ctx context.Context, run *models.ImportRun) {
	if b.runs == nil {
		return
	}
	if err := b.runs.SaveRun(ctx, run); err != nil {
		b.logger.WithError(err).WithField("run_id", run.ID).Warn("Failed to save import run snapshot")
	}
}

// listXMLFiles enumera los *.xml de dir en orden lexicográfico
func listXMLFiles(dir string, recursive bool) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("error opening folder: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a folder", dir)
	}

	var files []string
	if recursive {
		err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && isXMLFile(d.Name()) {
				files = append(files, path)
			}
			return nil
		})
	} else {
		var entries []os.DirEntry
		entries, err = os.ReadDir(dir)
		for _, entry := range entries {
			if !entry.IsDir() && isXMLFile(entry.Name()) {
				files = append(files, filepath.Join(dir, entry.Name()))
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("error listing folder: %w", err)
	}

	sort.Strings(files)
	return files, nil
}

func isXMLFile(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".xml")
}
