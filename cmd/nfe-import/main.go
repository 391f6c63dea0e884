package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/JulioAnalista/vendas-audit/internal/app"
	"github.com/JulioAnalista/vendas-audit/internal/config"
	"github.com/JulioAnalista/vendas-audit/internal/models"
	"github.com/JulioAnalista/vendas-audit/internal/services"
	"github.com/spf13/cobra"
)

const (
	exitFailure = 1
	exitUsage   = 2
)

// exitError asocia un código de salida a un error de la CLI
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	return &exitError{code: code, err: err}
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var coded *exitError
	if errors.As(err, &coded) {
		return coded.code
	}
	return exitFailure
}

type importOptions struct {
	dir       string
	recursive bool
	zipPath   string
	batchSize int
	notify    bool
	migrate   bool
	files     []string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := runWithArgs(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func runWithArgs(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "error loading configuration: %v\n", err)
		return exitFailure
	}

	if args == nil {
		args = []string{}
	}

	cmd := newRootCmd(cfg)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err = cmd.ExecuteContext(ctx)
	code := exitCode(err)
	if err != nil && code != exitUsage && !errors.Is(err, models.ErrNothingImported) {
		fmt.Fprintf(stderr, "error: %v\n", err)
	}
	return code
}

// newRootCmd arma el comando con los defaults tomados de la configuración
func newRootCmd(cfg *config.Config) *cobra.Command {
	opts := importOptions{
		recursive: cfg.Import.Recursive,
		batchSize: cfg.Import.BatchSize,
		migrate:   cfg.Database.MigrateOnStart,
	}

	cmd := &cobra.Command{
		Use:           "nfe-import [--dir <folder> | --zip <file.zip> | <file.xml>...]",
		Short:         "Import NFe XML documents into the sales audit database",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			opts.files = args
			sources := 0
			for _, set := range []bool{opts.dir != "", opts.zipPath != "", len(args) > 0} {
				if set {
					sources++
				}
			}
			if sources != 1 {
				return usageError(cmd, errors.New("exactly one of --dir, --zip or a list of files is required"))
			}
			if opts.batchSize <= 0 {
				return usageError(cmd, fmt.Errorf("invalid --batch-size: %d", opts.batchSize))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), cfg, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.SetFlagErrorFunc(usageError)

	cmd.Flags().StringVar(&opts.dir, "dir", "", "Folder with NFe XML files")
	cmd.Flags().BoolVar(&opts.recursive, "recursive", opts.recursive, "Include subfolders of --dir")
	cmd.Flags().StringVar(&opts.zipPath, "zip", "", "ZIP archive with NFe XML files")
	cmd.Flags().IntVar(&opts.batchSize, "batch-size", opts.batchSize, "Files per batch")
	cmd.Flags().BoolVar(&opts.notify, "notify", false, "Email the run summary to the operator")
	cmd.Flags().BoolVar(&opts.migrate, "migrate", opts.migrate, "Apply database migrations before importing")

	return cmd
}

func usageError(cmd *cobra.Command, err error) error {
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
	fmt.Fprint(cmd.ErrOrStderr(), cmd.UsageString())
	return withCode(exitUsage, err)
}

func runImport(ctx context.Context, cfg *config.Config, opts importOptions, stdout, stderr io.Writer) error {
	cfg.Import.BatchSize = opts.batchSize
	cfg.Database.MigrateOnStart = opts.migrate
	// La CLI corre con los permisos del operador; la raíz solo restringe la API
	cfg.Import.SourceRoot = ""

	logger := app.NewLogger(cfg)
	logger.SetOutput(stderr)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		a.Close(closeCtx)
	}()

	var run *models.ImportRun
	switch {
	case opts.dir != "":
		run, err = a.Batch.ImportFolder(ctx, opts.dir, opts.recursive)
	case opts.zipPath != "":
		var data []byte
		if data, err = os.ReadFile(opts.zipPath); err == nil {
			run, err = a.Batch.ImportArchive(ctx, data)
		}
	default:
		var named []services.NamedFile
		if named, err = readFiles(opts.files); err == nil {
			run, err = a.Batch.ImportFiles(ctx, named)
		}
	}

	if run != nil {
		printRun(stdout, run)
		if opts.notify {
			if serr := a.Batch.SendSummary(ctx, run); serr != nil {
				fmt.Fprintf(stderr, "error sending summary: %v\n", serr)
			}
		}
	}
	return err
}

func readFiles(paths []string) ([]services.NamedFile, error) {
	files := make([]services.NamedFile, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading %s: %w", path, err)
		}
		files = append(files, services.NamedFile{Name: filepath.Base(path), Data: data})
	}
	return files, nil
}

func printRun(w io.Writer, run *models.ImportRun) {
	for _, entry := range run.Log {
		fmt.Fprintf(w, "[%s] %-7s %s\n", entry.Timestamp.Format("15:04:05"), entry.Level, entry.Message)
	}
	fmt.Fprintf(w, "\nRun %s: %s, %d files, %d imported, %d errors\n",
		run.ID, run.Status, run.TotalFiles, run.TotalImported, run.TotalErrors)
}
