package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"docchat/internal/app"
	"docchat/internal/config"
	"docchat/internal/domain"
	"docchat/internal/logging"
	"docchat/internal/service"
)

type runner struct {
	cfg     *config.AppConfig
	logger  *slog.Logger
	svc     *service.Service
	closers []io.Closer
}

func (r *runner) Close() {
	if r.svc != nil {
		if err := r.svc.Close(context.Background()); err != nil {
			r.logger.Warn("closing service", "error", err)
		}
	}
	for _, c := range r.closers {
		_ = c.Close()
	}
}

func loadConfig(cmd *cobra.Command) (*config.AppConfig, error) {
	path, _ := cmd.Flags().GetString("config")
	var (
		cfg *config.AppConfig
		err error
	)
	if path == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Logging.Debug = true
	}
	return cfg, nil
}

// newRuntime loads config, sets up logging and builds the service. When
// quiet is set nothing is logged to the terminal, only to logging.file.
func newRuntime(cmd *cobra.Command, quiet bool) (*runner, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	r := &runner{cfg: cfg}

	var loggers []*slog.Logger
	if !quiet {
		loggers = append(loggers, logging.New(
			logging.WithWriter(os.Stderr),
			logging.WithPretty(!cfg.Logging.JSON),
			logging.WithJSON(cfg.Logging.JSON),
			logging.WithDebug(cfg.Logging.Debug),
		))
	}
	if cfg.Logging.File != "" {
		f, err := logging.OpenFile(cfg.Logging.File)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		r.closers = append(r.closers, f)
		loggers = append(loggers, logging.New(
			logging.WithWriter(f),
			logging.WithJSON(true),
			logging.WithDebug(cfg.Logging.Debug),
		))
	}
	switch len(loggers) {
	case 0:
		r.logger = logging.Discard()
	case 1:
		r.logger = loggers[0]
	default:
		r.logger = logging.Multi(loggers...)
	}

	r.svc, err = app.Build(cmd.Context(), cfg, r.logger)
	if err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

// openUploads expands globs and opens every matching file.
func openUploads(patterns []string) ([]domain.Upload, func(), error) {
	var (
		uploads []domain.Upload
		files   []*os.File
	)
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}
	for _, p := range patterns {
		matches, _ := filepath.Glob(p)
		if matches == nil {
			matches = []string{p}
		}
		for _, m := range matches {
			f, err := os.Open(m)
			if err != nil {
				closeAll()
				return nil, nil, err
			}
			files = append(files, f)
			var size int64
			if st, err := f.Stat(); err == nil {
				size = st.Size()
			}
			uploads = append(uploads, domain.Upload{Name: filepath.Base(m), Size: size, Body: f})
		}
	}
	return uploads, closeAll, nil
}

// ingest uploads the files named by patterns and returns the report.
func (r *runner) ingest(ctx context.Context, patterns []string) (service.IngestReport, error) {
	uploads, closeAll, err := openUploads(patterns)
	if err != nil {
		return service.IngestReport{}, err
	}
	defer closeAll()
	report, err := r.svc.Upload(ctx, uploads)
	for _, w := range report.Warnings {
		r.logger.Warn("upload warning", "detail", w)
	}
	if errors.Is(err, domain.ErrNoDocuments) {
		return report, fmt.Errorf("ingest failed: %w", err)
	}
	return report, err
}
