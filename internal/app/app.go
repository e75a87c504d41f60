// Package app wires configuration, the pixel processor and the batch runner
// into one run over a pixel stack.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/chrissnell/pixeltrend/internal/batch"
	"github.com/chrissnell/pixeltrend/internal/pixel"
	"github.com/chrissnell/pixeltrend/pkg/config"
	"github.com/chrissnell/pixeltrend/pkg/recordformat"
)

// Options override operational settings from the configuration
type Options struct {
	Workers int
	Format  string
}

// App represents one pixeltrend run
type App struct {
	config *config.ConfigData
	opts   Options
	logger *zap.SugaredLogger
}

// New creates a new application instance
func New(cfg *config.ConfigData, opts Options, logger *zap.SugaredLogger) *App {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &App{
		config: cfg,
		opts:   opts,
		logger: logger,
	}
}

// Run reads the pixel stack from in, processes it and writes the records to
// out. Configuration is resolved before the input is read. SIGINT and
// SIGTERM cancel the run.
func (a *App) Run(ctx context.Context, in io.Reader, out io.Writer) (batch.Summary, error) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	processor, err := pixel.NewProcessor(a.config, a.logger.Named("pixel"))
	if err != nil {
		return batch.Summary{}, fmt.Errorf("invalid configuration: %w", err)
	}

	workers := a.config.Batch.Workers
	if a.opts.Workers > 0 {
		workers = a.opts.Workers
	}
	formatName := a.config.Batch.Format
	if a.opts.Format != "" {
		formatName = a.opts.Format
	}
	format, err := recordformat.ParseFormat(formatName)
	if err != nil {
		return batch.Summary{}, err
	}

	pixels, err := pixel.DecodeStack(in)
	if err != nil {
		return batch.Summary{}, err
	}
	a.logger.Infof("loaded %d pixels, %d bands configured", len(pixels), len(processor.Settings().Bands))

	runner := batch.NewRunner(processor, workers, a.logger.Named("batch"))
	return runner.Run(ctx, pixels, recordformat.NewEncoder(out, format))
}
