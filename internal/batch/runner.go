// Package batch applies a pixel processor across a raster extent with a
// bounded worker pool. Pixels are independent; a pixel that fails yields a
// no-data record and the batch carries on.
package batch

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chrissnell/pixeltrend/internal/pixel"
	"github.com/chrissnell/pixeltrend/pkg/recordformat"
)

// Processor computes the record of one pixel. *pixel.Processor satisfies it.
type Processor interface {
	Process(ctx context.Context, px pixel.Pixel) (*recordformat.Record, error)
}

// Sink receives records in pixel order. *recordformat.Encoder satisfies it.
type Sink interface {
	Encode(r *recordformat.Record) error
}

// Summary counts the outcome of a run
type Summary struct {
	RunID    string
	Pixels   int
	Complete int // every product computed
	Partial  int // some products missing
	NoData   int // no product at all, including recovered panics
	Panics   int
	Elapsed  time.Duration
}

// Runner fans pixels out to a fixed number of workers
type Runner struct {
	processor Processor
	workers   int
	logger    *zap.SugaredLogger
}

// NewRunner creates a runner. workers <= 0 uses GOMAXPROCS.
func NewRunner(p Processor, workers int, logger *zap.SugaredLogger) *Runner {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Runner{processor: p, workers: workers, logger: logger}
}

// Workers returns the pool size
func (r *Runner) Workers() int {
	return r.workers
}

type outcome struct {
	rec      *recordformat.Record
	panicked bool
}

// Run processes every pixel and writes one record per pixel to sink, in
// input order. Per-pixel failures never stop the run; it stops early only
// when ctx is cancelled, a processor returns an error that is not local to
// a pixel, or the sink fails.
func (r *Runner) Run(ctx context.Context, pixels []pixel.Pixel, sink Sink) (Summary, error) {
	start := time.Now()
	summary := Summary{RunID: uuid.NewString(), Pixels: len(pixels)}
	log := r.logger.With("run_id", summary.RunID)
	log.Infof("processing %d pixels with %d workers", len(pixels), r.workers)

	results := make([]outcome, len(pixels))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i := range pixels {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			out, err := r.processOne(gctx, pixels[i], log)
			if err != nil {
				return fmt.Errorf("pixel (%d,%d): %w", pixels[i].X, pixels[i].Y, err)
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		summary.Elapsed = time.Since(start)
		return summary, err
	}
	if err := ctx.Err(); err != nil {
		summary.Elapsed = time.Since(start)
		return summary, err
	}

	for _, out := range results {
		out.rec.RunID = summary.RunID
		switch {
		case out.rec.NoData:
			summary.NoData++
		case out.rec.Error != "":
			summary.Partial++
		default:
			summary.Complete++
		}
		if out.panicked {
			summary.Panics++
		}
		if err := sink.Encode(out.rec); err != nil {
			summary.Elapsed = time.Since(start)
			return summary, fmt.Errorf("failed to write record for pixel (%d,%d): %w", out.rec.X, out.rec.Y, err)
		}
	}

	summary.Elapsed = time.Since(start)
	log.Infow("batch complete",
		"pixels", summary.Pixels,
		"complete", summary.Complete,
		"partial", summary.Partial,
		"nodata", summary.NoData,
		"panics", summary.Panics,
		"elapsed", summary.Elapsed,
	)
	return summary, nil
}

// processOne runs the processor on one pixel, turning a panic into a
// no-data record
func (r *Runner) processOne(ctx context.Context, px pixel.Pixel, log *zap.SugaredLogger) (out outcome, err error) {
	defer func() {
		if p := recover(); p != nil {
			log.Errorf("pixel processor panic recovered at (%d,%d): %v", px.X, px.Y, p)
			out = outcome{rec: recordformat.NoDataRecord(px.X, px.Y, fmt.Errorf("panic: %v", p)), panicked: true}
			err = nil
		}
	}()

	rec, err := r.processor.Process(ctx, px)
	if err != nil && !pixel.IsLocal(err) {
		return outcome{}, err
	}
	if rec == nil {
		rec = recordformat.NoDataRecord(px.X, px.Y, err)
	}
	if rec.NoData {
		log.Debugf("no data for pixel (%d,%d): %v", px.X, px.Y, err)
	}
	return outcome{rec: rec}, nil
}
