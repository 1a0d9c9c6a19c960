// Package export runs a compiled timeline through ffmpeg to produce one
// output file. The engine is invoked exactly once per export; a non-zero
// exit fails the whole export and any partially written output is left to
// the caller to clean up.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/clipdesk/clipdesk-agent/internal/library"
	"github.com/clipdesk/clipdesk-agent/internal/metrics"
	"github.com/clipdesk/clipdesk-agent/internal/timeline"
)

// Renderer executes ffmpeg with fully prepared arguments.
type Renderer interface {
	Render(ctx context.Context, args []string) error
}

// Settings describe one export request.
type Settings struct {
	OutputPath        string
	Resolution        string // "720p", "1080p", or "source"
	FPS               int
	CompositionLength float64
}

// Driver composes the timeline and drives the engine.
type Driver struct {
	renderer Renderer
	repo     library.Repository
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewDriver(renderer Renderer, repo library.Repository, m *metrics.Metrics, logger *slog.Logger) *Driver {
	return &Driver{renderer: renderer, repo: repo, metrics: m, logger: logger}
}

// Export builds the filter graph for clips and runs ffmpeg synchronously.
// Validation failures (empty timeline, unknown resolution, bad clips)
// happen before any engine invocation.
func (d *Driver) Export(ctx context.Context, clips []timeline.Clip, settings Settings) error {
	if settings.OutputPath == "" {
		return fmt.Errorf("output path is required")
	}
	if settings.FPS <= 0 {
		return fmt.Errorf("fps must be positive, got %d", settings.FPS)
	}

	plan, err := timeline.BuildPlan(clips, settings.Resolution, settings.FPS, settings.CompositionLength)
	if err != nil {
		return err
	}

	d.logger.Info("starting export",
		"clips", len(clips),
		"segments", plan.SegmentCount,
		"gaps", plan.GapCount,
		"output", settings.OutputPath,
	)

	start := time.Now()
	if err := d.renderer.Render(ctx, timeline.Args(plan, settings.OutputPath, settings.FPS)); err != nil {
		if d.metrics != nil {
			d.metrics.ExportFailed()
		}
		return err
	}
	elapsed := time.Since(start)

	if d.metrics != nil {
		d.metrics.ExportCompleted(elapsed.Seconds())
	}

	if d.repo != nil {
		size := int64(0)
		if info, err := os.Stat(settings.OutputPath); err == nil {
			size = info.Size()
		}
		rec := &library.Recording{
			ID:        library.NewID(),
			Kind:      library.RecordingKindExport,
			Path:      settings.OutputPath,
			DurationS: settings.CompositionLength,
			SizeBytes: size,
			CreatedAt: time.Now().UTC(),
		}
		if err := d.repo.CreateRecording(ctx, rec); err != nil {
			d.logger.Warn("failed to register export", "error", err)
		}
	}

	d.logger.Info("export complete", "output", settings.OutputPath, "duration_ms", elapsed.Milliseconds())
	return nil
}
