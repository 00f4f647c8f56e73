package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"

	"github.com/mgw2168/2019-nCoV/internal/domain"
	"github.com/mgw2168/2019-nCoV/internal/observability"
)

const initialBackoff = time.Second

// Fetcher retrieves the current statistics payload.
type Fetcher interface {
	Fetch(ctx context.Context) (*domain.Payload, error)
}

// ShapeLoader reads a shapefile into shapes.
type ShapeLoader interface {
	Load(path string) ([]domain.Shape, error)
}

// Renderer draws the two charts and returns the written image paths.
type Renderer interface {
	RenderTimeSeries(ts domain.TimeSeries) (string, error)
	RenderChoropleth(layers domain.MapLayers, counts domain.RegionCounts) (string, domain.ChoroplethSummary, error)
}

// Publisher forwards extracted records downstream.
type Publisher interface {
	PublishSeries(ctx context.Context, records []domain.DailyRecord) error
	PublishRegions(ctx context.Context, counts domain.RegionCounts) error
}

// Exporter writes the extracted tables to a file and returns its path.
type Exporter interface {
	Export(ts domain.TimeSeries, counts domain.RegionCounts) (string, error)
}

// Viewer displays rendered images.
type Viewer interface {
	Show(ctx context.Context, paths ...string) error
}

// Options configures the map layers and the optional stages. Nil stages are
// skipped.
type Options struct {
	SeriesYear        int
	ProvinceShapefile string
	BoundaryShapefile string // optional
	BasemapShapefile  string // optional

	Publisher Publisher
	Exporter  Exporter
	Viewer    Viewer
}

// Pipeline runs the time-series pipeline followed by the choropleth pipeline.
type Pipeline struct {
	fetcher  Fetcher
	shapes   ShapeLoader
	renderer Renderer
	opts     Options
	logger   *slog.Logger
	metrics  *observability.Metrics
	ready    atomic.Bool

	mu     sync.RWMutex
	layers *domain.MapLayers
	charts map[string]string
}

// New creates a Pipeline with the given stages and observability.
func New(f Fetcher, s ShapeLoader, r Renderer, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Pipeline {
	if opts.SeriesYear == 0 {
		opts.SeriesYear = domain.DefaultSeriesYear
	}
	return &Pipeline{
		fetcher:  f,
		shapes:   s,
		renderer: r,
		opts:     opts,
		logger:   logger,
		metrics:  metrics,
		charts:   make(map[string]string),
	}
}

// CheckReadiness returns nil once a cycle has completed successfully.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no charts rendered yet")
	}
	return nil
}

// ChartPath returns the most recent image for the named chart
// (observability.ChartTimeSeries or observability.ChartChoropleth).
func (p *Pipeline) ChartPath(name string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	path, ok := p.charts[name]
	return path, ok
}

// RunOnce executes both pipelines. The first failing step aborts the cycle.
// Records are published only after both charts have been rendered.
func (p *Pipeline) RunOnce(ctx context.Context) error {
	start := time.Now()
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	ts, seriesPath, err := p.runTimeSeries(ctx)
	if err != nil {
		return fmt.Errorf("time-series pipeline: %w", err)
	}
	counts, mapPath, err := p.runChoropleth(ctx)
	if err != nil {
		return fmt.Errorf("choropleth pipeline: %w", err)
	}

	if p.opts.Publisher != nil {
		if err := p.opts.Publisher.PublishSeries(ctx, ts.Records()); err != nil {
			return fmt.Errorf("publish series: %w", err)
		}
		if err := p.opts.Publisher.PublishRegions(ctx, counts); err != nil {
			return fmt.Errorf("publish regions: %w", err)
		}
	}

	p.mu.Lock()
	p.charts[observability.ChartTimeSeries] = seriesPath
	p.charts[observability.ChartChoropleth] = mapPath
	p.mu.Unlock()

	if p.opts.Exporter != nil {
		path, err := p.opts.Exporter.Export(ts, counts)
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}
		p.logger.Info("workbook written", "path", path)
	}

	if p.opts.Viewer != nil {
		if err := p.opts.Viewer.Show(ctx, seriesPath, mapPath); err != nil {
			p.logger.Warn("display charts failed", "error", err)
		}
	}

	p.ready.Store(true)
	p.metrics.CycleDuration.Observe(time.Since(start).Seconds())
	p.logger.Info("cycle complete", "duration", time.Since(start))
	return nil
}

// Run refreshes the charts every interval until ctx is cancelled. The first
// cycle starts after one interval, so callers normally run RunOnce first.
// A failed cycle is retried with exponential backoff capped at interval.
func (p *Pipeline) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("refresh interval must be positive, got %s", interval)
	}
	p.logger.Info("refresh loop started", "interval", interval)

	first := min(initialBackoff, interval)
	backoff := first
	wait := interval
	for {
		if !retry.SleepWithContext(ctx, wait) {
			p.logger.Info("refresh loop stopping", "reason", ctx.Err())
			return nil
		}

		if err := p.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				p.logger.Info("refresh loop stopping", "reason", ctx.Err())
				return nil
			}
			p.logger.Error("cycle failed", "error", err, "retry_in", backoff)
			wait = backoff
			backoff = retry.NextBackoff(backoff, interval)
			continue
		}
		wait = interval
		backoff = first
	}
}

func (p *Pipeline) runTimeSeries(ctx context.Context) (domain.TimeSeries, string, error) {
	payload, err := p.fetcher.Fetch(ctx)
	if err != nil {
		return domain.TimeSeries{}, "", fmt.Errorf("fetch: %w", err)
	}

	ts, err := domain.ExtractTimeSeries(payload, p.opts.SeriesYear)
	if err != nil {
		return domain.TimeSeries{}, "", fmt.Errorf("extract: %w", err)
	}
	p.metrics.HistoryRecords.Set(float64(ts.Len()))

	path, err := p.renderer.RenderTimeSeries(ts)
	if err != nil {
		return domain.TimeSeries{}, "", fmt.Errorf("render: %w", err)
	}
	return ts, path, nil
}

func (p *Pipeline) runChoropleth(ctx context.Context) (domain.RegionCounts, string, error) {
	payload, err := p.fetcher.Fetch(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("fetch: %w", err)
	}

	counts, err := domain.ExtractRegionCounts(payload)
	if err != nil {
		return nil, "", fmt.Errorf("extract: %w", err)
	}
	p.metrics.RegionsReported.Set(float64(len(counts)))

	layers, err := p.mapLayers()
	if err != nil {
		return nil, "", err
	}

	path, summary, err := p.renderer.RenderChoropleth(layers, counts)
	if err != nil {
		return nil, "", fmt.Errorf("render: %w", err)
	}
	p.logger.Debug("choropleth summary",
		"reported", summary.Reported,
		"unreported", summary.Unreported,
		"skipped", summary.Skipped,
	)
	return counts, path, nil
}

// mapLayers loads the shapefiles on first use and reuses them afterwards.
func (p *Pipeline) mapLayers() (domain.MapLayers, error) {
	p.mu.RLock()
	cached := p.layers
	p.mu.RUnlock()
	if cached != nil {
		return *cached, nil
	}

	var layers domain.MapLayers
	var err error
	if layers.Provinces, err = p.shapes.Load(p.opts.ProvinceShapefile); err != nil {
		return domain.MapLayers{}, fmt.Errorf("load provinces: %w", err)
	}
	if err := domain.RequireAttributes(layers.Provinces, domain.AttrOwner, domain.AttrFCName); err != nil {
		return domain.MapLayers{}, fmt.Errorf("load provinces: %w", err)
	}
	if p.opts.BoundaryShapefile != "" {
		if layers.Boundary, err = p.shapes.Load(p.opts.BoundaryShapefile); err != nil {
			return domain.MapLayers{}, fmt.Errorf("load boundary: %w", err)
		}
	}
	if p.opts.BasemapShapefile != "" {
		if layers.Basemap, err = p.shapes.Load(p.opts.BasemapShapefile); err != nil {
			return domain.MapLayers{}, fmt.Errorf("load basemap: %w", err)
		}
	}

	p.mu.Lock()
	p.layers = &layers
	p.mu.Unlock()
	return layers, nil
}
