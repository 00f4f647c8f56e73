// Package render draws the national time-series chart and the province
// choropleth as PNG images.
package render

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"

	"github.com/mgw2168/2019-nCoV/internal/domain"
	"github.com/mgw2168/2019-nCoV/internal/observability"
)

// Output file names inside the output directory.
const (
	TimeSeriesFile = "2019-nCoV.png"
	ChoroplethFile = "2019-nCoV疫情地图.png"
)

const (
	imageWidth  = 10 * vg.Inch
	imageHeight = 8 * vg.Inch
)

// Renderer writes chart images. It implements pipeline.Renderer.
type Renderer struct {
	outputDir string
	text      text.Handler
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewRenderer loads the chart font and prepares a renderer that writes into
// outputDir. See LoadFont for how fontPath is interpreted.
func NewRenderer(outputDir, fontPath string, logger *slog.Logger, metrics *observability.Metrics) (*Renderer, error) {
	h, err := LoadFont(fontPath)
	if err != nil {
		return nil, err
	}
	if fontPath == "" {
		logger.Warn("no chart font configured, CJK labels will not render")
	}
	return &Renderer{
		outputDir: outputDir,
		text:      h,
		logger:    logger,
		metrics:   metrics,
	}, nil
}

// RenderTimeSeries draws the national line chart and returns the image path.
func (r *Renderer) RenderTimeSeries(ts domain.TimeSeries) (string, error) {
	p, err := newLineChart(ts, r.text)
	if err != nil {
		r.metrics.RenderErrors.WithLabelValues(observability.ChartTimeSeries).Inc()
		return "", fmt.Errorf("build time-series chart: %w", err)
	}

	path, err := r.save(p, TimeSeriesFile)
	if err != nil {
		r.metrics.RenderErrors.WithLabelValues(observability.ChartTimeSeries).Inc()
		return "", err
	}

	r.metrics.ChartsRendered.WithLabelValues(observability.ChartTimeSeries).Inc()
	r.logger.Info("time-series chart written", "path", path, "days", ts.Len())
	return path, nil
}

// RenderChoropleth draws the province map and returns the image path with a
// summary of how the province records were colored.
func (r *Renderer) RenderChoropleth(layers domain.MapLayers, counts domain.RegionCounts) (string, domain.ChoroplethSummary, error) {
	p, summary, err := newChoropleth(layers, counts, r.text)
	if err != nil {
		r.metrics.RenderErrors.WithLabelValues(observability.ChartChoropleth).Inc()
		return "", summary, fmt.Errorf("build choropleth: %w", err)
	}

	path, err := r.save(p, ChoroplethFile)
	if err != nil {
		r.metrics.RenderErrors.WithLabelValues(observability.ChartChoropleth).Inc()
		return "", summary, err
	}

	r.metrics.ChartsRendered.WithLabelValues(observability.ChartChoropleth).Inc()
	r.metrics.ShapesDrawn.WithLabelValues("reported").Add(float64(summary.Reported))
	r.metrics.ShapesDrawn.WithLabelValues("unreported").Add(float64(summary.Unreported))
	r.metrics.ShapesDrawn.WithLabelValues("skipped").Add(float64(summary.Skipped))
	r.logger.Info("choropleth written",
		"path", path,
		"reported", summary.Reported,
		"unreported", summary.Unreported,
		"skipped", summary.Skipped,
	)
	if len(summary.UnmatchedRegions) > 0 {
		r.logger.Warn("regions without a province shape", "regions", summary.UnmatchedRegions)
	}
	return path, summary, nil
}

// save encodes p as PNG next to its final path and renames it into place,
// so readers never observe a partially written image.
func (r *Renderer) save(p *plot.Plot, name string) (string, error) {
	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	wt, err := p.WriterTo(imageWidth, imageHeight, "png")
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(r.outputDir, ".render-*.png")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after a successful rename

	if _, err := wt.WriteTo(tmp); err != nil {
		tmp.Close() //nolint:errcheck,gosec // write error takes precedence
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", name, err)
	}

	path := filepath.Join(r.outputDir, name)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("rename %s: %w", name, err)
	}
	return path, nil
}
