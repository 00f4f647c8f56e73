package render

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"

	"github.com/mgw2168/2019-nCoV/internal/domain"
)

const choroplethTitle = "2019-nCoV疫情地图"

// Map extent in degrees.
const (
	lonMin, lonMax = 70.0, 140.0
	latMin, latMax = 10.0, 60.0
	graticuleStep  = 10.0
)

var (
	provinceOutline = color.Black
	boundaryColor   = color.Black
)

// newChoropleth draws the province map colored by severity and reports how
// each province record was handled.
func newChoropleth(layers domain.MapLayers, counts domain.RegionCounts, h text.Handler) (*plot.Plot, domain.ChoroplethSummary, error) {
	byProvince, unmatched := domain.IndexByProvince(counts)
	summary := domain.ChoroplethSummary{
		UnmatchedRegions: unmatched,
		Buckets:          make(map[domain.Severity]int),
	}

	p := plot.New()
	applyTextHandler(p, h)
	p.BackgroundColor = background
	p.Title.Text = choroplethTitle
	p.Title.TextStyle.Font.Size = vg.Points(20)

	sea, err := plotter.NewPolygon(plotter.XYs{
		{X: lonMin, Y: latMin}, {X: lonMin, Y: latMax},
		{X: lonMax, Y: latMax}, {X: lonMax, Y: latMin},
	})
	if err != nil {
		return nil, summary, fmt.Errorf("water: %w", err)
	}
	sea.Color = water
	sea.LineStyle.Width = 0
	p.Add(sea)

	if err := addOutlines(p, layers.Basemap, countryColor, vg.Points(0.5)); err != nil {
		return nil, summary, fmt.Errorf("basemap: %w", err)
	}

	var outlines []plot.Plotter
	for i, shape := range layers.Provinces {
		rings := ringXYs(shape.Rings, 3)
		if len(rings) == 0 {
			continue
		}

		poly, err := plotter.NewPolygon(rings...)
		if err != nil {
			return nil, summary, fmt.Errorf("province record %d: %w", i, err)
		}
		poly.Color = nil
		poly.LineStyle.Width = 0

		if !shape.IsTopLevel() {
			summary.Skipped++
		} else if n, ok := byProvince.Lookup(shape.Attr(domain.AttrOwner)); ok {
			sev := domain.Bucket(n)
			poly.Color = SeverityColor(sev)
			summary.Reported++
			summary.Buckets[sev]++
		} else {
			poly.Color = noReportColor
			summary.Unreported++
		}
		if poly.Color != nil {
			p.Add(poly)
		}

		edge, err := plotter.NewPolygon(rings...)
		if err != nil {
			return nil, summary, fmt.Errorf("province record %d: %w", i, err)
		}
		edge.Color = nil
		edge.LineStyle.Color = provinceOutline
		edge.LineStyle.Width = vg.Points(0.5)
		outlines = append(outlines, edge)
	}
	// Outlines go on top of every fill so neighbouring provinces do not
	// paint over each other's borders.
	p.Add(outlines...)

	if err := addOutlines(p, layers.Boundary, boundaryColor, vg.Points(1)); err != nil {
		return nil, summary, fmt.Errorf("boundary: %w", err)
	}

	grid := plotter.NewGrid()
	grid.Vertical.Dashes = dashed
	grid.Horizontal.Dashes = dashed
	p.Add(grid)

	p.X.Tick.Marker = degreeTicks(lonMin, lonMax, "°E")
	p.Y.Tick.Marker = degreeTicks(latMin, latMax, "°N")

	if err := addSeverityLegend(p); err != nil {
		return nil, summary, err
	}

	// p.Add widens the axes to the data; the map keeps a fixed extent.
	p.X.Min, p.X.Max = lonMin, lonMax
	p.Y.Min, p.Y.Max = latMin, latMax

	return p, summary, nil
}

// addOutlines strokes every ring of shapes without closing or filling it.
func addOutlines(p *plot.Plot, shapes []domain.Shape, c color.Color, width vg.Length) error {
	for i, shape := range shapes {
		for _, ring := range ringXYs(shape.Rings, 2) {
			line, err := plotter.NewLine(ring)
			if err != nil {
				return fmt.Errorf("record %d: %w", i, err)
			}
			line.Color = c
			line.Width = width
			p.Add(line)
		}
	}
	return nil
}

// ringXYs converts rings to plotter data, dropping rings with fewer than
// minPoints vertices.
func ringXYs(rings [][]domain.Point, minPoints int) []plotter.XYer {
	out := make([]plotter.XYer, 0, len(rings))
	for _, ring := range rings {
		if len(ring) < minPoints {
			continue
		}
		xys := make(plotter.XYs, len(ring))
		for i, pt := range ring {
			xys[i].X = pt.X
			xys[i].Y = pt.Y
		}
		out = append(out, xys)
	}
	return out
}

func degreeTicks(min, max float64, suffix string) plot.ConstantTicks {
	var ticks plot.ConstantTicks
	for v := min; v <= max; v += graticuleStep {
		ticks = append(ticks, plot.Tick{Value: v, Label: fmt.Sprintf("%.0f%s", v, suffix)})
	}
	return ticks
}

// addSeverityLegend adds one swatch per bucket plus the no-report swatch.
func addSeverityLegend(p *plot.Plot) error {
	add := func(label string, c color.Color) error {
		swatch, err := plotter.NewPolygon()
		if err != nil {
			return fmt.Errorf("legend %s: %w", label, err)
		}
		swatch.Color = c
		swatch.LineStyle.Color = provinceOutline
		swatch.LineStyle.Width = vg.Points(0.5)
		p.Legend.Add(label, swatch)
		return nil
	}

	for _, sev := range domain.Severities() {
		if err := add(sev.Label(), SeverityColor(sev)); err != nil {
			return err
		}
	}
	if err := add(domain.NoReportLabel, noReportColor); err != nil {
		return err
	}

	p.Legend.Top = false
	p.Legend.Left = true
	p.Legend.XOffs = vg.Points(8)
	p.Legend.YOffs = vg.Points(8)
	return nil
}
