package render

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"

	"github.com/mgw2168/2019-nCoV/internal/domain"
)

var (
	background    = mustHex("#f4f4f4")
	water         = mustHex("#00ffff")
	noReportColor = mustHex("#7fffaa")
	countryColor  = mustHex("#ff0000")

	severityColors = map[domain.Severity]color.RGBA{
		domain.SeverityNone:     mustHex("#f0f0f0"),
		domain.SeverityLow:      mustHex("#ffaa85"),
		domain.SeverityModerate: mustHex("#ff7b69"),
		domain.SeverityHigh:     mustHex("#bf2121"),
		domain.SeveritySevere:   mustHex("#7f1818"),
	}

	// Line colors for confirmed, suspected, deaths and cured.
	seriesColors = []color.RGBA{
		mustHex("#1f77b4"),
		mustHex("#ff7f0e"),
		mustHex("#2ca02c"),
		mustHex("#d62728"),
	}

	dotted = []vg.Length{vg.Points(1), vg.Points(2)}
	dashed = []vg.Length{vg.Points(4), vg.Points(2)}
)

// SeverityColor returns the fill color for a bucket.
func SeverityColor(s domain.Severity) color.RGBA {
	return severityColors[s]
}

// NoReportColor returns the fill color for provinces missing from the feed.
func NoReportColor() color.RGBA {
	return noReportColor
}

func parseHex(s string) (color.RGBA, error) {
	var c color.RGBA
	c.A = 0xff
	if len(s) != 7 || s[0] != '#' {
		return c, fmt.Errorf("invalid hex color %q", s)
	}
	if _, err := fmt.Sscanf(s[1:], "%02x%02x%02x", &c.R, &c.G, &c.B); err != nil {
		return c, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	return c, nil
}

func mustHex(s string) color.RGBA {
	c, err := parseHex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// applyTextHandler routes every text element of p through h.
func applyTextHandler(p *plot.Plot, h text.Handler) {
	p.TextHandler = h
	p.Title.TextStyle.Handler = h
	p.Legend.TextStyle.Handler = h
	for _, a := range []*plot.Axis{&p.X, &p.Y} {
		a.Label.TextStyle.Handler = h
		a.Tick.Label.Handler = h
	}
}
