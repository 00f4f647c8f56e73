package render

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/mgw2168/2019-nCoV/internal/domain"
)

const (
	lineChartTitle = "2019-nCoV疫情全国数据折线图"
	dateLayout     = "2006/01/02"

	// maxDateLabels bounds the number of labelled days so rotated labels do
	// not overlap on long series. Unlabelled days keep a tick mark.
	maxDateLabels = 45
)

var seriesLabels = []string{"确诊", "疑似", "死亡", "治愈"}

// newLineChart builds the national time-series plot.
func newLineChart(ts domain.TimeSeries, h text.Handler) (*plot.Plot, error) {
	if ts.Len() == 0 {
		return nil, domain.ErrEmptySeries
	}

	p := plot.New()
	applyTextHandler(p, h)
	p.BackgroundColor = background

	p.Title.Text = lineChartTitle
	p.Title.TextStyle.Font.Size = vg.Points(20)
	p.X.Label.Text = "日期"
	p.Y.Label.Text = "人数"
	p.X.Label.TextStyle.Font.Size = vg.Points(16)
	p.Y.Label.TextStyle.Font.Size = vg.Points(16)

	p.X.Tick.Marker = plot.TimeTicks{
		Ticker: dailyTicks(ts.Dates),
		Format: dateLayout,
	}
	p.X.Tick.Label.Rotation = math.Pi / 6
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter

	grid := plotter.NewGrid()
	grid.Vertical.Dashes = dotted
	grid.Horizontal.Dashes = dotted
	p.Add(grid)

	values := [][]int{ts.Confirmed, ts.Suspected, ts.Deaths, ts.Cured}
	for i, series := range values {
		if len(series) != ts.Len() {
			return nil, fmt.Errorf("%s series has %d values for %d days", seriesLabels[i], len(series), ts.Len())
		}
		line, err := plotter.NewLine(dateXYs(ts.Dates, series))
		if err != nil {
			return nil, fmt.Errorf("%s line: %w", seriesLabels[i], err)
		}
		line.Color = seriesColors[i]
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(seriesLabels[i], line)
	}
	p.Legend.Top = true
	p.Legend.Left = true
	p.Legend.XOffs = vg.Points(8)
	p.Legend.YOffs = -vg.Points(8)

	// Half a day of padding keeps the first and last points off the frame.
	const pad = 12 * 60 * 60
	first, last := dateRange(ts.Dates)
	p.X.Min = float64(first.Unix()) - pad
	p.X.Max = float64(last.Unix()) + pad
	p.Y.Min = math.Min(0, p.Y.Min)

	return p, nil
}

// dateRange returns the earliest and latest dates. The feed is newest first
// but nothing guarantees it.
func dateRange(dates []time.Time) (first, last time.Time) {
	first, last = dates[0], dates[0]
	for _, d := range dates[1:] {
		if d.Before(first) {
			first = d
		}
		if d.After(last) {
			last = d
		}
	}
	return first, last
}

func dateXYs(dates []time.Time, values []int) plotter.XYs {
	xys := make(plotter.XYs, len(dates))
	for i, d := range dates {
		xys[i].X = float64(d.Unix())
		xys[i].Y = float64(values[i])
	}
	return xys
}

// dailyTicks places a tick on every date of the series. TimeTicks only
// formats ticks that carry a label, so every step-th date gets a
// placeholder label and the rest render as minor ticks.
func dailyTicks(dates []time.Time) plot.Ticker {
	step := (len(dates) + maxDateLabels - 1) / maxDateLabels
	if step < 1 {
		step = 1
	}
	return plot.TickerFunc(func(min, max float64) []plot.Tick {
		ticks := make([]plot.Tick, 0, len(dates))
		for i, d := range dates {
			v := float64(d.Unix())
			if v < min || v > max {
				continue
			}
			t := plot.Tick{Value: v}
			if i%step == 0 {
				t.Label = "-"
			}
			ticks = append(ticks, t)
		}
		return ticks
	})
}
