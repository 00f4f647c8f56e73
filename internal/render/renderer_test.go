package render

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-fonts/liberation/liberationserifregular"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot"

	"github.com/mgw2168/2019-nCoV/internal/domain"
	"github.com/mgw2168/2019-nCoV/internal/observability"
)

func testRenderer(t *testing.T, fontPath string) (*Renderer, *observability.Metrics, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "out")
	metrics := observability.NewMetricsForTesting()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r, err := NewRenderer(dir, fontPath, logger, metrics)
	require.NoError(t, err)
	return r, metrics, dir
}

func writeTestFont(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "serif.ttf")
	require.NoError(t, os.WriteFile(path, liberationserifregular.TTF, 0o600))
	return path
}

func decodePNG(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	return img
}

func containsColor(img image.Image, want color.RGBA) bool {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if color.RGBAModel.Convert(img.At(x, y)) == want {
				return true
			}
		}
	}
	return false
}

func sampleSeries() domain.TimeSeries {
	day := func(d int) time.Time { return time.Date(2020, 1, d, 0, 0, 0, 0, time.UTC) }
	return domain.TimeSeries{
		Dates:     []time.Time{day(20), day(21), day(22), day(23)},
		Confirmed: []int{291, 440, 571, 830},
		Suspected: []int{54, 37, 393, 1072},
		Deaths:    []int{6, 9, 17, 25},
		Cured:     []int{25, 28, 28, 34},
	}
}

func TestRenderer_RenderTimeSeries(t *testing.T) {
	r, metrics, dir := testRenderer(t, writeTestFont(t))

	path, err := r.RenderTimeSeries(sampleSeries())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, TimeSeriesFile), path)

	img := decodePNG(t, path)
	assert.Equal(t, 960, img.Bounds().Dx())
	assert.Equal(t, 768, img.Bounds().Dy())
	assert.True(t, containsColor(img, background), "background color not found")

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ChartsRendered.WithLabelValues(observability.ChartTimeSeries)), 0)

	// No temp files are left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRenderer_RenderTimeSeries_SingleDay(t *testing.T) {
	r, _, _ := testRenderer(t, "")

	ts := sampleSeries()
	ts.Dates, ts.Confirmed, ts.Suspected, ts.Deaths, ts.Cured = ts.Dates[:1], ts.Confirmed[:1], ts.Suspected[:1], ts.Deaths[:1], ts.Cured[:1]

	_, err := r.RenderTimeSeries(ts)
	require.NoError(t, err)
}

func TestRenderer_RenderTimeSeries_Empty(t *testing.T) {
	r, metrics, dir := testRenderer(t, "")

	_, err := r.RenderTimeSeries(domain.TimeSeries{})
	require.ErrorIs(t, err, domain.ErrEmptySeries)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.RenderErrors.WithLabelValues(observability.ChartTimeSeries)), 0)

	_, statErr := os.Stat(filepath.Join(dir, TimeSeriesFile))
	assert.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestNewLineChart_UnsortedDates(t *testing.T) {
	jan20 := time.Date(2020, 1, 20, 0, 0, 0, 0, time.UTC)
	feb5 := time.Date(2020, 2, 5, 0, 0, 0, 0, time.UTC)
	jan25 := time.Date(2020, 1, 25, 0, 0, 0, 0, time.UTC)
	ts := domain.TimeSeries{
		Dates:     []time.Time{jan20, feb5, jan25},
		Confirmed: []int{291, 28018, 1975},
		Suspected: []int{54, 24702, 2684},
		Deaths:    []int{6, 563, 56},
		Cured:     []int{25, 1153, 49},
	}

	p, err := newLineChart(ts, plot.DefaultTextHandler)
	require.NoError(t, err)

	for _, d := range ts.Dates {
		x := float64(d.Unix())
		assert.True(t, x > p.X.Min && x < p.X.Max, "%s outside x range", d.Format("01-02"))
	}
	assert.InDelta(t, float64(jan20.Unix())-12*60*60, p.X.Min, 0)
	assert.InDelta(t, float64(feb5.Unix())+12*60*60, p.X.Max, 0)
}

func TestRenderer_RenderTimeSeries_RaggedSeries(t *testing.T) {
	r, _, _ := testRenderer(t, "")

	ts := sampleSeries()
	ts.Deaths = ts.Deaths[:2]

	_, err := r.RenderTimeSeries(ts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "死亡")
}

func rect(x, y, w, h float64) []domain.Point {
	return []domain.Point{{X: x, Y: y}, {X: x, Y: y + h}, {X: x + w, Y: y + h}, {X: x + w, Y: y}, {X: x, Y: y}}
}

func province(owner, fcname string, rings ...[]domain.Point) domain.Shape {
	return domain.Shape{
		Rings:      rings,
		Attributes: map[string]string{domain.AttrOwner: owner, domain.AttrFCName: fcname},
	}
}

func TestRenderer_RenderChoropleth(t *testing.T) {
	r, metrics, dir := testRenderer(t, writeTestFont(t))

	layers := domain.MapLayers{
		Provinces: []domain.Shape{
			province("湖北省", "湖北省", rect(108, 29, 8, 5)),
			province("广东省", "广东省\x00\x00", rect(110, 21, 6, 4)),
			province("广东省", "南澳岛", rect(117, 23.3, 0.3, 0.3)),
			province("西藏自治区", "西藏自治区", rect(80, 28, 12, 8)),
			province("空", "空"), // no geometry
		},
		Boundary: []domain.Shape{{Rings: [][]domain.Point{{{X: 109, Y: 18}, {X: 112, Y: 12}}}}},
		Basemap:  []domain.Shape{{Rings: [][]domain.Point{rect(74, 18, 60, 35)}}},
	}
	counts := domain.RegionCounts{"湖北": 11177, "广东": 0, "钻石公主号": 61}

	path, summary, err := r.RenderChoropleth(layers, counts)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ChoroplethFile), path)

	assert.Equal(t, 2, summary.Reported)
	assert.Equal(t, 1, summary.Unreported)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, []string{"钻石公主号"}, summary.UnmatchedRegions)
	assert.Equal(t, map[domain.Severity]int{domain.SeveritySevere: 1, domain.SeverityNone: 1}, summary.Buckets)

	img := decodePNG(t, path)
	assert.Equal(t, 960, img.Bounds().Dx())
	assert.Equal(t, 768, img.Bounds().Dy())
	assert.True(t, containsColor(img, SeverityColor(domain.SeveritySevere)), "severe fill not found")
	assert.True(t, containsColor(img, NoReportColor()), "no-report fill not found")
	assert.True(t, containsColor(img, water), "water not found")

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ChartsRendered.WithLabelValues(observability.ChartChoropleth)), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.ShapesDrawn.WithLabelValues("reported")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ShapesDrawn.WithLabelValues("skipped")), 0)
}

func TestRenderer_RenderChoropleth_NoCounts(t *testing.T) {
	r, _, _ := testRenderer(t, "")

	layers := domain.MapLayers{Provinces: []domain.Shape{
		province("北京市", "北京市", rect(115.5, 39.5, 2, 1.5)),
	}}

	_, summary, err := r.RenderChoropleth(layers, domain.RegionCounts{})
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Reported)
	assert.Equal(t, 1, summary.Unreported)
	assert.Empty(t, summary.Buckets)
}

func TestRenderer_OutputDirIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "occupied")
	require.NoError(t, os.WriteFile(file, nil, 0o600))

	metrics := observability.NewMetricsForTesting()
	r, err := NewRenderer(file, "", slog.New(slog.NewTextHandler(io.Discard, nil)), metrics)
	require.NoError(t, err)

	_, err = r.RenderTimeSeries(sampleSeries())
	require.Error(t, err)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.RenderErrors.WithLabelValues(observability.ChartTimeSeries)), 0)
}
