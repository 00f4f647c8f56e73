package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgw2168/2019-nCoV/internal/config"
	"github.com/mgw2168/2019-nCoV/internal/domain"
	"github.com/mgw2168/2019-nCoV/internal/observability"
)

type mockMessageWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (m *mockMessageWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if m.err != nil {
		return m.err
	}
	m.msgs = append(m.msgs, msgs...)
	return nil
}

func (m *mockMessageWriter) Close() error {
	m.closed = true
	return nil
}

func testWriter(mw *mockMessageWriter) (*Writer, *observability.Metrics) {
	metrics := observability.NewMetricsForTesting()
	return &Writer{
		writer:  mw,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics: metrics,
	}, metrics
}

func headerMap(msg kafkago.Message) map[string]string {
	out := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		out[h.Key] = string(h.Value)
	}
	return out
}

func TestDailyMessage(t *testing.T) {
	publishedAt := time.Date(2020, 2, 4, 8, 30, 0, 0, time.UTC)
	rec := domain.DailyRecord{
		Date:      time.Date(2020, 2, 3, 0, 0, 0, 0, time.UTC),
		Confirmed: 17238,
		Suspected: 21558,
		Deaths:    361,
		Cured:     475,
	}

	msg, err := dailyMessage(rec, publishedAt)
	require.NoError(t, err)

	assert.Equal(t, []byte("2020-02-03"), msg.Key)
	assert.JSONEq(t, `{"date":"2020-02-03T00:00:00Z","confirmed":17238,"suspected":21558,"deaths":361,"cured":475}`, string(msg.Value))
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "record_type", msg.Headers[0].Key)
	assert.Equal(t, []byte("daily"), msg.Headers[0].Value)
	assert.Equal(t, "published_at", msg.Headers[1].Key)
	assert.Equal(t, []byte("2020-02-04T08:30:00Z"), msg.Headers[1].Value)
}

func TestRegionMessage(t *testing.T) {
	msg, err := regionMessage("湖北", 11177, time.Date(2020, 2, 4, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, []byte("湖北"), msg.Key)
	assert.JSONEq(t, `{"name":"湖北","confirmed":11177,"severity":"severe"}`, string(msg.Value))
	assert.Equal(t, "region", headerMap(msg)["record_type"])
}

func TestWriter_PublishSeries(t *testing.T) {
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2020, 2, 4, 8, 30, 0, 0, time.UTC)))
	t.Cleanup(func() { domain.SetClock(nil) })

	mw := &mockMessageWriter{}
	w, metrics := testWriter(mw)

	records := []domain.DailyRecord{
		{Date: time.Date(2020, 2, 3, 0, 0, 0, 0, time.UTC), Confirmed: 17238},
		{Date: time.Date(2020, 2, 2, 0, 0, 0, 0, time.UTC), Confirmed: 14411},
	}
	require.NoError(t, w.PublishSeries(context.Background(), records))

	require.Len(t, mw.msgs, 2)
	assert.Equal(t, "2020-02-03", string(mw.msgs[0].Key))
	assert.Equal(t, "2020-02-02", string(mw.msgs[1].Key))
	assert.Equal(t, "2020-02-04T08:30:00Z", headerMap(mw.msgs[1])["published_at"])
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.RecordsPublished), 0)
}

func TestWriter_PublishRegions_SortedByName(t *testing.T) {
	mw := &mockMessageWriter{}
	w, metrics := testWriter(mw)

	require.NoError(t, w.PublishRegions(context.Background(), domain.RegionCounts{"西藏": 1, "北京": 212, "湖北": 11177}))

	require.Len(t, mw.msgs, 3)
	var keys []string
	for _, m := range mw.msgs {
		keys = append(keys, string(m.Key))
	}
	assert.Equal(t, domain.RegionCounts{"西藏": 1, "北京": 212, "湖北": 11177}.Names(), keys)
	assert.InDelta(t, 3, testutil.ToFloat64(metrics.RecordsPublished), 0)
}

func TestWriter_EmptyInputsSkipWrite(t *testing.T) {
	mw := &mockMessageWriter{err: errors.New("must not be called")}
	w, _ := testWriter(mw)

	require.NoError(t, w.PublishSeries(context.Background(), nil))
	require.NoError(t, w.PublishRegions(context.Background(), domain.RegionCounts{}))
}

func TestWriter_WriteError(t *testing.T) {
	mw := &mockMessageWriter{err: errors.New("leader not available")}
	w, metrics := testWriter(mw)

	err := w.PublishRegions(context.Background(), domain.RegionCounts{"湖北": 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write region records")
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.RecordsPublished), 0)
}

func TestWriter_Close(t *testing.T) {
	mw := &mockMessageWriter{}
	w, _ := testWriter(mw)
	require.NoError(t, w.Close())
	assert.True(t, mw.closed)
}

func TestNewWriter_UsesConfig(t *testing.T) {
	cfg := &config.Config{KafkaBrokers: []string{"localhost:9092"}, KafkaTopic: "ncov-statistics"}
	w := NewWriter(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting())

	kw, ok := w.writer.(*kafkago.Writer)
	require.True(t, ok)
	assert.Equal(t, "ncov-statistics", kw.Topic)
	assert.Equal(t, "localhost:9092", kw.Addr.String())
}
