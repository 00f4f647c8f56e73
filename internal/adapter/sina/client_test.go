package sina

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgw2168/2019-nCoV/internal/domain"
	"github.com/mgw2168/2019-nCoV/internal/observability"
)

const testBody = `({"data":{"historylist":[{"date":"2.3","cn_conNum":"17238","cn_deathNum":"361","cn_cureNum":"475","cn_susNum":"21558"}],"list":[{"name":"湖北","value":"11177"}]}});`

func testClient(t *testing.T, handler http.HandlerFunc) (*Client, *observability.Metrics) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	metrics := observability.NewMetricsForTesting()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(srv.URL+"/news/wap/fymap2020_data.d.json", 2*time.Second, logger, metrics), metrics
}

func TestClient_Fetch_Success(t *testing.T) {
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2020, 2, 4, 8, 30, 15, 0, time.UTC)))
	defer domain.SetClock(nil)

	c, metrics := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/news/wap/fymap2020_data.d.json", r.URL.Path)
		assert.Equal(t, "1580805015000", r.URL.Query().Get("_"))
		assert.True(t, r.URL.Query().Has("callback"))
		assert.Empty(t, r.URL.Query().Get("callback"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/javascript")
		_, _ = io.WriteString(w, testBody)
	})

	p, err := c.Fetch(context.Background())
	require.NoError(t, err)

	require.Len(t, p.Data.HistoryList, 1)
	assert.Equal(t, "2.3", p.Data.HistoryList[0].Date)
	assert.Equal(t, 17238, p.Data.HistoryList[0].Confirmed.Value)
	require.Len(t, p.Data.List, 1)
	assert.Equal(t, "湖北", p.Data.List[0].Name)

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.FetchRequests.WithLabelValues("success")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.FetchRequests.WithLabelValues("error")), 0)
}

func TestClient_FetchRaw_Unwraps(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, testBody)
	})

	raw, err := c.FetchRaw(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, testBody[1:len(testBody)-2], string(raw))
}

func TestClient_Fetch_HTTPError(t *testing.T) {
	c, metrics := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusServiceUnavailable)
	})

	_, err := c.Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.FetchRequests.WithLabelValues("error")), 0)
}

func TestClient_Fetch_MalformedWrapper(t *testing.T) {
	c, metrics := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `<html>blocked</html>`)
	})

	_, err := c.Fetch(context.Background())
	require.ErrorIs(t, err, domain.ErrMalformedWrapper)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.FetchRequests.WithLabelValues("error")), 0)
}

func TestClient_Fetch_MissingData(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `({"result":{"status":{"code":1}}})`)
	})

	_, err := c.Fetch(context.Background())
	require.ErrorIs(t, err, domain.ErrMissingKey)
}

func TestClient_Fetch_NoRetry(t *testing.T) {
	calls := 0
	c, _ := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.Fetch(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestClient_Fetch_ContextCancelled(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Fetch(ctx)
	require.Error(t, err)
}
