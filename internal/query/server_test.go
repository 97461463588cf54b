package query

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Patxi91/Swissgrid-TimeSeries-Project/internal/storage"
)

// fakeStore serves canned points and records the arguments it was called with.
type fakeStore struct {
	pts      []storage.Point
	err      error
	table    string
	start    time.Time
	end      time.Time
	interval string
}

func (f *fakeStore) RawRange(_ context.Context, table string, start, end time.Time) ([]storage.Point, error) {
	f.table, f.start, f.end = table, start, end
	return f.pts, f.err
}

func (f *fakeStore) BucketedAverage(_ context.Context, table string, start, end time.Time, interval string) ([]storage.Point, error) {
	f.table, f.start, f.end, f.interval = table, start, end, interval
	return f.pts, f.err
}

func newTestServer(store Store) *httptest.Server {
	s := NewServer(Config{Tables: []string{"swissgrid_frequency_data"}}, store)
	return httptest.NewServer(s.Handler())
}

func get(t *testing.T, ts *httptest.Server, path string) (*http.Response, dataResponse) {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var body dataResponse
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	}
	return resp, body
}

func somePoints() []storage.Point {
	base := time.Date(2019, 7, 1, 0, 0, 0, 0, time.UTC)
	return []storage.Point{
		{Timestamp: base, Frequency: 50.003},
		{Timestamp: base.Add(time.Second), Frequency: 49.998},
	}
}

func TestRaw_ReturnsRows(t *testing.T) {
	t.Parallel()

	store := &fakeStore{pts: somePoints()}
	ts := newTestServer(store)
	defer ts.Close()

	resp, body := get(t, ts,
		"/data/raw/swissgrid_frequency_data?start_time=2019-07-01T00:00:00Z&end_time=2019-07-01T01:00:00Z")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, "swissgrid_frequency_data", body.Table)
	assert.Equal(t, 2, body.Count)
	require.Len(t, body.Data, 2)
	assert.InDelta(t, 50.003, body.Data[0].Frequency, 1e-9)

	assert.Equal(t, time.Date(2019, 7, 1, 0, 0, 0, 0, time.UTC), store.start)
	assert.Equal(t, time.Date(2019, 7, 1, 1, 0, 0, 0, time.UTC), store.end)
}

func TestRaw_AcceptsCanonicalLayout(t *testing.T) {
	t.Parallel()

	store := &fakeStore{pts: somePoints()}
	ts := newTestServer(store)
	defer ts.Close()

	resp, _ := get(t, ts,
		"/data/raw/swissgrid_frequency_data?start_time=2019-07-01+00:00:00&end_time=2019-07-01+01:00:00")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, time.Date(2019, 7, 1, 0, 0, 0, 0, time.UTC), store.start)
}

func TestRaw_EmptyRangeIs404(t *testing.T) {
	t.Parallel()

	ts := newTestServer(&fakeStore{})
	defer ts.Close()

	resp, _ := get(t, ts,
		"/data/raw/swissgrid_frequency_data?start_time=2019-07-01T00:00:00Z&end_time=2019-07-01T01:00:00Z")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRaw_UnknownTableIs404(t *testing.T) {
	t.Parallel()

	ts := newTestServer(&fakeStore{pts: somePoints()})
	defer ts.Close()

	resp, _ := get(t, ts,
		"/data/raw/other_table?start_time=2019-07-01T00:00:00Z&end_time=2019-07-01T01:00:00Z")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRaw_BadParams(t *testing.T) {
	t.Parallel()

	ts := newTestServer(&fakeStore{pts: somePoints()})
	defer ts.Close()

	cases := []struct {
		name string
		path string
	}{
		{"missing start", "/data/raw/swissgrid_frequency_data?end_time=2019-07-01T01:00:00Z"},
		{"missing end", "/data/raw/swissgrid_frequency_data?start_time=2019-07-01T00:00:00Z"},
		{"garbage start", "/data/raw/swissgrid_frequency_data?start_time=yesterday&end_time=2019-07-01T01:00:00Z"},
		{"inverted range", "/data/raw/swissgrid_frequency_data?start_time=2019-07-01T02:00:00Z&end_time=2019-07-01T01:00:00Z"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, _ := get(t, ts, tc.path)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestRaw_StoreErrorIs500(t *testing.T) {
	t.Parallel()

	ts := newTestServer(&fakeStore{err: errors.New("db down")})
	defer ts.Close()

	resp, _ := get(t, ts,
		"/data/raw/swissgrid_frequency_data?start_time=2019-07-01T00:00:00Z&end_time=2019-07-01T01:00:00Z")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestAggregated_ResolutionMapping(t *testing.T) {
	t.Parallel()

	store := &fakeStore{pts: somePoints()}
	ts := newTestServer(store)
	defer ts.Close()

	resp, body := get(t, ts,
		"/data/aggregated/swissgrid_frequency_data?start_time=2019-07-01T00:00:00Z&end_time=2019-07-01T01:00:00Z&resolution=15m")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "15 minutes", store.interval, "token must map to an explicit interval")
	assert.Equal(t, "15m", body.Resolution)
}

func TestAggregated_DefaultResolution(t *testing.T) {
	t.Parallel()

	store := &fakeStore{pts: somePoints()}
	ts := newTestServer(store)
	defer ts.Close()

	resp, _ := get(t, ts,
		"/data/aggregated/swissgrid_frequency_data?start_time=2019-07-01T00:00:00Z&end_time=2019-07-01T01:00:00Z")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1 minute", store.interval)
}

func TestAggregated_UnsupportedResolution(t *testing.T) {
	t.Parallel()

	ts := newTestServer(&fakeStore{pts: somePoints()})
	defer ts.Close()

	resp, _ := get(t, ts,
		"/data/aggregated/swissgrid_frequency_data?start_time=2019-07-01T00:00:00Z&end_time=2019-07-01T01:00:00Z&resolution=7m")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	t.Parallel()

	ts := newTestServer(&fakeStore{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
