package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/placetimes/internal/feature"
	"github.com/sells-group/placetimes/internal/geocode"
	"github.com/sells-group/placetimes/internal/monitoring"
	"github.com/sells-group/placetimes/internal/store"
)

func serveFixture(t *testing.T) (*store.FeatureStore, *store.RunStore) {
	t.Helper()

	features := store.NewFeatureStore()
	f, err := feature.New("Cafe A", "https://maps.example/place/a",
		geocode.Point{Lat: 39.9526, Lng: -75.1652}, nil,
		time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	f.SetAddress("100 Market St")
	features.Put(f.Properties.Link, f)

	runs, err := store.OpenRunStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { runs.Close() })

	ctx := context.Background()
	require.NoError(t, runs.Migrate(ctx))
	run, err := runs.CreateRun(ctx, "locations.csv", "out.geojson")
	require.NoError(t, err)
	require.NoError(t, runs.FinishRun(ctx, run.ID, store.RunStatusComplete, monitoring.Stats{
		LocationsTotal:   3,
		LocationsScraped: 3,
		PlacesScraped:    42,
	}))

	return features, runs
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestServeRouter_Healthz(t *testing.T) {
	router := serveRouter(serveFixture(t))

	rr := get(t, router, "/healthz")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestServeRouter_Features(t *testing.T) {
	router := serveRouter(serveFixture(t))

	rr := get(t, router, "/features")
	require.Equal(t, http.StatusOK, rr.Code)

	var coll feature.Collection
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &coll))
	assert.Equal(t, "FeatureCollection", coll.Type)
	require.Len(t, coll.Features, 1)
	assert.Equal(t, "Cafe A", coll.Features[0].Properties.Name)
}

func TestServeRouter_Stats(t *testing.T) {
	router := serveRouter(serveFixture(t))

	rr := get(t, router, "/stats")
	require.Equal(t, http.StatusOK, rr.Code)

	var stats serveStats
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Features)
	assert.Equal(t, 1, stats.WithAddress)
	assert.Equal(t, 0, stats.WithPopularTimes)
	assert.Equal(t, 0, stats.WithLiveInfo)
}

func TestServeRouter_Runs(t *testing.T) {
	router := serveRouter(serveFixture(t))

	rr := get(t, router, "/runs")
	require.Equal(t, http.StatusOK, rr.Code)

	var runs []store.Run
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, store.RunStatusComplete, runs[0].Status)
	require.NotNil(t, runs[0].Stats)
	assert.Equal(t, 42, runs[0].Stats.PlacesScraped)
}

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	done := now.Add(90 * time.Second)
	runs := []store.Run{
		{
			ID:         "0d9f3a1b-4c5e-6789-abcd-ef0123456789",
			Status:     store.RunStatusComplete,
			StartedAt:  now,
			FinishedAt: &done,
			Stats: &monitoring.Stats{
				LocationsTotal:   10,
				LocationsScraped: 9,
				PlacesScraped:    250,
			},
		},
		{
			ID:        "ffffffff-0000-1111-2222-333333333333",
			Status:    store.RunStatusRunning,
			StartedAt: now,
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)
	out := buf.String()

	assert.Contains(t, out, "0d9f3a1b")
	assert.Contains(t, out, "complete")
	assert.Contains(t, out, "1m30s")
	assert.Contains(t, out, "9/10")
	assert.Contains(t, out, "250")
	assert.Contains(t, out, "running")
}
