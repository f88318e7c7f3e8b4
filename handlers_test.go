package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/kwv/beaconmesh/mesh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

// solvedStore returns a ResultStore holding the solve of testdata/scanners.txt.
func solvedStore(t *testing.T) *mesh.ResultStore {
	t.Helper()
	scanners, err := mesh.ParseScannerFile(filepath.Join("testdata", "scanners.txt"))
	require.NoError(t, err)

	store := mesh.NewResultStore()
	_, err = store.Solve(context.Background(), scanners, mesh.DefaultConfig().Alignment)
	require.NoError(t, err)
	return store
}

func get(t *testing.T, handler http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// ---------------------------------------------------------------------------
// /health
// ---------------------------------------------------------------------------

type healthStatus struct {
	Status    string `json:"status"`
	HasResult bool   `json:"hasResult"`
	RunID     string `json:"runId"`
	LastError string `json:"lastError"`
}

func TestHealth_EmptyStore(t *testing.T) {
	handler := newHTTPServer(mesh.NewResultStore(), mesh.DefaultConfig())
	rec := get(t, handler, "/health")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var status healthStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	assert.Equal(t, "ok", status.Status)
	assert.False(t, status.HasResult)
	assert.Empty(t, status.RunID)
	assert.Empty(t, status.LastError)
}

func TestHealth_SolvedStore(t *testing.T) {
	store := solvedStore(t)
	result, _ := store.Latest()

	rec := get(t, newHTTPServer(store, mesh.DefaultConfig()), "/health")

	var status healthStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	assert.True(t, status.HasResult)
	assert.Equal(t, result.RunID, status.RunID)
}

func TestHealth_ReportsLastFailure(t *testing.T) {
	store := solvedStore(t)
	store.RecordFailure(errors.New("scanner 3 never overlapped"))

	rec := get(t, newHTTPServer(store, mesh.DefaultConfig()), "/health")

	var status healthStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	assert.True(t, status.HasResult, "a failed solve keeps the previous result")
	assert.Equal(t, "scanner 3 never overlapped", status.LastError)
}

// ---------------------------------------------------------------------------
// result endpoints
// ---------------------------------------------------------------------------

func TestEndpoints_NoResult(t *testing.T) {
	handler := newHTTPServer(mesh.NewResultStore(), mesh.DefaultConfig())

	for _, path := range []string{"/result.json", "/beacons.geojson", "/map.svg", "/map.png"} {
		t.Run(path, func(t *testing.T) {
			rec := get(t, handler, path)
			assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
			assert.Contains(t, rec.Body.String(), "No result available")
		})
	}
}

func TestEndpoints_ContentTypes(t *testing.T) {
	handler := newHTTPServer(solvedStore(t), mesh.DefaultConfig())

	tests := []struct {
		path        string
		contentType string
		check       func(t *testing.T, body []byte)
	}{
		{
			path:        "/result.json",
			contentType: "application/json",
		},
		{
			path:        "/beacons.geojson",
			contentType: "application/geo+json",
		},
		{
			path:        "/map.svg",
			contentType: "image/svg+xml",
			check: func(t *testing.T, body []byte) {
				assert.True(t, bytes.Contains(body, []byte("<svg")))
			},
		},
		{
			path:        "/map.png",
			contentType: "image/png",
			check: func(t *testing.T, body []byte) {
				assert.True(t, bytes.HasPrefix(body, []byte("\x89PNG")))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := get(t, handler, tt.path)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.contentType, rec.Header().Get("Content-Type"))
			assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
			if tt.check != nil {
				tt.check(t, rec.Body.Bytes())
			}
		})
	}
}

func TestResultJSON(t *testing.T) {
	rec := get(t, newHTTPServer(solvedStore(t), mesh.DefaultConfig()), "/result.json")
	require.Equal(t, http.StatusOK, rec.Code)

	var result mesh.Result
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.Equal(t, 27, result.BeaconCount)
	assert.Equal(t, 3539, result.MaxManhattan)
	assert.Len(t, result.Scanners, 3)
}

func TestBeaconsGeoJSON(t *testing.T) {
	rec := get(t, newHTTPServer(solvedStore(t), mesh.DefaultConfig()), "/beacons.geojson")
	require.Equal(t, http.StatusOK, rec.Code)

	var fc struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	// 27 beacons plus 3 scanner origins
	assert.Len(t, fc.Features, 30)
}

func TestUnknownPath(t *testing.T) {
	rec := get(t, newHTTPServer(solvedStore(t), mesh.DefaultConfig()), "/floorplan.png")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
