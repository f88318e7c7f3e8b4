package main

import (
	"bytes"
	"encoding/json"
	"image/png"
	"log"
	"net/http"
	"time"

	"github.com/kwv/beaconmesh/mesh"
)

// newHTTPServer creates an HTTP server with all endpoints
func newHTTPServer(store *mesh.ResultStore, config *mesh.Config) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[HTTP] /health request from %s", r.RemoteAddr)
		w.Header().Set("Content-Type", "application/json")
		status := struct {
			Status    string     `json:"status"`
			Timestamp time.Time  `json:"timestamp"`
			HasResult bool       `json:"hasResult"`
			RunID     string     `json:"runId,omitempty"`
			LastError string     `json:"lastError,omitempty"`
			FailedAt  *time.Time `json:"failedAt,omitempty"`
		}{
			Status:    "ok",
			Timestamp: time.Now(),
			HasResult: store.HasResult(),
		}
		if result, _ := store.Latest(); result != nil {
			status.RunID = result.RunID
		}
		if failedAt, err := store.LastFailure(); err != nil {
			status.LastError = err.Error()
			status.FailedAt = &failedAt
		}
		if err := json.NewEncoder(w).Encode(status); err != nil {
			log.Printf("Error encoding health status: %v", err)
		}
	})

	// Full result endpoint
	mux.HandleFunc("/result.json", func(w http.ResponseWriter, r *http.Request) {
		result, _ := store.Latest()
		if result == nil {
			http.Error(w, "No result available", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")
		if err := json.NewEncoder(w).Encode(result); err != nil {
			log.Printf("Error encoding result: %v", err)
		}
	})

	// Beacons and scanner origins as GeoJSON
	mux.HandleFunc("/beacons.geojson", func(w http.ResponseWriter, r *http.Request) {
		_, scanners := store.Latest()
		if len(scanners) == 0 {
			http.Error(w, "No result available", http.StatusServiceUnavailable)
			return
		}
		data, err := mesh.BeaconsGeoJSON(scanners).MarshalJSON()
		if err != nil {
			log.Printf("Error encoding GeoJSON: %v", err)
			http.Error(w, "Failed to encode GeoJSON", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/geo+json")
		w.Header().Set("Cache-Control", "no-cache")
		if _, err := w.Write(data); err != nil {
			log.Printf("Error writing GeoJSON: %v", err)
		}
	})

	// Top-down vector map
	mux.HandleFunc("/map.svg", func(w http.ResponseWriter, r *http.Request) {
		_, scanners := store.Latest()
		if len(scanners) == 0 {
			http.Error(w, "No result available", http.StatusServiceUnavailable)
			return
		}

		renderer := mesh.NewVectorRenderer(scanners)
		renderer.Padding = config.Output.Padding

		var buf bytes.Buffer
		if err := renderer.RenderToSVG(&buf); err != nil {
			log.Printf("Error rendering SVG: %v", err)
			http.Error(w, "Failed to render map", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/svg+xml")
		w.Header().Set("Cache-Control", "no-cache")
		if _, err := buf.WriteTo(w); err != nil {
			log.Printf("Error writing SVG: %v", err)
		}
	})

	// Top-down raster map with scanner labels
	mux.HandleFunc("/map.png", func(w http.ResponseWriter, r *http.Request) {
		_, scanners := store.Latest()
		if len(scanners) == 0 {
			http.Error(w, "No result available", http.StatusServiceUnavailable)
			return
		}

		img := mesh.NewRasterRenderer(scanners).Render()
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		if err := png.Encode(w, img); err != nil {
			log.Printf("Error encoding map PNG: %v", err)
		}
	})

	return mux
}
