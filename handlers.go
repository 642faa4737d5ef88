package main

import (
	"encoding/json"
	"fmt"
	"image/color"
	"image/png"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/kwv/boardgrid/grid"
)

// maxPayloadBytes bounds a POSTed detection payload
const maxPayloadBytes = 1 << 20

// newHTTPServer creates an HTTP server with all endpoints
func newHTTPServer(stateTracker *grid.StateTracker, config *grid.Config, rectify bool) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		status := struct {
			Status    string    `json:"status"`
			Timestamp time.Time `json:"timestamp"`
			HasFrames bool      `json:"hasFrames"`
		}{
			Status:    "ok",
			Timestamp: time.Now(),
			HasFrames: stateTracker.HasFrames(),
		}
		if err := json.NewEncoder(w).Encode(status); err != nil {
			log.Printf("Error encoding health status: %v", err)
		}
	})

	// Reconstruct a posted detection payload and record it as the camera's latest frame
	mux.HandleFunc("POST /reconstruct", func(w http.ResponseWriter, r *http.Request) {
		camera := r.URL.Query().Get("camera")
		if camera == "" {
			camera = "http"
		}
		doRectify := rectify
		if v := r.URL.Query().Get("rectify"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				http.Error(w, fmt.Sprintf("invalid rectify value %q", v), http.StatusBadRequest)
				return
			}
			doRectify = b
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
		if err != nil {
			http.Error(w, "Failed to read request body", http.StatusBadRequest)
			return
		}
		dets, err := grid.ParseDetectionsJSON(body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		fr, err := reconstructFrame(config.Grid, camera, dets, doRectify)
		if err != nil {
			log.Printf("[GRID] %s: frame dropped: %v", camera, err)
			stateTracker.RecordFailure(camera, err)
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		stateTracker.RecordFrame(camera, dets, fr)

		writeJSON(w, fr)
	})

	// All camera states
	mux.HandleFunc("GET /frames", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, stateTracker.All())
	})

	mux.HandleFunc("GET /frames/{camera}", func(w http.ResponseWriter, r *http.Request) {
		cs, ok := latestFrame(w, r, stateTracker)
		if !ok {
			return
		}
		writeJSON(w, cs.Frame)
	})

	mux.HandleFunc("GET /frames/{camera}/cells.geojson", func(w http.ResponseWriter, r *http.Request) {
		cs, ok := latestFrame(w, r, stateTracker)
		if !ok {
			return
		}
		data, err := grid.ToFeatureCollection(cs.Frame).MarshalJSON()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/geo+json")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write(data)
	})

	// Vector layout
	mux.HandleFunc("GET /frames/{camera}/layout.svg", func(w http.ResponseWriter, r *http.Request) {
		cs, ok := latestFrame(w, r, stateTracker)
		if !ok {
			return
		}
		w.Header().Set("Content-Type", "image/svg+xml")
		w.Header().Set("Cache-Control", "no-cache")
		if err := newLayoutRenderer(cs.Frame, cs.Detections, config).RenderToSVG(w); err != nil {
			log.Printf("Error encoding layout SVG: %v", err)
		}
	})

	// Raster layout
	mux.HandleFunc("GET /frames/{camera}/layout.png", func(w http.ResponseWriter, r *http.Request) {
		cs, ok := latestFrame(w, r, stateTracker)
		if !ok {
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		if err := newLayoutRenderer(cs.Frame, cs.Detections, config).RenderToPNG(w); err != nil {
			log.Printf("Error encoding layout PNG: %v", err)
		}
	})

	mux.HandleFunc("GET /frames/{camera}/masks.png", func(w http.ResponseWriter, r *http.Request) {
		cs, ok := latestFrame(w, r, stateTracker)
		if !ok {
			return
		}
		img, err := grid.RenderMaskSheet(cs.Frame.Cells, int(config.Grid.CanvasWidth), int(config.Grid.CanvasHeight))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		if err := png.Encode(w, img); err != nil {
			log.Printf("Error encoding mask PNG: %v", err)
		}
	})

	// Wrap mux with logging middleware
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[HTTP] %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)
		mux.ServeHTTP(w, r)
	})
}

// latestFrame looks up the camera of the request path. It writes the error
// response itself when there is no frame to serve.
func latestFrame(w http.ResponseWriter, r *http.Request, stateTracker *grid.StateTracker) (grid.CameraState, bool) {
	camera := r.PathValue("camera")
	cs, ok := stateTracker.Get(camera)
	if !ok {
		http.Error(w, fmt.Sprintf("Unknown camera %q", camera), http.StatusNotFound)
		return cs, false
	}
	if cs.Frame == nil {
		http.Error(w, fmt.Sprintf("No frame available for %q", camera), http.StatusServiceUnavailable)
		return cs, false
	}
	return cs, true
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// newLayoutRenderer creates a layout renderer sized to the canvas, using the
// camera's configured color when there is one
func newLayoutRenderer(fr *grid.FrameResult, dets []grid.Detection, config *grid.Config) *grid.LayoutRenderer {
	renderer := grid.NewLayoutRenderer(fr, dets, config.Grid.CanvasWidth, config.Grid.CanvasHeight)
	applyCameraColor(renderer, config)
	return renderer
}

// applyCameraColor applies the frame's camera color from config to the renderer
func applyCameraColor(renderer *grid.LayoutRenderer, config *grid.Config) {
	if config == nil || renderer.Frame == nil {
		return
	}

	cam := config.GetCameraByID(renderer.Frame.Camera)
	if cam == nil || cam.Color == "" {
		return
	}

	base, ok := parseHexColor(cam.Color)
	if !ok {
		return
	}

	renderer.Colors.Lattice = base
	renderer.Colors.CellEdge = darkenColor(base)
	renderer.Colors.CellEven = color.NRGBA{base.R, base.G, base.B, 120} // Semi-transparent fill
}

// parseHexColor parses "#rrggbb" or "rrggbb"
func parseHexColor(s string) (color.NRGBA, bool) {
	if len(s) > 0 && s[0] == '#' {
		s = s[1:]
	}
	if len(s) != 6 {
		return color.NRGBA{}, false
	}

	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b); err != nil {
		return color.NRGBA{}, false
	}
	return color.NRGBA{r, g, b, 255}, true
}

// darkenColor creates a darker version of a color for cell edges
func darkenColor(c color.NRGBA) color.NRGBA {
	factor := 0.5
	return color.NRGBA{
		R: uint8(float64(c.R) * factor),
		G: uint8(float64(c.G) * factor),
		B: uint8(float64(c.B) * factor),
		A: 255,
	}
}
