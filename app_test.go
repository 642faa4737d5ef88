package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kwv/boardgrid/grid"
)

// boardDetections is a detector payload with duplicate hits on every marker
const boardDetections = `{
  "0": [10, 10],
  "1": [1490, 10],
  "2": [11, 9],
  "3": [10, 500],
  "4": [1489, 11],
  "5": [1490, 500],
  "6": [9, 501],
  "7": [1491, 499]
}`

func writeDetections(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "detections.json")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write detections fixture: %v", err)
	}
	return path
}

func writeTestConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config fixture: %v", err)
	}
	return path
}

func newTestApp(t *testing.T) (*App, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	app := NewApp()
	app.Out = &out
	app.ConfigFile = writeTestConfig(t, "grid:\n  threshold: 100\n")
	app.Camera = "cli"
	return app, &out
}

func TestNewApp(t *testing.T) {
	app := NewApp()
	if app == nil {
		t.Fatal("NewApp returned nil")
		return
	}
	if app.StateTracker == nil {
		t.Error("StateTracker should be initialized")
	}
	if app.Out == nil {
		t.Error("Out should default to stdout")
	}
}

func TestApplyOptions(t *testing.T) {
	app := NewApp()
	opts := AppOptions{
		ConfigFile:     "test-config.yaml",
		DetectionsFile: "frame.json",
		OutputFile:     "out.png",
		Format:         "png",
		Camera:         "cam-a",
		Rectify:        true,
		HttpPort:       9090,
		MqttMode:       true,
		HttpMode:       true,
	}

	app.ApplyOptions(opts)

	if app.ConfigFile != opts.ConfigFile {
		t.Errorf("ConfigFile = %s, want %s", app.ConfigFile, opts.ConfigFile)
	}
	if app.DetectionsFile != opts.DetectionsFile {
		t.Errorf("DetectionsFile = %s, want %s", app.DetectionsFile, opts.DetectionsFile)
	}
	if app.OutputFile != opts.OutputFile || app.Format != opts.Format {
		t.Errorf("output = %s/%s, want %s/%s", app.OutputFile, app.Format, opts.OutputFile, opts.Format)
	}
	if app.Camera != opts.Camera {
		t.Errorf("Camera = %s, want %s", app.Camera, opts.Camera)
	}
	if !app.Rectify || !app.MqttMode || !app.HttpMode {
		t.Error("boolean options not applied")
	}
	if app.HttpPort != 9090 {
		t.Errorf("HttpPort = %d, want 9090", app.HttpPort)
	}
}

// ---------------------------------------------------------------------------
// loadConfig
// ---------------------------------------------------------------------------

func TestLoadConfig_MissingDefaultFallsBack(t *testing.T) {
	t.Chdir(t.TempDir())

	app := NewApp()
	app.ConfigFile = defaultConfigFile
	cfg, err := app.loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Grid != grid.DefaultGridConfig() {
		t.Errorf("Grid = %+v, want defaults", cfg.Grid)
	}
}

func TestLoadConfig_MissingExplicitFails(t *testing.T) {
	app := NewApp()
	app.ConfigFile = filepath.Join(t.TempDir(), "nonexistent.yaml")
	if _, err := app.loadConfig(); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestLoadConfig_FromFile(t *testing.T) {
	app := NewApp()
	app.ConfigFile = writeTestConfig(t, `grid:
  rows: 4
  cols: 8
cameras:
  - id: cam-a
    topic: board/cam-a/detections
`)
	cfg, err := app.loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Grid.Rows != 4 || cfg.Grid.Cols != 8 {
		t.Errorf("grid = %dx%d, want 4x8", cfg.Grid.Rows, cfg.Grid.Cols)
	}
	if cfg.Grid.Threshold != 100 {
		t.Errorf("Threshold = %g, want default 100", cfg.Grid.Threshold)
	}
}

// ---------------------------------------------------------------------------
// RunOnce
// ---------------------------------------------------------------------------

func TestRunOnce_JSONToStdout(t *testing.T) {
	app, out := newTestApp(t)
	app.DetectionsFile = writeDetections(t, boardDetections)
	app.Format = "json"

	if err := app.RunOnce(); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	output := out.String()
	if !strings.Contains(output, "Loaded 8 detections") {
		t.Errorf("expected detection count in output, got: %s", output)
	}
	if !strings.Contains(output, "Corners: A=(10, 10) B=(10, 500) C=(1490, 500) D=(1490, 10)") {
		t.Errorf("expected corners in output, got: %s", output)
	}

	jsonStart := strings.Index(output, "{")
	if jsonStart < 0 {
		t.Fatalf("no JSON in output: %s", output)
	}
	var fr grid.FrameResult
	if err := json.Unmarshal([]byte(output[jsonStart:]), &fr); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	if len(fr.Cells) != 10 {
		t.Errorf("len(Cells) = %d, want 10", len(fr.Cells))
	}
	if fr.Camera != "cli" {
		t.Errorf("Camera = %q, want cli", fr.Camera)
	}

	cs, ok := app.StateTracker.Get("cli")
	if !ok || cs.Frame == nil {
		t.Error("frame should be recorded in the state tracker")
	}
}

func TestRunOnce_Formats(t *testing.T) {
	tests := []struct {
		format string
		check  func(*testing.T, []byte)
	}{
		{"geojson", func(t *testing.T, data []byte) {
			if !bytes.Contains(data, []byte(`"FeatureCollection"`)) {
				t.Error("expected a FeatureCollection")
			}
		}},
		{"svg", func(t *testing.T, data []byte) {
			if !bytes.Contains(data, []byte("<svg")) {
				t.Error("expected an SVG document")
			}
		}},
		{"png", func(t *testing.T, data []byte) {
			if _, err := png.Decode(bytes.NewReader(data)); err != nil {
				t.Errorf("decode PNG: %v", err)
			}
		}},
		{"masks", func(t *testing.T, data []byte) {
			img, err := png.Decode(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("decode PNG: %v", err)
			}
			if img.Bounds().Dx() != 1500 || img.Bounds().Dy() != 1000 {
				t.Errorf("mask sheet size = %v, want 1500x1000", img.Bounds())
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			app, out := newTestApp(t)
			app.DetectionsFile = writeDetections(t, boardDetections)
			app.OutputFile = filepath.Join(t.TempDir(), "out."+tt.format)
			app.Format = tt.format

			if err := app.RunOnce(); err != nil {
				t.Fatalf("RunOnce: %v", err)
			}
			if !strings.Contains(out.String(), "Wrote "+app.OutputFile) {
				t.Errorf("expected write confirmation, got: %s", out.String())
			}

			data, err := os.ReadFile(app.OutputFile)
			if err != nil {
				t.Fatalf("read output: %v", err)
			}
			tt.check(t, data)
		})
	}
}

func TestRunOnce_Rectified(t *testing.T) {
	app, out := newTestApp(t)
	app.DetectionsFile = writeDetections(t, boardDetections)
	app.Rectify = true

	if err := app.RunOnce(); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if !strings.Contains(out.String(), `"rectification"`) {
		t.Errorf("expected rectification in output, got: %s", out.String())
	}
}

func TestRunOnce_Failures(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		format  string
		wantErr error
	}{
		{"too few markers", `[[10, 10], [1490, 10], [10, 500]]`, "json", grid.ErrInsufficientMarkers},
		{"ambiguous corners", `[[0, 0], [800, 200], [1000, 1000], [200, 800]]`, "json", grid.ErrCornerClassification},
		{"unknown format", boardDetections, "tiff", nil},
		{"invalid payload", `not json`, "json", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, _ := newTestApp(t)
			app.DetectionsFile = writeDetections(t, tt.payload)
			app.Format = tt.format

			err := app.RunOnce()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRunOnce_FailureRecorded(t *testing.T) {
	app, _ := newTestApp(t)
	app.DetectionsFile = writeDetections(t, `[[10, 10]]`)

	if err := app.RunOnce(); err == nil {
		t.Fatal("expected error, got nil")
	}
	cs, ok := app.StateTracker.Get("cli")
	if !ok {
		t.Fatal("failure should be recorded in the state tracker")
	}
	if cs.Failures != 1 || cs.LastError == "" {
		t.Errorf("state = %+v, want one recorded failure", cs)
	}
}

// ---------------------------------------------------------------------------
// handleDetections
// ---------------------------------------------------------------------------

func TestHandleDetections(t *testing.T) {
	app, _ := newTestApp(t)
	cfg, err := app.loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	app.Config = cfg
	// a publisher without a client fails every publish; frames are still recorded
	app.Publisher = grid.NewPublisher(nil, "")

	dets, err := grid.ParseDetectionsJSON([]byte(boardDetections))
	if err != nil {
		t.Fatalf("parse detections: %v", err)
	}

	app.handleDetections("cam-a", dets, nil)
	app.handleDetections("cam-a", dets[:2], nil)
	app.handleDetections("cam-b", nil, errors.New("decoding detections: bad payload"))

	a, ok := app.StateTracker.Get("cam-a")
	if !ok {
		t.Fatal("cam-a not tracked")
	}
	if a.Frames != 1 || a.Failures != 1 {
		t.Errorf("cam-a frames/failures = %d/%d, want 1/1", a.Frames, a.Failures)
	}
	if a.Frame == nil || len(a.Frame.Cells) != 10 {
		t.Error("cam-a should keep the last good frame")
	}
	if !strings.Contains(a.LastError, "insufficient markers") {
		t.Errorf("cam-a LastError = %q", a.LastError)
	}

	b, ok := app.StateTracker.Get("cam-b")
	if !ok || b.Frame != nil || b.Failures != 1 {
		t.Errorf("cam-b state = %+v, want a single failure", b)
	}
}
