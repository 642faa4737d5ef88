package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image/png"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/kwv/boardgrid/grid"
)

const defaultConfigFile = "config.yaml"

// App encapsulates the application state and dependencies
type App struct {
	Config       *grid.Config
	StateTracker *grid.StateTracker
	MQTTClient   *grid.MQTTClient
	Publisher    *grid.Publisher
	Out          io.Writer

	// CLI Flags (effectively dependencies)
	ConfigFile     string
	DetectionsFile string
	OutputFile     string
	Format         string
	Camera         string
	Rectify        bool
	HttpPort       int
	MqttMode       bool
	HttpMode       bool
}

// NewApp creates a new App instance
func NewApp() *App {
	return &App{
		StateTracker: grid.NewStateTracker(),
		Out:          os.Stdout,
	}
}

// ApplyOptions applies CLI options to the App instance
func (a *App) ApplyOptions(opts AppOptions) {
	a.ConfigFile = opts.ConfigFile
	a.DetectionsFile = opts.DetectionsFile
	a.OutputFile = opts.OutputFile
	a.Format = opts.Format
	a.Camera = opts.Camera
	a.Rectify = opts.Rectify
	a.HttpPort = opts.HttpPort
	a.MqttMode = opts.MqttMode
	a.HttpMode = opts.HttpMode
}

// loadConfig reads the config file. A missing default config.yaml is not an
// error: the standard board parameters are used instead.
func (a *App) loadConfig() (*grid.Config, error) {
	path := a.ConfigFile
	if path == "" {
		path = defaultConfigFile
	}

	if _, err := os.Stat(path); os.IsNotExist(err) && path == defaultConfigFile {
		log.Printf("No %s found, using default grid parameters", path)
		cfg := &grid.Config{Grid: grid.DefaultGridConfig()}
		cfg.ApplyDefaults()
		return cfg, nil
	}

	cfg, err := grid.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	log.Printf("Loaded config from %s", path)
	return cfg, nil
}

// reconstructFrame runs the pipeline with or without the rectified second pass
func reconstructFrame(cfg grid.GridConfig, camera string, dets []grid.Detection, rectify bool) (*grid.FrameResult, error) {
	var (
		fr  *grid.FrameResult
		err error
	)
	if rectify {
		fr, err = grid.ReconstructRectified(dets, cfg)
	} else {
		fr, err = grid.Reconstruct(dets, cfg)
	}
	if err != nil {
		return nil, err
	}
	fr.Camera = camera
	return fr, nil
}

// RunOnce reconstructs the frame in DetectionsFile (a path or an HTTP(S) URL)
// and writes it in the requested format
func (a *App) RunOnce() error {
	cfg, err := a.loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a.Config = cfg

	dets, err := grid.LoadDetections(context.Background(), a.DetectionsFile)
	if err != nil {
		return fmt.Errorf("reading detections: %w", err)
	}
	fmt.Fprintf(a.Out, "Loaded %d detections from %s\n", len(dets), a.DetectionsFile)

	fr, err := reconstructFrame(cfg.Grid, a.Camera, dets, a.Rectify)
	if err != nil {
		a.StateTracker.RecordFailure(a.Camera, err)
		return fmt.Errorf("reconstructing %s: %w", a.DetectionsFile, err)
	}
	a.StateTracker.RecordFrame(a.Camera, dets, fr)

	fmt.Fprintf(a.Out, "Corners: A=%v B=%v C=%v D=%v\n", fr.Corners.A, fr.Corners.B, fr.Corners.C, fr.Corners.D)
	if fr.Stats != nil {
		fmt.Fprintln(a.Out, fr.Stats.Summary)
		if !fr.Stats.Uniform {
			fmt.Fprintf(a.Out, "Warning: cell sizes vary by more than %.0f%%\n", grid.UniformityLimit)
		}
	}

	var buf bytes.Buffer
	if err := writeFrame(&buf, a.Format, fr, dets, cfg); err != nil {
		return err
	}

	if a.OutputFile == "" || a.OutputFile == "-" {
		_, err = a.Out.Write(buf.Bytes())
		return err
	}
	if err := os.WriteFile(a.OutputFile, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", a.OutputFile, err)
	}
	fmt.Fprintf(a.Out, "Wrote %s (%s, %d bytes)\n", a.OutputFile, a.Format, buf.Len())
	return nil
}

// writeFrame encodes a reconstructed frame in one of the export formats
func writeFrame(w io.Writer, format string, fr *grid.FrameResult, dets []grid.Detection, cfg *grid.Config) error {
	switch format {
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(fr)
	case "geojson":
		data, err := grid.ToFeatureCollection(fr).MarshalJSON()
		if err != nil {
			return fmt.Errorf("encoding GeoJSON: %w", err)
		}
		_, err = w.Write(data)
		return err
	case "svg":
		return newLayoutRenderer(fr, dets, cfg).RenderToSVG(w)
	case "png":
		return newLayoutRenderer(fr, dets, cfg).RenderToPNG(w)
	case "masks":
		img, err := grid.RenderMaskSheet(fr.Cells, int(cfg.Grid.CanvasWidth), int(cfg.Grid.CanvasHeight))
		if err != nil {
			return err
		}
		return png.Encode(w, img)
	}
	return fmt.Errorf("unknown output format %q", format)
}

// handleDetections is the per-frame loop: every failure is logged, recorded
// and reported, and the next frame starts from scratch.
func (a *App) handleDetections(camera string, dets []grid.Detection, err error) {
	if err == nil {
		var fr *grid.FrameResult
		fr, err = reconstructFrame(a.Config.Grid, camera, dets, a.Rectify)
		if err == nil {
			a.StateTracker.RecordFrame(camera, dets, fr)
			log.Printf("[GRID] %s: %d detections -> %d cells (A=%v C=%v)",
				camera, len(dets), len(fr.Cells), fr.Corners.A, fr.Corners.C)
			if a.Publisher != nil {
				if pubErr := a.Publisher.PublishFrame(camera, fr); pubErr != nil {
					log.Printf("Error publishing frame for %s: %v", camera, pubErr)
				}
			}
			return
		}
	}

	log.Printf("[GRID] %s: frame dropped: %v", camera, err)
	a.StateTracker.RecordFailure(camera, err)
	if a.Publisher != nil {
		if pubErr := a.Publisher.PublishError(camera, err); pubErr != nil {
			log.Printf("Error publishing failure for %s: %v", camera, pubErr)
		}
	}
}

// RunService runs the MQTT and/or HTTP service until interrupted
func (a *App) RunService() {
	fmt.Fprintln(a.Out, "Starting boardgrid service...")

	cfg, err := a.loadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v (looked at %s)", err, a.ConfigFile)
	}
	a.Config = cfg
	log.Printf("Grid: %dx%d lattice, threshold %.0f, canvas %.0fx%.0f",
		cfg.Grid.Rows, cfg.Grid.Cols, cfg.Grid.Threshold, cfg.Grid.CanvasWidth, cfg.Grid.CanvasHeight)

	if a.MqttMode {
		mqttClient, err := grid.InitMQTT(cfg, a.handleDetections)
		if err != nil {
			log.Fatalf("Failed to initialize MQTT: %v", err)
		}
		if mqttClient == nil {
			log.Fatal("MQTT broker not configured in config.yaml")
		}
		a.MQTTClient = mqttClient
		a.Publisher = grid.NewPublisher(mqttClient.GetClient(), cfg.MQTT.PublishPrefix)
		fmt.Fprintln(a.Out, "MQTT frame publisher initialized")
	}

	if a.HttpMode {
		httpServer := newHTTPServer(a.StateTracker, a.Config, a.Rectify)
		go func() {
			addr := fmt.Sprintf("0.0.0.0:%d", a.HttpPort)
			log.Printf("[HTTP] Starting server on %s", addr)
			if err := http.ListenAndServe(addr, httpServer); err != nil {
				log.Fatalf("[HTTP] Server error: %v", err)
			}
		}()
	}

	fmt.Fprintln(a.Out, "\nService Running")
	fmt.Fprintln(a.Out, "===============")

	if a.MqttMode {
		fmt.Fprintln(a.Out, "\nMQTT:")
		fmt.Fprintln(a.Out, "  Subscribed topics:")
		for _, cam := range cfg.Cameras {
			fmt.Fprintf(a.Out, "    - %s (%s)\n", cam.Topic, cam.ID)
		}
		fmt.Fprintf(a.Out, "  Publishing to: %s/{camera}/corners|cells|frame|error\n", cfg.MQTT.PublishPrefix)
	}

	if a.HttpMode {
		fmt.Fprintf(a.Out, "\nHTTP endpoints (port %d):\n", a.HttpPort)
		fmt.Fprintln(a.Out, "  GET  /health                          - Health check")
		fmt.Fprintln(a.Out, "  POST /reconstruct?camera=&rectify=    - Reconstruct a detection payload")
		fmt.Fprintln(a.Out, "  GET  /frames                          - Latest state of every camera")
		fmt.Fprintln(a.Out, "  GET  /frames/{camera}                 - Latest frame as JSON")
		fmt.Fprintln(a.Out, "  GET  /frames/{camera}/cells.geojson   - Cells as GeoJSON")
		fmt.Fprintln(a.Out, "  GET  /frames/{camera}/layout.svg|png  - Rendered layout")
		fmt.Fprintln(a.Out, "  GET  /frames/{camera}/masks.png       - Labeled cell masks")
	}

	fmt.Fprintln(a.Out, "\nPress Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan

	fmt.Fprintln(a.Out, "\nShutting down service...")
	if a.MQTTClient != nil {
		a.MQTTClient.Disconnect()
	}
	fmt.Fprintln(a.Out, "Service stopped")
}
