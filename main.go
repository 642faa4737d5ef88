package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
)

// Version is set at build time via -ldflags
var Version = "dev"

// AppOptions holds the parsed command line flags
type AppOptions struct {
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

// Runner is the part of App that run drives
type Runner interface {
	ApplyOptions(opts AppOptions)
	RunOnce() error
	RunService()
}

func run(args []string, out io.Writer, app Runner) error {
	fs := flag.NewFlagSet("boardgrid", flag.ContinueOnError)
	fs.SetOutput(out)

	var opts AppOptions
	fs.StringVar(&opts.ConfigFile, "config", defaultConfigFile, "Path to configuration file")
	fs.StringVar(&opts.DetectionsFile, "detections", "", "Reconstruct the board from a detection JSON file or URL and exit")
	fs.StringVar(&opts.OutputFile, "output", "", "Output file for --detections mode (default: stdout)")
	fs.StringVar(&opts.Format, "format", "json", "Output format: json, geojson, svg, png or masks")
	fs.StringVar(&opts.Camera, "camera", "cli", "Camera ID recorded for --detections mode")
	fs.BoolVar(&opts.Rectify, "rectify", false, "Run a second pass on perspective-corrected detections")
	fs.BoolVar(&opts.MqttMode, "mqtt", false, "Run MQTT service mode, reconstructing every detection message")
	fs.BoolVar(&opts.HttpMode, "http", false, "Enable HTTP server for reconstruction and frame export")
	fs.IntVar(&opts.HttpPort, "http-port", 8080, "HTTP server port")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fmt.Fprintf(out, "boardgrid version: %s\n", Version)
	app.ApplyOptions(opts)

	if opts.DetectionsFile != "" {
		return app.RunOnce()
	}

	if opts.MqttMode || opts.HttpMode {
		app.RunService()
		return nil
	}

	fmt.Fprintln(out, "Use --detections=FILE to reconstruct a single frame")
	fmt.Fprintln(out, "Use --rectify to add the perspective-corrected second pass")
	fmt.Fprintln(out, "Use --mqtt to reconstruct detections received over MQTT")
	fmt.Fprintln(out, "Use --http to serve reconstruction and frame exports over HTTP")
	fmt.Fprintln(out, "\nConfiguration:")
	fmt.Fprintln(out, "  config.yaml - grid parameters, MQTT settings and camera topics")
	return nil
}

func main() {
	if err := run(os.Args[1:], os.Stdout, NewApp()); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.Fatalf("Error: %v", err)
	}
}
