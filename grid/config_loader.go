package grid

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads the configuration from a YAML file.
// Missing grid parameters fall back to DefaultGridConfig.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return ParseConfig(data)
}

// ParseConfig parses YAML config data, applies defaults and validates it
func ParseConfig(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// ApplyDefaults fills zero grid parameters with the standard board values
func (c *Config) ApplyDefaults() {
	def := DefaultGridConfig()
	g := &c.Grid
	if g.Threshold == 0 {
		g.Threshold = def.Threshold
	}
	if g.Markers == 0 {
		g.Markers = def.Markers
	}
	if g.Rows == 0 {
		g.Rows = def.Rows
	}
	if g.Cols == 0 {
		g.Cols = def.Cols
	}
	if g.CanvasWidth == 0 {
		g.CanvasWidth = def.CanvasWidth
	}
	if g.CanvasHeight == 0 {
		g.CanvasHeight = def.CanvasHeight
	}
	if g.WarpMargin == 0 {
		g.WarpMargin = def.WarpMargin
	}
	if g.EdgeTolerance == 0 {
		g.EdgeTolerance = def.EdgeTolerance
	}
	if c.MQTT.PublishPrefix == "" {
		c.MQTT.PublishPrefix = "boardgrid"
	}
}

// Validate checks the grid parameters and camera entries
func (c *Config) Validate() error {
	g := c.Grid
	if g.Threshold <= 0 {
		return fmt.Errorf("grid.threshold must be positive, got %g", g.Threshold)
	}
	if g.Markers != 4 {
		return fmt.Errorf("grid.markers must be 4, got %d", g.Markers)
	}
	if g.Rows < 2 || g.Cols < 2 {
		return fmt.Errorf("grid must be at least 2x2, got %dx%d", g.Rows, g.Cols)
	}
	if g.CanvasWidth <= 0 || g.CanvasHeight <= 0 {
		return fmt.Errorf("grid canvas must be positive, got %gx%g", g.CanvasWidth, g.CanvasHeight)
	}
	if g.WarpMargin < 0 {
		return fmt.Errorf("grid.warpMargin must not be negative, got %g", g.WarpMargin)
	}

	seen := make(map[string]bool)
	for i, cam := range c.Cameras {
		if cam.ID == "" {
			return fmt.Errorf("camera[%d].id is required", i)
		}
		if cam.Topic == "" {
			return fmt.Errorf("camera[%d].topic is required for %s", i, cam.ID)
		}
		if seen[cam.ID] {
			return fmt.Errorf("camera[%d].id %s is duplicated", i, cam.ID)
		}
		seen[cam.ID] = true
	}
	return nil
}
