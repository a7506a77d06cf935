// Package config provides configuration loading and management for statemap.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/statemap/shapefile"
)

// Config represents the complete statemap configuration
type Config struct {
	Boundaries BoundariesConfig `yaml:"boundaries"`
	Render     RenderConfig     `yaml:"render"`
}

// BoundariesConfig configures the boundary shapefile source
type BoundariesConfig struct {
	// CacheDir is the directory caching the extracted boundary archive
	// (default: ~/.us_state_geo)
	CacheDir string `yaml:"cache_dir"`
	// ArchiveURL is the remote boundary archive location
	ArchiveURL string `yaml:"archive_url"`
}

// RenderConfig configures the output image
type RenderConfig struct {
	// Output is the default output file name
	Output string `yaml:"output"`
	// WidthInches and HeightInches size the canvas
	WidthInches  float64 `yaml:"width_inches"`
	HeightInches float64 `yaml:"height_inches"`
	// DPI is the raster resolution
	DPI int `yaml:"dpi"`
	// ColorStops overrides the built-in gradient (hex colors, low to high)
	ColorStops []string `yaml:"color_stops"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Boundaries: BoundariesConfig{
			CacheDir:   shapefile.DefaultCacheDir(),
			ArchiveURL: shapefile.DefaultArchiveURL,
		},
		Render: RenderConfig{
			Output:       "us_state_map.png",
			WidthInches:  12,
			HeightInches: 8,
			DPI:          300,
			ColorStops:   nil, // built-in gradient
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Boundaries.CacheDir == "" {
		return fmt.Errorf("boundaries.cache_dir is required")
	}
	if c.Boundaries.ArchiveURL == "" {
		return fmt.Errorf("boundaries.archive_url is required")
	}
	if c.Render.Output == "" {
		return fmt.Errorf("render.output is required")
	}
	if c.Render.WidthInches <= 0 || c.Render.HeightInches <= 0 {
		return fmt.Errorf("render dimensions must be positive")
	}
	if c.Render.DPI <= 0 {
		return fmt.Errorf("render.dpi must be positive")
	}
	if len(c.Render.ColorStops) == 1 {
		return fmt.Errorf("render.color_stops needs at least two colors")
	}
	return nil
}

// Merge overlays non-zero fields of other onto c
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}
	if other.Boundaries.CacheDir != "" {
		c.Boundaries.CacheDir = other.Boundaries.CacheDir
	}
	if other.Boundaries.ArchiveURL != "" {
		c.Boundaries.ArchiveURL = other.Boundaries.ArchiveURL
	}
	if other.Render.Output != "" {
		c.Render.Output = other.Render.Output
	}
	if other.Render.WidthInches > 0 {
		c.Render.WidthInches = other.Render.WidthInches
	}
	if other.Render.HeightInches > 0 {
		c.Render.HeightInches = other.Render.HeightInches
	}
	if other.Render.DPI > 0 {
		c.Render.DPI = other.Render.DPI
	}
	if len(other.Render.ColorStops) > 0 {
		c.Render.ColorStops = other.Render.ColorStops
	}
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
