// Package config provides the JSON configuration file and its defaults.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

const (
	appDir     = "nest-selector"
	configFile = "config.json"
)

// Duration is a time.Duration that reads and writes as a string like "30s".
// Bare numbers are taken as seconds.
type Duration struct {
	time.Duration
}

// MarshalJSON writes the duration string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts "1m30s" or a number of seconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		d.Duration = v
		return nil
	}
	var secs float64
	if err := json.Unmarshal(data, &secs); err != nil {
		return fmt.Errorf("invalid duration %s", data)
	}
	d.Duration = time.Duration(secs * float64(time.Second))
	return nil
}

// Config holds every tunable of the editor and the service connection.
type Config struct {
	ServiceURL     string   `json:"serviceURL"`
	RequestTimeout Duration `json:"requestTimeout"`
	SimulationTime string   `json:"simulationTime"`

	LayerMargin  float64 `json:"layerMargin"`
	MaxLayers    int     `json:"maxLayers"`
	LayerSpacing float64 `json:"layerSpacing"`

	HandleRadius  float64 `json:"handleRadius"`
	DeviceRadius  float64 `json:"deviceRadius"`
	MinDragPixels float64 `json:"minDragPixels"`

	VmMin float64 `json:"vmMin"`
	VmMax float64 `json:"vmMax"`

	ViewportWidth  float64 `json:"viewportWidth"`
	ViewportHeight float64 `json:"viewportHeight"`

	DeleteKey       string `json:"deleteKey"`
	DragModifierKey string `json:"dragModifierKey"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ServiceURL:      "http://localhost:5000",
		RequestTimeout:  Duration{30 * time.Second},
		SimulationTime:  "1000",
		LayerMargin:     0.1,
		MaxLayers:       12,
		LayerSpacing:    1.2,
		HandleRadius:    6,
		DeviceRadius:    12,
		MinDragPixels:   3,
		VmMin:           -70,
		VmMax:           -50,
		ViewportWidth:   800,
		ViewportHeight:  600,
		DeleteKey:       "Delete",
		DragModifierKey: "LeftShift",
	}
}

// DefaultPath returns ~/.config/nest-selector/config.json.
func DefaultPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(configDir, appDir, configFile)
}

// Load reads the configuration at path. A missing file yields the defaults;
// fields absent from the file keep their default values.
func Load(path string) (*Config, error) {
	c := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	c.fix()
	return c, nil
}

// fix replaces out-of-range values with defaults.
func (c *Config) fix() {
	d := Default()
	if c.ServiceURL == "" {
		c.ServiceURL = d.ServiceURL
	}
	if c.RequestTimeout.Duration <= 0 {
		c.RequestTimeout = d.RequestTimeout
	}
	if c.LayerMargin < 0 {
		log.Printf("config: negative layerMargin %v, using %v", c.LayerMargin, d.LayerMargin)
		c.LayerMargin = d.LayerMargin
	}
	if c.MaxLayers <= 0 {
		c.MaxLayers = d.MaxLayers
	}
	if c.LayerSpacing <= 0 {
		c.LayerSpacing = d.LayerSpacing
	}
	if c.VmMax <= c.VmMin {
		log.Printf("config: empty potential range [%v, %v], using defaults", c.VmMin, c.VmMax)
		c.VmMin, c.VmMax = d.VmMin, d.VmMax
	}
	if c.ViewportWidth <= 0 || c.ViewportHeight <= 0 {
		c.ViewportWidth, c.ViewportHeight = d.ViewportWidth, d.ViewportHeight
	}
}

// Save writes the configuration to path, creating the directory if needed.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
