// Package config provides the on-disk application configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"ct-viewer/internal/volume"

	"gopkg.in/yaml.v3"
)

// Config represents the durable machine configuration. Per-user UI state
// (window geometry, last directories) lives in fyne preferences instead.
type Config struct {
	// ModelDir is scanned for segmentation model files at startup.
	ModelDir string `yaml:"model_dir"`

	// CancelGraceS bounds how long a series load waits for an in-flight
	// segmentation run to acknowledge cancellation, in seconds (default: 5).
	CancelGraceS int `yaml:"cancel_grace_s"`

	// DefaultPreset names the window preset applied when a series loads.
	DefaultPreset string `yaml:"default_preset"`

	Overlay OverlayConfig `yaml:"overlay"`
	Export  ExportConfig  `yaml:"export"`
}

// OverlayConfig controls mask overlay rendering.
type OverlayConfig struct {
	Color   string  `yaml:"color"`   // palette name or #RRGGBB
	Opacity float64 `yaml:"opacity"` // 0.0 - 1.0
}

// ExportConfig holds defaults for the export dialog.
type ExportConfig struct {
	Format    string `yaml:"format"` // dicom, png, tiff
	Anonymize bool   `yaml:"anonymize"`
	BurnMask  bool   `yaml:"burn_mask"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	return &Config{
		ModelDir:      defaultModelDir(),
		CancelGraceS:  5,
		DefaultPreset: "lung",
		Overlay: OverlayConfig{
			Color:   "red",
			Opacity: 0.31,
		},
		Export: ExportConfig{
			Format:    "png",
			Anonymize: false,
			BurnMask:  false,
		},
	}
}

// DefaultPath returns the conventional config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".config", "ct-viewer", "config.yaml")
}

func defaultModelDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "models"
	}
	return filepath.Join(home, ".config", "ct-viewer", "models")
}

// Load reads and parses a YAML configuration file. A missing file is not an
// error: defaults are returned so a fresh install starts without setup.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration, creating parent directories as needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// Validate checks ranges; values out of range are configuration errors,
// not silently clamped.
func Validate(c *Config) error {
	if c.CancelGraceS <= 0 {
		return fmt.Errorf("cancel_grace_s must be positive, got %d", c.CancelGraceS)
	}
	if c.Overlay.Opacity < 0 || c.Overlay.Opacity > 1 {
		return fmt.Errorf("overlay.opacity must be in [0,1], got %g", c.Overlay.Opacity)
	}
	if _, ok := volume.PresetByName(c.DefaultPreset); !ok {
		return fmt.Errorf("default_preset %q is not a known window preset", c.DefaultPreset)
	}
	switch c.Export.Format {
	case "dicom", "png", "tiff":
	default:
		return fmt.Errorf("export.format must be dicom, png or tiff, got %q", c.Export.Format)
	}
	return nil
}
