package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load on missing file: %v", err)
	}
	if cfg.CancelGraceS != 5 {
		t.Errorf("CancelGraceS = %d, want 5", cfg.CancelGraceS)
	}
	if cfg.DefaultPreset != "lung" {
		t.Errorf("DefaultPreset = %q, want lung", cfg.DefaultPreset)
	}
	if cfg.Overlay.Color != "red" {
		t.Errorf("Overlay.Color = %q, want red", cfg.Overlay.Color)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg := Default()
	cfg.ModelDir = "/opt/models"
	cfg.CancelGraceS = 10
	cfg.Overlay.Opacity = 0.5
	cfg.Export.Format = "tiff"
	cfg.Export.Anonymize = true

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.ModelDir != "/opt/models" {
		t.Errorf("ModelDir = %q", got.ModelDir)
	}
	if got.CancelGraceS != 10 {
		t.Errorf("CancelGraceS = %d", got.CancelGraceS)
	}
	if got.Overlay.Opacity != 0.5 {
		t.Errorf("Overlay.Opacity = %g", got.Overlay.Opacity)
	}
	if got.Export.Format != "tiff" || !got.Export.Anonymize {
		t.Errorf("Export = %+v", got.Export)
	}
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("model_dir: /data/models\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ModelDir != "/data/models" {
		t.Errorf("ModelDir = %q", cfg.ModelDir)
	}
	// Fields absent from the file keep their defaults
	if cfg.CancelGraceS != 5 {
		t.Errorf("CancelGraceS = %d, want default 5", cfg.CancelGraceS)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"zero grace", func(c *Config) { c.CancelGraceS = 0 }, true},
		{"opacity above one", func(c *Config) { c.Overlay.Opacity = 1.5 }, true},
		{"bad export format", func(c *Config) { c.Export.Format = "bmp" }, true},
		{"unknown default preset", func(c *Config) { c.DefaultPreset = "no-such-preset" }, true},
		{"bone preset", func(c *Config) { c.DefaultPreset = "bone" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
