package segment

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"zebra.onnx", "alpha.onnx", "readme.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	// First recognized file in name order wins
	got, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if got != filepath.Join(dir, "alpha.onnx") {
		t.Errorf("Discover = %q, want alpha.onnx", got)
	}
}

func TestDiscoverNoModel(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "weights.bin"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Discover(dir)
	if !errors.Is(err, ErrNoModel) {
		t.Errorf("err = %v, want ErrNoModel", err)
	}
}

func TestDiscoverMissingDir(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "absent"))
	if err == nil {
		t.Fatal("Discover on missing dir should fail")
	}
	if errors.Is(err, ErrNoModel) {
		t.Error("missing dir must not read as 'no model in dir'")
	}
}

func TestDiscoverIgnoresSubdirectories(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "nested.onnx"), 0755); err != nil {
		t.Fatal(err)
	}

	_, err := Discover(dir)
	if !errors.Is(err, ErrNoModel) {
		t.Errorf("err = %v, want ErrNoModel", err)
	}
}

func TestLoadModelMissingFile(t *testing.T) {
	if _, err := LoadModel(filepath.Join(t.TempDir(), "missing.onnx")); err == nil {
		t.Error("LoadModel on missing file should fail")
	}
}
