package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type sample struct {
	Name  string `yaml:"name"`
	Port  int    `yaml:"port"`
	valid bool
}

func (s *sample) Validate() error {
	s.valid = true
	if s.Port <= 0 {
		return errors.New("port must be positive")
	}
	return nil
}

func TestLoad_ExpandsEnvAndKeepsDefaults(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "studio")
	path := filepath.Join(t.TempDir(), "c.yaml")
	if err := os.WriteFile(path, []byte("name: ${SAMPLE_NAME}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &sample{Port: 8080}
	if err := Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "studio" || cfg.Port != 8080 || !cfg.valid {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if err := Load(filepath.Join(t.TempDir(), "nope.yaml"), &sample{Port: 1}); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadOptional_MissingFileValidatesDefaults(t *testing.T) {
	cfg := &sample{Port: 9000}
	found, err := LoadOptional(filepath.Join(t.TempDir(), "nope.yaml"), cfg)
	if err != nil || found {
		t.Fatalf("LoadOptional = %v, %v", found, err)
	}
	if !cfg.valid {
		t.Error("defaults were not validated")
	}

	if _, err := LoadOptional(filepath.Join(t.TempDir(), "nope.yaml"), &sample{}); err == nil {
		t.Error("invalid defaults should fail validation")
	}
}

func TestLoadOptional_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	if err := os.WriteFile(path, []byte("port: [\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	found, err := LoadOptional(path, &sample{Port: 1})
	if err == nil || !found {
		t.Errorf("LoadOptional = %v, %v; want parse error", found, err)
	}
}
