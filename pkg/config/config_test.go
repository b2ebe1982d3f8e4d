package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type testConfig struct {
	Name string `yaml:"name"`
	Port int    `yaml:"port"`
}

type strictConfig struct {
	Port int `yaml:"port"`
}

func (c *strictConfig) Validate() error {
	if c.Port == 0 {
		return errors.New("port required")
	}
	return nil
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "name: custom\n")
	cfg := testConfig{Name: "default", Port: 8343}
	if err := Load(path, &cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "custom" {
		t.Errorf("name = %q, want custom", cfg.Name)
	}
	if cfg.Port != 8343 {
		t.Errorf("port = %d, want default preserved", cfg.Port)
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("EHWAZ_TEST_NAME", "from-env")
	path := writeConfig(t, "name: ${EHWAZ_TEST_NAME}\n")
	var cfg testConfig
	if err := Load(path, &cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "from-env" {
		t.Errorf("name = %q, want from-env", cfg.Name)
	}
}

func TestLoadRunsValidation(t *testing.T) {
	path := writeConfig(t, "port: 0\n")
	var cfg strictConfig
	if err := Load(path, &cfg); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadMissingFile(t *testing.T) {
	var cfg testConfig
	if err := Load(filepath.Join(t.TempDir(), "absent.yaml"), &cfg); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadOptionalMissingFile(t *testing.T) {
	cfg := testConfig{Name: "default"}
	if err := LoadOptional(filepath.Join(t.TempDir(), "absent.yaml"), &cfg); err != nil {
		t.Fatalf("LoadOptional: %v", err)
	}
	if cfg.Name != "default" {
		t.Errorf("name = %q, want default untouched", cfg.Name)
	}
}

func TestLoadOptionalExistingFile(t *testing.T) {
	path := writeConfig(t, "name: real\n")
	var cfg testConfig
	if err := LoadOptional(path, &cfg); err != nil {
		t.Fatalf("LoadOptional: %v", err)
	}
	if cfg.Name != "real" {
		t.Errorf("name = %q, want real", cfg.Name)
	}
}
