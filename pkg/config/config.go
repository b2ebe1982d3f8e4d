// Package config loads YAML configuration files, expanding environment
// variable references before decoding.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Validator is implemented by configuration types that can check
// themselves after decoding.
type Validator interface {
	Validate() error
}

// Load decodes a YAML file into target. ${VAR} references in the file are
// expanded from the environment first. Keys absent from the file leave the
// target untouched, so callers can pass a pre-populated target to supply
// defaults. When target implements Validator the decoded result is checked
// before Load returns.
func Load[T any](filename string, target *T) error {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", filename, err)
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(raw))), target); err != nil {
		return fmt.Errorf("config: parse %s: %w", filename, err)
	}
	return validate(target)
}

// LoadOptional is Load for files that may not exist: a missing file leaves
// the target untouched and returns nil.
func LoadOptional[T any](filename string, target *T) error {
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return Load(filename, target)
}

func validate(target any) error {
	v, ok := target.(Validator)
	if !ok {
		return nil
	}
	if err := v.Validate(); err != nil {
		return fmt.Errorf("config: validate: %w", err)
	}
	return nil
}
