package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the config file at path and parses it with Parse.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("config file not found: %s", path)
	case err != nil:
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}
	return Parse(data, path)
}

// Parse expands ${VAR} references in data, decodes it strictly and
// validates the result. An empty document yields a zero Config. name only
// labels errors.
func Parse(data []byte, name string) (*Config, error) {
	dec := yaml.NewDecoder(bytes.NewBufferString(ExpandEnv(string(data))))
	dec.KnownFields(true)

	cfg := new(Config)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid YAML in %s: %w", name, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", name, err)
	}
	return cfg, nil
}
