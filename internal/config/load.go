// internal/config/load.go
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Load reads, validates and normalizes a config file.
// Files ending in .toml are TOML, everything else is YAML.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return ParseTOML(raw)
	}
	return Parse(raw)
}

// Parse is Load for an in-memory YAML document. Unknown keys are errors.
func Parse(raw []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	return finish(&cfg)
}

// ParseTOML is Parse for TOML documents.
func ParseTOML(raw []byte) (*Config, error) {
	var cfg Config
	meta, err := toml.Decode(string(raw), &cfg)
	if err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config: unknown key %q", undecoded[0].String())
	}
	return finish(&cfg)
}

func finish(cfg *Config) (*Config, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	Normalize(cfg)
	return cfg, nil
}
