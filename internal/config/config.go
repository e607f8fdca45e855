// Package config loads snapshot configuration from a YAML file plus .env
// and environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full snapshot configuration. Zero values defer to the
// engine's defaults.
type Config struct {
	Root      string `yaml:"root"`
	OutputDir string `yaml:"output_dir"`
	GraphDir  string `yaml:"graph_dir"`
	CacheFile string `yaml:"cache_file"`
	DocLinks  string `yaml:"doc_links"`

	Workers   int      `yaml:"workers"`
	Languages []string `yaml:"languages"`

	Lint struct {
		// Tools maps a language to the external lint tool to run for it.
		Tools map[string]string `yaml:"tools"`
	} `yaml:"lint"`

	Entities struct {
		Provider string `yaml:"provider"` // heuristic|gemini
		Model    string `yaml:"model"`
		APIKey   string `yaml:"api_key"`
	} `yaml:"entities"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		File   string `yaml:"file"`
	} `yaml:"logging"`
}

// Load reads path (optional), applies .env, then environment overrides.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if key := os.Getenv("UNDERSTORY_API_KEY"); key != "" {
		cfg.Entities.APIKey = key
	}
	if provider := os.Getenv("UNDERSTORY_ENTITY_PROVIDER"); provider != "" {
		cfg.Entities.Provider = provider
	}
	if workers := os.Getenv("UNDERSTORY_WORKERS"); workers != "" {
		if n, err := strconv.Atoi(workers); err == nil && n > 0 {
			cfg.Workers = n
		}
	}

	return &cfg, nil
}
