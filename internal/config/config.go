// Package config loads the compile configuration and the optional style
// document that overrides the built-in texture sets.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// CompileConfig is the top-level configuration for one compile run. Input
// and output paths come from the command line; the config file carries
// everything the rule engine needs beyond the document itself.
type CompileConfig struct {
	Version   int        `yaml:"version"`
	Rules     []string   `yaml:"rules"` // rule pack directories, applied in order
	Templates string     `yaml:"templates"`
	Style     string     `yaml:"style"`
	Strict    bool       `yaml:"strict"`
	Game      GameConfig `yaml:"game"`
}

// GameConfig seeds the map-wide facts rules can test against.
type GameConfig struct {
	Mode       string          `yaml:"mode"` // sp or coop
	Preview    bool            `yaml:"preview"`
	StyleVars  map[string]bool `yaml:"style_vars"`
	VoiceAttrs []string        `yaml:"voice_attributes"`
}

func LoadCompileConfig(path string) (*CompileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading compile config: %w", err)
	}

	var cfg CompileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("loading compile config: %w", err)
	}

	if err := validateCompileConfig(&cfg); err != nil {
		return nil, fmt.Errorf("loading compile config: %w", err)
	}

	return &cfg, nil
}

func validateCompileConfig(cfg *CompileConfig) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported version: %d", cfg.Version)
	}
	if len(cfg.Rules) == 0 {
		return fmt.Errorf("at least one rules directory is required")
	}

	seen := make(map[string]struct{})
	for i, dir := range cfg.Rules {
		if strings.TrimSpace(dir) == "" {
			return fmt.Errorf("rules directory %d is empty", i)
		}
		if _, exists := seen[dir]; exists {
			return fmt.Errorf("duplicate rules directory: %s", dir)
		}
		seen[dir] = struct{}{}
	}

	switch strings.ToLower(cfg.Game.Mode) {
	case "", "sp", "coop":
	default:
		return fmt.Errorf("unknown game mode: %s", cfg.Game.Mode)
	}

	return nil
}

// NormalizedMode returns the game mode lowercased, defaulting to
// single-player.
func (g *GameConfig) NormalizedMode() string {
	mode := strings.ToLower(g.Mode)
	if mode == "" {
		mode = "sp"
	}
	return mode
}
