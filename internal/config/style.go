package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"mapcraft/internal/grid"
	"mapcraft/internal/texturing"
)

// Style is an override document for the texture sets: which materials
// make up each (color, kind) surface class and which materials the
// retexture pass must never touch.
type Style struct {
	Version     int       `yaml:"version"`
	PassThrough []string  `yaml:"pass_through"`
	Surfaces    []Surface `yaml:"surfaces"`

	surfaceIndex map[surfaceKey]*Surface
}

// Surface replaces the variant list for one color and kind.
type Surface struct {
	Color     string   `yaml:"color"`
	Kind      string   `yaml:"kind"`
	Materials []string `yaml:"materials"`
}

type surfaceKey struct {
	color grid.Color
	kind  texturing.Kind
}

func LoadStyle(path string) (*Style, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading style: %w", err)
	}

	var style Style
	if err := yaml.Unmarshal(data, &style); err != nil {
		return nil, fmt.Errorf("loading style: %w", err)
	}

	if err := validateStyle(&style); err != nil {
		return nil, fmt.Errorf("loading style: %w", err)
	}

	style.surfaceIndex = make(map[surfaceKey]*Surface)
	for i := range style.Surfaces {
		surface := &style.Surfaces[i]
		key, _ := surface.key()
		style.surfaceIndex[key] = surface
	}

	return &style, nil
}

func validateStyle(s *Style) error {
	if s.Version != 1 {
		return fmt.Errorf("unsupported version: %d", s.Version)
	}

	seen := make(map[surfaceKey]struct{})
	for i, surface := range s.Surfaces {
		key, err := surface.key()
		if err != nil {
			return fmt.Errorf("surface %d: %w", i, err)
		}
		if _, exists := seen[key]; exists {
			return fmt.Errorf("duplicate surface: %s %s", surface.Color, surface.Kind)
		}
		seen[key] = struct{}{}
		if len(surface.Materials) == 0 {
			return fmt.Errorf("surface %s %s has no materials", surface.Color, surface.Kind)
		}
	}

	return nil
}

func (s Surface) key() (surfaceKey, error) {
	color, err := parseColor(s.Color)
	if err != nil {
		return surfaceKey{}, err
	}
	kind, err := texturing.ParseKind(s.Kind)
	if err != nil {
		return surfaceKey{}, err
	}
	return surfaceKey{color: color, kind: kind}, nil
}

func parseColor(s string) (grid.Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white":
		return grid.ColorWhite, nil
	case "black":
		return grid.ColorBlack, nil
	case "goo":
		return grid.ColorGoo, nil
	}
	return grid.ColorNone, fmt.Errorf("unknown surface color: %q", s)
}

// Apply layers the style over a texture set, replacing variant lists for
// every surface the style names and widening the pass-through list.
func (s *Style) Apply(tex *texturing.Set) {
	if s == nil {
		return
	}
	for key, surface := range s.surfaceIndex {
		tex.SetVariants(key.color, key.kind, surface.Materials)
	}
	tex.AddPassThrough(s.PassThrough...)
}

// SurfaceFor reports the override for one color and kind, if the style
// names one.
func (s *Style) SurfaceFor(color grid.Color, kind texturing.Kind) (*Surface, bool) {
	if s == nil {
		return nil, false
	}
	surface, ok := s.surfaceIndex[surfaceKey{color: color, kind: kind}]
	return surface, ok
}
