package config

import (
	"path/filepath"
	"testing"

	"mapcraft/internal/grid"
	"mapcraft/internal/texturing"
)

func TestLoadStyle(t *testing.T) {
	t.Run("valid style loads and applies", func(t *testing.T) {
		style, err := LoadStyle(filepath.Join("testdata", "valid_style.yaml"))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		surface, ok := style.SurfaceFor(grid.ColorWhite, texturing.KindWall)
		if !ok {
			t.Fatalf("expected a white wall override")
		}
		if len(surface.Materials) != 2 {
			t.Fatalf("expected 2 materials, got %d", len(surface.Materials))
		}

		tex := texturing.Defaults()
		style.Apply(tex)
		got := tex.Variants(grid.ColorWhite, texturing.KindWall)
		if len(got) != 2 || got[0] != "custom/clean_wall_a" {
			t.Fatalf("expected override variants, got %v", got)
		}
		if !tex.IsPassThrough("effects/laserplane") {
			t.Fatalf("expected widened pass-through list")
		}
		// Overridden materials classify back to their surface class.
		if tex.ColorOf("custom/dark_floor") != grid.ColorBlack {
			t.Fatalf("expected override material to classify black")
		}
	})

	t.Run("nil style applies cleanly", func(t *testing.T) {
		var style *Style
		tex := texturing.Defaults()
		style.Apply(tex)
		if len(tex.Variants(grid.ColorWhite, texturing.KindWall)) == 0 {
			t.Fatalf("expected defaults untouched")
		}
	})

	t.Run("unknown color", func(t *testing.T) {
		path := writeTempConfig(t, "version: 1\nsurfaces:\n  - color: mauve\n    kind: wall\n    materials: [a]\n")
		if _, err := LoadStyle(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("unknown kind", func(t *testing.T) {
		path := writeTempConfig(t, "version: 1\nsurfaces:\n  - color: white\n    kind: trim\n    materials: [a]\n")
		if _, err := LoadStyle(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("duplicate surface", func(t *testing.T) {
		path := writeTempConfig(t, "version: 1\nsurfaces:\n  - color: white\n    kind: wall\n    materials: [a]\n  - color: White\n    kind: WALL\n    materials: [b]\n")
		if _, err := LoadStyle(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("surface without materials", func(t *testing.T) {
		path := writeTempConfig(t, "version: 1\nsurfaces:\n  - color: white\n    kind: wall\n")
		if _, err := LoadStyle(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("unsupported version", func(t *testing.T) {
		path := writeTempConfig(t, "version: 3\n")
		if _, err := LoadStyle(path); err == nil {
			t.Fatalf("expected error")
		}
	})
}
