// Package texturing owns the material tables: which color and surface
// kind an authored material belongs to, and which final texture variants
// exist for each (color, kind) pair. The template retexturer and the
// spatial index build both consult it.
package texturing

import (
	"fmt"
	"strings"

	"mapcraft/internal/grid"
	"mapcraft/internal/vmath"
)

// NonRender is the material written onto faces that must not draw:
// neutralized collisions, pass-through template faces.
const NonRender = "tools/toolsnodraw"

// Kind is the surface classification of a texture set.
type Kind int

const (
	KindWall Kind = iota
	KindFloor
	KindCeiling
	Kind2x2
	Kind4x4
	KindGoo
	KindSpecial
)

var kindNames = map[string]Kind{
	"wall":    KindWall,
	"floor":   KindFloor,
	"ceiling": KindCeiling,
	"2x2":     Kind2x2,
	"4x4":     Kind4x4,
	"goo":     KindGoo,
	"special": KindSpecial,
}

func (k Kind) String() string {
	for name, kind := range kindNames {
		if kind == k {
			return name
		}
	}
	return "unknown"
}

// ParseKind reads a kind name from configuration.
func ParseKind(s string) (Kind, error) {
	k, ok := kindNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return KindWall, fmt.Errorf("unknown surface kind %q", s)
	}
	return k, nil
}

// Class is what the classifier knows about a source material.
type Class struct {
	Color grid.Color
	Kind  Kind
}

// Key addresses one variant list.
type Key struct {
	Color grid.Color
	Kind  Kind
}

// Set is the full material table for one style.
type Set struct {
	classes     map[string]Class
	variants    map[Key][]string
	passThrough map[string]bool
}

// Defaults builds the stock table for the clean style.
func Defaults() *Set {
	s := &Set{
		classes:     make(map[string]Class),
		variants:    make(map[Key][]string),
		passThrough: map[string]bool{NonRender: true, "tools/toolsinvisible": true},
	}

	add := func(color grid.Color, kind Kind, materials ...string) {
		for _, m := range materials {
			s.classes[strings.ToLower(m)] = Class{Color: color, Kind: kind}
		}
		s.variants[Key{color, kind}] = append(s.variants[Key{color, kind}], materials...)
	}

	add(grid.ColorWhite, KindWall,
		"tile/white_wall_tile003a",
		"tile/white_wall_tile003h",
		"tile/white_wall_tile003c")
	add(grid.ColorWhite, KindFloor, "tile/white_floor_tile002a")
	add(grid.ColorWhite, KindCeiling, "tile/white_ceiling_tile001a")
	add(grid.ColorWhite, Kind2x2, "tile/white_wall_tile003f")
	add(grid.ColorWhite, Kind4x4, "tile/white_wall_tile004j")
	add(grid.ColorBlack, KindWall,
		"metal/black_wall_metal_002c",
		"metal/black_wall_metal_002e")
	add(grid.ColorBlack, KindFloor, "metal/black_floor_metal_001c")
	add(grid.ColorBlack, KindCeiling, "metal/black_ceiling_metal_001b")
	add(grid.ColorBlack, Kind2x2, "metal/black_wall_metal_002a")
	add(grid.ColorBlack, Kind4x4, "metal/black_wall_metal_002b")
	add(grid.ColorGoo, KindGoo, "nature/toxicslime_a2_bridge_intro")

	return s
}

// Classify looks up the authored material's class.
func (s *Set) Classify(material string) (Class, bool) {
	c, ok := s.classes[strings.ToLower(material)]
	return c, ok
}

// ColorOf maps a material to its color class for the index build;
// unclassified materials report ColorNone.
func (s *Set) ColorOf(material string) grid.Color {
	c, ok := s.Classify(material)
	if !ok {
		return grid.ColorNone
	}
	return c.Color
}

// Variants lists the final texture choices for a (color, kind) pair, in
// table order. Empty when the pair is unpopulated.
func (s *Set) Variants(color grid.Color, kind Kind) []string {
	return s.variants[Key{color, kind}]
}

// SetVariants replaces a variant list, used by style overrides.
func (s *Set) SetVariants(color grid.Color, kind Kind, materials []string) {
	s.variants[Key{color, kind}] = materials
	for _, m := range materials {
		if _, exists := s.classes[strings.ToLower(m)]; !exists {
			s.classes[strings.ToLower(m)] = Class{Color: color, Kind: kind}
		}
	}
}

// IsPassThrough reports materials the retexturer must leave untouched.
func (s *Set) IsPassThrough(material string) bool {
	return s.passThrough[strings.ToLower(material)]
}

// AddPassThrough marks additional materials as untouchable.
func (s *Set) AddPassThrough(materials ...string) {
	for _, m := range materials {
		s.passThrough[strings.ToLower(m)] = true
	}
}

// OrientKind folds a face orientation into the effective surface kind:
// wall-kind materials on near-horizontal surfaces become floor or ceiling
// sets. Square sub-tile kinds keep their authored kind regardless.
func OrientKind(authored Kind, normal vmath.Vec3) Kind {
	if authored != KindWall && authored != KindFloor && authored != KindCeiling {
		return authored
	}
	switch vmath.OrientOf(normal) {
	case vmath.OrientFloor:
		return KindFloor
	case vmath.OrientCeiling:
		return KindCeiling
	default:
		return KindWall
	}
}
