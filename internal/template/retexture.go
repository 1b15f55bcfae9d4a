package template

import (
	"math/rand"
	"strings"

	"go.uber.org/zap"

	"mapcraft/internal/grid"
	"mapcraft/internal/texturing"
	"mapcraft/internal/vmf"
)

// RetexOptions steer the final texture pass over an import.
type RetexOptions struct {
	// ForceColor overrides the authored color class; ColorNone keeps it.
	ForceColor grid.Color
	// InvertColor swaps white and black after any force.
	InvertColor bool
	// ForceKind overrides the orientation-derived surface kind.
	ForceKind *texturing.Kind
	// Replace maps authored materials directly to final ones, bypassing
	// all classification. Keys must be lowercase; the lookup lowercases
	// the face material. Values may name $fixup variables, resolved
	// against Inst per invocation.
	Replace map[string]string
	// Inst resolves $fixup indirection in Replace values; may be nil.
	Inst *vmf.Entity
	// Clump defers texture choice to the caller's neighbor-grouping
	// pass: faces are marked back into the spatial index as ordinary
	// geometry instead of being textured here.
	Clump bool
}

// Retexture assigns final materials to an imported template. It is a
// separate pass from Import because some callers need the raw geometry
// before texture decisions are final.
//
// Variant choice is seeded per (grid cell, normal): two templates
// imported independently into the same cell pick the same variant, which
// keeps seams invisible. That determinism is a correctness requirement.
func Retexture(imp *Imported, tex *texturing.Set, ix *grid.Index, opts RetexOptions, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	for _, solid := range imp.solids() {
		for _, face := range solid.Faces {
			retextureFace(face, solid, tex, ix, opts, log)
		}
	}
}

// SampleColor consults the template's color-picker marks against the
// spatial index: each mark is placed into the document and the surface it
// points at is asked for its color. The first mark that lands on indexed
// geometry wins; ColorNone when none do or the template has no marks.
func (imp *Imported) SampleColor(ix *grid.Index) grid.Color {
	for _, mark := range imp.Template.Pickers() {
		pos := imp.Origin.Add(imp.Orient.Apply(mark.Origin))
		normal := imp.Orient.Apply(mark.Normal)
		key := grid.KeyFor(pos, normal)
		if entry, ok := ix.Lookup(key.Cell, key.Normal); ok {
			return entry.Color
		}
	}
	return grid.ColorNone
}

func (imp *Imported) solids() []*vmf.Solid {
	out := append([]*vmf.Solid{}, imp.World...)
	if imp.Detail != nil {
		out = append(out, imp.Detail.Solids...)
	}
	return out
}

func retextureFace(face *vmf.Face, solid *vmf.Solid, tex *texturing.Set, ix *grid.Index, opts RetexOptions, log *zap.Logger) {
	if tex.IsPassThrough(face.Material) {
		return
	}

	// Direct substitution wins unconditionally.
	if repl, ok := lookupReplace(opts, face.Material); ok {
		face.Material = repl
		return
	}

	class, known := tex.Classify(face.Material)
	if !known {
		return // custom material, author knows best
	}

	color := class.Color
	if opts.ForceColor != grid.ColorNone {
		color = opts.ForceColor
	}
	if opts.InvertColor {
		switch color {
		case grid.ColorWhite:
			color = grid.ColorBlack
		case grid.ColorBlack:
			color = grid.ColorWhite
		}
	}

	normal := face.Normal()
	kind := texturing.OrientKind(class.Kind, normal)
	if opts.ForceKind != nil {
		kind = *opts.ForceKind
	}

	if opts.Clump {
		// Hand the face back to the index as ordinary geometry; the
		// caller's clumping pass owns the choice now.
		key := grid.KeyFor(face.Center(), normal)
		ix.Insert(key.Cell, key.Normal, grid.Entry{
			SolidID: solid.ID,
			FaceID:  face.ID,
			Color:   color,
		})
		return
	}

	variants := tex.Variants(color, kind)
	switch len(variants) {
	case 0:
		log.Warn("no texture variants for class",
			zap.String("color", color.String()),
			zap.String("kind", kind.String()),
			zap.String("material", face.Material))
		return
	case 1:
		face.Material = variants[0]
		return
	}

	key := grid.KeyFor(face.Center(), normal)
	rng := rand.New(rand.NewSource(int64(cellSeed(key.Cell, key.Normal))))
	face.Material = variants[rng.Intn(len(variants))]
}

func lookupReplace(opts RetexOptions, material string) (string, bool) {
	to, ok := opts.Replace[strings.ToLower(material)]
	if !ok {
		return "", false
	}
	if opts.Inst != nil {
		to = opts.Inst.FixupSubst(to)
	}
	return to, true
}
