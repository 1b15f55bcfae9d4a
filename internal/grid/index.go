// Package grid maintains the spatial face index: a lookup from grid cell
// and outward normal to the face occupying that cell side. It is built once
// per run by scanning world and detail brushes, then consulted and mutated
// by conditions and the template retexturer.
package grid

import (
	"strings"

	"go.uber.org/zap"

	"mapcraft/internal/vmath"
	"mapcraft/internal/vmf"
)

// Color classifies a surface for texture decisions.
type Color int

const (
	ColorNone Color = iota
	ColorWhite
	ColorBlack
	ColorGoo
)

func (c Color) String() string {
	switch c {
	case ColorWhite:
		return "white"
	case ColorBlack:
		return "black"
	case ColorGoo:
		return "goo"
	default:
		return "none"
	}
}

// Key addresses one cell side: the cell's minimum corner and the outward
// unit normal of the face covering it.
type Key struct {
	Cell   vmath.Vec3
	Normal vmath.Vec3
}

// Entry records which face occupies a cell side. The index holds only
// identifiers, never pointers, so deleted geometry resolves to NotFound
// instead of dangling.
type Entry struct {
	SolidID int
	FaceID  int
	Color   Color
}

// Index is the per-run spatial face index. Not safe for concurrent use;
// the whole run is single-threaded.
type Index struct {
	entries map[Key]Entry
	order   []Key // insertion order, for deterministic walks
}

// New returns an empty index.
func New() *Index {
	return &Index{entries: make(map[Key]Entry)}
}

// KeyFor derives the index key for a face: the cell of the voxel behind the
// face (half a cell inward along the inverted normal) plus the snapped
// normal. Faces lying exactly on a cell boundary therefore key to the cell
// they enclose, which pins down the boundary-straddling case.
func KeyFor(center, normal vmath.Vec3) Key {
	n := normal.SnapAxis()
	inward := center.Sub(n.Scale(vmath.CellSize / 2))
	return Key{Cell: vmath.CellAt(inward), Normal: n}
}

// Lookup returns the entry at (cell, normal) if one exists.
func (ix *Index) Lookup(cell, normal vmath.Vec3) (Entry, bool) {
	e, ok := ix.entries[Key{cell, normal.SnapAxis()}]
	return e, ok
}

// Pop removes and returns the entry at (cell, normal); callers take
// ownership of the face for replacement.
func (ix *Index) Pop(cell, normal vmath.Vec3) (Entry, bool) {
	key := Key{cell, normal.SnapAxis()}
	e, ok := ix.entries[key]
	if ok {
		delete(ix.entries, key)
	}
	return e, ok
}

// Insert stores an entry, replacing whatever held the key.
func (ix *Index) Insert(cell, normal vmath.Vec3, e Entry) {
	key := Key{cell, normal.SnapAxis()}
	if _, exists := ix.entries[key]; !exists {
		ix.order = append(ix.order, key)
	}
	ix.entries[key] = e
}

// Delete drops the entry at (cell, normal) if present.
func (ix *Index) Delete(cell, normal vmath.Vec3) {
	delete(ix.entries, Key{cell, normal.SnapAxis()})
}

// EvictSolid removes every entry owned by the given solid. Deletion helpers
// for solids must call this so the index never outlives the geometry.
func (ix *Index) EvictSolid(solidID int) {
	for key, e := range ix.entries {
		if e.SolidID == solidID {
			delete(ix.entries, key)
		}
	}
}

// Len reports the number of live entries.
func (ix *Index) Len() int {
	return len(ix.entries)
}

// Walk visits every live entry in insertion order. Returning false stops
// the walk.
func (ix *Index) Walk(visit func(Key, Entry) bool) {
	for _, key := range ix.order {
		e, ok := ix.entries[key]
		if !ok {
			continue // popped or deleted since insertion
		}
		if !visit(key, e) {
			return
		}
	}
}

// BuildOptions configures the document scan.
type BuildOptions struct {
	// Classify maps a face material to its color class.
	Classify func(material string) Color
	// NonRender is the material written onto colliding face pairs.
	NonRender string
	Log       *zap.Logger
}

// Build scans every world and detail solid once and indexes each face by
// cell and normal. When two faces claim the same key neither is
// trustworthy: both are retextured to the non-render material and the key
// is left vacant.
func Build(doc *vmf.Document, opts BuildOptions) *Index {
	if opts.Classify == nil {
		opts.Classify = func(string) Color { return ColorNone }
	}
	if opts.NonRender == "" {
		opts.NonRender = "tools/toolsnodraw"
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	ix := New()
	poisoned := make(map[Key]bool)
	scan := func(solid *vmf.Solid) {
		for _, face := range solid.Faces {
			key := KeyFor(face.Center(), face.Normal())
			if poisoned[key] {
				face.Material = opts.NonRender
				continue
			}
			if existing, ok := ix.entries[key]; ok {
				// Two faces on the same cell side occlude each other;
				// keep neither and stop both from rendering.
				if other, _ := doc.FindFace(existing.FaceID); other != nil {
					other.Material = opts.NonRender
				}
				face.Material = opts.NonRender
				delete(ix.entries, key)
				poisoned[key] = true
				log.Warn("duplicate face position",
					zap.Int("face", face.ID),
					zap.Int("other", existing.FaceID),
					zap.String("cell", key.Cell.String()),
					zap.String("normal", key.Normal.String()))
				continue
			}
			ix.Insert(key.Cell, key.Normal, Entry{
				SolidID: solid.ID,
				FaceID:  face.ID,
				Color:   opts.Classify(face.Material),
			})
		}
	}

	for _, solid := range doc.World.Solids {
		scan(solid)
	}
	for _, ent := range doc.BrushEnts() {
		if strings.EqualFold(ent.Classname(), "func_detail") {
			for _, solid := range ent.Solids {
				scan(solid)
			}
		}
	}
	return ix
}
