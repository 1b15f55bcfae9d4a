// Package vmf holds the in-memory level document: the world brushes, the
// point and brush entities, overlays and per-instance fixup variables.
// Conditions mutate this model; nothing else owns geometry.
package vmf

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"mapcraft/internal/keyvalues"
)

var (
	ErrNoWorld = errors.New("document has no world block")
)

// Document owns every top-level solid and entity. Root blocks that the
// rewriter never touches (version info, view settings, cameras) are kept
// verbatim so the output document round-trips.
type Document struct {
	World    *World
	Entities []*Entity

	preamble    []*keyvalues.KV // root blocks before the world block
	postamble   []*keyvalues.KV // root blocks after the entities
	nextFaceID  int
	nextSolidID int
	nextEntID   int
}

// World is the worldspawn entity: properties plus the structural brushes.
type World struct {
	Props  Props
	Solids []*Solid
}

// NewDocument returns an empty document with a bare world block, mainly
// for building geometry programmatically.
func NewDocument() *Document {
	return &Document{
		World:       &World{Props: Props{{"classname", "worldspawn"}}},
		nextFaceID:  1,
		nextSolidID: 1,
		nextEntID:   1,
	}
}

// ParseFile reads and parses a level document.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Parse builds a Document from document text.
func Parse(data []byte) (*Document, error) {
	root, err := keyvalues.Parse(data)
	if err != nil {
		return nil, err
	}

	doc := &Document{nextFaceID: 1, nextSolidID: 1, nextEntID: 1}
	seenWorld := false
	for _, node := range root.Children {
		switch {
		case node.IsBlock() && node.Key == "world":
			world, err := parseWorld(doc, node)
			if err != nil {
				return nil, err
			}
			doc.World = world
			seenWorld = true
		case node.IsBlock() && node.Key == "entity":
			ent, err := parseEntity(doc, node)
			if err != nil {
				return nil, err
			}
			doc.Entities = append(doc.Entities, ent)
		case seenWorld:
			doc.postamble = append(doc.postamble, node)
		default:
			doc.preamble = append(doc.preamble, node)
		}
	}
	if doc.World == nil {
		return nil, ErrNoWorld
	}
	return doc, nil
}

// NextFaceID hands out a document-unique face identifier.
func (d *Document) NextFaceID() int {
	id := d.nextFaceID
	d.nextFaceID++
	return id
}

// NextSolidID hands out a document-unique solid identifier.
func (d *Document) NextSolidID() int {
	id := d.nextSolidID
	d.nextSolidID++
	return id
}

// NextEntityID hands out a document-unique entity identifier.
func (d *Document) NextEntityID() int {
	id := d.nextEntID
	d.nextEntID++
	return id
}

func (d *Document) noteFaceID(id int) {
	if id >= d.nextFaceID {
		d.nextFaceID = id + 1
	}
}

func (d *Document) noteSolidID(id int) {
	if id >= d.nextSolidID {
		d.nextSolidID = id + 1
	}
}

func (d *Document) noteEntID(id int) {
	if id >= d.nextEntID {
		d.nextEntID = id + 1
	}
}

// AddEntity appends ent, assigning an identifier if it has none.
func (d *Document) AddEntity(ent *Entity) {
	if ent.ID == 0 {
		ent.ID = d.NextEntityID()
	} else {
		d.noteEntID(ent.ID)
	}
	d.Entities = append(d.Entities, ent)
}

// RemoveEntity deletes ent from the document. Removing an entity that is
// already gone is a no-op, so delete-style results stay idempotent.
func (d *Document) RemoveEntity(ent *Entity) {
	for i, e := range d.Entities {
		if e == ent {
			d.Entities = append(d.Entities[:i], d.Entities[i+1:]...)
			return
		}
	}
}

// Instances returns every instance entity in declaration order.
func (d *Document) Instances() []*Entity {
	var out []*Entity
	for _, e := range d.Entities {
		if e.IsInstance() {
			out = append(out, e)
		}
	}
	return out
}

// BrushEnts returns every entity that owns solids (func_detail and friends).
func (d *Document) BrushEnts() []*Entity {
	var out []*Entity
	for _, e := range d.Entities {
		if len(e.Solids) > 0 {
			out = append(out, e)
		}
	}
	return out
}

// FindSolid locates a solid by identifier in the world or any brush entity.
func (d *Document) FindSolid(id int) *Solid {
	for _, s := range d.World.Solids {
		if s.ID == id {
			return s
		}
	}
	for _, e := range d.Entities {
		for _, s := range e.Solids {
			if s.ID == id {
				return s
			}
		}
	}
	return nil
}

// FindFace locates a face by identifier, returning it with its owning
// solid, or nil if no such face exists.
func (d *Document) FindFace(id int) (*Face, *Solid) {
	find := func(solids []*Solid) (*Face, *Solid) {
		for _, s := range solids {
			for _, f := range s.Faces {
				if f.ID == id {
					return f, s
				}
			}
		}
		return nil, nil
	}
	if f, s := find(d.World.Solids); f != nil {
		return f, s
	}
	for _, e := range d.Entities {
		if f, s := find(e.Solids); f != nil {
			return f, s
		}
	}
	return nil, nil
}

// CopySolids duplicates a set of solids with fresh face identifiers,
// returning the copies and the combined old→new face remap.
func (d *Document) CopySolids(solids []*Solid) ([]*Solid, map[int]int) {
	remap := make(map[int]int)
	out := make([]*Solid, 0, len(solids))
	for _, s := range solids {
		out = append(out, s.Copy(d, remap))
	}
	return out, remap
}

// RemoveSolid deletes a solid wherever it lives. Idempotent.
func (d *Document) RemoveSolid(target *Solid) {
	d.World.Solids = removeSolid(d.World.Solids, target)
	for _, e := range d.Entities {
		e.Solids = removeSolid(e.Solids, target)
	}
}

func removeSolid(solids []*Solid, target *Solid) []*Solid {
	for i, s := range solids {
		if s == target {
			return append(solids[:i], solids[i+1:]...)
		}
	}
	return solids
}

// Serialize writes the document back out, preserving untouched root blocks.
func (d *Document) Serialize(w io.Writer) error {
	root := keyvalues.NewBlock("")
	for _, node := range d.preamble {
		root.Add(node)
	}
	root.Add(d.World.node())
	for _, ent := range d.Entities {
		root.Add(ent.node())
	}
	for _, node := range d.postamble {
		root.Add(node)
	}
	return keyvalues.Serialize(w, root)
}

// WriteFile serializes the document to path.
func (d *Document) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := d.Serialize(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func parseWorld(doc *Document, node *keyvalues.KV) (*World, error) {
	world := &World{}
	for _, child := range node.Children {
		if child.IsBlock() && child.Key == "solid" {
			solid, err := parseSolid(doc, child)
			if err != nil {
				return nil, err
			}
			world.Solids = append(world.Solids, solid)
			continue
		}
		if !child.IsBlock() {
			world.Props = append(world.Props, Prop{child.Key, child.Value})
		}
	}
	return world, nil
}

func (w *World) node() *keyvalues.KV {
	node := keyvalues.NewBlock("world")
	for _, p := range w.Props {
		node.Add(keyvalues.NewLeaf(p.Key, p.Value))
	}
	for _, s := range w.Solids {
		node.Add(s.node())
	}
	return node
}

func itoa(n int) string { return strconv.Itoa(n) }
