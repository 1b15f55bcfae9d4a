package vmf

import (
	"fmt"
	"strconv"
	"strings"

	"mapcraft/internal/keyvalues"
	"mapcraft/internal/vmath"
)

// Solid is one convex brush owning its faces exclusively.
type Solid struct {
	ID    int
	Faces []*Face
}

// Face is one brush side. The identifier is unique in the document at any
// instant but never survives a copy; overlays referencing it must go
// through the remap a copy produces.
type Face struct {
	ID       int
	Plane    [3]vmath.Vec3
	Material string
	UAxis    UVAxis
	VAxis    UVAxis
	Rotation float64
	Lightmap int
}

// UVAxis is one texture projection axis: direction, shift and scale.
type UVAxis struct {
	Dir    vmath.Vec3
	Offset float64
	Scale  float64
}

// Normal returns the outward unit normal of the face plane.
func (f *Face) Normal() vmath.Vec3 {
	a := f.Plane[1].Sub(f.Plane[0])
	b := f.Plane[2].Sub(f.Plane[0])
	return a.Cross(b).Norm()
}

// Center returns the average of the three plane points.
func (f *Face) Center() vmath.Vec3 {
	return f.Plane[0].Add(f.Plane[1]).Add(f.Plane[2]).Scale(1.0 / 3.0)
}

// Translate shifts the face, keeping texture alignment locked to the world.
func (f *Face) Translate(offset vmath.Vec3) {
	for i := range f.Plane {
		f.Plane[i] = f.Plane[i].Add(offset)
	}
	f.UAxis.Offset -= offset.Dot(f.UAxis.Dir) / f.UAxis.Scale
	f.VAxis.Offset -= offset.Dot(f.VAxis.Dir) / f.VAxis.Scale
}

// Rotate spins the face about origin by the given rotation.
func (f *Face) Rotate(m vmath.Matrix, origin vmath.Vec3) {
	for i := range f.Plane {
		f.Plane[i] = m.Apply(f.Plane[i].Sub(origin)).Add(origin)
	}
	f.UAxis.Dir = m.Apply(f.UAxis.Dir)
	f.VAxis.Dir = m.Apply(f.VAxis.Dir)
}

// Copy duplicates the face under a fresh identifier.
func (f *Face) Copy(newID int) *Face {
	dup := *f
	dup.ID = newID
	return &dup
}

// Copy duplicates the solid, drawing a fresh solid identifier and fresh
// face identifiers from doc and recording every old→new face pair in
// remap (may be nil). The copy never keeps the source's solid ID: solids
// copied out of another document would otherwise collide with doc's own
// numbering, and ID-keyed operations like index eviction would hit the
// wrong solid.
func (s *Solid) Copy(doc *Document, remap map[int]int) *Solid {
	dup := &Solid{ID: doc.NextSolidID()}
	for _, f := range s.Faces {
		nf := f.Copy(doc.NextFaceID())
		if remap != nil {
			remap[f.ID] = nf.ID
		}
		dup.Faces = append(dup.Faces, nf)
	}
	return dup
}

// Translate shifts every face of the solid.
func (s *Solid) Translate(offset vmath.Vec3) {
	for _, f := range s.Faces {
		f.Translate(offset)
	}
}

// Rotate spins every face of the solid about origin.
func (s *Solid) Rotate(m vmath.Matrix, origin vmath.Vec3) {
	for _, f := range s.Faces {
		f.Rotate(m, origin)
	}
}

// Bounds returns the axis-aligned extents of the solid's plane points.
func (s *Solid) Bounds() (min, max vmath.Vec3) {
	first := true
	for _, f := range s.Faces {
		for _, p := range f.Plane {
			if first {
				min, max = p, p
				first = false
				continue
			}
			if p.X < min.X {
				min.X = p.X
			}
			if p.Y < min.Y {
				min.Y = p.Y
			}
			if p.Z < min.Z {
				min.Z = p.Z
			}
			if p.X > max.X {
				max.X = p.X
			}
			if p.Y > max.Y {
				max.Y = p.Y
			}
			if p.Z > max.Z {
				max.Z = p.Z
			}
		}
	}
	return min, max
}

func parseSolid(doc *Document, node *keyvalues.KV) (*Solid, error) {
	solid := &Solid{ID: node.Int("id", 0)}
	doc.noteSolidID(solid.ID)
	for _, child := range node.FindAll("side") {
		face, err := parseFace(child)
		if err != nil {
			return nil, fmt.Errorf("solid %d: %w", solid.ID, err)
		}
		doc.noteFaceID(face.ID)
		solid.Faces = append(solid.Faces, face)
	}
	return solid, nil
}

func parseFace(node *keyvalues.KV) (*Face, error) {
	face := &Face{
		ID:       node.Int("id", 0),
		Material: node.Str("material", ""),
		Rotation: node.Float("rotation", 0),
		Lightmap: node.Int("lightmapscale", 16),
	}
	plane, err := parsePlane(node.Str("plane", ""))
	if err != nil {
		return nil, fmt.Errorf("side %d: %w", face.ID, err)
	}
	face.Plane = plane
	if face.UAxis, err = parseUVAxis(node.Str("uaxis", "")); err != nil {
		return nil, fmt.Errorf("side %d uaxis: %w", face.ID, err)
	}
	if face.VAxis, err = parseUVAxis(node.Str("vaxis", "")); err != nil {
		return nil, fmt.Errorf("side %d vaxis: %w", face.ID, err)
	}
	return face, nil
}

// parsePlane reads "(x y z) (x y z) (x y z)".
func parsePlane(s string) ([3]vmath.Vec3, error) {
	var plane [3]vmath.Vec3
	parts := strings.Split(strings.TrimSpace(s), ")")
	idx := 0
	for _, part := range parts {
		part = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(part), "("))
		if part == "" {
			continue
		}
		if idx >= 3 {
			return plane, fmt.Errorf("too many plane points in %q", s)
		}
		v, err := vmath.ParseVec3(part)
		if err != nil {
			return plane, err
		}
		plane[idx] = v
		idx++
	}
	if idx != 3 {
		return plane, fmt.Errorf("expected 3 plane points in %q", s)
	}
	return plane, nil
}

// parseUVAxis reads "[x y z offset] scale".
func parseUVAxis(s string) (UVAxis, error) {
	open := strings.IndexByte(s, '[')
	end := strings.IndexByte(s, ']')
	if open == -1 || end == -1 || end < open {
		return UVAxis{}, fmt.Errorf("malformed axis %q", s)
	}
	fields := strings.Fields(s[open+1 : end])
	if len(fields) != 4 {
		return UVAxis{}, fmt.Errorf("expected 4 components in %q", s)
	}
	var nums [4]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return UVAxis{}, err
		}
		nums[i] = v
	}
	scale, err := strconv.ParseFloat(strings.TrimSpace(s[end+1:]), 64)
	if err != nil {
		return UVAxis{}, err
	}
	if scale == 0 {
		scale = 0.25
	}
	return UVAxis{
		Dir:    vmath.Vec3{X: nums[0], Y: nums[1], Z: nums[2]},
		Offset: nums[3],
		Scale:  scale,
	}, nil
}

func (s *Solid) node() *keyvalues.KV {
	node := keyvalues.NewBlock("solid")
	node.Add(keyvalues.NewLeaf("id", itoa(s.ID)))
	for _, f := range s.Faces {
		node.Add(f.node())
	}
	return node
}

func (f *Face) node() *keyvalues.KV {
	node := keyvalues.NewBlock("side")
	node.Add(keyvalues.NewLeaf("id", itoa(f.ID)))
	node.Add(keyvalues.NewLeaf("plane", fmt.Sprintf("(%s) (%s) (%s)",
		f.Plane[0], f.Plane[1], f.Plane[2])))
	node.Add(keyvalues.NewLeaf("material", f.Material))
	node.Add(keyvalues.NewLeaf("uaxis", f.UAxis.String()))
	node.Add(keyvalues.NewLeaf("vaxis", f.VAxis.String()))
	node.Add(keyvalues.NewLeaf("rotation", strconv.FormatFloat(f.Rotation, 'g', -1, 64)))
	node.Add(keyvalues.NewLeaf("lightmapscale", itoa(f.Lightmap)))
	return node
}

func (a UVAxis) String() string {
	return fmt.Sprintf("[%s %f] %g", a.Dir, a.Offset, a.Scale)
}
