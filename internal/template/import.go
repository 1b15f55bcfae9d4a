package template

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"strings"

	"mapcraft/internal/vmath"
	"mapcraft/internal/vmf"
)

// BrushKind forces every imported solid into one ownership kind.
type BrushKind int

const (
	// KindAuthored keeps world solids in the world and detail solids in
	// a func_detail entity.
	KindAuthored BrushKind = iota
	KindWorld
	KindDetail
)

// Selector chooses which optional visibility groups join an import. It
// receives the sorted available group names and a deterministic random
// source seeded from the placement cell, so identical placements choose
// identically.
type Selector func(groups []string, rng *rand.Rand) []string

// SelectAll includes every group.
func SelectAll(groups []string, _ *rand.Rand) []string { return groups }

// SelectNone includes only what the caller named explicitly.
func SelectNone([]string, *rand.Rand) []string { return nil }

// SelectOne picks a single group at random.
func SelectOne(groups []string, rng *rand.Rand) []string {
	if len(groups) == 0 {
		return nil
	}
	return []string{groups[rng.Intn(len(groups))]}
}

// SelectProb includes each group independently with probability p.
func SelectProb(p float64) Selector {
	return func(groups []string, rng *rand.Rand) []string {
		var out []string
		for _, g := range groups {
			if rng.Float64() < p {
				out = append(out, g)
			}
		}
		return out
	}
}

// ImportOptions configure one import.
type ImportOptions struct {
	// Groups are visibility groups to include besides the always-present
	// unnamed group.
	Groups []string
	// Select optionally chooses further groups; nil means SelectNone.
	Select Selector
	// Force merges all copied solids into one brush kind.
	Force BrushKind
}

// Imported is the result of stamping a template into a document: fresh
// geometry, not yet textured.
type Imported struct {
	Template *Template
	World    []*vmf.Solid
	// Detail is the func_detail entity holding detail solids, nil when
	// the template produced none.
	Detail   *vmf.Entity
	Overlays []*vmf.Entity
	// IDRemap maps every source face identifier to its fresh copy.
	IDRemap map[int]int

	Origin vmath.Vec3
	Orient vmath.Matrix
}

// ParseRef splits a "NAME:group1,group2" template reference.
func ParseRef(ref string) (name string, groups []string) {
	name, rest, ok := strings.Cut(ref, ":")
	if !ok {
		return strings.TrimSpace(name), nil
	}
	for _, g := range strings.Split(rest, ",") {
		if g = strings.TrimSpace(g); g != "" {
			groups = append(groups, strings.ToLower(g))
		}
	}
	return strings.TrimSpace(name), groups
}

// Import copies the named template into doc at the given placement.
// Copied faces receive fresh identifiers; copied overlays are re-pointed
// through the remap and overlays whose faces were all excluded are
// dropped rather than left dangling. Textures are not assigned here;
// callers follow with Retexture once geometry decisions are final.
func (l *Library) Import(doc *vmf.Document, ref string, origin vmath.Vec3, angles vmath.Angles, opts ImportOptions) (*Imported, error) {
	name, explicit := ParseRef(ref)
	tmpl, err := l.Get(name)
	if err != nil {
		return nil, err
	}

	groups, err := tmpl.resolveGroups(explicit, opts, origin)
	if err != nil {
		return nil, err
	}

	orient := angles.Matrix()
	imp := &Imported{
		Template: tmpl,
		IDRemap:  make(map[int]int),
		Origin:   origin,
		Orient:   orient,
	}

	var world, detail []*vmf.Solid
	for _, g := range groups {
		for _, s := range g.World {
			world = append(world, s.Copy(doc, imp.IDRemap))
		}
		for _, s := range g.Detail {
			detail = append(detail, s.Copy(doc, imp.IDRemap))
		}
	}
	switch opts.Force {
	case KindWorld:
		world = append(world, detail...)
		detail = nil
	case KindDetail:
		detail = append(detail, world...)
		world = nil
	}

	transform := func(solids []*vmf.Solid) {
		for _, s := range solids {
			s.Rotate(orient, vmath.Vec3{})
			s.Translate(origin)
		}
	}
	transform(world)
	transform(detail)

	doc.World.Solids = append(doc.World.Solids, world...)
	imp.World = world
	if len(detail) > 0 {
		det := vmf.NewEntity("func_detail")
		det.Solids = detail
		doc.AddEntity(det)
		imp.Detail = det
	}

	for _, g := range groups {
		for _, src := range g.Overlays {
			over := copyOverlay(doc, src)
			if !over.RemapOverlay(imp.IDRemap) {
				// Every referenced face was outside the resolved groups.
				continue
			}
			over.TransformOverlay(orient, origin)
			doc.AddEntity(over)
			imp.Overlays = append(imp.Overlays, over)
		}
	}
	return imp, nil
}

// resolveGroups collects the unnamed group, the explicitly requested
// groups and whatever the selector adds.
func (t *Template) resolveGroups(explicit []string, opts ImportOptions, origin vmath.Vec3) ([]*Group, error) {
	chosen := map[string]bool{"": true}
	for _, g := range explicit {
		if _, ok := t.groups[g]; !ok {
			return nil, fmt.Errorf("template %s has no group %q (has: %s)",
				t.Name, g, strings.Join(t.GroupNames(), ", "))
		}
		chosen[g] = true
	}
	if opts.Select != nil {
		rng := rand.New(rand.NewSource(int64(cellSeed(vmath.CellAt(origin), vmath.Vec3{}))))
		for _, g := range opts.Select(t.GroupNames(), rng) {
			chosen[strings.ToLower(g)] = true
		}
	}
	for _, g := range opts.Groups {
		g = strings.ToLower(g)
		if _, ok := t.groups[g]; !ok {
			return nil, fmt.Errorf("template %s has no group %q (has: %s)",
				t.Name, g, strings.Join(t.GroupNames(), ", "))
		}
		chosen[g] = true
	}

	var out []*Group
	// Group order follows sorted names with the unnamed group first, so
	// copies always happen in the same order.
	if g, ok := t.groups[""]; ok {
		out = append(out, g)
	}
	for _, name := range t.GroupNames() {
		if chosen[name] {
			out = append(out, t.groups[name])
		}
	}
	return out, nil
}

// copyOverlay duplicates an overlay entity with a fresh identifier.
func copyOverlay(doc *vmf.Document, src *vmf.Entity) *vmf.Entity {
	dup := vmf.NewEntity("info_overlay")
	for _, p := range src.Props {
		if strings.EqualFold(p.Key, "classname") || strings.EqualFold(p.Key, "template_id") ||
			strings.EqualFold(p.Key, "visgroup") {
			continue
		}
		dup.Props.Set(p.Key, p.Value)
	}
	dup.ID = doc.NextEntityID()
	return dup
}

// cellSeed derives the deterministic random seed for one grid cell and
// normal. Every texture decision keyed by the same (cell, normal) pair
// sees the same sequence, whichever template asked first.
func cellSeed(cell, normal vmath.Vec3) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%d %d %d|%d %d %d",
		int64(cell.X), int64(cell.Y), int64(cell.Z),
		int64(normal.X*8), int64(normal.Y*8), int64(normal.Z*8))
	return h.Sum64()
}
