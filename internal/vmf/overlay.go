package vmf

import (
	"strconv"
	"strings"

	"mapcraft/internal/vmath"
)

// Overlays are decal entities bound to faces through the "sides" property.
// They are kept as ordinary entities; these helpers give them a typed view.

const overlayClass = "info_overlay"

// IsOverlay reports whether the entity is a face-bound decal.
func (e *Entity) IsOverlay() bool {
	return strings.EqualFold(e.Classname(), overlayClass)
}

// Overlays returns every overlay entity in declaration order.
func (d *Document) Overlays() []*Entity {
	var out []*Entity
	for _, e := range d.Entities {
		if e.IsOverlay() {
			out = append(out, e)
		}
	}
	return out
}

// OverlaySides parses the face identifiers an overlay is bound to.
func (e *Entity) OverlaySides() []int {
	var out []int
	for _, f := range strings.Fields(e.Props.Get("sides")) {
		id, err := strconv.Atoi(f)
		if err == nil {
			out = append(out, id)
		}
	}
	return out
}

// SetOverlaySides rewrites the bound face list.
func (e *Entity) SetOverlaySides(ids []int) {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	e.Props.Set("sides", strings.Join(parts, " "))
}

// RemapOverlay rewrites an overlay's face references through remap.
// References with no mapping are dropped. It reports whether any
// references survive; a false return means the overlay is destroyed and
// the caller must remove it rather than leave it dangling.
func (e *Entity) RemapOverlay(remap map[int]int) bool {
	var kept []int
	for _, id := range e.OverlaySides() {
		if nid, ok := remap[id]; ok {
			kept = append(kept, nid)
		}
	}
	e.SetOverlaySides(kept)
	return len(kept) > 0
}

// PruneOverlays removes every overlay whose face list is empty or refers
// only to faces that no longer exist. Returns the number removed.
func (d *Document) PruneOverlays(validFace func(id int) bool) int {
	removed := 0
	for _, ov := range d.Overlays() {
		alive := false
		for _, id := range ov.OverlaySides() {
			if validFace(id) {
				alive = true
				break
			}
		}
		if !alive {
			d.RemoveEntity(ov)
			removed++
		}
	}
	return removed
}

// TransformOverlay applies a rigid transform to the overlay's projection
// basis and position.
func (e *Entity) TransformOverlay(m vmath.Matrix, offset vmath.Vec3) {
	e.SetOrigin(m.Apply(e.Origin()).Add(offset))
	for _, key := range [3]string{"basisnormal", "basisu", "basisv"} {
		if raw := e.Props.Get(key); raw != "" {
			if v, err := vmath.ParseVec3(raw); err == nil {
				e.Props.Set(key, m.Apply(v).String())
			}
		}
	}
	if raw := e.Props.Get("basisorigin"); raw != "" {
		if v, err := vmath.ParseVec3(raw); err == nil {
			e.Props.Set("basisorigin", m.Apply(v).Add(offset).String())
		}
	}
}
