package template

import (
	"fmt"

	"mapcraft/internal/vmath"
	"mapcraft/internal/vmf"
)

// Scaling is a texture-alignment lookup built from a one-brush cube
// template: for each axial direction it records the authored UV axes and
// rotation, so callers can align generated surfaces the way the template
// author did without importing any geometry.
type Scaling struct {
	axes map[vmath.Vec3]ScaleFace
}

// ScaleFace is the alignment recorded for one direction.
type ScaleFace struct {
	Material string
	UAxis    vmf.UVAxis
	VAxis    vmf.UVAxis
	Rotation float64
}

// Lookup returns the alignment for a (snapped) normal.
func (s *Scaling) Lookup(normal vmath.Vec3) (ScaleFace, bool) {
	if s == nil {
		return ScaleFace{}, false
	}
	f, ok := s.axes[normal.SnapAxis()]
	return f, ok
}

// Scaling returns the template's scaling lookup, nil when the template
// has none.
func (t *Template) Scaling() *Scaling {
	return t.scaling
}

// parseScaling digests a template_scaling entity. The entity must carry
// exactly one solid shaped as an axis-aligned cube; anything else is
// reported for the caller to warn about and the template degrades to no
// scaling info.
func parseScaling(ent *vmf.Entity) (*Scaling, error) {
	if len(ent.Solids) != 1 {
		return nil, fmt.Errorf("expected 1 solid, found %d", len(ent.Solids))
	}
	solid := ent.Solids[0]
	if len(solid.Faces) != 6 {
		return nil, fmt.Errorf("expected a 6-face cube, found %d faces", len(solid.Faces))
	}

	sc := &Scaling{axes: make(map[vmath.Vec3]ScaleFace)}
	for _, face := range solid.Faces {
		n := face.Normal().SnapAxis()
		if !isAxial(n) {
			return nil, fmt.Errorf("face %d is not axis-aligned", face.ID)
		}
		if _, dup := sc.axes[n]; dup {
			return nil, fmt.Errorf("two faces share normal %s", n)
		}
		sc.axes[n] = ScaleFace{
			Material: face.Material,
			UAxis:    face.UAxis,
			VAxis:    face.VAxis,
			Rotation: face.Rotation,
		}
	}
	return sc, nil
}

func isAxial(n vmath.Vec3) bool {
	for _, axis := range vmath.Axes {
		if n == axis {
			return true
		}
	}
	return false
}
