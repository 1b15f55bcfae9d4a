// Package template loads the library of pre-authored brushwork fragments
// and stamps copies of them into a working document: group resolution,
// deep copy with fresh face identifiers, rigid transforms, overlay
// re-pointing and the deterministic retexture pass.
package template

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"mapcraft/internal/vmath"
	"mapcraft/internal/vmf"
)

var ErrUnknownTemplate = errors.New("unknown template")

// Group is one visibility subgroup of a template. The unnamed group is
// always present in every import.
type Group struct {
	World    []*vmf.Solid
	Detail   []*vmf.Solid
	Overlays []*vmf.Entity
}

// Template is one named fragment. Immutable once loaded; every import
// copies.
type Template struct {
	Name    string
	groups  map[string]*Group
	scaling *Scaling
	// pickerOffsets are color-picker marker positions, local space.
	pickerOffsets []PickerMark
}

// PickerMark is one template_colorpicker marker: a local position and the
// direction of the surface it samples.
type PickerMark struct {
	Origin vmath.Vec3
	Normal vmath.Vec3
}

// Pickers lists the template's color-picker marks in declaration order.
func (t *Template) Pickers() []PickerMark {
	return t.pickerOffsets
}

// GroupNames lists the named visibility groups, sorted.
func (t *Template) GroupNames() []string {
	var out []string
	for name := range t.groups {
		if name != "" {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Library is the loaded template collection.
type Library struct {
	templates map[string]*Template
	log       *zap.Logger
}

// Names lists every known template, sorted; used for diagnostics.
func (l *Library) Names() []string {
	out := make([]string, 0, len(l.templates))
	for name := range l.templates {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Get resolves a template. Unknown names are a hard error carrying the
// full sorted list of known names, so authors can spot the typo.
func (l *Library) Get(name string) (*Template, error) {
	t, ok := l.templates[strings.ToUpper(name)]
	if !ok {
		return nil, fmt.Errorf("%w %q (known: %s)",
			ErrUnknownTemplate, name, strings.Join(l.Names(), ", "))
	}
	return t, nil
}

// LoadLibrary reads the auxiliary template document. Files ending in .zst
// are transparently decompressed.
func LoadLibrary(path string, log *zap.Logger) (*Library, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".zst") {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		defer dec.Close()
		r = dec
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	lib, err := ParseLibrary(data, log)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return lib, nil
}

// ParseLibrary builds the library from template document text. Geometry
// is carried by tagged entity kinds, grouped by template identifier and
// visibility group name.
func ParseLibrary(data []byte, log *zap.Logger) (*Library, error) {
	if log == nil {
		log = zap.NewNop()
	}
	doc, err := vmf.Parse(data)
	if err != nil {
		return nil, err
	}

	lib := &Library{templates: make(map[string]*Template), log: log}
	for _, ent := range doc.Entities {
		id := strings.ToUpper(ent.Props.Get("template_id"))
		if id == "" {
			continue
		}
		tmpl := lib.templates[id]
		if tmpl == nil {
			tmpl = &Template{Name: id, groups: make(map[string]*Group)}
			lib.templates[id] = tmpl
		}
		groupName := strings.ToLower(ent.Props.Get("visgroup"))
		group := tmpl.groups[groupName]
		if group == nil {
			group = &Group{}
			tmpl.groups[groupName] = group
		}

		switch strings.ToLower(ent.Classname()) {
		case "template_world":
			group.World = append(group.World, ent.Solids...)
		case "template_detail":
			group.Detail = append(group.Detail, ent.Solids...)
		case "template_overlay":
			group.Overlays = append(group.Overlays, ent)
		case "template_scaling":
			sc, serr := parseScaling(ent)
			if serr != nil {
				// A malformed scaling template degrades, it never aborts.
				log.Warn("malformed scaling template",
					zap.String("template", id),
					zap.Error(serr))
				continue
			}
			tmpl.scaling = sc
		case "template_colorpicker":
			mark := PickerMark{Origin: ent.Origin(), Normal: vmath.Vec3{Z: 1}}
			if n, nerr := vmath.ParseVec3(ent.Props.Get("normal")); nerr == nil {
				mark.Normal = n
			}
			tmpl.pickerOffsets = append(tmpl.pickerOffsets, mark)
		default:
			log.Warn("unrecognized template entity kind",
				zap.String("template", id),
				zap.String("classname", ent.Classname()))
		}
	}
	return lib, nil
}
