package vmf

import (
	"fmt"
	"strconv"
	"strings"

	"mapcraft/internal/keyvalues"
	"mapcraft/internal/vmath"
)

// Prop is one entity key/value. Entities keep their properties ordered so
// serialization is stable run to run.
type Prop struct {
	Key, Value string
}

// Props is an ordered, case-insensitive property list.
type Props []Prop

func (p Props) Get(key string) string {
	for _, kv := range p {
		if strings.EqualFold(kv.Key, key) {
			return kv.Value
		}
	}
	return ""
}

func (p *Props) Set(key, value string) {
	for i, kv := range *p {
		if strings.EqualFold(kv.Key, key) {
			(*p)[i].Value = value
			return
		}
	}
	*p = append(*p, Prop{key, value})
}

func (p *Props) Delete(key string) {
	for i, kv := range *p {
		if strings.EqualFold(kv.Key, key) {
			*p = append((*p)[:i], (*p)[i+1:]...)
			return
		}
	}
}

// Output is one event→action binding from an entity's connections block.
type Output struct {
	Event string
	// Value is "target,input,param,delay,times" in document form.
	Value string
}

// FixupVar is one per-instance variable. Names keep their leading dollar.
type FixupVar struct {
	Name, Value string
}

// Entity is any point, brush or instance entity in the document.
type Entity struct {
	ID      int
	Props   Props
	Fixup   []FixupVar
	Outputs []Output
	Solids  []*Solid

	// extra keeps child blocks the rewriter does not model (editor, hidden).
	extra []*keyvalues.KV
}

// NewEntity builds an empty entity of the given classname.
func NewEntity(classname string) *Entity {
	e := &Entity{}
	e.Props.Set("classname", classname)
	return e
}

func (e *Entity) Classname() string {
	return e.Props.Get("classname")
}

// IsInstance reports whether the entity is a rule subject.
func (e *Entity) IsInstance() bool {
	return strings.EqualFold(e.Classname(), "func_instance")
}

// File returns the instance's placeholder filename, empty for non-instances.
func (e *Entity) File() string {
	return e.Props.Get("file")
}

func (e *Entity) Targetname() string {
	return e.Props.Get("targetname")
}

// Origin parses the entity origin, zero if absent or malformed.
func (e *Entity) Origin() vmath.Vec3 {
	v, err := vmath.ParseVec3(e.Props.Get("origin"))
	if err != nil {
		return vmath.Vec3{}
	}
	return v
}

func (e *Entity) SetOrigin(v vmath.Vec3) {
	e.Props.Set("origin", v.String())
}

// Angles parses the entity orientation, zero if absent or malformed.
func (e *Entity) Angles() vmath.Angles {
	a, err := vmath.ParseAngles(e.Props.Get("angles"))
	if err != nil {
		return vmath.Angles{}
	}
	return a
}

func (e *Entity) SetAngles(a vmath.Angles) {
	e.Props.Set("angles", a.String())
}

// FixupGet resolves a $variable; the leading dollar is optional and names
// are case-insensitive.
func (e *Entity) FixupGet(name string) (string, bool) {
	name = fixupName(name)
	for _, fv := range e.Fixup {
		if strings.EqualFold(fv.Name, name) {
			return fv.Value, true
		}
	}
	return "", false
}

// FixupSet writes a $variable, appending in declaration order when new.
func (e *Entity) FixupSet(name, value string) {
	name = fixupName(name)
	for i, fv := range e.Fixup {
		if strings.EqualFold(fv.Name, name) {
			e.Fixup[i].Value = value
			return
		}
	}
	e.Fixup = append(e.Fixup, FixupVar{name, value})
}

// FixupSubst expands $variables inside s against the instance's table.
// Unset variables expand to the empty string. A literal non-variable
// string passes through untouched.
func (e *Entity) FixupSubst(s string) string {
	if !strings.Contains(s, "$") {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); {
		if s[i] != '$' {
			sb.WriteByte(s[i])
			i++
			continue
		}
		j := i + 1
		for j < len(s) && isFixupRune(s[j]) {
			j++
		}
		if val, ok := e.FixupGet(s[i:j]); ok {
			sb.WriteString(val)
		}
		i = j
	}
	return sb.String()
}

func isFixupRune(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func fixupName(name string) string {
	if !strings.HasPrefix(name, "$") {
		return "$" + name
	}
	return name
}

// AddOutput appends an output binding.
func (e *Entity) AddOutput(event, target, input, param string, delay float64, times int) {
	e.Outputs = append(e.Outputs, Output{
		Event: event,
		Value: fmt.Sprintf("%s,%s,%s,%s,%d", target, input, param, trimFloat(delay), times),
	})
}

func trimFloat(f float64) string {
	s := fmt.Sprintf("%g", f)
	return s
}

func parseEntity(doc *Document, node *keyvalues.KV) (*Entity, error) {
	ent := &Entity{}
	for _, child := range node.Children {
		switch {
		case !child.IsBlock():
			if child.Key == "id" {
				ent.ID = atoiDefault(child.Value, 0)
				doc.noteEntID(ent.ID)
				continue
			}
			if isFixupKey(child.Key) {
				name, value, ok := strings.Cut(child.Value, " ")
				if ok {
					ent.Fixup = append(ent.Fixup, FixupVar{fixupName(name), value})
					continue
				}
			}
			ent.Props = append(ent.Props, Prop{child.Key, child.Value})
		case child.Key == "solid":
			solid, err := parseSolid(doc, child)
			if err != nil {
				return nil, err
			}
			ent.Solids = append(ent.Solids, solid)
		case child.Key == "connections":
			for _, out := range child.Children {
				ent.Outputs = append(ent.Outputs, Output{Event: out.Key, Value: out.Value})
			}
		default:
			ent.extra = append(ent.extra, child)
		}
	}
	if ent.ID == 0 {
		ent.ID = doc.NextEntityID()
	}
	return ent, nil
}

// isFixupKey matches the replaceNN properties instances carry.
func isFixupKey(key string) bool {
	if len(key) != len("replace00") || !strings.EqualFold(key[:7], "replace") {
		return false
	}
	return key[7] >= '0' && key[7] <= '9' && key[8] >= '0' && key[8] <= '9'
}

func (e *Entity) node() *keyvalues.KV {
	node := keyvalues.NewBlock("entity")
	node.Add(keyvalues.NewLeaf("id", itoa(e.ID)))
	for _, p := range e.Props {
		node.Add(keyvalues.NewLeaf(p.Key, p.Value))
	}
	for i, fv := range e.Fixup {
		key := fmt.Sprintf("replace%02d", i+1)
		node.Add(keyvalues.NewLeaf(key, fv.Name+" "+fv.Value))
	}
	if len(e.Outputs) > 0 {
		conn := keyvalues.NewBlock("connections")
		for _, out := range e.Outputs {
			conn.Add(keyvalues.NewLeaf(out.Event, out.Value))
		}
		node.Add(conn)
	}
	for _, s := range e.Solids {
		node.Add(s.node())
	}
	for _, child := range e.extra {
		node.Add(child)
	}
	return node
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}
