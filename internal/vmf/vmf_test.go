package vmf

import (
	"strings"
	"testing"

	"mapcraft/internal/vmath"
)

const sampleDoc = `
versioninfo
{
	"editorversion" "400"
}
world
{
	"classname" "worldspawn"
	solid
	{
		"id" "1"
		side
		{
			"id" "10"
			"plane" "(0 0 128) (128 0 128) (128 128 128)"
			"material" "TILE/WHITE_WALL"
			"uaxis" "[1 0 0 0] 0.25"
			"vaxis" "[0 -1 0 0] 0.25"
			"rotation" "0"
			"lightmapscale" "16"
		}
	}
}
entity
{
	"id" "5"
	"classname" "func_instance"
	"targetname" "button_1"
	"file" "instances/button.vmf"
	"origin" "64 64 0"
	"angles" "0 90 0"
	"replace01" "$timer 3"
	"replace02" "$start_enabled 1"
	connections
	{
		"OnPressed" "door_1,Open,,0,-1"
	}
}
entity
{
	"id" "6"
	"classname" "info_overlay"
	"origin" "64 64 128"
	"sides" "10"
	"basisnormal" "0 0 1"
	"basisu" "1 0 0"
	"basisv" "0 1 0"
}
`

func parseSample(t *testing.T) *Document {
	t.Helper()
	doc, err := Parse([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	return doc
}

func TestParseDocument(t *testing.T) {
	doc := parseSample(t)

	t.Run("world solids", func(t *testing.T) {
		if len(doc.World.Solids) != 1 {
			t.Fatalf("expected 1 solid, got %d", len(doc.World.Solids))
		}
		face := doc.World.Solids[0].Faces[0]
		if face.ID != 10 || face.Material != "TILE/WHITE_WALL" {
			t.Fatalf("unexpected face: %+v", face)
		}
		if n := face.Normal(); n != (vmath.Vec3{Z: 1}) {
			t.Fatalf("expected up normal, got %v", n)
		}
	})

	t.Run("instances", func(t *testing.T) {
		insts := doc.Instances()
		if len(insts) != 1 {
			t.Fatalf("expected 1 instance, got %d", len(insts))
		}
		inst := insts[0]
		if inst.File() != "instances/button.vmf" {
			t.Fatalf("unexpected file %q", inst.File())
		}
		if got := inst.Origin(); got != (vmath.Vec3{X: 64, Y: 64}) {
			t.Fatalf("unexpected origin %v", got)
		}
		if v, ok := inst.FixupGet("timer"); !ok || v != "3" {
			t.Fatalf("fixup lookup failed: %q %v", v, ok)
		}
		if v, ok := inst.FixupGet("$START_ENABLED"); !ok || v != "1" {
			t.Fatalf("fixup case-insensitivity failed: %q %v", v, ok)
		}
		if len(inst.Outputs) != 1 || inst.Outputs[0].Event != "OnPressed" {
			t.Fatalf("outputs not parsed: %#v", inst.Outputs)
		}
	})

	t.Run("overlays", func(t *testing.T) {
		ovs := doc.Overlays()
		if len(ovs) != 1 {
			t.Fatalf("expected 1 overlay, got %d", len(ovs))
		}
		if sides := ovs[0].OverlaySides(); len(sides) != 1 || sides[0] != 10 {
			t.Fatalf("unexpected sides %v", sides)
		}
	})

	t.Run("face id counter is past parsed ids", func(t *testing.T) {
		if id := doc.NextFaceID(); id <= 10 {
			t.Fatalf("fresh face id %d collides with parsed ids", id)
		}
	})
}

func TestFixupSubst(t *testing.T) {
	inst := NewEntity("func_instance")
	inst.FixupSet("timer", "3")
	inst.FixupSet("name", "button")

	cases := []struct{ in, want string }{
		{"$timer", "3"},
		{"delay_$timer", "delay_3"},
		{"$name-$timer", "button-3"},
		{"$missing", ""},
		{"plain", "plain"},
	}
	for _, c := range cases {
		if got := inst.FixupSubst(c.in); got != c.want {
			t.Fatalf("FixupSubst(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSolidCopyRemap(t *testing.T) {
	doc := parseSample(t)
	src := doc.World.Solids[0]

	remap := make(map[int]int)
	dup := src.Copy(doc, remap)

	if len(dup.Faces) != len(src.Faces) {
		t.Fatalf("copy lost faces")
	}
	for _, f := range src.Faces {
		nid, ok := remap[f.ID]
		if !ok {
			t.Fatalf("face %d missing from remap", f.ID)
		}
		if nid == f.ID {
			t.Fatalf("copy reused face id %d", f.ID)
		}
	}

	// Two copies from the same source must have disjoint ids.
	remap2 := make(map[int]int)
	dup2 := src.Copy(doc, remap2)
	seen := map[int]bool{}
	for _, f := range dup.Faces {
		seen[f.ID] = true
	}
	for _, f := range dup2.Faces {
		if seen[f.ID] {
			t.Fatalf("second copy reused face id %d", f.ID)
		}
	}

	// Solid ids are document-unique too: a copy never keeps its source's
	// id, and successive copies never collide with each other.
	if dup.ID == src.ID {
		t.Fatalf("copy reused solid id %d", src.ID)
	}
	if dup2.ID == src.ID || dup2.ID == dup.ID {
		t.Fatalf("second copy reused a solid id (%d, %d, %d)", src.ID, dup.ID, dup2.ID)
	}
}

func TestRemapOverlay(t *testing.T) {
	doc := parseSample(t)
	ov := doc.Overlays()[0]

	t.Run("remapped reference survives", func(t *testing.T) {
		if !ov.RemapOverlay(map[int]int{10: 99}) {
			t.Fatalf("overlay should survive remap")
		}
		if sides := ov.OverlaySides(); len(sides) != 1 || sides[0] != 99 {
			t.Fatalf("unexpected sides after remap: %v", sides)
		}
	})

	t.Run("empty remap destroys overlay", func(t *testing.T) {
		if ov.RemapOverlay(map[int]int{}) {
			t.Fatalf("overlay with no surviving faces must report destroyed")
		}
	})
}

func TestRemoveEntityIdempotent(t *testing.T) {
	doc := parseSample(t)
	inst := doc.Instances()[0]
	before := len(doc.Entities)

	doc.RemoveEntity(inst)
	if len(doc.Entities) != before-1 {
		t.Fatalf("entity not removed")
	}
	doc.RemoveEntity(inst) // second delete is a no-op
	if len(doc.Entities) != before-1 {
		t.Fatalf("double delete changed the document")
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	doc := parseSample(t)

	var sb strings.Builder
	if err := doc.Serialize(&sb); err != nil {
		t.Fatalf("serialize failed: %v", err)
	}
	text := sb.String()

	if !strings.Contains(text, `"versioninfo"`) {
		t.Fatalf("preamble block dropped:\n%s", text)
	}

	back, err := Parse([]byte(text))
	if err != nil {
		t.Fatalf("reparse failed: %v\n%s", err, text)
	}
	if len(back.Instances()) != 1 || len(back.Overlays()) != 1 {
		t.Fatalf("entities lost in round trip")
	}
	inst := back.Instances()[0]
	if v, ok := inst.FixupGet("timer"); !ok || v != "3" {
		t.Fatalf("fixups lost in round trip")
	}

	// Serialization is deterministic.
	var sb2 strings.Builder
	if err := back.Serialize(&sb2); err != nil {
		t.Fatalf("second serialize failed: %v", err)
	}
	if sb2.String() != text {
		t.Fatalf("serialization not stable")
	}
}

func TestFaceTranslate(t *testing.T) {
	doc := parseSample(t)
	face := doc.World.Solids[0].Faces[0]
	before := face.Center()

	face.Translate(vmath.Vec3{X: 128})
	after := face.Center()
	if after.Sub(before) != (vmath.Vec3{X: 128}) {
		t.Fatalf("translate moved center by %v", after.Sub(before))
	}
}
