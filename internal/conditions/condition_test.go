package conditions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mapcraft/internal/grid"
	"mapcraft/internal/keyvalues"
	"mapcraft/internal/vmath"
)

func TestParsePriorityValues(t *testing.T) {
	cases := []struct {
		a, b string
		less bool
	}{
		{"5", "5.5", true},
		{"5.5", "6", true},
		{"-10", "0", true},
		{"0.1", "0.099", false},
		{"100", "100", false},
	}
	for _, c := range cases {
		pa, err := ParsePriority(c.a)
		require.NoError(t, err)
		pb, err := ParsePriority(c.b)
		require.NoError(t, err)
		assert.Equal(t, c.less, pa.Cmp(pb) < 0, "%s < %s", c.a, c.b)
	}

	_, err := ParsePriority("five")
	assert.Error(t, err)
}

func TestParseCondition(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, RegisterBuiltins(reg))

	t.Run("tests and branches in order", func(t *testing.T) {
		block, err := keyvalues.Parse([]byte(`
"priority" "2.5"
"instance" "a.vmf"
"instFlag" "door"
result
{
	"rename" "one"
	"debug" "two"
}
else
{
	"debug" "three"
}
`))
		require.NoError(t, err)
		cond, err := Parse(block, true, ParseOptions{Registry: reg})
		require.NoError(t, err)
		assert.Equal(t, "5/2", cond.Priority.String())
		require.Len(t, cond.Tests, 2)
		assert.Equal(t, "instance", cond.Tests[0].Name)
		assert.Equal(t, "instFlag", cond.Tests[1].Name)
		require.Len(t, cond.Then, 2)
		assert.Equal(t, "rename", cond.Then[0].Name)
		require.Len(t, cond.Else, 1)
	})

	t.Run("nested priority ignored", func(t *testing.T) {
		block, err := keyvalues.Parse([]byte(`
"priority" "7"
result { "debug" "x" }
`))
		require.NoError(t, err)
		cond, err := Parse(block, false, ParseOptions{Registry: reg})
		require.NoError(t, err)
		assert.Equal(t, 0, cond.Priority.Cmp(Priority{}), "nested priority must stay zero")
	})

	t.Run("condition shorthand joins then-list", func(t *testing.T) {
		block, err := keyvalues.Parse([]byte(`
condition
{
	"instFlag" "x"
	result { "debug" "nested" }
}
elsecondition
{
	result { "debug" "other" }
}
`))
		require.NoError(t, err)
		cond, err := Parse(block, true, ParseOptions{Registry: reg})
		require.NoError(t, err)
		require.Len(t, cond.Then, 1)
		assert.Equal(t, "condition", cond.Then[0].Name)
		require.Len(t, cond.Else, 1)
		assert.Equal(t, "condition", cond.Else[0].Name)
	})

	t.Run("unknown test dropped when lax", func(t *testing.T) {
		block, err := keyvalues.Parse([]byte(`
"nosuchtest" "x"
result { "debug" "y" }
`))
		require.NoError(t, err)
		cond, err := Parse(block, true, ParseOptions{Registry: reg})
		require.NoError(t, err)
		assert.Empty(t, cond.Tests)
	})

	t.Run("unknown test fatal when strict", func(t *testing.T) {
		block, err := keyvalues.Parse([]byte(`"nosuchtest" "x"`))
		require.NoError(t, err)
		_, err = Parse(block, true, ParseOptions{Registry: reg, Strict: true})
		require.ErrorIs(t, err, ErrUnknownName)
	})

	t.Run("malformed priority fatal when strict", func(t *testing.T) {
		block, err := keyvalues.Parse([]byte(`"priority" "high"`))
		require.NoError(t, err)
		_, err = Parse(block, true, ParseOptions{Registry: reg, Strict: true})
		require.Error(t, err)
	})

	t.Run("setup failure drops only the action", func(t *testing.T) {
		block, err := keyvalues.Parse([]byte(`
result
{
	addGlobalInst { "name" "missing file key" }
	"debug" "still here"
}
`))
		require.NoError(t, err)
		cond, err := Parse(block, true, ParseOptions{Registry: reg})
		require.NoError(t, err)
		require.Len(t, cond.Then, 1, "invalid addGlobalInst must be dropped")
		assert.Equal(t, "debug", cond.Then[0].Name)
	})
}

func TestRegistryDuplicates(t *testing.T) {
	reg := NewRegistry()
	ok := func(*Context) (bool, error) { return true, nil }
	noop := func(*Context) (Outcome, error) { return OutcomeContinue, nil }

	require.NoError(t, reg.RegisterTest("alpha", ok))
	assert.ErrorIs(t, reg.RegisterTest("ALPHA", ok), ErrDuplicateName,
		"names are case-insensitive")

	require.NoError(t, reg.RegisterResult("beta", noop, "betaAlias"))
	assert.ErrorIs(t, reg.RegisterResult("betaalias", noop), ErrDuplicateName,
		"aliases occupy the namespace too")

	require.NoError(t, reg.RegisterSetup("beta", func(ctx *Context) (*keyvalues.KV, error) {
		return ctx.Config, nil
	}))
	assert.ErrorIs(t, reg.RegisterSetup("beta", nil), ErrDuplicateName)
}

func runSingle(t *testing.T, body string, docInsts int) (*Engine, []string, error) {
	t.Helper()
	eng, reg := newEngine(t)
	var calls []string
	addRecorder(t, eng, reg, "mark", &calls)
	eng.Add(condWithResult(t, reg, PriorityOf(0), body))
	_, err := eng.Run(testDoc(docInsts), grid.New(), &MapInfo{})
	return eng, calls, err
}

func TestBuiltinInstVar(t *testing.T) {
	eng, reg := newEngine(t)
	var calls []string
	addRecorder(t, eng, reg, "mark", &calls)

	eng.Add(condWithResult(t, reg, PriorityOf(0), `
result { "setInstVar" "$count 3" }
`))
	eng.Add(condWithResult(t, reg, PriorityOf(1), `
"instVar" "$count > 2"
result { "mark" "" }
`))
	eng.Add(condWithResult(t, reg, PriorityOf(2), `
"instVar" "$count == 4"
result { "mark" "" }
`))

	_, err := eng.Run(testDoc(1), grid.New(), &MapInfo{})
	require.NoError(t, err)
	assert.Equal(t, []string{"mark:inst_0"}, calls)
}

func TestBuiltinNot(t *testing.T) {
	_, calls, err := runSingle(t, `
not { "instFlag" "door" }
result { "mark" "" }
`, 2)
	require.NoError(t, err)
	assert.Len(t, calls, 2, "no instance file contains door, so not{} passes")

	_, calls, err = runSingle(t, `
not { "instFlag" "item" }
result { "mark" "" }
`, 2)
	require.NoError(t, err)
	assert.Empty(t, calls, "every instance file contains item, so not{} fails")
}

func TestBuiltinStyleVarAndHas(t *testing.T) {
	eng, reg := newEngine(t)
	var calls []string
	addRecorder(t, eng, reg, "mark", &calls)

	eng.Add(condWithResult(t, reg, PriorityOf(0), `
"styleVar" "clean"
"has" "music"
result { "mark" "" }
`))
	info := &MapInfo{
		StyleVars:  map[string]bool{"clean": true},
		VoiceAttrs: map[string]bool{"music": true},
	}
	_, err := eng.Run(testDoc(1), grid.New(), info)
	require.NoError(t, err)
	assert.Len(t, calls, 1)

	// Inverted style var.
	eng2, reg2 := newEngine(t)
	var calls2 []string
	addRecorder(t, eng2, reg2, "mark", &calls2)
	eng2.Add(condWithResult(t, reg2, PriorityOf(0), `
"styleVar" "!retro"
result { "mark" "" }
`))
	_, err = eng2.Run(testDoc(1), grid.New(), info)
	require.NoError(t, err)
	assert.Len(t, calls2, 1, "!retro passes when retro is unset")
}

func TestBuiltinChangeAndOffset(t *testing.T) {
	eng, reg := newEngine(t)
	eng.Add(condWithResult(t, reg, PriorityOf(0), `
result
{
	"changeInstance" "instances/replaced.vmf"
	"offsetInst" "0 0 64"
}
`))
	doc := testDoc(1)
	_, err := eng.Run(doc, grid.New(), &MapInfo{})
	require.NoError(t, err)
	inst := doc.Instances()[0]
	assert.Equal(t, "instances/replaced.vmf", inst.File())
	assert.Equal(t, vmath.Vec3{Z: 64}, inst.Origin(),
		"unrotated instance offsets along world axes")
}

func TestBuiltinSetInstVarSubstitution(t *testing.T) {
	eng, reg := newEngine(t)
	eng.Add(condWithResult(t, reg, PriorityOf(0), `
result
{
	"setInstVar" "$base 4"
	"setInstVar" "$derived timer_$base"
}
`))
	doc := testDoc(1)
	_, err := eng.Run(doc, grid.New(), &MapInfo{})
	require.NoError(t, err)
	v, ok := doc.Instances()[0].FixupGet("derived")
	require.True(t, ok)
	assert.Equal(t, "timer_4", v)
}

func TestBuiltinAddGlobalInstOneShot(t *testing.T) {
	eng, reg := newEngine(t)
	eng.Add(condWithResult(t, reg, PriorityOf(0), `
result
{
	addGlobalInst
	{
		"file" "instances/global_logic.vmf"
		"name" "logic"
		"position" "0 0 512"
	}
}
`))
	doc := testDoc(4)
	_, err := eng.Run(doc, grid.New(), &MapInfo{})
	require.NoError(t, err)

	added := 0
	for _, inst := range doc.Instances() {
		if inst.File() == "instances/global_logic.vmf" {
			added++
		}
	}
	assert.Equal(t, 1, added, "global instance must be added exactly once")
}

func TestNestedConditionReentry(t *testing.T) {
	eng, reg := newEngine(t)
	var calls []string
	addRecorder(t, eng, reg, "inner", &calls)
	addRecorder(t, eng, reg, "outer", &calls)

	eng.Add(condWithResult(t, reg, PriorityOf(0), `
"instFlag" "item"
result
{
	"outer" ""
	condition
	{
		"instFlag" "item_1"
		result { "inner" "" }
	}
}
`))
	_, err := eng.Run(testDoc(2), grid.New(), &MapInfo{})
	require.NoError(t, err)
	assert.Equal(t, []string{"outer:inst_0", "outer:inst_1", "inner:inst_1"}, calls)
}

func TestSwitchResult(t *testing.T) {
	eng, reg := newEngine(t)
	var calls []string
	addRecorder(t, eng, reg, "mark", &calls)

	eng.Add(condWithResult(t, reg, PriorityOf(0), `
result
{
	switch
	{
		"test" "instFlag"
		"item_0" { "mark" "" "setInstVar" "$case zero" }
		"item_1" { "setInstVar" "$case one" }
		"<default>" { "setInstVar" "$case other" }
	}
}
`))
	doc := testDoc(3)
	_, err := eng.Run(doc, grid.New(), &MapInfo{})
	require.NoError(t, err)

	want := []string{"zero", "one", "other"}
	for i, inst := range doc.Instances() {
		v, ok := inst.FixupGet("case")
		require.True(t, ok, "instance %d missing case var", i)
		assert.Equal(t, want[i], v, "instance %d", i)
	}
	assert.Equal(t, []string{"mark:inst_0"}, calls)
}

func TestSwitchUnknownCaseTest(t *testing.T) {
	eng, reg := newEngine(t)
	eng.Add(condWithResult(t, reg, PriorityOf(0), `
result
{
	switch
	{
		"test" "nosuchtest"
		"x" { "debug" "" }
	}
}
`))
	_, err := eng.Run(testDoc(1), grid.New(), &MapInfo{})
	require.Error(t, err, "a switch naming an unknown test fails at first use")
	assert.Contains(t, err.Error(), "nosuchtest")
}

func TestBuiltinMarkLocking(t *testing.T) {
	eng, reg := newEngine(t)
	eng.Add(condWithResult(t, reg, PriorityOf(0), `
result { "markLocking" "" }
`))
	doc := testDoc(1)
	info := &MapInfo{}
	_, err := eng.Run(doc, grid.New(), info)
	require.NoError(t, err)

	inst := doc.Instances()[0]
	got, ok := inst.FixupGet("is_locking")
	require.True(t, ok)
	assert.Equal(t, "1", got)
	assert.True(t, info.HasAttr("locking"),
		"marking raises the map-wide attribute for later rules")
}

func TestRemoveInstIdempotent(t *testing.T) {
	eng, reg := newEngine(t)
	eng.Add(condWithResult(t, reg, PriorityOf(0), `
result { "removeInst" "" "removeInst" "" }
`))
	doc := testDoc(2)
	_, err := eng.Run(doc, grid.New(), &MapInfo{})
	require.NoError(t, err)
	assert.Empty(t, doc.Instances(), "double removal is a no-op, not an error")
}

func TestCompareValues(t *testing.T) {
	cases := []struct {
		op, a, b string
		want     bool
	}{
		{"==", "3", "3.0", true},
		{"!=", "3", "4", true},
		{"<", "2", "10", true}, // numeric, not lexicographic
		{">=", "10", "10", true},
		{"==", "White", "white", true},
		{"<", "apple", "banana", true},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, compareValues(c.op, c.a, c.b),
			"%s %s %s", c.a, c.op, c.b)
	}
}

