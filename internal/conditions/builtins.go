package conditions

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"mapcraft/internal/keyvalues"
	"mapcraft/internal/vmath"
	"mapcraft/internal/vmf"
)

// RegisterBuiltins installs the core test and result vocabulary every rule
// pack can rely on. Called once while populating a registry at startup.
func RegisterBuiltins(reg *Registry) error {
	regs := []func() error{
		func() error { return reg.RegisterTestFactory("instance", testInstance, "instFile") },
		func() error { return reg.RegisterTest("instFlag", testInstFlag) },
		func() error { return reg.RegisterTestFactory("instVar", testInstVar) },
		func() error { return reg.RegisterTest("styleVar", testStyleVar) },
		func() error { return reg.RegisterTest("has", testHasAttr, "hasAttr") },
		func() error { return reg.RegisterTestFactory("not", testNot) },

		func() error { return reg.RegisterResult("setInstVar", resSetInstVar) },
		func() error { return reg.RegisterResult("changeInstance", resChangeInstance) },
		func() error { return reg.RegisterResult("rename", resRename) },
		func() error { return reg.RegisterResult("offsetInst", resOffsetInst) },
		func() error { return reg.RegisterResult("debug", resDebug) },
		func() error { return reg.RegisterResult("removeInst", resRemoveInst, "remove") },
		func() error { return reg.RegisterResult("markLocking", resMarkLocking) },
		func() error { return reg.RegisterResult("endCondition", resEndCondition) },
		func() error { return reg.RegisterResult("nextInstance", resNextInstance) },
		func() error { return reg.RegisterResultFactory("addGlobalInst", resAddGlobalInst) },
		func() error { return reg.RegisterSetup("addGlobalInst", setupAddGlobalInst) },
		func() error { return reg.RegisterResultFactory("condition", resCondition) },
		func() error { return reg.RegisterResultFactory("switch", resSwitch) },
	}
	for _, fn := range regs {
		if err := fn(); err != nil {
			return err
		}
	}
	return nil
}

// testInstance matches the instance's placeholder filename. Two-stage: the
// wanted names are normalized once per rule config.
func testInstance(setup *Context) (TestFunc, error) {
	var wanted []string
	for _, name := range strings.Split(setup.Config.Value, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" {
			wanted = append(wanted, name)
		}
	}
	return func(ctx *Context) (bool, error) {
		file := strings.ToLower(ctx.Inst.File())
		for _, w := range wanted {
			if file == w || strings.HasSuffix(file, "/"+w) {
				return true, nil
			}
		}
		return false, nil
	}, nil
}

// testInstFlag passes when the filename contains the flag as a substring.
func testInstFlag(ctx *Context) (bool, error) {
	flag := strings.ToLower(ctx.Config.Value)
	return strings.Contains(strings.ToLower(ctx.Inst.File()), flag), nil
}

// testInstVar compares a $fixup variable: "$var op value", with op one of
// == != < <= > >=. A two-field form "$var value" means equality.
func testInstVar(setup *Context) (TestFunc, error) {
	fields := strings.Fields(setup.Config.Value)
	var name, op, want string
	switch len(fields) {
	case 2:
		name, op, want = fields[0], "==", fields[1]
	case 3:
		name, op, want = fields[0], fields[1], fields[2]
	default:
		return nil, fmt.Errorf("instVar wants \"$var [op] value\", got %q", setup.Config.Value)
	}
	switch op {
	case "==", "!=", "<", "<=", ">", ">=":
	case "=":
		op = "=="
	default:
		return nil, fmt.Errorf("instVar: unknown operator %q", op)
	}
	return func(ctx *Context) (bool, error) {
		got, _ := ctx.Inst.FixupGet(name)
		return compareValues(op, got, ctx.Resolve(want)), nil
	}, nil
}

// compareValues compares numerically when both sides parse as numbers,
// as case-folded strings otherwise.
func compareValues(op, a, b string) bool {
	fa, errA := strconv.ParseFloat(strings.TrimSpace(a), 64)
	fb, errB := strconv.ParseFloat(strings.TrimSpace(b), 64)
	if errA == nil && errB == nil {
		switch op {
		case "==":
			return fa == fb
		case "!=":
			return fa != fb
		case "<":
			return fa < fb
		case "<=":
			return fa <= fb
		case ">":
			return fa > fb
		case ">=":
			return fa >= fb
		}
	}
	cmp := strings.Compare(strings.ToLower(a), strings.ToLower(b))
	switch op {
	case "==":
		return cmp == 0
	case "!=":
		return cmp != 0
	case "<":
		return cmp < 0
	case "<=":
		return cmp <= 0
	case ">":
		return cmp > 0
	case ">=":
		return cmp >= 0
	}
	return false
}

// testStyleVar checks a style variable; a "!" prefix inverts.
func testStyleVar(ctx *Context) (bool, error) {
	name := strings.TrimSpace(ctx.Config.Value)
	invert := strings.HasPrefix(name, "!")
	name = strings.TrimPrefix(name, "!")
	return ctx.Info.StyleVar(name) != invert, nil
}

// testHasAttr checks a document-wide voice attribute.
func testHasAttr(ctx *Context) (bool, error) {
	return ctx.Info.HasAttr(strings.TrimSpace(ctx.Config.Value)), nil
}

// testNot inverts a block of child tests: it passes only when every child
// fails. Unsatisfiable children count as failing.
func testNot(setup *Context) (TestFunc, error) {
	var tests []*Test
	for _, child := range setup.Config.Children {
		entry, ok := setup.Engine.Registry().test(child.Key)
		if !ok {
			return nil, fmt.Errorf("not: %q: %w", child.Key, ErrUnknownName)
		}
		tests = append(tests, &Test{Name: child.Key, Config: child, entry: entry})
	}
	return func(ctx *Context) (bool, error) {
		for _, tst := range tests {
			ok, err := tst.eval(ctx)
			if err != nil && !isUnsat(err) {
				return false, err
			}
			if ok {
				return false, nil
			}
		}
		return true, nil
	}, nil
}

func resSetInstVar(ctx *Context) (Outcome, error) {
	name, value, ok := strings.Cut(ctx.Config.Value, " ")
	if !ok {
		return OutcomeContinue, fmt.Errorf("setInstVar wants \"$var value\", got %q", ctx.Config.Value)
	}
	ctx.Inst.FixupSet(name, ctx.Resolve(strings.TrimSpace(value)))
	return OutcomeContinue, nil
}

func resChangeInstance(ctx *Context) (Outcome, error) {
	ctx.Inst.Props.Set("file", ctx.Resolve(ctx.Config.Value))
	return OutcomeContinue, nil
}

func resRename(ctx *Context) (Outcome, error) {
	ctx.Inst.Props.Set("targetname", ctx.Resolve(ctx.Config.Value))
	return OutcomeContinue, nil
}

// resOffsetInst moves the instance by a local-space offset, rotated into
// world space by the instance's own orientation.
func resOffsetInst(ctx *Context) (Outcome, error) {
	offset, err := vmath.ParseVec3(ctx.Resolve(ctx.Config.Value))
	if err != nil {
		return OutcomeContinue, fmt.Errorf("offsetInst: %w", err)
	}
	world := ctx.Inst.Angles().Matrix().Apply(offset)
	ctx.Inst.SetOrigin(ctx.Inst.Origin().Add(world))
	return OutcomeContinue, nil
}

func resDebug(ctx *Context) (Outcome, error) {
	ctx.Log.Info("debug result",
		zap.String("message", ctx.Resolve(ctx.Config.Value)),
		zap.String("instance", ctx.Inst.Targetname()),
		zap.String("file", ctx.Inst.File()))
	return OutcomeContinue, nil
}

// resRemoveInst deletes the instance from the document. Entity removal is
// idempotent, so a later delete of the same instance is a no-op.
func resRemoveInst(ctx *Context) (Outcome, error) {
	for _, solid := range ctx.Inst.Solids {
		ctx.Index.EvictSolid(solid.ID)
	}
	ctx.Doc.RemoveEntity(ctx.Inst)
	return OutcomeContinue, nil
}

// resMarkLocking flags the instance as a locking device: later rules can
// read the fixup and voice lines can key off the map-wide attribute. The
// config value overrides the attribute name.
func resMarkLocking(ctx *Context) (Outcome, error) {
	name := strings.TrimSpace(ctx.Config.Value)
	if name == "" {
		name = "locking"
	}
	ctx.Inst.FixupSet("is_"+strings.ToLower(name), "1")
	if ctx.Info.VoiceAttrs == nil {
		ctx.Info.VoiceAttrs = make(map[string]bool)
	}
	ctx.Info.VoiceAttrs[strings.ToLower(name)] = true
	return OutcomeContinue, nil
}

func resEndCondition(*Context) (Outcome, error) {
	return OutcomeEndCondition, nil
}

func resNextInstance(*Context) (Outcome, error) {
	return OutcomeNextInstance, nil
}

// setupAddGlobalInst validates the config once at parse time; an
// incomplete block drops the action.
func setupAddGlobalInst(ctx *Context) (*keyvalues.KV, error) {
	if ctx.Config.Str("file", "") == "" {
		return nil, fmt.Errorf("addGlobalInst requires a file")
	}
	return ctx.Config, nil
}

// resAddGlobalInst places an instance into the document the first time a
// matching instance is seen. Unless allow_multiple is set it signals
// exhaustion immediately, which is what makes it a one-shot.
func resAddGlobalInst(setup *Context) (ResultFunc, error) {
	file := setup.Config.Str("file", "")
	name := setup.Config.Str("name", "")
	position := setup.Config.Str("position", "0 0 0")
	allowMultiple := setup.Config.Bool("allow_multiple", false)

	return func(ctx *Context) (Outcome, error) {
		ent := vmf.NewEntity("func_instance")
		ent.Props.Set("file", file)
		if name != "" {
			ent.Props.Set("targetname", name)
		}
		origin, err := vmath.ParseVec3(position)
		if err != nil {
			return OutcomeContinue, fmt.Errorf("addGlobalInst position: %w", err)
		}
		ent.SetOrigin(origin)
		ctx.Doc.AddEntity(ent)
		if allowMultiple {
			return OutcomeContinue, nil
		}
		return OutcomeExhausted, nil
	}, nil
}

func isUnsat(err error) bool {
	return errors.Is(err, ErrUnsatisfiable)
}
