package conditions

import (
	"fmt"
	"strings"

	"mapcraft/internal/keyvalues"
)

// resCondition is the nested-rule result: its config block is itself a
// condition, parsed once per occurrence and re-entered through the engine
// for each instance the parent matches. Control signals from the nested
// actions propagate to the parent's driver loop.
func resCondition(setup *Context) (ResultFunc, error) {
	nested, err := Parse(setup.Config, false, ParseOptions{
		Registry: setup.Engine.Registry(),
		Log:      setup.Log,
		Strict:   setup.Engine.Strict,
		Source:   "nested condition",
	})
	if err != nil {
		return nil, err
	}
	return func(ctx *Context) (Outcome, error) {
		return ctx.Engine.Execute(nested, ctx)
	}, nil
}

// switchCase is one branch of a switch result.
type switchCase struct {
	test    *Test // nil for the <default> branch
	actions []*Action
}

// resSwitch is shorthand for a column of mutually exclusive conditions.
// Config:
//
//	switch
//	{
//	    "test"   "instVar"       // test applied to each case key
//	    "method" "first"         // first (default) or all
//	    "$color white" { ...results... }
//	    "$color black" { ...results... }
//	    "<default>"    { ...results... }
//	}
func resSwitch(setup *Context) (ResultFunc, error) {
	reg := setup.Engine.Registry()
	testName := "instance"
	method := "first"
	var cases []switchCase
	var defCase *switchCase

	for _, child := range setup.Config.Children {
		if !child.IsBlock() {
			switch strings.ToLower(child.Key) {
			case "test", "flag":
				testName = child.Value
			case "method":
				method = strings.ToLower(child.Value)
			}
			continue
		}
		acts, err := parseActions(child, ParseOptions{
			Registry: reg,
			Log:      setup.Log,
			Strict:   setup.Engine.Strict,
			Source:   "switch case",
		}, setup.Log)
		if err != nil {
			return nil, err
		}
		if strings.EqualFold(child.Key, "<default>") {
			defCase = &switchCase{actions: acts}
			continue
		}
		entry, ok := reg.test(testName)
		if !ok {
			return nil, fmt.Errorf("switch: test %q: %w", testName, ErrUnknownName)
		}
		cases = append(cases, switchCase{
			test:    &Test{Name: testName, Config: keyvalues.NewLeaf(testName, child.Key), entry: entry},
			actions: acts,
		})
	}

	return func(ctx *Context) (Outcome, error) {
		matched := false
		for i := range cases {
			ok, err := cases[i].test.eval(ctx)
			if err != nil && !isUnsat(err) {
				return OutcomeContinue, fmt.Errorf("switch case %d: %w", i, err)
			}
			if !ok {
				continue
			}
			matched = true
			outcome, err := ctx.Engine.runActions(&cases[i].actions, ctx)
			if err != nil || outcome == OutcomeNextInstance || outcome == OutcomeEndCondition {
				return outcome, err
			}
			if method == "first" {
				return OutcomeContinue, nil
			}
		}
		if !matched && defCase != nil {
			return ctx.Engine.runActions(&defCase.actions, ctx)
		}
		return OutcomeContinue, nil
	}, nil
}
