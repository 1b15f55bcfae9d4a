package conditions

import (
	"fmt"
	"math/big"
	"strings"

	"go.uber.org/zap"

	"mapcraft/internal/keyvalues"
)

// Priority is an exact decimal ordering value. Rationals let third-party
// packs insert between any two existing priorities (5 < 5.5 < 6) without
// renumbering, and with none of float's tie-break hazards.
type Priority struct {
	rat *big.Rat
}

// ParsePriority reads a decimal string like "-50", "5.5" or "100.25".
func ParsePriority(s string) (Priority, error) {
	rat, ok := new(big.Rat).SetString(strings.TrimSpace(s))
	if !ok {
		return Priority{}, fmt.Errorf("malformed priority %q", s)
	}
	return Priority{rat: rat}, nil
}

// PriorityOf wraps an integer priority.
func PriorityOf(n int64) Priority {
	return Priority{rat: big.NewRat(n, 1)}
}

// Cmp orders two priorities; zero-value priorities sort as 0.
func (p Priority) Cmp(o Priority) int {
	return p.value().Cmp(o.value())
}

func (p Priority) value() *big.Rat {
	if p.rat == nil {
		return new(big.Rat)
	}
	return p.rat
}

func (p Priority) String() string {
	return p.value().RatString()
}

// Test is one parsed predicate occurrence within a condition. The resolved
// function is cached here so a factory's config parsing runs once per
// occurrence, not once per instance.
type Test struct {
	Name   string
	Config *keyvalues.KV

	entry    testEntry
	resolved TestFunc
}

func (t *Test) eval(ctx *Context) (bool, error) {
	ctx.Config = t.Config
	if t.resolved != nil {
		return t.resolved(ctx)
	}
	if t.entry.direct != nil {
		return t.entry.direct(ctx)
	}
	setupCtx := *ctx
	setupCtx.Inst = nil
	fn, err := t.entry.factory(&setupCtx)
	if err != nil {
		return false, fmt.Errorf("test %q setup: %w", t.Name, err)
	}
	t.resolved = fn
	return fn(ctx)
}

// Action is one parsed result occurrence.
type Action struct {
	Name   string
	Config *keyvalues.KV

	entry    resultEntry
	resolved ResultFunc
}

func (a *Action) run(ctx *Context) (Outcome, error) {
	ctx.Config = a.Config
	if a.resolved != nil {
		return a.resolved(ctx)
	}
	if a.entry.direct != nil {
		return a.entry.direct(ctx)
	}
	setupCtx := *ctx
	setupCtx.Inst = nil
	fn, err := a.entry.factory(&setupCtx)
	if err != nil {
		return OutcomeContinue, fmt.Errorf("result %q setup: %w", a.Name, err)
	}
	a.resolved = fn
	return fn(ctx)
}

// Condition is one parsed rule: ordered tests, then/else action lists and
// a priority. Execution never mutates a condition except to shrink action
// lists when an action reports exhaustion.
type Condition struct {
	Tests    []*Test
	Then     []*Action
	Else     []*Action
	Priority Priority
	// Source is a provenance string for diagnostics, typically the rule
	// pack file the block came from.
	Source string

	meta     bool
	consumed bool // skip for all remaining instances
}

// Empty reports whether the condition can no longer have any effect.
func (c *Condition) Empty() bool {
	return len(c.Then) == 0 && len(c.Else) == 0
}

// ParseOptions carry the registry and error-policy for condition parsing.
type ParseOptions struct {
	Registry *Registry
	Log      *zap.Logger
	// Strict turns configuration errors (unknown names, malformed
	// priorities) from warn-and-drop into hard failures.
	Strict bool
	// Source is recorded on the condition for diagnostics.
	Source string
}

// Parse builds a Condition from one rule block. Reserved child keys are
// priority (top level only), result/else (action lists) and the nested-rule
// shorthands condition/switch/elsecondition/elseswitch; every other child
// is a test.
func Parse(block *keyvalues.KV, toplevel bool, opts ParseOptions) (*Condition, error) {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	cond := &Condition{Source: opts.Source}

	for _, child := range block.Children {
		switch strings.ToLower(child.Key) {
		case "priority":
			if !toplevel {
				// Nested order is fixed by the nesting itself.
				log.Warn("priority inside a nested condition is ignored",
					zap.String("source", opts.Source))
				continue
			}
			pri, err := ParsePriority(child.Value)
			if err != nil {
				if opts.Strict {
					return nil, fmt.Errorf("%s: %w", opts.Source, err)
				}
				log.Warn("malformed priority, using 0",
					zap.String("source", opts.Source),
					zap.String("value", child.Value))
				continue
			}
			cond.Priority = pri
		case "result":
			acts, err := parseActions(child, opts, log)
			if err != nil {
				return nil, err
			}
			cond.Then = append(cond.Then, acts...)
		case "else":
			acts, err := parseActions(child, opts, log)
			if err != nil {
				return nil, err
			}
			cond.Else = append(cond.Else, acts...)
		case "condition", "switch":
			act, err := makeAction(strings.ToLower(child.Key), child, opts, log)
			if err != nil {
				return nil, err
			}
			if act != nil {
				cond.Then = append(cond.Then, act)
			}
		case "elsecondition", "elseswitch":
			name := strings.TrimPrefix(strings.ToLower(child.Key), "else")
			act, err := makeAction(name, child, opts, log)
			if err != nil {
				return nil, err
			}
			if act != nil {
				cond.Else = append(cond.Else, act)
			}
		default:
			entry, ok := opts.Registry.test(child.Key)
			if !ok {
				if opts.Strict {
					return nil, fmt.Errorf("%s: test %q: %w", opts.Source, child.Key, ErrUnknownName)
				}
				log.Warn("unknown test dropped",
					zap.String("source", opts.Source),
					zap.String("test", child.Key))
				continue
			}
			cond.Tests = append(cond.Tests, &Test{
				Name:   child.Key,
				Config: child,
				entry:  entry,
			})
		}
	}
	return cond, nil
}

// parseActions turns the children of a result/else block into actions.
func parseActions(block *keyvalues.KV, opts ParseOptions, log *zap.Logger) ([]*Action, error) {
	var out []*Action
	for _, child := range block.Children {
		act, err := makeAction(child.Key, child, opts, log)
		if err != nil {
			return nil, err
		}
		if act != nil {
			out = append(out, act)
		}
	}
	return out, nil
}

// makeAction resolves one action, running its setup transform if one is
// registered. A nil, nil return means the action was dropped.
func makeAction(name string, config *keyvalues.KV, opts ParseOptions, log *zap.Logger) (*Action, error) {
	entry, ok := opts.Registry.result(name)
	if !ok {
		if opts.Strict {
			return nil, fmt.Errorf("%s: result %q: %w", opts.Source, name, ErrUnknownName)
		}
		log.Warn("unknown result dropped",
			zap.String("source", opts.Source),
			zap.String("result", name))
		return nil, nil
	}
	if setup, has := opts.Registry.setup(name); has {
		ctx := &Context{Config: config, Log: log}
		transformed, err := setup(ctx)
		if err != nil {
			// Setup failure removes the action, never the condition.
			log.Warn("result setup failed, action dropped",
				zap.String("source", opts.Source),
				zap.String("result", name),
				zap.Error(err))
			return nil, nil
		}
		config = transformed
	}
	return &Action{Name: name, Config: config, entry: entry}, nil
}
