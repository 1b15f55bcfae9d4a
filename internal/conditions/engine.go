package conditions

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"mapcraft/internal/grid"
	"mapcraft/internal/vmf"
)

// RunReport summarizes one engine run.
type RunReport struct {
	// Total is the number of conditions considered.
	Total int
	// Skipped counts conditions the driver never ran an action for:
	// globally-unsatisfiable conditions and conditions whose action
	// lists were empty before any instance was visited.
	Skipped int
}

// Engine owns the condition list and drives one run-to-completion pass
// over a document. It is single-threaded; the only shared
// mutable state is the document and the spatial index, both owned by the
// running goroutine for the duration.
type Engine struct {
	reg   *Registry
	log   *zap.Logger
	conds []*Condition

	// Strict mirrors the parse-time policy for handlers that parse
	// config at run time.
	Strict bool
}

// NewEngine builds an engine around a populated registry.
func NewEngine(reg *Registry, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{reg: reg, log: log}
}

// Registry exposes the engine's handler tables to nested-rule handlers.
func (e *Engine) Registry() *Registry { return e.reg }

// Log exposes the engine logger.
func (e *Engine) Log() *zap.Logger { return e.log }

// Add appends a parsed condition.
func (e *Engine) Add(c *Condition) {
	e.conds = append(e.conds, c)
}

// AddMeta registers an engine-internal pipeline stage: a condition with no
// tests, pinned at the given priority, whose single action runs once per
// document. The action's own EndCondition signal enforces the run-once
// convention; the driver additionally stops it after its first invocation.
func (e *Engine) AddMeta(name string, pri Priority, fn ResultFunc) {
	e.conds = append(e.conds, &Condition{
		Priority: pri,
		Source:   "meta:" + name,
		meta:     true,
		Then: []*Action{{
			Name:  name,
			entry: resultEntry{direct: fn},
		}},
	})
}

// Run evaluates every condition against every instance, in priority order.
// Ordering is a stable sort: equal priorities keep declaration order, so a
// given rule set always executes identically.
func (e *Engine) Run(doc *vmf.Document, ix *grid.Index, info *MapInfo) (RunReport, error) {
	sort.SliceStable(e.conds, func(i, j int) bool {
		return e.conds[i].Priority.Cmp(e.conds[j].Priority) < 0
	})

	report := RunReport{Total: len(e.conds)}
	for _, cond := range e.conds {
		skipped, err := e.runCondition(cond, doc, ix, info)
		if err != nil {
			return report, fmt.Errorf("condition from %s: %w", cond.Source, err)
		}
		if skipped {
			report.Skipped++
		}
	}
	return report, nil
}

// runCondition applies one condition to every instance. The returned bool
// reports whether the condition was skipped without running anything.
func (e *Engine) runCondition(cond *Condition, doc *vmf.Document, ix *grid.Index, info *MapInfo) (bool, error) {
	if cond.Empty() {
		return true, nil
	}

	instances := doc.Instances()
	if cond.meta {
		// Meta stages bypass tests and run once against an arbitrary
		// instance (nil when the document has none).
		var inst *vmf.Entity
		if len(instances) > 0 {
			inst = instances[0]
		}
		ctx := &Context{Doc: doc, Index: ix, Info: info, Inst: inst, Log: e.log, Engine: e}
		_, err := e.runActions(&cond.Then, ctx)
		cond.consumed = true
		return false, err
	}

	for _, inst := range instances {
		if cond.consumed {
			break
		}
		if !containsEntity(doc, inst) {
			continue // deleted by an earlier condition or action
		}
		ctx := &Context{Doc: doc, Index: ix, Info: info, Inst: inst, Log: e.log, Engine: e}

		pass := true
		for i, tst := range cond.Tests {
			ok, terr := tst.eval(ctx)
			if errors.Is(terr, ErrUnsatisfiable) {
				if i == 0 && len(cond.Else) == 0 {
					// No instance anywhere can satisfy this condition;
					// skip it for the whole document.
					cond.consumed = true
					return true, nil
				}
				// An else branch may still need to run, so the signal
				// downgrades to an ordinary failure for this instance.
				ok, terr = false, nil
			}
			if terr != nil {
				return false, fmt.Errorf("test %q: %w", tst.Name, terr)
			}
			if !ok {
				pass = false
				break
			}
		}

		list := &cond.Then
		if !pass {
			list = &cond.Else
		}
		outcome, err := e.runActions(list, ctx)
		if err != nil {
			return false, err
		}
		if outcome == OutcomeEndCondition {
			cond.consumed = true
		}

		if cond.Empty() {
			// Both lists shrank to nothing; no further effect possible.
			cond.consumed = true
		}
	}
	return false, nil
}

// runActions executes a (then or else) list in order, honoring control
// signals. Exhausted actions are removed in place.
func (e *Engine) runActions(list *[]*Action, ctx *Context) (Outcome, error) {
	i := 0
	for i < len(*list) {
		act := (*list)[i]
		outcome, err := act.run(ctx)
		if err != nil {
			return OutcomeContinue, fmt.Errorf("result %q: %w", act.Name, err)
		}
		switch outcome {
		case OutcomeExhausted:
			*list = append((*list)[:i], (*list)[i+1:]...)
		case OutcomeNextInstance:
			return OutcomeNextInstance, nil
		case OutcomeEndCondition:
			return OutcomeEndCondition, nil
		default:
			i++
		}
	}
	return OutcomeContinue, nil
}

// Execute runs a nested condition against the context's instance; used by
// the condition/switch result handlers to re-enter the engine. The
// unsatisfiable signal has no global meaning here and downgrades to a
// plain failure.
func (e *Engine) Execute(cond *Condition, ctx *Context) (Outcome, error) {
	pass := true
	for _, tst := range cond.Tests {
		ok, err := tst.eval(ctx)
		if errors.Is(err, ErrUnsatisfiable) {
			ok, err = false, nil
		}
		if err != nil {
			return OutcomeContinue, fmt.Errorf("test %q: %w", tst.Name, err)
		}
		if !ok {
			pass = false
			break
		}
	}
	list := &cond.Then
	if !pass {
		list = &cond.Else
	}
	return e.runActions(list, ctx)
}

func containsEntity(doc *vmf.Document, ent *vmf.Entity) bool {
	for _, e := range doc.Entities {
		if e == ent {
			return true
		}
	}
	return false
}
