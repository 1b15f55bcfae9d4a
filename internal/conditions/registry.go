// Package conditions implements the rule execution engine: a registry of
// named test and result handlers, conditions parsed from rule blocks, and
// the priority-ordered driver that applies them to every instance in a
// document.
package conditions

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"mapcraft/internal/grid"
	"mapcraft/internal/keyvalues"
	"mapcraft/internal/vmf"
)

var (
	// ErrUnsatisfiable is returned by a test that no instance in the
	// document could ever pass. When raised by a condition's first test
	// and no else branch exists, the driver skips the condition for the
	// whole document.
	ErrUnsatisfiable = errors.New("test is unsatisfiable for this document")

	ErrDuplicateName = errors.New("handler name already registered")
	ErrUnknownName   = errors.New("no handler registered under name")
)

// Outcome is the control signal a result handler returns to the driver.
type Outcome int

const (
	// OutcomeContinue proceeds to the next action in the list.
	OutcomeContinue Outcome = iota
	// OutcomeExhausted removes this action from its list permanently; it
	// never needs to run again in this document.
	OutcomeExhausted
	// OutcomeNextInstance abandons the remaining actions for this
	// instance and moves to the next one.
	OutcomeNextInstance
	// OutcomeEndCondition abandons the remaining actions and stops
	// evaluating this condition against any further instance.
	OutcomeEndCondition
)

// MapInfo carries document-wide facts tests consult.
type MapInfo struct {
	StyleVars  map[string]bool
	VoiceAttrs map[string]bool
	GameMode   string
	IsPreview  bool
}

// StyleVar reports a style variable, defaulting unset names to false.
func (mi *MapInfo) StyleVar(name string) bool {
	if mi == nil {
		return false
	}
	return mi.StyleVars[strings.ToLower(name)]
}

// HasAttr reports a voice attribute flag.
func (mi *MapInfo) HasAttr(name string) bool {
	if mi == nil {
		return false
	}
	return mi.VoiceAttrs[strings.ToLower(name)]
}

// Context is handed to every handler invocation. During factory resolution
// and setup transforms Inst is nil; everything else is always present.
type Context struct {
	Doc    *vmf.Document
	Index  *grid.Index
	Info   *MapInfo
	Inst   *vmf.Entity
	Config *keyvalues.KV
	Log    *zap.Logger
	Engine *Engine
}

// Resolve expands $fixup variables in s against the current instance.
func (ctx *Context) Resolve(s string) string {
	if ctx.Inst == nil {
		return s
	}
	return ctx.Inst.FixupSubst(s)
}

// TestFunc evaluates a predicate against one instance.
type TestFunc func(ctx *Context) (bool, error)

// ResultFunc applies an action to one instance.
type ResultFunc func(ctx *Context) (Outcome, error)

// TestFactory is the two-stage form of a test: it is called once per rule
// configuration (with no instance in the context) and returns the
// per-instance function, letting expensive config parsing be paid exactly
// once regardless of instance count.
type TestFactory func(ctx *Context) (TestFunc, error)

// ResultFactory is the two-stage form of a result.
type ResultFactory func(ctx *Context) (ResultFunc, error)

// SetupFunc is a one-time transform of a result's raw configuration, run
// at parse time. Returning an error drops the action from its list without
// failing the whole condition.
type SetupFunc func(ctx *Context) (*keyvalues.KV, error)

type testEntry struct {
	direct  TestFunc
	factory TestFactory
}

type resultEntry struct {
	direct  ResultFunc
	factory ResultFactory
}

// Registry maps case-insensitive rule names to handlers. It is an explicit
// value passed into the engine so independent engines (tests, tools) never
// interfere through shared process state.
type Registry struct {
	tests   map[string]testEntry
	results map[string]resultEntry
	setups  map[string]SetupFunc
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tests:   make(map[string]testEntry),
		results: make(map[string]resultEntry),
		setups:  make(map[string]SetupFunc),
	}
}

// RegisterTest adds a direct test handler.
func (r *Registry) RegisterTest(name string, fn TestFunc, aliases ...string) error {
	return r.addTest(testEntry{direct: fn}, name, aliases)
}

// RegisterTestFactory adds a two-stage test handler.
func (r *Registry) RegisterTestFactory(name string, fn TestFactory, aliases ...string) error {
	return r.addTest(testEntry{factory: fn}, name, aliases)
}

// RegisterResult adds a direct result handler.
func (r *Registry) RegisterResult(name string, fn ResultFunc, aliases ...string) error {
	return r.addResult(resultEntry{direct: fn}, name, aliases)
}

// RegisterResultFactory adds a two-stage result handler.
func (r *Registry) RegisterResultFactory(name string, fn ResultFactory, aliases ...string) error {
	return r.addResult(resultEntry{factory: fn}, name, aliases)
}

// RegisterSetup attaches a parse-time config transform to a result name.
func (r *Registry) RegisterSetup(name string, fn SetupFunc) error {
	key := strings.ToLower(name)
	if _, exists := r.setups[key]; exists {
		return fmt.Errorf("setup %q: %w", name, ErrDuplicateName)
	}
	r.setups[key] = fn
	return nil
}

func (r *Registry) addTest(e testEntry, name string, aliases []string) error {
	for _, n := range append([]string{name}, aliases...) {
		key := strings.ToLower(n)
		if _, exists := r.tests[key]; exists {
			return fmt.Errorf("test %q: %w", n, ErrDuplicateName)
		}
		r.tests[key] = e
	}
	return nil
}

func (r *Registry) addResult(e resultEntry, name string, aliases []string) error {
	for _, n := range append([]string{name}, aliases...) {
		key := strings.ToLower(n)
		if _, exists := r.results[key]; exists {
			return fmt.Errorf("result %q: %w", n, ErrDuplicateName)
		}
		r.results[key] = e
	}
	return nil
}

func (r *Registry) test(name string) (testEntry, bool) {
	e, ok := r.tests[strings.ToLower(name)]
	return e, ok
}

func (r *Registry) result(name string) (resultEntry, bool) {
	e, ok := r.results[strings.ToLower(name)]
	return e, ok
}

func (r *Registry) setup(name string) (SetupFunc, bool) {
	fn, ok := r.setups[strings.ToLower(name)]
	return fn, ok
}
