package template

import (
	"fmt"
	"strings"

	"mapcraft/internal/conditions"
	"mapcraft/internal/grid"
	"mapcraft/internal/keyvalues"
	"mapcraft/internal/texturing"
	"mapcraft/internal/vmath"
)

// RegisterResults installs the template-driven rule vocabulary into a
// registry. Called once at startup alongside the core builtins.
func RegisterResults(reg *conditions.Registry, lib *Library, tex *texturing.Set) error {
	if err := reg.RegisterSetup("templateBrush", setupTemplateBrush); err != nil {
		return err
	}
	return reg.RegisterResultFactory("templateBrush",
		func(setup *conditions.Context) (conditions.ResultFunc, error) {
			return makeTemplateBrush(setup, lib, tex)
		},
		"addTemplate", "addOverlay")
}

// setupTemplateBrush validates the block once at parse time; a missing
// template reference drops the action.
func setupTemplateBrush(ctx *conditions.Context) (*keyvalues.KV, error) {
	if ctx.Config.Str("temp", "") == "" {
		return nil, fmt.Errorf("templateBrush requires a temp reference")
	}
	return ctx.Config, nil
}

// templateBrushConfig is the once-per-occurrence digest of the block.
type templateBrushConfig struct {
	ref        string
	offset     string
	force      BrushKind
	forceColor grid.Color
	invert     bool
	forceKind  *texturing.Kind
	clump      bool
	replace    map[string]string
}

// makeTemplateBrush parses one templateBrush block into a cached result.
// Config:
//
//	templateBrush
//	{
//	    "temp"   "BEE_CUBE:extras"
//	    "force"  "white world"    // white/black/invert, world/detail, kind names
//	    "offset" "0 0 64"         // local offset, $fixups resolved per instance
//	    "clump"  "1"
//	    replace { "authored/mat" "$final" }
//	}
func makeTemplateBrush(setup *conditions.Context, lib *Library, tex *texturing.Set) (conditions.ResultFunc, error) {
	cfg := templateBrushConfig{
		ref:    setup.Config.Str("temp", ""),
		offset: setup.Config.Str("offset", ""),
		clump:  setup.Config.Bool("clump", false),
	}

	// Fail unknown templates at parse time so the author sees the full
	// list of valid names, not a mid-run abort.
	name, _ := ParseRef(cfg.ref)
	if _, err := lib.Get(name); err != nil {
		return nil, err
	}

	for _, token := range strings.Fields(strings.ToLower(setup.Config.Str("force", ""))) {
		switch token {
		case "white":
			cfg.forceColor = grid.ColorWhite
		case "black":
			cfg.forceColor = grid.ColorBlack
		case "invert":
			cfg.invert = true
		case "world":
			cfg.force = KindWorld
		case "detail":
			cfg.force = KindDetail
		default:
			kind, err := texturing.ParseKind(token)
			if err != nil {
				return nil, fmt.Errorf("templateBrush force: %w", err)
			}
			cfg.forceKind = &kind
		}
	}

	if repl := setup.Config.Find("replace"); repl.IsBlock() {
		cfg.replace = make(map[string]string)
		for _, child := range repl.Children {
			// Lowercased at digestion so the lookup is a direct map hit;
			// keys folding to the same material resolve by declaration
			// order, last one wins.
			cfg.replace[strings.ToLower(child.Key)] = child.Value
		}
	}

	return func(ctx *conditions.Context) (conditions.Outcome, error) {
		origin := ctx.Inst.Origin()
		angles := ctx.Inst.Angles()
		if cfg.offset != "" {
			local, err := vmath.ParseVec3(ctx.Resolve(cfg.offset))
			if err != nil {
				return conditions.OutcomeContinue, fmt.Errorf("templateBrush offset: %w", err)
			}
			origin = origin.Add(angles.Matrix().Apply(local))
		}

		imp, err := lib.Import(ctx.Doc, cfg.ref, origin, angles, ImportOptions{Force: cfg.force})
		if err != nil {
			return conditions.OutcomeContinue, err
		}
		forceColor := cfg.forceColor
		if forceColor == grid.ColorNone {
			// Color pickers sample the surface the template is placed
			// against; an explicit force always wins over them.
			forceColor = imp.SampleColor(ctx.Index)
		}
		Retexture(imp, tex, ctx.Index, RetexOptions{
			ForceColor:  forceColor,
			InvertColor: cfg.invert,
			ForceKind:   cfg.forceKind,
			Replace:     cfg.replace,
			Inst:        ctx.Inst,
			Clump:       cfg.clump,
		}, ctx.Log)
		return conditions.OutcomeContinue, nil
	}, nil
}
