package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mapcraft/internal/conditions"
	"mapcraft/internal/config"
	"mapcraft/internal/grid"
	"mapcraft/internal/rules"
	"mapcraft/internal/template"
	"mapcraft/internal/texturing"
	"mapcraft/internal/vmf"
)

var (
	compileConfig  string
	compileStrict  bool
	compileVerbose bool
)

func compileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile <input.vmf> <output.vmf>",
		Short: "Rewrite a level document by running the configured rule packs over it",
		Args:  cobra.ExactArgs(2),
		RunE:  runCompile,
	}
	cmd.Flags().StringVar(&compileConfig, "config", "mapcraft.yaml", "Compile configuration file")
	cmd.Flags().BoolVar(&compileStrict, "strict", false, "Treat rule configuration errors as fatal")
	cmd.Flags().BoolVar(&compileVerbose, "verbose", false, "Log every rule decision")
	return cmd
}

func runCompile(cmd *cobra.Command, args []string) error {
	input, output := args[0], args[1]

	cfg, err := config.LoadCompileConfig(compileConfig)
	if err != nil {
		return err
	}
	if compileStrict {
		cfg.Strict = true
	}

	log, err := newLogger(compileVerbose)
	if err != nil {
		return err
	}
	defer log.Sync()

	doc, err := vmf.ParseFile(input)
	if err != nil {
		return err
	}

	tex := texturing.Defaults()
	if cfg.Style != "" {
		style, err := config.LoadStyle(cfg.Style)
		if err != nil {
			return err
		}
		style.Apply(tex)
	}

	reg := conditions.NewRegistry()
	if err := conditions.RegisterBuiltins(reg); err != nil {
		return err
	}
	if cfg.Templates != "" {
		lib, err := template.LoadLibrary(cfg.Templates, log)
		if err != nil {
			return err
		}
		if err := template.RegisterResults(reg, lib, tex); err != nil {
			return err
		}
	}

	loaded, err := rules.LoadDirs(cfg.Rules, rules.Options{
		Registry: reg,
		Log:      log,
		Strict:   cfg.Strict,
	})
	if err != nil {
		return err
	}

	ix := grid.Build(doc, grid.BuildOptions{
		Classify:  tex.ColorOf,
		NonRender: texturing.NonRender,
		Log:       log,
	})

	engine := conditions.NewEngine(reg, log)
	engine.Strict = cfg.Strict
	for _, cond := range loaded.Conditions {
		engine.Add(cond)
	}

	report, err := engine.Run(doc, ix, rules.BuildInfo(cfg))
	if err != nil {
		return err
	}

	if err := doc.WriteFile(output); err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout, "Compile complete.")
	fmt.Fprintf(os.Stdout, "  Rule files loaded:  %d\n", loaded.Files)
	fmt.Fprintf(os.Stdout, "  Conditions run:     %d\n", report.Total-report.Skipped)
	fmt.Fprintf(os.Stdout, "  Conditions skipped: %d\n", report.Skipped)
	fmt.Fprintf(os.Stdout, "  Faces indexed:      %d\n", ix.Len())

	if len(loaded.Errors) > 0 {
		fmt.Fprintf(os.Stdout, "\nRule files skipped (%d):\n", len(loaded.Errors))
		for _, item := range loaded.Errors {
			fmt.Fprintf(os.Stdout, "  - %v\n", item)
		}
	}

	return nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	return cfg.Build()
}
