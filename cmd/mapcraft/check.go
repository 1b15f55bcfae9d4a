package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mapcraft/internal/conditions"
	"mapcraft/internal/config"
	"mapcraft/internal/template"
	"mapcraft/internal/texturing"
	"mapcraft/internal/validate"
	"mapcraft/internal/vmf"
)

var checkConfig string

func checkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [input.vmf]",
		Short: "Run consistency checks over the rule packs and, optionally, a document",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runCheck,
	}
	cmd.Flags().StringVar(&checkConfig, "config", "mapcraft.yaml", "Compile configuration file")
	return cmd
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadCompileConfig(checkConfig)
	if err != nil {
		return err
	}

	reg := conditions.NewRegistry()
	if err := conditions.RegisterBuiltins(reg); err != nil {
		return err
	}
	if cfg.Templates != "" {
		if lib, err := template.LoadLibrary(cfg.Templates, nil); err == nil {
			if err := template.RegisterResults(reg, lib, texturing.Defaults()); err != nil {
				return err
			}
		}
		// An unreadable library is reported as an issue below, not here.
	}

	var doc *vmf.Document
	if len(args) == 1 {
		doc, err = vmf.ParseFile(args[0])
		if err != nil {
			return err
		}
	}

	report, err := validate.Run(cfg, reg, doc)
	if err != nil {
		return err
	}

	var errorIssues []validate.Issue
	var warnIssues []validate.Issue
	for _, issue := range report.Issues {
		switch issue.Severity {
		case validate.SeverityError:
			errorIssues = append(errorIssues, issue)
		case validate.SeverityWarn:
			warnIssues = append(warnIssues, issue)
		}
	}

	if len(errorIssues) == 0 && len(warnIssues) == 0 {
		fmt.Fprintln(os.Stdout, "No issues found.")
		return nil
	}

	if len(errorIssues) > 0 {
		fmt.Fprintf(os.Stdout, "Errors (%d):\n", len(errorIssues))
		printIssues(os.Stdout, errorIssues)
	}
	if len(warnIssues) > 0 {
		if len(errorIssues) > 0 {
			fmt.Fprintln(os.Stdout, "")
		}
		fmt.Fprintf(os.Stdout, "Warnings (%d):\n", len(warnIssues))
		printIssues(os.Stdout, warnIssues)
	}

	if len(errorIssues) > 0 {
		return fmt.Errorf("check found errors")
	}
	return nil
}

func printIssues(out *os.File, issues []validate.Issue) {
	for _, issue := range issues {
		if issue.Source != "" {
			fmt.Fprintf(out, "  - %s: %s (%s)\n", issue.Source, issue.Message, issue.Code)
			continue
		}
		fmt.Fprintf(out, "  - %s (%s)\n", issue.Message, issue.Code)
	}
}
