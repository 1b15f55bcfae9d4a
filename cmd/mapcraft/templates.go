package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"mapcraft/internal/template"
)

func templatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates <library>",
		Short: "List the templates a library document provides",
		Args:  cobra.ExactArgs(1),
		RunE:  runTemplates,
	}
	return cmd
}

func runTemplates(cmd *cobra.Command, args []string) error {
	lib, err := template.LoadLibrary(args[0], nil)
	if err != nil {
		return err
	}

	names := lib.Names()
	if len(names) == 0 {
		fmt.Fprintln(os.Stdout, "No templates found.")
		return nil
	}

	for _, name := range names {
		tmpl, err := lib.Get(name)
		if err != nil {
			return err
		}
		line := name
		if groups := tmpl.GroupNames(); len(groups) > 0 {
			line = fmt.Sprintf("%s (groups: %s)", line, strings.Join(groups, ", "))
		}
		if tmpl.Scaling() != nil {
			line += " [scaling]"
		}
		fmt.Fprintln(os.Stdout, line)
	}
	return nil
}
