package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/1broseidon/winplace/internal/config"
	"github.com/1broseidon/winplace/internal/ipc"
)

func (a *app) newRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect the placement rules file",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List configured rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := a.loadRules("")
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "# %s\n", rules.File)
			for _, r := range ipc.RulesFromTable(rules.Table()) {
				fmt.Fprintf(w, "%s\t%d,%d %dx%d\n", r.Path, r.X, r.Y, r.Width, r.Height)
			}
			return nil
		},
	}

	validate := &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a rules file (default: rules_file)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			rules, err := a.loadRules(path)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, warn := range rules.Warnings {
				fmt.Fprintf(w, "warning: %s\n", warn)
			}
			fmt.Fprintf(w, "OK: %s (%d rules)\n", rules.File, len(rules.Entries))
			return nil
		},
	}

	lookup := &cobra.Command{
		Use:   "lookup <executable-path>",
		Short: "Show the rectangle configured for an executable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := a.loadRules("")
			if err != nil {
				return err
			}
			r, ok := rules.Table().Lookup(args[0])
			if !ok {
				return fmt.Errorf("no rule for %s", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d,%d %dx%d\n", args[0], r.X, r.Y, r.Width, r.Height)
			return nil
		},
	}

	cmd.AddCommand(list, validate, lookup)
	return cmd
}

// loadRules reads path, or the configured rules_file when path is empty.
func (a *app) loadRules(path string) (*config.Rules, error) {
	settings, err := a.settings()
	if err != nil {
		return nil, err
	}
	if path == "" {
		path = settings.RulesFile
	}
	return config.LoadRules(path, config.FoldCase(settings.CaseInsensitivePaths))
}
