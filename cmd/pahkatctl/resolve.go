package main

import (
	"context"
	"fmt"

	"github.com/divvun/pahkat-go/dependency"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newResolveCmd() *cobra.Command {
	var uninstall bool
	cmd := &cobra.Command{
		Use:   "resolve <package-id>",
		Short: "print the ordered action list for an install or uninstall",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := buildStore()
			if err != nil {
				return err
			}
			if err := s.RefreshRepos(context.Background()); err != nil {
				return err
			}

			var actions []dependency.Action
			if uninstall {
				actions, err = s.ResolveUninstall(args[0])
			} else {
				actions, err = s.ResolveInstall(args[0])
			}
			if err != nil {
				return err
			}
			printActions(actions)
			return nil
		},
	}
	cmd.Flags().BoolVar(&uninstall, "uninstall", false, "resolve the uninstall closure instead of install")
	return cmd
}

func printActions(actions []dependency.Action) {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"depth", "package", "required", "status", "no-op"})
	for _, a := range actions {
		t.AppendRow(table.Row{a.Depth, a.Key.ID, a.RequiredVersion, a.CurrentStatus, a.NoOp})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "package", WidthMax: wideColWidth(terminalWidth(), 40)},
	})
	fmt.Println(t.Render())
}

// wideColWidth leaves room for reserved (the other columns plus
// borders) and returns what's left for the wide text column, the way
// the teacher's console formatter derives a dynamic column width from
// the terminal width.
func wideColWidth(termWidth, reserved int) int {
	if termWidth <= reserved {
		return 20
	}
	return termWidth - reserved
}
