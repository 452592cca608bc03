package main

import (
	"context"
	"fmt"
	"os"

	"github.com/divvun/pahkat-go/status"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <package-id>",
		Short: "report the install status of a package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := buildStore()
			if err != nil {
				return err
			}
			if err := s.RefreshRepos(context.Background()); err != nil {
				return err
			}

			res, err := s.Status(args[0])
			if err != nil {
				return err
			}

			fmt.Printf("%s: %s", args[0], colorizeState(res.State))
			if res.InstalledVersion != "" {
				fmt.Printf(" (installed %s, target %s)", res.InstalledVersion, res.TargetVersion)
			} else {
				fmt.Printf(" (target %s)", res.TargetVersion)
			}
			fmt.Println()
			return nil
		},
	}
}

func colorizeState(s status.State) string {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		return string(s)
	}
	switch s {
	case status.StateUpToDate:
		return color.GreenString(string(s))
	case status.StateRequiresUpdate:
		return color.YellowString(string(s))
	case status.StateNotInstalled:
		return color.RedString(string(s))
	default:
		return string(s)
	}
}
