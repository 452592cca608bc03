package main

import (
	"context"
	"fmt"

	"github.com/divvun/pahkat-go/transaction"
	"github.com/spf13/cobra"
)

func newUninstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall <package-id>",
		Short: "resolve and run an uninstall transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := buildStore()
			if err != nil {
				return err
			}
			if err := s.RefreshRepos(context.Background()); err != nil {
				return err
			}

			sink := func(ev transaction.Event) {
				switch ev.Kind {
				case transaction.EventCompletion:
					fmt.Printf("%s: %s\n", ev.Key.ID, ev.Status)
				case transaction.EventFailure:
					fmt.Printf("%s: failed: %v\n", ev.Key.ID, ev.Err)
				}
			}

			return s.Uninstall(context.Background(), args[0], sink)
		},
	}
}
