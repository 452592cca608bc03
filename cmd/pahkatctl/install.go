package main

import (
	"context"
	"fmt"

	"github.com/divvun/pahkat-go/backend"
	"github.com/divvun/pahkat-go/transaction"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func newInstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install <package-id>",
		Short: "resolve and run an install transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := buildStore()
			if err != nil {
				return err
			}
			if err := s.RefreshRepos(context.Background()); err != nil {
				return err
			}

			var bar *progressbar.ProgressBar
			sink := func(ev transaction.Event) {
				switch ev.Kind {
				case transaction.EventProgress:
					if ev.Status == backend.StateFetching && ev.BytesTotal > 0 {
						if bar == nil {
							bar = progressbar.DefaultBytes(ev.BytesTotal, "downloading "+ev.Key.ID)
						}
						bar.Set64(ev.BytesDone)
					}
				case transaction.EventCompletion:
					fmt.Printf("%s: %s\n", ev.Key.ID, ev.Status)
				case transaction.EventFailure:
					fmt.Printf("%s: failed: %v\n", ev.Key.ID, ev.Err)
				}
			}

			return s.Install(context.Background(), args[0], sink)
		},
	}
}
