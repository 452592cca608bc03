package main

import (
	"fmt"

	"github.com/divvun/pahkat-go/config"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newRepoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repo",
		Short: "manage configured repositories",
	}
	cmd.AddCommand(newRepoListCmd())
	cmd.AddCommand(newRepoAddCmd())
	cmd.AddCommand(newRepoRemoveCmd())
	return cmd
}

func newRepoListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list configured repositories",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := buildStore()
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.AppendHeader(table.Row{"URL", "Channel"})
			for _, r := range s.Repos() {
				t.AppendRow(table.Row{r.URL, r.Channel})
			}
			t.SetColumnConfigs([]table.ColumnConfig{
				{Name: "URL", WidthMax: wideColWidth(terminalWidth(), 20)},
			})
			fmt.Println(t.Render())
			return nil
		},
	}
}

func newRepoAddCmd() *cobra.Command {
	var channel string
	cmd := &cobra.Command{
		Use:   "add <url>",
		Short: "add a repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := buildStore()
			if err != nil {
				return err
			}
			if err := s.AddRepo(config.RepoRecord{URL: args[0], Channel: channel}); err != nil {
				return err
			}
			color.Green("added %s (channel %s)", args[0], channel)
			return nil
		},
	}
	cmd.Flags().StringVar(&channel, "channel", "stable", "channel to track")
	return cmd
}

func newRepoRemoveCmd() *cobra.Command {
	var channel string
	cmd := &cobra.Command{
		Use:   "remove <url>",
		Short: "remove a repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := buildStore()
			if err != nil {
				return err
			}
			if err := s.RemoveRepo(config.RepoRecord{URL: args[0], Channel: channel}); err != nil {
				return err
			}
			color.Green("removed %s", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&channel, "channel", "", "channel (informational only; URL is the uniqueness key)")
	return cmd
}
