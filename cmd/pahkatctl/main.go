// Command pahkatctl is a cobra+viper inspector CLI exercising the public
// contract of the package store engine: repo management, status,
// dependency resolution, install, and uninstall against a selected
// platform backend.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "dev"

var (
	flagVerbose    bool
	flagConfigPath string
	flagCachePath  string
	flagPlatform   string
	flagTarget     string
)

func main() {
	root := newRootCmd()
	root.SilenceUsage = true
	root.SilenceErrors = true

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "pahkatctl",
		Short:   "pahkatctl inspects and drives a package store engine",
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			initLogging()
			bindViper(cmd)
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().StringVar(&flagConfigPath, "config-path", "", "config document path (env PAHKAT_CONFIG_PATH)")
	cmd.PersistentFlags().StringVar(&flagCachePath, "cache-path", "", "cache base directory (env PAHKAT_CACHE_PATH)")
	cmd.PersistentFlags().StringVar(&flagPlatform, "platform", "", "backend to target: macos, windows, prefix (env PAHKAT_PLATFORM)")
	cmd.PersistentFlags().StringVar(&flagTarget, "target", "user", "install target: system or user")

	cmd.AddCommand(newRepoCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newResolveCmd())
	cmd.AddCommand(newInstallCmd())
	cmd.AddCommand(newUninstallCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// bindViper layers PAHKAT_* environment variables between flags and
// defaults: an explicitly set flag wins, otherwise the environment
// variable, otherwise the flag default. This is the way the teacher's
// CLI tools combine cobra flags with environment-driven configuration.
func bindViper(cmd *cobra.Command) {
	v := viper.New()
	v.SetEnvPrefix("pahkat")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindPFlag("config-path", cmd.Flags().Lookup("config-path"))
	_ = v.BindPFlag("cache-path", cmd.Flags().Lookup("cache-path"))
	_ = v.BindPFlag("platform", cmd.Flags().Lookup("platform"))

	if v.IsSet("config-path") {
		flagConfigPath = v.GetString("config-path")
	}
	if v.IsSet("cache-path") {
		flagCachePath = v.GetString("cache-path")
	}
	if v.IsSet("platform") {
		flagPlatform = v.GetString("platform")
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print the pahkatctl version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(version)
			return nil
		},
	}
}
