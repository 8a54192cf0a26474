// Package cli holds the habitbot cobra commands.
package cli

import (
	"github.com/spf13/cobra"

	"habitbot/internal/config"
	pkgconfig "habitbot/pkg/config"
)

type rootOptions struct {
	env string
	dir string
}

// NewRootCmd builds the command tree.
func NewRootCmd(version string) *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "habitbot",
		Short:         "Personal habit tracker and reminder bot for Telegram",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.env, "env", pkgconfig.GetConfigEnv(), "config environment (selects config/<env>.yaml)")
	rootCmd.PersistentFlags().StringVar(&opts.dir, "config-dir", pkgconfig.GetEnv("CONFIG_DIR", "config"), "directory holding the YAML config files")

	rootCmd.AddCommand(serveCmd(opts))
	rootCmd.AddCommand(migrateCmd(opts))
	rootCmd.AddCommand(cleanupCmd(opts))
	rootCmd.AddCommand(digestCmd(opts))
	rootCmd.AddCommand(hashPasswordCmd())
	rootCmd.AddCommand(tokenCmd(opts))
	rootCmd.AddCommand(outboxCmd(opts))

	return rootCmd
}

func (o *rootOptions) load() (*config.Config, error) {
	return config.LoadFrom(o.env, o.dir)
}
