// Package cli implements the docbox command-line interface: tenant
// management and search-index maintenance against a configured
// deployment.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/docbox-nz/docbox/internal/config"
)

var (
	cfgFile  string
	debug    bool
	cfg      *config.Config

	rootCmd = &cobra.Command{
		Use:   "docbox",
		Short: "Multi-tenant document management backend",
		Long: `docbox manages multi-tenant document boxes: per-tenant databases,
storage buckets, and search indexes, plus the pipelines that keep them
consistent.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml",
		"config file path")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"enable debug logging")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(tenantCmd)
	rootCmd.AddCommand(indexCmd)
}

func initConfig() error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return err
	}
	if debug {
		cfg.Debug = true
	}
	return nil
}

var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Version never needs a config file.
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println("docbox " + version)
	},
}
