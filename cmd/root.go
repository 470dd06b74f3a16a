// Package cmd implements the event-sync command-line interface.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jonesrussell/north-cloud/event-sync/internal/config"
)

const defaultConfigFile = "config.yml"

// Version is set at build time with -ldflags "-X .../cmd.Version=...".
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "event-sync",
	Short: "Aggregate city event listings into canonical storage",
	Long: `event-sync renders event listing pages from several ticketing sites, validates and
classifies the listings, and upserts them into PostgreSQL.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default is $CONFIG_PATH or ./config.yml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	// Flags are registered above, so binding cannot fail.
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindEnv("debug", "APP_DEBUG")

	rootCmd.AddCommand(
		newServeCommand(),
		newSyncCommand(),
		newCleanupCommand(),
		newMigrateCommand(),
		newVersionCommand(),
	)
}

// loadConfig loads and validates configuration, applying the --config and --debug flags.
func loadConfig() (*config.Config, error) {
	path := viper.GetString("config")
	if path == "" {
		path = config.GetConfigPath(defaultConfigFile)
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if viper.GetBool("debug") {
		cfg.Service.Debug = true
		cfg.Logging.Level = "debug"
	}
	if Version != "dev" {
		cfg.Service.Version = Version
	}

	if validationErr := cfg.Validate(); validationErr != nil {
		return nil, fmt.Errorf("validate config: %w", validationErr)
	}
	return cfg, nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "event-sync version %s\n", Version)
		},
	}
}
