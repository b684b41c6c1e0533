// Package cmd implements the plant-rover command line.
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"plant-rover/internal/conf"
	"plant-rover/internal/logger"
)

const defaultConfigPath = "config.yaml"

// options are shared by every subcommand.
type options struct {
	configPath string
	envFile    string
	logLevel   string

	log *zap.Logger
}

// RootCommand creates the plant-rover command tree.
func RootCommand() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "plant-rover",
		Short:         "Autonomous plant-care rover",
		Long:          "Visits plants, identifies them from a leaf image, estimates their water content and waters them.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", defaultConfigPath, "Path to the YAML configuration file")
	flags.StringVar(&opts.envFile, "env", ".env", "Path to a .env file with secrets")
	flags.StringVar(&opts.logLevel, "log-level", "", "Override the configured log level")

	rootCmd.AddCommand(
		runCommand(opts),
		detectCommand(opts),
		versionCommand(),
	)

	rootCmd.PersistentPostRun = func(*cobra.Command, []string) {
		logger.Sync(opts.log)
	}

	return rootCmd
}

// configFile returns the config path to read. The default path is optional;
// an explicit one must exist.
func (o *options) configFile(cmd *cobra.Command) string {
	if cmd.Flags().Changed("config") {
		return o.configPath
	}
	if _, err := os.Stat(o.configPath); errors.Is(err, fs.ErrNotExist) {
		return ""
	}
	return o.configPath
}

// load reads the configuration and builds the logger. Commands validate the
// result after applying their own flag overrides.
func (o *options) load(cmd *cobra.Command) (*conf.Config, error) {
	cfg, err := conf.Read(o.configFile(cmd), o.envFile)
	if err != nil {
		return nil, err
	}

	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.log, err = logger.New(cfg.Log.Mode, cfg.Log.Level); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}
