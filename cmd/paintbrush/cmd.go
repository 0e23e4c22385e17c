package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/banshee-data/paintbrush/internal/config"
	"github.com/banshee-data/paintbrush/internal/monitoring"
	"github.com/banshee-data/paintbrush/internal/version"
)

var (
	logLevel   = "info"
	configPath = ""

	// cfg is loaded before any subcommand runs.
	cfg = config.Empty()
)

// NewCommand builds the root command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "paintbrush",
		Short:         "Semi-automatic paintbrush: an IR-tracked print head copies an image onto paper",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := monitoring.Setup(logLevel); err != nil {
				return err
			}
			return loadConfig()
		},
	}

	globalFlags := cmd.PersistentFlags()
	globalFlags.StringVarP(&logLevel, "log-level", "l", "info", "log level (trace, debug, info, warn, error)")
	globalFlags.StringVarP(&configPath, "config", "c", "", fmt.Sprintf("settings file (default %s if present)", config.DefaultConfigPath))

	cmd.AddCommand(
		NewCalibrateCommand(),
		NewPaintCommand(),
		NewPortsCommand(),
		NewVersionCommand(),
	)
	return cmd
}

// loadConfig reads --config, or the default path when it exists.
func loadConfig() error {
	path := configPath
	if path == "" {
		if _, err := os.Stat(config.DefaultConfigPath); errors.Is(err, fs.ErrNotExist) {
			cfg = config.Empty()
			return nil
		}
		path = config.DefaultConfigPath
	}
	c, err := config.LoadConfig(path)
	if err != nil {
		return err
	}
	monitoring.Debugf("loaded settings from %s", path)
	cfg = c
	return nil
}

// NewVersionCommand .
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("%s\n", version.String())
		},
	}
}
