// Package cli implements the segfetch command line.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"segfetch/internal/config"
	"segfetch/internal/logger"
)

// Version information - set via ldflags during build.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// rootOptions carries the persistent flags and the settings they resolve to.
type rootOptions struct {
	verbose      bool
	settingsPath string
	settings     *config.Settings
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "segfetch",
		Short:         "Segmented concurrent file downloader",
		Long:          `segfetch downloads a file over several HTTP range connections at once, merges the parts and optionally verifies a checksum.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load()
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging and write a debug log file")
	cmd.PersistentFlags().StringVar(&opts.settingsPath, "config", "", "Settings file (default: settings.yaml in the segfetch config dir)")
	cmd.SetVersionTemplate("segfetch v{{.Version}}\n")

	cmd.AddCommand(
		newGetCmd(opts),
		newHistoryCmd(),
		newHashCmd(),
		newVersionCmd(),
	)
	return cmd
}

// load reads settings, applies environment overrides and configures logging.
func (o *rootOptions) load() error {
	path := o.settingsPath
	if path == "" {
		path = config.GetSettingsPath()
	}
	settings, err := config.LoadSettingsFrom(path)
	if err != nil {
		return err
	}
	if err := settings.ApplyEnv(); err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	if o.verbose {
		settings.General.Verbose = true
	}

	level := settings.General.LogLevel
	if settings.General.Verbose {
		level = "debug"
	}
	logger.InitLogger(level, settings.General.NoColor)

	o.settings = settings
	return nil
}

// Execute runs the CLI and exits non-zero on error.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
