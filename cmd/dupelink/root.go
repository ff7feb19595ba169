package main

import (
	"fmt"

	dupelink "github.com/mattkeenan/dupelink/pkg"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// globalOptions are the persistent flags shared by every command
type globalOptions struct {
	configPath string
	verbosity  int
	debug      string
}

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "dupelink",
		Short: "Find duplicate files and replace them with symbolic links",
		Long: `dupelink scans one or more directory trees, fingerprints every regular file
and groups byte-identical files. The first file of each group is kept as the
reference; every other copy is reported and, unless running as a dry run,
replaced with a symbolic link to the reference.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			dupelink.SetupLogger(cmd.ErrOrStderr(), opts.verbosity, opts.debug)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default $DUPELINK_CONFIG or $XDG_CONFIG_HOME/dupelink/config)")
	rootCmd.PersistentFlags().CountVarP(&opts.verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")
	rootCmd.PersistentFlags().StringVar(&opts.debug, "debug", "", "Debug categories, comma separated (walk, hash, index, replace, all)")

	rootCmd.AddCommand(newScanCmd(opts))
	rootCmd.AddCommand(newConfigCmd(opts))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// loadSettings layers config file, environment and the given flag overrides
// and sets the logger up from the result
func loadSettings(cmd *cobra.Command, opts *globalOptions, overrides []string) (*dupelink.Config, dupelink.Settings, error) {
	cfg, err := dupelink.LoadConfig(opts.configPath)
	if err != nil {
		return nil, dupelink.Settings{}, err
	}

	envOverrides, err := dupelink.EnvOverrides()
	if err != nil {
		return nil, dupelink.Settings{}, err
	}
	if err := cfg.ApplyOverrides(envOverrides); err != nil {
		return nil, dupelink.Settings{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("verbose") {
		level := opts.verbosity
		if level > 3 {
			level = 3
		}
		overrides = append(overrides, fmt.Sprintf("level:%d", level))
	}
	if flags.Changed("debug") {
		overrides = append(overrides, "debug:"+opts.debug)
	}
	if err := cfg.ApplyOverrides(overrides); err != nil {
		return nil, dupelink.Settings{}, err
	}

	settings, err := cfg.Settings()
	if err != nil {
		return nil, dupelink.Settings{}, err
	}

	dupelink.SetupLogger(cmd.ErrOrStderr(), settings.VerboseLevel, settings.Debug)
	log.Debug().Str("config", cfg.Path()).Strs("overrides", append(envOverrides, overrides...)).Msg("Configuration loaded")
	return cfg, settings, nil
}
