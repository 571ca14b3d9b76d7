package main

import (
	"path/filepath"
	"strings"

	"betra/internal/catalog"
	"betra/internal/config"
	"betra/internal/errors"
	"betra/internal/log"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     *config.Config
	debug   bool
	logJSON bool
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "betra",
		Short: "Assemble operating instructions from module documents",
		Long: `Betra builds a composite Word document from a directory of numbered
module documents. Pick a cover page, select modules by hand or through
presets, and betra merges them in chapter order into one document.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log.SetDebug(debug)
			if logJSON {
				log.Configure(log.WithJSON())
			}

			var err error
			if cfgFile != "" {
				cfg, err = config.LoadConfigFile(cfgFile)
			} else {
				cfg, err = config.LoadConfig()
			}
			if err != nil {
				return errors.NewConfigError("failed to load configuration", configPath(), errors.InvalidConfig, err)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/betra/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "write log entries as JSON")

	// Add subcommands
	rootCmd.AddCommand(NewScanCmd())
	rootCmd.AddCommand(NewComposeCmd())
	rootCmd.AddCommand(NewPresetsCmd())
	rootCmd.AddCommand(NewLedgerCmd())
	rootCmd.AddCommand(NewWatchCmd())
	rootCmd.AddCommand(NewTUICmd())
	rootCmd.AddCommand(NewConfigCmd())

	return rootCmd
}

func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultPath()
}

// moduleDir returns the directory argument or the configured modules dir.
func moduleDir(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return cfg.Directories.Modules
}

func newScanner() (*catalog.Scanner, error) {
	return catalog.NewScanner(cfg.ScannerOptions())
}

func scanModules(dir string) (*catalog.Catalog, *catalog.Scanner, error) {
	scanner, err := newScanner()
	if err != nil {
		return nil, nil, err
	}
	cat, err := scanner.Scan(dir)
	if err != nil {
		return nil, nil, err
	}
	return cat, scanner, nil
}

// identifierFor derives a ledger identifier from the output filename.
func identifierFor(output string) string {
	base := filepath.Base(output)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
