package main

import (
	"context"
	"fmt"
	"time"

	"betra/internal/catalog"
	"betra/internal/compose"
	"betra/internal/log"
	"betra/internal/tui"
	"betra/internal/tui/messages"
	"betra/internal/watch"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

// NewTUICmd creates the tui command
func NewTUICmd() *cobra.Command {
	var noWatch bool

	cmd := &cobra.Command{
		Use:   "tui [dir]",
		Short: "Select modules interactively",
		Long: `Open the interactive selector. Move with j/k, toggle with space,
choose the cover with c, apply presets with 1-9 and compose with enter.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := moduleDir(args)
			scanner, err := newScanner()
			if err != nil {
				return err
			}
			store, err := loadPresets()
			if err != nil {
				return err
			}

			composer := compose.CurrentComposerFactory()
			composer.SetCreateDirs(true)

			opts := tui.Options{
				Dir:      dir,
				Scanner:  scanner,
				Presets:  store.All(),
				Composer: composer,
				Output:   cfg.OutputPath(),
			}
			if cfg.Ledger.Enabled {
				path := cfg.Ledger.Path
				opts.Record = func(result *compose.Result) error {
					return recordComposition(path, identifierFor(result.Output), result)
				}
			}

			m, err := tui.New(opts)
			if err != nil {
				return err
			}

			p := tea.NewProgram(m, tea.WithAltScreen())

			// Feed directory changes into the running program
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			if !noWatch {
				debounce := time.Duration(cfg.Watch.DebounceMS) * time.Millisecond
				r := watch.NewRescanner(dir, scanner, debounce, func(cat *catalog.Catalog, err error) {
					p.Send(messages.CatalogMsg{Catalog: cat, Err: err})
				})
				go func() {
					if err := r.Run(ctx); err != nil {
						log.LogWithError(err).Warn("directory watch stopped")
					}
				}()
			}

			if _, err := p.Run(); err != nil {
				return fmt.Errorf("error running TUI: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "Do not rescan when the module directory changes")

	return cmd
}
