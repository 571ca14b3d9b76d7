package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"betra/internal/catalog"
	"betra/internal/watch"

	"github.com/spf13/cobra"
)

// NewWatchCmd creates the watch command
func NewWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Print the catalog whenever the module directory changes",
		Long: `Watch the module directory and print the rebuilt catalog after every
burst of changes. Press Ctrl+C to stop.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cmd.OutOrStdout(), moduleDir(args))
		},
	}

	return cmd
}

func runWatch(ctx context.Context, w io.Writer, dir string) error {
	cat, scanner, err := scanModules(dir)
	if err != nil {
		return err
	}
	printCatalog(w, cat)
	fmt.Fprintln(w, infoText("Watching "+dir+" (Ctrl+C to stop)"))

	debounce := time.Duration(cfg.Watch.DebounceMS) * time.Millisecond
	r := watch.NewRescanner(dir, scanner, debounce, func(cat *catalog.Catalog, err error) {
		fmt.Fprintln(w, headerText("Changed at "+time.Now().Format("15:04:05")))
		if err != nil {
			fmt.Fprintln(w, errorText(err.Error()))
			return
		}
		printCatalog(w, cat)
	})
	return r.Run(ctx)
}
