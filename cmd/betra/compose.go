package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"betra/internal/catalog"
	"betra/internal/compose"
	"betra/internal/errors"
	"betra/internal/ledger"
	"betra/internal/log"
	"betra/internal/preset"
	"betra/internal/selection"

	"github.com/spf13/cobra"
)

// composeOptions holds the compose command flags.
type composeOptions struct {
	presets    []string
	prefixes   []string
	all        bool
	cover      string
	output     string
	force      bool
	dryRun     bool
	identifier string
}

// NewComposeCmd creates the compose command
func NewComposeCmd() *cobra.Command {
	opts := &composeOptions{}

	cmd := &cobra.Command{
		Use:   "compose [dir]",
		Short: "Compose the selected modules into one document",
		Long: `Compose merges the chosen cover and the selected modules, in chapter
order, into a single Word document. Mandatory modules are always included.

Modules are selected with presets (--preset), filename prefixes (--select)
or --all. The cover defaults to the first mandatory cover page.`,
		Example: `  betra compose --preset Oberleitung --preset 2
  betra compose --select 5.3.14,5.3.15 --cover 0.0.1 --output out/Baustelle.docx
  betra compose --all --dry-run`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompose(cmd.OutOrStdout(), moduleDir(args), opts)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.presets, "preset", "p", nil, "Preset name or slot number to apply (repeatable)")
	cmd.Flags().StringSliceVarP(&opts.prefixes, "select", "s", nil, "Filename prefixes of modules to select")
	cmd.Flags().BoolVarP(&opts.all, "all", "a", false, "Select every module")
	cmd.Flags().StringVarP(&opts.cover, "cover", "c", "", "Cover page filename or filename prefix")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output document (default is <output dir>/<default name>)")
	cmd.Flags().BoolVarP(&opts.force, "force", "f", false, "Overwrite an existing output document")
	cmd.Flags().BoolVarP(&opts.dryRun, "dry-run", "n", false, "Merge the documents without writing the output")
	cmd.Flags().StringVarP(&opts.identifier, "identifier", "i", "", "Name recorded in the ledger (default is the output name)")

	return cmd
}

func runCompose(w io.Writer, dir string, opts *composeOptions) error {
	cat, _, err := scanModules(dir)
	if err != nil {
		return err
	}
	for _, warning := range cat.Warnings {
		fmt.Fprintln(w, warningText(warning))
	}

	state := selection.New(cat)
	if err := applySelection(w, state, opts); err != nil {
		return err
	}

	order := state.Order()
	if len(order) == 0 {
		return errors.Wrap(errors.ErrEmptyInput, "nothing selected, use --preset, --select or --all")
	}

	output := opts.output
	if output == "" {
		output = cfg.OutputPath()
	}
	if _, err := os.Stat(output); err == nil && !opts.force && !opts.dryRun {
		return errors.NewFileError("output already exists, use --force to overwrite", output, errors.InvalidPath, nil)
	}

	fmt.Fprintln(w, headerText(fmt.Sprintf("Composition plan (%d documents)", len(order))))
	for i, e := range order {
		fmt.Fprintf(w, "  %2d. %s\n", i+1, e.Filename)
	}
	if state.CoverOnly() {
		fmt.Fprintln(w, warningText("Only the cover is selected"))
	}

	composer := compose.CurrentComposerFactory()
	composer.SetDryRun(opts.dryRun)
	composer.SetCreateDirs(true)

	result, err := composer.Compose(state.Paths(), output)
	if err != nil {
		var composeErr *errors.ComposeError
		if errors.As(err, &composeErr) && composeErr.Hint() != "" {
			fmt.Fprintln(w, infoText("Hint: "+composeErr.Hint()))
		}
		return err
	}

	for _, note := range result.Notes {
		fmt.Fprintln(w, warningText("Left out "+note.String()))
	}
	if result.DryRun {
		fmt.Fprintln(w, infoText(fmt.Sprintf("Dry run complete: %d documents merged, nothing written", len(result.Composed))))
		return nil
	}
	fmt.Fprintln(w, successText(fmt.Sprintf("Wrote %s with %d documents", result.Output, len(result.Composed))))

	if cfg.Ledger.Enabled {
		identifier := opts.identifier
		if identifier == "" {
			identifier = identifierFor(result.Output)
		}
		if err := recordComposition(cfg.Ledger.Path, identifier, result); err != nil {
			// The document is written; a ledger failure does not undo that
			log.LogWithError(err).Warn("failed to record composition")
			fmt.Fprintln(w, warningText("Composition not recorded: "+err.Error()))
		}
	}
	return nil
}

// applySelection applies the selection flags on top of the mandatory set.
func applySelection(w io.Writer, state *selection.State, opts *composeOptions) error {
	if opts.all {
		state.SelectAll()
	}

	if len(opts.presets) > 0 {
		store, err := preset.Load(cfg.Presets.Path, cfg.Presets.Slots)
		if err != nil {
			return err
		}
		for _, key := range opts.presets {
			p, err := store.Lookup(key)
			if err != nil {
				return err
			}
			if state.SelectMatching(p.Prefixes) == 0 {
				fmt.Fprintln(w, warningText(fmt.Sprintf("Preset %s matches no selectable module", p.Name)))
			}
		}
	}

	if len(opts.prefixes) > 0 {
		prefixes := make([]string, 0, len(opts.prefixes))
		for _, p := range opts.prefixes {
			if p = strings.TrimSpace(p); p != "" {
				prefixes = append(prefixes, p)
			}
		}
		if state.SelectMatching(prefixes) == 0 {
			fmt.Fprintln(w, warningText("No selectable module matches "+strings.Join(prefixes, ", ")))
		}
	}

	if opts.cover != "" {
		cover := findCover(state.Catalog(), opts.cover)
		if cover == nil {
			return errors.NewFileError("cover not found", opts.cover, errors.FileNotFound, nil)
		}
		if !state.SelectCover(state.Catalog().Index(cover.Filename)) && state.Cover() != cover {
			fmt.Fprintln(w, warningText(fmt.Sprintf("Cover is locked: %s is mandatory, ignoring --cover %s", state.Cover().Filename, opts.cover)))
		}
	}
	return nil
}

// findCover matches a cover by exact filename first, then by prefix.
func findCover(cat *catalog.Catalog, name string) *catalog.Entry {
	covers := cat.Covers()
	for _, e := range covers {
		if e.Filename == name {
			return e
		}
	}
	for _, e := range covers {
		if strings.HasPrefix(e.Filename, name) {
			return e
		}
	}
	return nil
}

// recordComposition appends a finished composition to the ledger at path.
func recordComposition(path, identifier string, result *compose.Result) error {
	l, err := ledger.Open(path)
	if err != nil {
		return err
	}
	defer l.Close()

	_, err = l.Append(identifier, time.Now(), filepath.Base(result.Output))
	return err
}
