package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"betra/internal/catalog"

	"github.com/spf13/cobra"
)

// scanEntry is the JSON form of a catalog entry.
type scanEntry struct {
	Filename  string `json:"filename"`
	Path      string `json:"path"`
	GroupKey  string `json:"group_key"`
	Bucket    int    `json:"bucket"`
	Cover     bool   `json:"cover"`
	Mandatory bool   `json:"mandatory"`
}

// NewScanCmd creates the scan command
func NewScanCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "scan [dir]",
		Short: "List the module documents of a directory",
		Long: `Scan a module directory and print its documents in chapter order,
grouped into cover pages and display buckets. Mandatory modules are marked.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, _, err := scanModules(moduleDir(args))
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeCatalogJSON(cmd.OutOrStdout(), cat)
			}
			printCatalog(cmd.OutOrStdout(), cat)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output the catalog in JSON format")

	return cmd
}

func writeCatalogJSON(w io.Writer, cat *catalog.Catalog) error {
	entries := make([]scanEntry, len(cat.Entries))
	for i, e := range cat.Entries {
		entries[i] = scanEntry{
			Filename:  e.Filename,
			Path:      e.Path,
			GroupKey:  e.GroupKey,
			Bucket:    e.Bucket,
			Cover:     e.Cover,
			Mandatory: e.Mandatory,
		}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// printCatalog writes covers first, then the module buckets in order.
func printCatalog(w io.Writer, cat *catalog.Catalog) {
	for _, warning := range cat.Warnings {
		fmt.Fprintln(w, warningText(warning))
	}
	if cat.Empty() {
		return
	}

	if covers := cat.Covers(); len(covers) > 0 {
		fmt.Fprintln(w, headerText("Cover"))
		for _, e := range covers {
			fmt.Fprintln(w, catalogLine(e))
		}
	}
	for _, col := range cat.Layout() {
		fmt.Fprintln(w, headerText("Chapter "+strings.Join(col.Keys, " · ")))
		for _, e := range col.Entries {
			fmt.Fprintln(w, catalogLine(e))
		}
	}

	mandatory := 0
	for _, e := range cat.Entries {
		if e.Mandatory {
			mandatory++
		}
	}
	fmt.Fprintln(w, mutedText(fmt.Sprintf("%d documents, %d covers, %d mandatory", cat.Len(), len(cat.Covers()), mandatory)))
}

func catalogLine(e *catalog.Entry) string {
	if e.Mandatory {
		return "  ■ " + infoText(e.Filename)
	}
	return "    " + e.Filename
}
