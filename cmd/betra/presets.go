package main

import (
	"fmt"
	"strconv"

	"betra/internal/errors"
	"betra/internal/preset"

	"github.com/spf13/cobra"
)

// NewPresetsCmd creates the presets command
func NewPresetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presets",
		Short: "Manage selection presets",
		Long: `Presets are named lists of filename prefixes stored in numbered slots.
Applying a preset selects every matching module, or deselects the group
when all of it is already selected.`,
	}

	cmd.AddCommand(newPresetsListCmd())
	cmd.AddCommand(newPresetsSetCmd())
	cmd.AddCommand(newPresetsClearCmd())

	return cmd
}

func loadPresets() (*preset.Store, error) {
	return preset.Load(cfg.Presets.Path, cfg.Presets.Slots)
}

func newPresetsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the preset slots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := loadPresets()
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, headerText("Presets ("+store.Path()+")"))
			for i, p := range store.All() {
				if p.IsZero() {
					fmt.Fprintf(w, "  %d  %s\n", i+1, mutedText("(empty)"))
					continue
				}
				fmt.Fprintf(w, "  %d  %s  %s\n", i+1, primaryText(p.Name), p.String())
			}
			return nil
		},
	}
}

func newPresetsSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "set <slot> <name> <prefixes>",
		Short:   "Store a preset in a slot",
		Example: `  betra presets set 2 Baugleis "3.0., 3.1., 5.3.14"`,
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			slot, err := parseSlot(args[0])
			if err != nil {
				return err
			}
			p, err := preset.Parse(args[1], args[2])
			if err != nil {
				return err
			}

			store, err := loadPresets()
			if err != nil {
				return err
			}
			if err := store.Set(slot, p); err != nil {
				return err
			}
			if err := store.Save(); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), successText(fmt.Sprintf("Preset %s stored in slot %d", p.Name, slot)))
			return nil
		},
	}
}

func newPresetsClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <slot>",
		Short: "Empty a preset slot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slot, err := parseSlot(args[0])
			if err != nil {
				return err
			}

			store, err := loadPresets()
			if err != nil {
				return err
			}
			if err := store.Set(slot, preset.Preset{}); err != nil {
				return err
			}
			if err := store.Save(); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), successText(fmt.Sprintf("Slot %d cleared", slot)))
			return nil
		},
	}
}

func parseSlot(arg string) (int, error) {
	slot, err := strconv.Atoi(arg)
	if err != nil {
		return 0, errors.NewPresetError("slot must be a number", arg, errors.InvalidPreset, err)
	}
	return slot, nil
}
