package main

import (
	"fmt"

	"betra/internal/ledger"

	"github.com/spf13/cobra"
)

// NewLedgerCmd creates the ledger command
func NewLedgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect the record of finished compositions",
	}

	cmd.AddCommand(newLedgerListCmd())

	return cmd
}

func newLedgerListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded compositions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if !cfg.Ledger.Enabled {
				fmt.Fprintln(w, infoText("The ledger is disabled; set ledger.enabled in the configuration to record compositions"))
			}

			l, err := ledger.Open(cfg.Ledger.Path)
			if err != nil {
				return err
			}
			defer l.Close()

			records, err := l.List(limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(w, mutedText("No compositions recorded"))
				return nil
			}
			for _, rec := range records {
				fmt.Fprintf(w, "%s  %s  %s\n",
					rec.Timestamp.Local().Format("2006-01-02 15:04:05"),
					primaryText(rec.Identifier),
					rec.Output,
				)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Maximum number of records (0 lists all)")

	return cmd
}
