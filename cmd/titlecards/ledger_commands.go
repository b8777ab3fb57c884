package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/CollinHeist/TitleCardMaker-sub003/internal/ledger"
)

func newLedgerCommand(ctx *commandContext) *cobra.Command {
	ledgerCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect and manage the card ledger",
	}

	ledgerCmd.AddCommand(newLedgerListCommand(ctx))
	ledgerCmd.AddCommand(newLedgerMissingCommand(ctx))
	ledgerCmd.AddCommand(newLedgerRemoveCommand(ctx))
	ledgerCmd.AddCommand(newLedgerClearCommand(ctx))

	return ledgerCmd
}

func newLedgerListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string
	var seriesID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List card records",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			var records []*ledger.Record
			if seriesID != "" {
				records, err = store.ListSeries(cmd.Context(), seriesID)
			} else {
				var statuses []ledger.Status
				for _, raw := range listStatuses {
					status, ok := ledger.ParseStatus(raw)
					if !ok {
						return fmt.Errorf("unknown status %q", raw)
					}
					statuses = append(statuses, status)
				}
				records, err = store.List(cmd.Context(), statuses...)
			}
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Ledger is empty")
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Episode", "Status", "Fingerprint", "Built", "Detail"},
				buildLedgerRows(records),
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&listStatuses, "status", nil, "Filter by status (built, failed, missing_source)")
	cmd.Flags().StringVar(&seriesID, "series", "", "Filter by series id")
	return cmd
}

func newLedgerMissingCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "missing",
		Short: "List episodes without a current card artifact",
		Long: "Lists library episodes whose ledger record is absent, failed, " +
			"or points at an artifact no longer on disk.",
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := ctx.loadLibrary()
			if err != nil {
				return fmt.Errorf("load library: %w", err)
			}

			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			var rows [][]string
			for _, series := range lib.Series {
				for _, episode := range series.Episodes {
					record, err := store.Get(cmd.Context(), episode.CardID())
					if err != nil {
						return err
					}
					reason := missingReason(record)
					if reason == "" {
						continue
					}
					rows = append(rows, []string{series.ID, episode.Label(), reason})
				}
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "All episodes have current cards")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Series", "Episode", "Reason"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
}

func newLedgerRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <episode-id>",
		Short: "Remove the card record for one episode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.Remove(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !removed {
				fmt.Fprintf(cmd.OutOrStdout(), "No record for %s\n", args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed record for %s\n", args[0])
			return nil
		},
	}
}

func newLedgerClearCommand(ctx *commandContext) *cobra.Command {
	var failedOnly bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear card records",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			var removed int64
			if failedOnly {
				removed, err = store.ClearFailed(cmd.Context())
			} else {
				removed, err = store.Clear(cmd.Context())
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d record(s)\n", removed)
			return nil
		},
	}

	cmd.Flags().BoolVar(&failedOnly, "failed", false, "Only clear failed and missing-source records")
	return cmd
}

func buildLedgerRows(records []*ledger.Record) [][]string {
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		built := ""
		if record.BuiltAt != nil {
			built = record.BuiltAt.Local().Format(time.DateTime)
		}
		detail := record.ArtifactPath
		if record.ErrorMessage != "" {
			detail = record.ErrorMessage
		}
		rows = append(rows, []string{
			record.EpisodeID,
			string(record.Status),
			shortFingerprint(record.Fingerprint),
			built,
			detail,
		})
	}
	return rows
}

func missingReason(record *ledger.Record) string {
	switch {
	case record == nil:
		return "never built"
	case record.Status != ledger.StatusBuilt:
		return string(record.Status)
	case !record.HasArtifact():
		return "no artifact recorded"
	default:
		if _, err := os.Stat(record.ArtifactPath); err != nil {
			return "artifact missing on disk"
		}
		return ""
	}
}
