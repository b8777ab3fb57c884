package main

import (
	"fmt"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/CollinHeist/TitleCardMaker-sub003/internal/builder"
	"github.com/CollinHeist/TitleCardMaker-sub003/internal/render"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "run [series-id...]",
		Short: "Build title cards for the library",
		Long: "Resolves configuration for every episode, compares fingerprints " +
			"against the card ledger, and renders the cards that changed. " +
			"Optional series ids restrict the run.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			lock := flock.New(cfg.LockPath())
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire run lock: %w", err)
			}
			if !locked {
				return fmt.Errorf("another run is already in progress (lock %s)", cfg.LockPath())
			}
			defer lock.Unlock()

			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}

			lib, err := ctx.loadLibrary()
			if err != nil {
				return fmt.Errorf("load library: %w", err)
			}

			store, err := ctx.openStore()
			if err != nil {
				return fmt.Errorf("open ledger: %w", err)
			}
			defer store.Close()

			client := render.NewCLI(render.WithBinary(cfg.Renderer.Binary))
			if err := client.HealthCheck(); err != nil {
				return err
			}

			coordinator := builder.New(cfg, lib, store, client, logger)
			plan, err := coordinator.Plan(cmd.Context(), builder.PlanOptions{
				Force:     force,
				SeriesIDs: args,
			})
			if err != nil {
				return fmt.Errorf("plan run: %w", err)
			}

			report := coordinator.Execute(cmd.Context(), plan, cfg.Workflow.Concurrency)

			out := cmd.OutOrStdout()
			if len(report.Outcomes) == 0 {
				fmt.Fprintln(out, "Library has no episodes to build")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Series", "Episode", "Result", "Detail"},
				buildReportRows(report),
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
			))
			fmt.Fprintf(out, "Run %s: %d built, %d skipped, %d failed in %s\n",
				report.RunID,
				report.Count(builder.ResultBuilt),
				report.Count(builder.ResultSkipped),
				len(report.Outcomes)-report.Count(builder.ResultBuilt)-report.Count(builder.ResultSkipped),
				report.Duration.Round(time.Millisecond),
			)
			if report.Failed() {
				return fmt.Errorf("%d episode(s) did not build", len(report.Outcomes)-report.Count(builder.ResultBuilt)-report.Count(builder.ResultSkipped))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Rebuild every card regardless of fingerprint state")
	return cmd
}

func buildReportRows(report *builder.Report) [][]string {
	rows := make([][]string, 0, len(report.Outcomes))
	for _, outcome := range report.Outcomes {
		detail := outcome.Reason
		switch {
		case outcome.Err != nil:
			detail = outcome.Err.Error()
		case outcome.Result == builder.ResultBuilt:
			detail = outcome.ArtifactPath
		}
		rows = append(rows, []string{
			outcome.SeriesID,
			outcome.Label,
			string(outcome.Result),
			detail,
		})
	}
	return rows
}
