package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CollinHeist/TitleCardMaker-sub003/internal/builder"
	"github.com/CollinHeist/TitleCardMaker-sub003/internal/logging"
	"github.com/CollinHeist/TitleCardMaker-sub003/internal/render"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "plan [series-id...]",
		Short: "Show what a run would build without rendering anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
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

			coordinator := builder.New(cfg, lib, store, render.NewCLI(render.WithBinary(cfg.Renderer.Binary)), logging.NewNop())
			plan, err := coordinator.Plan(cmd.Context(), builder.PlanOptions{
				Force:     force,
				SeriesIDs: args,
			})
			if err != nil {
				return fmt.Errorf("plan run: %w", err)
			}

			out := cmd.OutOrStdout()
			if plan.EpisodeCount() == 0 {
				fmt.Fprintln(out, "Library has no episodes to build")
				return nil
			}

			rows := make([][]string, 0, plan.EpisodeCount())
			for _, task := range plan.Tasks {
				rows = append(rows, []string{
					task.Series.ID,
					task.Episode.Label(),
					"build",
					shortFingerprint(task.Fingerprint),
				})
			}
			for _, pre := range plan.Pre {
				detail := pre.Reason
				if pre.Err != nil {
					detail = pre.Err.Error()
				}
				rows = append(rows, []string{
					pre.SeriesID,
					pre.Label,
					string(pre.Result),
					detail,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Series", "Episode", "Action", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
			))
			fmt.Fprintf(out, "%d of %d episode(s) would build\n", len(plan.Tasks), plan.EpisodeCount())
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Plan a rebuild of every card regardless of fingerprint state")
	return cmd
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
