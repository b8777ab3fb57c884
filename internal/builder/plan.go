package builder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/CollinHeist/TitleCardMaker-sub003/internal/fingerprint"
	"github.com/CollinHeist/TitleCardMaker-sub003/internal/ledger"
	"github.com/CollinHeist/TitleCardMaker-sub003/internal/library"
	"github.com/CollinHeist/TitleCardMaker-sub003/internal/logging"
	"github.com/CollinHeist/TitleCardMaker-sub003/internal/resolve"
	"github.com/CollinHeist/TitleCardMaker-sub003/internal/services"
	"github.com/CollinHeist/TitleCardMaker-sub003/internal/templates"
)

// PlanOptions controls which episodes a run covers and whether fingerprint
// comparison is bypassed.
type PlanOptions struct {
	// Force schedules a build for every episode regardless of ledger state.
	Force bool
	// SeriesIDs restricts the run to the named series; empty means all.
	SeriesIDs []string
	// RunID is the correlation id for the run; generated when empty.
	RunID string
}

// Plan resolves configuration and fingerprints every episode of the
// snapshot, compares against the ledger, and returns the work list.
// Planning is read-only: outcomes decided here (skips, configuration
// errors, missing sources) are carried in the plan and committed to the
// ledger by Execute.
func (c *Coordinator) Plan(ctx context.Context, opts PlanOptions) (*Plan, error) {
	runID := strings.TrimSpace(opts.RunID)
	if runID == "" {
		runID = uuid.NewString()
	}
	planCtx := services.WithRunID(services.WithStage(ctx, "plan"), runID)
	logger := logging.WithContext(planCtx, c.logger)

	var filter map[string]struct{}
	if len(opts.SeriesIDs) > 0 {
		filter = make(map[string]struct{}, len(opts.SeriesIDs))
		for _, id := range opts.SeriesIDs {
			filter[strings.TrimSpace(id)] = struct{}{}
		}
	}

	plan := &Plan{RunID: runID, Force: opts.Force}
	global := resolve.SettingsFromDefaults(c.cfg.Defaults)

	for _, series := range c.lib.Series {
		if filter != nil {
			if _, ok := filter[series.ID]; !ok {
				continue
			}
		}
		ordered := c.lib.TemplatesFor(series, c.cfg.Defaults.TemplateIDs)
		for _, episode := range series.Episodes {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			c.planEpisode(planCtx, plan, global, series, ordered, episode)
		}
	}

	logger.Info("plan complete",
		logging.Int("episodes", plan.EpisodeCount()),
		logging.Int("builds", len(plan.Tasks)),
		logging.Int("decided", len(plan.Pre)),
		logging.Bool("force", opts.Force),
	)
	return plan, nil
}

func (c *Coordinator) planEpisode(ctx context.Context, plan *Plan, global resolve.Settings, series library.Series, ordered []library.Template, episode library.Episode) {
	logger := logging.WithContext(services.WithSeries(services.WithEpisode(ctx, episode.Key()), series.ID), c.logger)
	outcome := Outcome{
		EpisodeID: episode.CardID(),
		SeriesID:  series.ID,
		Label:     episode.Label(),
	}

	attrs := library.Attributes(series, episode)
	template, matched := templates.Select(c.evaluator, ordered, attrs)
	templateSettings := resolve.Settings{}
	if matched {
		templateSettings = template.Settings
	}

	resolved, err := resolve.Resolve(global, series.Settings, templateSettings, episode.Settings)
	if err != nil {
		outcome.Result = ResultConfigError
		outcome.Err = err
		plan.Pre = append(plan.Pre, outcome)
		logger.Warn("episode resolution failed", logging.Error(err))
		return
	}

	var font *library.Font
	if resolved.FontID != "" {
		entry, ok := c.lib.Font(resolved.FontID)
		if !ok {
			outcome.Result = ResultConfigError
			outcome.Err = services.Wrap(services.ErrConfiguration, "builder", "font",
				fmt.Sprintf("unknown font id %q", resolved.FontID), nil)
			plan.Pre = append(plan.Pre, outcome)
			return
		}
		font = &entry
	}

	task := &Task{
		Episode:    episode,
		Series:     series,
		Resolved:   resolved,
		Font:       font,
		SourcePath: c.locator.EpisodeSource(episode),
		OutputPath: filepath.Join(c.cfg.Paths.CardDir, series.ID, episode.Key()+c.cfg.Renderer.Extension),
		state:      StateNotPlanned,
	}
	if font != nil {
		task.FontPath = c.locator.FontFile(*font)
	}
	if resolved.Descriptor().UsesLogo {
		task.LogoPath = c.locator.Logo(series)
	}

	identities, err := c.locator.Identify(task.assetPaths()...)
	if err != nil {
		if errors.Is(err, services.ErrSourceMissing) {
			outcome.Result = ResultMissingSource
			outcome.Err = err
			plan.Pre = append(plan.Pre, outcome)
			logger.Warn("source asset missing", logging.Error(err))
			return
		}
		outcome.Result = ResultFailed
		outcome.Err = err
		plan.Pre = append(plan.Pre, outcome)
		logger.Error("asset identification failed", logging.Error(err))
		return
	}

	task.Fingerprint = fingerprint.Generate(fingerprint.Input{
		Config: resolved,
		Font:   font,
		Assets: identities,
	})

	if !plan.Force {
		record, err := c.store.Get(ctx, episode.CardID())
		if err != nil {
			outcome.Result = ResultFailed
			outcome.Err = fmt.Errorf("ledger lookup: %w", err)
			plan.Pre = append(plan.Pre, outcome)
			return
		}
		if upToDate(record, task.Fingerprint) {
			outcome.Result = ResultSkipped
			outcome.Reason = "card up to date"
			outcome.Fingerprint = record.Fingerprint
			outcome.ArtifactPath = record.ArtifactPath
			plan.Pre = append(plan.Pre, outcome)
			logger.Debug("card up to date",
				logging.String(logging.FieldFingerprint, task.Fingerprint))
			return
		}
	}

	task.state = StatePlanned
	plan.Tasks = append(plan.Tasks, task)
}

func (t *Task) assetPaths() []string {
	paths := []string{t.SourcePath}
	if t.FontPath != "" {
		paths = append(paths, t.FontPath)
	}
	if t.LogoPath != "" {
		paths = append(paths, t.LogoPath)
	}
	return paths
}

// upToDate reports whether the ledger already holds a successful build
// with an identical fingerprint and an artifact still on disk.
func upToDate(record *ledger.Record, fp string) bool {
	if record == nil || record.Status != ledger.StatusBuilt || !record.HasArtifact() {
		return false
	}
	if record.Fingerprint != fp {
		return false
	}
	if _, err := os.Stat(record.ArtifactPath); err != nil {
		return false
	}
	return true
}
