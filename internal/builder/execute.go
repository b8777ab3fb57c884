package builder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/CollinHeist/TitleCardMaker-sub003/internal/ledger"
	"github.com/CollinHeist/TitleCardMaker-sub003/internal/logging"
	"github.com/CollinHeist/TitleCardMaker-sub003/internal/render"
	"github.com/CollinHeist/TitleCardMaker-sub003/internal/services"
)

// Execute runs the plan on a bounded worker pool and returns the run
// report. One episode's failure never aborts the batch: every planned
// episode produces exactly one outcome. Cancellation lets in-flight
// renders finish and drops not-yet-started tasks.
func (c *Coordinator) Execute(ctx context.Context, plan *Plan, concurrency int) *Report {
	if concurrency <= 0 {
		concurrency = 1
	}
	started := time.Now()
	runCtx := services.WithRunID(services.WithStage(ctx, "build"), plan.RunID)
	logger := logging.WithContext(runCtx, c.logger)

	outcomes := make([]Outcome, 0, plan.EpisodeCount())

	// Commit the decisions planning already made. Skips leave the ledger
	// untouched; configuration and missing-source failures are recorded
	// so the prior successful record survives underneath them.
	for _, pre := range plan.Pre {
		c.commitPreOutcome(runCtx, logger, pre)
		outcomes = append(outcomes, pre)
	}

	var mu sync.Mutex
	group := new(errgroup.Group)
	group.SetLimit(concurrency)

	for _, task := range plan.Tasks {
		task := task
		if runCtx.Err() != nil {
			mu.Lock()
			outcomes = append(outcomes, cancelledOutcome(task))
			mu.Unlock()
			continue
		}
		group.Go(func() error {
			var outcome Outcome
			if runCtx.Err() != nil {
				outcome = cancelledOutcome(task)
			} else {
				outcome = c.buildTask(runCtx, task)
			}
			mu.Lock()
			outcomes = append(outcomes, outcome)
			mu.Unlock()
			return nil
		})
	}
	_ = group.Wait()

	sortOutcomes(outcomes)
	report := &Report{
		RunID:    plan.RunID,
		Started:  started,
		Duration: time.Since(started),
		Outcomes: outcomes,
	}

	logger.Info("run complete",
		logging.Int("episodes", len(report.Outcomes)),
		logging.Int("built", report.Count(ResultBuilt)),
		logging.Int("skipped", report.Count(ResultSkipped)),
		logging.Int("failed", report.Count(ResultFailed)),
		logging.Int("config_errors", report.Count(ResultConfigError)),
		logging.Int("missing_source", report.Count(ResultMissingSource)),
		logging.Duration("duration", report.Duration),
	)
	return report
}

func (c *Coordinator) commitPreOutcome(ctx context.Context, logger *slog.Logger, pre Outcome) {
	var status ledger.Status
	switch pre.Result {
	case ResultConfigError, ResultFailed:
		status = ledger.StatusFailed
	case ResultMissingSource:
		status = ledger.StatusMissingSource
	default:
		return
	}
	message := pre.Reason
	if pre.Err != nil {
		message = pre.Err.Error()
	}
	if err := c.store.MarkFailed(ctx, pre.EpisodeID, pre.SeriesID, status, message); err != nil {
		logger.Error("failed to persist planning outcome", logging.Error(err))
	}
}

func cancelledOutcome(task *Task) Outcome {
	return Outcome{
		EpisodeID: task.Episode.CardID(),
		SeriesID:  task.Series.ID,
		Label:     task.Episode.Label(),
		Result:    ResultSkipped,
		Reason:    "run cancelled",
	}
}

// buildTask executes one task under the single-flight guard: concurrent
// requests for the same episode id share one renderer invocation and its
// result.
func (c *Coordinator) buildTask(ctx context.Context, task *Task) Outcome {
	result, _, _ := c.flight.Do(task.Episode.CardID(), func() (any, error) {
		return c.buildOnce(ctx, task), nil
	})
	outcome, ok := result.(Outcome)
	if !ok {
		outcome = Outcome{
			EpisodeID: task.Episode.CardID(),
			SeriesID:  task.Series.ID,
			Label:     task.Episode.Label(),
			Result:    ResultFailed,
			Err:       errors.New("unexpected single-flight result"),
		}
	}
	return outcome
}

func (c *Coordinator) buildOnce(ctx context.Context, task *Task) Outcome {
	task.state = StateInFlight
	episodeCtx := services.WithSeries(services.WithEpisode(ctx, task.Episode.Key()), task.Series.ID)
	logger := logging.WithContext(episodeCtx, c.logger)

	// Ledger commits run on a cancellation-detached context: once a task
	// is in flight it completes, and a render that finished during
	// cancellation must still be recorded.
	commitCtx := context.WithoutCancel(episodeCtx)

	outcome := Outcome{
		EpisodeID:   task.Episode.CardID(),
		SeriesID:    task.Series.ID,
		Label:       task.Episode.Label(),
		Fingerprint: task.Fingerprint,
	}

	fail := func(status ledger.Status, result Result, err error) Outcome {
		task.state = StateFailed
		outcome.Result = result
		outcome.Err = err
		if putErr := c.store.MarkFailed(commitCtx, outcome.EpisodeID, outcome.SeriesID, status, err.Error()); putErr != nil {
			logger.Error("failed to persist failure", logging.Error(putErr))
		}
		return outcome
	}

	// Re-check the sources right before spending a render on them; a file
	// removed since planning short-circuits here.
	if _, err := c.locator.Identify(task.assetPaths()...); err != nil {
		if errors.Is(err, services.ErrSourceMissing) {
			logger.Warn("source asset missing", logging.Error(err))
			return fail(ledger.StatusMissingSource, ResultMissingSource, err)
		}
		return fail(ledger.StatusFailed, ResultFailed, err)
	}

	if err := os.MkdirAll(filepath.Dir(task.OutputPath), 0o755); err != nil {
		return fail(ledger.StatusFailed, ResultFailed, fmt.Errorf("create card directory: %w", err))
	}

	request := render.Request{
		Config:      task.Resolved,
		Font:        task.Font,
		Style:       task.Resolved.Style(task.Episode.Watched),
		SourcePath:  task.SourcePath,
		FontPath:    task.FontPath,
		LogoPath:    task.LogoPath,
		OutputPath:  task.OutputPath,
		Title:       task.Episode.Title,
		SeasonText:  seasonText(task),
		EpisodeText: episodeText(task),
	}

	artifact, err := c.renderWithRetry(episodeCtx, logger, request)
	if err != nil {
		logger.Error("card build failed", logging.Error(err))
		return fail(ledger.StatusFailed, ResultFailed, err)
	}

	now := time.Now().UTC()
	record := ledger.Record{
		EpisodeID:    outcome.EpisodeID,
		SeriesID:     outcome.SeriesID,
		Fingerprint:  task.Fingerprint,
		ArtifactPath: artifact,
		BuiltAt:      &now,
	}
	if err := c.store.Put(commitCtx, record); err != nil {
		// The artifact exists but the ledger missed it; the next run will
		// rebuild and converge.
		logger.Error("failed to persist card record", logging.Error(err))
		return fail(ledger.StatusFailed, ResultFailed, fmt.Errorf("persist card record: %w", err))
	}

	task.state = StateBuilt
	outcome.Result = ResultBuilt
	outcome.ArtifactPath = artifact
	logger.Info("card built",
		logging.String(logging.FieldFingerprint, task.Fingerprint),
		logging.String("artifact", artifact),
	)
	return outcome
}

// renderWithRetry invokes the compositor with a per-attempt wall-clock
// timeout and bounded backoff retries for transient failures. The render
// context is detached from run cancellation so an in-flight render is
// allowed to complete.
func (c *Coordinator) renderWithRetry(ctx context.Context, logger *slog.Logger, request render.Request) (string, error) {
	timeout := time.Duration(c.cfg.Renderer.TimeoutSeconds) * time.Second
	backoff := time.Duration(c.cfg.Renderer.RetryBackoffMS) * time.Millisecond
	maxAttempts := c.cfg.Renderer.MaxRetries + 1

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		renderCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		artifact, err := c.client.Render(renderCtx, request, nil)
		timedOut := renderCtx.Err() != nil
		cancel()

		if err == nil {
			return artifact, nil
		}

		if timedOut {
			lastErr = services.Wrap(services.ErrTimeout, "render", "compositor",
				fmt.Sprintf("timed out after %s", timeout), err)
		} else {
			lastErr = services.Wrap(services.ErrExternalTool, "render", "compositor", "", err)
		}

		if attempt == maxAttempts || !services.IsRetryable(lastErr) {
			break
		}
		logger.Warn("render attempt failed; retrying",
			logging.Int("attempt", attempt),
			logging.Duration("backoff", backoff),
			logging.Error(lastErr),
		)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return "", lastErr
		}
		backoff *= 2
	}
	return "", lastErr
}
