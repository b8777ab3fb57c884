package builder_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/CollinHeist/TitleCardMaker-sub003/internal/builder"
	"github.com/CollinHeist/TitleCardMaker-sub003/internal/conditions"
	"github.com/CollinHeist/TitleCardMaker-sub003/internal/config"
	"github.com/CollinHeist/TitleCardMaker-sub003/internal/ledger"
	"github.com/CollinHeist/TitleCardMaker-sub003/internal/library"
	"github.com/CollinHeist/TitleCardMaker-sub003/internal/logging"
	"github.com/CollinHeist/TitleCardMaker-sub003/internal/resolve"
	"github.com/CollinHeist/TitleCardMaker-sub003/internal/services"
	"github.com/CollinHeist/TitleCardMaker-sub003/internal/testsupport"
)

func testLibrary(episodes int) *library.Library {
	series := library.Series{ID: "show", Name: "The Show", Year: 2020}
	for i := 1; i <= episodes; i++ {
		series.Episodes = append(series.Episodes, library.Episode{
			SeriesID: "show",
			Season:   1,
			Number:   i,
			Title:    fmt.Sprintf("Episode %d", i),
		})
	}
	return &library.Library{
		Fonts:     map[string]library.Font{},
		Templates: map[string]library.Template{},
		Series:    []library.Series{series},
	}
}

func writeSources(t *testing.T, cfg *config.Config, lib *library.Library) {
	t.Helper()
	for _, series := range lib.Series {
		for _, episode := range series.Episodes {
			testsupport.WriteSourceImage(t, cfg, series.ID, episode.Key())
		}
	}
}

func runOnce(t *testing.T, coordinator *builder.Coordinator, cfg *config.Config, opts builder.PlanOptions) *builder.Report {
	t.Helper()
	plan, err := coordinator.Plan(context.Background(), opts)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	return coordinator.Execute(context.Background(), plan, cfg.Workflow.Concurrency)
}

func TestBuildAndSkipUnchanged(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	lib := testLibrary(3)
	writeSources(t, cfg, lib)
	store := testsupport.MustOpenStore(t, cfg)
	renderer := testsupport.NewFakeRenderer()

	coordinator := builder.New(cfg, lib, store, renderer, logging.NewNop())

	report := runOnce(t, coordinator, cfg, builder.PlanOptions{})
	if got := report.Count(builder.ResultBuilt); got != 3 {
		t.Fatalf("first run built %d, want 3", got)
	}
	if renderer.Calls() != 3 {
		t.Fatalf("renderer called %d times, want 3", renderer.Calls())
	}
	if report.Failed() {
		t.Fatal("first run should not report failure")
	}

	// Nothing changed: the second run skips every episode without touching
	// the renderer.
	report = runOnce(t, coordinator, cfg, builder.PlanOptions{})
	if got := report.Count(builder.ResultSkipped); got != 3 {
		t.Fatalf("second run skipped %d, want 3", got)
	}
	if renderer.Calls() != 3 {
		t.Fatalf("renderer called %d times after no-op run, want 3", renderer.Calls())
	}
}

func TestForceRebuilds(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	lib := testLibrary(2)
	writeSources(t, cfg, lib)
	store := testsupport.MustOpenStore(t, cfg)
	renderer := testsupport.NewFakeRenderer()

	coordinator := builder.New(cfg, lib, store, renderer, logging.NewNop())
	runOnce(t, coordinator, cfg, builder.PlanOptions{})

	report := runOnce(t, coordinator, cfg, builder.PlanOptions{Force: true})
	if got := report.Count(builder.ResultBuilt); got != 2 {
		t.Fatalf("forced run built %d, want 2", got)
	}
	if renderer.Calls() != 4 {
		t.Fatalf("renderer called %d times, want 4", renderer.Calls())
	}
}

func TestSettingsChangeTriggersRebuild(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	lib := testLibrary(2)
	writeSources(t, cfg, lib)
	store := testsupport.MustOpenStore(t, cfg)
	renderer := testsupport.NewFakeRenderer()

	coordinator := builder.New(cfg, lib, store, renderer, logging.NewNop())
	runOnce(t, coordinator, cfg, builder.PlanOptions{})

	// An episode-level override changes that episode's fingerprint only.
	lib.Series[0].Episodes[0].Settings = resolve.Settings{
		SeasonText: resolve.Some("Book {season}"),
	}
	report := runOnce(t, coordinator, cfg, builder.PlanOptions{})
	if got := report.Count(builder.ResultBuilt); got != 1 {
		t.Fatalf("built %d after settings change, want 1", got)
	}
	if got := report.Count(builder.ResultSkipped); got != 1 {
		t.Fatalf("skipped %d after settings change, want 1", got)
	}
}

func TestSourceChangeTriggersRebuild(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	lib := testLibrary(1)
	path := testsupport.WriteSourceImage(t, cfg, "show", "s01e01")
	store := testsupport.MustOpenStore(t, cfg)
	renderer := testsupport.NewFakeRenderer()

	coordinator := builder.New(cfg, lib, store, renderer, logging.NewNop())
	runOnce(t, coordinator, cfg, builder.PlanOptions{})

	if err := os.WriteFile(path, []byte("replaced image bytes"), 0o644); err != nil {
		t.Fatalf("replace source: %v", err)
	}
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	report := runOnce(t, coordinator, cfg, builder.PlanOptions{})
	if got := report.Count(builder.ResultBuilt); got != 1 {
		t.Fatalf("built %d after source change, want 1", got)
	}
}

func TestMissingArtifactTriggersRebuild(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	lib := testLibrary(1)
	writeSources(t, cfg, lib)
	store := testsupport.MustOpenStore(t, cfg)
	renderer := testsupport.NewFakeRenderer()

	coordinator := builder.New(cfg, lib, store, renderer, logging.NewNop())
	report := runOnce(t, coordinator, cfg, builder.PlanOptions{})
	artifact := report.Outcomes[0].ArtifactPath
	if artifact == "" {
		t.Fatal("first run produced no artifact path")
	}

	if err := os.Remove(artifact); err != nil {
		t.Fatalf("remove artifact: %v", err)
	}

	report = runOnce(t, coordinator, cfg, builder.PlanOptions{})
	if got := report.Count(builder.ResultBuilt); got != 1 {
		t.Fatalf("built %d after artifact removal, want 1", got)
	}
}

func TestPartialFailureIsolation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	lib := testLibrary(10)
	writeSources(t, cfg, lib)
	// Episode 4 resolves to an unknown card type.
	lib.Series[0].Episodes[3].Settings = resolve.Settings{
		CardType: resolve.Some("holographic"),
	}
	store := testsupport.MustOpenStore(t, cfg)
	renderer := testsupport.NewFakeRenderer()

	coordinator := builder.New(cfg, lib, store, renderer, logging.NewNop())
	report := runOnce(t, coordinator, cfg, builder.PlanOptions{})

	if len(report.Outcomes) != 10 {
		t.Fatalf("report has %d outcomes, want one per episode", len(report.Outcomes))
	}
	if got := report.Count(builder.ResultBuilt); got != 9 {
		t.Fatalf("built %d, want 9", got)
	}
	if got := report.Count(builder.ResultConfigError); got != 1 {
		t.Fatalf("config errors = %d, want 1", got)
	}
	if !report.Failed() {
		t.Fatal("report should flag the failed episode")
	}

	record, err := store.Get(context.Background(), "show/s01e04")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if record == nil || record.Status != ledger.StatusFailed {
		t.Fatalf("episode 4 record = %+v, want failed status", record)
	}
	if record.ErrorMessage == "" {
		t.Error("failed record should carry an error message")
	}
}

func TestMissingSource(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	lib := testLibrary(2)
	testsupport.WriteSourceImage(t, cfg, "show", "s01e01")
	store := testsupport.MustOpenStore(t, cfg)
	renderer := testsupport.NewFakeRenderer()

	coordinator := builder.New(cfg, lib, store, renderer, logging.NewNop())
	report := runOnce(t, coordinator, cfg, builder.PlanOptions{})

	if got := report.Count(builder.ResultBuilt); got != 1 {
		t.Fatalf("built %d, want 1", got)
	}
	if got := report.Count(builder.ResultMissingSource); got != 1 {
		t.Fatalf("missing source = %d, want 1", got)
	}
	if renderer.Calls() != 1 {
		t.Fatalf("renderer called %d times, want 1 (no render charged for missing source)", renderer.Calls())
	}

	record, err := store.Get(context.Background(), "show/s01e02")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if record == nil || record.Status != ledger.StatusMissingSource {
		t.Fatalf("record = %+v, want missing_source status", record)
	}

	// The source appears later; the next run builds it and clears the
	// failure marker.
	testsupport.WriteSourceImage(t, cfg, "show", "s01e02")
	report = runOnce(t, coordinator, cfg, builder.PlanOptions{})
	if got := report.Count(builder.ResultBuilt); got != 1 {
		t.Fatalf("built %d after source appeared, want 1", got)
	}
	record, err = store.Get(context.Background(), "show/s01e02")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if record.Status != ledger.StatusBuilt {
		t.Fatalf("record status = %q, want built", record.Status)
	}
}

func TestFailurePreservesPriorRecord(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	lib := testLibrary(1)
	writeSources(t, cfg, lib)
	store := testsupport.MustOpenStore(t, cfg)
	renderer := testsupport.NewFakeRenderer()

	coordinator := builder.New(cfg, lib, store, renderer, logging.NewNop())
	runOnce(t, coordinator, cfg, builder.PlanOptions{})

	first, err := store.Get(context.Background(), "show/s01e01")
	if err != nil || first == nil {
		t.Fatalf("Get after build: %v, %+v", err, first)
	}

	// Renderer breaks, force a rebuild: the run fails but the prior
	// fingerprint and artifact survive in the ledger.
	sourcePath := filepath.Join(cfg.Paths.SourceDir, "show", "s01e01.jpg")
	renderer.FailFor[sourcePath] = -1

	report := runOnce(t, coordinator, cfg, builder.PlanOptions{Force: true})
	if got := report.Count(builder.ResultFailed); got != 1 {
		t.Fatalf("failed = %d, want 1", got)
	}

	record, err := store.Get(context.Background(), "show/s01e01")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if record.Status != ledger.StatusFailed {
		t.Errorf("status = %q, want failed", record.Status)
	}
	if record.Fingerprint != first.Fingerprint {
		t.Errorf("fingerprint = %q, want preserved %q", record.Fingerprint, first.Fingerprint)
	}
	if record.ArtifactPath != first.ArtifactPath {
		t.Errorf("artifact = %q, want preserved %q", record.ArtifactPath, first.ArtifactPath)
	}
}

func TestRenderRetrySucceeds(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMaxRetries(2))
	lib := testLibrary(1)
	sourcePath := testsupport.WriteSourceImage(t, cfg, "show", "s01e01")
	store := testsupport.MustOpenStore(t, cfg)
	renderer := testsupport.NewFakeRenderer()
	renderer.FailFor[sourcePath] = 1

	coordinator := builder.New(cfg, lib, store, renderer, logging.NewNop())
	report := runOnce(t, coordinator, cfg, builder.PlanOptions{})

	if got := report.Count(builder.ResultBuilt); got != 1 {
		t.Fatalf("built %d, want 1 after retry", got)
	}
	if got := renderer.CallsFor(sourcePath); got != 2 {
		t.Fatalf("renderer called %d times for episode, want 2", got)
	}
}

func TestRenderRetriesExhausted(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMaxRetries(1))
	lib := testLibrary(1)
	sourcePath := testsupport.WriteSourceImage(t, cfg, "show", "s01e01")
	store := testsupport.MustOpenStore(t, cfg)
	renderer := testsupport.NewFakeRenderer()
	renderer.FailFor[sourcePath] = -1

	coordinator := builder.New(cfg, lib, store, renderer, logging.NewNop())
	report := runOnce(t, coordinator, cfg, builder.PlanOptions{})

	if got := report.Count(builder.ResultFailed); got != 1 {
		t.Fatalf("failed = %d, want 1", got)
	}
	if got := renderer.CallsFor(sourcePath); got != 2 {
		t.Fatalf("renderer called %d times, want max attempts 2", got)
	}
}

func TestSeriesFilter(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	lib := testLibrary(2)
	lib.Series = append(lib.Series, library.Series{
		ID: "other",
		Episodes: []library.Episode{
			{SeriesID: "other", Season: 1, Number: 1},
		},
	})
	writeSources(t, cfg, lib)
	store := testsupport.MustOpenStore(t, cfg)
	renderer := testsupport.NewFakeRenderer()

	coordinator := builder.New(cfg, lib, store, renderer, logging.NewNop())
	report := runOnce(t, coordinator, cfg, builder.PlanOptions{SeriesIDs: []string{"other"}})

	if len(report.Outcomes) != 1 {
		t.Fatalf("filtered run has %d outcomes, want 1", len(report.Outcomes))
	}
	if report.Outcomes[0].SeriesID != "other" {
		t.Fatalf("outcome series = %q", report.Outcomes[0].SeriesID)
	}
}

func TestPlanIsReadOnly(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	lib := testLibrary(1)
	lib.Series[0].Episodes[0].Settings = resolve.Settings{
		CardType: resolve.Some("holographic"),
	}
	writeSources(t, cfg, lib)
	store := testsupport.MustOpenStore(t, cfg)

	coordinator := builder.New(cfg, lib, store, testsupport.NewFakeRenderer(), logging.NewNop())
	plan, err := coordinator.Plan(context.Background(), builder.PlanOptions{})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(plan.Pre) != 1 {
		t.Fatalf("plan has %d pre-decided outcomes, want 1", len(plan.Pre))
	}

	// Planning alone must not write to the ledger.
	record, err := store.Get(context.Background(), "show/s01e01")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if record != nil {
		t.Fatalf("ledger written during planning: %+v", record)
	}

	coordinator.Execute(context.Background(), plan, 1)
	record, err = store.Get(context.Background(), "show/s01e01")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if record == nil || record.Status != ledger.StatusFailed {
		t.Fatalf("record after execute = %+v, want failed", record)
	}
}

func TestTemplateConditionsDriveSettings(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	lib := testLibrary(2)
	lib.Series[0].Episodes[0].Watched = true
	lib.Templates["watched-blur"] = library.Template{
		ID: "watched-blur",
		Conditions: []conditions.Condition{
			{Argument: "watched", Operator: conditions.OpIsTrue},
		},
		Settings: resolve.Settings{WatchedStyle: resolve.Some("blur")},
	}
	lib.Series[0].TemplateIDs = []string{"watched-blur"}
	writeSources(t, cfg, lib)
	store := testsupport.MustOpenStore(t, cfg)
	renderer := testsupport.NewFakeRenderer()

	coordinator := builder.New(cfg, lib, store, renderer, logging.NewNop())
	report := runOnce(t, coordinator, cfg, builder.PlanOptions{})
	if got := report.Count(builder.ResultBuilt); got != 2 {
		t.Fatalf("built %d, want 2", got)
	}

	// Toggling watched on the second episode changes which template
	// matches and therefore its fingerprint.
	lib.Series[0].Episodes[1].Watched = true
	report = runOnce(t, coordinator, cfg, builder.PlanOptions{})
	if got := report.Count(builder.ResultBuilt); got != 1 {
		t.Fatalf("built %d after watch-state change, want 1", got)
	}
	if got := report.Count(builder.ResultSkipped); got != 1 {
		t.Fatalf("skipped %d, want 1", got)
	}
}

func TestCancelledRunDropsPendingTasks(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	lib := testLibrary(3)
	writeSources(t, cfg, lib)
	store := testsupport.MustOpenStore(t, cfg)
	renderer := testsupport.NewFakeRenderer()

	coordinator := builder.New(cfg, lib, store, renderer, logging.NewNop())
	plan, err := coordinator.Plan(context.Background(), builder.PlanOptions{})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report := coordinator.Execute(ctx, plan, 1)

	if len(report.Outcomes) != 3 {
		t.Fatalf("report has %d outcomes, want 3", len(report.Outcomes))
	}
	for _, outcome := range report.Outcomes {
		if outcome.Result != builder.ResultSkipped || outcome.Reason != "run cancelled" {
			t.Fatalf("outcome = %+v, want cancelled skip", outcome)
		}
	}
	if renderer.Calls() != 0 {
		t.Fatalf("renderer called %d times on cancelled run", renderer.Calls())
	}
}

func TestCancelDuringRenderStillCommits(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	lib := testLibrary(1)
	writeSources(t, cfg, lib)
	store := testsupport.MustOpenStore(t, cfg)
	renderer := testsupport.NewFakeRenderer()
	renderer.Block = make(chan struct{})

	coordinator := builder.New(cfg, lib, store, renderer, logging.NewNop())
	plan, err := coordinator.Plan(context.Background(), builder.PlanOptions{})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	reports := make(chan *builder.Report, 1)
	go func() {
		reports <- coordinator.Execute(ctx, plan, 1)
	}()

	// Cancel the run while the render is in flight, then let it finish.
	deadline := time.After(2 * time.Second)
	for renderer.Calls() == 0 {
		select {
		case <-deadline:
			t.Fatal("render never started")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	close(renderer.Block)

	report := <-reports
	if got := report.Count(builder.ResultBuilt); got != 1 {
		t.Fatalf("built %d, want the in-flight render to complete", got)
	}

	// The completed render is committed even though the run context was
	// cancelled before the ledger write.
	record, err := store.Get(context.Background(), "show/s01e01")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if record == nil || record.Status != ledger.StatusBuilt {
		t.Fatalf("record = %+v, want built status", record)
	}
	if record.ArtifactPath == "" || record.Fingerprint == "" {
		t.Fatalf("record = %+v, want artifact and fingerprint recorded", record)
	}
}

func TestRenderTimeoutFailsEpisode(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Renderer.TimeoutSeconds = 1
	lib := testLibrary(1)
	writeSources(t, cfg, lib)
	store := testsupport.MustOpenStore(t, cfg)
	renderer := testsupport.NewFakeRenderer()
	// Never released: every attempt runs into the per-attempt deadline.
	renderer.Block = make(chan struct{})

	coordinator := builder.New(cfg, lib, store, renderer, logging.NewNop())
	report := runOnce(t, coordinator, cfg, builder.PlanOptions{})

	if got := report.Count(builder.ResultFailed); got != 1 {
		t.Fatalf("failed = %d, want 1", got)
	}
	outcome := report.Outcomes[0]
	if !errors.Is(outcome.Err, services.ErrTimeout) {
		t.Fatalf("outcome err = %v, want timeout classification", outcome.Err)
	}
	if !services.IsRetryable(outcome.Err) {
		t.Fatal("timeout should be classified retryable")
	}
	if renderer.Calls() != 1 {
		t.Fatalf("renderer called %d times with no retries configured, want 1", renderer.Calls())
	}

	record, err := store.Get(context.Background(), "show/s01e01")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if record == nil || record.Status != ledger.StatusFailed {
		t.Fatalf("record = %+v, want failed status", record)
	}
}

func TestConcurrentRunsShareOneRender(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	lib := testLibrary(1)
	writeSources(t, cfg, lib)
	store := testsupport.MustOpenStore(t, cfg)
	renderer := testsupport.NewFakeRenderer()
	renderer.Block = make(chan struct{})

	coordinator := builder.New(cfg, lib, store, renderer, logging.NewNop())

	planA, err := coordinator.Plan(context.Background(), builder.PlanOptions{})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	planB, err := coordinator.Plan(context.Background(), builder.PlanOptions{})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	reports := make(chan *builder.Report, 2)
	for _, plan := range []*builder.Plan{planA, planB} {
		plan := plan
		go func() {
			reports <- coordinator.Execute(context.Background(), plan, 1)
		}()
	}

	// Let both executions reach the single-flight guard, then release the
	// blocked render.
	time.Sleep(50 * time.Millisecond)
	close(renderer.Block)

	for i := 0; i < 2; i++ {
		report := <-reports
		if got := report.Count(builder.ResultBuilt); got != 1 {
			t.Fatalf("report %d built %d, want 1", i, got)
		}
	}
	if renderer.Calls() != 1 {
		t.Fatalf("renderer called %d times for overlapping runs, want 1", renderer.Calls())
	}
}

func TestOutcomesSortedByEpisode(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	lib := testLibrary(5)
	writeSources(t, cfg, lib)
	store := testsupport.MustOpenStore(t, cfg)

	coordinator := builder.New(cfg, lib, store, testsupport.NewFakeRenderer(), logging.NewNop())
	report := runOnce(t, coordinator, cfg, builder.PlanOptions{})

	for i := 1; i < len(report.Outcomes); i++ {
		if report.Outcomes[i-1].EpisodeID > report.Outcomes[i].EpisodeID {
			t.Fatalf("outcomes out of order: %s before %s",
				report.Outcomes[i-1].EpisodeID, report.Outcomes[i].EpisodeID)
		}
	}
}

func TestRunIDGenerated(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	lib := testLibrary(1)
	writeSources(t, cfg, lib)
	store := testsupport.MustOpenStore(t, cfg)

	coordinator := builder.New(cfg, lib, store, testsupport.NewFakeRenderer(), logging.NewNop())
	plan, err := coordinator.Plan(context.Background(), builder.PlanOptions{})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if plan.RunID == "" {
		t.Fatal("plan should carry a generated run id")
	}

	plan, err = coordinator.Plan(context.Background(), builder.PlanOptions{RunID: "fixed-id"})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if plan.RunID != "fixed-id" {
		t.Fatalf("RunID = %q, want fixed-id", plan.RunID)
	}
}
