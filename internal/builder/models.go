package builder

import (
	"sort"
	"time"

	"github.com/CollinHeist/TitleCardMaker-sub003/internal/library"
	"github.com/CollinHeist/TitleCardMaker-sub003/internal/resolve"
)

// State tracks one episode's build through the run.
type State string

const (
	StateNotPlanned State = "not_planned"
	StatePlanned    State = "planned"
	StateInFlight   State = "in_flight"
	StateBuilt      State = "built"
	StateFailed     State = "failed"
)

// Task is one scheduled build: an episode with its resolved
// configuration, fingerprint, and asset paths.
type Task struct {
	Episode     library.Episode
	Series      library.Series
	Resolved    *resolve.Config
	Font        *library.Font
	Fingerprint string

	SourcePath string
	FontPath   string
	LogoPath   string
	OutputPath string

	state State
}

// State returns the task's current lifecycle state.
func (t *Task) State() State {
	return t.state
}

// Result classifies one episode's outcome in the run report.
type Result string

const (
	ResultBuilt         Result = "built"
	ResultSkipped       Result = "skipped"
	ResultFailed        Result = "failed"
	ResultConfigError   Result = "config_error"
	ResultMissingSource Result = "missing_source"
)

// Outcome is the per-episode entry of the run report.
type Outcome struct {
	EpisodeID    string
	SeriesID     string
	Label        string
	Result       Result
	Reason       string
	Fingerprint  string
	ArtifactPath string
	Err          error
}

// Plan is the read-only work list for one run: tasks that need a build
// plus outcomes already decided during planning (skips, configuration
// errors, missing sources).
type Plan struct {
	RunID string
	Force bool
	Tasks []*Task
	Pre   []Outcome
}

// EpisodeCount returns the number of episodes the plan covers.
func (p *Plan) EpisodeCount() int {
	return len(p.Tasks) + len(p.Pre)
}

// Report aggregates one run's outcomes: exactly one entry per planned
// episode, in episode-id order.
type Report struct {
	RunID    string
	Started  time.Time
	Duration time.Duration
	Outcomes []Outcome
}

// Count returns the number of outcomes with the given result.
func (r *Report) Count(result Result) int {
	count := 0
	for _, outcome := range r.Outcomes {
		if outcome.Result == result {
			count++
		}
	}
	return count
}

// Failed reports whether any episode ended in a failure state.
func (r *Report) Failed() bool {
	for _, outcome := range r.Outcomes {
		switch outcome.Result {
		case ResultFailed, ResultConfigError, ResultMissingSource:
			return true
		}
	}
	return false
}

func sortOutcomes(outcomes []Outcome) {
	sort.Slice(outcomes, func(i, j int) bool {
		return outcomes[i].EpisodeID < outcomes[j].EpisodeID
	})
}
