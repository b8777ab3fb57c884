package ledger

import (
	"strings"
	"time"
)

// Status represents the recorded outcome of an episode's last build.
type Status string

const (
	StatusBuilt         Status = "built"
	StatusFailed        Status = "failed"
	StatusMissingSource Status = "missing_source"
)

var statusSet = map[Status]struct{}{
	StatusBuilt:         {},
	StatusFailed:        {},
	StatusMissingSource: {},
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// Record is the persisted card record for one episode. Fingerprint and
// ArtifactPath always describe the last successful build; a failed run
// only updates Status and ErrorMessage.
type Record struct {
	EpisodeID    string
	SeriesID     string
	Fingerprint  string
	ArtifactPath string
	Status       Status
	ErrorMessage string
	BuiltAt      *time.Time
	UpdatedAt    time.Time
}

// HasArtifact reports whether the record points at a previously built card.
func (r Record) HasArtifact() bool {
	return r.Fingerprint != "" && r.ArtifactPath != ""
}
