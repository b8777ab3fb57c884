package library

import (
	"fmt"

	"github.com/CollinHeist/TitleCardMaker-sub003/internal/conditions"
	"github.com/CollinHeist/TitleCardMaker-sub003/internal/resolve"
)

// Font is a named, reusable styling bundle referenced by settings layers.
type Font struct {
	ID          string
	Name        string
	File        string
	Color       string
	Size        float64
	Kerning     float64
	StrokeWidth float64
}

// Template is a named, reusable bundle of card settings guarded by an
// ordered, AND-combined list of filter conditions. Precedence comes from
// the assignment list the template appears in, not from the template
// itself.
type Template struct {
	ID         string
	Name       string
	Conditions []conditions.Condition
	Settings   resolve.Settings
}

// Series is one show with its template assignment list and overrides.
type Series struct {
	ID          string
	Name        string
	Year        int
	TemplateIDs []string
	Settings    resolve.Settings
	Episodes    []Episode
}

// Episode is one entry of a series with its own overrides.
type Episode struct {
	SeriesID       string
	Season         int
	Number         int
	AbsoluteNumber int
	Title          string
	Watched        bool
	Settings       resolve.Settings
}

// Key returns the canonical season/episode key, e.g. "s01e02".
func (e Episode) Key() string {
	return fmt.Sprintf("s%02de%02d", e.Season, e.Number)
}

// CardID returns the ledger key for the episode's card.
func (e Episode) CardID() string {
	return e.SeriesID + "/" + e.Key()
}

// Label returns the user-facing episode label, e.g. "S01E02".
func (e Episode) Label() string {
	return fmt.Sprintf("S%02dE%02d", e.Season, e.Number)
}

// Library is the read-only snapshot of entities for one run. Entities are
// created and edited externally; the engine only consumes this view.
type Library struct {
	Fonts     map[string]Font
	Templates map[string]Template
	Series    []Series
}

// Font resolves a font id, reporting whether it exists.
func (l *Library) Font(id string) (Font, bool) {
	font, ok := l.Fonts[id]
	return font, ok
}

// TemplatesFor returns the ordered templates assigned to a series: the
// series assignment list first, then any global assignment list, with
// duplicate ids dropped. Unknown ids are skipped; the loader has already
// rejected them for loaded libraries.
func (l *Library) TemplatesFor(series Series, globalIDs []string) []Template {
	seen := make(map[string]struct{}, len(series.TemplateIDs)+len(globalIDs))
	ordered := make([]Template, 0, len(series.TemplateIDs)+len(globalIDs))
	for _, id := range append(append([]string{}, series.TemplateIDs...), globalIDs...) {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if template, ok := l.Templates[id]; ok {
			ordered = append(ordered, template)
		}
	}
	return ordered
}

// EpisodeCount returns the total number of episodes across all series.
func (l *Library) EpisodeCount() int {
	total := 0
	for _, series := range l.Series {
		total += len(series.Episodes)
	}
	return total
}
