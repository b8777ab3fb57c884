package library

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/CollinHeist/TitleCardMaker-sub003/internal/conditions"
	"github.com/CollinHeist/TitleCardMaker-sub003/internal/resolve"
)

// settingsDoc is the TOML shape of one settings layer. Pointer fields
// keep "unset" and "explicitly blank" distinct through decoding.
type settingsDoc struct {
	CardType          *string           `toml:"card_type"`
	WatchedStyle      *string           `toml:"watched_style"`
	UnwatchedStyle    *string           `toml:"unwatched_style"`
	FontID            *string           `toml:"font_id"`
	SeasonText        *string           `toml:"season_text"`
	EpisodeTextFormat *string           `toml:"episode_text_format"`
	HideSeasonText    *bool             `toml:"hide_season_text"`
	HideEpisodeText   *bool             `toml:"hide_episode_text"`
	Extras            map[string]string `toml:"extras"`
}

func (d settingsDoc) toSettings() resolve.Settings {
	settings := resolve.Settings{
		CardType:          resolve.FromPtr(d.CardType),
		WatchedStyle:      resolve.FromPtr(d.WatchedStyle),
		UnwatchedStyle:    resolve.FromPtr(d.UnwatchedStyle),
		FontID:            resolve.FromPtr(d.FontID),
		SeasonText:        resolve.FromPtr(d.SeasonText),
		EpisodeTextFormat: resolve.FromPtr(d.EpisodeTextFormat),
		HideSeasonText:    resolve.FromPtr(d.HideSeasonText),
		HideEpisodeText:   resolve.FromPtr(d.HideEpisodeText),
	}
	if len(d.Extras) > 0 {
		settings.Extras = make(map[string]string, len(d.Extras))
		for key, value := range d.Extras {
			settings.Extras[key] = value
		}
	}
	return settings
}

type conditionDoc struct {
	Argument  string `toml:"argument"`
	Operator  string `toml:"operator"`
	Reference string `toml:"reference"`
}

type fontDoc struct {
	ID          string  `toml:"id"`
	Name        string  `toml:"name"`
	File        string  `toml:"file"`
	Color       string  `toml:"color"`
	Size        float64 `toml:"size"`
	Kerning     float64 `toml:"kerning"`
	StrokeWidth float64 `toml:"stroke_width"`
}

type templateDoc struct {
	settingsDoc
	ID         string         `toml:"id"`
	Name       string         `toml:"name"`
	Conditions []conditionDoc `toml:"conditions"`
}

type episodeDoc struct {
	settingsDoc
	Season         int    `toml:"season"`
	Number         int    `toml:"number"`
	AbsoluteNumber int    `toml:"absolute_number"`
	Title          string `toml:"title"`
	Watched        bool   `toml:"watched"`
}

type seriesDoc struct {
	settingsDoc
	ID          string       `toml:"id"`
	Name        string       `toml:"name"`
	Year        int          `toml:"year"`
	TemplateIDs []string     `toml:"template_ids"`
	Episodes    []episodeDoc `toml:"episodes"`
}

type libraryDoc struct {
	Fonts     []fontDoc     `toml:"fonts"`
	Templates []templateDoc `toml:"templates"`
	Series    []seriesDoc   `toml:"series"`
}

// Load parses and validates a library file.
func Load(path string) (*Library, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open library: %w", err)
	}
	defer file.Close()

	var doc libraryDoc
	decoder := toml.NewDecoder(file)
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse library: %w", err)
	}

	return buildLibrary(doc)
}

func buildLibrary(doc libraryDoc) (*Library, error) {
	lib := &Library{
		Fonts:     make(map[string]Font, len(doc.Fonts)),
		Templates: make(map[string]Template, len(doc.Templates)),
		Series:    make([]Series, 0, len(doc.Series)),
	}

	for _, font := range doc.Fonts {
		id := strings.TrimSpace(font.ID)
		if id == "" {
			return nil, fmt.Errorf("font %q: id must be set", font.Name)
		}
		if _, dup := lib.Fonts[id]; dup {
			return nil, fmt.Errorf("font %q: duplicate id", id)
		}
		if strings.TrimSpace(font.File) == "" {
			return nil, fmt.Errorf("font %q: file must be set", id)
		}
		lib.Fonts[id] = Font{
			ID:          id,
			Name:        font.Name,
			File:        font.File,
			Color:       font.Color,
			Size:        font.Size,
			Kerning:     font.Kerning,
			StrokeWidth: font.StrokeWidth,
		}
	}

	for _, template := range doc.Templates {
		id := strings.TrimSpace(template.ID)
		if id == "" {
			return nil, fmt.Errorf("template %q: id must be set", template.Name)
		}
		if _, dup := lib.Templates[id]; dup {
			return nil, fmt.Errorf("template %q: duplicate id", id)
		}
		conds := make([]conditions.Condition, 0, len(template.Conditions))
		for i, cond := range template.Conditions {
			operator, ok := conditions.ParseOperator(cond.Operator)
			if !ok {
				return nil, fmt.Errorf("template %q: condition %d: unknown operator %q", id, i+1, cond.Operator)
			}
			if strings.TrimSpace(cond.Argument) == "" {
				return nil, fmt.Errorf("template %q: condition %d: argument must be set", id, i+1)
			}
			conds = append(conds, conditions.Condition{
				Argument:  strings.TrimSpace(cond.Argument),
				Operator:  operator,
				Reference: cond.Reference,
			})
		}
		lib.Templates[id] = Template{
			ID:         id,
			Name:       template.Name,
			Conditions: conds,
			Settings:   template.settingsDoc.toSettings(),
		}
	}

	seenSeries := make(map[string]struct{}, len(doc.Series))
	for _, series := range doc.Series {
		id := strings.TrimSpace(series.ID)
		if id == "" {
			return nil, fmt.Errorf("series %q: id must be set", series.Name)
		}
		if _, dup := seenSeries[id]; dup {
			return nil, fmt.Errorf("series %q: duplicate id", id)
		}
		seenSeries[id] = struct{}{}

		for _, templateID := range series.TemplateIDs {
			if _, ok := lib.Templates[strings.TrimSpace(templateID)]; !ok {
				return nil, fmt.Errorf("series %q: unknown template id %q", id, templateID)
			}
		}

		entry := Series{
			ID:          id,
			Name:        series.Name,
			Year:        series.Year,
			TemplateIDs: trimAll(series.TemplateIDs),
			Settings:    series.settingsDoc.toSettings(),
			Episodes:    make([]Episode, 0, len(series.Episodes)),
		}

		seenEpisodes := make(map[string]struct{}, len(series.Episodes))
		for _, episode := range series.Episodes {
			if episode.Season < 0 || episode.Number < 1 {
				return nil, fmt.Errorf("series %q: invalid episode s%02de%02d", id, episode.Season, episode.Number)
			}
			ep := Episode{
				SeriesID:       id,
				Season:         episode.Season,
				Number:         episode.Number,
				AbsoluteNumber: episode.AbsoluteNumber,
				Title:          episode.Title,
				Watched:        episode.Watched,
				Settings:       episode.settingsDoc.toSettings(),
			}
			if _, dup := seenEpisodes[ep.Key()]; dup {
				return nil, fmt.Errorf("series %q: duplicate episode %s", id, ep.Key())
			}
			seenEpisodes[ep.Key()] = struct{}{}
			entry.Episodes = append(entry.Episodes, ep)
		}

		lib.Series = append(lib.Series, entry)
	}

	if err := validateFontRefs(lib); err != nil {
		return nil, err
	}

	return lib, nil
}

func validateFontRefs(lib *Library) error {
	check := func(owner string, settings resolve.Settings) error {
		id, set := settings.FontID.Get()
		if !set || strings.TrimSpace(id) == "" {
			return nil
		}
		if _, ok := lib.Fonts[id]; !ok {
			return fmt.Errorf("%s: unknown font id %q", owner, id)
		}
		return nil
	}

	for id, template := range lib.Templates {
		if err := check("template "+id, template.Settings); err != nil {
			return err
		}
	}
	for _, series := range lib.Series {
		if err := check("series "+series.ID, series.Settings); err != nil {
			return err
		}
		for _, episode := range series.Episodes {
			if err := check("series "+series.ID+" episode "+episode.Key(), episode.Settings); err != nil {
				return err
			}
		}
	}
	return nil
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			out = append(out, value)
		}
	}
	return out
}
