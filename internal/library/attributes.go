package library

import "github.com/CollinHeist/TitleCardMaker-sub003/internal/conditions"

// Attribute paths available to filter conditions.
const (
	AttrSeriesName     = "series_name"
	AttrSeriesYear     = "series_year"
	AttrSeasonNumber   = "season_number"
	AttrEpisodeNumber  = "episode_number"
	AttrAbsoluteNumber = "absolute_number"
	AttrTitle          = "title"
	AttrWatched        = "watched"
)

// Attributes derives the typed attribute set for one episode of a series.
// AbsoluteNumber is only present when the library assigns one, so is_set
// conditions can distinguish it.
func Attributes(series Series, episode Episode) conditions.AttributeSet {
	attrs := conditions.AttributeSet{
		AttrSeriesName:    conditions.String(series.Name),
		AttrSeriesYear:    conditions.Int(series.Year),
		AttrSeasonNumber:  conditions.Int(episode.Season),
		AttrEpisodeNumber: conditions.Int(episode.Number),
		AttrTitle:         conditions.String(episode.Title),
		AttrWatched:       conditions.Bool(episode.Watched),
	}
	if episode.AbsoluteNumber > 0 {
		attrs[AttrAbsoluteNumber] = conditions.Int(episode.AbsoluteNumber)
	}
	return attrs
}
