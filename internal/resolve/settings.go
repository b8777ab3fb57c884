package resolve

import "github.com/CollinHeist/TitleCardMaker-sub003/internal/config"

// Settings is one layer of overridable card settings. Layers merge
// field-by-field; an unset field falls through to the next layer.
type Settings struct {
	CardType          Optional[string]
	WatchedStyle      Optional[string]
	UnwatchedStyle    Optional[string]
	FontID            Optional[string]
	SeasonText        Optional[string]
	EpisodeTextFormat Optional[string]
	HideSeasonText    Optional[bool]
	HideEpisodeText   Optional[bool]
	Extras            map[string]string
}

// Overlay merges a higher-priority layer on top of the receiver and
// returns the result. Extras merge key-by-key: a key present in the
// higher layer wins, all other keys are preserved.
func (s Settings) Overlay(higher Settings) Settings {
	merged := Settings{
		CardType:          s.CardType.overlay(higher.CardType),
		WatchedStyle:      s.WatchedStyle.overlay(higher.WatchedStyle),
		UnwatchedStyle:    s.UnwatchedStyle.overlay(higher.UnwatchedStyle),
		FontID:            s.FontID.overlay(higher.FontID),
		SeasonText:        s.SeasonText.overlay(higher.SeasonText),
		EpisodeTextFormat: s.EpisodeTextFormat.overlay(higher.EpisodeTextFormat),
		HideSeasonText:    s.HideSeasonText.overlay(higher.HideSeasonText),
		HideEpisodeText:   s.HideEpisodeText.overlay(higher.HideEpisodeText),
	}
	if len(s.Extras) > 0 || len(higher.Extras) > 0 {
		merged.Extras = make(map[string]string, len(s.Extras)+len(higher.Extras))
		for key, value := range s.Extras {
			merged.Extras[key] = value
		}
		for key, value := range higher.Extras {
			merged.Extras[key] = value
		}
	}
	return merged
}

// SettingsFromDefaults converts the config [defaults] section into the
// global settings layer.
func SettingsFromDefaults(d config.Defaults) Settings {
	settings := Settings{
		CardType:          FromPtr(d.CardType),
		WatchedStyle:      FromPtr(d.WatchedStyle),
		UnwatchedStyle:    FromPtr(d.UnwatchedStyle),
		FontID:            FromPtr(d.FontID),
		SeasonText:        FromPtr(d.SeasonText),
		EpisodeTextFormat: FromPtr(d.EpisodeTextFormat),
		HideSeasonText:    FromPtr(d.HideSeasonText),
		HideEpisodeText:   FromPtr(d.HideEpisodeText),
	}
	if len(d.Extras) > 0 {
		settings.Extras = make(map[string]string, len(d.Extras))
		for key, value := range d.Extras {
			settings.Extras[key] = value
		}
	}
	return settings
}
