package resolve

import (
	"fmt"
	"sort"

	"github.com/CollinHeist/TitleCardMaker-sub003/internal/cards"
	"github.com/CollinHeist/TitleCardMaker-sub003/internal/services"
)

// Built-in defaults applied below the global layer.
const (
	DefaultCardType          = "standard"
	DefaultWatchedStyle      = cards.StyleUnique
	DefaultUnwatchedStyle    = cards.StyleUnique
	DefaultSeasonText        = "Season {season}"
	DefaultEpisodeTextFormat = "Episode {number}"
)

// Config is the flattened settings object for exactly one episode at one
// point in time. It is computed on demand and never persisted.
type Config struct {
	CardType          string
	WatchedStyle      string
	UnwatchedStyle    string
	FontID            string
	SeasonText        string
	EpisodeTextFormat string
	HideSeasonText    bool
	HideEpisodeText   bool
	Extras            map[string]string

	descriptor cards.Descriptor
}

// Descriptor returns the capability descriptor of the resolved card type.
func (c *Config) Descriptor() cards.Descriptor {
	return c.descriptor
}

// Style returns the effective style for the given watched state.
func (c *Config) Style(watched bool) string {
	if watched {
		return c.WatchedStyle
	}
	return c.UnwatchedStyle
}

// ExtraKeys returns the sorted extras keys.
func (c *Config) ExtraKeys() []string {
	keys := make([]string, 0, len(c.Extras))
	for key := range c.Extras {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Resolve merges the four settings layers in ascending priority
// (global < series < template < episode), applies built-in defaults for
// fields unset everywhere, and validates the result against the card-type
// registry. Validation failures are configuration errors scoped to the
// one episode being resolved.
func Resolve(global, series, template, episode Settings) (*Config, error) {
	merged := global.Overlay(series).Overlay(template).Overlay(episode)

	resolved := &Config{
		CardType:          merged.CardType.Or(DefaultCardType),
		WatchedStyle:      merged.WatchedStyle.Or(DefaultWatchedStyle),
		UnwatchedStyle:    merged.UnwatchedStyle.Or(DefaultUnwatchedStyle),
		FontID:            merged.FontID.Or(""),
		SeasonText:        merged.SeasonText.Or(DefaultSeasonText),
		EpisodeTextFormat: merged.EpisodeTextFormat.Or(DefaultEpisodeTextFormat),
		HideSeasonText:    merged.HideSeasonText.Or(false),
		HideEpisodeText:   merged.HideEpisodeText.Or(false),
		Extras:            merged.Extras,
	}

	descriptor, ok := cards.Lookup(resolved.CardType)
	if !ok {
		return nil, services.Wrap(services.ErrConfiguration, "resolve", "card type",
			fmt.Sprintf("unknown card type %q (known: %v)", resolved.CardType, cards.IDs()), nil)
	}
	resolved.descriptor = descriptor
	resolved.CardType = descriptor.ID

	for _, style := range []struct {
		field string
		value string
	}{
		{"watched_style", resolved.WatchedStyle},
		{"unwatched_style", resolved.UnwatchedStyle},
	} {
		if !descriptor.SupportsStyle(style.value) {
			return nil, services.Wrap(services.ErrConfiguration, "resolve", style.field,
				fmt.Sprintf("style %q not supported by card type %q", style.value, descriptor.ID), nil)
		}
	}

	for _, key := range descriptor.RequiredExtras {
		if _, ok := resolved.Extras[key]; !ok {
			return nil, services.Wrap(services.ErrConfiguration, "resolve", "extras",
				fmt.Sprintf("card type %q requires extra %q", descriptor.ID, key), nil)
		}
	}

	return resolved, nil
}
