package cards

import (
	"sort"
	"strings"
)

// Style identifiers shared by every card type.
const (
	StyleUnique    = "unique"
	StyleArt       = "art"
	StyleBlur      = "blur"
	StyleGrayscale = "grayscale"
)

// Descriptor describes the capabilities of one card type.
type Descriptor struct {
	ID              string
	Name            string
	SupportedStyles []string
	RequiredExtras  []string
	UsesLogo        bool
}

// SupportsStyle reports whether the card type can render the given style.
func (d Descriptor) SupportsStyle(style string) bool {
	for _, s := range d.SupportedStyles {
		if s == style {
			return true
		}
	}
	return false
}

var allStyles = []string{StyleUnique, StyleArt, StyleBlur, StyleGrayscale}

var registry = map[string]Descriptor{
	"standard": {
		ID:              "standard",
		Name:            "Standard",
		SupportedStyles: allStyles,
	},
	"anime": {
		ID:              "anime",
		Name:            "Anime",
		SupportedStyles: allStyles,
	},
	"cutout": {
		ID:              "cutout",
		Name:            "Cutout",
		SupportedStyles: []string{StyleUnique, StyleBlur},
	},
	"fade": {
		ID:              "fade",
		Name:            "Fade",
		SupportedStyles: allStyles,
	},
	"logo": {
		ID:              "logo",
		Name:            "Logo",
		SupportedStyles: []string{StyleUnique, StyleArt},
		RequiredExtras:  []string{"background"},
		UsesLogo:        true,
	},
	"olivier": {
		ID:              "olivier",
		Name:            "Olivier",
		SupportedStyles: allStyles,
	},
	"roman": {
		ID:              "roman",
		Name:            "Roman Numeral",
		SupportedStyles: []string{StyleUnique},
	},
}

// Lookup resolves a card-type identifier to its descriptor. Identifiers
// are matched case-insensitively.
func Lookup(id string) (Descriptor, bool) {
	desc, ok := registry[strings.ToLower(strings.TrimSpace(id))]
	return desc, ok
}

// IDs returns the sorted list of registered card-type identifiers.
func IDs() []string {
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
