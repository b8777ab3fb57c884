package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/CollinHeist/TitleCardMaker-sub003/internal/library"
	"github.com/CollinHeist/TitleCardMaker-sub003/internal/resolve"
)

// SchemaVersion is incremented whenever the renderer produces different
// pixels for equivalent inputs, forcing a full rebuild after an upgrade.
const SchemaVersion = 1

// AssetIdentity identifies one external file a render depends on. Size
// and modification time stand in for a content hash.
type AssetIdentity struct {
	Path    string
	Size    int64
	ModTime time.Time
}

func (a AssetIdentity) canonical() string {
	return a.Path + "|" + strconv.FormatInt(a.Size, 10) + "|" + strconv.FormatInt(a.ModTime.UnixNano(), 10)
}

// Input collects everything a card fingerprint is a function of. Nothing
// else (timestamps, run ids, ledger state) may influence the hash.
type Input struct {
	Config *resolve.Config
	Font   *library.Font
	Assets []AssetIdentity
}

// Generate computes the fingerprint for one resolved episode. The payload
// is serialized into a canonical form before hashing so semantically
// identical configurations hash identically regardless of construction
// order: struct fields become a flat key map and encoding/json emits map
// keys sorted.
func Generate(in Input) string {
	payload := map[string]any{
		"schema_version": SchemaVersion,
		"card_type":      in.Config.CardType,
		"config":         canonicalConfig(in.Config),
		"assets":         canonicalAssets(in.Assets),
	}
	if in.Font != nil {
		payload["font"] = canonicalFont(in.Font)
	}

	// Map values marshal deterministically; a failure here would mean a
	// non-serializable value made it into the payload.
	encoded, err := json.Marshal(payload)
	if err != nil {
		panic(fmt.Sprintf("fingerprint payload not serializable: %v", err))
	}

	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:])
}

func canonicalConfig(cfg *resolve.Config) map[string]any {
	extras := map[string]string{}
	for key, value := range cfg.Extras {
		extras[key] = value
	}
	return map[string]any{
		"watched_style":       cfg.WatchedStyle,
		"unwatched_style":     cfg.UnwatchedStyle,
		"font_id":             cfg.FontID,
		"season_text":         cfg.SeasonText,
		"episode_text_format": cfg.EpisodeTextFormat,
		"hide_season_text":    cfg.HideSeasonText,
		"hide_episode_text":   cfg.HideEpisodeText,
		"extras":              extras,
	}
}

func canonicalFont(font *library.Font) map[string]any {
	return map[string]any{
		"file":         font.File,
		"color":        font.Color,
		"size":         font.Size,
		"kerning":      font.Kerning,
		"stroke_width": font.StrokeWidth,
	}
}

func canonicalAssets(assets []AssetIdentity) []string {
	canonical := make([]string, 0, len(assets))
	for _, asset := range assets {
		canonical = append(canonical, asset.canonical())
	}
	sort.Strings(canonical)
	return canonical
}
