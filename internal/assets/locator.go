package assets

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/CollinHeist/TitleCardMaker-sub003/internal/config"
	"github.com/CollinHeist/TitleCardMaker-sub003/internal/fingerprint"
	"github.com/CollinHeist/TitleCardMaker-sub003/internal/library"
	"github.com/CollinHeist/TitleCardMaker-sub003/internal/services"
)

// Locator maps entities to source-asset paths under the configured
// directories.
type Locator struct {
	sourceDir string
	fontDir   string
	logoDir   string
}

// NewLocator constructs a locator from configuration paths.
func NewLocator(cfg *config.Config) *Locator {
	return &Locator{
		sourceDir: cfg.Paths.SourceDir,
		fontDir:   cfg.Paths.FontDir,
		logoDir:   cfg.Paths.LogoDir,
	}
}

// EpisodeSource returns the path of the episode's source image.
func (l *Locator) EpisodeSource(episode library.Episode) string {
	return filepath.Join(l.sourceDir, episode.SeriesID, episode.Key()+".jpg")
}

// Logo returns the path of the series logo.
func (l *Locator) Logo(series library.Series) string {
	return filepath.Join(l.logoDir, series.ID+".png")
}

// FontFile returns the path of a font's file. Absolute file references
// are honored as-is.
func (l *Locator) FontFile(font library.Font) string {
	if filepath.IsAbs(font.File) {
		return font.File
	}
	return filepath.Join(l.fontDir, font.File)
}

// Identify stats every path and returns its identity tuple. A path that
// does not exist yields a source-missing error naming the path; any other
// stat failure is treated as transient.
func (l *Locator) Identify(paths ...string) ([]fingerprint.AssetIdentity, error) {
	identities := make([]fingerprint.AssetIdentity, 0, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, services.Wrap(services.ErrSourceMissing, "assets", "identify", path, nil)
			}
			return nil, services.Wrap(services.ErrTransient, "assets", "identify", path, err)
		}
		identities = append(identities, fingerprint.AssetIdentity{
			Path:    path,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return identities, nil
}
