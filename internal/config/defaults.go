package config

const (
	defaultSourceDir       = "~/.local/share/titlecards/source"
	defaultCardDir         = "~/.local/share/titlecards/cards"
	defaultFontDir         = "~/.local/share/titlecards/fonts"
	defaultLogoDir         = "~/.local/share/titlecards/logos"
	defaultDataDir         = "~/.local/share/titlecards/data"
	defaultLogDir          = "~/.local/share/titlecards/logs"
	defaultLibraryFile     = "~/.config/titlecards/library.toml"
	defaultRendererBinary  = "cardcompositor"
	defaultRendererTimeout = 120
	defaultMaxRetries      = 2
	defaultRetryBackoffMS  = 500
	defaultExtension       = ".jpg"
	defaultConcurrency     = 4
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			SourceDir:   defaultSourceDir,
			CardDir:     defaultCardDir,
			FontDir:     defaultFontDir,
			LogoDir:     defaultLogoDir,
			DataDir:     defaultDataDir,
			LogDir:      defaultLogDir,
			LibraryFile: defaultLibraryFile,
		},
		Renderer: Renderer{
			Binary:         defaultRendererBinary,
			TimeoutSeconds: defaultRendererTimeout,
			MaxRetries:     defaultMaxRetries,
			RetryBackoffMS: defaultRetryBackoffMS,
			Extension:      defaultExtension,
		},
		Workflow: Workflow{
			Concurrency: defaultConcurrency,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
