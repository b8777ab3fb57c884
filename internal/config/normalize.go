package config

import "strings"

// normalize expands paths and fills in defaults for blank scalar fields.
// Pointer fields in the Defaults section are left untouched so "unset"
// survives normalization.
func (c *Config) normalize() error {
	pathFields := []*string{
		&c.Paths.SourceDir,
		&c.Paths.CardDir,
		&c.Paths.FontDir,
		&c.Paths.LogoDir,
		&c.Paths.DataDir,
		&c.Paths.LogDir,
		&c.Paths.LibraryFile,
	}
	for _, field := range pathFields {
		trimmed := strings.TrimSpace(*field)
		if trimmed == "" {
			*field = ""
			continue
		}
		expanded, err := expandPath(trimmed)
		if err != nil {
			return err
		}
		*field = expanded
	}

	c.Renderer.Binary = strings.TrimSpace(c.Renderer.Binary)
	if c.Renderer.Binary == "" {
		c.Renderer.Binary = defaultRendererBinary
	}
	// Numeric renderer and workflow fields are seeded by Default() before
	// decoding, so an absent key already carries the default. An explicit
	// zero in the file is left for Validate to reject.
	c.Renderer.Extension = strings.TrimSpace(c.Renderer.Extension)
	if c.Renderer.Extension == "" {
		c.Renderer.Extension = defaultExtension
	}
	if !strings.HasPrefix(c.Renderer.Extension, ".") {
		c.Renderer.Extension = "." + c.Renderer.Extension
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}

	trimmedIDs := c.Defaults.TemplateIDs[:0]
	for _, id := range c.Defaults.TemplateIDs {
		if id = strings.TrimSpace(id); id != "" {
			trimmedIDs = append(trimmedIDs, id)
		}
	}
	c.Defaults.TemplateIDs = trimmedIDs

	return nil
}
