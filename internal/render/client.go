package render

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/CollinHeist/TitleCardMaker-sub003/internal/library"
	"github.com/CollinHeist/TitleCardMaker-sub003/internal/resolve"
)

var commandContext = exec.CommandContext

// Request carries everything one render needs.
type Request struct {
	Config      *resolve.Config
	Font        *library.Font
	Style       string
	SourcePath  string
	FontPath    string
	LogoPath    string
	OutputPath  string
	Title       string
	SeasonText  string
	EpisodeText string
}

// ProgressUpdate captures compositor progress events.
type ProgressUpdate struct {
	Percent float64
	Stage   string
	Message string
}

// Client defines compositor behaviour.
type Client interface {
	Render(ctx context.Context, req Request, progress func(ProgressUpdate)) (string, error)
	HealthCheck() error
}

// Option configures the CLI client.
type Option func(*CLI)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// CLI wraps the external compositor command line.
type CLI struct {
	binary string
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "cardcompositor"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// HealthCheck verifies the compositor binary is on PATH.
func (c *CLI) HealthCheck() error {
	if _, err := exec.LookPath(c.binary); err != nil {
		return fmt.Errorf("compositor binary %q not found: %w", c.binary, err)
	}
	return nil
}

// renderSpec is the JSON document handed to the compositor on stdin.
type renderSpec struct {
	CardType    string            `json:"card_type"`
	Style       string            `json:"style,omitempty"`
	Source      string            `json:"source"`
	Output      string            `json:"output"`
	Title       string            `json:"title"`
	SeasonText  string            `json:"season_text,omitempty"`
	EpisodeText string            `json:"episode_text,omitempty"`
	Font        *fontSpec         `json:"font,omitempty"`
	Logo        string            `json:"logo,omitempty"`
	Extras      map[string]string `json:"extras,omitempty"`
}

type fontSpec struct {
	File        string  `json:"file"`
	Color       string  `json:"color,omitempty"`
	Size        float64 `json:"size,omitempty"`
	Kerning     float64 `json:"kerning,omitempty"`
	StrokeWidth float64 `json:"stroke_width,omitempty"`
}

// Render launches the compositor and returns the artifact path.
func (c *CLI) Render(ctx context.Context, req Request, progress func(ProgressUpdate)) (string, error) {
	if req.Config == nil {
		return "", errors.New("resolved config required")
	}
	if req.SourcePath == "" {
		return "", errors.New("source path required")
	}
	if req.OutputPath == "" {
		return "", errors.New("output path required")
	}

	spec := renderSpec{
		CardType: req.Config.CardType,
		Style:    req.Style,
		Source:   req.SourcePath,
		Output:   req.OutputPath,
		Title:    req.Title,
		Logo:     req.LogoPath,
		Extras:   req.Config.Extras,
	}
	if !req.Config.HideSeasonText {
		spec.SeasonText = req.SeasonText
	}
	if !req.Config.HideEpisodeText {
		spec.EpisodeText = req.EpisodeText
	}
	if req.Font != nil {
		spec.Font = &fontSpec{
			File:        req.FontPath,
			Color:       req.Font.Color,
			Size:        req.Font.Size,
			Kerning:     req.Font.Kerning,
			StrokeWidth: req.Font.StrokeWidth,
		}
	}

	encoded, err := json.Marshal(spec)
	if err != nil {
		return "", fmt.Errorf("marshal render spec: %w", err)
	}

	args := []string{"create", "--spec", "-", "--progress-json"}
	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	cmd.Stdin = bytes.NewReader(encoded)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("start compositor: %w", err)
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := scanner.Bytes()
		var payload struct {
			Percent float64 `json:"percent"`
			Stage   string  `json:"stage"`
			Message string  `json:"message"`
		}
		if err := json.Unmarshal(line, &payload); err != nil {
			continue
		}
		if progress != nil {
			progress(ProgressUpdate{Percent: payload.Percent, Stage: payload.Stage, Message: payload.Message})
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read compositor output: %w", err)
	}

	if err := cmd.Wait(); err != nil {
		return "", fmt.Errorf("compositor failed: %w", err)
	}

	return filepath.Clean(req.OutputPath), nil
}

var _ Client = (*CLI)(nil)
