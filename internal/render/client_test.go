package render

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/CollinHeist/TitleCardMaker-sub003/internal/library"
	"github.com/CollinHeist/TitleCardMaker-sub003/internal/resolve"
)

func resolvedForTest(t *testing.T, layers ...resolve.Settings) *resolve.Config {
	t.Helper()
	settings := make([]resolve.Settings, 4)
	for i := range layers {
		settings[i] = layers[i]
	}
	cfg, err := resolve.Resolve(settings[0], settings[1], settings[2], settings[3])
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	return cfg
}

func baseRequest(t *testing.T, layers ...resolve.Settings) Request {
	tempDir := t.TempDir()
	return Request{
		Config:      resolvedForTest(t, layers...),
		Style:       "unique",
		SourcePath:  filepath.Join(tempDir, "s01e01.jpg"),
		OutputPath:  filepath.Join(tempDir, "card.jpg"),
		Title:       "Pilot",
		SeasonText:  "Season 1",
		EpisodeText: "Episode 1",
	}
}

func TestNewCLIWithBinary(t *testing.T) {
	cli := NewCLI(WithBinary("/opt/compositor"))
	if cli.binary != "/opt/compositor" {
		t.Fatalf("expected binary override to be applied, got %q", cli.binary)
	}
}

func TestCLIRenderValidatesRequest(t *testing.T) {
	cli := NewCLI()
	request := baseRequest(t)

	missing := request
	missing.Config = nil
	if _, err := cli.Render(context.Background(), missing, nil); err == nil {
		t.Fatal("expected error when resolved config is missing")
	}

	missing = request
	missing.SourcePath = ""
	if _, err := cli.Render(context.Background(), missing, nil); err == nil {
		t.Fatal("expected error when source path is empty")
	}

	missing = request
	missing.OutputPath = ""
	if _, err := cli.Render(context.Background(), missing, nil); err == nil {
		t.Fatal("expected error when output path is empty")
	}
}

func TestCLIRenderWithFontAndLogo(t *testing.T) {
	setHelperCommand(t, "success")

	cli := NewCLI()
	request := baseRequest(t, resolve.Settings{
		CardType: resolve.Some("logo"),
		Extras:   map[string]string{"background": "blurred"},
	})
	request.Style = "art"
	request.Font = &library.Font{ID: "f", Color: "#fff", Size: 30}
	request.FontPath = "/fonts/title.ttf"
	request.LogoPath = "/logos/show.png"

	path, err := cli.Render(context.Background(), request, nil)
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if path != request.OutputPath {
		t.Fatalf("artifact path = %q, want %q", path, request.OutputPath)
	}
}

func TestCLIRenderSuccessWithProgress(t *testing.T) {
	setHelperCommand(t, "success")

	cli := NewCLI()
	request := baseRequest(t)

	var updates []ProgressUpdate
	path, err := cli.Render(context.Background(), request, func(update ProgressUpdate) {
		updates = append(updates, update)
	})
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if path != request.OutputPath {
		t.Fatalf("artifact path = %q, want %q", path, request.OutputPath)
	}
	if len(updates) != 3 {
		t.Fatalf("got %d progress updates, want 3", len(updates))
	}
	if updates[len(updates)-1].Percent != 100 {
		t.Fatalf("final progress = %f, want 100", updates[len(updates)-1].Percent)
	}
	if updates[1].Stage != "compositing" {
		t.Fatalf("middle stage = %q", updates[1].Stage)
	}
}

func TestCLIRenderFailure(t *testing.T) {
	setHelperCommand(t, "failure")

	cli := NewCLI()
	if _, err := cli.Render(context.Background(), baseRequest(t), nil); err == nil {
		t.Fatal("expected render failure error")
	}
}

func TestCLIRenderSkipsInvalidJSON(t *testing.T) {
	setHelperCommand(t, "badjson")

	cli := NewCLI()
	var updates []ProgressUpdate
	if _, err := cli.Render(context.Background(), baseRequest(t), func(update ProgressUpdate) {
		updates = append(updates, update)
	}); err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if len(updates) != 1 {
		t.Fatalf("got %d progress updates from valid json, want 1", len(updates))
	}
}

func setHelperCommand(t *testing.T, mode string) {
	t.Helper()
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", fmt.Sprintf("COMPOSITOR_HELPER_MODE=%s", mode))
		return cmd
	}
	t.Cleanup(func() {
		commandContext = original
	})
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	// Drain stdin so the parent's pipe write never blocks.
	_, _ = io.Copy(io.Discard, os.Stdin)

	switch os.Getenv("COMPOSITOR_HELPER_MODE") {
	case "success":
		fmt.Println(`{"percent":0,"stage":"load","message":"reading source"}`)
		fmt.Println(`{"percent":50,"stage":"compositing","message":"drawing text"}`)
		fmt.Println(`{"percent":100,"stage":"complete","message":"done"}`)
		os.Exit(0)
	case "failure":
		fmt.Fprintln(os.Stderr, "compositor failed")
		os.Exit(1)
	case "badjson":
		fmt.Println("not-json")
		fmt.Println(`{"percent":75,"stage":"compositing"}`)
		os.Exit(0)
	default:
		os.Exit(0)
	}
}
