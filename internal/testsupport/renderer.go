package testsupport

import (
	"context"
	"os"
	"sync"
	"sync/atomic"

	"github.com/CollinHeist/TitleCardMaker-sub003/internal/render"
)

// FakeRenderer is a scripted render.Client for tests. It writes a stub
// artifact on success and counts invocations, optionally per episode
// source path.
type FakeRenderer struct {
	mu sync.Mutex
	// FailFor maps source paths to the number of times a render should
	// fail before succeeding. -1 fails forever.
	FailFor map[string]int
	// Block, when non-nil, is closed by the test to release in-flight
	// renders.
	Block chan struct{}

	calls       atomic.Int64
	callsByPath map[string]int
}

// NewFakeRenderer constructs an always-succeeding fake.
func NewFakeRenderer() *FakeRenderer {
	return &FakeRenderer{
		FailFor:     map[string]int{},
		callsByPath: map[string]int{},
	}
}

// Calls returns the total number of render invocations.
func (f *FakeRenderer) Calls() int {
	return int(f.calls.Load())
}

// CallsFor returns the number of render invocations for one source path.
func (f *FakeRenderer) CallsFor(sourcePath string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.callsByPath[sourcePath]
}

// HealthCheck always succeeds.
func (f *FakeRenderer) HealthCheck() error { return nil }

// Render records the call and either fails per script or writes the
// output artifact.
func (f *FakeRenderer) Render(ctx context.Context, req render.Request, progress func(render.ProgressUpdate)) (string, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.callsByPath[req.SourcePath]++
	remaining, scripted := f.FailFor[req.SourcePath]
	if scripted && remaining != 0 {
		if remaining > 0 {
			f.FailFor[req.SourcePath] = remaining - 1
		}
		f.mu.Unlock()
		return "", context.DeadlineExceeded
	}
	f.mu.Unlock()

	if f.Block != nil {
		select {
		case <-f.Block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if err := os.WriteFile(req.OutputPath, []byte("card"), 0o644); err != nil {
		return "", err
	}
	return req.OutputPath, nil
}

var _ render.Client = (*FakeRenderer)(nil)
