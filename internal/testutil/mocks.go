package testutil

import (
	"context"
	"os"
	"path/filepath"
	"sync"
)

// FakeFetcher is a scriptable media fetcher for tests. The zero value
// succeeds on every call, writing plausible JPEG bytes to the output
// path. Set Handle to script other behavior. Safe for concurrent use.
type FakeFetcher struct {
	mu          sync.Mutex
	calls       []string
	inFlight    int
	maxInFlight int

	// Handle, when set, decides the outcome of each fetch.
	Handle func(source, outputPath string) bool

	// FetcherName is returned by Name. Defaults to "fake".
	FetcherName string
}

func (f *FakeFetcher) Fetch(ctx context.Context, source, outputPath string) bool {
	f.mu.Lock()
	f.calls = append(f.calls, source)
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if f.Handle != nil {
		return f.Handle(source, outputPath)
	}
	return WriteFakeMedia(outputPath)
}

func (f *FakeFetcher) Close() error { return nil }

func (f *FakeFetcher) Name() string {
	if f.FetcherName != "" {
		return f.FetcherName
	}
	return "fake"
}

// Calls returns the sources fetched so far.
func (f *FakeFetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallCount returns how many fetches were issued.
func (f *FakeFetcher) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// MaxInFlight returns the highest number of concurrent fetches seen.
func (f *FakeFetcher) MaxInFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxInFlight
}

// WriteFakeMedia writes a small valid-looking media file at path.
func WriteFakeMedia(path string) bool {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false
	}
	return os.WriteFile(path, JPEGData(64), 0o644) == nil
}
