// Package fetcher implements the media fetch strategies of the enrichment
// pipeline: speech synthesis for words and sentences, and image generation
// from prompts. All fetchers share one contract: fetch to a path, answer
// with a plain success flag, and report every remote outcome to the shared
// rate-signal callback. Failures are results here, not errors; the row
// processor turns them into statistics.
package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// OutcomeFunc receives the result of one remote call. statusCode is 0 when
// no HTTP status was observed; success reflects the overall attempt.
type OutcomeFunc func(statusCode int, success bool)

// Fetcher is the uniform media fetch contract. Implementations are safe for
// concurrent use; Close releases pooled connections.
type Fetcher interface {
	// Fetch generates or downloads media for source (text or prompt) into
	// outputPath. Returns true on success, false on a recoverable failure.
	Fetch(ctx context.Context, source, outputPath string) bool

	// Close releases any pooled resources.
	Close() error

	// Name returns the fetcher name for logging.
	Name() string
}

// writeAtomic writes data next to outputPath and renames it into place only
// when the payload exceeds minSize. A truncated or empty body never
// overwrites an existing good file.
func writeAtomic(data []byte, outputPath string, minSize int) error {
	if len(data) <= minSize {
		return fmt.Errorf("payload too small: %d bytes (minimum %d)", len(data), minSize)
	}

	if dir := filepath.Dir(outputPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	tmp := fmt.Sprintf("%s.%s.tmp", outputPath, uuid.NewString()[:8])
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmp, outputPath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to move file into place: %w", err)
	}
	return nil
}

// looksLikeImage sniffs the magic bytes of the common web image formats.
// Many generation endpoints return small HTML error pages with HTTP 200, so
// the body is validated instead of the status code.
func looksLikeImage(data []byte) bool {
	if len(data) < 12 {
		return false
	}
	switch {
	case bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}): // JPEG
		return true
	case bytes.HasPrefix(data, []byte{0x89, 'P', 'N', 'G'}): // PNG
		return true
	case bytes.HasPrefix(data, []byte("GIF8")): // GIF
		return true
	case bytes.HasPrefix(data, []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return true
	}
	return false
}

// sleepCtx waits for d or until ctx is done. Returns false when the context
// fired first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}

// jitter returns a random duration in [min, max), used to desynchronize
// request bursts across concurrent rows.
func jitter(min, max time.Duration) time.Duration {
	return min + time.Duration(rand.Int63n(int64(max-min)))
}
