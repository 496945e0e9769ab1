// Package cache persists a record of already generated media files so
// rebuild runs skip redundant remote calls.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultMinFileSize is the smallest payload accepted as real media.
	// Error pages and truncated downloads are almost always smaller.
	DefaultMinFileSize = 500

	// defaultBatchSize is the number of dirty entries accumulated before
	// the ledger is written to disk. Trades a small durability window for
	// far fewer writes under concurrent bursts.
	defaultBatchSize = 10
)

// Ledger maps media filenames to the time they were generated. Entries are
// validated against the filesystem on lookup, so deleted or truncated files
// heal themselves out of the ledger. Safe for concurrent use.
type Ledger struct {
	mu sync.Mutex

	path     string
	mediaDir string

	entries   map[string]string
	dirty     int
	batchSize int
	minSize   int64
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithMinFileSize overrides the minimum valid media file size.
func WithMinFileSize(n int64) Option {
	return func(l *Ledger) { l.minSize = n }
}

// WithBatchSize overrides the dirty-entry threshold for flushing.
func WithBatchSize(n int) Option {
	return func(l *Ledger) { l.batchSize = n }
}

// New opens the ledger stored at path. Media filenames recorded in it are
// resolved relative to mediaDir. A missing or unreadable ledger file starts
// empty rather than failing: the cache is an optimization, not state the
// build depends on.
func New(path, mediaDir string, opts ...Option) *Ledger {
	l := &Ledger{
		path:      path,
		mediaDir:  mediaDir,
		entries:   map[string]string{},
		batchSize: defaultBatchSize,
		minSize:   DefaultMinFileSize,
	}
	for _, opt := range opts {
		opt(l)
	}

	if data, err := os.ReadFile(path); err == nil {
		var loaded map[string]string
		if json.Unmarshal(data, &loaded) == nil {
			l.entries = loaded
		}
	}
	return l
}

// IsCached reports whether filename has a valid ledger entry: the entry
// exists, the file exists on disk and it exceeds the minimum size. A stale
// entry is removed as a side effect so the next run refetches the file.
func (l *Ledger) IsCached(filename string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.entries[filename]; !ok {
		return false
	}

	if info, err := os.Stat(filepath.Join(l.mediaDir, filename)); err == nil {
		if info.Size() > l.minSize {
			return true
		}
	}

	delete(l.entries, filename)
	l.markDirty()
	return false
}

// MarkCached records filenames as generated now. Writes are batched; call
// Flush to force persistence.
func (l *Ledger) MarkCached(filenames ...string) {
	if len(filenames) == 0 {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now().Format(time.RFC3339)
	for _, f := range filenames {
		l.entries[f] = now
		l.markDirty()
	}
}

// Flush writes any pending entries to disk.
func (l *Ledger) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.dirty == 0 {
		return nil
	}
	return l.save()
}

// MediaPath returns the on-disk path for a media filename.
func (l *Ledger) MediaPath(filename string) string {
	return filepath.Join(l.mediaDir, filename)
}

// Len returns the number of ledger entries.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// markDirty bumps the dirty counter and flushes once the batch threshold is
// reached. Caller must hold the lock.
func (l *Ledger) markDirty() {
	l.dirty++
	if l.dirty >= l.batchSize {
		// Batched flush failures are retried on the next threshold or the
		// final Flush; losing them only costs a refetch.
		_ = l.save()
	}
}

// save persists the ledger with a temp-file-then-rename write so a killed
// process never leaves a half-written ledger behind. Caller must hold the
// lock.
func (l *Ledger) save() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	data, err := json.MarshalIndent(l.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cache ledger: %w", err)
	}

	tmp := fmt.Sprintf("%s.%s.tmp", l.path, uuid.NewString()[:8])
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache ledger: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace cache ledger: %w", err)
	}

	l.dirty = 0
	return nil
}
