// Package pipeline coordinates vocabulary enrichment: it reads rows,
// consults the media cache, schedules image and audio fetches, and
// collects enriched cards ready for deck export.
package pipeline

// Config carries everything a build run needs. It is assembled once by
// the CLI layer and passed by value.
type Config struct {
	// Language is the upper-case deck language tag, e.g. "BG".
	Language string

	// MediaDir is where fetched media files land.
	MediaDir string

	// LedgerPath is the cache ledger JSON file.
	LedgerPath string

	// VoiceTag names the configured voice pool in media filenames.
	VoiceTag string

	// Concurrency bounds the number of in-flight fetch tasks.
	Concurrency int

	// BatchSize is the number of rows grouped per processing batch.
	BatchSize int

	// Shuffle randomizes row order before processing.
	Shuffle bool

	// SkipImages disables image fetching for the whole run.
	SkipImages bool

	// SkipAudio disables audio fetching for the whole run.
	SkipAudio bool
}

const (
	defaultConcurrency = 5
	defaultBatchSize   = 50
)

// withDefaults fills zero fields with the standard values.
func (c Config) withDefaults() Config {
	if c.Concurrency <= 0 {
		c.Concurrency = defaultConcurrency
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.VoiceTag == "" {
		c.VoiceTag = "mixed"
	}
	if c.Language == "" {
		c.Language = "XX"
	}
	return c
}
