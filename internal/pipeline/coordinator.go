package pipeline

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/sirupsen/logrus"

	"codeberg.org/snonux/ankitect/internal/cache"
	"codeberg.org/snonux/ankitect/internal/fetcher"
	"codeberg.org/snonux/ankitect/internal/logger"
	"codeberg.org/snonux/ankitect/internal/ratesignal"
	"codeberg.org/snonux/ankitect/internal/vocab"
)

// Builder runs the enrichment pipeline over a full vocabulary file.
type Builder struct {
	cfg      Config
	ledger   *cache.Ledger
	tracker  *ratesignal.Tracker
	images   fetcher.Fetcher
	audio    fetcher.Fetcher
	progress *ProgressQueue
	log      *logrus.Entry
}

// BuildResult is what a completed run hands back to the deck exporter.
type BuildResult struct {
	Cards []*EnrichedCard
	Stats *Stats

	// RateAdjustments counts how often the provider throttled us.
	RateAdjustments int
}

// NewBuilder wires a run. tracker must be the same instance whose
// RecordOutcome the fetchers report to; pass nil to create a private one.
func NewBuilder(cfg Config, ledger *cache.Ledger, tracker *ratesignal.Tracker, images, audio fetcher.Fetcher, progress *ProgressQueue, log *logger.Logger) *Builder {
	if progress == nil {
		progress = NewProgressQueue()
	}
	if log == nil {
		log = logger.Discard()
	}
	if tracker == nil {
		tracker = ratesignal.New()
	}
	entry := log.WithComponent("pipeline")
	return &Builder{
		cfg:      cfg.withDefaults(),
		ledger:   ledger,
		tracker:  tracker,
		images:   images,
		audio:    audio,
		progress: progress,
		log:      entry,
	}
}

// Progress exposes the event queue for a consumer goroutine.
func (b *Builder) Progress() *ProgressQueue {
	return b.progress
}

// Run processes all rows in batches. A cancelled context stops between
// rows; work already done is kept and the ledger is flushed either way.
func (b *Builder) Run(ctx context.Context, rows []vocab.Row) (*BuildResult, error) {
	stats := NewStats()
	proc := NewProcessor(b.cfg, b.ledger, b.tracker, b.images, b.audio, stats)

	defer func() {
		if b.images != nil {
			if err := b.images.Close(); err != nil {
				b.log.WithError(err).Warn("closing image fetcher")
			}
		}
		if b.audio != nil {
			if err := b.audio.Close(); err != nil {
				b.log.WithError(err).Warn("closing audio fetcher")
			}
		}
		if err := b.ledger.Flush(); err != nil {
			b.log.WithError(err).Warn("flushing cache ledger")
		}
	}()

	if b.cfg.Shuffle {
		rows = append([]vocab.Row(nil), rows...)
		rand.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })
	}

	total := len(rows)
	logEvery := throttleInterval(total, 50)
	progressEvery := throttleInterval(total, 100)

	b.log.WithField("rows", total).Info("starting enrichment run")
	b.progress.Log(fmt.Sprintf("processing %d rows", total))

	cards := make([]*EnrichedCard, 0, total)

	var mu sync.Mutex
	done := 0

	for start := 0; start < total; start += b.cfg.BatchSize {
		end := start + b.cfg.BatchSize
		if end > total {
			end = total
		}

		if ctx.Err() != nil {
			b.log.WithField("completed", done).Info("run cancelled, keeping partial results")
			return &BuildResult{Cards: cards, Stats: stats, RateAdjustments: b.tracker.Stats().Adjustments}, ctx.Err()
		}

		// All rows of a batch run concurrently; the shared slot
		// channel inside the processor caps actual media fetches.
		// Results are indexed by batch position so card order never
		// depends on which row finishes first.
		batchCards := make([]*EnrichedCard, end-start)
		var wg sync.WaitGroup
		for i, row := range rows[start:end] {
			wg.Add(1)
			go func(i int, row vocab.Row) {
				defer wg.Done()
				batchCards[i] = b.processGuarded(ctx, proc, row, stats)

				mu.Lock()
				done++
				d := done
				mu.Unlock()

				if d%logEvery == 0 || d == total {
					b.log.WithField("completed", d).WithField("total", total).Info("enrichment progress")
					b.progress.Log(fmt.Sprintf("processed %d/%d rows", d, total))
				}
				if d%progressEvery == 0 || d == total {
					b.progress.Progress(d)
				}
			}(i, row)
		}
		wg.Wait()

		for _, card := range batchCards {
			if card != nil {
				cards = append(cards, card)
			}
		}

		if ctx.Err() != nil {
			b.log.WithField("completed", done).Info("run cancelled, keeping partial results")
			return &BuildResult{Cards: cards, Stats: stats, RateAdjustments: b.tracker.Stats().Adjustments}, ctx.Err()
		}

		// Persist between batches so a crash loses little work.
		if err := b.ledger.Flush(); err != nil {
			b.log.WithError(err).Warn("flushing cache ledger between batches")
		}
	}

	snap := b.tracker.Stats()
	b.log.WithField("cards", len(cards)).
		WithField("rate_adjustments", snap.Adjustments).
		Info("enrichment run complete")

	return &BuildResult{Cards: cards, Stats: stats, RateAdjustments: snap.Adjustments}, nil
}

// processGuarded contains a panic from a single row so one corrupt row
// cannot abort the whole run.
func (b *Builder) processGuarded(ctx context.Context, proc *Processor, row vocab.Row, stats *Stats) (card *EnrichedCard) {
	defer func() {
		if r := recover(); r != nil {
			stats.AddRowFailure(row.TargetWord)
			b.log.WithField("word", row.TargetWord).WithField("panic", r).Error("row processing failed")
			card = nil
		}
	}()
	return proc.ProcessRow(ctx, row)
}

func throttleInterval(total, buckets int) int {
	n := total / buckets
	if n < 1 {
		n = 1
	}
	return n
}
