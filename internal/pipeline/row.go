package pipeline

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"codeberg.org/snonux/ankitect/internal"
	"codeberg.org/snonux/ankitect/internal/cache"
	"codeberg.org/snonux/ankitect/internal/fetcher"
	"codeberg.org/snonux/ankitect/internal/ratesignal"
	"codeberg.org/snonux/ankitect/internal/vocab"
)

// Processor turns a single vocabulary row into an enriched card. Media
// tasks for one row run concurrently, bounded by the shared slot
// channel so the whole run never exceeds the configured concurrency.
type Processor struct {
	cfg     Config
	ledger  *cache.Ledger
	tracker *ratesignal.Tracker
	images  fetcher.Fetcher
	audio   fetcher.Fetcher
	slots   chan struct{}
	stats   *Stats
}

func NewProcessor(cfg Config, ledger *cache.Ledger, tracker *ratesignal.Tracker, images, audio fetcher.Fetcher, stats *Stats) *Processor {
	cfg = cfg.withDefaults()
	return &Processor{
		cfg:     cfg,
		ledger:  ledger,
		tracker: tracker,
		images:  images,
		audio:   audio,
		slots:   make(chan struct{}, cfg.Concurrency),
		stats:   stats,
	}
}

// ProcessRow enriches one row. Rows without a target word are not
// counted as processed; they only advance the run's progress.
func (p *Processor) ProcessRow(ctx context.Context, row vocab.Row) *EnrichedCard {
	word := strings.TrimSpace(row.TargetWord)
	if word == "" {
		return nil
	}

	// Counted up front so a row that later fails still shows up as
	// processed in the report.
	p.stats.AddWord()

	// When the provider has been throttling, pause before even
	// queueing this row's tasks.
	if wait := p.tracker.CurrentBackoff(); wait > 0 {
		if !sleepCtx(ctx, wait) {
			return nil
		}
	}

	cardID := internal.CardID(word, row.PartOfSpeech, row.Meaning, row.Position, p.cfg.Language)

	card := &EnrichedCard{
		Row:           row,
		CardID:        cardID,
		ImageFile:     internal.ImageFilename(cardID),
		WordAudioFile: internal.WordAudioFilename(cardID, p.cfg.VoiceTag),
	}

	sentences := row.Sentences()
	card.SentenceFiles = make([]string, len(sentences))
	card.SentencesReady = make([]bool, len(sentences))
	for i := range sentences {
		card.SentenceFiles[i] = internal.SentenceAudioFilename(cardID, p.cfg.VoiceTag, i+1)
	}

	var wg sync.WaitGroup

	prompt := strings.TrimSpace(row.ImagePrompt)
	if p.cfg.SkipImages || prompt == "" {
		p.stats.AddImage(OutcomeSkipped)
	} else {
		wg.Add(1)
		go func() {
			defer wg.Done()
			card.ImageFetched = p.runTask(ctx, p.images, prompt, card.ImageFile, p.stats.AddImage)
		}()
	}

	if p.cfg.SkipAudio {
		p.stats.AddAudio(OutcomeSkipped)
		for range sentences {
			p.stats.AddAudio(OutcomeSkipped)
		}
	} else {
		wg.Add(1)
		go func() {
			defer wg.Done()
			card.WordAudioReady = p.runTask(ctx, p.audio, word, card.WordAudioFile, p.stats.AddAudio)
		}()
		for i, sentence := range sentences {
			if strings.TrimSpace(sentence) == "" {
				p.stats.AddAudio(OutcomeSkipped)
				continue
			}
			wg.Add(1)
			go func(i int, sentence string) {
				defer wg.Done()
				card.SentencesReady[i] = p.runTask(ctx, p.audio, sentence, card.SentenceFiles[i], p.stats.AddAudio)
			}(i, sentence)
		}
	}

	wg.Wait()
	return card
}

// runTask executes one media fetch through the cache: cached files are
// reused, fresh fetches are recorded on success. A panic in a fetcher
// is contained to this task and counted as a failure.
func (p *Processor) runTask(ctx context.Context, f fetcher.Fetcher, source, filename string, record func(Outcome)) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			record(OutcomeFailed)
			ok = false
		}
	}()

	outputPath := p.ledger.MediaPath(filename)

	if p.ledger.IsCached(filename) {
		record(OutcomeCached)
		p.stats.AddMediaBytes(fileSize(outputPath))
		return true
	}

	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		record(OutcomeFailed)
		return false
	}
	defer func() { <-p.slots }()

	if f.Fetch(ctx, source, outputPath) {
		// A fetcher may report success without producing a file, for
		// example when the source text is empty after TTS cleaning.
		// No file means nothing to cache and nothing to attach.
		size := fileSize(outputPath)
		if size == 0 {
			record(OutcomeSkipped)
			return false
		}
		p.ledger.MarkCached(filename)
		record(OutcomeSuccess)
		p.stats.AddMediaBytes(size)
		return true
	}
	record(OutcomeFailed)
	return false
}

func fileSize(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return fi.Size()
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
