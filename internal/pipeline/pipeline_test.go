package pipeline

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"codeberg.org/snonux/ankitect/internal"
	"codeberg.org/snonux/ankitect/internal/cache"
	"codeberg.org/snonux/ankitect/internal/fetcher"
	"codeberg.org/snonux/ankitect/internal/logger"
	"codeberg.org/snonux/ankitect/internal/ratesignal"
	"codeberg.org/snonux/ankitect/internal/testutil"
	"codeberg.org/snonux/ankitect/internal/vocab"
)

var _ fetcher.Fetcher = (*testutil.FakeFetcher)(nil)

func newTestLedger(t *testing.T) *cache.Ledger {
	t.Helper()
	dir := t.TempDir()
	return cache.New(filepath.Join(dir, "ledger.json"), dir, cache.WithMinFileSize(10))
}

func testRow(position int, word, prompt, sentences string) vocab.Row {
	return vocab.Row{
		TargetWord:       word,
		Meaning:          "meaning of " + word,
		PartOfSpeech:     "noun",
		ImagePrompt:      prompt,
		ContextSentences: sentences,
		Position:         position,
	}
}

func TestRunEnrichesRows(t *testing.T) {
	ledger := newTestLedger(t)
	tracker := ratesignal.New()

	images := &testutil.FakeFetcher{}
	audio := &testutil.FakeFetcher{}

	cfg := Config{Language: "BG", VoiceTag: "mixed", Concurrency: 4, BatchSize: 2}

	// Pre-cache the first row's image so the run reuses it.
	rowA := testRow(0, "ябълка", "an apple on a table", "Това е ябълка.")
	idA := internal.CardID(rowA.TargetWord, rowA.PartOfSpeech, rowA.Meaning, rowA.Position, "BG")
	imgA := internal.ImageFilename(idA)
	if !testutil.WriteFakeMedia(ledger.MediaPath(imgA)) {
		t.Fatal("seeding cached image")
	}
	ledger.MarkCached(imgA)

	rows := []vocab.Row{
		rowA,
		testRow(1, "круша", "a pear in sunlight", "Крушата е зряла.<br>Ям круша."),
		testRow(2, "", "prompt for empty word", ""),
	}

	b := NewBuilder(cfg, ledger, tracker, images, audio, nil, logger.Discard())
	result, err := b.Run(context.Background(), rows)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	stats := result.Stats
	// The empty-word row only advances progress, it is not a processed word.
	if stats.WordsProcessed != 2 {
		t.Errorf("WordsProcessed = %d, want 2", stats.WordsProcessed)
	}
	if len(result.Cards) != 2 {
		t.Fatalf("cards = %d, want 2", len(result.Cards))
	}
	// A cache hit satisfies the row like a fresh fetch: both rows with a
	// prompt end up in the success counter, the reuse in the sub-counter.
	if stats.ImagesSuccess != 2 {
		t.Errorf("ImagesSuccess = %d, want 2", stats.ImagesSuccess)
	}
	if stats.ImagesCached != 1 {
		t.Errorf("ImagesCached = %d, want 1", stats.ImagesCached)
	}
	if stats.ImagesSuccess+stats.ImagesFailed != 2 {
		t.Errorf("success+failed = %d, want the 2 rows with prompts",
			stats.ImagesSuccess+stats.ImagesFailed)
	}
	if stats.MediaBytes == 0 {
		t.Error("MediaBytes = 0, want resolved media sizes accumulated")
	}
	// Row A: word + 1 sentence. Row B: word + 2 sentences.
	if stats.AudioSuccess != 5 {
		t.Errorf("AudioSuccess = %d, want 5", stats.AudioSuccess)
	}
	// Row A pads to 3 sentence slots, 2 empty. Row B has 1 empty slot.
	if stats.AudioSkipped != 3 {
		t.Errorf("AudioSkipped = %d, want 3", stats.AudioSkipped)
	}

	cardA := result.Cards[0]
	if !cardA.ImageFetched {
		t.Error("cached image not marked as fetched")
	}
	if !strings.HasSuffix(cardA.ImageFile, "_none_v54.jpg") {
		t.Errorf("unexpected image filename %q", cardA.ImageFile)
	}

	// Cached image must not trigger a fetch; only row B's image does.
	if images.CallCount() != 1 {
		t.Errorf("image fetches = %d, want 1", images.CallCount())
	}

	// Fresh media is recorded in the ledger.
	if !ledger.IsCached(result.Cards[1].ImageFile) {
		t.Error("fetched image not recorded in ledger")
	}
	if !ledger.IsCached(cardA.WordAudioFile) {
		t.Error("fetched word audio not recorded in ledger")
	}
}

func TestRunThrottledImageReportsAdjustments(t *testing.T) {
	ledger := newTestLedger(t)
	tracker := ratesignal.New()

	var attempts int
	var mu sync.Mutex
	images := &testutil.FakeFetcher{Handle: func(source, path string) bool {
		mu.Lock()
		attempts++
		n := attempts
		mu.Unlock()
		if n <= 2 {
			tracker.RecordOutcome(429, false)
			return false
		}
		tracker.RecordOutcome(200, true)
		return testutil.WriteFakeMedia(path)
	}}
	audio := &testutil.FakeFetcher{}

	cfg := Config{Language: "EN", Concurrency: 2, SkipAudio: true}
	rows := []vocab.Row{
		testRow(0, "first", "a red door", ""),
		testRow(1, "second", "a blue door", ""),
		testRow(2, "third", "a green door", ""),
	}

	b := NewBuilder(cfg, ledger, tracker, images, audio, nil, logger.Discard())
	result, err := b.Run(context.Background(), rows)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.RateAdjustments != 2 {
		t.Errorf("RateAdjustments = %d, want 2", result.RateAdjustments)
	}
	if result.Stats.ImagesFailed != 2 {
		t.Errorf("ImagesFailed = %d, want 2", result.Stats.ImagesFailed)
	}
	if result.Stats.ImagesSuccess != 1 {
		t.Errorf("ImagesSuccess = %d, want 1", result.Stats.ImagesSuccess)
	}
	if audio.CallCount() != 0 {
		t.Errorf("audio fetches = %d with SkipAudio", audio.CallCount())
	}
}

func TestRowPanicIsContained(t *testing.T) {
	ledger := newTestLedger(t)
	stats := &Stats{}
	b := NewBuilder(Config{}, ledger, nil, &testutil.FakeFetcher{}, &testutil.FakeFetcher{}, nil, logger.Discard())

	// A nil tracker makes the processor panic right after the word is
	// counted; the guard must convert that into a row failure instead
	// of crashing the run.
	proc := NewProcessor(Config{}, ledger, nil, &testutil.FakeFetcher{}, &testutil.FakeFetcher{}, stats)
	row := testRow(0, "badword", "", "")
	card := b.processGuarded(context.Background(), proc, row, stats)
	if card != nil {
		t.Fatal("expected nil card from panicking row")
	}
	if stats.WordsProcessed != 1 {
		t.Errorf("WordsProcessed = %d, want the failed row counted", stats.WordsProcessed)
	}
	if stats.RowsFailed != 1 {
		t.Errorf("RowsFailed = %d, want 1", stats.RowsFailed)
	}
	words := stats.FailingWords()
	if len(words) != 1 || words[0] != "badword" {
		t.Errorf("FailingWords = %v", words)
	}
}

func TestTaskPanicCountsAsFailure(t *testing.T) {
	ledger := newTestLedger(t)
	tracker := ratesignal.New()
	images := &testutil.FakeFetcher{Handle: func(string, string) bool { panic("fetcher bug") }}

	cfg := Config{Language: "EN", Concurrency: 1, SkipAudio: true}
	stats := &Stats{}
	proc := NewProcessor(cfg, ledger, tracker, images, &testutil.FakeFetcher{}, stats)

	card := proc.ProcessRow(context.Background(), testRow(0, "word", "some prompt", ""))
	if card == nil {
		t.Fatal("expected a card despite the failing image task")
	}
	if card.ImageFetched {
		t.Error("panicking task reported as fetched")
	}
	if stats.ImagesFailed != 1 {
		t.Errorf("ImagesFailed = %d, want 1", stats.ImagesFailed)
	}
	if stats.WordsProcessed != 1 {
		t.Errorf("WordsProcessed = %d, want 1", stats.WordsProcessed)
	}
}

func TestRowsWithinBatchRunConcurrently(t *testing.T) {
	ledger := newTestLedger(t)

	// Each fetch parks until released, so the second row's fetch can
	// only start while the first is still in flight.
	started := make(chan string, 2)
	release := make(chan struct{})
	images := &testutil.FakeFetcher{Handle: func(source, path string) bool {
		started <- source
		<-release
		return testutil.WriteFakeMedia(path)
	}}

	cfg := Config{Language: "EN", Concurrency: 2, BatchSize: 2, SkipAudio: true}
	rows := []vocab.Row{
		testRow(0, "first", "a red door", ""),
		testRow(1, "second", "a blue door", ""),
	}

	b := NewBuilder(cfg, ledger, ratesignal.New(), images, &testutil.FakeFetcher{}, nil, logger.Discard())

	type runResult struct {
		result *BuildResult
		err    error
	}
	runDone := make(chan runResult, 1)
	go func() {
		result, err := b.Run(context.Background(), rows)
		runDone <- runResult{result, err}
	}()
	for i := 0; i < 2; i++ {
		select {
		case <-started:
		case <-time.After(5 * time.Second):
			t.Fatal("second row never dispatched while the first was in flight")
		}
	}

	close(release)
	r := <-runDone
	if r.err != nil {
		t.Fatalf("Run: %v", r.err)
	}
	if len(r.result.Cards) != 2 {
		t.Errorf("cards = %d, want 2", len(r.result.Cards))
	}
}

func TestTaskSuccessWithoutFileIsNotCached(t *testing.T) {
	ledger := newTestLedger(t)
	tracker := ratesignal.New()

	// Reports success without writing anything, like a TTS call whose
	// input cleans down to the empty string.
	audio := &testutil.FakeFetcher{Handle: func(string, string) bool { return true }}

	cfg := Config{Language: "EN", Concurrency: 1, SkipImages: true}
	stats := &Stats{}
	proc := NewProcessor(cfg, ledger, tracker, &testutil.FakeFetcher{}, audio, stats)

	card := proc.ProcessRow(context.Background(), testRow(0, "word", "", ""))
	if card == nil {
		t.Fatal("expected a card")
	}
	if card.WordAudioReady {
		t.Error("audio marked ready although no file was produced")
	}
	if ledger.IsCached(card.WordAudioFile) {
		t.Error("ledger entry recorded for a file that was never written")
	}
	if stats.AudioSkipped != 4 {
		t.Errorf("AudioSkipped = %d, want the fileless task and 3 empty sentence slots", stats.AudioSkipped)
	}
	if stats.AudioSuccess != 0 {
		t.Errorf("AudioSuccess = %d, want 0", stats.AudioSuccess)
	}
}

func TestConcurrencyBound(t *testing.T) {
	ledger := newTestLedger(t)
	tracker := ratesignal.New()

	audio := &testutil.FakeFetcher{}
	cfg := Config{Language: "EN", Concurrency: 2, SkipImages: true}
	stats := &Stats{}
	proc := NewProcessor(cfg, ledger, tracker, &testutil.FakeFetcher{}, audio, stats)

	// Three audio tasks per row compete for two slots.
	card := proc.ProcessRow(context.Background(), testRow(0, "word", "", "s one<br>s two"))
	if card == nil {
		t.Fatal("expected a card")
	}

	if audio.MaxInFlight() > 2 {
		t.Errorf("max in-flight fetches = %d, want <= 2", audio.MaxInFlight())
	}
}

func TestRunCancelledContextKeepsPartialResults(t *testing.T) {
	ledger := newTestLedger(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := NewBuilder(Config{Language: "EN"}, ledger, nil, &testutil.FakeFetcher{}, &testutil.FakeFetcher{}, nil, logger.Discard())
	result, err := b.Run(ctx, []vocab.Row{testRow(0, "word", "", "")})
	if err == nil {
		t.Fatal("expected context error")
	}
	if result == nil {
		t.Fatal("expected partial result alongside the error")
	}
	if len(result.Cards) != 0 {
		t.Errorf("cards = %d, want 0", len(result.Cards))
	}
}

func TestProgressQueueDropsWhenFull(t *testing.T) {
	q := NewProgressQueue()
	for i := 0; i < progressQueueSize+50; i++ {
		q.Progress(i)
	}

	events := q.Drain()
	if len(events) != progressQueueSize {
		t.Errorf("drained %d events, want %d", len(events), progressQueueSize)
	}
	if events[0].Value != 0 {
		t.Errorf("first event = %d, want oldest retained", events[0].Value)
	}
}

func TestStatsSummary(t *testing.T) {
	stats := &Stats{}
	stats.AddWord()
	stats.AddWord()
	stats.AddImage(OutcomeSuccess)
	stats.AddImage(OutcomeCached)
	stats.AddAudio(OutcomeFailed)
	stats.AddRowFailure(strings.Repeat("x", 100))

	stats.AddMediaBytes(3 * 1024 * 1024)

	summary := stats.Summary()
	for _, want := range []string{
		"Words processed:  2",
		"2 ok (1 cached), 0 failed, 0 skipped [100.0% ok]",
		"0 ok (0 cached), 1 failed, 0 skipped [0.0% ok]",
		"Media size:       3.0 MB",
		"Rows failed:      1",
		strings.Repeat("x", 40) + "...",
	} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q:\n%s", want, summary)
		}
	}

	// No start time, no elapsed line.
	if strings.Contains(summary, "Elapsed:") {
		t.Error("zero-value stats should not report elapsed time")
	}
	if got := NewStats().Summary(); !strings.Contains(got, "Elapsed:") {
		t.Errorf("summary missing elapsed time:\n%s", got)
	}
}
