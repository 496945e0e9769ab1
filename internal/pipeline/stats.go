package pipeline

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// maxFailureSamples bounds how many failing words are kept for the
// summary report.
const maxFailureSamples = 10

// Stats accumulates counters across a build run. All methods are safe
// for concurrent use. Success counters include cache reuse: a cached
// file satisfies the row exactly like a fresh fetch, the cached
// sub-counter only tells the two apart in the report.
type Stats struct {
	mu sync.Mutex

	StartTime time.Time

	WordsProcessed int
	RowsFailed     int

	ImagesSuccess int
	ImagesCached  int
	ImagesFailed  int
	ImagesSkipped int

	AudioSuccess int
	AudioCached  int
	AudioFailed  int
	AudioSkipped int

	MediaBytes int64

	failingWords []string
}

// NewStats starts the wall clock for the run report.
func NewStats() *Stats {
	return &Stats{StartTime: time.Now()}
}

func (s *Stats) AddWord() {
	s.mu.Lock()
	s.WordsProcessed++
	s.mu.Unlock()
}

// AddRowFailure records a row that could not produce a card. The word is
// truncated so a corrupt cell cannot blow up the report.
func (s *Stats) AddRowFailure(word string) {
	if len(word) > 40 {
		word = word[:40] + "..."
	}
	s.mu.Lock()
	s.RowsFailed++
	if len(s.failingWords) < maxFailureSamples {
		s.failingWords = append(s.failingWords, word)
	}
	s.mu.Unlock()
}

func (s *Stats) AddImage(outcome Outcome) { s.add(&s.ImagesSuccess, &s.ImagesCached, &s.ImagesFailed, &s.ImagesSkipped, outcome) }
func (s *Stats) AddAudio(outcome Outcome) { s.add(&s.AudioSuccess, &s.AudioCached, &s.AudioFailed, &s.AudioSkipped, outcome) }

// Outcome classifies a single media task.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeCached
	OutcomeFailed
	OutcomeSkipped
)

func (s *Stats) add(success, cached, failed, skipped *int, outcome Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch outcome {
	case OutcomeSuccess:
		*success++
	case OutcomeCached:
		*success++
		*cached++
	case OutcomeFailed:
		*failed++
	case OutcomeSkipped:
		*skipped++
	}
}

// AddMediaBytes adds the on-disk size of one resolved media file.
func (s *Stats) AddMediaBytes(n int64) {
	s.mu.Lock()
	s.MediaBytes += n
	s.mu.Unlock()
}

// FailingWords returns the sampled words whose rows failed.
func (s *Stats) FailingWords() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.failingWords))
	copy(out, s.failingWords)
	return out
}

// Summary renders a human readable report of the run.
func (s *Stats) Summary() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "Words processed:  %d\n", s.WordsProcessed)
	fmt.Fprintf(&b, "Rows failed:      %d\n", s.RowsFailed)
	fmt.Fprintf(&b, "Images:           %s\n",
		mediaLine(s.ImagesSuccess, s.ImagesCached, s.ImagesFailed, s.ImagesSkipped))
	fmt.Fprintf(&b, "Audio:            %s\n",
		mediaLine(s.AudioSuccess, s.AudioCached, s.AudioFailed, s.AudioSkipped))
	fmt.Fprintf(&b, "Media size:       %.1f MB\n", float64(s.MediaBytes)/(1024*1024))
	if !s.StartTime.IsZero() {
		fmt.Fprintf(&b, "Elapsed:          %s\n", time.Since(s.StartTime).Round(time.Second))
	}
	if len(s.failingWords) > 0 {
		fmt.Fprintf(&b, "Failing words:    %s\n", strings.Join(s.failingWords, ", "))
	}
	return b.String()
}

// mediaLine renders one media counter group. The success rate covers
// attempted tasks only, skipped slots say nothing about the provider.
func mediaLine(success, cached, failed, skipped int) string {
	line := fmt.Sprintf("%d ok (%d cached), %d failed, %d skipped",
		success, cached, failed, skipped)
	if attempted := success + failed; attempted > 0 {
		line += fmt.Sprintf(" [%.1f%% ok]", 100*float64(success)/float64(attempted))
	}
	return line
}
