package fetcher

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"codeberg.org/snonux/ankitect/internal/ratesignal"
)

func newTestAudioFetcher(t *testing.T, baseURL string, report OutcomeFunc) *AudioFetcher {
	t.Helper()

	f, err := NewAudioFetcher(AudioConfig{
		APIKey:  "test-key",
		BaseURL: baseURL,
		Voices:  []string{"nova"},
		Timeout: 5 * time.Second,
		Retries: 2,
	}, report)
	if err != nil {
		t.Fatalf("NewAudioFetcher() error = %v", err)
	}
	return f
}

func TestAudioFetchSuccess(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Write(bytes.Repeat([]byte{0xFF, 0xFB}, 1024))
	}))
	defer srv.Close()

	tracker := ratesignal.New()
	f := newTestAudioFetcher(t, srv.URL, tracker.RecordOutcome)
	defer f.Close()

	out := filepath.Join(t.TempDir(), "word.mp3")
	if !f.Fetch(context.Background(), "Der Hund bellt.", out) {
		t.Fatal("Fetch() = false, want true")
	}
	if requests.Load() != 1 {
		t.Errorf("requests = %d, want 1", requests.Load())
	}
	if s := tracker.Stats(); s.ConsecutiveSuccess != 1 {
		t.Errorf("tracker saw %d successes, want 1", s.ConsecutiveSuccess)
	}
}

func TestAudioFetchEmptyTextIsSuccessSkip(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}))
	defer srv.Close()

	f := newTestAudioFetcher(t, srv.URL, nil)
	defer f.Close()

	out := filepath.Join(t.TempDir(), "word.mp3")
	// Nothing speakable remains after cleaning: skip, don't error.
	if !f.Fetch(context.Background(), "<br> <i></i> ", out) {
		t.Error("empty-after-cleaning text must be a success-skip")
	}
	if requests.Load() != 0 {
		t.Errorf("skip must not hit the API, saw %d requests", requests.Load())
	}
}

func TestAudioFetchTinyBodyFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("x")) // under the minimum audio size
	}))
	defer srv.Close()

	tracker := ratesignal.New()
	f := newTestAudioFetcher(t, srv.URL, tracker.RecordOutcome)
	defer f.Close()

	out := filepath.Join(t.TempDir(), "word.mp3")
	if f.Fetch(context.Background(), "Der Hund bellt.", out) {
		t.Error("tiny payload should fail")
	}
	if s := tracker.Stats(); s.ConsecutiveFailures != 1 {
		t.Errorf("tracker failures = %d, want 1", s.ConsecutiveFailures)
	}
}

func TestAudioFetcherRequiresKey(t *testing.T) {
	if _, err := NewAudioFetcher(AudioConfig{}, nil); err == nil {
		t.Error("expected error without API key")
	}
}
