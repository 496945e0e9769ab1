package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	openai "github.com/sashabaranov/go-openai"

	"codeberg.org/snonux/ankitect/internal/textutil"
)

// minAudioSize is the smallest payload accepted as genuine audio. A failed
// synthesis usually produces an empty or tiny body.
const minAudioSize = 100

// AudioConfig configures the TTS audio fetcher.
type AudioConfig struct {
	APIKey  string
	BaseURL string        // override the API base URL (proxies, tests)
	Model   string        // e.g. "gpt-4o-mini-tts", "tts-1"
	Voices  []string      // voice pool, one picked per call
	Speed   float64       // 0.25 to 4.0
	Timeout time.Duration // per-request timeout
	Retries int           // transient-error retries
}

// DefaultAudioConfig returns the defaults used when fields are unset.
func DefaultAudioConfig() AudioConfig {
	return AudioConfig{
		Model:   "gpt-4o-mini-tts",
		Voices:  []string{"alloy", "echo", "nova", "shimmer"},
		Speed:   0.95,
		Timeout: 30 * time.Second,
		Retries: 2,
	}
}

// AudioFetcher synthesizes speech via the OpenAI TTS API. Voices rotate
// pseudo-randomly across calls for natural variety, and a small random
// delay before each request smooths out bursts when many rows dispatch at
// once.
type AudioFetcher struct {
	client *openai.Client
	config AudioConfig
	report OutcomeFunc
}

// NewAudioFetcher creates the TTS fetcher. report may be nil.
func NewAudioFetcher(config AudioConfig, report OutcomeFunc) (*AudioFetcher, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	def := DefaultAudioConfig()
	if config.Model == "" {
		config.Model = def.Model
	}
	if len(config.Voices) == 0 {
		config.Voices = def.Voices
	}
	if config.Speed == 0 {
		config.Speed = def.Speed
	}
	if config.Timeout == 0 {
		config.Timeout = def.Timeout
	}
	if config.Retries == 0 {
		config.Retries = def.Retries
	}
	if report == nil {
		report = func(int, bool) {}
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &AudioFetcher{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
		report: report,
	}, nil
}

// Fetch synthesizes source into an MP3 at outputPath. Text that is empty
// after cleaning is a no-op success-skip, not an error: the card simply has
// no audio for that slot.
func (f *AudioFetcher) Fetch(ctx context.Context, source, outputPath string) bool {
	text := textutil.CleanForTTS(source)
	if text == "" {
		return true
	}

	if !sleepCtx(ctx, jitter(100*time.Millisecond, 500*time.Millisecond)) {
		return false
	}

	voice := f.config.Voices[rand.Intn(len(f.config.Voices))]

	operation := func() error {
		reqCtx, cancel := context.WithTimeout(ctx, f.config.Timeout)
		defer cancel()

		resp, err := f.client.CreateSpeech(reqCtx, openai.CreateSpeechRequest{
			Model:          openai.SpeechModel(f.config.Model),
			Input:          text,
			Voice:          openai.SpeechVoice(voice),
			Speed:          f.config.Speed,
			ResponseFormat: openai.SpeechResponseFormatMp3,
		})
		if err != nil {
			return f.classifyError(err)
		}
		defer resp.Close()

		data, err := io.ReadAll(resp)
		if err != nil {
			return fmt.Errorf("failed to read audio response: %w", err)
		}
		return writeAtomic(data, outputPath, minAudioSize)
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(f.config.Retries)), ctx)
	if err := backoff.Retry(operation, bo); err != nil {
		f.report(0, false)
		return false
	}

	f.report(200, true)
	return true
}

// classifyError decides whether an API error is worth retrying. Auth
// failures are permanent; throttling is reported to the tracker and then
// retried.
func (f *AudioFetcher) classifyError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case 401, 403:
			return backoff.Permanent(fmt.Errorf("TTS auth failure: %w", err))
		case 429:
			f.report(429, false)
			return fmt.Errorf("TTS throttled: %w", err)
		}
	}
	if strings.Contains(err.Error(), "429") || strings.Contains(err.Error(), "Too Many Requests") {
		f.report(429, false)
	}
	return fmt.Errorf("TTS request failed: %w", err)
}

// Close implements Fetcher. The OpenAI client keeps no pooled state that
// needs explicit release.
func (f *AudioFetcher) Close() error { return nil }

// Name implements Fetcher.
func (f *AudioFetcher) Name() string { return "openai-tts" }
