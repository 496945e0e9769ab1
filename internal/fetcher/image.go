package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// minImageSize is the smallest payload accepted as a genuine image. Error
// pages returned with HTTP 200 are consistently smaller.
const minImageSize = 2000

// minPromptLen guards against accidental one-word prompts that generate
// noise images.
const minPromptLen = 5

// ImageConfig configures the prompt-to-image fetcher.
type ImageConfig struct {
	Endpoint string // base URL, prompt is appended as a path segment
	APIKey   string
	Model    string
	Width    int
	Height   int
	Timeout  time.Duration // per-request timeout
	Retries  int

	// Concurrency sizes the pooled connection limit; set it to the
	// pipeline's concurrency so every in-flight row can hold a connection.
	Concurrency int
}

// DefaultImageConfig returns the defaults used when fields are unset.
func DefaultImageConfig() ImageConfig {
	return ImageConfig{
		Model:       "flux",
		Width:       320,
		Height:      200,
		Timeout:     60 * time.Second,
		Retries:     3,
		Concurrency: 5,
	}
}

var (
	errUnauthorized = errors.New("image API authentication failed")
	errThrottled    = errors.New("image API rate limited")
)

// ImageFetcher generates images from text prompts over a simple HTTP
// endpoint (prompt in the URL path, parameters in the query string). One
// pooled client is shared by all calls; the circuit breaker stops new
// attempts after sustained hard failures so a dead or unauthenticated
// endpoint is not hammered once per row across a large build.
type ImageFetcher struct {
	config  ImageConfig
	report  OutcomeFunc
	breaker *gobreaker.CircuitBreaker

	// waitUnit scales the retry waits; tests shrink it.
	waitUnit time.Duration

	clientOnce sync.Once
	client     *http.Client
}

// NewImageFetcher creates the HTTP image fetcher. report may be nil.
func NewImageFetcher(config ImageConfig, report OutcomeFunc) (*ImageFetcher, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("image endpoint is required")
	}

	def := DefaultImageConfig()
	if config.Model == "" {
		config.Model = def.Model
	}
	if config.Width == 0 {
		config.Width = def.Width
	}
	if config.Height == 0 {
		config.Height = def.Height
	}
	if config.Timeout == 0 {
		config.Timeout = def.Timeout
	}
	if config.Retries == 0 {
		config.Retries = def.Retries
	}
	if config.Concurrency == 0 {
		config.Concurrency = def.Concurrency
	}
	if report == nil {
		report = func(int, bool) {}
	}

	f := &ImageFetcher{config: config, report: report, waitUnit: time.Second}
	f.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "image-generation",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return f, nil
}

// httpClient lazily builds the shared pooled client sized to the configured
// concurrency. Created at most once.
func (f *ImageFetcher) httpClient() *http.Client {
	f.clientOnce.Do(func() {
		f.client = &http.Client{
			Timeout: f.config.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        f.config.Concurrency,
				MaxIdleConnsPerHost: f.config.Concurrency,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	})
	return f.client
}

// Fetch generates an image for the prompt and writes it to outputPath.
// Retries transient failures with exponential waits (2^attempt seconds);
// throttling waits longer (5 * 2^attempt) and is reported to the rate
// tracker; an authentication failure aborts immediately.
func (f *ImageFetcher) Fetch(ctx context.Context, source, outputPath string) bool {
	prompt := strings.TrimSpace(source)
	if len(prompt) < minPromptLen {
		return false
	}

	for attempt := 0; attempt < f.config.Retries; attempt++ {
		_, err := f.breaker.Execute(func() (interface{}, error) {
			return nil, f.attempt(ctx, prompt, outputPath)
		})
		if err == nil {
			f.report(200, true)
			return true
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			// Breaker is open: fail fast, no point sleeping.
			break
		}
		if errors.Is(err, errUnauthorized) {
			// Bad credentials do not heal between attempts.
			break
		}
		if errors.Is(err, errThrottled) {
			f.report(429, false)
			if !sleepCtx(ctx, time.Duration(5<<attempt)*f.waitUnit) {
				break
			}
			continue
		}
		if ctx.Err() != nil {
			break
		}
		if !sleepCtx(ctx, time.Duration(1<<(attempt+1))*f.waitUnit) {
			break
		}
	}

	f.report(0, false)
	return false
}

// attempt performs one generation request.
func (f *ImageFetcher) attempt(ctx context.Context, prompt, outputPath string) error {
	reqCtx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	reqURL := fmt.Sprintf("%s/%s", strings.TrimRight(f.config.Endpoint, "/"), url.PathEscape(prompt))
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	q := req.URL.Query()
	q.Set("model", f.config.Model)
	q.Set("width", strconv.Itoa(f.config.Width))
	q.Set("height", strconv.Itoa(f.config.Height))
	q.Set("nologo", "true")
	req.URL.RawQuery = q.Encode()

	if f.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.config.APIKey)
	}

	resp, err := f.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("image request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// Validated below.
	case http.StatusUnauthorized:
		return errUnauthorized
	case http.StatusTooManyRequests:
		return errThrottled
	default:
		return fmt.Errorf("image API returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read image body: %w", err)
	}

	// The endpoint reports 200 for some failure modes; trust the bytes,
	// not the status.
	if !looksLikeImage(data) || len(data) <= minImageSize {
		return fmt.Errorf("invalid image payload: %d bytes", len(data))
	}

	return writeAtomic(data, outputPath, minImageSize)
}

// Close releases the pooled connections.
func (f *ImageFetcher) Close() error {
	if f.client != nil {
		f.client.CloseIdleConnections()
	}
	return nil
}

// Name implements Fetcher.
func (f *ImageFetcher) Name() string { return "image-http" }
