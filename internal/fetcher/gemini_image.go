package fetcher

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"
)

// GeminiImageConfig configures the Google Imagen provider.
type GeminiImageConfig struct {
	APIKey  string
	Model   string // e.g. "imagen-3.0-generate-002"
	Timeout time.Duration
	Retries int
}

// GeminiImageFetcher generates images through the Google GenAI SDK. The
// client is created lazily on first use so constructing the fetcher never
// needs a context or network access.
type GeminiImageFetcher struct {
	config GeminiImageConfig
	report OutcomeFunc

	clientOnce sync.Once
	client     *genai.Client
	clientErr  error
}

// NewGeminiImageFetcher creates the Imagen fetcher. report may be nil.
func NewGeminiImageFetcher(config GeminiImageConfig, report OutcomeFunc) (*GeminiImageFetcher, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required for image generation")
	}
	if config.Model == "" {
		config.Model = "imagen-3.0-generate-002"
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	if config.Retries == 0 {
		config.Retries = 3
	}
	if report == nil {
		report = func(int, bool) {}
	}

	return &GeminiImageFetcher{config: config, report: report}, nil
}

func (f *GeminiImageFetcher) getClient(ctx context.Context) (*genai.Client, error) {
	f.clientOnce.Do(func() {
		f.client, f.clientErr = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  f.config.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
	})
	return f.client, f.clientErr
}

// Fetch generates one image for the prompt and writes it to outputPath.
func (f *GeminiImageFetcher) Fetch(ctx context.Context, source, outputPath string) bool {
	prompt := strings.TrimSpace(source)
	if len(prompt) < minPromptLen {
		return false
	}

	client, err := f.getClient(ctx)
	if err != nil {
		f.report(0, false)
		return false
	}

	for attempt := 0; attempt < f.config.Retries; attempt++ {
		err := f.attempt(ctx, client, prompt, outputPath)
		if err == nil {
			f.report(200, true)
			return true
		}

		if strings.Contains(err.Error(), "429") || strings.Contains(err.Error(), "RESOURCE_EXHAUSTED") {
			f.report(429, false)
			if !sleepCtx(ctx, time.Duration(5<<attempt)*time.Second) {
				break
			}
			continue
		}
		if ctx.Err() != nil {
			break
		}
		if !sleepCtx(ctx, time.Duration(1<<(attempt+1))*time.Second) {
			break
		}
	}

	f.report(0, false)
	return false
}

func (f *GeminiImageFetcher) attempt(ctx context.Context, client *genai.Client, prompt, outputPath string) error {
	reqCtx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	resp, err := client.Models.GenerateImages(reqCtx, f.config.Model, prompt, nil)
	if err != nil {
		return fmt.Errorf("image generation failed: %w", err)
	}
	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
		return fmt.Errorf("image API returned no data")
	}

	data := resp.GeneratedImages[0].Image.ImageBytes
	if !looksLikeImage(data) {
		return fmt.Errorf("invalid image payload: %d bytes", len(data))
	}

	return writeAtomic(data, outputPath, minImageSize)
}

// Close implements Fetcher.
func (f *GeminiImageFetcher) Close() error { return nil }

// Name implements Fetcher.
func (f *GeminiImageFetcher) Name() string { return "gemini-image" }
