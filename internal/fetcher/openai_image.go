package fetcher

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIImageConfig configures the DALL-E image provider.
type OpenAIImageConfig struct {
	APIKey  string
	Model   string // "dall-e-2" or "dall-e-3"
	Size    string // e.g. "1024x1024"
	Quality string // "standard" or "hd" (dall-e-3 only)
	Style   string // "natural" or "vivid" (dall-e-3 only)
	Timeout time.Duration
	Retries int
}

// OpenAIImageFetcher generates images with the OpenAI image API. It
// satisfies the same contract as the HTTP fetcher and reuses its
// validation and atomic-write path.
type OpenAIImageFetcher struct {
	client *openai.Client
	config OpenAIImageConfig
	report OutcomeFunc
}

// NewOpenAIImageFetcher creates the DALL-E fetcher. report may be nil.
func NewOpenAIImageFetcher(config OpenAIImageConfig, report OutcomeFunc) (*OpenAIImageFetcher, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required for image generation")
	}
	if config.Model == "" {
		config.Model = openai.CreateImageModelDallE3
	}
	if config.Size == "" {
		config.Size = openai.CreateImageSize1024x1024
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

	return &OpenAIImageFetcher{
		client: openai.NewClient(config.APIKey),
		config: config,
		report: report,
	}, nil
}

// Fetch generates one image for the prompt and writes it to outputPath.
func (f *OpenAIImageFetcher) Fetch(ctx context.Context, source, outputPath string) bool {
	prompt := strings.TrimSpace(source)
	if len(prompt) < minPromptLen {
		return false
	}

	for attempt := 0; attempt < f.config.Retries; attempt++ {
		err := f.attempt(ctx, prompt, outputPath)
		if err == nil {
			f.report(200, true)
			return true
		}

		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.HTTPStatusCode {
			case 401, 403:
				f.report(0, false)
				return false
			case 429:
				f.report(429, false)
				if !sleepCtx(ctx, time.Duration(5<<attempt)*time.Second) {
					f.report(0, false)
					return false
				}
				continue
			}
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

func (f *OpenAIImageFetcher) attempt(ctx context.Context, prompt, outputPath string) error {
	reqCtx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	resp, err := f.client.CreateImage(reqCtx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          f.config.Model,
		N:              1,
		Size:           f.config.Size,
		Quality:        f.config.Quality,
		Style:          f.config.Style,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return err
	}
	if len(resp.Data) == 0 {
		return fmt.Errorf("image API returned no data")
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return fmt.Errorf("failed to decode image payload: %w", err)
	}
	if !looksLikeImage(data) {
		return fmt.Errorf("invalid image payload: %d bytes", len(data))
	}

	return writeAtomic(data, outputPath, minImageSize)
}

// Close implements Fetcher.
func (f *OpenAIImageFetcher) Close() error { return nil }

// Name implements Fetcher.
func (f *OpenAIImageFetcher) Name() string { return "openai-image" }
