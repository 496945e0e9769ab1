package fetcher

import (
	"fmt"
	"time"
)

// ImageProviderConfig selects and configures one of the image providers.
type ImageProviderConfig struct {
	Provider string // "pollinations", "openai" or "gemini"

	// Shared by all providers.
	APIKey  string
	Model   string
	Timeout time.Duration
	Retries int

	// pollinations-style HTTP endpoint.
	Endpoint    string
	Width       int
	Height      int
	Concurrency int

	// OpenAI-specific.
	Size    string
	Quality string
	Style   string
}

// NewImageProvider creates the configured image fetcher.
func NewImageProvider(config ImageProviderConfig, report OutcomeFunc) (Fetcher, error) {
	switch config.Provider {
	case "", "pollinations":
		return NewImageFetcher(ImageConfig{
			Endpoint:    config.Endpoint,
			APIKey:      config.APIKey,
			Model:       config.Model,
			Width:       config.Width,
			Height:      config.Height,
			Timeout:     config.Timeout,
			Retries:     config.Retries,
			Concurrency: config.Concurrency,
		}, report)

	case "openai":
		return NewOpenAIImageFetcher(OpenAIImageConfig{
			APIKey:  config.APIKey,
			Model:   config.Model,
			Size:    config.Size,
			Quality: config.Quality,
			Style:   config.Style,
			Timeout: config.Timeout,
			Retries: config.Retries,
		}, report)

	case "gemini":
		return NewGeminiImageFetcher(GeminiImageConfig{
			APIKey:  config.APIKey,
			Model:   config.Model,
			Timeout: config.Timeout,
			Retries: config.Retries,
		}, report)

	default:
		return nil, fmt.Errorf("unknown image provider: %s", config.Provider)
	}
}
