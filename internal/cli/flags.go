package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"codeberg.org/snonux/ankitect/internal/fetcher"
	"codeberg.org/snonux/ankitect/internal/pipeline"
)

// Flags holds all command-line flag values
type Flags struct {
	// General flags
	CfgFile    string
	InputFile  string
	OutputFile string
	OutputDir  string
	MediaDir   string
	CacheDir   string
	Language   string
	DeckName   string
	AnkiCSV    bool
	SkipAudio  bool
	SkipImages bool
	Shuffle    bool

	// Pipeline tuning
	Concurrency int
	BatchSize   int
	KeepBackups int

	// Audio (OpenAI TTS) flags
	OpenAIModel string
	OpenAIVoice string
	OpenAISpeed float64

	// Image provider flags
	ImageProvider string
	ImageEndpoint string
	ImageModel    string
	ImageWidth    int
	ImageHeight   int

	// OpenAI image flags
	OpenAIImageModel   string
	OpenAIImageSize    string
	OpenAIImageQuality string
	OpenAIImageStyle   string

	// Gemini image flags
	GeminiImageModel string
}

// NewFlags creates a new Flags instance with default values
func NewFlags() *Flags {
	return &Flags{
		Language:           "EN",
		OutputDir:          "output",
		MediaDir:           "media_cache",
		CacheDir:           "cache",
		Shuffle:            true,
		Concurrency:        5,
		BatchSize:          50,
		KeepBackups:        3,
		OpenAIModel:        "gpt-4o-mini-tts",
		OpenAISpeed:        0.95,
		ImageProvider:      "pollinations",
		ImageEndpoint:      "https://gen.pollinations.ai/image",
		ImageModel:         "flux",
		ImageWidth:         320,
		ImageHeight:        200,
		OpenAIImageModel:   "dall-e-3",
		OpenAIImageSize:    "1024x1024",
		OpenAIImageQuality: "standard",
		OpenAIImageStyle:   "natural",
		GeminiImageModel:   "imagen-3.0-generate-002",
	}
}

// VoiceTag names the voice pool in generated media filenames. A pinned
// voice keeps its own tag so switching voices refetches audio.
func (f *Flags) VoiceTag() string {
	if f.OpenAIVoice != "" {
		return strings.ToUpper(f.OpenAIVoice)
	}
	return "mixed"
}

// DeckTitle returns the configured deck name, defaulting per language.
func (f *Flags) DeckTitle() string {
	if f.DeckName != "" {
		return f.DeckName
	}
	return fmt.Sprintf("%s Vocabulary", strings.ToUpper(f.Language))
}

// OutputPath is where the exported deck lands.
func (f *Flags) OutputPath() string {
	if f.OutputFile != "" {
		return f.OutputFile
	}
	ext := ".apkg"
	if f.AnkiCSV {
		ext = ".csv"
	}
	return filepath.Join(f.OutputDir, fmt.Sprintf("ankitect_%s%s", strings.ToLower(f.Language), ext))
}

// LedgerPath is the cache ledger file location.
func (f *Flags) LedgerPath() string {
	return filepath.Join(f.CacheDir, "media_ledger.json")
}

// PipelineConfig assembles the enrichment pipeline configuration.
func (f *Flags) PipelineConfig() pipeline.Config {
	return pipeline.Config{
		Language:    strings.ToUpper(f.Language),
		MediaDir:    f.MediaDir,
		LedgerPath:  f.LedgerPath(),
		VoiceTag:    f.VoiceTag(),
		Concurrency: f.Concurrency,
		BatchSize:   f.BatchSize,
		Shuffle:     f.Shuffle,
		SkipImages:  f.SkipImages,
		SkipAudio:   f.SkipAudio,
	}
}

// AudioConfig assembles the TTS fetcher configuration.
func (f *Flags) AudioConfig(apiKey string) fetcher.AudioConfig {
	cfg := fetcher.DefaultAudioConfig()
	cfg.APIKey = apiKey
	cfg.Model = f.OpenAIModel
	cfg.Speed = f.OpenAISpeed
	if f.OpenAIVoice != "" {
		cfg.Voices = []string{f.OpenAIVoice}
	}
	return cfg
}

// ImageProviderConfig assembles the image fetcher configuration for the
// selected provider.
func (f *Flags) ImageProviderConfig(apiKey string) fetcher.ImageProviderConfig {
	model := f.ImageModel
	switch f.ImageProvider {
	case "openai":
		model = f.OpenAIImageModel
	case "gemini":
		model = f.GeminiImageModel
	}

	return fetcher.ImageProviderConfig{
		Provider:    f.ImageProvider,
		APIKey:      apiKey,
		Model:       model,
		Endpoint:    f.ImageEndpoint,
		Width:       f.ImageWidth,
		Height:      f.ImageHeight,
		Concurrency: f.Concurrency,
		Size:        f.OpenAIImageSize,
		Quality:     f.OpenAIImageQuality,
		Style:       f.OpenAIImageStyle,
	}
}
