package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"codeberg.org/snonux/ankitect/internal"
)

// CreateRootCommand creates and configures the root cobra command
func CreateRootCommand(flags *Flags) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ankitect <vocabulary-file>",
		Short: "Adaptive Anki deck builder",
		Long: `ankitect turns a vocabulary file (CSV or XLSX) into a complete Anki
deck. For every word it generates an illustrative image and TTS audio
for the word and its example sentences, caching media across runs so a
rebuild only fetches what is missing.

Examples:
  ankitect words.csv                        # Build APKG deck
  ankitect --language DE words.csv          # German deck
  ankitect --anki-csv words.csv             # CSV export instead of APKG
  ankitect --skip-images words.csv          # Audio only`,
		Args:    cobra.ExactArgs(1),
		Version: internal.Version,
	}

	setupFlags(rootCmd, flags)

	return rootCmd
}

func setupFlags(cmd *cobra.Command, flags *Flags) {
	cmd.PersistentFlags().StringVar(&flags.CfgFile, "config", "", "config file (default is $HOME/.ankitect.yaml)")

	cmd.Flags().StringVarP(&flags.Language, "language", "l", flags.Language, "Deck language code (EN, DE, ...)")
	cmd.Flags().StringVarP(&flags.OutputFile, "output", "o", "", "Output deck file (default output/ankitect_<lang>.apkg)")
	cmd.Flags().StringVar(&flags.OutputDir, "output-dir", flags.OutputDir, "Output directory for generated decks")
	cmd.Flags().StringVar(&flags.MediaDir, "media-dir", flags.MediaDir, "Directory for fetched media files")
	cmd.Flags().StringVar(&flags.CacheDir, "cache-dir", flags.CacheDir, "Directory for the media cache ledger")
	cmd.Flags().StringVar(&flags.DeckName, "deck-name", "", "Deck name (default <LANG> Vocabulary)")
	cmd.Flags().BoolVar(&flags.AnkiCSV, "anki-csv", false, "Export CSV instead of an APKG package")
	cmd.Flags().BoolVar(&flags.SkipAudio, "skip-audio", false, "Skip audio generation")
	cmd.Flags().BoolVar(&flags.SkipImages, "skip-images", false, "Skip image generation")
	cmd.Flags().BoolVar(&flags.Shuffle, "shuffle", flags.Shuffle, "Shuffle rows before processing")
	cmd.Flags().IntVar(&flags.Concurrency, "concurrency", flags.Concurrency, "Maximum concurrent media fetches")
	cmd.Flags().IntVar(&flags.BatchSize, "batch-size", flags.BatchSize, "Rows per processing batch")
	cmd.Flags().IntVar(&flags.KeepBackups, "keep-backups", flags.KeepBackups, "Deck backups to keep")

	cmd.Flags().StringVar(&flags.OpenAIModel, "openai-model", flags.OpenAIModel, "OpenAI TTS model: tts-1, tts-1-hd, gpt-4o-mini-tts")
	cmd.Flags().StringVar(&flags.OpenAIVoice, "openai-voice", "", "Pin one OpenAI voice instead of the random pool")
	cmd.Flags().Float64Var(&flags.OpenAISpeed, "openai-speed", flags.OpenAISpeed, "OpenAI speech speed (0.25 to 4.0)")

	cmd.Flags().StringVar(&flags.ImageProvider, "image-provider", flags.ImageProvider, "Image source: pollinations, openai or gemini")
	cmd.Flags().StringVar(&flags.ImageEndpoint, "image-endpoint", "", "Override the pollinations endpoint URL")
	cmd.Flags().StringVar(&flags.ImageModel, "image-model", flags.ImageModel, "Pollinations image model")
	cmd.Flags().IntVar(&flags.ImageWidth, "image-width", flags.ImageWidth, "Generated image width")
	cmd.Flags().IntVar(&flags.ImageHeight, "image-height", flags.ImageHeight, "Generated image height")

	cmd.Flags().StringVar(&flags.OpenAIImageModel, "openai-image-model", flags.OpenAIImageModel, "OpenAI image model: dall-e-2 or dall-e-3")
	cmd.Flags().StringVar(&flags.OpenAIImageSize, "openai-image-size", flags.OpenAIImageSize, "Image size: 256x256, 512x512, 1024x1024")
	cmd.Flags().StringVar(&flags.OpenAIImageQuality, "openai-image-quality", flags.OpenAIImageQuality, "Image quality: standard or hd (dall-e-3 only)")
	cmd.Flags().StringVar(&flags.OpenAIImageStyle, "openai-image-style", flags.OpenAIImageStyle, "Image style: natural or vivid (dall-e-3 only)")

	cmd.Flags().StringVar(&flags.GeminiImageModel, "gemini-image-model", flags.GeminiImageModel, "Gemini image model")

	bindFlagsToViper(cmd)
}

func bindFlagsToViper(cmd *cobra.Command) {
	viper.BindPFlag("deck.language", cmd.Flags().Lookup("language"))
	viper.BindPFlag("deck.name", cmd.Flags().Lookup("deck-name"))
	viper.BindPFlag("deck.shuffle", cmd.Flags().Lookup("shuffle"))
	viper.BindPFlag("output.directory", cmd.Flags().Lookup("output-dir"))
	viper.BindPFlag("output.media_dir", cmd.Flags().Lookup("media-dir"))
	viper.BindPFlag("output.cache_dir", cmd.Flags().Lookup("cache-dir"))
	viper.BindPFlag("pipeline.concurrency", cmd.Flags().Lookup("concurrency"))
	viper.BindPFlag("pipeline.batch_size", cmd.Flags().Lookup("batch-size"))
	viper.BindPFlag("audio.openai_model", cmd.Flags().Lookup("openai-model"))
	viper.BindPFlag("audio.openai_voice", cmd.Flags().Lookup("openai-voice"))
	viper.BindPFlag("audio.openai_speed", cmd.Flags().Lookup("openai-speed"))
	viper.BindPFlag("image.provider", cmd.Flags().Lookup("image-provider"))
	viper.BindPFlag("image.endpoint", cmd.Flags().Lookup("image-endpoint"))
	viper.BindPFlag("image.model", cmd.Flags().Lookup("image-model"))
	viper.BindPFlag("image.openai_model", cmd.Flags().Lookup("openai-image-model"))
	viper.BindPFlag("image.openai_size", cmd.Flags().Lookup("openai-image-size"))
	viper.BindPFlag("image.openai_quality", cmd.Flags().Lookup("openai-image-quality"))
	viper.BindPFlag("image.openai_style", cmd.Flags().Lookup("openai-image-style"))
	viper.BindPFlag("image.gemini_model", cmd.Flags().Lookup("gemini-image-model"))
}

// InitConfig initializes viper configuration
func InitConfig(cfgFile string) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".ankitect")
	}

	viper.SetEnvPrefix("ANKITECT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// GetOpenAIKey retrieves the OpenAI API key from environment or config
func GetOpenAIKey() string {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return key
	}
	return viper.GetString("audio.openai_key")
}

// GetImageKey retrieves the image provider API key. Falls back to the
// OpenAI key for the openai provider.
func GetImageKey(provider string) string {
	switch provider {
	case "gemini":
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			return key
		}
		return viper.GetString("image.gemini_key")
	case "openai":
		return GetOpenAIKey()
	default:
		if key := os.Getenv("IMAGE_API_KEY"); key != "" {
			return key
		}
		return viper.GetString("image.api_key")
	}
}
