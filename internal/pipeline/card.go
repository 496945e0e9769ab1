package pipeline

import "codeberg.org/snonux/ankitect/internal/vocab"

// EnrichedCard is a vocabulary row with its derived identity and the
// media filenames the deck will reference. Filenames are recorded even
// when the fetch failed so a later run can fill the gap.
type EnrichedCard struct {
	Row    vocab.Row
	CardID string

	ImageFile      string
	WordAudioFile  string
	SentenceFiles  []string
	ImageFetched   bool
	WordAudioReady bool
	SentencesReady []bool
}
