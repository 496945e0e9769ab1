package internal

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	"codeberg.org/snonux/ankitect/internal/textutil"
)

// Version is the ankitect release version
const Version = "0.3.0"

// MediaVersion tags generated media filenames. Bumping it invalidates all
// cached media without deleting the files themselves, so format or encoding
// changes never serve stale payloads.
const MediaVersion = "v54"

// CardID creates a stable identifier for a vocabulary card.
// Format: md5(word|pos|meaning)_r<index>_<LANG>
//
// The hash covers the normalized word, part of speech and full meaning text,
// so the same logical entry yields the same identifier across rebuild runs
// and previously generated media is found in the cache. The row index keeps
// homographs (same word, different sense) apart.
func CardID(word, partOfSpeech, meaning string, rowIndex int, language string) string {
	h := md5.New()
	h.Write([]byte(textutil.NormalizeUnicode(strings.ToLower(strings.TrimSpace(word)))))
	h.Write([]byte{'|'})
	h.Write([]byte(strings.TrimSpace(partOfSpeech)))
	h.Write([]byte{'|'})
	h.Write([]byte(strings.TrimSpace(meaning)))
	hash := hex.EncodeToString(h.Sum(nil))

	return fmt.Sprintf("%s_r%d_%s", hash, rowIndex, strings.ToUpper(language))
}

// Media filenames follow <kind>_<id>_<voice-or-none>_<version>.<ext>.
// The grammar is a contract shared with the packaging step, which must
// derive identical names independently. The leading underscore tells Anki
// to keep the files even when no note references them.

// ImageFilename returns the media filename for a card's image.
func ImageFilename(cardID string) string {
	return fmt.Sprintf("_img_%s_none_%s.jpg", cardID, MediaVersion)
}

// WordAudioFilename returns the media filename for a card's word audio.
func WordAudioFilename(cardID, voiceTag string) string {
	return fmt.Sprintf("_word_%s_%s_%s.mp3", cardID, voiceTag, MediaVersion)
}

// SentenceAudioFilename returns the media filename for one of a card's
// example sentences. n is 1-based.
func SentenceAudioFilename(cardID, voiceTag string, n int) string {
	return fmt.Sprintf("_sent_%d_%s_%s_%s.mp3", n, cardID, voiceTag, MediaVersion)
}

// SanitizeFilename creates a safe filename from a string
func SanitizeFilename(s string) string {
	result := ""
	for _, r := range s {
		if isAlphaNumeric(r) || r == '-' || r == '_' {
			result += string(r)
		} else {
			result += "_"
		}
	}
	return result
}

// isAlphaNumeric checks if a rune is alphanumeric
func isAlphaNumeric(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') || (r >= 'а' && r <= 'я') ||
		(r >= 'А' && r <= 'Я')
}
