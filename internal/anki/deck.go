// Package anki exports enriched vocabulary cards as Anki decks, either
// as an importable CSV or as a full .apkg package.
package anki

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"codeberg.org/snonux/ankitect/internal/pipeline"
	"codeberg.org/snonux/ankitect/internal/textutil"
	"codeberg.org/snonux/ankitect/internal/vocab"
)

// noteFieldNames is the note model field order. The templates reference
// fields by these names, so order and naming are load-bearing.
var noteFieldNames = []string{
	"TargetWord", "Meaning", "IPA", "Part_of_Speech",
	"Gender", "Morphology", "Nuance",
	"Sentence_1", "Sentence_2", "Sentence_3",
	"ContextTranslation", "Etymology", "Mnemonic", "Analogues",
	"Image", "Tags",
	"AudioWord",
	"Audio_Sent_1", "Audio_Sent_2", "Audio_Sent_3",
	"Audio_Path_Word",
	"ContextSentences",
	"UUID",
}

// Field indexes used outside the field builder.
const (
	fieldImage     = 14
	fieldAudioWord = 16
)

// Note is one deck entry: the ordered field values plus packaging
// metadata. Media holds the filenames (relative to the media dir) that
// the note references and that exist on disk.
type Note struct {
	Fields []string
	Tags   []string
	GUID   string
	Media  []string
}

// SortField returns the value Anki sorts the browser by.
func (n Note) SortField() string {
	return n.Fields[0]
}

type langProfile struct {
	label string
	forvo string
}

var langProfiles = map[string]langProfile{
	"DE": {label: "DEUTSCH", forvo: "de"},
	"EN": {label: "ENGLISH", forvo: "en"},
	"BG": {label: "БЪЛГАРСКИ", forvo: "bg"},
}

func profileFor(language string) langProfile {
	if p, ok := langProfiles[language]; ok {
		return p
	}
	return langProfile{label: language, forvo: strings.ToLower(language)}
}

// Deck accumulates notes for one language and renders them to output
// formats.
type Deck struct {
	name     string
	language string
	profile  langProfile
	notes    []Note

	mediaDir string
}

// NewDeck creates an empty deck. mediaDir is where the referenced media
// files live; notes only reference files that exist there.
func NewDeck(name, language, mediaDir string) *Deck {
	return &Deck{
		name:     name,
		language: language,
		profile:  profileFor(language),
		mediaDir: mediaDir,
	}
}

// AddCard converts an enriched card into a note. Media fields are left
// empty when the underlying file is missing so a card never references
// media the package cannot deliver.
func (d *Deck) AddCard(card *pipeline.EnrichedCard) {
	row := card.Row

	gender := strings.ToLower(strings.TrimSpace(row.Gender))
	if d.language == "EN" {
		gender = "en"
	}
	if gender == "" {
		gender = "none"
	}

	sentences := row.Sentences()

	imageField := ""
	var media []string
	if card.ImageFetched && d.mediaExists(card.ImageFile) {
		imageField = fmt.Sprintf(`<img src="%s">`, card.ImageFile)
		media = append(media, card.ImageFile)
	}

	audioWord := ""
	audioPathWord := ""
	if card.WordAudioReady && d.mediaExists(card.WordAudioFile) {
		audioWord = fmt.Sprintf("[sound:%s]", card.WordAudioFile)
		audioPathWord = card.WordAudioFile
		media = append(media, card.WordAudioFile)
	}

	sentenceAudio := make([]string, vocab.MaxSentences)
	for i := range sentenceAudio {
		if i < len(card.SentencesReady) && card.SentencesReady[i] && d.mediaExists(card.SentenceFiles[i]) {
			sentenceAudio[i] = card.SentenceFiles[i]
			media = append(media, card.SentenceFiles[i])
		}
	}

	clozeContext := row.ContextSentences
	if clozeContext == "" && sentences[0] != "" {
		clozeContext = sentences[0]
	}

	fields := []string{
		row.TargetWord,
		row.Meaning,
		row.IPA,
		row.PartOfSpeech,
		gender,
		row.Morphology,
		row.Nuance,
		sentences[0], sentences[1], sentences[2],
		textutil.CleanForDisplay(row.ContextTranslation),
		row.Etymology,
		row.Mnemonic,
		textutil.FormatAnaloguesHTML(row.Analogues),
		imageField,
		row.Tags,
		audioWord,
		sentenceAudio[0], sentenceAudio[1], sentenceAudio[2],
		audioPathWord,
		clozeContext,
		card.CardID,
	}

	d.notes = append(d.notes, Note{
		Fields: fields,
		Tags:   row.TagList(),
		GUID:   card.CardID,
		Media:  media,
	})
}

func (d *Deck) mediaExists(filename string) bool {
	if filename == "" {
		return false
	}
	_, err := os.Stat(d.MediaPath(filename))
	return err == nil
}

// MediaPath resolves a media filename against the deck's media dir.
func (d *Deck) MediaPath(filename string) string {
	return filepath.Join(d.mediaDir, filename)
}

// Notes returns the accumulated notes.
func (d *Deck) Notes() []Note {
	return d.notes
}

// Len returns the number of notes in the deck.
func (d *Deck) Len() int {
	return len(d.notes)
}

// ExportCSV writes the deck as an Anki-importable CSV with a header
// row. Media references stay as field markup; the media files must be
// placed in the collection separately.
func (d *Deck) ExportCSV(outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(noteFieldNames); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	for _, note := range d.notes {
		if err := writer.Write(note.Fields); err != nil {
			return fmt.Errorf("failed to write note: %w", err)
		}
	}

	return nil
}

// ExportAPKG writes the deck as a complete .apkg package including all
// referenced media.
func (d *Deck) ExportAPKG(outputPath string) error {
	return newAPKGWriter(d).write(outputPath)
}

// Stats returns counts over the accumulated notes.
func (d *Deck) Stats() (total, withAudio, withImages int) {
	total = len(d.notes)
	for _, note := range d.notes {
		if note.Fields[fieldAudioWord] != "" {
			withAudio++
		}
		if note.Fields[fieldImage] != "" {
			withImages++
		}
	}
	return
}
