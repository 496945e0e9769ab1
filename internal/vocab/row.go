// Package vocab reads vocabulary input files and exposes them as uniform
// row records regardless of the underlying representation.
package vocab

import (
	"strings"

	"codeberg.org/snonux/ankitect/internal/textutil"
)

// Field names of the vocabulary input contract. Column naming is shared
// with the spreadsheet layer that produces the files.
const (
	FieldTargetWord         = "TargetWord"
	FieldMeaning            = "Meaning"
	FieldIPA                = "IPA"
	FieldPartOfSpeech       = "Part_of_Speech"
	FieldGender             = "Gender"
	FieldMorphology         = "Morphology"
	FieldNuance             = "Nuance"
	FieldContextSentences   = "ContextSentences"
	FieldContextTranslation = "ContextTranslation"
	FieldEtymology          = "Etymology"
	FieldMnemonic           = "Mnemonic"
	FieldAnalogues          = "Analogues"
	FieldImagePrompt        = "ImagePrompt"
	FieldTags               = "Tags"
)

// MaxSentences is the number of example-sentence slots per card.
const MaxSentences = 3

// Accessor reads named fields from a heterogeneous row representation
// (header-mapped records, spreadsheet rows). Get returns fallback when the
// field is absent.
type Accessor interface {
	Get(field, fallback string) string
}

// MapAccessor adapts a header-keyed record.
type MapAccessor map[string]string

func (m MapAccessor) Get(field, fallback string) string {
	if v, ok := m[field]; ok {
		return v
	}
	return fallback
}

// SliceAccessor adapts a positional record plus its header row.
type SliceAccessor struct {
	Header []string
	Values []string
}

func (s SliceAccessor) Get(field, fallback string) string {
	for i, h := range s.Header {
		if strings.TrimSpace(h) == field && i < len(s.Values) {
			return s.Values[i]
		}
	}
	return fallback
}

// Row is one immutable vocabulary record. Position is the zero-based index
// in the source file and participates in card identity (homographs).
type Row struct {
	TargetWord         string
	Meaning            string
	IPA                string
	PartOfSpeech       string
	Gender             string
	Morphology         string
	Nuance             string
	ContextSentences   string
	ContextTranslation string
	Etymology          string
	Mnemonic           string
	Analogues          string
	ImagePrompt        string
	Tags               string

	Position int
}

// FromAccessor builds a Row from any Accessor implementation.
func FromAccessor(a Accessor, position int) Row {
	return Row{
		TargetWord:         a.Get(FieldTargetWord, ""),
		Meaning:            a.Get(FieldMeaning, ""),
		IPA:                a.Get(FieldIPA, ""),
		PartOfSpeech:       a.Get(FieldPartOfSpeech, ""),
		Gender:             a.Get(FieldGender, ""),
		Morphology:         a.Get(FieldMorphology, ""),
		Nuance:             a.Get(FieldNuance, ""),
		ContextSentences:   a.Get(FieldContextSentences, ""),
		ContextTranslation: a.Get(FieldContextTranslation, ""),
		Etymology:          a.Get(FieldEtymology, ""),
		Mnemonic:           a.Get(FieldMnemonic, ""),
		Analogues:          a.Get(FieldAnalogues, ""),
		ImagePrompt:        a.Get(FieldImagePrompt, ""),
		Tags:               a.Get(FieldTags, ""),
		Position:           position,
	}
}

// Sentences splits ContextSentences into exactly MaxSentences entries,
// padded with empty strings.
func (r Row) Sentences() []string {
	return textutil.SplitSentences(r.ContextSentences, MaxSentences)
}

// TagList splits the Tags field on whitespace.
func (r Row) TagList() []string {
	return strings.Fields(r.Tags)
}
