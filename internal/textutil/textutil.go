// Package textutil holds the text normalization helpers shared by the
// fetchers, the row processor and the packaging step.
package textutil

import (
	"html"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	// Sentence separators: <br>, <br/>, <br /> and plain newlines.
	sentencePattern = regexp.MustCompile(`<br\s*/?>|\n`)

	htmlTagPattern      = regexp.MustCompile(`<[^>]+>`)
	numberedListPattern = regexp.MustCompile(`(^|\s)\d+[.)]\s*`)
	linePrefixPattern   = regexp.MustCompile(`^\s*\d+[.)]\s*`)
	whitespacePattern   = regexp.MustCompile(`\s+`)
)

// NormalizeUnicode returns the NFC form of text. Prevents é-style characters
// from existing both as a single codepoint and as base + combining accent,
// which would split cache identifiers for the same logical word.
func NormalizeUnicode(text string) string {
	if text == "" {
		return ""
	}
	return norm.NFC.String(text)
}

// CleanForTTS prepares raw card text for speech synthesis: HTML entities are
// unescaped, tags and numbered-list markers removed, whitespace collapsed.
// Returns "" when nothing speakable remains.
func CleanForTTS(text string) string {
	if text == "" {
		return ""
	}

	text = html.UnescapeString(text)
	text = htmlTagPattern.ReplaceAllString(text, "")
	text = numberedListPattern.ReplaceAllString(text, " ")
	text = whitespacePattern.ReplaceAllString(text, " ")

	return NormalizeUnicode(strings.TrimSpace(text))
}

// CleanForDisplay cleans translation text for card rendering. Line breaks
// are preserved, numbered-list prefixes on each line are removed.
func CleanForDisplay(text string) string {
	if text == "" {
		return ""
	}

	text = NormalizeUnicode(text)

	var out strings.Builder
	rest := text
	for {
		loc := sentencePattern.FindStringIndex(rest)
		if loc == nil {
			out.WriteString(linePrefixPattern.ReplaceAllString(rest, ""))
			break
		}
		out.WriteString(linePrefixPattern.ReplaceAllString(rest[:loc[0]], ""))
		out.WriteString(rest[loc[0]:loc[1]])
		rest = rest[loc[1]:]
	}

	return out.String()
}

// SplitSentences splits text on <br> tags and newlines, keeping at most
// maxCount entries and padding with empty strings up to maxCount.
func SplitSentences(text string, maxCount int) []string {
	sentences := make([]string, 0, maxCount)

	if text != "" {
		for _, s := range sentencePattern.Split(NormalizeUnicode(text), -1) {
			if s = strings.TrimSpace(s); s != "" {
				sentences = append(sentences, s)
			}
			if len(sentences) == maxCount {
				break
			}
		}
	}

	for len(sentences) < maxCount {
		sentences = append(sentences, "")
	}
	return sentences
}

// FormatAnaloguesHTML converts "EN: word" lines into an HTML table for the
// card back. Lines without a language prefix span both columns.
func FormatAnaloguesHTML(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	var b strings.Builder
	b.WriteString(`<table class="analogues-table">`)

	for _, line := range sentencePattern.Split(NormalizeUnicode(text), -1) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if code, word, ok := strings.Cut(line, ":"); ok {
			b.WriteString(`<tr class="ana-row"><td class="ana-lang">`)
			b.WriteString(html.EscapeString(strings.TrimSpace(code)))
			b.WriteString(`</td><td class="ana-word">`)
			b.WriteString(html.EscapeString(strings.TrimSpace(word)))
			b.WriteString(`</td></tr>`)
		} else {
			b.WriteString(`<tr class="ana-row"><td colspan="2" class="ana-word">`)
			b.WriteString(html.EscapeString(line))
			b.WriteString(`</td></tr>`)
		}
	}

	b.WriteString(`</table>`)
	return b.String()
}
