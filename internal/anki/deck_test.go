package anki

import (
	"archive/zip"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"codeberg.org/snonux/ankitect/internal/pipeline"
	"codeberg.org/snonux/ankitect/internal/vocab"
)

func writeMedia(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("media-bytes-media-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func sampleCard(mediaDir string, t *testing.T) *pipeline.EnrichedCard {
	t.Helper()
	card := &pipeline.EnrichedCard{
		Row: vocab.Row{
			TargetWord:       "Haus",
			Meaning:          "house",
			IPA:              "haʊs",
			PartOfSpeech:     "noun",
			Gender:           "Das",
			ContextSentences: "Das <b>Haus</b> ist groß.",
			Tags:             "a1 building",
			Position:         0,
		},
		CardID:         "abc123_r0_DE",
		ImageFile:      "_img_abc123_r0_DE_none_v54.jpg",
		WordAudioFile:  "_word_abc123_r0_DE_CONRAD_v54.mp3",
		SentenceFiles:  []string{"_sent_1_abc123_r0_DE_CONRAD_v54.mp3", "", ""},
		ImageFetched:   true,
		WordAudioReady: true,
		SentencesReady: []bool{true, false, false},
	}
	writeMedia(t, mediaDir, card.ImageFile)
	writeMedia(t, mediaDir, card.WordAudioFile)
	writeMedia(t, mediaDir, card.SentenceFiles[0])
	return card
}

func TestAddCardBuildsFields(t *testing.T) {
	mediaDir := t.TempDir()
	deck := NewDeck("DE Vocabulary", "DE", mediaDir)
	deck.AddCard(sampleCard(mediaDir, t))

	if deck.Len() != 1 {
		t.Fatalf("Len = %d, want 1", deck.Len())
	}
	note := deck.Notes()[0]

	if len(note.Fields) != len(noteFieldNames) {
		t.Fatalf("fields = %d, want %d", len(note.Fields), len(noteFieldNames))
	}
	if note.Fields[0] != "Haus" {
		t.Errorf("TargetWord = %q", note.Fields[0])
	}
	if note.Fields[4] != "das" {
		t.Errorf("Gender = %q, want lowercased das", note.Fields[4])
	}
	if !strings.Contains(note.Fields[fieldImage], `<img src="_img_abc123_r0_DE_none_v54.jpg">`) {
		t.Errorf("Image field = %q", note.Fields[fieldImage])
	}
	if note.Fields[fieldAudioWord] != "[sound:_word_abc123_r0_DE_CONRAD_v54.mp3]" {
		t.Errorf("AudioWord field = %q", note.Fields[fieldAudioWord])
	}
	if note.GUID != "abc123_r0_DE" {
		t.Errorf("GUID = %q", note.GUID)
	}
	if len(note.Media) != 3 {
		t.Errorf("media = %v, want 3 entries", note.Media)
	}
	if got := note.Fields[len(note.Fields)-1]; got != "abc123_r0_DE" {
		t.Errorf("UUID field = %q", got)
	}

	wantTags := []string{"a1", "building"}
	if len(note.Tags) != 2 || note.Tags[0] != wantTags[0] || note.Tags[1] != wantTags[1] {
		t.Errorf("Tags = %v, want %v", note.Tags, wantTags)
	}
}

func TestAddCardSkipsMissingMedia(t *testing.T) {
	mediaDir := t.TempDir()
	deck := NewDeck("EN Vocabulary", "EN", mediaDir)

	// Flags say fetched but nothing exists on disk.
	deck.AddCard(&pipeline.EnrichedCard{
		Row:            vocab.Row{TargetWord: "ghost"},
		CardID:         "ghost_r0_EN",
		ImageFile:      "_img_ghost_r0_EN_none_v54.jpg",
		WordAudioFile:  "_word_ghost_r0_EN_SONIA_v54.mp3",
		ImageFetched:   true,
		WordAudioReady: true,
	})

	note := deck.Notes()[0]
	if note.Fields[fieldImage] != "" {
		t.Errorf("Image field = %q, want empty", note.Fields[fieldImage])
	}
	if note.Fields[fieldAudioWord] != "" {
		t.Errorf("AudioWord field = %q, want empty", note.Fields[fieldAudioWord])
	}
	if len(note.Media) != 0 {
		t.Errorf("media = %v, want none", note.Media)
	}
	if note.Fields[4] != "en" {
		t.Errorf("Gender = %q, want en for EN decks", note.Fields[4])
	}
}

func TestExportCSV(t *testing.T) {
	mediaDir := t.TempDir()
	deck := NewDeck("DE Vocabulary", "DE", mediaDir)
	deck.AddCard(sampleCard(mediaDir, t))

	out := filepath.Join(t.TempDir(), "deck.csv")
	if err := deck.ExportCSV(out); err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want header + 1", len(records))
	}
	if records[0][0] != "TargetWord" {
		t.Errorf("header = %v", records[0][:3])
	}
	if records[1][0] != "Haus" {
		t.Errorf("first note word = %q", records[1][0])
	}
}

func TestExportAPKG(t *testing.T) {
	mediaDir := t.TempDir()
	deck := NewDeck("DE Vocabulary", "DE", mediaDir)
	deck.AddCard(sampleCard(mediaDir, t))

	out := filepath.Join(t.TempDir(), "deck.apkg")
	if err := deck.ExportAPKG(out); err != nil {
		t.Fatalf("ExportAPKG: %v", err)
	}

	r, err := zip.OpenReader(out)
	if err != nil {
		t.Fatalf("opening package: %v", err)
	}
	defer r.Close()

	names := make(map[string]bool)
	for _, f := range r.File {
		names[f.Name] = true
	}
	if !names["collection.anki2"] {
		t.Error("package missing collection.anki2")
	}
	if !names["media"] {
		t.Error("package missing media mapping")
	}
	// Three media files staged under numeric names.
	for _, n := range []string{"0", "1", "2"} {
		if !names[n] {
			t.Errorf("package missing media entry %s", n)
		}
	}

	var mapping map[string]string
	for _, f := range r.File {
		if f.Name != "media" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		err = json.NewDecoder(rc).Decode(&mapping)
		rc.Close()
		if err != nil {
			t.Fatal(err)
		}
	}
	if len(mapping) != 3 {
		t.Errorf("media mapping = %v, want 3 entries", mapping)
	}

	// Extract the collection and check the note landed with all fields.
	dbDir := t.TempDir()
	dbPath := filepath.Join(dbDir, "collection.anki2")
	for _, f := range r.File {
		if f.Name != "collection.anki2" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		data, err := os.Create(dbPath)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := data.ReadFrom(rc); err != nil {
			t.Fatal(err)
		}
		data.Close()
		rc.Close()
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	var noteCount, cardCount int
	if err := db.QueryRow(`SELECT count(*) FROM notes`).Scan(&noteCount); err != nil {
		t.Fatal(err)
	}
	if err := db.QueryRow(`SELECT count(*) FROM cards`).Scan(&cardCount); err != nil {
		t.Fatal(err)
	}
	if noteCount != 1 {
		t.Errorf("notes = %d, want 1", noteCount)
	}
	// Four card templates per note.
	if cardCount != 4 {
		t.Errorf("cards = %d, want 4", cardCount)
	}

	var flds string
	if err := db.QueryRow(`SELECT flds FROM notes`).Scan(&flds); err != nil {
		t.Fatal(err)
	}
	if got := len(strings.Split(flds, "\x1f")); got != len(noteFieldNames) {
		t.Errorf("stored fields = %d, want %d", got, len(noteFieldNames))
	}
}

func TestDeckStats(t *testing.T) {
	mediaDir := t.TempDir()
	deck := NewDeck("DE Vocabulary", "DE", mediaDir)
	deck.AddCard(sampleCard(mediaDir, t))
	deck.AddCard(&pipeline.EnrichedCard{
		Row:    vocab.Row{TargetWord: "leer"},
		CardID: "leer_r1_DE",
	})

	total, withAudio, withImages := deck.Stats()
	if total != 2 || withAudio != 1 || withImages != 1 {
		t.Errorf("Stats = %d/%d/%d, want 2/1/1", total, withAudio, withImages)
	}
}
