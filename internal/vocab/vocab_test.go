package vocab

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestMapAccessor(t *testing.T) {
	a := MapAccessor{"TargetWord": "Hund", "Meaning": "dog"}

	if got := a.Get("TargetWord", ""); got != "Hund" {
		t.Errorf("Get(TargetWord) = %q", got)
	}
	if got := a.Get("IPA", "n/a"); got != "n/a" {
		t.Errorf("Get missing field = %q, want fallback", got)
	}
}

func TestSliceAccessor(t *testing.T) {
	a := SliceAccessor{
		Header: []string{"TargetWord", " Meaning ", "IPA"},
		Values: []string{"Hund", "dog"},
	}

	if got := a.Get("TargetWord", ""); got != "Hund" {
		t.Errorf("Get(TargetWord) = %q", got)
	}
	// Header names are trimmed before matching.
	if got := a.Get("Meaning", ""); got != "dog" {
		t.Errorf("Get(Meaning) = %q", got)
	}
	// Short record: column exists in header but not in values.
	if got := a.Get("IPA", "fallback"); got != "fallback" {
		t.Errorf("Get(IPA) = %q, want fallback", got)
	}
}

func TestRowSentences(t *testing.T) {
	r := Row{ContextSentences: "Der Hund bellt.<br>Die Katze schläft."}
	got := r.Sentences()
	want := []string{"Der Hund bellt.", "Die Katze schläft.", ""}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Sentences() = %v, want %v", got, want)
	}
}

func TestRowTagList(t *testing.T) {
	r := Row{Tags: "  A2 verbs  daily "}
	if got := r.TagList(); !reflect.DeepEqual(got, []string{"A2", "verbs", "daily"}) {
		t.Errorf("TagList() = %v", got)
	}
}

func TestReadCSV(t *testing.T) {
	content := "\uFEFFTargetWord|Meaning|Part_of_Speech|ContextSentences|ImagePrompt|Tags\n" +
		"Hund|dog|noun|Der Hund bellt.<br>Er schläft.|a dog in a park|A2 animals\n" +
		"laufen|to run|verb||a person running|A2\n"

	path := filepath.Join(t.TempDir(), "vocab.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	rows, err := ReadCSV(path)
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}

	first := rows[0]
	if first.TargetWord != "Hund" || first.Meaning != "dog" || first.PartOfSpeech != "noun" {
		t.Errorf("unexpected first row: %+v", first)
	}
	if first.Position != 0 || rows[1].Position != 1 {
		t.Errorf("positions = %d, %d", first.Position, rows[1].Position)
	}
	if got := first.Sentences()[0]; got != "Der Hund bellt." {
		t.Errorf("first sentence = %q", got)
	}
	if rows[1].ContextSentences != "" {
		t.Errorf("empty field should stay empty, got %q", rows[1].ContextSentences)
	}
}

func TestReadCSVMissingFile(t *testing.T) {
	if _, err := ReadCSV(filepath.Join(t.TempDir(), "nope.csv")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestReadCSVNoDataRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	if err := os.WriteFile(path, []byte("TargetWord|Meaning\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadCSV(path); err == nil {
		t.Error("expected error for header-only file")
	}
}

func TestReadXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.xlsx")

	wb := excelize.NewFile()
	sheet := wb.GetSheetName(0)
	cells := [][]string{
		{"TargetWord", "Meaning", "Part_of_Speech", "Tags"},
		{"Haus", "house", "noun", "A1"},
		{"gehen", "to go", "verb", ""},
	}
	for i, row := range cells {
		addr, err := excelize.JoinCellName("A", i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := wb.SetSheetRow(sheet, addr, &row); err != nil {
			t.Fatal(err)
		}
	}
	if err := wb.SaveAs(path); err != nil {
		t.Fatal(err)
	}

	rows, err := ReadXLSX(path)
	if err != nil {
		t.Fatalf("ReadXLSX() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	if rows[0].TargetWord != "Haus" || rows[0].Meaning != "house" {
		t.Errorf("row 0 = %+v", rows[0])
	}
	if rows[1].PartOfSpeech != "verb" {
		t.Errorf("row 1 part of speech = %q", rows[1].PartOfSpeech)
	}
	if rows[0].Position != 0 || rows[1].Position != 1 {
		t.Errorf("positions = %d, %d", rows[0].Position, rows[1].Position)
	}
}

func TestReadFileDispatch(t *testing.T) {
	// Unknown extensions fall through to the CSV reader.
	path := filepath.Join(t.TempDir(), "vocab.txt")
	if err := os.WriteFile(path, []byte("TargetWord|Meaning\nHund|dog\n"), 0644); err != nil {
		t.Fatal(err)
	}

	rows, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if len(rows) != 1 || rows[0].TargetWord != "Hund" {
		t.Errorf("unexpected rows: %+v", rows)
	}
}
