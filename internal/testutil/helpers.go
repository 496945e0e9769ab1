// Package testutil holds shared helpers for package tests: media
// fixtures, vocabulary files and filesystem assertions.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// JPEGData returns bytes that pass JPEG sniffing, padded to size.
func JPEGData(size int) []byte {
	header := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46, 0x49, 0x46, 0x00, 0x01}
	if size <= len(header) {
		return header[:size]
	}
	return append(header, bytes.Repeat([]byte{0xAB}, size-len(header))...)
}

// MP3Data returns bytes resembling an MP3 frame, padded to size.
func MP3Data(size int) []byte {
	header := []byte{0xFF, 0xFB, 0x90, 0x00}
	if size <= len(header) {
		return header[:size]
	}
	return append(header, bytes.Repeat([]byte{0xCD}, size-len(header))...)
}

// CreateTestFile creates a test file with content
func CreateTestFile(t *testing.T, path string, content []byte) {
	t.Helper()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create directory for test file: %v", err)
	}

	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("Failed to create test file %s: %v", path, err)
	}
}

// WriteVocabCSV writes a pipe-separated vocabulary file with the given
// header and rows.
func WriteVocabCSV(t *testing.T, path string, header []string, rows [][]string) {
	t.Helper()

	var b strings.Builder
	b.WriteString(strings.Join(header, "|"))
	b.WriteString("\n")
	for _, row := range rows {
		b.WriteString(strings.Join(row, "|"))
		b.WriteString("\n")
	}
	CreateTestFile(t, path, []byte(b.String()))
}

// AssertFileExists checks if a file exists
func AssertFileExists(t *testing.T, path string) {
	t.Helper()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("Expected file to exist: %s", path)
	}
}

// AssertFileNotExists checks if a file does not exist
func AssertFileNotExists(t *testing.T, path string) {
	t.Helper()

	if _, err := os.Stat(path); err == nil {
		t.Errorf("Expected file to not exist: %s", path)
	}
}

// AssertFileContains checks if a file contains a substring
func AssertFileContains(t *testing.T, path string, substring string) {
	t.Helper()

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}

	if !strings.Contains(string(content), substring) {
		t.Errorf("File %s does not contain expected substring: %q", path, substring)
	}
}
