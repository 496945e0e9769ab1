// Package archive rotates previously exported deck files so a rebuild
// never destroys the last working package.
package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// DefaultKeep is how many backups survive a cleanup.
const DefaultKeep = 3

// BackupExisting renames an existing deck file to a timestamped backup
// next to it. Returns the backup path, or "" when there was nothing to
// back up.
func BackupExisting(outputPath string) (string, error) {
	if _, err := os.Stat(outputPath); os.IsNotExist(err) {
		return "", nil
	}

	ext := filepath.Ext(outputPath)
	base := strings.TrimSuffix(outputPath, ext)

	timestamp := time.Now().Format("20060102_150405")
	backupPath := fmt.Sprintf("%s_%s%s", base, timestamp, ext)

	if _, err := os.Stat(backupPath); err == nil {
		// Same-second rebuild; disambiguate with microseconds.
		timestamp = time.Now().Format("20060102_150405.000000")
		backupPath = fmt.Sprintf("%s_%s%s", base, timestamp, ext)
	}

	if err := os.Rename(outputPath, backupPath); err != nil {
		return "", fmt.Errorf("failed to back up %s: %w", outputPath, err)
	}
	return backupPath, nil
}

// CleanupBackups deletes all but the newest keep backups of outputPath.
// keep <= 0 uses DefaultKeep.
func CleanupBackups(outputPath string, keep int) error {
	if keep <= 0 {
		keep = DefaultKeep
	}

	ext := filepath.Ext(outputPath)
	base := strings.TrimSuffix(outputPath, ext)

	matches, err := filepath.Glob(fmt.Sprintf("%s_*%s", base, ext))
	if err != nil {
		return err
	}

	type backup struct {
		path string
		mod  time.Time
	}
	var backups []backup
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		backups = append(backups, backup{path: m, mod: info.ModTime()})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].mod.After(backups[j].mod)
	})

	if len(backups) <= keep {
		return nil
	}
	for _, old := range backups[keep:] {
		// Losing an old backup is not worth failing the build over.
		os.Remove(old.path)
	}
	return nil
}
