// Package docs persists phase output documents and enforces their retention.
package docs

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mkettering/foreman/internal/store"
)

// MinSaveBytes is the threshold below which phase output is not worth
// persisting as a document.
const MinSaveBytes = 500

// Save writes phase output to the docs directory and returns the file path.
// The filename encodes request id, phase, and timestamp so successive phases
// never overwrite each other.
func Save(docsDir string, view *store.RequestView, content string) (string, error) {
	if err := os.MkdirAll(docsDir, 0755); err != nil {
		return "", fmt.Errorf("docs: create dir %s: %w", docsDir, err)
	}

	now := time.Now()
	filename := fmt.Sprintf("%d_%s_%s.md", view.ReqID, view.Phase, now.Format("20060102_150405"))
	path := filepath.Join(docsDir, filename)

	doc := fmt.Sprintf(`# %s - %s Phase

**Request ID**: %d
**Project**: %s
**Phase**: %s
**Generated**: %s

---

%s
`, view.Name, view.Phase, view.ReqID, view.PrjName, view.Phase, now.Format(time.RFC3339), content)

	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		return "", fmt.Errorf("docs: write %s: %w", path, err)
	}
	return path, nil
}

// CleanupOld deletes markdown docs older than retentionDays and returns the
// number removed. A retention of 0 (or less) disables cleanup entirely.
func CleanupOld(docsDir string, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	entries, err := os.ReadDir(docsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("docs: read dir %s: %w", docsDir, err)
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	deleted := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".md" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(docsDir, entry.Name())); err == nil {
				deleted++
			}
		}
	}
	return deleted, nil
}
