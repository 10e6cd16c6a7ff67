package audit

// #region imports
import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// #endregion

// #region export

// exportDoc is the on-disk shape of an exported trail.
type exportDoc struct {
	ExportedAt time.Time `json:"exported_at"`
	EntryCount int       `json:"entry_count"`
	Entries    []Entry   `json:"entries"`
}

// Export writes the trail to a timestamped JSON file under dir and returns
// the path written.
func (t *Trail) Export(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	now := time.Now().UTC()
	path := filepath.Join(dir, fmt.Sprintf("audit_%s.json", now.Format("20060102_150405")))

	doc := exportDoc{
		ExportedAt: now,
		EntryCount: len(t.entries),
		Entries:    t.entries,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal audit export: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write audit export: %w", err)
	}

	log.Printf("[AUDIT] exported %d entries to %s", len(t.entries), path)
	return path, nil
}

// LoadExport reads a previously exported trail for offline verification.
func LoadExport(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read audit export: %w", err)
	}
	var doc exportDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse audit export: %w", err)
	}
	return doc.Entries, nil
}

// #endregion export
