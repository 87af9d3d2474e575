// Package cache persists state between CLI runs: payload fingerprints for
// skipping unchanged inputs, and the last extracted lines per profile for
// seeding dedupe.
package cache

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

type DB struct {
	// Input path or URL -> payload fingerprint (xxhash hex)
	Entries map[string]string `json:"entries"`
}

// Unchanged reports whether key was recorded with the same fingerprint.
func (db DB) Unchanged(key, fp string) bool {
	old, ok := db.Entries[key]
	return ok && old == fp
}

func defaultPath(root string) string {
	// Prefer storing cache under .git to avoid accidental commits
	// Fall back to the root if .git does not exist
	gitDir := filepath.Join(root, ".git")
	if st, err := os.Stat(gitDir); err == nil && st.IsDir() {
		return filepath.Join(gitDir, "dataextractorcache.json")
	}
	return filepath.Join(root, ".dataextractorcache.json")
}

func Load(root string) (DB, error) {
	var db DB
	f, err := os.ReadFile(defaultPath(root))
	if err != nil {
		return DB{Entries: map[string]string{}}, err
	}
	if err := json.Unmarshal(f, &db); err != nil {
		return DB{Entries: map[string]string{}}, err
	}
	if db.Entries == nil {
		db.Entries = map[string]string{}
	}
	return db, nil
}

func Save(root string, db DB) error {
	if db.Entries == nil {
		return errors.New("empty cache")
	}
	b, _ := json.MarshalIndent(db, "", "  ")
	return os.WriteFile(defaultPath(root), b, 0644)
}
