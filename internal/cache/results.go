package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Results stores the extracted lines of the last run, keyed by profile name.
type Results struct {
	Profiles  map[string][]string `json:"profiles"`
	Timestamp time.Time           `json:"timestamp"`
	Root      string              `json:"root"`
	Count     int                 `json:"count"`
}

func resultsPath(root string) string {
	gitDir := filepath.Join(root, ".git")
	if st, err := os.Stat(gitDir); err == nil && st.IsDir() {
		return filepath.Join(gitDir, "dataextractor_last_scan.json")
	}
	return filepath.Join(root, ".dataextractor_last_scan.json")
}

// SaveResults writes the per-profile lines of a run
func SaveResults(root string, profiles map[string][]string) error {
	n := 0
	for _, lines := range profiles {
		n += len(lines)
	}
	res := Results{
		Profiles:  profiles,
		Timestamp: time.Now(),
		Root:      root,
		Count:     n,
	}
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(resultsPath(root), b, 0644)
}

// LoadResults loads the last run's lines
func LoadResults(root string) (Results, error) {
	var res Results
	f, err := os.ReadFile(resultsPath(root))
	if err != nil {
		return res, err
	}
	if err := json.Unmarshal(f, &res); err != nil {
		return res, err
	}
	if res.Profiles == nil {
		res.Profiles = map[string][]string{}
	}
	return res, nil
}
