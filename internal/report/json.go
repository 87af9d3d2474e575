package report

import (
	"encoding/json"
	"io"

	"github.com/redactyl/dataextractor/internal/types"
)

// ProfileResult is one profile in JSON output.
type ProfileResult struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Lines []string    `json:"lines"`
	Stats types.Stats `json:"stats"`
}

// Document is the JSON output of a scan.
type Document struct {
	Profiles []ProfileResult `json:"profiles"`
	Warnings []string        `json:"warnings,omitempty"`
}

// WriteJSON encodes doc with two-space indentation. Lines are never nil so
// empty profiles render as [].
func WriteJSON(w io.Writer, doc Document) error {
	for i := range doc.Profiles {
		if doc.Profiles[i].Lines == nil {
			doc.Profiles[i].Lines = []string{}
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(doc)
}
