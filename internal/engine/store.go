package engine

import (
	"bufio"
	"io"
	"sync"

	"github.com/redactyl/dataextractor/internal/types"
)

// Store is the ordered, append-only list of result lines owned by one
// profile. It is safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	lines  []string
	byLine map[string]bool
	values map[string]bool
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{byLine: map[string]bool{}, values: map[string]bool{}}
}

// Has reports whether value was appended before, or whether line or value
// already appear verbatim as a stored line.
func (s *Store) Has(value, line string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lockedLookup{s}.Has(value, line)
}

// Append adds results in order.
func (s *Store) Append(res []types.MatchResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLocked(res)
}

// Seed appends pre-rendered lines, e.g. from a previous export.
func (s *Store) Seed(lines []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range lines {
		if l == "" {
			continue
		}
		s.lines = append(s.lines, l)
		s.byLine[l] = true
	}
}

func (s *Store) appendLocked(res []types.MatchResult) {
	for _, r := range res {
		l := r.Line()
		s.lines = append(s.lines, l)
		s.byLine[l] = true
		s.values[r.Value] = true
	}
}

// Lines returns a copy of the stored lines.
func (s *Store) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

// Len is the number of stored lines.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines)
}

// Clear drops every line.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = nil
	s.byLine = map[string]bool{}
	s.values = map[string]bool{}
}

// WriteTo writes the lines verbatim, one per line.
func (s *Store) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64
	for _, l := range s.Lines() {
		m, err := bw.WriteString(l + "\n")
		n += int64(m)
		if err != nil {
			return n, err
		}
	}
	return n, bw.Flush()
}

// lockedLookup reads a store whose lock the caller already holds.
type lockedLookup struct{ s *Store }

func (l lockedLookup) Has(value, line string) bool {
	return l.s.values[value] || l.s.byLine[line] || l.s.byLine[value]
}
