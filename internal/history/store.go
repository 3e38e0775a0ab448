package history

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Entry records one successful place search
type Entry struct {
	Query       string    `json:"query"`
	Lat         float64   `json:"lat"`
	Lon         float64   `json:"lon"`
	DisplayName string    `json:"displayName"`
	Timestamp   time.Time `json:"timestamp"`
}

// Store is a persistent, size-bounded log of past place searches, most
// recent first and unique per query. It never reports read errors outward: a
// missing or corrupt file simply starts an empty history.
type Store struct {
	path       string
	maxEntries int
	mu         sync.Mutex
	entries    []Entry
}

// NewStore loads the history persisted at path, or starts empty if the file
// is missing or unreadable
func NewStore(path string, maxEntries int) *Store {
	if maxEntries < 1 {
		maxEntries = 1
	}

	s := &Store{
		path:       path,
		maxEntries: maxEntries,
	}
	s.load()
	return s
}

func (s *Store) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[History] Failed to read %s, starting empty: %v", s.path, err)
		}
		return
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		log.Printf("[History] Corrupt history file %s, starting empty: %v", s.path, err)
		return
	}

	if len(entries) > s.maxEntries {
		entries = entries[:s.maxEntries]
	}
	s.entries = entries
}

// Record adds an entry to the front of the history. A repeated query
// (case-insensitive) replaces the earlier entry instead of duplicating it,
// and the history is truncated to its cap.
func (s *Store) Record(entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(strings.TrimSpace(entry.Query))
	kept := make([]Entry, 0, len(s.entries)+1)
	kept = append(kept, entry)
	for _, existing := range s.entries {
		if strings.ToLower(strings.TrimSpace(existing.Query)) == key {
			continue
		}
		kept = append(kept, existing)
	}

	if len(kept) > s.maxEntries {
		kept = kept[:s.maxEntries]
	}
	s.entries = kept

	return s.save()
}

// List returns the history, most recent first
func (s *Store) List() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]Entry, len(s.entries))
	copy(result, s.entries)
	return result
}

// MostRecent returns the latest entry, if any
func (s *Store) MostRecent() (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) == 0 {
		return Entry{}, false
	}
	return s.entries[0], true
}

// Clear empties the history and removes the persisted file
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = nil
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove history file: %w", err)
	}
	return nil
}

// save persists the current entries, caller must hold the lock
func (s *Store) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write history file: %w", err)
	}
	return nil
}
