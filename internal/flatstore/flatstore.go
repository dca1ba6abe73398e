// Package flatstore provides a file-per-message cache with a membership index.
//
// Each message is stored as messages/<id>.json under the store directory, and
// index.json records the set of stored ids plus the last sync time. The index
// lets callers answer "do we already have this message?" without opening any
// message files. One process owns a store directory at a time; there is no
// cross-process locking.
package flatstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/mailstash/mailstash/internal/model"
)

const (
	indexVersion = 1
	indexFile    = "index.json"
	messagesDir  = "messages"
)

// ErrCorrupt indicates a stored message file exists but cannot be decoded.
var ErrCorrupt = errors.New("corrupt message file")

// index is the persisted membership index. The whole file is the unit of
// durability: it is rewritten in full after every batch store.
type index struct {
	Version       int      `json:"version"`
	LastSync      string   `json:"last_sync"`
	MessageIDs    []string `json:"message_ids"`
	TotalMessages int      `json:"total_messages"`
}

// Store is a durable point-lookup cache of whole MessageRecords.
// All mutation goes through the Store instance; the index is loaded eagerly
// at Open time and held in memory.
type Store struct {
	dir      string
	msgDir   string
	ids      map[string]bool
	lastSync string

	now func() time.Time // overridable for tests
}

// Stats summarizes the store's contents.
type Stats struct {
	Location      string `json:"location"`
	TotalMessages int    `json:"total_messages"`
	LastSync      string `json:"last_sync"`
}

// SkippedFile identifies a message file that could not be loaded during a
// bulk load, with the reason it was skipped.
type SkippedFile struct {
	ID  string
	Err error
}

// BulkResult is the outcome of LoadAll: the records that decoded cleanly and
// the files that were skipped, so callers can assert on both.
type BulkResult struct {
	Records []*model.MessageRecord
	Skipped []SkippedFile
}

// Open creates or opens a flat store rooted at dir. The directory and its
// messages/ subdirectory are created if absent, and the index is loaded
// eagerly (an empty index if none exists yet).
func Open(dir string) (*Store, error) {
	msgDir := filepath.Join(dir, messagesDir)
	if err := os.MkdirAll(msgDir, 0755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	s := &Store{
		dir:    dir,
		msgDir: msgDir,
		ids:    make(map[string]bool),
		now:    time.Now,
	}

	data, err := os.ReadFile(filepath.Join(dir, indexFile))
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}

	var idx index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("decode index: %w", err)
	}
	for _, id := range idx.MessageIDs {
		s.ids[id] = true
	}
	s.lastSync = idx.LastSync
	return s, nil
}

// Dir returns the store's root directory.
func (s *Store) Dir() string {
	return s.dir
}

// Has reports whether id is present in the index. No disk access.
func (s *Store) Has(id string) bool {
	return s.ids[id]
}

// KnownIDs returns the set of ids currently in the index.
func (s *Store) KnownIDs() map[string]bool {
	known := make(map[string]bool, len(s.ids))
	for id := range s.ids {
		known[id] = true
	}
	return known
}

// NewIDs filters candidates down to ids not yet stored, preserving input order.
func (s *Store) NewIDs(candidates []string) []string {
	var out []string
	for _, id := range candidates {
		if !s.ids[id] {
			out = append(out, id)
		}
	}
	return out
}

// Store writes a single record and adds its id to the in-memory index.
// The write is an idempotent upsert: any prior content for the id is
// replaced wholesale. The index is not persisted; use StoreBatch for a
// durable batch, or SaveIndex directly.
func (s *Store) Store(rec *model.MessageRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("store message: empty id")
	}
	// Normalize a copy; the caller's record is left untouched.
	norm := *rec
	norm.Normalize()

	data, err := json.MarshalIndent(&norm, "", "  ")
	if err != nil {
		return fmt.Errorf("encode message %s: %w", rec.ID, err)
	}
	if err := os.WriteFile(s.messagePath(rec.ID), data, 0644); err != nil {
		return fmt.Errorf("write message %s: %w", rec.ID, err)
	}
	s.ids[rec.ID] = true
	return nil
}

// StoreBatch stores each record, then stamps last_sync and persists the
// index once at the end. It returns the number of ids that were new to the
// index. Message files are written eagerly, so a failure partway through
// leaves earlier records stored; the index then under-reports until the
// next successful batch.
func (s *Store) StoreBatch(records []*model.MessageRecord) (int, error) {
	added := 0
	for _, rec := range records {
		isNew := !s.ids[rec.ID]
		if err := s.Store(rec); err != nil {
			return added, err
		}
		if isNew {
			added++
		}
	}
	s.lastSync = s.now().Format(time.RFC3339)
	if err := s.SaveIndex(); err != nil {
		return added, err
	}
	return added, nil
}

// Load reads the record for id. A missing file returns (nil, nil) even when
// the index claims the id exists — index and filesystem are not assumed
// consistent on read. A file that exists but fails to decode returns an
// error wrapping ErrCorrupt.
func (s *Store) Load(id string) (*model.MessageRecord, error) {
	data, err := os.ReadFile(s.messagePath(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read message %s: %w", id, err)
	}

	var rec model.MessageRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("message %s: %w: %v", id, ErrCorrupt, err)
	}
	rec.Normalize()
	return &rec, nil
}

// LoadAll reads every message file in the store. Files that fail to decode
// are reported in the result's Skipped list rather than aborting the load.
func (s *Store) LoadAll() (*BulkResult, error) {
	entries, err := os.ReadDir(s.msgDir)
	if err != nil {
		return nil, fmt.Errorf("read messages directory: %w", err)
	}

	result := &BulkResult{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" {
			continue
		}
		id := name[:len(name)-len(".json")]
		rec, err := s.Load(id)
		if err != nil {
			result.Skipped = append(result.Skipped, SkippedFile{ID: id, Err: err})
			continue
		}
		if rec == nil {
			// Removed between ReadDir and Load.
			continue
		}
		result.Records = append(result.Records, rec)
	}
	return result, nil
}

// Stats returns the store location, message count, and last sync time.
func (s *Store) Stats() Stats {
	return Stats{
		Location:      s.dir,
		TotalMessages: len(s.ids),
		LastSync:      s.lastSync,
	}
}

// SaveIndex rewrites index.json from the in-memory state. The file is
// written to a temp file in the same directory and renamed into place so a
// crash never leaves a truncated index.
func (s *Store) SaveIndex() error {
	ids := make([]string, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	idx := index{
		Version:       indexVersion,
		LastSync:      s.lastSync,
		MessageIDs:    ids,
		TotalMessages: len(ids),
	}
	data, err := json.MarshalIndent(&idx, "", "  ")
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}

	path := filepath.Join(s.dir, indexFile)
	tmp, err := os.CreateTemp(s.dir, indexFile+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp index: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp index: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace index: %w", err)
	}
	return nil
}

func (s *Store) messagePath(id string) string {
	return filepath.Join(s.msgDir, id+".json")
}
