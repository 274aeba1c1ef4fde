// Package metastore persists the per-(spot, era) video generation records
// in a single JSON document that is read and rewritten wholesale.
//
// The document is shared with sibling processes without any locking: a
// mutation races another process's mutation at document granularity, and the
// last writer wins. Callers are expected to keep cross-process concurrency
// small and to avoid overlapping writes to the same identity. Within one
// process the Store serializes all access.
package metastore

import (
	"fmt"
	"os"
	"sync"
	"time"

	"timelens/internal/model"
)

const DefaultPath = "src/lib/data/generated-videos.json"

// Store owns the in-memory cache of the metadata document. Construct one
// per process and pass it to every consumer; there is no package-level
// state.
type Store struct {
	path string

	mu     sync.Mutex
	cached *model.VideoMetadataDocument
}

func New(path string) *Store {
	if path == "" {
		path = DefaultPath
	}
	return &Store{path: path}
}

func (s *Store) Path() string {
	return s.path
}

// load returns the cached document, reading it from disk on first use. A
// missing file materializes an empty document on disk so that sibling
// processes agree on its existence. Callers must hold s.mu.
func (s *Store) load() (*model.VideoMetadataDocument, error) {
	if s.cached != nil {
		return s.cached, nil
	}

	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		doc := &model.VideoMetadataDocument{Videos: []model.VideoMetadataEntry{}}
		if err := WriteJSON(s.path, doc); err != nil {
			return nil, err
		}
		s.cached = doc
		return doc, nil
	}

	var doc model.VideoMetadataDocument
	if err := ReadJSON(s.path, &doc); err != nil {
		return nil, err
	}
	if doc.Videos == nil {
		doc.Videos = []model.VideoMetadataEntry{}
	}
	s.cached = &doc
	return s.cached, nil
}

// persist writes the full document back to disk and refreshes the cache.
// Callers must hold s.mu.
func (s *Store) persist(doc *model.VideoMetadataDocument) error {
	if err := WriteJSON(s.path, doc); err != nil {
		return err
	}
	s.cached = doc
	return nil
}

// GetAll returns a copy of every record.
func (s *Store) GetAll() ([]model.VideoMetadataEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]model.VideoMetadataEntry, len(doc.Videos))
	copy(out, doc.Videos)
	return out, nil
}

// Get returns the record for the given identity, if present.
func (s *Store) Get(spotID, eraID string) (model.VideoMetadataEntry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return model.VideoMetadataEntry{}, false, err
	}
	for _, entry := range doc.Videos {
		if entry.SpotID == spotID && entry.EraID == eraID {
			return entry, true, nil
		}
	}
	return model.VideoMetadataEntry{}, false, nil
}

// ByStatus returns every record currently in the given status.
func (s *Store) ByStatus(status string) ([]model.VideoMetadataEntry, error) {
	all, err := s.GetAll()
	if err != nil {
		return nil, err
	}
	out := make([]model.VideoMetadataEntry, 0, len(all))
	for _, entry := range all {
		if entry.Status == status {
			out = append(out, entry)
		}
	}
	return out, nil
}

// Upsert replaces the record matching the entry's identity, or appends it,
// then synchronously rewrites the whole document.
func (s *Store) Upsert(entry model.VideoMetadataEntry) error {
	if err := model.ValidateEntry(entry); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}

	replaced := false
	for i, existing := range doc.Videos {
		if existing.SpotID == entry.SpotID && existing.EraID == entry.EraID {
			doc.Videos[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		doc.Videos = append(doc.Videos, entry)
	}
	return s.persist(doc)
}

// MarkFailed records a terminal failure for the identity, preserving the
// existing prompt/path/taskId when a record exists and synthesizing a
// minimal failed record when none does.
func (s *Store) MarkFailed(spotID, eraID, errMsg string) error {
	if errMsg == "" {
		return fmt.Errorf("mark failed requires an error message (spot=%s era=%s)", spotID, eraID)
	}
	now := time.Now().UTC().Format(time.RFC3339)

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}

	for i, existing := range doc.Videos {
		if existing.SpotID == spotID && existing.EraID == eraID {
			existing.Status = model.StatusFailed
			existing.Error = errMsg
			existing.CompletedAt = now
			doc.Videos[i] = existing
			return s.persist(doc)
		}
	}

	doc.Videos = append(doc.Videos, model.VideoMetadataEntry{
		SpotID:      spotID,
		EraID:       eraID,
		Prompt:      "",
		LocalPath:   "",
		Status:      model.StatusFailed,
		CreatedAt:   now,
		CompletedAt: now,
		Error:       errMsg,
	})
	return s.persist(doc)
}

// InvalidateCache forces the next read to go back to disk. Needed when a
// sibling process (or a test) rewrites the document out from under us.
func (s *Store) InvalidateCache() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}
