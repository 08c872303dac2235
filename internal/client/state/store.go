// Package state persists what is known locally about past publishes.
//
// The file is a JSON object whose "publishes" key maps slug to record. Other
// top-level keys are carried through untouched. A missing or unparseable
// file is treated as empty and is replaced on the next write.
package state

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/dmitrijs2005/instanthost/internal/client/models"
	"github.com/dmitrijs2005/instanthost/internal/common"
	"github.com/dmitrijs2005/instanthost/internal/filex"
	"github.com/natefinch/atomic"
)

const publishesKey = "publishes"

type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string {
	return s.path
}

// document is the whole file: known publishes plus any foreign keys.
type document struct {
	publishes models.PublishState
	extra     map[string]json.RawMessage
}

// Load returns the stored publishes. The error is non-nil only as a warning
// (wrapping common.ErrorStateUnreadable); the returned state is always usable.
func (s *Store) Load() (models.PublishState, error) {
	doc, err := s.read()
	return doc.publishes, err
}

// Get returns the record for slug, if any. Read problems count as absent.
func (s *Store) Get(slug string) (models.PublishRecord, bool) {
	st, _ := s.Load()
	rec, ok := st[slug]
	return rec, ok
}

// Merge sets the record for slug and rewrites the file, keeping every other
// slug. Claim credentials and expiry absent from rec are carried over from
// the stored record, since update sessions do not repeat them.
//
// The returned warning reports an unreadable previous file; the returned
// error reports a failed write.
func (s *Store) Merge(slug string, rec models.PublishRecord) (warning error, err error) {
	doc, warning := s.read()

	if prev, ok := doc.publishes[slug]; ok {
		if rec.ClaimToken == nil {
			rec.ClaimToken = prev.ClaimToken
		}
		if rec.ClaimURL == nil {
			rec.ClaimURL = prev.ClaimURL
		}
		if rec.ExpiresAt == nil {
			rec.ExpiresAt = prev.ExpiresAt
		}
	}
	doc.publishes[slug] = rec

	return warning, s.write(doc)
}

func (s *Store) read() (document, error) {
	doc := document{publishes: models.PublishState{}, extra: map[string]json.RawMessage{}}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return doc, nil
		}
		return doc, fmt.Errorf("%w: %w", common.ErrorStateUnreadable, err)
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return doc, fmt.Errorf("%w: %s: %w", common.ErrorStateUnreadable, s.path, err)
	}

	raw, ok := top[publishesKey]
	delete(top, publishesKey)
	if ok && !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		var pubs models.PublishState
		if err := json.Unmarshal(raw, &pubs); err != nil {
			return doc, fmt.Errorf("%w: %s: %w", common.ErrorStateUnreadable, s.path, err)
		}
		for k, v := range pubs {
			doc.publishes[k] = v
		}
	}
	if top != nil {
		doc.extra = top
	}
	return doc, nil
}

func (s *Store) write(doc document) error {
	out := make(map[string]any, len(doc.extra)+1)
	for k, v := range doc.extra {
		out[k] = v
	}
	out[publishesKey] = doc.publishes

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	data = append(data, '\n')

	if _, err := filex.EnsureParentDir(s.path); err != nil {
		return err
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write state %s: %w", s.path, err)
	}
	return nil
}
