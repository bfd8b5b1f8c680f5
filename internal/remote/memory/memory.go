// Package memory is an in-process remote document, used when no real backend
// is configured and by tests that need to inspect what was pushed.
package memory

import (
	"context"
	"sync"

	"anwarfarm/internal/core"
	"anwarfarm/internal/remote"
)

var _ remote.Store = (*Store)(nil)

// Store keeps the document as raw JSON so that decoding behaves exactly like
// the networked backends.
type Store struct {
	mu     sync.Mutex
	doc    []byte
	getErr error
	putErr error
	gets   int
	puts   int
}

// New creates a store holding records. With no records the document is absent.
func New(records ...core.Transaction) *Store {
	s := &Store{}
	if len(records) > 0 {
		s.doc, _ = remote.EncodeDocument(records)
	}
	return s
}

func (s *Store) Name() string { return "memory" }

func (s *Store) Get(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	if s.getErr != nil {
		return nil, s.getErr
	}
	if s.doc == nil {
		return nil, remote.ErrNotFound
	}
	return remote.DecodeDocument(s.doc)
}

func (s *Store) Put(_ context.Context, records []core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	if s.putErr != nil {
		return s.putErr
	}
	doc, err := remote.EncodeDocument(records)
	if err != nil {
		return err
	}
	s.doc = doc
	return nil
}

// SetDocument replaces the raw document, including with non-array payloads.
func (s *Store) SetDocument(doc []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = append([]byte(nil), doc...)
}

// Document returns the raw document.
func (s *Store) Document() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.doc...)
}

// FailGet makes subsequent Gets return err; nil clears it.
func (s *Store) FailGet(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getErr = err
}

// FailPut makes subsequent Puts return err; nil clears it.
func (s *Store) FailPut(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putErr = err
}

// Calls reports how many Gets and Puts were attempted.
func (s *Store) Calls() (gets, puts int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets, s.puts
}
