// Package remote defines the shared ledger document that the sync coordinator
// pulls from and pushes to. Every backend stores the whole ledger as one unit
// and a Put always replaces what was there.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"anwarfarm/internal/core"
)

// Store is the remote copy of the ledger.
type Store interface {
	// Get returns the full remote ledger.
	Get(ctx context.Context) ([]core.Transaction, error)
	// Put replaces the remote ledger with records.
	Put(ctx context.Context, records []core.Transaction) error
}

// Named is implemented by stores that can describe themselves for logs and status.
type Named interface {
	Name() string
}

var (
	// ErrNotArray marks a remote document that is not a JSON array.
	ErrNotArray = errors.New("remote document is not a JSON array")
	// ErrNotFound marks a remote document that does not exist yet.
	ErrNotFound = errors.New("remote document not found")
)

// DecodeDocument parses a ledger document. Anything but a JSON array of
// transactions is rejected.
func DecodeDocument(b []byte) ([]core.Transaction, error) {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrNotArray
	}
	var records []core.Transaction
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, fmt.Errorf("decode remote document: %w", err)
	}
	if records == nil {
		records = []core.Transaction{}
	}
	return records, nil
}

// EncodeDocument renders records as a JSON array; nil encodes as [].
func EncodeDocument(records []core.Transaction) ([]byte, error) {
	if records == nil {
		records = []core.Transaction{}
	}
	b, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("encode remote document: %w", err)
	}
	return b, nil
}

// NameOf returns s.Name() when available, otherwise its Go type.
func NameOf(s Store) string {
	if n, ok := s.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", s)
}
