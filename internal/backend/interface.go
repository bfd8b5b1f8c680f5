// Package backend builds the local ledger storage and the remote document
// store selected by configuration.
package backend

import (
	"context"

	"anwarfarm/internal/ledger"
	"anwarfarm/internal/remote"
)

// LocalType selects where the ledger blob is kept.
type LocalType string

// RemoteType selects the remote document backend.
type RemoteType string

const (
	LocalSQLite LocalType = "sqlite"
	LocalMemory LocalType = "memory"

	RemoteNone   RemoteType = "none"
	RemoteMemory RemoteType = "memory"
	RemoteHTTP   RemoteType = "http"
	RemoteSheets RemoteType = "sheets"
	RemoteGCS    RemoteType = "gcs"
	RemoteS3     RemoteType = "s3"
)

func (t LocalType) IsValid() bool {
	return t == LocalSQLite || t == LocalMemory
}

func (t RemoteType) IsValid() bool {
	switch t {
	case RemoteNone, RemoteMemory, RemoteHTTP, RemoteSheets, RemoteGCS, RemoteS3:
		return true
	}
	return false
}

// Pinger reports local storage health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// LocalResult is the ledger persistence plus its lifecycle hooks.
type LocalResult struct {
	Persister ledger.Persister
	// Pinger is nil for in-memory storage.
	Pinger  Pinger
	Cleanup func() error
}

// RemoteResult is the remote document store. Store is nil when syncing is off.
type RemoteResult struct {
	Store   remote.Store
	Cleanup func() error
}

// Factory creates backends from configuration.
type Factory interface {
	CreateLocal(ctx context.Context, cfg Config) (*LocalResult, error)
	CreateRemote(ctx context.Context, cfg Config) (*RemoteResult, error)
}

// Close runs cleanup if set.
func (r *LocalResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Close runs cleanup if set.
func (r *RemoteResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}
