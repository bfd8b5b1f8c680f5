package backend

import (
	"context"
	"fmt"

	applog "anwarfarm/internal/log"
	"anwarfarm/internal/remote/gcs"
	"anwarfarm/internal/remote/httpdoc"
	"anwarfarm/internal/remote/memory"
	"anwarfarm/internal/remote/s3doc"
	"anwarfarm/internal/remote/sheets"
	"anwarfarm/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	return &DefaultFactory{
		logger: applog.OrDiscard(logger).WithComponent(applog.ComponentBackend),
	}
}

// CreateLocal implements Factory.CreateLocal
func (f *DefaultFactory) CreateLocal(ctx context.Context, cfg Config) (*LocalResult, error) {
	switch cfg.Local {
	case LocalSQLite:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized SQLite ledger storage",
			"db_path", cfg.SQLiteDBPath, applog.FieldLedgerKey, cfg.LedgerKey)
		return &LocalResult{
			Persister: storage.NewBlob(repo, cfg.LedgerKey),
			Pinger:    repo,
			Cleanup:   repo.Close,
		}, nil
	case LocalMemory:
		f.logger.WarnContext(ctx, "Using in-memory ledger storage, data is lost on restart")
		return &LocalResult{Persister: storage.NewBlob(storage.NewMemoryKV(), cfg.LedgerKey)}, nil
	default:
		return nil, fmt.Errorf("unsupported local backend: %s", cfg.Local)
	}
}

// CreateRemote implements Factory.CreateRemote
func (f *DefaultFactory) CreateRemote(ctx context.Context, cfg Config) (*RemoteResult, error) {
	var res *RemoteResult
	switch cfg.Remote {
	case RemoteNone, "":
		f.logger.InfoContext(ctx, "Remote sync disabled")
		return &RemoteResult{}, nil
	case RemoteMemory:
		res = &RemoteResult{Store: memory.New()}
	case RemoteHTTP:
		res = &RemoteResult{Store: httpdoc.New(cfg.RemoteURL, nil)}
	case RemoteSheets:
		cli, err := sheets.New(ctx, cfg.Sheets)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		res = &RemoteResult{Store: cli}
	case RemoteGCS:
		cli, err := gcs.New(ctx, cfg.GCSBucket, cfg.GCSObject)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize GCS client: %w", err)
		}
		res = &RemoteResult{Store: cli, Cleanup: cli.Close}
	case RemoteS3:
		cli, err := s3doc.New(ctx, cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 client: %w", err)
		}
		res = &RemoteResult{Store: cli}
	default:
		return nil, fmt.Errorf("unsupported remote backend: %s", cfg.Remote)
	}

	f.logger.InfoContext(ctx, "Initialized remote document store", applog.FieldBackend, string(cfg.Remote))
	return res, nil
}
