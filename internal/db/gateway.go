package db

import (
	"context"
	"fmt"

	"github.com/soaringjerry/Assay/internal/models"
)

// Gateway is a persistence backend that can be closed on shutdown.
type Gateway interface {
	LoadSnapshot(ctx context.Context) (*models.Snapshot, error)
	SaveSnapshot(ctx context.Context, snap *models.Snapshot) error
	Close() error
}

type Options struct {
	Store         string
	SQLitePath    string
	SnapshotPath  string
	PostgresDSN   string
	MigrationsDir string
}

// NewGateway opens the backend selected by opts.Store: sqlite (default), postgres or file.
func NewGateway(ctx context.Context, opts Options) (Gateway, error) {
	switch opts.Store {
	case "", "sqlite":
		return OpenSQLite(ctx, opts.SQLitePath, opts.MigrationsDir)
	case "postgres":
		return OpenPostgres(opts.PostgresDSN)
	case "file":
		return NewFileGateway(opts.SnapshotPath), nil
	default:
		return nil, fmt.Errorf("unknown store %q", opts.Store)
	}
}
