package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/soaringjerry/Assay/internal/db"
)

// MigrateIfNeeded copies a legacy JSON snapshot into a new SQLite database the
// first time the sqlite store starts. An existing database is left alone.
func MigrateIfNeeded(ctx context.Context, snapshotPath, sqlitePath, migrationsDir string) error {
	if sqlitePath == "" {
		return errors.New("sqlite path is required")
	}
	if _, err := os.Stat(sqlitePath); err == nil {
		return nil // already migrated
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("check sqlite file: %w", err)
	}
	if snapshotPath == "" {
		return nil
	}

	snap, err := db.NewFileGateway(snapshotPath).LoadSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("load legacy snapshot: %w", err)
	}
	if snap == nil {
		return nil
	}

	log.Printf("First run detected, starting one-time data migration from legacy snapshot %s...", snapshotPath)
	dst, err := db.OpenSQLite(ctx, sqlitePath, migrationsDir)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := dst.Close(); cerr != nil {
			log.Printf("warning: failed to close sqlite db: %v", cerr)
		}
	}()
	if err := dst.SaveSnapshot(ctx, snap); err != nil {
		_ = os.Remove(sqlitePath)
		return fmt.Errorf("copy snapshot: %w", err)
	}
	log.Printf("Migration finished: %d surveys, %d responses", len(snap.Surveys), len(snap.Responses))
	return nil
}
