package database

import (
	"context"
	"errors"

	"quotecast-bot/internal/database/models"
)

var (
	// ErrPersistenceIO wraps every failure to read or write a snapshot.
	ErrPersistenceIO = errors.New("persistence I/O error")
	// ErrNoSnapshot is returned by Load when nothing has been saved yet.
	ErrNoSnapshot = errors.New("no snapshot stored")
)

// SnapshotStore persists the bot's state as a single document.
type SnapshotStore interface {
	// Load returns the stored snapshot, or ErrNoSnapshot when there is none.
	Load(ctx context.Context) (*models.Snapshot, error)
	// Save replaces the stored snapshot.
	Save(ctx context.Context, snapshot *models.Snapshot) error
	// Close releases the underlying resources.
	Close(ctx context.Context) error
}
