package storage

import (
	"context"
	"errors"
	"time"

	"tally/internal/core"
)

var (
	// ErrNotFound is returned when a row does not exist for the requesting user.
	ErrNotFound = errors.New("not found")
	// ErrUnauthenticated is returned when a call carries no user id.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// Ports implemented by every storage backend. Every call is scoped to one user.
type (
	RecordStore interface {
		CreateRecord(ctx context.Context, in core.NewRecord) (core.Record, error)
		// ListRecords returns records ordered by date desc, created_at desc.
		// Category membership is matched ignoring case.
		ListRecords(ctx context.Context, userID string, f core.Filter) ([]core.Record, error)
		UpdateRecord(ctx context.Context, userID, id string, patch core.RecordPatch) (core.Record, error)
		DeleteRecord(ctx context.Context, userID, id string) error
	}

	ProfileStore interface {
		GetProfile(ctx context.Context, userID string) (core.Profile, error)
		// UpsertProfile stores email and avatar, and names only when the stored ones are blank.
		UpsertProfile(ctx context.Context, p core.Profile) (core.Profile, error)
		UpdateProfileNames(ctx context.Context, userID, first, last string) (core.Profile, error)
	}

	AuditWriter interface {
		AppendAudit(ctx context.Context, e AuditEntry) error
		ListAudit(ctx context.Context, userID string, limit int) ([]AuditEntry, error)
	}

	// Store is the full set of ports a backend provides.
	Store interface {
		RecordStore
		ProfileStore
		AuditWriter
		Close() error
	}
)

// AuditEntry records one write against a personal record.
type AuditEntry struct {
	RecordID   string
	UserID     string
	Event      string
	OccurredAt time.Time
}

func requireUser(userID string) error {
	if userID == "" {
		return ErrUnauthenticated
	}
	return nil
}
