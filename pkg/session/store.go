package session

import (
	"context"
	"errors"
	"time"
)

// Store persists resumable session records. Implementations must be safe
// for concurrent use.
type Store interface {
	// Save persists rec until expiresAt, overwriting any record with the
	// same ID.
	Save(ctx context.Context, rec *Record, expiresAt time.Time) error

	// Load returns (nil, nil) if the record doesn't exist or has expired.
	Load(ctx context.Context, id string) (*Record, error)

	// Delete removes a record. A missing record is not an error.
	Delete(ctx context.Context, id string) error

	// Touch extends a record's expiry without rewriting it. A missing
	// record is not an error.
	Touch(ctx context.Context, id string, expiresAt time.Time) error

	// SaveAll persists several records, used on graceful shutdown.
	SaveAll(ctx context.Context, recs []*Record, expiresAt time.Time) error

	Close() error
}

// ErrStoreClosed is returned when operations are attempted on a closed store.
var ErrStoreClosed = errors.New("session: store closed")
