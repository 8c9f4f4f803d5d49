// Package history persists prediction records.
//
// Records are keyed by time-ordered UUIDv7 identifiers, so listing in key
// order is listing in creation order. Values are msgpack-encoded using the
// records' json field names.
//
// The package includes a BadgerDB-backed implementation for production use and
// an in-memory implementation for testing.
package history

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/haivivi/antispoof/pkg/antispoof"
)

// ErrNotFound is returned when a record does not exist in the store.
var ErrNotFound = errors.New("history: not found")

// DefaultListLimit is used when List is called with limit <= 0.
const DefaultListLimit = 20

// Record is one completed prediction.
type Record struct {
	ID        string                    `json:"id"`
	Filename  string                    `json:"filename"`
	CreatedAt time.Time                 `json:"created_at"`
	Channels  int                       `json:"channels"`
	Duration  float64                   `json:"duration_seconds"`
	Results   []antispoof.ChannelResult `json:"results"`
	Archive   string                    `json:"archive,omitempty"`
}

// NewID returns a new time-ordered record identifier.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// ValidID reports whether id is a well-formed record identifier.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Store is the interface for prediction history.
type Store interface {
	// Put stores a record, assigning an ID and CreatedAt if unset.
	Put(ctx context.Context, r *Record) error

	// Get returns the record with the given ID or ErrNotFound.
	Get(ctx context.Context, id string) (*Record, error)

	// List returns up to limit records, newest first.
	List(ctx context.Context, limit int) ([]*Record, error)

	// Delete removes a record. No error if it does not exist.
	Delete(ctx context.Context, id string) error

	// Close releases any resources held by the store.
	Close() error
}

func prepare(r *Record) {
	if r.ID == "" {
		r.ID = NewID()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
