// Package journal records events whose handlers failed, for inspection and
// replay after the fact.
//
// Entries hold a CBOR snapshot of the event (see package codec) together with
// the flow, handler and error that produced it. MemoryStore suits tests;
// SQLiteStore persists entries across restarts.
package journal

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/randalmurphal/flowhub/pkg/flowhub/codec"
	"github.com/randalmurphal/flowhub/pkg/flowhub/event"
)

// Store persists journal entries.
// Implementations must be safe for concurrent use.
type Store interface {
	// Append stores an entry, assigning its ID, Sequence and Timestamp when
	// unset.
	Append(entry *Entry) error

	// Get returns the entry with the given ID or ErrNotFound.
	Get(id string) (*Entry, error)

	// List returns entries for a flow ordered by sequence, at most limit
	// entries when limit > 0. An empty flow lists every flow.
	List(flow string, limit int) ([]*Entry, error)

	// Delete removes an entry. Deleting a missing entry is not an error.
	Delete(id string) error

	// Count returns the number of stored entries.
	Count() (int, error)

	// Close releases any resources.
	Close() error
}

// Entry is one failed delivery.
type Entry struct {
	ID        string
	Sequence  int64
	Flow      string
	Handler   string
	TypeID    int
	TypeName  string
	Event     []byte
	Error     string
	Timestamp time.Time
}

// Snapshot decodes the stored event.
func (e *Entry) Snapshot() (*codec.Snapshot, error) {
	return codec.Unmarshal(e.Event)
}

// NewEntry builds an entry for evt failing in handler on flow.
func NewEntry(flow, handler string, evt event.Event, cause error) (*Entry, error) {
	data, err := codec.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("snapshot event: %w", err)
	}
	entry := &Entry{
		Flow:     flow,
		Handler:  handler,
		TypeID:   evt.TypeID(),
		TypeName: evt.EventTag().Name,
		Event:    data,
	}
	if cause != nil {
		entry.Error = cause.Error()
	}
	return entry, nil
}

func (e *Entry) prepare() {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
}

// Sentinel errors for journal operations.
var (
	// ErrNotFound indicates an entry doesn't exist.
	ErrNotFound = errors.New("journal entry not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("journal store closed")
)
