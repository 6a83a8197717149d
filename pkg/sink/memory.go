package sink

import (
	"context"
	"sync"

	"github.com/Sternrassler/zig365-aanbod/pkg/listing"
)

// Memory keeps records in a slice. Used by tests and library callers.
type Memory struct {
	mu      sync.Mutex
	records []listing.Record

	// FailAfter makes Push fail once this many records were stored.
	// Zero disables the failure.
	FailAfter int
	FailErr   error
}

// NewMemory creates an empty in-memory sink.
func NewMemory() *Memory {
	return &Memory{}
}

// Push appends a record.
func (m *Memory) Push(ctx context.Context, record listing.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailAfter > 0 && len(m.records) >= m.FailAfter {
		if m.FailErr != nil {
			return m.FailErr
		}
		return ErrRejected
	}
	m.records = append(m.records, record)
	return nil
}

// Records returns a copy of the stored records in push order.
func (m *Memory) Records() []listing.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]listing.Record(nil), m.records...)
}

// Len returns the number of stored records.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// Close is a no-op.
func (m *Memory) Close() error {
	return nil
}
