package repository

import (
	"context"
	"sync"
	"time"
)

// MockRepository implements JournalRepository for testing
type MockRepository struct {
	mu sync.Mutex

	Err         error
	StaleResult int64

	Created   []*Entry
	Attached  map[string]string
	Confirmed []string
	Abandoned []string
	StaleAt   []time.Time
	Entries   map[string][]*Entry
}

func (m *MockRepository) RecordCreated(_ context.Context, e *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Created = append(m.Created, e)
	return m.Err
}

func (m *MockRepository) MarkProofAttached(_ context.Context, transactionID, proofURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Attached == nil {
		m.Attached = make(map[string]string)
	}
	m.Attached[transactionID] = proofURL
	return m.Err
}

func (m *MockRepository) MarkConfirmed(_ context.Context, transactionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Confirmed = append(m.Confirmed, transactionID)
	return m.Err
}

func (m *MockRepository) MarkAbandoned(_ context.Context, checkoutID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Abandoned = append(m.Abandoned, checkoutID)
	return m.Err
}

func (m *MockRepository) AbandonStale(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StaleAt = append(m.StaleAt, before)
	return m.StaleResult, m.Err
}

func (m *MockRepository) ListByCheckout(_ context.Context, checkoutID string) ([]*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Entries[checkoutID], m.Err
}

func (m *MockRepository) Get(context.Context, string) (*Entry, error) {
	return nil, ErrEntryNotFound
}

func (m *MockRepository) RunMigrations(*Credentials) error {
	return nil
}

func (m *MockRepository) Close() error {
	return nil
}
