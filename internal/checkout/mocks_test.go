package checkout

import (
	"context"
	"sync"

	"github.com/fjod/go_travel/internal/domain"
)

type createCall struct {
	PaymentMethodID string
	CartIDs         []string
}

type attachCall struct {
	TransactionID string
	ProofURL      string
}

type statusCall struct {
	TransactionID string
	Status        domain.TransactionStatus
}

// MockAPI implements API and records every call.
type MockAPI struct {
	mu sync.Mutex

	TxIDs     []string
	CreateErr error
	ImageURL  string
	UploadErr error
	AttachErr error
	StatusErr error

	// Block, when set, makes CreateTransaction wait until it is closed.
	Block   chan struct{}
	Entered chan struct{}

	Creates  []createCall
	Uploads  []domain.Image
	Attaches []attachCall
	Statuses []statusCall
}

func (m *MockAPI) CreateTransaction(_ context.Context, paymentMethodID string, cartIDs []string) (domain.TransactionRef, error) {
	if m.Entered != nil {
		m.Entered <- struct{}{}
	}
	if m.Block != nil {
		<-m.Block
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Creates = append(m.Creates, createCall{PaymentMethodID: paymentMethodID, CartIDs: cartIDs})
	if m.CreateErr != nil {
		return domain.TransactionRef{}, m.CreateErr
	}

	id := "tx_1"
	if n := len(m.Creates); n <= len(m.TxIDs) {
		id = m.TxIDs[n-1]
	}
	return domain.TransactionRef{ID: id, PaymentMethodID: paymentMethodID}, nil
}

func (m *MockAPI) UploadImage(_ context.Context, img domain.Image) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Uploads = append(m.Uploads, img)
	if m.UploadErr != nil {
		return "", m.UploadErr
	}
	return m.ImageURL, nil
}

func (m *MockAPI) AttachProof(_ context.Context, transactionID, proofURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Attaches = append(m.Attaches, attachCall{TransactionID: transactionID, ProofURL: proofURL})
	return m.AttachErr
}

func (m *MockAPI) UpdateTransactionStatus(_ context.Context, transactionID string, status domain.TransactionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Statuses = append(m.Statuses, statusCall{TransactionID: transactionID, Status: status})
	return m.StatusErr
}

func (m *MockAPI) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Creates) + len(m.Uploads) + len(m.Attaches) + len(m.Statuses)
}

// recorder is an Observer that keeps every event.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Observe(_ context.Context, e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]EventKind, 0, len(r.events))
	for _, e := range r.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}
