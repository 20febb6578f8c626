// Package repository keeps a local journal of every remote transaction the
// checkout flow creates, so transactions left behind by Back or abandonment
// can be found.
package repository

import (
	"context"
	"errors"
	"time"
)

var ErrEntryNotFound = errors.New("journal entry not found")

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

type State string

const (
	StateCreated       State = "created"
	StateProofAttached State = "proof_attached"
	StateConfirmed     State = "confirmed"
	// StateOrphaned marks a transaction superseded by a newer one in the same
	// checkout.
	StateOrphaned  State = "orphaned"
	StateAbandoned State = "abandoned"
)

func (s State) IsOpen() bool {
	return s == StateCreated || s == StateProofAttached
}

type Entry struct {
	TransactionID   string
	CheckoutID      string
	UserID          string
	PaymentMethodID string
	CartIDs         []string
	State           State
	ProofURL        string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type JournalRepository interface {
	RecordCreated(ctx context.Context, e *Entry) error
	MarkProofAttached(ctx context.Context, transactionID, proofURL string) error
	MarkConfirmed(ctx context.Context, transactionID string) error
	MarkAbandoned(ctx context.Context, checkoutID string) error
	AbandonStale(ctx context.Context, before time.Time) (int64, error)
	ListByCheckout(ctx context.Context, checkoutID string) ([]*Entry, error)
	Get(ctx context.Context, transactionID string) (*Entry, error)
	RunMigrations(*Credentials) error
	Close() error
}
