// Package checkout drives the four-step purchase flow that follows the cart:
// review the draft, pick a payment method (creates the remote transaction),
// upload a proof of payment (uploads, attaches and confirms), then show the
// confirmation.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fjod/go_travel/internal/domain"
	"github.com/google/uuid"
)

// API is the part of the remote commerce API the sequencer calls.
type API interface {
	CreateTransaction(ctx context.Context, paymentMethodID string, cartIDs []string) (domain.TransactionRef, error)
	UploadImage(ctx context.Context, img domain.Image) (string, error)
	AttachProof(ctx context.Context, transactionID, proofURL string) error
	UpdateTransactionStatus(ctx context.Context, transactionID string, status domain.TransactionStatus) error
}

// BackPolicy decides what happens to an already created transaction when the
// user steps back past the payment method step and forward again.
type BackPolicy int

const (
	// BackRecreatesTransaction issues a new createTransaction call every time.
	// The earlier transaction is left orphaned on the remote side.
	BackRecreatesTransaction BackPolicy = iota
	// BackReusesTransaction keeps the earlier transaction when the same
	// payment method is chosen again.
	BackReusesTransaction
)

func (p BackPolicy) String() string {
	if p == BackReusesTransaction {
		return "reuse"
	}
	return "recreate"
}

func ParseBackPolicy(s string) (BackPolicy, error) {
	switch s {
	case "", "recreate":
		return BackRecreatesTransaction, nil
	case "reuse":
		return BackReusesTransaction, nil
	}
	return 0, fmt.Errorf("unknown back policy %q", s)
}

type Sequencer struct {
	id       string
	userID   string
	api      API
	policy   BackPolicy
	observer Observer
	now      func() time.Time

	mu         sync.Mutex
	draft      *domain.Draft
	state      State
	busy       bool
	lastErr    *Error
	lastTx     *domain.TransactionRef
	created    int
	finished   bool
	lastActive time.Time
}

type Option func(*Sequencer)

func WithBackPolicy(p BackPolicy) Option {
	return func(s *Sequencer) { s.policy = p }
}

func WithObserver(o Observer) Option {
	return func(s *Sequencer) { s.observer = o }
}

func WithClock(now func() time.Time) Option {
	return func(s *Sequencer) { s.now = now }
}

func WithID(id string) Option {
	return func(s *Sequencer) { s.id = id }
}

func WithUser(userID string) Option {
	return func(s *Sequencer) { s.userID = userID }
}

// New takes ownership of draft and starts at the review step. A nil or empty
// draft is a DraftMissing error: the caller should send the user back to the
// cart.
func New(ctx context.Context, draft *domain.Draft, api API, opts ...Option) (*Sequencer, error) {
	if draft.Empty() {
		return nil, draftMissingError()
	}

	s := &Sequencer{
		id:     uuid.NewString(),
		api:    api,
		policy: BackRecreatesTransaction,
		now:    time.Now,
		draft:  draft,
		state:  ReviewState{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lastActive = s.now()

	s.emit(ctx, Event{Kind: EventStarted, Stage: StageReview, CartIDs: draft.CartIDs()})
	return s, nil
}

func (s *Sequencer) ID() string {
	return s.id
}

// Next performs the current step's forward action. On success the cursor moves
// by exactly one, except that the upload step also runs payment confirmation
// and lands on the confirmation step. On failure the cursor stays put and the
// returned *Error is also kept for View.
func (s *Sequencer) Next(ctx context.Context) error {
	current, err := s.begin()
	if err != nil {
		return err
	}

	var next State
	switch st := current.(type) {
	case ReviewState:
		next, err = s.review(st)
	case PaymentMethodState:
		next, err = s.createTransaction(ctx, st)
	case UploadProofState:
		next, err = s.submitProof(ctx, st)
	case VerifyPaymentState:
		next, err = s.confirmPayment(ctx, st)
	default:
		next, err = current, ErrIllegalTransition
	}

	s.end(ctx, next, err)
	return err
}

// Back steps from the payment method or upload step to the previous one. It
// issues no remote call; a transaction created earlier stays on the remote
// side.
func (s *Sequencer) Back(ctx context.Context) error {
	s.mu.Lock()
	if err := s.checkIdle(); err != nil {
		s.mu.Unlock()
		return err
	}

	var next State
	switch st := s.state.(type) {
	case PaymentMethodState:
		next = ReviewState{}
	case UploadProofState:
		next = PaymentMethodState{PaymentMethodID: st.Transaction.PaymentMethodID}
	default:
		s.mu.Unlock()
		return ErrIllegalTransition
	}
	from := s.state.Stage()
	s.state = next
	s.lastErr = nil
	s.lastActive = s.now()
	s.mu.Unlock()

	s.emit(ctx, Event{Kind: EventBack, Stage: from})
	return nil
}

// SelectPaymentMethod records the user's choice. It is only valid on the
// payment method step and makes no remote call.
func (s *Sequencer) SelectPaymentMethod(paymentMethodID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkIdle(); err != nil {
		return err
	}
	st, ok := s.state.(PaymentMethodState)
	if !ok {
		return ErrIllegalTransition
	}
	st.PaymentMethodID = paymentMethodID
	s.state = st
	s.lastErr = nil
	s.lastActive = s.now()
	return nil
}

// SelectImage records the proof image. Choosing a new image discards any
// earlier upload that was not yet attached.
func (s *Sequencer) SelectImage(img *domain.Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkIdle(); err != nil {
		return err
	}
	st, ok := s.state.(UploadProofState)
	if !ok {
		return ErrIllegalTransition
	}
	st.Image = img
	st.UploadedURL = ""
	s.state = st
	s.lastErr = nil
	s.lastActive = s.now()
	return nil
}

// Finish ends a confirmed checkout and destroys the draft. The caller then
// shows the order history.
func (s *Sequencer) Finish(ctx context.Context) (ConfirmationState, error) {
	s.mu.Lock()
	if err := s.checkIdle(); err != nil {
		s.mu.Unlock()
		return ConfirmationState{}, err
	}
	st, ok := s.state.(ConfirmationState)
	if !ok {
		s.mu.Unlock()
		return ConfirmationState{}, ErrIllegalTransition
	}
	s.draft = nil
	s.finished = true
	s.lastActive = s.now()
	s.mu.Unlock()

	s.emit(ctx, Event{Kind: EventFinished, Stage: StageConfirmation, TransactionID: st.Transaction.ID})
	return st, nil
}

// Abandon drops the draft without finishing. Any created transaction is left
// as it is on the remote side.
func (s *Sequencer) Abandon(ctx context.Context) error {
	s.mu.Lock()
	if err := s.checkIdle(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.draft = nil
	s.finished = true
	stage := s.state.Stage()
	txID := transactionID(s.state)
	s.mu.Unlock()

	s.emit(ctx, Event{Kind: EventAbandoned, Stage: stage, TransactionID: txID})
	return nil
}

// State returns the current variant.
func (s *Sequencer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Sequencer) Cursor() Stage {
	return s.State().Stage()
}

func (s *Sequencer) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Err is the failure of the last action, if it failed.
func (s *Sequencer) Err() *Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Draft returns the owned draft, nil once finished or abandoned.
func (s *Sequencer) Draft() *domain.Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

func (s *Sequencer) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished
}

func (s *Sequencer) idleSince() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive, s.busy
}

func (s *Sequencer) checkIdle() error {
	if s.finished {
		return ErrFinished
	}
	if s.busy {
		return ErrBusy
	}
	return nil
}

func (s *Sequencer) begin() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkIdle(); err != nil {
		return nil, err
	}
	s.busy = true
	s.lastErr = nil
	return s.state, nil
}

func (s *Sequencer) end(ctx context.Context, next State, err error) {
	s.mu.Lock()
	s.state = next
	s.busy = false
	s.lastActive = s.now()

	var stepErr *Error
	if errors.As(err, &stepErr) {
		s.lastErr = stepErr
	}
	s.mu.Unlock()

	if stepErr != nil {
		s.emit(ctx, Event{
			Kind:          EventStageFailed,
			Stage:         stepErr.Stage,
			TransactionID: transactionID(next),
			ErrorKind:     stepErr.Kind.String(),
			Message:       stepErr.Message,
		})
	}
}

func (s *Sequencer) emit(ctx context.Context, e Event) {
	e.CheckoutID = s.id
	e.UserID = s.userID
	e.At = s.now()
	if s.observer != nil {
		s.observer.Observe(ctx, e)
	}
}

func (s *Sequencer) cartIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.CartIDs()
}

func transactionID(st State) string {
	switch st := st.(type) {
	case UploadProofState:
		return st.Transaction.ID
	case VerifyPaymentState:
		return st.Transaction.ID
	case ConfirmationState:
		return st.Transaction.ID
	}
	return ""
}
