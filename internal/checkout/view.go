package checkout

import (
	"time"

	"github.com/fjod/go_travel/internal/domain"
)

// View is a read-only snapshot for rendering the current step.
type View struct {
	ID                   string        `json:"id"`
	Cursor               int           `json:"cursor"`
	Stage                Stage         `json:"stage"`
	Busy                 bool          `json:"busy"`
	Finished             bool          `json:"finished"`
	Draft                *domain.Draft `json:"draft,omitempty"`
	PaymentMethodID      string        `json:"paymentMethodId,omitempty"`
	TransactionID        string        `json:"transactionId,omitempty"`
	ProofImageURL        string        `json:"proofImageUrl,omitempty"`
	ImageSelected        bool          `json:"imageSelected"`
	AwaitingConfirmation bool          `json:"awaitingConfirmation"`
	ConfirmedAt          *time.Time    `json:"confirmedAt,omitempty"`
	TransactionsCreated  int           `json:"transactionsCreated"`
	Error                *ErrorView    `json:"error,omitempty"`
}

type ErrorView struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (s *Sequencer) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		ID:                  s.id,
		Cursor:              int(s.state.Stage()),
		Stage:               s.state.Stage(),
		Busy:                s.busy,
		Finished:            s.finished,
		Draft:               s.draft,
		TransactionsCreated: s.created,
	}

	switch st := s.state.(type) {
	case PaymentMethodState:
		v.PaymentMethodID = st.PaymentMethodID
	case UploadProofState:
		v.PaymentMethodID = st.Transaction.PaymentMethodID
		v.TransactionID = st.Transaction.ID
		v.ProofImageURL = st.UploadedURL
		v.ImageSelected = st.Image != nil
	case VerifyPaymentState:
		v.PaymentMethodID = st.Transaction.PaymentMethodID
		v.TransactionID = st.Transaction.ID
		v.ProofImageURL = st.ProofURL
		v.ImageSelected = true
		v.AwaitingConfirmation = true
	case ConfirmationState:
		v.PaymentMethodID = st.Transaction.PaymentMethodID
		v.TransactionID = st.Transaction.ID
		v.ProofImageURL = st.ProofURL
		confirmedAt := st.ConfirmedAt
		v.ConfirmedAt = &confirmedAt
	}

	if s.lastErr != nil {
		v.Error = &ErrorView{Kind: s.lastErr.Kind.String(), Message: s.lastErr.Message}
	}
	return v
}
