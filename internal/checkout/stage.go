package checkout

import (
	"time"

	"github.com/fjod/go_travel/internal/domain"
)

// Stage is the step cursor: an index 0..3 into the four checkout steps.
type Stage int

const (
	StageReview Stage = iota
	StagePaymentMethod
	StageUploadProof
	StageConfirmation
)

func (s Stage) String() string {
	switch s {
	case StageReview:
		return "review"
	case StagePaymentMethod:
		return "payment_method"
	case StageUploadProof:
		return "upload_proof"
	case StageConfirmation:
		return "confirmation"
	default:
		return "unknown"
	}
}

// State is one of ReviewState, PaymentMethodState, UploadProofState,
// VerifyPaymentState or ConfirmationState. Each variant carries only the data
// that exists at that point of the flow.
type State interface {
	Stage() Stage
	isState()
}

// ReviewState shows the draft. Moving on needs no remote call.
type ReviewState struct{}

// PaymentMethodState waits for a payment method; moving on creates the
// remote transaction.
type PaymentMethodState struct {
	PaymentMethodID string
}

// UploadProofState holds the created transaction and waits for a proof image.
// UploadedURL is set once the image is stored remotely but not yet attached,
// so a retry only repeats the attach call.
type UploadProofState struct {
	Transaction domain.TransactionRef
	Image       *domain.Image
	UploadedURL string
}

// VerifyPaymentState is reached once the proof is attached. Moving on asks the
// remote API to mark the transaction paid. It is displayed as the upload step.
type VerifyPaymentState struct {
	Transaction domain.TransactionRef
	ProofURL    string
}

// ConfirmationState is terminal and display-only.
type ConfirmationState struct {
	Transaction domain.TransactionRef
	ProofURL    string
	ConfirmedAt time.Time
}

func (ReviewState) Stage() Stage        { return StageReview }
func (PaymentMethodState) Stage() Stage { return StagePaymentMethod }
func (UploadProofState) Stage() Stage   { return StageUploadProof }
func (VerifyPaymentState) Stage() Stage { return StageUploadProof }
func (ConfirmationState) Stage() Stage  { return StageConfirmation }

func (ReviewState) isState()        {}
func (PaymentMethodState) isState() {}
func (UploadProofState) isState()   {}
func (VerifyPaymentState) isState() {}
func (ConfirmationState) isState()  {}

func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
