package checkout

import (
	"context"

	"github.com/fjod/go_travel/internal/domain"
)

// confirmPayment marks the transaction paid. On failure the proof stays
// attached and only this call is repeated by the next Next.
func (s *Sequencer) confirmPayment(ctx context.Context, st VerifyPaymentState) (State, error) {
	if err := s.api.UpdateTransactionStatus(ctx, st.Transaction.ID, domain.TransactionSuccess); err != nil {
		return st, remoteError(StageUploadProof, err)
	}

	confirmed := ConfirmationState{
		Transaction: st.Transaction,
		ProofURL:    st.ProofURL,
		ConfirmedAt: s.now(),
	}
	s.emit(ctx, Event{
		Kind:          EventPaymentConfirmed,
		Stage:         StageConfirmation,
		TransactionID: st.Transaction.ID,
		ProofURL:      st.ProofURL,
	})
	return confirmed, nil
}
