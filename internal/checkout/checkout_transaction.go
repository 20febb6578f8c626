package checkout

import (
	"context"

	"github.com/fjod/go_travel/internal/domain"
)

func (s *Sequencer) createTransaction(ctx context.Context, st PaymentMethodState) (State, error) {
	if st.PaymentMethodID == "" {
		return st, validationError(StagePaymentMethod, "Please choose a payment method.")
	}

	if tx, ok := s.reusableTransaction(st.PaymentMethodID); ok {
		s.emit(ctx, Event{
			Kind:            EventTransactionReused,
			Stage:           StagePaymentMethod,
			TransactionID:   tx.ID,
			PaymentMethodID: tx.PaymentMethodID,
		})
		return UploadProofState{Transaction: tx}, nil
	}

	cartIDs := s.cartIDs()
	if len(cartIDs) == 0 {
		return st, draftMissingError()
	}

	tx, err := s.api.CreateTransaction(ctx, st.PaymentMethodID, cartIDs)
	if err != nil {
		return st, remoteError(StagePaymentMethod, err)
	}
	if tx.PaymentMethodID == "" {
		tx.PaymentMethodID = st.PaymentMethodID
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = s.now()
	}

	s.mu.Lock()
	s.lastTx = &tx
	s.created++
	s.mu.Unlock()

	s.emit(ctx, Event{
		Kind:            EventTransactionCreated,
		Stage:           StagePaymentMethod,
		TransactionID:   tx.ID,
		PaymentMethodID: tx.PaymentMethodID,
		CartIDs:         cartIDs,
	})
	return UploadProofState{Transaction: tx}, nil
}

func (s *Sequencer) reusableTransaction(paymentMethodID string) (domain.TransactionRef, bool) {
	if s.policy != BackReusesTransaction {
		return domain.TransactionRef{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastTx == nil || s.lastTx.PaymentMethodID != paymentMethodID {
		return domain.TransactionRef{}, false
	}
	return *s.lastTx, true
}
