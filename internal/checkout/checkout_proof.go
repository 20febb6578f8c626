package checkout

import "context"

// submitProof uploads the image, attaches its URL to the transaction and then
// runs payment confirmation. A stored upload is reused when only the attach
// call failed.
func (s *Sequencer) submitProof(ctx context.Context, st UploadProofState) (State, error) {
	if st.UploadedURL == "" {
		if err := st.Image.Validate(); err != nil {
			return st, validationError(StageUploadProof, "Please choose a proof of payment image.")
		}

		url, err := s.api.UploadImage(ctx, *st.Image)
		if err != nil {
			return st, remoteError(StageUploadProof, err)
		}
		st.UploadedURL = url

		s.emit(ctx, Event{
			Kind:          EventProofUploaded,
			Stage:         StageUploadProof,
			TransactionID: st.Transaction.ID,
			ProofURL:      url,
		})
	}

	if err := s.api.AttachProof(ctx, st.Transaction.ID, st.UploadedURL); err != nil {
		return st, remoteError(StageUploadProof, err)
	}

	s.emit(ctx, Event{
		Kind:          EventProofAttached,
		Stage:         StageUploadProof,
		TransactionID: st.Transaction.ID,
		ProofURL:      st.UploadedURL,
	})

	return s.confirmPayment(ctx, VerifyPaymentState{
		Transaction: st.Transaction,
		ProofURL:    st.UploadedURL,
	})
}
