package checkout

func (s *Sequencer) review(st ReviewState) (State, error) {
	if s.Draft().Empty() {
		return st, draftMissingError()
	}

	next := PaymentMethodState{}
	s.mu.Lock()
	if s.lastTx != nil {
		next.PaymentMethodID = s.lastTx.PaymentMethodID
	}
	s.mu.Unlock()
	return next, nil
}
