package repository

import (
	"context"
	"time"

	"github.com/fjod/go_travel/internal/checkout"
	"github.com/fjod/go_travel/pkg/logger"
	"github.com/sirupsen/logrus"
)

// Journal records checkout events in the repository. It implements
// checkout.Observer.
type Journal struct {
	repo    JournalRepository
	log     *logger.Logger
	timeout time.Duration
}

func NewJournal(repo JournalRepository, log *logger.Logger, timeout time.Duration) *Journal {
	return &Journal{repo: repo, log: log, timeout: timeout}
}

func (j *Journal) Observe(ctx context.Context, e checkout.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), j.timeout)
	defer cancel()

	var err error
	switch e.Kind {
	case checkout.EventTransactionCreated:
		err = j.repo.RecordCreated(ctx, &Entry{
			TransactionID:   e.TransactionID,
			CheckoutID:      e.CheckoutID,
			UserID:          e.UserID,
			PaymentMethodID: e.PaymentMethodID,
			CartIDs:         e.CartIDs,
		})
	case checkout.EventProofAttached:
		err = j.repo.MarkProofAttached(ctx, e.TransactionID, e.ProofURL)
	case checkout.EventPaymentConfirmed:
		err = j.repo.MarkConfirmed(ctx, e.TransactionID)
	case checkout.EventAbandoned:
		err = j.repo.MarkAbandoned(ctx, e.CheckoutID)
	case checkout.EventFinished:
		err = j.reportOrphans(ctx, e)
	default:
		return
	}

	if err != nil {
		j.log.Ctx(ctx).WithError(err).WithFields(logrus.Fields{
			"checkout_id":    e.CheckoutID,
			"transaction_id": e.TransactionID,
			"event":          e.Kind,
		}).Error("journal write failed")
	}
}

// reportOrphans warns about transactions a finished checkout superseded. They
// stay pending on the remote until they expire.
func (j *Journal) reportOrphans(ctx context.Context, e checkout.Event) error {
	entries, err := j.repo.ListByCheckout(ctx, e.CheckoutID)
	if err != nil {
		return err
	}

	var orphans []string
	for _, entry := range entries {
		if entry.State == StateOrphaned {
			orphans = append(orphans, entry.TransactionID)
		}
	}
	if len(orphans) > 0 {
		j.log.Ctx(ctx).WithFields(logrus.Fields{
			"checkout_id":    e.CheckoutID,
			"transaction_id": e.TransactionID,
			"orphaned":       orphans,
		}).Warn("checkout finished with superseded transactions")
	}
	return nil
}
