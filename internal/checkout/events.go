package checkout

import (
	"context"
	"time"

	"github.com/fjod/go_travel/pkg/logger"
	"github.com/sirupsen/logrus"
)

type EventKind string

const (
	EventStarted            EventKind = "checkout.started"
	EventTransactionCreated EventKind = "transaction.created"
	EventTransactionReused  EventKind = "transaction.reused"
	EventProofUploaded      EventKind = "proof.uploaded"
	EventProofAttached      EventKind = "proof.attached"
	EventPaymentConfirmed   EventKind = "payment.confirmed"
	EventStageFailed        EventKind = "stage.failed"
	EventBack               EventKind = "checkout.back"
	EventFinished           EventKind = "checkout.finished"
	EventAbandoned          EventKind = "checkout.abandoned"
)

type Event struct {
	Kind            EventKind `json:"kind"`
	CheckoutID      string    `json:"checkoutId"`
	UserID          string    `json:"userId,omitempty"`
	Stage           Stage     `json:"stage"`
	TransactionID   string    `json:"transactionId,omitempty"`
	PaymentMethodID string    `json:"paymentMethodId,omitempty"`
	CartIDs         []string  `json:"cartIds,omitempty"`
	ProofURL        string    `json:"proofUrl,omitempty"`
	ErrorKind       string    `json:"errorKind,omitempty"`
	Message         string    `json:"message,omitempty"`
	At              time.Time `json:"at"`
}

// Observer is told about every checkout event. Implementations must not call
// back into the sequencer.
type Observer interface {
	Observe(ctx context.Context, e Event)
}

type ObserverFunc func(ctx context.Context, e Event)

func (f ObserverFunc) Observe(ctx context.Context, e Event) {
	f(ctx, e)
}

// Observers fans an event out in order.
type Observers []Observer

func (o Observers) Observe(ctx context.Context, e Event) {
	for _, obs := range o {
		if obs != nil {
			obs.Observe(ctx, e)
		}
	}
}

// LogObserver writes one log line per event.
func LogObserver(log *logger.Logger) Observer {
	return ObserverFunc(func(ctx context.Context, e Event) {
		entry := log.Ctx(ctx).WithFields(logrus.Fields{
			"checkout_id":    e.CheckoutID,
			"event":          e.Kind,
			"stage":          e.Stage.String(),
			"transaction_id": e.TransactionID,
		})
		if e.Kind == EventStageFailed {
			entry.WithField("error_kind", e.ErrorKind).Warn(e.Message)
			return
		}
		entry.Info("checkout event")
	})
}
