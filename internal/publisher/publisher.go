// Package publisher streams checkout events to Kafka.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fjod/go_travel/internal/checkout"
	"github.com/fjod/go_travel/pkg/logger"
	"github.com/segmentio/kafka-go"
)

const (
	DefaultTopic  = "checkout-events"
	bufferSize    = 256
	maxBatch      = 50
	flushInterval = time.Second
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher queues checkout events and writes them to Kafka from Run. Observe
// never blocks the checkout flow: when the queue is full the event is dropped
// and logged.
type Publisher struct {
	writer  messageWriter
	events  chan checkout.Event
	log     *logger.Logger
	timeout time.Duration
}

// ParseBrokers splits a comma separated broker list.
func ParseBrokers(csv string) []string {
	var brokers []string
	for _, b := range strings.Split(csv, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func NewPublisher(log *logger.Logger, topic string, brokers ...string) *Publisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return newPublisher(w, log)
}

func newPublisher(w messageWriter, log *logger.Logger) *Publisher {
	return &Publisher{
		writer:  w,
		events:  make(chan checkout.Event, bufferSize),
		log:     log,
		timeout: 5 * time.Second,
	}
}

func (p *Publisher) Observe(ctx context.Context, e checkout.Event) {
	select {
	case p.events <- e:
	default:
		p.log.Ctx(ctx).WithField("event", e.Kind).WithField("checkout_id", e.CheckoutID).Warn("event queue full, dropping")
	}
}

// Run writes queued events until ctx is done, then flushes what is left.
func (p *Publisher) Run(ctx context.Context) {
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]kafka.Message, 0, maxBatch)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		p.write(batch)
		batch = batch[:0]
	}

	for {
		select {
		case e := <-p.events:
			msg, err := toMessage(e)
			if err != nil {
				p.log.Ctx(ctx).WithError(err).Error("encode checkout event")
				continue
			}
			batch = append(batch, msg)
			if len(batch) >= maxBatch {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-ctx.Done():
			p.drain(&batch)
			flush()
			return
		}
	}
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

func (p *Publisher) drain(batch *[]kafka.Message) {
	for {
		select {
		case e := <-p.events:
			if msg, err := toMessage(e); err == nil {
				*batch = append(*batch, msg)
			}
		default:
			return
		}
	}
}

func (p *Publisher) write(batch []kafka.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, batch...); err != nil {
		p.log.Ctx(ctx).WithError(err).WithField("count", len(batch)).Error("failed to publish checkout events")
	}
}

func toMessage(e checkout.Event) (kafka.Message, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(e.CheckoutID),
		Value: payload,
		Time:  e.At.UTC(),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.Kind)},
		},
	}, nil
}
