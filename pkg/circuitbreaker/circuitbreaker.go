// Package circuitbreaker wraps sony/gobreaker with the defaults used for calls
// to the remote commerce API.
package circuitbreaker

import (
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
)

var (
	ErrOpen            = gobreaker.ErrOpenState
	ErrTooManyRequests = gobreaker.ErrTooManyRequests
)

type Config struct {
	// MaxRequests allowed through while half-open.
	MaxRequests uint32
	// Interval after which closed-state counts are cleared. Zero never clears.
	Interval time.Duration
	// Timeout spent open before probing again.
	Timeout time.Duration
	// ConsecutiveFailures that trip the breaker.
	ConsecutiveFailures uint32
	// IsSuccessful classifies errors that should not count as failures,
	// e.g. 4xx answers from a healthy upstream. Nil counts every error.
	IsSuccessful func(err error) bool
	// OnStateChange is called on every transition.
	OnStateChange func(name string, from, to string)
}

func DefaultConfig() Config {
	return Config{
		MaxRequests:         1,
		Interval:            time.Minute,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 5,
	}
}

type Breaker struct {
	cb *gobreaker.CircuitBreaker[any]
}

func New(name string, cfg Config) *Breaker {
	threshold := cfg.ConsecutiveFailures
	if threshold == 0 {
		threshold = DefaultConfig().ConsecutiveFailures
	}

	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: cfg.IsSuccessful,
	}
	if cfg.OnStateChange != nil {
		st.OnStateChange = func(name string, from, to gobreaker.State) {
			cfg.OnStateChange(name, from.String(), to.String())
		}
	}

	return &Breaker{cb: gobreaker.NewCircuitBreaker[any](st)}
}

// State reports "closed", "half-open" or "open".
func (b *Breaker) State() string {
	return b.cb.State().String()
}

// Execute runs fn through the breaker. A nil breaker runs fn directly.
func Execute[T any](b *Breaker, fn func() (T, error)) (T, error) {
	if b == nil {
		return fn()
	}

	v, err := b.cb.Execute(func() (any, error) {
		res, err := fn()
		return res, err
	})
	if err != nil {
		var zero T
		if res, ok := v.(T); ok {
			return res, err
		}
		return zero, err
	}

	res, _ := v.(T)
	return res, nil
}

// IsOpen reports whether err was produced by a rejecting breaker.
func IsOpen(err error) bool {
	return errors.Is(err, ErrOpen) || errors.Is(err, ErrTooManyRequests)
}
