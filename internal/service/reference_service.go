package service

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/go_travel/internal/cache"
	"github.com/fjod/go_travel/internal/domain"
	"github.com/fjod/go_travel/pkg/logger"
	"golang.org/x/sync/singleflight"
)

// ReferenceSource serves the read-only catalogue data of the remote API.
type ReferenceSource interface {
	PaymentMethods(ctx context.Context) ([]domain.PaymentMethod, error)
	Activities(ctx context.Context) ([]domain.Activity, error)
	Activity(ctx context.Context, id string) (domain.Activity, error)
	Categories(ctx context.Context) ([]domain.Category, error)
	Promos(ctx context.Context) ([]domain.Promo, error)
}

type ReferenceCache interface {
	Get(ctx context.Context, key string, out any) error
	Set(ctx context.Context, key string, v any) error
}

// fetchTimeout bounds a shared fetch, which no longer follows any single
// caller's context.
const fetchTimeout = 10 * time.Second

// ReferenceService reads reference data through the cache. Concurrent misses
// for the same key share one remote call.
type ReferenceService struct {
	source       ReferenceSource
	cache        ReferenceCache
	log          *logger.Logger
	sfg          singleflight.Group
	fetchTimeout time.Duration
}

func NewReferenceService(source ReferenceSource, cache ReferenceCache, log *logger.Logger) *ReferenceService {
	return &ReferenceService{
		source:       source,
		cache:        cache,
		log:          log,
		fetchTimeout: fetchTimeout,
	}
}

func (s *ReferenceService) PaymentMethods(ctx context.Context) ([]domain.PaymentMethod, error) {
	return cached(ctx, s, "payment-methods", s.source.PaymentMethods)
}

func (s *ReferenceService) Activities(ctx context.Context) ([]domain.Activity, error) {
	return cached(ctx, s, "activities", s.source.Activities)
}

func (s *ReferenceService) Activity(ctx context.Context, id string) (domain.Activity, error) {
	return cached(ctx, s, "activity:"+id, func(ctx context.Context) (domain.Activity, error) {
		return s.source.Activity(ctx, id)
	})
}

func (s *ReferenceService) Categories(ctx context.Context) ([]domain.Category, error) {
	return cached(ctx, s, "categories", s.source.Categories)
}

func (s *ReferenceService) Promos(ctx context.Context) ([]domain.Promo, error) {
	return cached(ctx, s, "promos", s.source.Promos)
}

// PaymentMethod finds one method by id.
func (s *ReferenceService) PaymentMethod(ctx context.Context, id string) (domain.PaymentMethod, bool, error) {
	methods, err := s.PaymentMethods(ctx)
	if err != nil {
		return domain.PaymentMethod{}, false, err
	}
	for _, m := range methods {
		if m.ID == id {
			return m, true, nil
		}
	}
	return domain.PaymentMethod{}, false, nil
}

// cached runs one fetch per key at a time. The fetch is detached from the
// caller that started it so a cancelled request does not fail the callers
// waiting on the same key; each caller still stops waiting on its own ctx.
func cached[T any](ctx context.Context, s *ReferenceService, key string, fetch func(context.Context) (T, error)) (T, error) {
	ch := s.sfg.DoChan(key, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout)
		defer cancel()

		if s.cache == nil {
			out, err := fetch(ctx)
			return out, err
		}

		var out T
		err := s.cache.Get(ctx, key, &out)
		if err == nil {
			return out, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.Ctx(ctx).WithError(err).WithField("key", key).Warn("reference cache get failed")
		}

		out, err = fetch(ctx)
		if err != nil {
			return out, err
		}

		go func() {
			setCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if errSet := s.cache.Set(setCtx, key, out); errSet != nil {
				s.log.Ctx(setCtx).WithError(errSet).WithField("key", key).Warn("reference cache set failed")
			}
		}()

		return out, nil
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}
