package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/fjod/go_travel/pkg/logger"
	"github.com/robfig/cron/v3"
)

// Sweeper periodically marks open journal entries older than maxAge as
// abandoned.
type Sweeper struct {
	repo   JournalRepository
	maxAge time.Duration
	log    *logger.Logger
	now    func() time.Time
	cron   *cron.Cron
}

func NewSweeper(repo JournalRepository, spec string, maxAge time.Duration, log *logger.Logger) (*Sweeper, error) {
	s := &Sweeper{
		repo:   repo,
		maxAge: maxAge,
		log:    log,
		now:    time.Now,
		cron:   cron.New(),
	}
	if _, err := s.cron.AddFunc(spec, func() { s.Sweep(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop stops the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Sweeper) Sweep(ctx context.Context) int64 {
	n, err := s.repo.AbandonStale(ctx, s.now().Add(-s.maxAge))
	if err != nil {
		s.log.Ctx(ctx).WithError(err).Error("journal sweep failed")
		return 0
	}
	if n > 0 {
		s.log.Ctx(ctx).WithField("abandoned", n).Info("journal sweep")
	}
	return n
}
