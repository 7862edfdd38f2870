package accounts

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jschmidtnj/ewaab-sub000/pkg/observability"
)

// Sweeper periodically deletes expired visitor codes. Tokens are stateless
// and self-expiring so they need no cleanup; the code records themselves are
// the only garbage.
type Sweeper struct {
	store  *Store
	logger *observability.Logger
	cron   *cron.Cron
}

// NewSweeper creates a sweeper running on the given cron schedule
// (e.g. "@hourly")
func NewSweeper(store *Store, logger *observability.Logger, schedule string) (*Sweeper, error) {
	s := &Sweeper{
		store:  store,
		logger: logger,
		cron:   cron.New(),
	}

	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins scheduled sweeping in a background goroutine
func (s *Sweeper) Start() {
	s.cron.Start()
	s.logger.Info("Visitor code sweeper started")
}

// Stop halts scheduling and waits for a running sweep to finish
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Visitor code sweeper stopped")
}

func (s *Sweeper) sweep() {
	// cron runs this on its own goroutine; a panic here must not take the
	// whole process down
	defer observability.RecoverPanic(s.logger, "visitor code sweep")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	swept, err := s.store.DeleteExpiredVisitorCodes(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Visitor code sweep failed")
		return
	}
	if swept > 0 {
		s.logger.WithField("swept", swept).Info("Deleted expired visitor codes")
	}
}
