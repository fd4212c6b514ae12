package anchoring

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/anchord/internal/domain"
)

type SweepOptions struct {
	Interval    time.Duration
	MinAge      time.Duration
	Backoff     time.Duration
	MaxAttempts int
	Batch       int
}

// SweepReport summarizes one sweep pass.
type SweepReport struct {
	Scanned   int `json:"scanned"`
	Retried   int `json:"retried"`
	Deferred  int `json:"deferred"`
	InFlight  int `json:"in_flight"`
	GaveUp    int `json:"gave_up"`
	Confirmed int `json:"confirmed"`
	Failed    int `json:"failed"`
}

type sweepAttempt struct {
	count  int
	next   time.Time
	gaveUp bool
}

// Sweeper re-submits records stuck in pending. Attempt counts live in memory
// only, so a restart grants every record a fresh budget.
type Sweeper struct {
	coord *Coordinator
	opts  SweepOptions
	now   func() time.Time

	mu       sync.Mutex
	attempts map[uuid.UUID]*sweepAttempt

	done     chan struct{}
	stopOnce sync.Once
}

func NewSweeper(coord *Coordinator, opts SweepOptions) *Sweeper {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.Batch <= 0 {
		opts.Batch = 100
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Minute
	}
	return &Sweeper{
		coord:    coord,
		opts:     opts,
		now:      time.Now,
		attempts: make(map[uuid.UUID]*sweepAttempt),
		done:     make(chan struct{}),
	}
}

// Enabled reports whether Start schedules periodic passes.
func (s *Sweeper) Enabled() bool {
	return s.opts.Interval > 0
}

// Start runs RunOnce every Interval until Stop or ctx is done. It is a no-op
// when the sweep is disabled.
func (s *Sweeper) Start(ctx context.Context) {
	if !s.Enabled() {
		log.Info().Msg("anchoring: reconciliation sweep disabled")
		return
	}

	log.Info().Dur("interval", s.opts.Interval).Int("max_attempts", s.opts.MaxAttempts).Msg("anchoring: reconciliation sweep started")

	go func() {
		ticker := time.NewTicker(s.opts.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				report, err := s.RunOnce(ctx)
				if err != nil {
					log.Error().Err(err).Msg("anchoring: sweep failed")
					continue
				}
				if report.Scanned > 0 {
					log.Info().
						Int("scanned", report.Scanned).
						Int("retried", report.Retried).
						Int("in_flight", report.InFlight).
						Int("confirmed", report.Confirmed).
						Int("failed", report.Failed).
						Int("gave_up", report.GaveUp).
						Msg("anchoring: sweep pass")
				}
			}
		}
	}()
}

// Stop signals the sweep loop to exit.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

// RunOnce performs a single pass and waits for the submissions it scheduled.
func (s *Sweeper) RunOnce(ctx context.Context) (SweepReport, error) {
	now := s.now()

	pending, err := s.coord.store.ListPending(ctx, now.Add(-s.opts.MinAge), s.opts.Batch)
	if err != nil {
		return SweepReport{}, fmt.Errorf("anchoring.Sweeper.RunOnce: %w", err)
	}

	report := SweepReport{Scanned: len(pending)}
	if len(pending) < s.opts.Batch {
		s.prune(pending)
	}

	var (
		wg                sync.WaitGroup
		confirmed, failed atomic.Int32
	)
	for _, rec := range pending {
		if s.coord.InFlight(rec.ID) {
			report.InFlight++
			continue
		}

		switch s.claim(rec.ID, now) {
		case claimDeferred:
			report.Deferred++
			continue
		case claimExhausted:
			report.GaveUp++
			log.Warn().Str("record_id", rec.ID.String()).Int("attempts", s.opts.MaxAttempts).Msg("anchoring: sweep gave up on record")
			s.coord.alert(ctx, domain.AlertSweepGaveUp, rec, fmt.Sprintf("still pending after %d attempts", s.opts.MaxAttempts))
			continue
		case claimSkip:
			continue
		case claimRun:
		}

		wg.Add(1)
		scheduled, err := s.coord.dispatch(rec, func(res *domain.SubmitResult) {
			defer wg.Done()
			if res == nil {
				return
			}
			switch res.Outcome {
			case domain.AuditStateConfirmed:
				confirmed.Add(1)
				s.forget(rec.ID)
			case domain.AuditStateFailed:
				failed.Add(1)
				s.forget(rec.ID)
			}
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return report, fmt.Errorf("anchoring.Sweeper.RunOnce: %w", err)
		}
		if !scheduled {
			wg.Done()
			report.InFlight++
			continue
		}
		report.Retried++
	}

	wg.Wait()
	report.Confirmed = int(confirmed.Load())
	report.Failed = int(failed.Load())
	return report, nil
}

type claimResult int

const (
	claimRun claimResult = iota
	claimDeferred
	claimExhausted
	claimSkip
)

// claim decides whether rec may be retried now and records the attempt.
func (s *Sweeper) claim(id uuid.UUID, now time.Time) claimResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.attempts[id]
	if !ok {
		a = &sweepAttempt{}
		s.attempts[id] = a
	}

	switch {
	case a.gaveUp:
		return claimSkip
	case now.Before(a.next):
		return claimDeferred
	case a.count >= s.opts.MaxAttempts:
		a.gaveUp = true
		return claimExhausted
	}

	a.count++
	a.next = now.Add(backoff(s.opts.Backoff, a.count))
	return claimRun
}

func (s *Sweeper) forget(id uuid.UUID) {
	s.mu.Lock()
	delete(s.attempts, id)
	s.mu.Unlock()
}

// prune drops bookkeeping for records that are no longer pending.
func (s *Sweeper) prune(pending []*domain.AuditRecord) {
	live := make(map[uuid.UUID]struct{}, len(pending))
	for _, rec := range pending {
		live[rec.ID] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.attempts {
		if _, ok := live[id]; !ok {
			delete(s.attempts, id)
		}
	}
}

// backoff returns base * 2^(attempt-1).
func backoff(base time.Duration, attempt int) time.Duration {
	return base * time.Duration(math.Pow(2, float64(attempt-1)))
}
