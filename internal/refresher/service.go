package refresher

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"nexthint/internal/domain"
	"nexthint/internal/notify"
	"nexthint/internal/recurrence"
	"nexthint/internal/store"
)

// Service maintains the authoritative next-trigger metadata: it periodically
// recomputes the next fire instant for triggers whose stored value is missing
// or has passed, persists it, and optionally pushes the update to a callback
// URL. The UI-facing resolver defers to the values this loop writes.
type Service struct {
	repo     store.Repository
	resolver *recurrence.Resolver
	hook     *notify.Webhook
	sem      chan struct{}
	stop     chan struct{}
	interval time.Duration
}

func NewService(repo store.Repository, resolver *recurrence.Resolver, hook *notify.Webhook, concurrency int, interval time.Duration) *Service {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Service{
		repo:     repo,
		resolver: resolver,
		hook:     hook,
		sem:      make(chan struct{}, concurrency),
		stop:     make(chan struct{}),
		interval: interval,
	}
}

func (s *Service) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Info().Dur("interval", s.interval).Msg("refresher started")

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.processDue(ctx, now.UTC())
		}
	}
}

func (s *Service) Stop() {
	close(s.stop)
}

func (s *Service) processDue(ctx context.Context, now time.Time) {
	triggers, err := s.repo.ListDue(ctx, now)
	if err != nil {
		log.Error().Err(err).Msg("failed to list due triggers")
		return
	}

	var wg sync.WaitGroup
	for _, trigger := range triggers {
		s.sem <- struct{}{}
		wg.Add(1)
		go func(tr domain.Trigger) {
			defer func() { <-s.sem; wg.Done() }()
			s.refresh(ctx, tr, now)
		}(trigger)
	}
	wg.Wait()
}

func (s *Service) refresh(ctx context.Context, tr domain.Trigger, now time.Time) {
	// No override here: this loop produces the authoritative value.
	var nextPtr *time.Time
	if next, ok := s.resolver.ComputeNext(tr.Rule, "", now); ok {
		v := next.UTC()
		nextPtr = &v
	} else {
		log.Warn().Str("trigger_id", tr.ID).Str("rule_type", string(tr.Rule.Type)).
			Msg("rule does not resolve to a next fire, clearing next trigger")
	}

	if err := s.repo.UpdateNextTrigger(ctx, tr.ID, now, nextPtr); err != nil {
		log.Error().Err(err).Str("trigger_id", tr.ID).Msg("failed to store next trigger")
		return
	}

	if s.hook.Enabled() {
		if err := s.hook.Push(ctx, tr.ID, tr.WorkflowID, nextPtr, now); err != nil {
			log.Warn().Err(err).Str("trigger_id", tr.ID).Msg("next-trigger push failed")
		}
	}

	evt := log.Info().Str("trigger_id", tr.ID).Str("trigger_name", tr.Name)
	if nextPtr != nil {
		evt = evt.Time("next_trigger", *nextPtr)
	}
	evt.Msg("next trigger refreshed")
}
