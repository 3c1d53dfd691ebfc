package orchestrate

import (
	"context"

	"golang.org/x/sync/errgroup"

	"traitsync/internal/profile"
)

// liveBatchConcurrency bounds how many live events process together. Live
// traffic is not rate limited, only fanned out.
const liveBatchConcurrency = 10

// HandleBatch processes a batch of live events concurrently. Events are
// independent; ordering between profiles is neither guaranteed nor needed.
// Provider failures are absorbed per event inside HandleEvent, so the only
// errors that surface here are infrastructure ones.
func (s *Service) HandleBatch(ctx context.Context, events []*profile.Event) ([]*Outcome, error) {
	outcomes := make([]*Outcome, len(events))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(liveBatchConcurrency)
	for i, ev := range events {
		g.Go(func() error {
			outcome, err := s.HandleEvent(ctx, ev)
			if err != nil {
				return err
			}
			outcomes[i] = outcome
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// ReplayBatch processes a historical backfill through the tenant's bulk
// scheduler, respecting the provider rate limit instead of dispatching
// immediately.
func (s *Service) ReplayBatch(ctx context.Context, scheduler *Scheduler, events []*profile.Event) ([]*Outcome, error) {
	outcomes := make([]*Outcome, len(events))

	g, ctx := errgroup.WithContext(ctx)
	for i, ev := range events {
		g.Go(func() error {
			return scheduler.Submit(ctx, ev.Tenant, func(ctx context.Context) error {
				outcome, err := s.HandleEvent(ctx, ev)
				if err != nil {
					return err
				}
				outcomes[i] = outcome
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}
