package orchestrate

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"traitsync/internal/orchestrate/metrics"
	id "traitsync/pkg/domain"
)

// Bulk replay pacing. Both exist to stay under the provider's rate limit
// when replaying large batches; live traffic never passes through here.
const (
	bulkConcurrency = 3
	bulkSpacing     = 250 * time.Millisecond
)

// Scheduler owns one bounded submission queue per tenant. It is constructed
// once by the composition root and injected; nothing else holds queue state.
type Scheduler struct {
	mu     sync.Mutex
	queues map[id.TenantID]*tenantQueue

	concurrency int
	spacing     time.Duration
	metrics     *metrics.Metrics
}

type tenantQueue struct {
	slots   chan struct{}
	limiter *rate.Limiter
	pending atomic.Int64
}

type SchedulerOption func(*Scheduler)

func WithSchedulerMetrics(m *metrics.Metrics) SchedulerOption {
	return func(s *Scheduler) { s.metrics = m }
}

// WithPacing overrides the default concurrency and spacing. Tests use it to
// avoid waiting out real dispatch gaps.
func WithPacing(concurrency int, spacing time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		s.concurrency = concurrency
		s.spacing = spacing
	}
}

func NewScheduler(opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		queues:      make(map[id.TenantID]*tenantQueue),
		concurrency: bulkConcurrency,
		spacing:     bulkSpacing,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit runs fn under the tenant's queue: at most the configured number in
// flight, with a minimum gap between dispatches. It blocks until a slot and
// the pacing gap are available or ctx is done.
func (s *Scheduler) Submit(ctx context.Context, tenant id.TenantID, fn func(context.Context) error) error {
	q := s.queue(tenant)

	q.pending.Add(1)
	s.metrics.SetQueueDepth(tenant.String(), int(q.pending.Load()))
	defer func() {
		q.pending.Add(-1)
		s.metrics.SetQueueDepth(tenant.String(), int(q.pending.Load()))
	}()

	select {
	case q.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-q.slots }()

	if err := q.limiter.Wait(ctx); err != nil {
		return err
	}
	return fn(ctx)
}

func (s *Scheduler) queue(tenant id.TenantID) *tenantQueue {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.queues[tenant]
	if !ok {
		q = &tenantQueue{
			slots:   make(chan struct{}, s.concurrency),
			limiter: rate.NewLimiter(rate.Every(s.spacing), 1),
		}
		s.queues[tenant] = q
	}
	return q
}
