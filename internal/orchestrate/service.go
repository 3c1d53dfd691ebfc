// Package orchestrate drives the enrichment engine: per inbound event it
// evaluates the actions in priority order, executes the first eligible one,
// classifies the outcome, and hands the resulting trait sets to the store.
package orchestrate

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"traitsync/internal/eligibility"
	"traitsync/internal/orchestrate/metrics"
	"traitsync/internal/profile"
	"traitsync/internal/provider"
	"traitsync/internal/reconcile"
	"traitsync/internal/settings"
	"traitsync/internal/token"
)

// Results of handling one event.
const (
	ResultApplied = "applied"
	ResultPending = "pending"
	ResultSkipped = "skipped"
	ResultError   = "error"
)

// Reveal errors the provider raises for IPs it cannot attribute. Expected
// in normal operation, so they are logged at debug instead of error.
var filteredRevealErrors = map[string]struct{}{
	"unknown_ip": {},
}

// Outcome reports what the driver did with one event.
type Outcome struct {
	// Action that ran, empty when every action was skipped.
	Action string
	Result string
	// Reason the executed action stopped short (prospect domain gate,
	// discovery idempotency).
	Reason string
	// SkipReasons collects, per action, why it did not run.
	SkipReasons map[string]string
}

type action struct {
	name     string
	evaluate func(*settings.Settings, *profile.Event, time.Time) eligibility.Decision
	execute  func(context.Context, provider.Client, *settings.Settings, *profile.Event) (*Outcome, error)
}

// Service is the orchestration driver.
type Service struct {
	store      profile.Store
	settings   settings.Source
	clients    provider.Factory
	tokens     *token.Service
	webhookURL string

	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	now     func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithWebhook makes enrichment dispatch asynchronously: the provider posts
// the result back to baseURL with a signed correlation token.
func WithWebhook(tokens *token.Service, baseURL string) Option {
	return func(s *Service) {
		s.tokens = tokens
		s.webhookURL = baseURL
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New constructs the driver.
func New(store profile.Store, source settings.Source, clients provider.Factory, opts ...Option) *Service {
	s := &Service{
		store:    store,
		settings: source,
		clients:  clients,
		logger:   slog.Default(),
		tracer:   otel.Tracer("traitsync/orchestrate"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// actions is the priority-ordered table the driver consumes. Adding an
// action means appending a row.
func (s *Service) actions() []action {
	return []action{
		{reconcile.SourceEnrich, eligibility.ShouldEnrich, s.enrich},
		{reconcile.SourceReveal, eligibility.ShouldReveal, s.reveal},
		{reconcile.SourceDiscover, eligibility.ShouldDiscover, s.discover},
		{reconcile.SourceProspect, eligibility.ShouldProspect, s.prospect},
	}
}

// HandleEvent evaluates the actions in order and executes the first eligible
// one. Provider failures are classified and absorbed here; the returned
// error covers infrastructure failures only (settings, store), so one
// profile's provider trouble never aborts a batch.
func (s *Service) HandleEvent(ctx context.Context, ev *profile.Event) (*Outcome, error) {
	ctx, span := s.tracer.Start(ctx, "orchestrate.HandleEvent",
		trace.WithAttributes(attribute.String("tenant.id", ev.Tenant.String())))
	defer span.End()

	log := s.logger.With(
		slog.String("tenant_id", ev.Tenant.String()),
		slog.String("profile_id", ev.Profile.ID.String()),
	)

	cfg, err := s.settings.Get(ctx, ev.Tenant)
	if err != nil {
		return nil, err
	}

	skips := make(map[string]string, 4)
	if cfg.APIKey == "" {
		for _, act := range s.actions() {
			skips[act.name] = "no api_key set"
		}
		log.Info("outgoing.user.skip", slog.Any("reasons", skips))
		return &Outcome{Result: ResultSkipped, SkipReasons: skips}, nil
	}

	client := s.clients(cfg.APIKey)
	now := s.now()

	for _, act := range s.actions() {
		decision := act.evaluate(cfg, ev, now)
		if !decision.Should {
			skips[act.name] = decision.Reason
			continue
		}

		span.SetAttributes(attribute.String("action", act.name))
		outcome, err := act.execute(ctx, client, cfg, ev)
		if err != nil {
			outcome = s.classifyFailure(ctx, log, act.name, ev, err)
		}
		outcome.Action = act.name
		outcome.SkipReasons = skips
		s.metrics.IncrementOutcome(act.name, outcome.Result)

		switch outcome.Result {
		case ResultApplied, ResultPending:
			log.Info("outgoing.user.success",
				slog.String("action", act.name),
				slog.String("result", outcome.Result))
		case ResultSkipped:
			log.Info("outgoing.user.skip",
				slog.String("action", act.name),
				slog.String("reason", outcome.Reason))
		}
		return outcome, nil
	}

	log.Info("outgoing.user.skip", slog.Any("reasons", skips))
	return &Outcome{Result: ResultSkipped, SkipReasons: skips}, nil
}

// classifyFailure sorts a provider failure into the engine's error taxonomy.
// Validation failures leave the profile unmarked so a later event can retry.
// Queued and not-found answers set the pending marker, which is what holds
// the cooldown window. Rate limits and transport failures write nothing and
// surface in logs only.
func (s *Service) classifyFailure(ctx context.Context, log *slog.Logger, actionName string, ev *profile.Event, err error) *Outcome {
	switch provider.OutcomeOf(err) {
	case provider.OutcomeValidation:
		log.Warn("outgoing.user.error",
			slog.String("action", actionName),
			slog.String("kind", "validation"),
			slog.String("error", err.Error()))
		return &Outcome{Result: ResultError}

	case provider.OutcomeQueued, provider.OutcomeNotFound:
		marker := reconcile.PendingMarker(s.now())
		if _, werr := s.store.WriteProfileTraits(ctx, ev.Tenant, ev.Profile.Ref(), marker); werr != nil {
			log.Error("pending.marker.failed",
				slog.String("action", actionName),
				slog.String("error", werr.Error()))
		}
		return &Outcome{Result: ResultPending}

	case provider.OutcomeRateLimited:
		log.Error("outgoing.user.error",
			slog.String("action", actionName),
			slog.String("kind", "rate_limited"),
			slog.String("error", err.Error()))
		return &Outcome{Result: ResultError}

	default:
		if _, filtered := filteredRevealErrors[provider.ErrorType(err)]; filtered && actionName == reconcile.SourceReveal {
			log.Debug("outgoing.user.error",
				slog.String("action", actionName),
				slog.String("error", err.Error()))
		} else {
			log.Error("outgoing.user.error",
				slog.String("action", actionName),
				slog.String("error", err.Error()))
		}
		return &Outcome{Result: ResultError}
	}
}

func (s *Service) enrich(ctx context.Context, client provider.Client, cfg *settings.Settings, ev *profile.Event) (*Outcome, error) {
	req := provider.EnrichRequest{
		Email:      ev.Profile.Email,
		GivenName:  ev.Profile.FirstName,
		FamilyName: ev.Profile.LastName,
	}
	if s.tokens != nil && s.webhookURL != "" {
		lookup := token.Lookup{Tenant: ev.Tenant, Profile: ev.Profile.ID}
		if ev.Account != nil {
			lookup.RelatedAccount = ev.Account.ID
		}
		signed, err := s.tokens.Generate(lookup)
		if err != nil {
			return nil, err
		}
		req.WebhookID = signed
		req.WebhookURL = s.webhookURL
	}

	started := time.Now()
	pc, err := client.Enrich(ctx, req)
	s.metrics.ObserveProviderLatency(reconcile.SourceEnrich, time.Since(started))
	if err != nil {
		return nil, err
	}

	traits := reconcile.FromEnrichment(pc, s.now())
	if err := s.applyToProfile(ctx, cfg, ev, traits); err != nil {
		return nil, err
	}
	return &Outcome{Result: ResultApplied}, nil
}

func (s *Service) reveal(ctx context.Context, client provider.Client, cfg *settings.Settings, ev *profile.Event) (*Outcome, error) {
	started := time.Now()
	company, err := client.Reveal(ctx, provider.RevealRequest{IP: ev.Profile.LastKnownIP})
	s.metrics.ObserveProviderLatency(reconcile.SourceReveal, time.Since(started))
	if err != nil {
		return nil, err
	}

	traits := reconcile.FromReveal(company, s.now())
	if err := s.applyToProfile(ctx, cfg, ev, traits); err != nil {
		return nil, err
	}
	return &Outcome{Result: ResultApplied}, nil
}

// applyToProfile writes an action's trait set, routing company-group keys to
// the related account when the tenant opted in.
func (s *Service) applyToProfile(ctx context.Context, cfg *settings.Settings, ev *profile.Event, traits profile.TraitSet) error {
	if !cfg.HandleRelatedAccounts {
		_, err := s.store.WriteProfileTraits(ctx, ev.Tenant, ev.Profile.Ref(), traits)
		return err
	}

	person, account, domain := reconcile.Split(traits)
	if _, err := s.store.WriteProfileTraits(ctx, ev.Tenant, ev.Profile.Ref(), person); err != nil {
		return err
	}
	if len(account) == 0 || domain == "" {
		return nil
	}

	ref := profile.AccountRef{Domain: domain}
	if ev.Account != nil {
		ref = ev.Account.Ref()
		if ref.Domain == "" {
			ref.Domain = domain
		}
	}
	_, err := s.store.WriteAccountTraits(ctx, ev.Tenant, ref, account)
	return err
}
