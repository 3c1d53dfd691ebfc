// Package httptransport is the thin HTTP layer: the provider webhook
// callback, batch replay, and the per-tenant status report. Handlers
// delegate to the orchestrator and settings packages and hold no business
// logic of their own.
package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"traitsync/internal/ingest"
	"traitsync/internal/orchestrate"
	"traitsync/internal/orchestrate/metrics"
	"traitsync/internal/profile"
	"traitsync/internal/provider"
	"traitsync/internal/settings"
	"traitsync/internal/token"
	id "traitsync/pkg/domain"
	dErrors "traitsync/pkg/domain-errors"
	"traitsync/pkg/platform/httputil"
)

// Driver is the part of the orchestrator the transport needs.
type Driver interface {
	CompleteLookup(ctx context.Context, lookup token.Lookup, payload *provider.PersonCompany) error
	ReplayBatch(ctx context.Context, scheduler *orchestrate.Scheduler, events []*profile.Event) ([]*orchestrate.Outcome, error)
}

// Handler wires the connector endpoints.
type Handler struct {
	driver    Driver
	scheduler *orchestrate.Scheduler
	tokens    *token.Service
	settings  settings.Source
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func New(driver Driver, scheduler *orchestrate.Scheduler, tokens *token.Service, source settings.Source, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		driver:    driver,
		scheduler: scheduler,
		tokens:    tokens,
		settings:  source,
		logger:    logger,
		metrics:   m,
	}
}

// Register mounts the connector endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/webhooks/augur", h.HandleWebhook)
	r.Post("/batch", h.HandleBatch)
	r.Get("/status", h.HandleStatus)
}

// webhookRequest is the provider's callback body: the lookup status, what
// kind of payload arrived, and the payload itself.
type webhookRequest struct {
	Status int             `json:"status"`
	Type   string          `json:"type"`
	Body   json.RawMessage `json:"body"`
}

// HandleWebhook completes an asynchronous lookup. The correlation token in
// the query string names the tenant and profile; payloads that are not a
// successful person result are acknowledged and ignored so the provider
// stops retrying them.
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	lookup, err := h.tokens.Validate(r.URL.Query().Get("id"))
	if err != nil {
		h.metrics.IncrementIncomingWebhook("rejected")
		httputil.WriteError(w, err)
		return
	}

	req, err := httputil.Decode[webhookRequest](r)
	if err != nil {
		h.metrics.IncrementIncomingWebhook("rejected")
		httputil.WriteError(w, err)
		return
	}

	if req.Status != http.StatusOK || (req.Type != "person" && req.Type != "person_company") {
		h.metrics.IncrementIncomingWebhook("ignored")
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "ignored"})
		return
	}

	payload, err := decodeWebhookPayload(req.Type, req.Body)
	if err != nil {
		h.metrics.IncrementIncomingWebhook("rejected")
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "malformed webhook payload"))
		return
	}

	if err := h.driver.CompleteLookup(ctx, lookup, payload); err != nil {
		h.logger.ErrorContext(ctx, "webhook completion failed",
			"tenant_id", lookup.Tenant.String(),
			"profile_id", lookup.Profile.String(),
			"error", err,
		)
		h.metrics.IncrementIncomingWebhook("rejected")
		httputil.WriteError(w, err)
		return
	}

	h.metrics.IncrementIncomingWebhook("applied")
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "thanks"})
}

func decodeWebhookPayload(payloadType string, raw json.RawMessage) (*provider.PersonCompany, error) {
	switch payloadType {
	case "person_company":
		var pc provider.PersonCompany
		if err := json.Unmarshal(raw, &pc); err != nil {
			return nil, err
		}
		return &pc, nil
	default:
		var person provider.Person
		if err := json.Unmarshal(raw, &person); err != nil {
			return nil, err
		}
		return &provider.PersonCompany{Person: &person, Company: person.Company}, nil
	}
}

// batchRequest carries a historical replay: raw change-event envelopes in
// the same format the Kafka topic uses.
type batchRequest struct {
	Events []json.RawMessage `json:"events"`
}

// HandleBatch replays a batch of events through the bulk scheduler.
func (h *Handler) HandleBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := httputil.Decode[batchRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if len(req.Events) == 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "no events in batch"))
		return
	}

	events := make([]*profile.Event, 0, len(req.Events))
	for _, raw := range req.Events {
		ev, err := ingest.DecodeEvent(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "malformed event"))
			return
		}
		events = append(events, ev)
	}

	outcomes, err := h.driver.ReplayBatch(ctx, h.scheduler, events)
	if err != nil {
		h.logger.ErrorContext(ctx, "batch replay failed", "error", err)
		httputil.WriteError(w, err)
		return
	}

	results := make([]map[string]string, len(outcomes))
	for i, outcome := range outcomes {
		results[i] = map[string]string{
			"action": outcome.Action,
			"result": outcome.Result,
		}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"handled": len(outcomes),
		"results": results,
	})
}

// HandleStatus reports the tenant's settings health: missing API key, no
// enabled actions, enabled actions without an audience.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	tenantID, err := id.ParseTenantID(r.URL.Query().Get("tenant_id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "missing or malformed tenant_id"))
		return
	}

	cfg, err := h.settings.Get(r.Context(), tenantID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, cfg.Health())
}
