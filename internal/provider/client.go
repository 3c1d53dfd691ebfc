package provider

//go:generate mockgen -source=client.go -destination=mocks/mocks.go -package=mocks Client

import (
	"context"
	"errors"
	"fmt"
)

// Outcome classifies a provider call's result. The engine branches on this,
// never on raw transport errors.
type Outcome string

const (
	// OutcomeQueued means the provider accepted the lookup and will deliver
	// the result through the webhook later.
	OutcomeQueued Outcome = "queued"
	// OutcomeNotFound means the provider has no record for the input.
	OutcomeNotFound Outcome = "not_found"
	// OutcomeRateLimited means the provider throttled or quota-blocked us.
	OutcomeRateLimited Outcome = "rate_limited"
	// OutcomeValidation means the provider rejected the input itself.
	OutcomeValidation Outcome = "validation_error"
	// OutcomeTransport covers everything else: network failures, 5xx, and
	// unexpected payloads.
	OutcomeTransport Outcome = "transport_error"
)

// Error is a classified provider failure. Type carries the provider's own
// error identifier when it sends one (for example "unknown_ip").
type Error struct {
	Outcome Outcome
	Type    string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("provider %s (%s): %v", e.Outcome, e.Type, e.cause)
	}
	return fmt.Sprintf("provider %s (%s)", e.Outcome, e.Type)
}

func (e *Error) Unwrap() error { return e.cause }

// NewError builds a classified provider error.
func NewError(outcome Outcome, errType string, cause error) *Error {
	return &Error{Outcome: outcome, Type: errType, cause: cause}
}

// OutcomeOf extracts the classified outcome from err; unclassified errors are
// transport failures.
func OutcomeOf(err error) Outcome {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Outcome
	}
	return OutcomeTransport
}

// ErrorType extracts the provider's error identifier, or "".
func ErrorType(err error) string {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Type
	}
	return ""
}

func IsQueued(err error) bool      { return OutcomeOf(err) == OutcomeQueued }
func IsNotFound(err error) bool    { return OutcomeOf(err) == OutcomeNotFound }
func IsRateLimited(err error) bool { return OutcomeOf(err) == OutcomeRateLimited }
func IsValidation(err error) bool  { return OutcomeOf(err) == OutcomeValidation }

// EnrichRequest asks for combined person+company enrichment by email.
type EnrichRequest struct {
	Email      string `json:"email"`
	GivenName  string `json:"given_name,omitempty"`
	FamilyName string `json:"family_name,omitempty"`

	// Stream requests a synchronous response; otherwise the provider queues
	// the lookup and calls WebhookURL with WebhookID for correlation.
	Stream     bool   `json:"stream,omitempty"`
	WebhookID  string `json:"webhook_id,omitempty"`
	WebhookURL string `json:"webhook_url,omitempty"`
}

// RevealRequest asks which company is behind an IP address.
type RevealRequest struct {
	IP string `json:"ip"`
}

// DiscoverQuery searches for companies similar to a seed domain.
type DiscoverQuery struct {
	SimilarTo string `json:"similar"`
	Limit     int    `json:"limit"`
}

// ProspectQuery searches for contacts at a domain. Title is a single title
// bucket; the orchestrator drives one call per configured title.
type ProspectQuery struct {
	Domain      string   `json:"domain"`
	Title       string   `json:"title,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	Seniorities []string `json:"seniorities,omitempty"`
	Cities      []string `json:"cities,omitempty"`
	States      []string `json:"states,omitempty"`
	Countries   []string `json:"countries,omitempty"`
	Limit       int      `json:"limit"`

	// RequireEmail restricts results to contacts with a known email.
	RequireEmail bool `json:"email"`
}

// Client is the provider port. Every call returns either a payload or a
// classified error; the engine never sees raw HTTP.
type Client interface {
	Enrich(ctx context.Context, req EnrichRequest) (*PersonCompany, error)
	Reveal(ctx context.Context, req RevealRequest) (*Company, error)
	Discover(ctx context.Context, q DiscoverQuery) ([]Company, error)
	Prospect(ctx context.Context, q ProspectQuery) ([]Contact, error)
}

// Factory builds a tenant-scoped client from the tenant's API key.
type Factory func(apiKey string) Client
