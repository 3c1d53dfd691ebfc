package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// HTTPClient talks to the Augur API. One instance per tenant, scoped by API
// key. Timeouts and cancellation are the caller's responsibility via ctx;
// the engine only classifies what comes back.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPFactory returns a Factory producing clients against baseURL.
func NewHTTPFactory(baseURL string, client *http.Client) Factory {
	if client == nil {
		client = http.DefaultClient
	}
	return func(apiKey string) Client {
		return &HTTPClient{baseURL: baseURL, apiKey: apiKey, client: client}
	}
}

func (c *HTTPClient) Enrich(ctx context.Context, req EnrichRequest) (*PersonCompany, error) {
	var out PersonCompany
	if err := c.post(ctx, "/v2/people/enrich", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Reveal(ctx context.Context, req RevealRequest) (*Company, error) {
	var out struct {
		Company *Company `json:"company"`
	}
	if err := c.post(ctx, "/v1/companies/reveal", req, &out); err != nil {
		return nil, err
	}
	if out.Company == nil {
		return nil, NewError(OutcomeNotFound, "no_company", nil)
	}
	return out.Company, nil
}

func (c *HTTPClient) Discover(ctx context.Context, q DiscoverQuery) ([]Company, error) {
	var out struct {
		Results []Company `json:"results"`
	}
	if err := c.post(ctx, "/v1/companies/search", q, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

func (c *HTTPClient) Prospect(ctx context.Context, q ProspectQuery) ([]Contact, error) {
	var out struct {
		Results []Contact `json:"results"`
	}
	if err := c.post(ctx, "/v1/people/search", q, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, body, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return NewError(OutcomeTransport, "encode", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return NewError(OutcomeTransport, "request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return NewError(OutcomeTransport, "network", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return classifyResponse(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return NewError(OutcomeTransport, "decode", err)
	}
	return nil
}

func classifyResponse(resp *http.Response) error {
	var payload struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	_ = json.Unmarshal(raw, &payload)

	errType := payload.Error.Type
	cause := fmt.Errorf("status %d: %s", resp.StatusCode, payload.Error.Message)

	switch resp.StatusCode {
	case http.StatusAccepted:
		return NewError(OutcomeQueued, errType, nil)
	case http.StatusNotFound:
		return NewError(OutcomeNotFound, errType, nil)
	case http.StatusUnprocessableEntity:
		return NewError(OutcomeValidation, errType, cause)
	case http.StatusTooManyRequests, http.StatusPaymentRequired:
		return NewError(OutcomeRateLimited, errType, cause)
	default:
		return NewError(OutcomeTransport, errType, cause)
	}
}
