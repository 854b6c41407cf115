package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hopekit/targeting/internal/store"
	"github.com/hopekit/targeting/internal/validation"
	"github.com/hopekit/targeting/internal/wire"
)

// ErrNotFound is returned when the server answers 404.
var ErrNotFound = errors.New("not found")

// Client is an HTTP client for the targeting API
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError is a non-2xx answer decoded from the server's error envelope.
type APIError struct {
	StatusCode int
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Fields     map[string]string `json:"fields"`
	RequestID  string            `json:"request_id"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("API error (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("API error (status %d, %s): %s", e.StatusCode, e.Code, e.Message)
}

// Unwrap maps a 404 onto ErrNotFound.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

// ValidationReport is the answer of the validate endpoint.
type ValidationReport struct {
	Valid   bool                               `json:"valid"`
	Errors  map[string]string                  `json:"errors"`
	IDLists map[string]validation.IDListReport `json:"idLists"`
}

// Compiled is the answer of the compile endpoint.
type Compiled struct {
	Definition wire.WireDefinition `json:"definition"`
	Expression json.RawMessage     `json:"expression"`
	Criteria   []json.RawMessage   `json:"criteria"`
}

// CatalogFields is the answer of the fields endpoint.
type CatalogFields struct {
	ETag   string                       `json:"etag"`
	Fields map[string][]json.RawMessage `json:"fields"`
}

type criteriaRequest struct {
	Criteria           []wire.WireCriterion `json:"criteria"`
	PaymentChannelOpen *bool                `json:"paymentChannelOpen,omitempty"`
}

// ListTargetings retrieves the targetings of a programme, or all of them
// when programmeID is empty.
func (c *Client) ListTargetings(ctx context.Context, programmeID string) ([]store.Targeting, error) {
	u, err := url.Parse(c.BaseURL + "/v1/targetings")
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if programmeID != "" {
		q := u.Query()
		q.Set("programmeId", programmeID)
		u.RawQuery = q.Encode()
	}

	var result struct {
		Targetings []store.Targeting `json:"targetings"`
	}
	if err := c.do(ctx, http.MethodGet, u.String(), nil, &result); err != nil {
		return nil, err
	}
	return result.Targetings, nil
}

// GetTargeting retrieves a single targeting by ID
func (c *Client) GetTargeting(ctx context.Context, id string) (*store.Targeting, error) {
	var t store.Targeting
	if err := c.do(ctx, http.MethodGet, c.BaseURL+"/v1/targetings/"+url.PathEscape(id), nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// PushTargeting creates a targeting, or replaces it when params.ID is set.
func (c *Client) PushTargeting(ctx context.Context, params store.UpsertParams) (*store.Targeting, error) {
	method, endpoint := http.MethodPost, c.BaseURL+"/v1/targetings"
	if params.ID != "" {
		method, endpoint = http.MethodPut, endpoint+"/"+url.PathEscape(params.ID)
	}
	var t store.Targeting
	if err := c.do(ctx, method, endpoint, params, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// DeleteTargeting deletes a targeting
func (c *Client) DeleteTargeting(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, c.BaseURL+"/v1/targetings/"+url.PathEscape(id), nil, nil)
}

// ValidateCriteria asks the server for a full validation report.
func (c *Client) ValidateCriteria(ctx context.Context, def wire.WireDefinition, paymentChannelOpen *bool) (*ValidationReport, error) {
	var report ValidationReport
	body := criteriaRequest{Criteria: def.Criteria, PaymentChannelOpen: paymentChannelOpen}
	if err := c.do(ctx, http.MethodPost, c.BaseURL+"/v1/criteria/validate", body, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// CompileCriteria returns the canonical form and JSON Logic of def.
func (c *Client) CompileCriteria(ctx context.Context, def wire.WireDefinition) (*Compiled, error) {
	var out Compiled
	if err := c.do(ctx, http.MethodPost, c.BaseURL+"/v1/criteria/compile", criteriaRequest{Criteria: def.Criteria}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListFields retrieves the field catalog, optionally for one domain.
func (c *Client) ListFields(ctx context.Context, domain string) (*CatalogFields, error) {
	u, err := url.Parse(c.BaseURL + "/v1/catalog/fields")
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if domain != "" {
		q := u.Query()
		q.Set("domain", domain)
		u.RawQuery = q.Encode()
	}
	var out CatalogFields
	if err := c.do(ctx, http.MethodGet, u.String(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		bodyBytes, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(bodyBytes, apiErr) != nil {
			apiErr.Message = string(bytes.TrimSpace(bodyBytes))
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
