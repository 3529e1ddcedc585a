// Package enrichment provides a client for a person/company enrichment API.
package enrichment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://api.enrichment.example.com"

// Client enriches a person with company firmographics and social signals.
type Client interface {
	EnrichPerson(ctx context.Context, req PersonRequest) (*PersonResponse, error)
}

// PersonRequest is the request body for POST /v1/person/enrich.
type PersonRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Company   string `json:"company,omitempty"`
	Domain    string `json:"domain,omitempty"`
}

// PersonResponse is the response from POST /v1/person/enrich.
type PersonResponse struct {
	Company      Company `json:"company"`
	Social       Social  `json:"social"`
	BrandQuality int     `json:"brand_quality"`
}

// Company holds firmographic fields.
type Company struct {
	Name          string   `json:"name"`
	Domain        string   `json:"domain"`
	Industry      string   `json:"industry"`
	Employees     int      `json:"employees"`
	AnnualRevenue float64  `json:"annual_revenue"`
	Location      string   `json:"location"`
	Description   string   `json:"description"`
	Technologies  []string `json:"technologies"`
}

// Social holds social-proof fields.
type Social struct {
	LinkedInFollowers int      `json:"linkedin_followers"`
	PressMentions     int      `json:"press_mentions"`
	Awards            []string `json:"awards"`
}

// StatusError is returned for non-200 responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("enrichment: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Transient reports whether the request may succeed if retried.
func (e *StatusError) Transient() bool {
	switch e.StatusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout sets the request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates an enrichment API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 20 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) EnrichPerson(ctx context.Context, req PersonRequest) (*PersonResponse, error) {
	if req.Email == "" && req.Domain == "" {
		return nil, eris.New("enrichment: email or domain is required")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "enrichment: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/person/enrich", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "enrichment: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "enrichment: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "enrichment: read response")
	}

	if resp.StatusCode != http.StatusOK {
		b := strings.TrimSpace(string(respBody))
		if len(b) > 256 {
			b = b[:256]
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: b}
	}

	var result PersonResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "enrichment: unmarshal response")
	}
	return &result, nil
}
