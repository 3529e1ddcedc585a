package enrichment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrichPerson(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantErr       string
		wantTransient bool
		wantIndustry  string
	}{
		{
			name:   "success",
			status: http.StatusOK,
			body: `{
				"company": {"name": "Acme", "industry": "Luxury Retail", "employees": 250, "annual_revenue": 42000000},
				"social": {"linkedin_followers": 12000, "press_mentions": 4, "awards": ["Best in Class"]},
				"brand_quality": 81
			}`,
			wantIndustry: "Luxury Retail",
		},
		{
			name:          "rate_limit",
			status:        http.StatusTooManyRequests,
			body:          `{"error": "rate limit exceeded"}`,
			wantErr:       "unexpected status 429",
			wantTransient: true,
		},
		{
			name:    "not_found",
			status:  http.StatusNotFound,
			body:    `{"error": "no match"}`,
			wantErr: "unexpected status 404",
		},
		{
			name:    "malformed_response",
			status:  http.StatusOK,
			body:    `{invalid json`,
			wantErr: "unmarshal response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/v1/person/enrich", r.URL.Path)
				assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

				var req PersonRequest
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, "jane@acme.com", req.Email)

				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient("test-key", WithBaseURL(srv.URL+"/"))
			resp, err := client.EnrichPerson(context.Background(), PersonRequest{Email: "jane@acme.com", Company: "Acme"})

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, resp)
				var se *StatusError
				if errors.As(err, &se) {
					assert.Equal(t, tt.wantTransient, se.Transient())
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantIndustry, resp.Company.Industry)
			assert.Equal(t, 81, resp.BrandQuality)
			assert.Equal(t, []string{"Best in Class"}, resp.Social.Awards)
		})
	}
}

func TestEnrichPerson_RequiresKey(t *testing.T) {
	_, err := NewClient("k").EnrichPerson(context.Background(), PersonRequest{})
	assert.ErrorContains(t, err, "email or domain is required")
}

func TestEnrichPerson_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient("k", WithBaseURL(srv.URL), WithTimeout(20*time.Millisecond))
	_, err := client.EnrichPerson(context.Background(), PersonRequest{Email: "a@b.com"})
	assert.ErrorContains(t, err, "send request")
}
