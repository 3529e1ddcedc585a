package resilience

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"

	"github.com/sells-group/outreach-cli/internal/model"
)

// calendarBusy reports its own retryability, as collaborator SDK errors do.
type calendarBusy struct{ retry bool }

func (e calendarBusy) Error() string   { return "calendar: free/busy lookup failed" }
func (e calendarBusy) Transient() bool { return e.retry }

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "enrichment throttled", err: NewTransientError(errors.New("enrichment: 429"), 429), want: true},
		{name: "wrapped by eris", err: eris.Wrap(NewTransientError(errors.New("salesforce: 503"), 503), "crm: upsert lead"), want: true},
		{name: "collaborator error around transient", err: model.NewCollaboratorError("dialer", "dial", NewTransientError(errors.New("voice: 502"), 502)), want: true},
		{name: "collaborator error around permanent", err: model.NewCollaboratorError("crm", "upsert_lead", errors.New("REQUIRED_FIELD_MISSING: LastName")), want: false},
		{name: "self-reported retryable", err: fmt.Errorf("booking: %w", calendarBusy{retry: true}), want: true},
		{name: "self-reported permanent", err: calendarBusy{retry: false}, want: false},
		{name: "smtp connection reset", err: fmt.Errorf("smtp: write: %w", syscall.ECONNRESET), want: true},
		{name: "webhook refused", err: fmt.Errorf("notify: dial: %w", syscall.ECONNREFUSED), want: true},
		{name: "dns timeout", err: &net.DNSError{IsTimeout: true, Err: "timeout", Name: "api.notion.com"}, want: true},
		{name: "string-only tls timeout", err: errors.New("salesforce: TLS handshake timeout"), want: true},
		{name: "validation failure", err: &model.ValidationError{Entity: "reply", Fields: []model.FieldError{{Field: "channel", Reason: "oneof"}}}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestIsTransient_NetworkPatterns(t *testing.T) {
	for _, p := range transientPatterns {
		assert.True(t, IsTransient(errors.New("enrichment: "+strings.ToUpper(p))), p)
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), code)
	}
	for _, code := range []int{200, 204, 400, 401, 403, 404, 409, 422} {
		assert.False(t, IsTransientHTTPStatus(code), code)
	}
}

func TestTransientError(t *testing.T) {
	root := errors.New("webhook: 503 service unavailable")
	te := NewTransientError(root, 503)

	assert.ErrorIs(t, te, root)
	assert.Equal(t, root.Error(), te.Error())
	assert.Equal(t, 503, te.StatusCode)
	assert.True(t, te.Transient())
}

func TestHTTPStatusError_TruncatesBody(t *testing.T) {
	err := HTTPStatusError("webhook", 500, strings.Repeat("x", 1000)+"  ")
	assert.True(t, IsTransient(err))
	assert.Len(t, err.Error(), len("webhook: unexpected status 500: ")+256)
}
