package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrClassificationAmbiguous marks a reply that matched no intent markers.
// It is never fatal; the reply is routed as Neutral.
var ErrClassificationAmbiguous = eris.New("classification ambiguous")

// FieldError is one failed validation rule.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError rejects malformed input before it enters the pipeline.
type ValidationError struct {
	Entity string       `json:"entity"`
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" "+f.Reason)
	}
	return fmt.Sprintf("invalid %s: %s", e.Entity, strings.Join(parts, "; "))
}

// CollaboratorError wraps a failure from an external collaborator.
type CollaboratorError struct {
	Collaborator string
	Op           string
	Err          error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Collaborator, e.Op, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

// Transient reports whether the wrapped failure is marked retryable.
func (e *CollaboratorError) Transient() bool {
	var t interface{ Transient() bool }
	return errors.As(e.Err, &t) && t.Transient()
}

// NewCollaboratorError wraps err as a collaborator failure. A nil err returns nil.
func NewCollaboratorError(collaborator, op string, err error) error {
	if err == nil {
		return nil
	}
	return &CollaboratorError{Collaborator: collaborator, Op: op, Err: err}
}

// NoAvailabilityError reports that no calendar slot matched a booking window.
type NoAvailabilityError struct {
	Window WindowSpec
}

func (e *NoAvailabilityError) Error() string {
	return fmt.Sprintf("no available time slots between %s and %s",
		e.Window.Start.Format("2006-01-02 15:04"), e.Window.End.Format("2006-01-02 15:04"))
}

// IsValidation reports whether err contains a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsCollaborator reports whether err contains a CollaboratorError.
func IsCollaborator(err error) bool {
	var ce *CollaboratorError
	return errors.As(err, &ce)
}

// IsNoAvailability reports whether err contains a NoAvailabilityError.
func IsNoAvailability(err error) bool {
	var ne *NoAvailabilityError
	return errors.As(err, &ne)
}
