// Package validate checks records at stage boundaries and converts failures
// into model.ValidationError.
package validate

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/model"
)

// Validator wraps the go-playground validator with JSON field naming.
type Validator struct {
	v *validator.Validate
}

// New creates a Validator.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return &Validator{v: v}
}

// Struct validates s and returns a *model.ValidationError naming entity on
// failure.
func (val *Validator) Struct(entity string, s any) error {
	err := val.v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return eris.Wrapf(err, "validate: %s", entity)
	}
	ve := &model.ValidationError{Entity: entity}
	for _, fe := range verrs {
		ve.Fields = append(ve.Fields, model.FieldError{
			Field:  trimNamespace(fe.Namespace()),
			Reason: reason(fe),
		})
	}
	return ve
}

// Var validates a single value against a tag.
func (val *Validator) Var(field any, tag string) error {
	return val.v.Var(field, tag)
}

// Profile validates a campaign target profile.
func (val *Validator) Profile(p model.TargetProfile) error {
	return val.Struct("target profile", p)
}

// Contact validates the contact fields of a sourced lead.
func (val *Validator) Contact(c model.Contact) error {
	return val.Struct("contact", c)
}

// Reply validates an inbound reply before it is enqueued.
func (val *Validator) Reply(r model.InboundReply) error {
	if err := val.Struct("reply", r); err != nil {
		return err
	}
	return nil
}

// trimNamespace drops the root struct name: "TargetProfile.industries[0]" -> "industries[0]".
func trimNamespace(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "min":
		return "must have at least " + fe.Param() + " item(s)"
	case "oneof":
		return "must be one of [" + fe.Param() + "]"
	case "gte":
		return "must be >= " + fe.Param()
	case "gtefield":
		return "must be >= " + strings.ToLower(fe.Param())
	default:
		return "failed " + fe.Tag()
	}
}
