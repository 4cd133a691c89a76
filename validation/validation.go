package validation

import (
	"fmt"
	"html"
	"reflect"
	"regexp"
	"strings"

	"contact-gateway/model"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
)

var (
	// local@domain.tld; the dot in the domain part is mandatory.
	emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

	// Letters, spaces, hyphens, and apostrophes only.
	personNameRegex = regexp.MustCompile(`^[a-zA-Z\s'-]+$`)
)

// Validator checks contact-form input against the field rules. It is a pure
// function of its input: no network, no I/O.
type Validator struct {
	validate *validator.Validate
	policy   *bluemonday.Policy
}

func New() *Validator {
	v := validator.New()

	// Report fields by their json names so FieldErrors keys match the wire format.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v.RegisterValidation("person_name", func(fl validator.FieldLevel) bool {
		return personNameRegex.MatchString(fl.Field().String())
	})
	v.RegisterValidation("email_address", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		return len(value) <= 254 && emailRegex.MatchString(value)
	})

	return &Validator{
		validate: v,
		policy:   bluemonday.StrictPolicy(),
	}
}

// Sanitize trims and strips markup from every field before validation.
// The sanitized copy is what gets validated and forwarded; the caller's
// input is never mutated.
func (v *Validator) Sanitize(input model.FormInput) model.FormInput {
	return model.FormInput{
		Name:    v.sanitizeField(input.Name),
		Email:   v.sanitizeField(input.Email),
		Subject: v.sanitizeField(input.Subject),
		Message: v.sanitizeField(input.Message),
	}
}

func (v *Validator) sanitizeField(s string) string {
	// The policy entity-escapes the surviving text, which would turn an
	// apostrophe in a name into &#39;. Unescape after the markup is gone.
	return strings.TrimSpace(html.UnescapeString(v.policy.Sanitize(s)))
}

// ValidEmail reports whether a single address passes the email rule.
func (v *Validator) ValidEmail(email string) bool {
	return v.validate.Var(email, "required,email_address") == nil
}

// ValidName reports whether a single name passes the name rules.
func (v *Validator) ValidName(name string) bool {
	return v.validate.Var(name, "required,min=2,max=50,person_name") == nil
}

// ValidateForm applies the field rules and returns one message per invalid
// field. An empty map means the form is valid.
func (v *Validator) ValidateForm(input model.FormInput) model.FieldErrors {
	errs := model.FieldErrors{}

	err := v.validate.Struct(input)
	if err == nil {
		return errs
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		errs["form"] = "Invalid input"
		return errs
	}

	for _, fieldError := range validationErrors {
		field := fieldError.Field()
		if _, seen := errs[field]; seen {
			// first failing rule wins per field
			continue
		}
		errs[field] = messageFor(fieldError)
	}

	return errs
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "min":
		return fmt.Sprintf("Must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("Must be no more than %s characters", fe.Param())
	case "person_name":
		return "Name can only contain letters, spaces, hyphens, and apostrophes"
	case "email_address":
		return "Invalid email format"
	default:
		return "Invalid format"
	}
}
