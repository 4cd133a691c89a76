package validation

import (
	"strings"
	"testing"

	"contact-gateway/model"
)

func validInput() model.FormInput {
	return model.FormInput{
		Name:    "Jane Doe",
		Email:   "jane@example.com",
		Subject: "Project inquiry",
		Message: "I would like to talk about a potential collaboration.",
	}
}

func TestValidateFormAccepts(t *testing.T) {
	v := New()

	inputs := []model.FormInput{
		validInput(),
		{Name: "O'Brien-Smith", Email: "a@b.co", Subject: "Hello", Message: strings.Repeat("x", 10)},
		{Name: "Al", Email: "user.name+tag@sub.domain.org", Subject: strings.Repeat("s", 100), Message: strings.Repeat("m", 1000)},
	}

	for _, input := range inputs {
		if errs := v.ValidateForm(input); !errs.Valid() {
			t.Errorf("expected %q to validate, got %v", input.Name, errs)
		}
	}
}

func TestValidateFormRequired(t *testing.T) {
	v := New()

	errs := v.ValidateForm(model.FormInput{})
	for _, field := range []string{"name", "email", "subject", "message"} {
		if errs[field] != "This field is required" {
			t.Errorf("field %q: got %q", field, errs[field])
		}
	}
}

func TestValidateFormEmail(t *testing.T) {
	v := New()

	rejected := []string{
		"plainaddress",
		"missing-at.example.com",
		"no-domain@",
		"@no-local.com",
		"no-tld@domain",
		"spaces in@local.com",
		"two@@ats.com",
	}
	for _, email := range rejected {
		input := validInput()
		input.Email = email
		errs := v.ValidateForm(input)
		if errs["email"] != "Invalid email format" {
			t.Errorf("email %q: expected rejection, got %v", email, errs["email"])
		}
	}

	// 254 characters is the ceiling.
	long := strings.Repeat("a", 250) + "@b.co"
	input := validInput()
	input.Email = long
	if errs := v.ValidateForm(input); errs["email"] == "" {
		t.Error("expected an over-length email to be rejected")
	}
}

func TestValidateFormName(t *testing.T) {
	v := New()

	cases := []struct {
		name    string
		wantErr string
	}{
		{"J", "Must be at least 2 characters"},
		{strings.Repeat("a", 51), "Must be no more than 50 characters"},
		{"Jane123", "Name can only contain letters, spaces, hyphens, and apostrophes"},
		{"Jane_Doe", "Name can only contain letters, spaces, hyphens, and apostrophes"},
	}
	for _, tc := range cases {
		input := validInput()
		input.Name = tc.name
		errs := v.ValidateForm(input)
		if errs["name"] != tc.wantErr {
			t.Errorf("name %q: got %q, want %q", tc.name, errs["name"], tc.wantErr)
		}
	}
}

func TestValidateFormLengthBounds(t *testing.T) {
	v := New()

	input := validInput()
	input.Subject = "shrt" // 4 < 5
	input.Message = strings.Repeat("m", 9)
	errs := v.ValidateForm(input)
	if errs["subject"] != "Must be at least 5 characters" {
		t.Errorf("subject: got %q", errs["subject"])
	}
	if errs["message"] != "Must be at least 10 characters" {
		t.Errorf("message: got %q", errs["message"])
	}

	input = validInput()
	input.Subject = strings.Repeat("s", 101)
	input.Message = strings.Repeat("m", 1001)
	errs = v.ValidateForm(input)
	if errs["subject"] != "Must be no more than 100 characters" {
		t.Errorf("subject: got %q", errs["subject"])
	}
	if errs["message"] != "Must be no more than 1000 characters" {
		t.Errorf("message: got %q", errs["message"])
	}
}

func TestSanitize(t *testing.T) {
	v := New()

	input := model.FormInput{
		Name:    "  Jane Doe  ",
		Email:   "\tjane@example.com\n",
		Subject: "Hello <script>alert('x')</script>",
		Message: "<b>bold</b> text with <a href=\"http://evil\">link</a>",
	}

	out := v.Sanitize(input)
	if out.Name != "Jane Doe" {
		t.Errorf("name: got %q", out.Name)
	}
	if out.Email != "jane@example.com" {
		t.Errorf("email: got %q", out.Email)
	}
	if strings.Contains(out.Subject, "<") {
		t.Errorf("subject still contains markup: %q", out.Subject)
	}
	if strings.Contains(out.Message, "<") {
		t.Errorf("message still contains markup: %q", out.Message)
	}

	// The caller's copy stays untouched.
	if input.Name != "  Jane Doe  " {
		t.Error("input must not be mutated")
	}
}

func TestSanitizePreservesApostrophes(t *testing.T) {
	v := New()

	input := validInput()
	input.Name = "O'Brien-Smith"

	out := v.Sanitize(input)
	if out.Name != "O'Brien-Smith" {
		t.Fatalf("got %q", out.Name)
	}
	if errs := v.ValidateForm(out); !errs.Valid() {
		t.Errorf("sanitized name should still validate, got %v", errs)
	}
}
