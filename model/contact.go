package model

import "time"

// FormInput is one contact-form submission as collected from the client.
// Field tags drive validation; see the validation package for the message
// mapping and the custom person_name rule.
type FormInput struct {
	Name    string `json:"name" validate:"required,min=2,max=50,person_name"`
	Email   string `json:"email" validate:"required,email_address"`
	Subject string `json:"subject" validate:"required,min=5,max=100"`
	Message string `json:"message" validate:"required,min=10,max=1000"`
}

// FieldErrors maps a field name to a human-readable message. An empty map
// means the input is valid.
type FieldErrors map[string]string

// Valid reports whether no field is currently erroring.
func (fe FieldErrors) Valid() bool {
	return len(fe) == 0
}

// SubmitReceipt is returned once the upstream endpoint accepted the message.
type SubmitReceipt struct {
	SubmittedAt time.Time `json:"submittedAt"`
	Message     string    `json:"message,omitempty"`
}

// RateLimitInfo is the introspection view of one fixed-window limiter entry.
type RateLimitInfo struct {
	Allowed    bool          `json:"allowed"`
	Remaining  int           `json:"remaining"`
	ResetAt    time.Time     `json:"resetAt,omitempty"`
	RetryAfter time.Duration `json:"retryAfter,omitempty"`
}
