package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"contact-gateway/config"
	"contact-gateway/model"
	"contact-gateway/retry"

	"github.com/rs/zerolog/log"
)

// NetworkError is a transport failure: the endpoint never answered.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ServerError is a non-2xx answer. Message carries the endpoint's own error
// text when its body had one, else a generic fallback.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Message)
}

// payload is the JSON body forwarded to the endpoint.
type payload struct {
	Name              string `json:"name"`
	Email             string `json:"email"`
	Subject           string `json:"subject"`
	Message           string `json:"message"`
	VerificationToken string `json:"verificationToken,omitempty"`
}

// response is the minimal shape of the endpoint's answer.
type response struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Client forwards accepted submissions to the configured form endpoint with
// retry and exponential backoff. Retries are strictly sequential: a given
// submission never has two requests in flight.
type Client struct {
	httpClient *http.Client
	endpoint   string
	attempts   int
	baseDelay  time.Duration
	sleep      retry.Sleeper
}

func NewClient(cfg config.UpstreamConfig) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		endpoint:   cfg.Endpoint,
		attempts:   cfg.RetryAttempts,
		baseDelay:  cfg.RetryBase(),
	}
}

// WithSleeper overrides the backoff sleeper, for tests.
func (c *Client) WithSleeper(sleep retry.Sleeper) *Client {
	c.sleep = sleep
	return c
}

// Submit POSTs the form to the endpoint, retrying failed attempts up to the
// configured budget. The returned message is the endpoint's own success text,
// if any. On exhaustion the last attempt's error is returned.
func (c *Client) Submit(ctx context.Context, input model.FormInput, verificationToken string) (string, error) {
	body, err := json.Marshal(payload{
		Name:              input.Name,
		Email:             input.Email,
		Subject:           input.Subject,
		Message:           input.Message,
		VerificationToken: verificationToken,
	})
	if err != nil {
		return "", err
	}

	return retry.Do(ctx, func(ctx context.Context) (string, error) {
		return c.attempt(ctx, body)
	}, c.attempts, c.baseDelay, c.sleep)
}

func (c *Client) attempt(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	// The body only ever carries a short message/error string.
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	var parsed response
	_ = json.Unmarshal(raw, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := parsed.Error
		if message == "" {
			message = fmt.Sprintf("submission endpoint returned status %d", resp.StatusCode)
		}
		log.Warn().
			Int("status", resp.StatusCode).
			Str("endpoint", c.endpoint).
			Msg("Upstream rejected submission")
		return "", &ServerError{StatusCode: resp.StatusCode, Message: message}
	}

	return parsed.Message, nil
}
