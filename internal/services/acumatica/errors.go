package acumatica

import (
	"fmt"
	"strings"

	"shipconf/internal/services"
)

// AuthError reports a login or logout answered with an unexpected status.
type AuthError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *AuthError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("%s returned status %d", e.Operation, e.StatusCode)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Operation, e.StatusCode, body)
}

func (e *AuthError) Unwrap() error { return services.ErrAuth }

// StatusError reports a request answered with a 4xx or 5xx status.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s returned status %d", e.Method, e.URL, e.StatusCode)
	if body := strings.TrimSpace(e.Body); body != "" {
		msg += ": " + body
	}
	return msg
}

func (e *StatusError) Unwrap() error { return services.ErrTransport }
