package ai

import (
	"errors"
	"fmt"
	"time"
)

// Typed completion failures. Each wraps the provider's APIError so the
// status and request id stay available through errors.As.

// AuthError is a 401/403 from the provider.
type AuthError struct{ *APIError }

func (e *AuthError) Error() string { return "authentication failed: " + e.APIError.Error() }

// RateLimitError is a 429. RetryAfter is zero when the provider sent no hint.
type RateLimitError struct {
	*APIError
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited (retry in ~%ds): %s", int(e.RetryAfter.Seconds()), e.APIError.Error())
	}
	return "rate limited: " + e.APIError.Error()
}

// ModelNotFoundError means the configured ai_model does not exist on the
// provider.
type ModelNotFoundError struct{ *APIError }

func (e *ModelNotFoundError) Error() string { return "model not found: " + e.APIError.Error() }

// BadRequestError is any other rejected request, typically a prompt over
// the model's context window.
type BadRequestError struct{ *APIError }

func (e *BadRequestError) Error() string { return "bad request: " + e.APIError.Error() }

// QuotaExceededError is a billing or credit problem.
type QuotaExceededError struct{ *APIError }

func (e *QuotaExceededError) Error() string { return "quota exceeded: " + e.APIError.Error() }

// ServerError is a 5xx that survived every retry.
type ServerError struct{ *APIError }

func (e *ServerError) Error() string { return "provider error: " + e.APIError.Error() }

// UnreachableError means no HTTP exchange happened at all, e.g. Ollama is
// not running.
type UnreachableError struct {
	Host string
	Err  error
}

func (e *UnreachableError) Error() string {
	if e.Host != "" {
		return fmt.Sprintf("completion service unreachable at %s: %v", e.Host, e.Err)
	}
	return fmt.Sprintf("completion service unreachable: %v", e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }

// Transient reports whether asking again later may succeed without a
// configuration change.
func Transient(err error) bool {
	var (
		rl  *RateLimitError
		srv *ServerError
		un  *UnreachableError
	)
	return errors.As(err, &rl) || errors.As(err, &srv) || errors.As(err, &un)
}

// Hint suggests the setting to check for err, or "" when there is nothing
// specific to say.
func Hint(err error) string {
	var (
		auth  *AuthError
		model *ModelNotFoundError
		bad   *BadRequestError
		quota *QuotaExceededError
		un    *UnreachableError
		rl    *RateLimitError
	)
	switch {
	case errors.As(err, &auth):
		return "check api_key (or gemini_api_key for the gemini provider)"
	case errors.As(err, &model):
		return "check ai_model; `shipsight models list` shows known models"
	case errors.As(err, &bad):
		return "the prompt may be too large; lower context_token_limit or narrow the filters"
	case errors.As(err, &quota):
		return "the provider account is out of credits"
	case errors.As(err, &un):
		return "check ollama_host and that the service is running"
	case errors.As(err, &rl):
		return "wait a moment and ask again"
	}
	return ""
}
