package provider

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrUnknownProvider is returned by the factory for an unrecognized
// provider tag.
var ErrUnknownProvider = errors.New("unknown provider")

// Kind classifies a provider failure. The retry engine keys its behavior
// off this classification: auth, quota and safety failures are terminal;
// rate-limit, timeout and network failures are retried with backoff.
type Kind int

const (
	KindConfig Kind = iota // bad or missing credential/endpoint, never retried
	KindAuth               // backend rejected the credential, never retried
	KindRateLimit          // retried with long (doubled exponential) backoff
	KindTimeout            // retried with standard backoff
	KindQuota              // billing/quota exhausted, never retried
	KindSafety             // request blocked by the backend's safety layer, never retried
	KindNetwork            // transport or 5xx failure, retried with standard backoff
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindAuth:
		return "auth"
	case KindRateLimit:
		return "rate-limit"
	case KindTimeout:
		return "timeout"
	case KindQuota:
		return "quota"
	case KindSafety:
		return "safety-block"
	default:
		return "network"
	}
}

// Error is the uniform failure type surfaced by every adapter. Messages
// are redacted at construction so a credential fragment can never reach a
// log line or a user notification.
type Error struct {
	Kind     Kind
	Provider string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the retry engine may attempt the call again.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindRateLimit, KindTimeout, KindNetwork:
		return true
	default:
		return false
	}
}

func newError(kind Kind, providerName, message string, err error) *Error {
	if err != nil {
		err = errors.New(Redact(err.Error()))
	}
	return &Error{Kind: kind, Provider: providerName, Message: Redact(message), Err: err}
}

// kindOf extracts the classification from an error chain. Non-provider
// errors default to network (retryable), except context deadline which is
// a timeout.
func kindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindNetwork
}

// IsConfig reports whether err is a configuration failure.
func IsConfig(err error) bool { return isKind(err, KindConfig) }

// IsAuth reports whether err is a credential rejection.
func IsAuth(err error) bool { return isKind(err, KindAuth) }

// IsRateLimit reports whether err is a rate-limit failure.
func IsRateLimit(err error) bool { return isKind(err, KindRateLimit) }

// IsTimeout reports whether err is a timeout.
func IsTimeout(err error) bool { return isKind(err, KindTimeout) }

// IsQuota reports whether err is a quota/billing failure.
func IsQuota(err error) bool { return isKind(err, KindQuota) }

// IsSafetyBlock reports whether err was blocked by the backend's safety layer.
func IsSafetyBlock(err error) bool { return isKind(err, KindSafety) }

func isKind(err error, kind Kind) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == kind
}

// classifyStatus maps an HTTP status + response body onto the taxonomy.
// Body text is consulted because several backends report quota and safety
// conditions under generic status codes.
func classifyStatus(providerName string, status int, body string) *Error {
	lower := strings.ToLower(body)
	switch {
	case status == 401 || status == 403:
		if strings.Contains(lower, "quota") || strings.Contains(lower, "billing") {
			return newError(KindQuota, providerName, "quota exhausted; check your plan and billing", errors.New(body))
		}
		return newError(KindAuth, providerName, "credentials rejected; check your API key", errors.New(body))
	case status == 429:
		if strings.Contains(lower, "quota") || strings.Contains(lower, "billing") || strings.Contains(lower, "insufficient_quota") {
			return newError(KindQuota, providerName, "quota exhausted; check your plan and billing", errors.New(body))
		}
		return newError(KindRateLimit, providerName, "rate limit exceeded (429)", errors.New(body))
	case status == 408 || status == 504:
		return newError(KindTimeout, providerName, fmt.Sprintf("request timed out (%d)", status), errors.New(body))
	case status == 400 && (strings.Contains(lower, "safety") || strings.Contains(lower, "blocked") || strings.Contains(lower, "content_filter")):
		return newError(KindSafety, providerName, "request blocked by the provider's safety filter", errors.New(body))
	case status >= 500:
		return newError(KindNetwork, providerName, fmt.Sprintf("server error (%d)", status), errors.New(body))
	default:
		return newError(KindNetwork, providerName, fmt.Sprintf("request failed with status %d", status), errors.New(body))
	}
}

// Credential-shaped substrings scrubbed from every message before it is
// logged or surfaced. Covers Anthropic/OpenAI key prefixes, Google API
// keys, and bearer/authorization header values.
var redactPatterns = []*regexp.Regexp{
	regexp.MustCompile(`sk-ant-[A-Za-z0-9_\-]+`),
	regexp.MustCompile(`sk-[A-Za-z0-9_\-]{8,}`),
	regexp.MustCompile(`AIza[0-9A-Za-z_\-]{10,}`),
	regexp.MustCompile(`(?i)(bearer\s+)[A-Za-z0-9._\-]+`),
	regexp.MustCompile(`(?i)(x-api-key["':=\s]+)[A-Za-z0-9._\-]+`),
	regexp.MustCompile(`(?i)(api[_-]?key["':=\s]+)[A-Za-z0-9._\-]{8,}`),
}

// Redact replaces credential-shaped substrings with a fixed marker.
func Redact(s string) string {
	for i, re := range redactPatterns {
		if i >= 3 {
			s = re.ReplaceAllString(s, "${1}[redacted]")
			continue
		}
		s = re.ReplaceAllString(s, "[redacted]")
	}
	return s
}
