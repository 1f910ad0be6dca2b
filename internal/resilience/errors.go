package resilience

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// Kind classifies an external-service failure by how callers react to it.
type Kind int

const (
	// KindTransient covers network blips and malformed payloads: log and move on.
	KindTransient Kind = iota
	// KindAuth means the credential was rejected.
	KindAuth
	// KindQuota means the credential's allowance or billing is exhausted.
	KindQuota
	// KindRateLimit means the service asked us to slow down.
	KindRateLimit
	// KindNotFound means the requested resource does not exist.
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindQuota:
		return "quota"
	case KindRateLimit:
		return "rate_limit"
	case KindNotFound:
		return "not_found"
	default:
		return "transient"
	}
}

// ServiceError is a classified failure from an external service.
type ServiceError struct {
	Kind       Kind
	Service    string
	StatusCode int
	Err        error
}

func (e *ServiceError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s (status %d): %v", e.Service, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Service, e.Kind, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError wraps err with a kind derived from the HTTP status code.
func NewServiceError(service string, statusCode int, err error) *ServiceError {
	return &ServiceError{
		Kind:       KindFromStatus(statusCode),
		Service:    service,
		StatusCode: statusCode,
		Err:        err,
	}
}

// KindFromStatus maps an HTTP status code to a Kind.
func KindFromStatus(statusCode int) Kind {
	switch statusCode {
	case 401, 403:
		return KindAuth
	case 402:
		return KindQuota
	case 404:
		return KindNotFound
	case 429:
		return KindRateLimit
	default:
		return KindTransient
	}
}

// TextRule maps error-text substrings to a Kind. Matching is case-insensitive.
type TextRule struct {
	Kind     Kind
	Patterns []string
}

// Classify returns the Kind of err. A ServiceError anywhere in the chain
// wins unless its Kind is transient, in which case the status code said
// nothing definite and the rules are tried in order against the error
// text. The first match wins. Unmatched errors are transient.
func Classify(err error, rules ...TextRule) Kind {
	if err == nil {
		return KindTransient
	}
	var se *ServiceError
	if errors.As(err, &se) && se.Kind != KindTransient {
		return se.Kind
	}
	msg := strings.ToLower(err.Error())
	for _, r := range rules {
		if ContainsAny(msg, r.Patterns...) {
			return r.Kind
		}
	}
	return KindTransient
}

// ContainsAny reports whether s contains any of the substrings, ignoring case.
func ContainsAny(s string, subs ...string) bool {
	s = strings.ToLower(s)
	for _, sub := range subs {
		if strings.Contains(s, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}

// IsTransient returns true if the error is a transient ServiceError or
// matches common transient network patterns (timeouts, connection resets,
// DNS failures).
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var se *ServiceError
	if errors.As(err, &se) {
		return se.Kind == KindTransient && (se.StatusCode == 0 || IsTransientHTTPStatus(se.StatusCode))
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	return ContainsAny(err.Error(),
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
		"transport connection broken",
	)
}

// IsTransientHTTPStatus returns true if the HTTP status code indicates a
// transient server-side issue.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
