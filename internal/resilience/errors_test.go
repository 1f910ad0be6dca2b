package resilience

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"
)

func TestKindFromStatus(t *testing.T) {
	cases := map[int]Kind{
		401: KindAuth,
		403: KindAuth,
		402: KindQuota,
		404: KindNotFound,
		429: KindRateLimit,
		500: KindTransient,
		200: KindTransient,
	}
	for code, want := range cases {
		if got := KindFromStatus(code); got != want {
			t.Errorf("KindFromStatus(%d) = %s, want %s", code, got, want)
		}
	}
}

func TestClassify_TypedErrorWins(t *testing.T) {
	inner := NewServiceError("apify", 402, errors.New("rate limit text that would match"))
	wrapped := fmt.Errorf("scrape: %w", inner)

	got := Classify(wrapped, TextRule{Kind: KindRateLimit, Patterns: []string{"rate limit"}})
	if got != KindQuota {
		t.Errorf("expected quota, got %s", got)
	}
}

func TestClassify_TransientTypedErrorFallsBackToRules(t *testing.T) {
	rules := []TextRule{{Kind: KindQuota, Patterns: []string{"quota"}}}

	bad := NewServiceError("apify", 400, errors.New("monthly quota exceeded"))
	if got := Classify(fmt.Errorf("scrape: %w", bad), rules...); got != KindQuota {
		t.Errorf("expected quota from body text, got %s", got)
	}

	plain := NewServiceError("apify", 500, errors.New("internal error"))
	if got := Classify(plain, rules...); got != KindTransient {
		t.Errorf("expected transient, got %s", got)
	}
}

func TestClassify_RulesInOrder(t *testing.T) {
	rules := []TextRule{
		{Kind: KindRateLimit, Patterns: []string{"429", "rate limit"}},
		{Kind: KindQuota, Patterns: []string{"quota", "limit"}},
		{Kind: KindNotFound, Patterns: []string{"not found"}},
	}
	cases := map[string]Kind{
		"Rate limit reached":         KindRateLimit,
		"monthly usage LIMIT hit":    KindQuota,
		"actor not found":            KindNotFound,
		"unexpected end of JSON":     KindTransient,
		"HTTP 429 Too Many Requests": KindRateLimit,
	}
	for msg, want := range cases {
		if got := Classify(errors.New(msg), rules...); got != want {
			t.Errorf("Classify(%q) = %s, want %s", msg, got, want)
		}
	}
}

func TestClassify_Nil(t *testing.T) {
	if got := Classify(nil); got != KindTransient {
		t.Errorf("expected transient for nil, got %s", got)
	}
}

func TestServiceError_Message(t *testing.T) {
	err := NewServiceError("serpapi", 401, errors.New("Invalid API key"))
	want := "serpapi: auth (status 401): Invalid API key"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, err.Err) {
		t.Error("expected Unwrap to expose inner error")
	}
}

func TestIsTransient_ServiceError(t *testing.T) {
	if !IsTransient(NewServiceError("apify", 503, errors.New("unavailable"))) {
		t.Error("expected 503 to be transient")
	}
	if IsTransient(NewServiceError("apify", 402, errors.New("payment required"))) {
		t.Error("quota should not be transient")
	}
	if IsTransient(NewServiceError("apify", 429, errors.New("slow down"))) {
		t.Error("rate limit is handled separately from transient retries")
	}
}

func TestIsTransient_NilError(t *testing.T) {
	if IsTransient(nil) {
		t.Error("nil error should not be transient")
	}
}

func TestIsTransient_RegularError(t *testing.T) {
	if IsTransient(errors.New("invalid input: missing field")) {
		t.Error("regular error should not be transient")
	}
}

func TestIsTransient_ConnectionReset(t *testing.T) {
	if !IsTransient(fmt.Errorf("write tcp: %w", syscall.ECONNRESET)) {
		t.Error("ECONNRESET should be transient")
	}
}

func TestIsTransient_NetworkTimeout(t *testing.T) {
	if !IsTransient(&net.DNSError{IsTimeout: true, Err: "timeout"}) {
		t.Error("network timeout should be transient")
	}
}

func TestIsTransient_StringPatterns(t *testing.T) {
	for _, p := range []string{"connection reset by peer", "broken pipe", "TLS handshake timeout", "i/o timeout"} {
		if !IsTransient(errors.New(p)) {
			t.Errorf("expected %q to be transient", p)
		}
	}
}

func TestContainsAny(t *testing.T) {
	if !ContainsAny("Monthly Usage Hard Limit Exceeded", "exceeded") {
		t.Error("expected case-insensitive match")
	}
	if ContainsAny("all good") {
		t.Error("no patterns should never match")
	}
}
