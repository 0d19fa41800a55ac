package phone

import (
	"strings"
	"testing"
)

func TestNormalizePrependsDialingCode(t *testing.T) {
	got := Normalize("5551234", "US")
	if got != "+15551234" {
		t.Fatalf("expected +15551234, got %s", got)
	}
}

func TestNormalizeKeepsInternationalNumbers(t *testing.T) {
	got := Normalize("+15551234", "US")
	if got != "+15551234" {
		t.Fatalf("expected number unchanged, got %s", got)
	}
}

func TestNormalizeUnknownCountryPassesThrough(t *testing.T) {
	got := Normalize("5551234", "ZZ")
	if got != "5551234" {
		t.Fatalf("expected number unchanged for unknown country, got %s", got)
	}
}

func TestNormalizeEmptyCountryPassesThrough(t *testing.T) {
	got := Normalize("5551234", "")
	if got != "5551234" {
		t.Fatalf("expected number unchanged for empty country, got %s", got)
	}
}

func TestNormalizeCountryLookupIsCaseInsensitive(t *testing.T) {
	for country := range dialingCodes {
		upper := Normalize("5551234", country)
		lower := Normalize("5551234", strings.ToLower(country))
		if upper != lower {
			t.Fatalf("country %s: %q != %q", country, upper, lower)
		}
		if !strings.HasPrefix(upper, "+") {
			t.Fatalf("country %s: expected + prefix, got %q", country, upper)
		}
	}
}

func TestDialingCode(t *testing.T) {
	code, ok := DialingCode("gb")
	if !ok || code != "44" {
		t.Fatalf("expected 44 for gb, got %q ok=%v", code, ok)
	}
	if _, ok := DialingCode("ZZ"); ok {
		t.Fatal("expected no dialing code for ZZ")
	}
}
