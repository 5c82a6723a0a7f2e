package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func detectVia(t *testing.T, prepare func(r *http.Request), lookup CountryLookup) string {
	t.Helper()
	var got string
	handler := I18N("en", lookup)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = LocaleFromContext(r.Context())
	}))
	req := httptest.NewRequest("GET", "/", nil)
	if prepare != nil {
		prepare(req)
	}
	handler.ServeHTTP(httptest.NewRecorder(), req)
	return got
}

func TestI18NExplicitHeaderWins(t *testing.T) {
	got := detectVia(t, func(r *http.Request) {
		r.Header.Set("X-Locale", "id")
		r.Header.Set("Accept-Language", "en-US")
	}, nil)
	if got != "id" {
		t.Fatalf("expected id, got %q", got)
	}
}

func TestI18NAcceptLanguage(t *testing.T) {
	got := detectVia(t, func(r *http.Request) {
		r.Header.Set("Accept-Language", "id-ID,id;q=0.9,en;q=0.8")
	}, nil)
	if got != "id" {
		t.Fatalf("expected id, got %q", got)
	}
}

func TestI18NUnsupportedLanguageFallsBack(t *testing.T) {
	got := detectVia(t, func(r *http.Request) {
		r.Header.Set("X-Locale", "fr")
	}, nil)
	if got != "en" {
		t.Fatalf("expected en fallback, got %q", got)
	}
}

func TestI18NCountryLookupFallback(t *testing.T) {
	lookup := func(ip string) (string, error) { return "ID", nil }
	if got := detectVia(t, nil, lookup); got != "id" {
		t.Fatalf("expected id from country lookup, got %q", got)
	}
}

func TestI18NDefault(t *testing.T) {
	if got := detectVia(t, nil, nil); got != "en" {
		t.Fatalf("expected default en, got %q", got)
	}
}
