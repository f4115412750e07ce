package server

import (
	"net/http/httptest"
	"testing"
)

func TestRequestBaseURLResolutionOrder(t *testing.T) {
	t.Run("configured base url wins", func(t *testing.T) {
		srv := &Server{baseURL: "https://files.example.com"}
		r := httptest.NewRequest("GET", "http://internal:7420/v1/files", nil)
		r.Header.Set("X-Forwarded-Proto", "https")
		r.Header.Set("X-Forwarded-Host", "proxy.example.com")
		if got := srv.requestBaseURL(r); got != "https://files.example.com" {
			t.Fatalf("expected configured base url, got %q", got)
		}
	})

	t.Run("forwarding headers beat request host", func(t *testing.T) {
		srv := &Server{}
		r := httptest.NewRequest("GET", "http://internal:7420/v1/files", nil)
		r.Header.Set("X-Forwarded-Proto", "https")
		r.Header.Set("X-Forwarded-Host", "proxy.example.com")
		if got := srv.requestBaseURL(r); got != "https://proxy.example.com" {
			t.Fatalf("expected forwarded base url, got %q", got)
		}
	})

	t.Run("falls back to request host", func(t *testing.T) {
		srv := &Server{}
		r := httptest.NewRequest("GET", "http://internal:7420/v1/files", nil)
		if got := srv.requestBaseURL(r); got != "http://internal:7420" {
			t.Fatalf("expected request host base url, got %q", got)
		}
	})
}

func TestSignedURLShape(t *testing.T) {
	got := signedURL("https://files.example.com/", "fl-abcdefghij", "tok")
	if got != "https://files.example.com/v1/files/fl-abcdefghij?token=tok" {
		t.Fatalf("unexpected signed url %q", got)
	}
}
