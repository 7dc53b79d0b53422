package importer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rkshawon/interprep/internal/infrastructure/resilience"
)

func TestClientFetchHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<html><body><pre><code>console.log(1)</code></pre></body></html>")
	}))
	defer srv.Close()

	page, err := NewClient().Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if page.Kind != PageHTML {
		t.Errorf("kind = %v, want PageHTML", page.Kind)
	}
	if !strings.Contains(string(page.Body), "<pre>") {
		t.Errorf("body = %q", page.Body)
	}
}

func TestClientFetchScript(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/javascript")
		fmt.Fprint(w, "console.log('remote')")
	}))
	defer srv.Close()

	page, err := NewClient().Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if page.Kind != PageScript {
		t.Errorf("kind = %v, want PageScript", page.Kind)
	}
}

func TestClientFetchStatusError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := NewClient().Fetch(context.Background(), srv.URL)
	if err == nil || !strings.Contains(err.Error(), "status 404") {
		t.Errorf("err = %v, want status 404", err)
	}
}

func TestClientFetchUnsupportedType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'})
	}))
	defer srv.Close()

	_, err := NewClient().Fetch(context.Background(), srv.URL)
	if err == nil || !strings.Contains(err.Error(), "unsupported content type") {
		t.Errorf("err = %v, want unsupported content type", err)
	}
}

func TestClientFetchSizeCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, strings.Repeat("<p>filler</p>", 100))
	}))
	defer srv.Close()

	_, err := NewClient(WithMaxFetchSize(64)).Fetch(context.Background(), srv.URL)
	if err == nil || !strings.Contains(err.Error(), "exceeds") {
		t.Errorf("err = %v, want size cap error", err)
	}
}

func TestClientFetchBadScheme(t *testing.T) {
	_, err := NewClient().Fetch(context.Background(), "ftp://example.com/code.js")
	if err == nil || !strings.Contains(err.Error(), "unsupported scheme") {
		t.Errorf("err = %v, want unsupported scheme", err)
	}
}

func TestClientBreakerTrips(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	c := NewClient()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := c.Fetch(ctx, srv.URL); err == nil {
			t.Fatal("fetch of 404 succeeded")
		}
	}

	if c.BreakerState() != resilience.StateOpen {
		t.Fatalf("breaker state = %v, want open", c.BreakerState())
	}
	_, err := c.Fetch(ctx, srv.URL)
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Errorf("err = %v, want circuit open", err)
	}
}

func TestClassifySniffsMissingHeader(t *testing.T) {
	kind, err := classify("", []byte("<!DOCTYPE html><html><body>hi</body></html>"))
	if err != nil || kind != PageHTML {
		t.Errorf("kind = %v, err = %v, want PageHTML", kind, err)
	}

	kind, err = classify("", []byte("console.log('plain source')"))
	if err != nil || kind != PageScript {
		t.Errorf("kind = %v, err = %v, want PageScript", kind, err)
	}
}
