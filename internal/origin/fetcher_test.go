package origin

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetcherResolvesAgainstBase(t *testing.T) {
	var gotPath string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("hello"))
	}))
	defer upstream.Close()

	fetcher, err := NewFetcher(upstream.URL, upstream.Client())
	if err != nil {
		t.Fatalf("fetcher error: %v", err)
	}

	res, err := fetcher.Fetch(context.Background(), "/index.html")
	if err != nil {
		t.Fatalf("fetch error: %v", err)
	}
	defer res.Body.Close()

	if gotPath != "/index.html" {
		t.Fatalf("unexpected upstream path: %s", gotPath)
	}
	if res.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", res.StatusCode)
	}
	body, _ := io.ReadAll(res.Body)
	if string(body) != "hello" {
		t.Fatalf("unexpected body: %s", string(body))
	}
	if res.Header.Get("Content-Type") != "text/plain" {
		t.Fatalf("unexpected content type: %s", res.Header.Get("Content-Type"))
	}
}

func TestFetcherKeepsBasePrefix(t *testing.T) {
	var gotPath string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer upstream.Close()

	fetcher, err := NewFetcher(upstream.URL+"/site/", upstream.Client())
	if err != nil {
		t.Fatalf("fetcher error: %v", err)
	}

	res, err := fetcher.Fetch(context.Background(), "/app.js")
	if err != nil {
		t.Fatalf("fetch error: %v", err)
	}
	res.Body.Close()

	if gotPath != "/site/app.js" {
		t.Fatalf("unexpected upstream path: %s", gotPath)
	}
}

func TestFetcherPassesThroughErrorStatus(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer upstream.Close()

	fetcher, err := NewFetcher(upstream.URL, upstream.Client())
	if err != nil {
		t.Fatalf("fetcher error: %v", err)
	}

	res, err := fetcher.Fetch(context.Background(), "/missing.png")
	if err != nil {
		t.Fatalf("fetch error: %v", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 pass-through, got %d", res.StatusCode)
	}
}

func TestFetcherSurfacesNetworkFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := upstream.URL
	upstream.Close()

	fetcher, err := NewFetcher(base, NewClient(time.Second))
	if err != nil {
		t.Fatalf("fetcher error: %v", err)
	}

	if _, err := fetcher.Fetch(context.Background(), "/"); err == nil {
		t.Fatalf("expected network failure")
	}
}

func TestNewFetcherRejectsInvalidBase(t *testing.T) {
	client := NewClient(time.Second)
	for _, base := range []string{"", "ftp://example.com", "http://"} {
		if _, err := NewFetcher(base, client); err == nil {
			t.Fatalf("expected error for base %q", base)
		}
	}
	if _, err := NewFetcher("http://example.com", nil); err == nil {
		t.Fatalf("expected error for nil client")
	}
}

func TestIsHopByHopHeader(t *testing.T) {
	if !IsHopByHopHeader("connection") {
		t.Fatalf("connection should be hop-by-hop")
	}
	if IsHopByHopHeader("Content-Type") {
		t.Fatalf("content-type should pass through")
	}
}
