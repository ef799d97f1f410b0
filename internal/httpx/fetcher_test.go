package httpx

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
)

func newTestFetcher(mt *httpmock.MockTransport) *Fetcher {
	f := NewFetcher("test-agent", 2*time.Second)
	f.SetTransport(mt)
	return f
}

func TestGetSuccess(t *testing.T) {
	mt := httpmock.NewMockTransport()
	resp := httpmock.NewStringResponse(http.StatusOK, "<html><body>ok</body></html>")
	resp.Header.Set("Content-Type", "text/html; charset=utf-8")
	mt.RegisterResponder(http.MethodGet, "https://www.example.com/page", httpmock.ResponderFromResponse(resp))

	got, err := newTestFetcher(mt).Get(context.Background(), "https://www.example.com/page")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != http.StatusOK {
		t.Fatalf("status = %d, want 200", got.Status)
	}
	if got.ContentType != "text/html; charset=utf-8" {
		t.Fatalf("content type = %q", got.ContentType)
	}
	if string(got.Body) != "<html><body>ok</body></html>" {
		t.Fatalf("body = %q", got.Body)
	}
}

func TestGetUpstreamRejected(t *testing.T) {
	mt := httpmock.NewMockTransport()
	mt.RegisterResponder(http.MethodGet, "https://www.example.com/missing",
		httpmock.NewStringResponder(http.StatusNotFound, "not here"))

	_, err := newTestFetcher(mt).Get(context.Background(), "https://www.example.com/missing")
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("error = %v, want FetchError", err)
	}
	if fe.Kind != ErrUpstreamRejected || fe.Status != http.StatusNotFound {
		t.Fatalf("fetch error = %+v, want upstream_rejected with status 404", fe)
	}
}

func TestGetUnreachable(t *testing.T) {
	mt := httpmock.NewMockTransport()
	mt.RegisterResponder(http.MethodGet, "https://www.example.com/down",
		httpmock.NewErrorResponder(errors.New("connection refused")))

	_, err := newTestFetcher(mt).Get(context.Background(), "https://www.example.com/down")
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("error = %v, want FetchError", err)
	}
	if fe.Kind != ErrUnreachable {
		t.Fatalf("kind = %q, want unreachable", fe.Kind)
	}
}

func TestGetEmptyURL(t *testing.T) {
	_, err := newTestFetcher(httpmock.NewMockTransport()).Get(context.Background(), "")
	var fe *FetchError
	if !errors.As(err, &fe) || fe.Kind != ErrUnreachable {
		t.Fatalf("error = %v, want unreachable FetchError", err)
	}
}

func TestGetCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestFetcher(httpmock.NewMockTransport()).Get(ctx, "https://www.example.com/page")
	if err == nil {
		t.Fatalf("Get with cancelled context should fail")
	}
}
