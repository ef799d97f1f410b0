// Package httpx owns the transport layer: one GET per call, a
// browser-like identity, and per-host rate limiting. It performs no
// retries; retry policy, if any, belongs to the caller.
package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"golang.org/x/time/rate"
)

type ErrorKind string

const (
	// ErrUnreachable covers DNS, connection, and timeout failures.
	ErrUnreachable ErrorKind = "unreachable"
	// ErrUpstreamRejected means the target answered with a
	// non-success status.
	ErrUpstreamRejected ErrorKind = "upstream_rejected"
	// ErrUnexpectedContentType means the body is not what the caller
	// can parse.
	ErrUnexpectedContentType ErrorKind = "unexpected_content_type"
)

type FetchError struct {
	Kind   ErrorKind
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("fetch error (%s, status %d): %v", e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch error (%s): %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Response is the raw outcome of one GET.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// Fetcher issues single GET requests through colly with a shared
// per-host rate limit. Safe for concurrent use.
type Fetcher struct {
	userAgent    string
	timeout      time.Duration
	transport    http.RoundTripper
	mu           sync.Mutex
	defaultRate  rate.Limit
	defaultBurst int
	hosts        map[string]*rate.Limiter
}

func NewFetcher(userAgent string, timeout time.Duration) *Fetcher {
	if userAgent == "" {
		userAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/115.0"
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{
		userAgent:    userAgent,
		timeout:      timeout,
		defaultRate:  rate.Every(time.Second),
		defaultBurst: 2,
		hosts:        make(map[string]*rate.Limiter),
	}
}

// SetTransport overrides the HTTP transport. Tests use this to serve
// canned responses.
func (f *Fetcher) SetTransport(rt http.RoundTripper) {
	f.transport = rt
}

func (f *Fetcher) Get(ctx context.Context, rawURL string) (*Response, error) {
	target, err := normalizeURL(rawURL)
	if err != nil {
		return nil, &FetchError{Kind: ErrUnreachable, Err: err}
	}
	if err := f.limiterFor(hostKey(target)).Wait(ctx); err != nil {
		return nil, &FetchError{Kind: ErrUnreachable, Err: err}
	}

	c := f.newCollector()

	var resp Response
	var reqErr error
	c.OnResponse(func(r *colly.Response) {
		resp.Status = r.StatusCode
		resp.ContentType = r.Headers.Get("Content-Type")
		resp.Body = append([]byte(nil), r.Body...)
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			resp.Status = r.StatusCode
		}
		reqErr = err
	})

	collyCtx := colly.NewContext()
	collyCtx.Put("ctx", ctx)

	err = c.Request(http.MethodGet, target, nil, collyCtx, nil)
	if reqErr == nil {
		reqErr = err
	}
	// colly reports HTTP error statuses through the same error path as
	// transport failures; the captured status tells them apart.
	if resp.Status >= 400 {
		if reqErr == nil {
			reqErr = fmt.Errorf("status %d", resp.Status)
		}
		return nil, &FetchError{Kind: ErrUpstreamRejected, Status: resp.Status, Err: reqErr}
	}
	if reqErr != nil {
		return nil, &FetchError{Kind: ErrUnreachable, Status: resp.Status, Err: reqErr}
	}
	if resp.Status == 0 {
		resp.Status = http.StatusOK
	}
	return &resp, nil
}

func (f *Fetcher) newCollector() *colly.Collector {
	c := colly.NewCollector(colly.UserAgent(f.userAgent))
	c.IgnoreRobotsTxt = true
	c.SetRequestTimeout(f.timeout)
	if f.transport != nil {
		c.WithTransport(f.transport)
	}

	c.OnRequest(func(r *colly.Request) {
		ctx := context.Background()
		if v := r.Ctx.GetAny("ctx"); v != nil {
			if reqCtx, ok := v.(context.Context); ok {
				ctx = reqCtx
			}
		}
		if ctx.Err() != nil {
			r.Abort()
		}
	})

	return c
}

func (f *Fetcher) limiterFor(host string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	if host == "" {
		host = "default"
	}
	if l, ok := f.hosts[host]; ok {
		return l
	}
	l := rate.NewLimiter(f.defaultRate, f.defaultBurst)
	f.hosts[host] = l
	return l
}

func normalizeURL(rawURL string) (string, error) {
	if rawURL == "" {
		return "", errors.New("empty url")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" {
		u.Scheme = "https"
	}
	return u.String(), nil
}

func normalizeHost(host string) string {
	host = strings.ToLower(host)
	return strings.TrimPrefix(host, "www.")
}

func hostKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "default"
	}
	return normalizeHost(u.Hostname())
}
