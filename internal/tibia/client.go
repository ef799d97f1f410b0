package tibia

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/tibialabs/tibia-houses/internal/httpx"
)

const DefaultBaseURL = "https://www.tibia.com/community/"

// PageClient fetches raw community pages. The only implementation that
// talks to the network is Client; tests substitute fixture-backed
// stubs, which is the seam that keeps the extraction stages testable
// offline.
type PageClient interface {
	// ResidencesPage fetches the listing page for one world, town and
	// residence type ("houses" or "guildhalls").
	ResidencesPage(ctx context.Context, world, town, residenceType string) ([]byte, error)
	// TownsPage fetches the houses landing page carrying the town picker.
	TownsPage(ctx context.Context) ([]byte, error)
}

type Client struct {
	fetcher *httpx.Fetcher
	baseURL string
}

func NewClient(fetcher *httpx.Fetcher, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{fetcher: fetcher, baseURL: baseURL}
}

func (c *Client) ResidencesPage(ctx context.Context, world, town, residenceType string) ([]byte, error) {
	return c.get(ctx, url.Values{
		"subtopic": {"houses"},
		"world":    {world},
		"town":     {town},
		"type":     {residenceType},
	})
}

func (c *Client) TownsPage(ctx context.Context) ([]byte, error) {
	return c.get(ctx, url.Values{"subtopic": {"houses"}})
}

func (c *Client) get(ctx context.Context, params url.Values) ([]byte, error) {
	resp, err := c.fetcher.Get(ctx, c.baseURL+"?"+params.Encode())
	if err != nil {
		return nil, err
	}
	if ct := resp.ContentType; ct != "" && !strings.Contains(ct, "text/html") {
		return nil, &httpx.FetchError{
			Kind:   httpx.ErrUnexpectedContentType,
			Status: resp.Status,
			Err:    fmt.Errorf("content type %q", ct),
		}
	}
	return resp.Body, nil
}
