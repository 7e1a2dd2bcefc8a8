// Package content fetches quotes from the external quote provider.
package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// ErrContentUnavailable is returned when no usable quote could be fetched.
var ErrContentUnavailable = errors.New("content unavailable")

const (
	// DefaultURL is the public random quote endpoint.
	DefaultURL = "https://hindi-quotes.vercel.app/random"
	// DefaultTimeout bounds a single fetch.
	DefaultTimeout = 10 * time.Second

	unknownAuthor = "अनजान"
	maxBodyBytes  = 64 << 10
)

// Item is one fetched quote.
type Item struct {
	Quote  string `json:"quote"`
	Author string `json:"type"`
}

// Text renders the quote with its attribution line.
func (i Item) Text() string {
	return fmt.Sprintf("%s\n\n— %s", i.Quote, i.Author)
}

// Client fetches quotes over HTTP.
type Client struct {
	url        string
	timeout    time.Duration
	httpClient *http.Client
}

// NewClient creates a quote client. Empty url and zero timeout fall back to defaults.
func NewClient(httpClient *http.Client, url string, timeout time.Duration) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if url == "" {
		url = DefaultURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{url: url, timeout: timeout, httpClient: httpClient}
}

// Fetch returns one random quote. Every failure, including the timeout,
// wraps ErrContentUnavailable.
func (c *Client) Fetch(ctx context.Context) (Item, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return Item{}, fmt.Errorf("%w: build request: %v", ErrContentUnavailable, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Item{}, fmt.Errorf("%w: request quote: %v", ErrContentUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Item{}, fmt.Errorf("%w: quote status: %d", ErrContentUnavailable, resp.StatusCode)
	}

	var item Item
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&item); err != nil {
		return Item{}, fmt.Errorf("%w: decode quote: %v", ErrContentUnavailable, err)
	}
	item.Quote = strings.TrimSpace(item.Quote)
	item.Author = strings.TrimSpace(item.Author)
	if item.Quote == "" {
		return Item{}, fmt.Errorf("%w: empty quote", ErrContentUnavailable)
	}
	if item.Author == "" {
		item.Author = unknownAuthor
	}

	log.Printf("[Content] Quote fetched (%d bytes)", len(item.Quote))
	return item, nil
}
