package crawler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"catalogsync/internal/config"
	"catalogsync/internal/model"
)

// ErrUnexpectedStatus indicates a non-2xx answer from the product API.
var ErrUnexpectedStatus = errors.New("unexpected status code")

// Client reads product pages from one store REST endpoint.
type Client struct {
	name      string
	endpoint  string
	key       string
	secret    string
	userAgent string
	http      *http.Client
}

// NewClient creates a client for src with the given request timeout.
func NewClient(src config.Source, timeout time.Duration, userAgent string) *Client {
	return NewClientWithHTTP(src, &http.Client{Timeout: timeout}, userAgent)
}

// NewClientWithHTTP creates a client using an existing http.Client.
func NewClientWithHTTP(src config.Source, httpClient *http.Client, userAgent string) *Client {
	return &Client{
		name:      src.Name,
		endpoint:  src.URL,
		key:       src.ConsumerKey,
		secret:    src.ConsumerSecret,
		userAgent: userAgent,
		http:      httpClient,
	}
}

// Name returns the catalog name used in logs and metrics.
func (c *Client) Name() string {
	return c.name
}

// FetchPage returns the published products of one page, most recently
// modified first.
func (c *Client) FetchPage(ctx context.Context, page, perPage int) ([]model.RawItem, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", c.endpoint, err)
	}

	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))
	q.Set("orderby", "modified")
	q.Set("order", "desc")
	q.Set("status", "publish")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.key, c.secret)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request page %d: %w", page, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d on page %d", ErrUnexpectedStatus, resp.StatusCode, page)
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()

	var items []model.RawItem
	if err := dec.Decode(&items); err != nil {
		return nil, fmt.Errorf("failed to decode page %d: %w", page, err)
	}

	return items, nil
}
