// Package gateway is a thin read-only client for the upstream record API.
// It performs no retries, caching or input validation: limit and skip are
// passed through as given.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/simp-lee/dashboard/internal/domain"
)

const (
	// DefaultBaseURL is the public API the dashboard reads from.
	DefaultBaseURL = "https://dummyjson.com"

	// DefaultTimeout applies when the context carries no deadline.
	DefaultTimeout = 30 * time.Second
)

// Options configures a Client.
type Options struct {
	BaseURL string
	Timeout time.Duration
	Logger  *slog.Logger
}

// DefaultOptions returns the default client options.
func DefaultOptions() *Options {
	return &Options{
		BaseURL: DefaultBaseURL,
		Timeout: DefaultTimeout,
	}
}

// Client calls the upstream list and search endpoints.
type Client struct {
	baseURL string
	timeout time.Duration
	log     *slog.Logger
}

// New creates a Client. A nil opts uses DefaultOptions.
func New(opts *Options) (*Client, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", base)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Client{baseURL: base, timeout: timeout, log: log}, nil
}

// ListUsers fetches one window of users. GET /users
func (c *Client) ListUsers(ctx context.Context, limit, skip int) (domain.RecordPage, error) {
	return c.list(ctx, "list users", "/users", "users", window(limit, skip))
}

// SearchUsers fetches one window of users matching query. GET /users/search
func (c *Client) SearchUsers(ctx context.Context, query string, limit, skip int) (domain.RecordPage, error) {
	params := window(limit, skip)
	params.Set("q", query)
	return c.list(ctx, "search users", "/users/search", "users", params)
}

// ListProducts fetches one window of products. GET /products
func (c *Client) ListProducts(ctx context.Context, limit, skip int) (domain.RecordPage, error) {
	return c.list(ctx, "list products", "/products", "products", window(limit, skip))
}

// ListProductsByCategory fetches one window of a product category.
// GET /products/category/{name}
func (c *Client) ListProductsByCategory(ctx context.Context, category string, limit, skip int) (domain.RecordPage, error) {
	path := "/products/category/" + url.PathEscape(category)
	return c.list(ctx, "list products by category", path, "products", window(limit, skip))
}

// SearchProducts fetches one window of products matching query. GET /products/search
func (c *Client) SearchProducts(ctx context.Context, query string, limit, skip int) (domain.RecordPage, error) {
	params := window(limit, skip)
	params.Set("q", query)
	return c.list(ctx, "search products", "/products/search", "products", params)
}

func window(limit, skip int) url.Values {
	return url.Values{
		"limit": {strconv.Itoa(limit)},
		"skip":  {strconv.Itoa(skip)},
	}
}

// list issues a GET and decodes the {<key>: [...], total: n} envelope.
func (c *Client) list(ctx context.Context, op, path, key string, params url.Values) (domain.RecordPage, error) {
	endpoint := path + "?" + params.Encode()

	if err := ctx.Err(); err != nil {
		return domain.RecordPage{}, c.fail(ctx, op, endpoint, &domain.TransportError{Op: op, Message: err.Error(), Err: err})
	}

	agent := fiber.Get(c.baseURL + endpoint)
	if deadline, ok := ctx.Deadline(); ok {
		agent.Timeout(time.Until(deadline))
	} else {
		agent.Timeout(c.timeout)
	}
	agent.Set("Content-Type", "application/json")
	agent.Set("Accept", "application/json")

	status, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return domain.RecordPage{}, c.fail(ctx, op, endpoint, &domain.TransportError{
			Op:      op,
			Message: errs[0].Error(),
			Err:     errs[0],
		})
	}

	if status < 200 || status >= 300 {
		te := &domain.TransportError{
			Op:         op,
			StatusCode: status,
			Message:    fmt.Sprintf("Request failed with status code %d", status),
		}
		if msg := upstreamMessage(body); msg != "" {
			te.Err = fmt.Errorf("upstream: %s", msg)
		}
		return domain.RecordPage{}, c.fail(ctx, op, endpoint, te)
	}

	page, err := decodePage(body, key)
	if err != nil {
		return domain.RecordPage{}, c.fail(ctx, op, endpoint, &domain.TransportError{
			Op:         op,
			StatusCode: status,
			Message:    "invalid response from upstream: " + err.Error(),
			Err:        err,
		})
	}

	c.log.DebugContext(ctx, "upstream request",
		slog.String("op", op),
		slog.String("endpoint", endpoint),
		slog.Int("records", len(page.Records)),
		slog.Int("total", page.Total),
	)
	return page, nil
}

func (c *Client) fail(ctx context.Context, op, endpoint string, te *domain.TransportError) error {
	attrs := []slog.Attr{
		slog.String("op", op),
		slog.String("endpoint", endpoint),
		slog.String("error", te.Message),
	}
	if te.StatusCode != 0 {
		attrs = append(attrs, slog.Int("status", te.StatusCode))
	}
	if te.Err != nil {
		attrs = append(attrs, slog.Any("cause", te.Err))
	}
	c.log.LogAttrs(ctx, slog.LevelError, "upstream request failed", attrs...)
	return te
}

// decodePage decodes the list envelope, keeping numbers as json.Number.
func decodePage(body []byte, key string) (domain.RecordPage, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var envelope map[string]json.RawMessage
	if err := dec.Decode(&envelope); err != nil {
		return domain.RecordPage{}, err
	}

	var page domain.RecordPage
	if raw, ok := envelope[key]; ok {
		items := json.NewDecoder(bytes.NewReader(raw))
		items.UseNumber()
		if err := items.Decode(&page.Records); err != nil {
			return domain.RecordPage{}, fmt.Errorf("decode %s: %w", key, err)
		}
	}
	if page.Records == nil {
		page.Records = []domain.Record{}
	}
	if raw, ok := envelope["total"]; ok {
		if err := json.Unmarshal(raw, &page.Total); err != nil {
			return domain.RecordPage{}, fmt.Errorf("decode total: %w", err)
		}
	}
	return page, nil
}

// upstreamMessage extracts the "message" field of an error body, if any.
func upstreamMessage(body []byte) string {
	var resp struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return ""
	}
	return resp.Message
}
