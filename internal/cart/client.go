package cart

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"vitrine/internal/logging"

	"github.com/google/uuid"
)

const (
	pathAdd    = "api/cart/add"
	pathUpdate = "api/cart/update"
	pathRemove = "api/cart/remove"
	pathCoupon = "api/cart/coupon"
	pathSearch = "api/search"

	maxResponseBytes = 1 << 20
	userAgent        = "vitrine/1.0"
)

var errMissingItems = errors.New("response cart has no items array")

type requestIDKey struct{}

// WithRequestID attaches a correlation id that the client sends as X-Request-ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom returns the correlation id carried by ctx, if any.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Client speaks the storefront cart and search HTTP contract.
type Client struct {
	base    *url.URL
	http    *http.Client
	timeout time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the underlying HTTP client, typically one sharing the
// storefront session cookie jar.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds each request. Zero disables the per-request bound.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.timeout = d }
}

// NewClient creates a client rooted at baseURL (e.g. https://shop.example.com).
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https, got %q", baseURL)
	}
	c := &Client{
		base:    u,
		http:    http.DefaultClient,
		timeout: 15 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the storefront root.
func (c *Client) BaseURL() *url.URL {
	u := *c.base
	return &u
}

type addRequest struct {
	ProductID string            `json:"product_id"`
	Quantity  int               `json:"quantity"`
	Options   map[string]string `json:"options"`
}

type updateRequest struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

type removeRequest struct {
	ItemID string `json:"item_id"`
}

type couponRequest struct {
	Code string `json:"code"`
}

type mutationResponse struct {
	Success bool      `json:"success"`
	Cart    *Snapshot `json:"cart"`
	Message string    `json:"message"`
}

type couponResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type searchResponse struct {
	Products []Product `json:"products"`
}

// AddItem posts to /api/cart/add.
func (c *Client) AddItem(ctx context.Context, a AddItem) (Snapshot, error) {
	opts := a.Options
	if opts == nil {
		opts = map[string]string{}
	}
	return c.mutate(ctx, "add to cart", pathAdd, addRequest{
		ProductID: a.ProductID,
		Quantity:  a.Quantity,
		Options:   opts,
	})
}

// UpdateItem posts to /api/cart/update.
func (c *Client) UpdateItem(ctx context.Context, a UpdateItem) (Snapshot, error) {
	return c.mutate(ctx, "update cart", pathUpdate, updateRequest{ItemID: a.ItemID, Quantity: a.Quantity})
}

// RemoveItem posts to /api/cart/remove.
func (c *Client) RemoveItem(ctx context.Context, a RemoveItem) (Snapshot, error) {
	return c.mutate(ctx, "remove from cart", pathRemove, removeRequest{ItemID: a.ItemID})
}

// ApplyCoupon posts to /api/cart/coupon and returns the server message.
func (c *Client) ApplyCoupon(ctx context.Context, a ApplyCoupon) (string, error) {
	const op = "apply coupon"
	var resp couponResponse
	if err := c.do(ctx, op, http.MethodPost, c.base.JoinPath(pathCoupon), couponRequest{Code: strings.TrimSpace(a.Code)}, &resp); err != nil {
		return "", err
	}
	if !resp.Success {
		return "", &ApplicationError{Op: op, Message: resp.Message}
	}
	return resp.Message, nil
}

// Search queries /api/search?q=.
func (c *Client) Search(ctx context.Context, query string) ([]Product, error) {
	const op = "search"
	u := c.base.JoinPath(pathSearch)
	u.RawQuery = url.Values{"q": {query}}.Encode()

	var resp searchResponse
	if err := c.do(ctx, op, http.MethodGet, u, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Products, nil
}

func (c *Client) mutate(ctx context.Context, op, path string, body interface{}) (Snapshot, error) {
	var resp mutationResponse
	if err := c.do(ctx, op, http.MethodPost, c.base.JoinPath(path), body, &resp); err != nil {
		return Snapshot{}, err
	}
	if !resp.Success {
		return Snapshot{}, &ApplicationError{Op: op, Message: resp.Message}
	}
	if resp.Cart == nil || resp.Cart.Items == nil {
		return Snapshot{}, &TransportError{Op: op, Err: errMissingItems}
	}
	return *resp.Cart, nil
}

// do sends one JSON request and decodes the JSON reply into out. The HTTP
// status is not interpreted: the body decides success.
func (c *Client) do(ctx context.Context, op, method string, u *url.URL, body, out interface{}) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &TransportError{Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("build request: %w", err)}
	}
	reqID := RequestIDFrom(ctx)
	if reqID == "" {
		reqID = uuid.NewString()
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-ID", reqID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		logging.TransportWarn("%s %s failed (req=%s): %v", method, u.Path, reqID, err)
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}
	logging.TransportDebug("%s %s -> HTTP %d in %s (req=%s, %d bytes)", method, u.Path, resp.StatusCode, time.Since(start), reqID, len(data))

	if err := json.Unmarshal(data, out); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("decode response (HTTP %d): %w", resp.StatusCode, err)}
	}
	return nil
}
