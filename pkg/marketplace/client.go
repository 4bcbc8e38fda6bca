package marketplace

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

	pkgerrors "github.com/angelmondragon/packfinderz-storefront/pkg/errors"
)

const (
	defaultTimeout             = 10 * time.Second
	responseBodyReadLimit int64 = 1024
)

var (
	errBaseURLRequired = errors.New("marketplace base url is required")
	errTokenRequired   = errors.New("bearer token is required for cart calls")
)

// envelope keys the API has used to wrap payloads, in lookup order.
var (
	dataKeys    = []string{"data", "product", "produit"}
	listKeys    = []string{"data", "variants", "variantes", "items", "lignes"}
	cartObjKeys = []string{"data", "cart", "panier"}
)

// Client talks to the marketplace REST backend: catalog reads and the customer cart.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// NewClient builds the marketplace client for the given base URL (e.g. https://api.example.com/api).
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}

	client := &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// GetProduct fetches and normalizes a single product.
func (c *Client) GetProduct(ctx context.Context, productID string) (*Product, error) {
	id := strings.TrimSpace(productID)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	var raw any
	if err := c.do(ctx, http.MethodGet, "products/"+url.PathEscape(id), "", nil, &raw); err != nil {
		return nil, err
	}
	obj := unwrapObject(raw, dataKeys...)
	if obj == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "unexpected product payload")
	}
	product, err := normalizeProduct(obj)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode product")
	}
	return product, nil
}

// GetProductVariants lists the variants of a product.
func (c *Client) GetProductVariants(ctx context.Context, productID string) ([]Variant, error) {
	id := strings.TrimSpace(productID)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	var raw any
	if err := c.do(ctx, http.MethodGet, "products/"+url.PathEscape(id)+"/variants", "", nil, &raw); err != nil {
		return nil, err
	}
	items := unwrapList(raw)
	variants := make([]Variant, 0, len(items))
	for _, item := range items {
		variants = append(variants, normalizeVariant(item))
	}
	return variants, nil
}

// GetCart returns the server-side cart of the customer owning token.
func (c *Client) GetCart(ctx context.Context, token string) ([]CartLine, error) {
	if strings.TrimSpace(token) == "" {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, errTokenRequired, "get cart")
	}

	var raw any
	if err := c.do(ctx, http.MethodGet, "cart", token, nil, &raw); err != nil {
		return nil, err
	}
	if obj := unwrapObject(raw, cartObjKeys...); obj != nil {
		raw = map[string]any(obj)
	}
	// an empty body or an unknown envelope is not an empty cart
	if _, ok := rawList(raw); !ok {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "unexpected cart payload")
	}
	items := unwrapList(raw)
	lines := make([]CartLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, normalizeCartLine(item))
	}
	return lines, nil
}

type addToCartRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	VariantID string `json:"variant_id,omitempty"`
}

// AddToCart adds quantity of a product (and optional variant) to the customer cart.
func (c *Client) AddToCart(ctx context.Context, token, productID string, quantity int, variantID string) error {
	if strings.TrimSpace(token) == "" {
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, errTokenRequired, "add to cart")
	}
	body := addToCartRequest{ProductID: productID, Quantity: quantity, VariantID: variantID}
	return c.do(ctx, http.MethodPost, "cart/items", token, body, nil)
}

// RemoveFromCart deletes a line of the customer cart.
func (c *Client) RemoveFromCart(ctx context.Context, token, lineID string) error {
	if strings.TrimSpace(token) == "" {
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, errTokenRequired, "remove from cart")
	}
	return c.do(ctx, http.MethodDelete, "cart/items/"+url.PathEscape(lineID), token, nil, nil)
}

// ClearCart empties the customer cart.
func (c *Client) ClearCart(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, errTokenRequired, "clear cart")
	}
	return c.do(ctx, http.MethodDelete, "cart", token, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path, token string, body any, dest any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "marketplace client not configured")
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal marketplace request")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.buildURL(path), reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build marketplace request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("%s %s", method, path))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		cause := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
		code := pkgerrors.CodeDependency
		switch resp.StatusCode {
		case http.StatusNotFound:
			code = pkgerrors.CodeNotFound
		case http.StatusUnauthorized:
			code = pkgerrors.CodeUnauthorized
		}
		return pkgerrors.Wrap(code, cause, fmt.Sprintf("%s %s failed", method, path))
	}

	if dest == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()
	if err := decoder.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode marketplace response")
	}
	return nil
}

func (c *Client) buildURL(path string) string {
	return fmt.Sprintf("%s/%s", c.baseURL, strings.TrimLeft(path, "/"))
}

// unwrapObject returns the payload object, descending into a known envelope key when the
// object itself does not look like the entity.
func unwrapObject(raw any, keys ...string) payload {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil
	}
	for _, key := range keys {
		if inner, isObj := obj[key].(map[string]any); isObj {
			return payload(inner)
		}
	}
	return payload(obj)
}

// rawList returns the list carried by raw, either raw itself or the first known list key.
func rawList(raw any) ([]any, bool) {
	switch typed := raw.(type) {
	case []any:
		return typed, true
	case map[string]any:
		for _, key := range listKeys {
			if list, ok := typed[key].([]any); ok {
				return list, true
			}
		}
	}
	return nil, false
}

func unwrapList(raw any) []payload {
	items, _ := rawList(raw)
	out := make([]payload, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, payload(obj))
		}
	}
	return out
}
