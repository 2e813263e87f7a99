package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"linguini-ordering-web/internal/model"
)

// ErrUnauthorized is returned when the Linguini API rejects the bearer
// token with a 401. Callers must treat the session as invalid and must
// not retry.
var ErrUnauthorized = errors.New("upstream: unauthorized")

// StatusError is returned for any other non-2xx upstream response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream: status %d: %s", e.StatusCode, e.Body)
}

// CartClient talks to the external Linguini cart API on behalf of
// authenticated visitors. The server is the single source of truth;
// this client never retries a failed mutation.
type CartClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewCartClient creates a client for the cart API at baseURL.
func NewCartClient(baseURL string, timeout time.Duration) *CartClient {
	return &CartClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *CartClient) newRequest(ctx context.Context, method, path, token string, body interface{}) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// do executes the request and decodes a 2xx response body into out
// (when out is non-nil). 401 maps to ErrUnauthorized, any other non-2xx
// to a StatusError.
func (c *CartClient) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// FetchCart retrieves the full authenticated cart.
func (c *CartClient) FetchCart(ctx context.Context, token string) (*model.ServerCart, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/fetchCart", token, nil)
	if err != nil {
		return nil, err
	}

	var cart model.ServerCart
	if err := c.do(req, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// FetchCount retrieves just the item count. Cheaper than FetchCart;
// the navbar badge polls this.
func (c *CartClient) FetchCount(ctx context.Context, token string) (int, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/cartAuth", token, nil)
	if err != nil {
		return 0, err
	}

	var body struct {
		Count int `json:"count"`
	}
	if err := c.do(req, &body); err != nil {
		return 0, err
	}
	if body.Count < 0 {
		return 0, nil
	}
	return body.Count, nil
}

// AddProduct adds a product to the server cart.
func (c *CartClient) AddProduct(ctx context.Context, token string, productID int64, qty int) error {
	path := fmt.Sprintf("/cart/items/%d", productID)
	req, err := c.newRequest(ctx, http.MethodPost, path, token, map[string]int{"qty": qty})
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// UpdateQuantity sets the absolute quantity of a cart line.
func (c *CartClient) UpdateQuantity(ctx context.Context, token string, lineID int64, qty int) error {
	path := fmt.Sprintf("/cart/items/%d", lineID)
	req, err := c.newRequest(ctx, http.MethodPatch, path, token, map[string]int{"qty": qty})
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// RemoveItem deletes a cart line.
func (c *CartClient) RemoveItem(ctx context.Context, token string, lineID int64) error {
	path := fmt.Sprintf("/cart/items/%d", lineID)
	req, err := c.newRequest(ctx, http.MethodDelete, path, token, nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}
