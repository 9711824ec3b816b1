package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Pranav418/micro-merch/internal/domain"
)

// Client talks to the storefront gateway over its REST contract. It holds
// no snapshot state; callers own whatever they fetch.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type PlaceOrderRequestDTO struct {
	UserID int64              `json:"user_id"`
	Items  []domain.OrderLine `json:"items"`
}

type errorResponseDTO struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

// FetchCatalog returns the current product list.
func (c *Client) FetchCatalog(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	if err := c.getJSON(ctx, "/products", "fetch catalog", &products); err != nil {
		return nil, err
	}
	return products, nil
}

// FetchUsers returns all known users.
func (c *Client) FetchUsers(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	if err := c.getJSON(ctx, "/users", "fetch users", &users); err != nil {
		return nil, err
	}
	return users, nil
}

// FetchOrders returns the enriched order history for a user.
func (c *Client) FetchOrders(ctx context.Context, userID int64) ([]domain.Order, error) {
	var orders []domain.Order
	path := fmt.Sprintf("/users/%d/orders", userID)
	if err := c.getJSON(ctx, path, "fetch orders", &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// PlaceOrder submits the cart contents as an order. A structured 4xx
// rejection comes back as *ValidationError, anything else as *NetworkError.
func (c *Client) PlaceOrder(ctx context.Context, userID int64, items []domain.OrderLine) (*domain.OrderConfirmation, error) {
	body, err := json.Marshal(PlaceOrderRequestDTO{UserID: userID, Items: items})
	if err != nil {
		return nil, &NetworkError{Op: "place order", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return nil, &NetworkError{Op: "place order", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: "place order", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var conf domain.OrderConfirmation
		if err := json.NewDecoder(resp.Body).Decode(&conf); err != nil {
			return nil, &NetworkError{Op: "place order: decode confirmation", Err: err}
		}
		return &conf, nil
	}

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		var rejection errorResponseDTO
		if err := json.NewDecoder(resp.Body).Decode(&rejection); err == nil && rejection.Error != "" {
			return nil, &ValidationError{Message: rejection.Error, Details: rejection.Details}
		}
	}
	return nil, &NetworkError{Op: fmt.Sprintf("place order: unexpected status %d", resp.StatusCode)}
}

// Seed re-initializes the remote user and product data. Callers are
// expected to refetch afterwards; nothing is cached here.
func (c *Client) Seed(ctx context.Context) error {
	if err := c.postEmpty(ctx, "/users/init", "seed users"); err != nil {
		return err
	}
	return c.postEmpty(ctx, "/products/init", "seed products")
}

func (c *Client) getJSON(ctx context.Context, path, op string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &NetworkError{Op: fmt.Sprintf("%s: unexpected status %d", op, resp.StatusCode)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &NetworkError{Op: op + ": decode response", Err: err}
	}
	return nil
}

func (c *Client) postEmpty(ctx context.Context, path, op string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, nil)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &NetworkError{Op: fmt.Sprintf("%s: unexpected status %d", op, resp.StatusCode)}
	}
	return nil
}
