// Package client implements the HTTP client for the pushdeck server API:
// VAPID key issuance and subscription registration/deletion.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avdushin/pushdeck/internal/models"
)

const (
	apiVAPIDPublicKey = "/api/vapid-public-key"
	apiSubscribe      = "/api/subscribe"
)

// Client is the pushdeck API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new API client for the server at baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// VAPIDPublicKey fetches the server's public signing key used to create
// push subscriptions.
func (c *Client) VAPIDPublicKey(ctx context.Context) (string, error) {
	var resp struct {
		PublicKey string `json:"publicKey"`
	}
	if err := c.doRequest(ctx, http.MethodGet, apiVAPIDPublicKey, nil, &resp); err != nil {
		return "", fmt.Errorf("client.VAPIDPublicKey: %w", err)
	}
	if resp.PublicKey == "" {
		return "", fmt.Errorf("client.VAPIDPublicKey: empty key in response")
	}
	return resp.PublicKey, nil
}

// Subscribe registers a platform subscription with the server and returns
// the server-issued subscription identifier.
func (c *Client) Subscribe(ctx context.Context, sub *models.Subscription, userID string) (string, error) {
	req := struct {
		Subscription *models.Subscription `json:"subscription"`
		UserID       string               `json:"userId"`
	}{Subscription: sub, UserID: userID}

	var resp struct {
		SubscriptionID string `json:"subscriptionId"`
	}
	if err := c.doRequest(ctx, http.MethodPost, apiSubscribe, req, &resp); err != nil {
		return "", fmt.Errorf("client.Subscribe: %w", err)
	}
	if resp.SubscriptionID == "" {
		return "", fmt.Errorf("client.Subscribe: empty subscription id in response")
	}
	return resp.SubscriptionID, nil
}

// Unsubscribe deletes a server subscription registration by its
// server-issued identifier.
func (c *Client) Unsubscribe(ctx context.Context, subscriptionID string) error {
	path := apiSubscribe + "/" + url.PathEscape(subscriptionID)
	if err := c.doRequest(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("client.Unsubscribe: %w", err)
	}
	return nil
}

// doRequest performs one JSON request against the API, decoding the
// response into out when out is non-nil.
func (c *Client) doRequest(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
