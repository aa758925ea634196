package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rhobart/minimart/internal/domain"
)

// SandboxBaseURL is the provider's sandbox API host.
const SandboxBaseURL = "https://api-m.sandbox.paypal.com"

const defaultTimeout = 15 * time.Second

// Config contains the provider credentials and endpoint.
type Config struct {
	BaseURL  string
	ClientID string
	Secret   string
	Timeout  time.Duration
}

// Client is the HTTP implementation of Provider. The OAuth access token is
// cached and refreshed when it nears expiry.
type Client struct {
	cfg  Config
	http *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

var _ Provider = (*Client)(nil)

// NewClient creates a provider client. BaseURL defaults to the sandbox host.
func NewClient(cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.Secret == "" {
		return nil, domain.Invalid("paypal.new", "Missing PayPal client credentials")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = SandboxBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// CreateOrder creates a remote order for the given amount.
func (c *Client) CreateOrder(ctx context.Context, amount decimal.Decimal, currency string, octx OrderContext) (*Order, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	type amountBody struct {
		CurrencyCode string `json:"currency_code"`
		Value        string `json:"value"`
	}
	type purchaseUnit struct {
		Amount amountBody `json:"amount"`
	}
	type appContext struct {
		ReturnURL string `json:"return_url,omitempty"`
		CancelURL string `json:"cancel_url,omitempty"`
	}
	body := struct {
		Intent        string         `json:"intent"`
		PurchaseUnits []purchaseUnit `json:"purchase_units"`
		AppContext    *appContext    `json:"application_context,omitempty"`
	}{
		Intent: "CAPTURE",
		PurchaseUnits: []purchaseUnit{{
			Amount: amountBody{CurrencyCode: currency, Value: amount.StringFixed(2)},
		}},
	}
	if octx.ReturnURL != "" || octx.CancelURL != "" {
		body.AppContext = &appContext{ReturnURL: octx.ReturnURL, CancelURL: octx.CancelURL}
	}

	var resp struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Links  []struct {
			Href string `json:"href"`
			Rel  string `json:"rel"`
		} `json:"links"`
	}
	if err := c.postJSON(ctx, "/v2/checkout/orders", token, body, &resp); err != nil {
		return nil, fmt.Errorf("failed to create paypal order: %w", err)
	}

	order := &Order{ID: resp.ID, Status: resp.Status}
	for _, link := range resp.Links {
		if link.Rel == "approve" {
			order.ApproveURL = link.Href
			break
		}
	}
	return order, nil
}

// CaptureOrder captures the funds for an approved order.
func (c *Client) CaptureOrder(ctx context.Context, orderID string) (*CaptureResult, error) {
	if orderID == "" {
		return nil, domain.Invalid("paypal.capture", "Missing PayPal order id")
	}

	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	var resp struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	path := "/v2/checkout/orders/" + url.PathEscape(orderID) + "/capture"
	if err := c.postJSON(ctx, path, token, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to capture paypal order: %w", err)
	}

	return &CaptureResult{OrderID: resp.ID, Status: resp.Status}, nil
}

// accessToken returns a cached client-credentials token, fetching a fresh
// one when the cache is empty or stale.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		token := c.token
		c.mu.Unlock()
		return token, nil
	}
	c.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/v1/oauth2/token",
		strings.NewReader("grant_type=client_credentials"))
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.Secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", domain.Internal(err, "paypal.token", "PayPal authentication failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", domain.Internal(
			fmt.Errorf("status %d: %s", resp.StatusCode, text),
			"paypal.token", "PayPal authentication failed")
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}

	c.mu.Lock()
	c.token = body.AccessToken
	// Refresh a minute early so in-flight calls never race expiry.
	c.tokenExpiry = time.Now().Add(time.Duration(body.ExpiresIn)*time.Second - time.Minute)
	c.mu.Unlock()

	return body.AccessToken, nil
}

func (c *Client) postJSON(ctx context.Context, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status %d: %s", resp.StatusCode, text)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
