package nets

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/rhobart/minimart/internal/domain"
)

// Sandbox endpoints for the provider's QR API.
const (
	SandboxRequestURL = "https://sandbox.nets.openapipaas.com/api/v1/common/payments/nets-qr/request"
	SandboxQueryURL   = "https://sandbox.nets.openapipaas.com/api/v1/common/payments/nets-qr/query"
)

// Polling constants for the status stream.
const (
	DefaultPollInterval   = 3 * time.Second
	DefaultStreamBudget   = 5 * time.Minute
	DefaultRequestTimeout = 12 * time.Second
)

// ErrQRGeneration is surfaced when the provider answers without a usable QR.
var ErrQRGeneration = &domain.Error{Code: domain.EPAYMENT, Message: "An error occurred while generating the QR code"}

// Config contains the provider credentials, endpoints and polling tuning.
// Zero-valued fields take the sandbox/default constants.
type Config struct {
	RequestURL string
	QueryURL   string
	APIKey     string
	ProjectID  string

	// TxnID is the merchant transaction id template sent on QR requests.
	TxnID string

	RequestTimeout time.Duration
	PollInterval   time.Duration
	StreamBudget   time.Duration
}

// Client is the HTTP implementation of Provider.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

var _ Provider = (*Client)(nil)

// NewClient creates a provider client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.RequestURL == "" {
		cfg.RequestURL = SandboxRequestURL
	}
	if cfg.QueryURL == "" {
		cfg.QueryURL = SandboxQueryURL
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.StreamBudget <= 0 {
		cfg.StreamBudget = DefaultStreamBudget
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.RequestTimeout},
		logger: logger.With("component", "nets"),
	}
}

// envelope is the provider's outer response wrapper.
type envelope struct {
	Result struct {
		Data TxnData `json:"data"`
	} `json:"result"`
}

// RequestQR asks the provider for a scannable code.
func (c *Client) RequestQR(ctx context.Context, amountInDollars string) (*QR, error) {
	body := map[string]any{
		"txn_id":         c.cfg.TxnID,
		"amt_in_dollars": amountInDollars,
		"notify_mobile":  0,
	}

	data, err := c.postWithRetry(ctx, c.cfg.RequestURL, body)
	if err != nil {
		return nil, err
	}

	if data.ResponseCode != "00" || data.TxnStatus != 1 || data.QRCode == "" {
		if data.ErrorMessage != "" {
			return nil, &domain.Error{Code: domain.EPAYMENT, Op: "nets.request_qr", Message: data.ErrorMessage}
		}
		return nil, ErrQRGeneration
	}

	return &QR{
		CodeBase64:    data.QRCode,
		RetrievalRef:  data.RetrievalRef,
		TxnID:         c.cfg.TxnID,
		QRID:          data.QRID,
		NetworkStatus: data.NetworkStatus,
	}, nil
}

// QueryStatus performs a single status poll.
func (c *Client) QueryStatus(ctx context.Context, ref QueryRef) (*StatusResult, error) {
	if ref.RetrievalRef == "" {
		return nil, domain.Invalid("nets.query", "Missing transaction reference")
	}

	body := map[string]any{"txn_retrieval_ref": ref.RetrievalRef}
	if ref.TxnID != "" {
		body["txn_id"] = ref.TxnID
	}
	if ref.QRID != "" {
		body["txn_nets_qr_id"] = ref.QRID
	}

	data, err := c.post(ctx, c.cfg.QueryURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to query payment status: %w", err)
	}

	return &StatusResult{Status: Classify(*data), Data: *data}, nil
}

// Stream polls the provider until a terminal result, the budget elapsing,
// or cancellation. Poll errors are logged and treated as still-pending so a
// transient provider hiccup does not fail a payment in flight.
func (c *Client) Stream(ctx context.Context, ref QueryRef) <-chan StatusResult {
	out := make(chan StatusResult)

	go func() {
		defer close(out)

		ticker := time.NewTicker(c.cfg.PollInterval)
		defer ticker.Stop()

		deadline := time.Now().Add(c.cfg.StreamBudget)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			res, err := c.QueryStatus(ctx, ref)
			if err != nil {
				c.logger.Warn("status poll failed",
					"retrieval_ref", ref.RetrievalRef,
					"error", err)
				res = &StatusResult{Status: StatusPending}
			}

			if !time.Now().Before(deadline) && res.Status == StatusPending {
				res = &StatusResult{Status: StatusFail, Data: res.Data}
			}

			select {
			case out <- *res:
			case <-ctx.Done():
				return
			}

			if res.Status != StatusPending {
				return
			}
		}
	}()

	return out
}

// postWithRetry retries once on 502/503/504 and connection timeouts. Any
// other failure, or a second retryable failure, is returned as-is.
func (c *Client) postWithRetry(ctx context.Context, url string, body map[string]any) (*TxnData, error) {
	data, err := c.post(ctx, url, body)
	if err == nil {
		return data, nil
	}
	if !retryable(err) {
		return nil, err
	}

	c.logger.Warn("retrying provider request", "url", url, "error", err)

	data, err = c.post(ctx, url, body)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// httpStatusError marks a non-2xx provider response for retry classification.
type httpStatusError struct {
	status int
	body   string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("provider returned status %d: %s", e.status, e.body)
}

func retryable(err error) bool {
	var se *httpStatusError
	if errors.As(err, &se) {
		return se.status == http.StatusBadGateway ||
			se.status == http.StatusServiceUnavailable ||
			se.status == http.StatusGatewayTimeout
	}
	// Client-side timeouts present as deadline exceeded or a net timeout.
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var timeout interface{ Timeout() bool }
	return errors.As(err, &timeout) && timeout.Timeout()
}

func (c *Client) post(ctx context.Context, url string, body map[string]any) (*TxnData, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.cfg.APIKey)
	req.Header.Set("project-id", c.cfg.ProjectID)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &httpStatusError{status: resp.StatusCode, body: string(text)}
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &env.Result.Data, nil
}
