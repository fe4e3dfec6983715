package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/commercekit/paygate/internal/config"
	"github.com/commercekit/paygate/internal/signing"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var (
	// ErrGateway marks an authenticated but rejected provider response.
	// Callers surface a generic failure; retrying will not help.
	ErrGateway = errors.New("gateway rejected request")
	// ErrTransient marks transport failures (timeouts, connection resets).
	// Callers may retry with backoff.
	ErrTransient = errors.New("transient provider failure")
)

type Params struct {
	fx.In

	Cfg config.Config
	Log *zap.Logger
}

// Client talks to the payment provider's checkout and REST endpoints.
type Client struct {
	cfg        config.Config
	log        *zap.Logger
	httpClient *http.Client
}

func NewClient(p Params) *Client {
	return &Client{
		cfg: p.Cfg,
		log: p.Log.Named("provider.client"),
		httpClient: &http.Client{
			Timeout: p.Cfg.ProviderTimeout,
		},
	}
}

type quoteResponse struct {
	Status string `json:"status"`
	Token  string `json:"token"`
}

type statusResponse struct {
	Status string `json:"status"`
}

// CreateQuote posts the signed quote request and returns the checkout token.
func (c *Client) CreateQuote(ctx context.Context, form url.Values) (string, error) {
	body, err := c.do(ctx, http.MethodPost, c.cfg.CreateQuoteURL(), form, nil)
	if err != nil {
		return "", err
	}

	var resp quoteResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("malformed quote response: %w", ErrGateway)
	}
	if !strings.EqualFold(resp.Status, "ok") || resp.Token == "" {
		c.log.Warn("quote request rejected", zap.String("status", resp.Status))
		return "", fmt.Errorf("cannot get payment token: %w", ErrGateway)
	}
	return resp.Token, nil
}

// Refund issues an authenticated refund for the given provider transaction.
func (c *Client) Refund(ctx context.Context, transactionID string, form url.Values) error {
	headers := map[string]string{
		"Authorization": c.cfg.APIHash + ";" + signing.AuthorizationHash(c.cfg.APIHash, c.cfg.MerchantEmail, c.cfg.APISecret),
	}
	body, err := c.do(ctx, http.MethodPut, c.cfg.RestURL("transactions/"+transactionID), form, headers)
	if err != nil {
		return err
	}

	var resp statusResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("malformed refund response: %w", ErrGateway)
	}
	if !strings.EqualFold(resp.Status, "ok") {
		c.log.Warn("refund request rejected",
			zap.String("transaction_id", transactionID),
			zap.String("status", resp.Status),
		)
		return fmt.Errorf("refund rejected: %w", ErrGateway)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method string, endpoint string, form url.Values, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for name, value := range headers {
		req.Header.Set(name, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Transport failures are retryable; nothing reached the provider
		// or the answer was lost.
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode >= 500 {
			return nil, fmt.Errorf("%w: provider returned %d", ErrTransient, resp.StatusCode)
		}
		return nil, fmt.Errorf("provider returned %d: %w", resp.StatusCode, ErrGateway)
	}
	return body, nil
}

var Module = fx.Module("provider.client",
	fx.Provide(NewClient),
)
