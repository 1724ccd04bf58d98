// Package etherscan fetches wallet history from an Etherscan-compatible
// HTTP API: native transaction lists, ERC-20 transfer lists, and the
// current balance.
package etherscan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/metrics"
	"github.com/opensource-finance/harrier/internal/retry"
)

// ErrRateLimited is returned when the provider throttles us after all
// retries are spent.
var ErrRateLimited = errors.New("provider rate limited")

// ErrUpstream wraps other provider-side failures.
var ErrUpstream = errors.New("provider error")

// noTransactionsMessage is the provider's status-0 answer for an empty
// but valid wallet. It is a result, not an error.
const noTransactionsMessage = "No transactions found"

// Client talks to one Etherscan-compatible endpoint. Calls are spaced
// by a minimum interval so free-tier API keys survive batch scoring.
type Client struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	logger      *slog.Logger
	pageSize    int
	maxPages    int
	maxAttempts int

	mu          sync.Mutex
	minInterval time.Duration
	lastCall    time.Time
}

// NewClient creates a provider client from chain configuration.
func NewClient(cfg domain.ChainConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}
	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = 10
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger:      logger,
		pageSize:    pageSize,
		maxPages:    maxPages,
		maxAttempts: maxAttempts,
		minInterval: cfg.RequestInterval(),
	}
}

// Fetch retrieves the full snapshot for one wallet.
func (c *Client) Fetch(ctx context.Context, address string) (*domain.WalletSnapshot, error) {
	nativeTxs, err := c.Transactions(ctx, address)
	if err != nil {
		return nil, err
	}
	tokenTxs, err := c.TokenTransfers(ctx, address)
	if err != nil {
		return nil, err
	}
	balance, err := c.Balance(ctx, address)
	if err != nil {
		return nil, err
	}

	return &domain.WalletSnapshot{
		Address:    address,
		NativeTxs:  nativeTxs,
		TokenTxs:   tokenTxs,
		BalanceWei: balance,
		FetchedAt:  time.Now().UTC(),
	}, nil
}

// Transactions returns the wallet's native transaction list.
func (c *Client) Transactions(ctx context.Context, address string) ([]domain.Transaction, error) {
	return c.listPages(ctx, "txlist", address)
}

// TokenTransfers returns the wallet's ERC-20 transfer list.
func (c *Client) TokenTransfers(ctx context.Context, address string) ([]domain.Transaction, error) {
	return c.listPages(ctx, "tokentx", address)
}

// Balance returns the wallet's current balance in wei.
func (c *Client) Balance(ctx context.Context, address string) (string, error) {
	params := url.Values{
		"module":  {"account"},
		"action":  {"balance"},
		"address": {address},
		"tag":     {"latest"},
	}

	var balance string
	err := c.withRetry(ctx, "balance", func() error {
		env, err := c.call(ctx, params)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(env.Result, &balance); err != nil {
			return retry.Permanent(fmt.Errorf("%w: malformed balance: %v", ErrUpstream, err))
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return balance, nil
}

// listPages walks a paginated list action until a short page or the
// page cap.
func (c *Client) listPages(ctx context.Context, action, address string) ([]domain.Transaction, error) {
	var all []domain.Transaction

	for page := 1; page <= c.maxPages; page++ {
		params := url.Values{
			"module":  {"account"},
			"action":  {action},
			"address": {address},
			"page":    {strconv.Itoa(page)},
			"offset":  {strconv.Itoa(c.pageSize)},
			"sort":    {"asc"},
		}

		var batch []domain.Transaction
		err := c.withRetry(ctx, action, func() error {
			env, err := c.call(ctx, params)
			if err != nil {
				return err
			}
			if env.Status == "0" {
				// Status 0 with the empty-wallet message is fine; any
				// other status-0 answer is a real provider error.
				if env.Message == noTransactionsMessage {
					batch = nil
					return nil
				}
				return retry.Permanent(fmt.Errorf("%w: %s", ErrUpstream, env.Message))
			}
			batch = nil
			if err := json.Unmarshal(env.Result, &batch); err != nil {
				return retry.Permanent(fmt.Errorf("%w: malformed result: %v", ErrUpstream, err))
			}
			return nil
		})
		if err != nil {
			return nil, err
		}

		all = append(all, batch...)
		if len(batch) < c.pageSize {
			break
		}
	}

	return all, nil
}

// envelope is the provider's response wrapper.
type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

func (c *Client) withRetry(ctx context.Context, action string, fn func() error) error {
	metrics.ProviderRequestsTotal.WithLabelValues(action).Inc()

	err := retry.Do(ctx, c.maxAttempts, 500*time.Millisecond, fn)
	if err != nil {
		reason := "upstream"
		if errors.Is(err, ErrRateLimited) {
			reason = "rate_limited"
		}
		metrics.ProviderErrorsTotal.WithLabelValues(action, reason).Inc()
		c.logger.Warn("provider call failed", "action", action, "error", err)
	}
	return err
}

// call performs one spaced HTTP request and decodes the envelope.
// HTTP 429 and 403 are transient (retryable); other non-200 statuses
// are permanent.
func (c *Client) call(ctx context.Context, params url.Values) (*envelope, error) {
	c.pace(ctx)

	if c.apiKey != "" {
		params.Set("apikey", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("%w: build request: %v", ErrUpstream, err))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, retry.Permanent(fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUpstream, err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, retry.Permanent(fmt.Errorf("%w: malformed envelope: %v", ErrUpstream, err))
	}
	return &env, nil
}

// pace enforces the minimum interval between provider calls.
func (c *Client) pace(ctx context.Context) {
	if c.minInterval <= 0 {
		return
	}

	c.mu.Lock()
	now := time.Now()
	next := c.lastCall.Add(c.minInterval)
	wait := next.Sub(now)
	if wait > 0 {
		c.lastCall = next
	} else {
		c.lastCall = now
		wait = 0
	}
	c.mu.Unlock()

	if wait == 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(wait):
	}
}
