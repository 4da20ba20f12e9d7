// Package plaid is the provider gateway backed by the official Plaid SDK.
package plaid

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	plaidsdk "github.com/plaid/plaid-go/v29/plaid"
	"github.com/rs/zerolog"

	"github.com/iho/spareledger/internal/domain"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultPageSize   = 500
	defaultMaxRetries = 3
)

// Config configures the Plaid client.
type Config struct {
	BaseURL    string
	ClientID   string
	Secret     string
	Timeout    time.Duration
	PageSize   int
	MaxRetries uint64
	// RetryInterval is the first backoff wait for transient failures.
	RetryInterval time.Duration
	HTTPClient    *http.Client
	Logger        zerolog.Logger
}

// APIError is an error returned by Plaid.
type APIError struct {
	ErrorType      string
	ErrorCode      string
	ErrorMessage   string
	DisplayMessage string
	RequestID      string
	StatusCode     int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("plaid %s/%s (status %d): %s", e.ErrorType, e.ErrorCode, e.StatusCode, e.ErrorMessage)
}

// Unwrap maps Plaid failures onto the domain taxonomy.
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusTooManyRequests, e.ErrorType == "RATE_LIMIT_EXCEEDED":
		return domain.ErrProviderRateLimited
	case e.StatusCode >= 500, e.ErrorType == "API_ERROR", e.ErrorType == "INSTITUTION_ERROR":
		return domain.ErrProviderUnavailable
	}
	return nil
}

func (e *APIError) transient() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Client implements usecase.ProviderGateway.
type Client struct {
	api           *plaidsdk.PlaidApiService
	logger        zerolog.Logger
	pageSize      int32
	maxRetries    uint64
	retryInterval time.Duration
}

// NewClient creates a new Plaid client. BaseURL selects the environment, for
// example https://sandbox.plaid.com.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("plaid: base URL is required")
	}
	if cfg.ClientID == "" || cfg.Secret == "" {
		return nil, errors.New("plaid: client id and secret are required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = defaultMaxRetries
	}
	retryInterval := cfg.RetryInterval
	if retryInterval <= 0 {
		retryInterval = 500 * time.Millisecond
	}

	sdkCfg := plaidsdk.NewConfiguration()
	sdkCfg.AddDefaultHeader("PLAID-CLIENT-ID", cfg.ClientID)
	sdkCfg.AddDefaultHeader("PLAID-SECRET", cfg.Secret)
	sdkCfg.UseEnvironment(plaidsdk.Environment(strings.TrimRight(cfg.BaseURL, "/")))
	sdkCfg.HTTPClient = httpClient

	return &Client{
		api:           plaidsdk.NewAPIClient(sdkCfg).PlaidApi,
		logger:        cfg.Logger.With().Str("component", "plaid").Logger(),
		pageSize:      int32(pageSize),
		maxRetries:    maxRetries,
		retryInterval: retryInterval,
	}, nil
}

// FetchDelta pulls one page of transaction changes after cursor. An empty
// cursor starts from the beginning of the item's history.
func (c *Client) FetchDelta(ctx context.Context, accessToken, cursor string) (*domain.DeltaPage, error) {
	req := plaidsdk.NewTransactionsSyncRequest(accessToken)
	req.SetCount(c.pageSize)
	if cursor != "" {
		req.SetCursor(cursor)
	}

	resp, err := call(ctx, c, "/transactions/sync", func(ctx context.Context) (plaidsdk.TransactionsSyncResponse, *http.Response, error) {
		return c.api.TransactionsSync(ctx).TransactionsSyncRequest(*req).Execute()
	})
	if err != nil {
		return nil, err
	}

	added, modified, removed := resp.GetAdded(), resp.GetModified(), resp.GetRemoved()
	page := &domain.DeltaPage{
		NextCursor: resp.GetNextCursor(),
		HasMore:    resp.GetHasMore(),
		Added:      make([]domain.ProviderTransaction, 0, len(added)),
		Modified:   make([]domain.ProviderTransaction, 0, len(modified)),
		Removed:    make([]string, 0, len(removed)),
	}
	for _, t := range added {
		pt, err := transactionToDomain(t)
		if err != nil {
			return nil, fmt.Errorf("plaid: transaction %s: %w", t.GetTransactionId(), err)
		}
		page.Added = append(page.Added, pt)
	}
	for _, t := range modified {
		pt, err := transactionToDomain(t)
		if err != nil {
			return nil, fmt.Errorf("plaid: transaction %s: %w", t.GetTransactionId(), err)
		}
		page.Modified = append(page.Modified, pt)
	}
	for _, r := range removed {
		page.Removed = append(page.Removed, r.GetTransactionId())
	}

	c.logger.Debug().
		Str("request_id", resp.GetRequestId()).
		Int("added", len(page.Added)).
		Bool("has_more", page.HasMore).
		Msg("fetched transaction delta")

	return page, nil
}

// ListAccounts returns the accounts of an item with their current balances.
func (c *Client) ListAccounts(ctx context.Context, accessToken string) ([]domain.ProviderAccount, error) {
	req := plaidsdk.NewAccountsGetRequest(accessToken)

	resp, err := call(ctx, c, "/accounts/get", func(ctx context.Context) (plaidsdk.AccountsGetResponse, *http.Response, error) {
		return c.api.AccountsGet(ctx).AccountsGetRequest(*req).Execute()
	})
	if err != nil {
		return nil, err
	}

	accounts := make([]domain.ProviderAccount, 0, len(resp.GetAccounts()))
	for _, a := range resp.GetAccounts() {
		accounts = append(accounts, accountToDomain(a))
	}

	return accounts, nil
}

// ExchangePublicToken trades a link public token for a long-lived access token.
func (c *Client) ExchangePublicToken(ctx context.Context, publicToken string) (*domain.LinkedCredential, error) {
	req := plaidsdk.NewItemPublicTokenExchangeRequest(publicToken)

	resp, err := call(ctx, c, "/item/public_token/exchange", func(ctx context.Context) (plaidsdk.ItemPublicTokenExchangeResponse, *http.Response, error) {
		return c.api.ItemPublicTokenExchange(ctx).ItemPublicTokenExchangeRequest(*req).Execute()
	})
	if err != nil {
		return nil, err
	}

	return &domain.LinkedCredential{AccessToken: resp.GetAccessToken(), ItemID: resp.GetItemId()}, nil
}

// RemoveItem revokes an access token.
func (c *Client) RemoveItem(ctx context.Context, accessToken string) error {
	req := plaidsdk.NewItemRemoveRequest(accessToken)

	_, err := call(ctx, c, "/item/remove", func(ctx context.Context) (plaidsdk.ItemRemoveResponse, *http.Response, error) {
		return c.api.ItemRemove(ctx).ItemRemoveRequest(*req).Execute()
	})

	return err
}

// call runs one SDK request, retrying transport failures, 5xx and 429
// responses with exponential backoff. Other 4xx responses fail immediately.
func call[T any](ctx context.Context, c *Client, path string, fn func(ctx context.Context) (T, *http.Response, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryInterval
	b.MaxInterval = 10 * c.retryInterval

	var out T
	attempt := 0
	op := func() error {
		attempt++
		resp, httpResp, err := fn(ctx)
		if err == nil {
			out = resp
			return nil
		}

		err = responseError(httpResp, err)

		var (
			apiErr *APIError
			perm   *backoff.PermanentError
		)
		if errors.As(err, &perm) {
			return err
		}
		if errors.As(err, &apiErr) && !apiErr.transient() {
			return backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}

		c.logger.Warn().
			Err(err).
			Str("path", path).
			Int("attempt", attempt).
			Msg("plaid request failed, retrying")

		return err
	}

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, c.maxRetries), ctx))
	if err == nil {
		return out, nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return out, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return out, ctxErr
	}

	return out, fmt.Errorf("%w: %s: %w", domain.ErrProviderUnavailable, path, err)
}

// responseError turns an SDK failure into an *APIError when Plaid answered,
// or a permanent decode error when a 2xx body could not be read. Transport
// failures are returned unchanged.
func responseError(httpResp *http.Response, err error) error {
	if httpResp == nil {
		return err
	}
	if httpResp.StatusCode < http.StatusMultipleChoices {
		return backoff.Permanent(fmt.Errorf("plaid: decode response: %w", err))
	}

	apiErr := &APIError{StatusCode: httpResp.StatusCode}
	if plaidErr, convErr := plaidsdk.ToPlaidError(err); convErr == nil && plaidErr.GetErrorCode() != "" {
		apiErr.ErrorType = string(plaidErr.GetErrorType())
		apiErr.ErrorCode = plaidErr.GetErrorCode()
		apiErr.ErrorMessage = plaidErr.GetErrorMessage()
		apiErr.DisplayMessage = plaidErr.GetDisplayMessage()
		apiErr.RequestID = plaidErr.GetRequestId()
		return apiErr
	}

	apiErr.ErrorType = "HTTP_ERROR"
	apiErr.ErrorCode = http.StatusText(httpResp.StatusCode)
	apiErr.ErrorMessage = err.Error()
	return apiErr
}
