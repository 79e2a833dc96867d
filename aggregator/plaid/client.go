// Package plaid fetches transactions and balances from Plaid through the plaid-go SDK.
package plaid

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	plaidsdk "github.com/plaid/plaid-go/v20/plaid"
	"github.com/shopspring/decimal"

	"github.com/eqtlab/ledger-syncer/syncer"
)

const (
	EnvSandbox     = "sandbox"
	EnvDevelopment = "development"
	EnvProduction  = "production"

	sandboxBaseURL     = "https://sandbox.plaid.com"
	developmentBaseURL = "https://development.plaid.com"
	productionBaseURL  = "https://production.plaid.com"

	maxPageSize = 500
)

// nolint:lll
type Config struct {
	ClientID          string        `env:"CLIENT_ID"`
	Env               string        `env:"ENV, default=sandbox"` // sandbox, development or production
	SecretSandbox     string        `env:"SECRET_SANDBOX"`
	SecretDevelopment string        `env:"SECRET_DEVELOPMENT"`
	SecretProduction  string        `env:"SECRET_PRODUCTION"`
	Timeout           time.Duration `env:"TIMEOUT, default=30s"`
	PageSize          int           `env:"PAGE_SIZE, default=500"` // Transactions per /transactions/get call, at most 500
}

// Secret returns the secret of the selected environment.
func (c Config) Secret() string {
	switch strings.ToLower(c.Env) {
	case EnvProduction:
		return c.SecretProduction
	case EnvDevelopment:
		return c.SecretDevelopment
	default:
		return c.SecretSandbox
	}
}

func (c Config) baseURL() string {
	switch strings.ToLower(c.Env) {
	case EnvProduction:
		return productionBaseURL
	case EnvDevelopment:
		return developmentBaseURL
	default:
		return sandboxBaseURL
	}
}

// Client implements syncer.Aggregator.
type Client struct {
	api      *plaidsdk.PlaidApiService
	baseURL  string
	pageSize int32
}

func New(cfg Config) (*Client, error) {
	return newClient(cfg, cfg.baseURL())
}

func newClient(cfg Config, baseURL string) (*Client, error) {
	if cfg.ClientID == "" || cfg.Secret() == "" {
		return nil, ErrNotConfigured
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	conf := plaidsdk.NewConfiguration()
	conf.AddDefaultHeader("PLAID-CLIENT-ID", cfg.ClientID)
	conf.AddDefaultHeader("PLAID-SECRET", cfg.Secret())
	conf.UseEnvironment(plaidsdk.Environment(baseURL))
	conf.HTTPClient = &http.Client{Timeout: timeout}

	return &Client{
		api:      plaidsdk.NewAPIClient(conf).PlaidApi,
		baseURL:  baseURL,
		pageSize: int32(pageSize),
	}, nil
}

// FetchTransactions pages through /transactions/get until total_transactions are collected.
func (c *Client) FetchTransactions(ctx context.Context, token string, start, end time.Time) ([]syncer.RawTransaction, error) {
	opts := plaidsdk.TransactionsGetRequestOptions{}
	opts.SetCount(c.pageSize)

	req := plaidsdk.TransactionsGetRequest{
		AccessToken: token,
		StartDate:   start.Format(syncer.DateLayout),
		EndDate:     end.Format(syncer.DateLayout),
		Options:     &opts,
	}

	var out []syncer.RawTransaction
	for {
		resp, httpResp, err := c.api.TransactionsGet(ctx).TransactionsGetRequest(req).Execute()
		if err != nil {
			return nil, fmt.Errorf("transactions get offset %d: %w", opts.GetOffset(), apiError(httpResp, err))
		}

		txs := resp.GetTransactions()
		for _, tx := range txs {
			raw, err := toRaw(tx)
			if err != nil {
				return nil, err
			}
			out = append(out, raw)
		}

		if len(txs) == 0 || len(out) >= int(resp.GetTotalTransactions()) {
			return out, nil
		}
		opts.SetOffset(int32(len(out)))
	}
}

func toRaw(tx plaidsdk.Transaction) (syncer.RawTransaction, error) {
	date, err := time.Parse(syncer.DateLayout, tx.GetDate())
	if err != nil {
		return syncer.RawTransaction{}, fmt.Errorf("transaction %s date: %w", tx.GetTransactionId(), err)
	}

	return syncer.RawTransaction{
		AccountID:     tx.GetAccountId(),
		TransactionID: tx.GetTransactionId(),
		Date:          date,
		Amount:        decimal.NewFromFloat(tx.GetAmount()),
		MerchantName:  tx.GetMerchantName(),
		Name:          tx.GetName(),
		Pending:       tx.GetPending(),
	}, nil
}

// FetchAccountBalance returns the current balance of accountID from /accounts/balance/get.
func (c *Client) FetchAccountBalance(ctx context.Context, token, accountID string) (decimal.Decimal, error) {
	opts := plaidsdk.AccountsBalanceGetRequestOptions{}
	opts.SetAccountIds([]string{accountID})

	req := plaidsdk.AccountsBalanceGetRequest{
		AccessToken: token,
		Options:     &opts,
	}

	resp, httpResp, err := c.api.AccountsBalanceGet(ctx).AccountsBalanceGetRequest(req).Execute()
	if err != nil {
		return decimal.Zero, fmt.Errorf("accounts balance get: %w", apiError(httpResp, err))
	}

	for _, acc := range resp.GetAccounts() {
		if acc.GetAccountId() != accountID {
			continue
		}
		balances := acc.GetBalances()
		current, ok := balances.GetCurrentOk()
		if !ok || current == nil {
			return decimal.Zero, fmt.Errorf("%w: %s", ErrNoBalance, accountID)
		}
		return decimal.NewFromFloat(*current), nil
	}

	return decimal.Zero, fmt.Errorf("%w: %s", ErrAccountNotFound, accountID)
}

// apiError turns an SDK error into *APIError when Plaid answered with an error body.
func apiError(resp *http.Response, err error) error {
	perr, convErr := plaidsdk.ToPlaidError(err)
	if convErr != nil {
		return err
	}

	apiErr := &APIError{
		ErrorType:    string(perr.GetErrorType()),
		ErrorCode:    perr.GetErrorCode(),
		ErrorMessage: perr.GetErrorMessage(),
		RequestID:    perr.GetRequestId(),
	}
	if resp != nil {
		apiErr.StatusCode = resp.StatusCode
	}

	return apiErr
}
