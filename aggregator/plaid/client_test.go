package plaid

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, pageSize int) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := newClient(Config{ClientID: "client", SecretSandbox: "secret", PageSize: pageSize}, srv.URL)
	require.NoError(t, err)

	return c
}

type transactionsGetBody struct {
	AccessToken string `json:"access_token"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Options     struct {
		Count  int `json:"count"`
		Offset int `json:"offset"`
	} `json:"options"`
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprint(w, body)
}

func TestNew(t *testing.T) {
	_, err := New(Config{ClientID: "client", Env: EnvProduction, SecretSandbox: "secret"})
	assert.ErrorIs(t, err, ErrNotConfigured)

	c, err := New(Config{ClientID: "client", Env: "Development", SecretDevelopment: "dev"})
	require.NoError(t, err)
	assert.Equal(t, developmentBaseURL, c.baseURL)
	assert.Equal(t, int32(maxPageSize), c.pageSize)

	c, err = New(Config{ClientID: "client", SecretSandbox: "secret", PageSize: 50})
	require.NoError(t, err)
	assert.Equal(t, sandboxBaseURL, c.baseURL)
	assert.Equal(t, int32(50), c.pageSize)
}

func TestFetchTransactions_Paginates(t *testing.T) {
	all := []map[string]any{
		{"transaction_id": "t1", "account_id": "acc-1", "amount": 12.34, "date": "2024-03-01", "name": "SHELL", "merchant_name": "Shell", "pending": false},
		{"transaction_id": "t2", "account_id": "acc-2", "amount": -500, "date": "2024-03-02", "name": "SALARY", "merchant_name": nil, "pending": false},
		{"transaction_id": "t3", "account_id": "acc-1", "amount": 0.1, "date": "2024-03-03", "name": "COFFEE", "pending": true},
	}

	var offsets []int
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transactions/get", r.URL.Path)
		assert.Equal(t, "client", r.Header.Get("PLAID-CLIENT-ID"))
		assert.Equal(t, "secret", r.Header.Get("PLAID-SECRET"))

		var req transactionsGetBody
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "access-token", req.AccessToken)
		assert.Equal(t, "2024-03-01", req.StartDate)
		assert.Equal(t, "2024-03-15", req.EndDate)
		assert.Equal(t, 2, req.Options.Count)
		offsets = append(offsets, req.Options.Offset)

		end := min(req.Options.Offset+req.Options.Count, len(all))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"transactions":       all[req.Options.Offset:end],
			"total_transactions": len(all),
		})
	}, 2)

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	txs, err := c.FetchTransactions(context.Background(), "access-token", start, end)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 2}, offsets)
	require.Len(t, txs, 3)

	assert.Equal(t, "t1", txs[0].TransactionID)
	assert.Equal(t, "acc-1", txs[0].AccountID)
	assert.Equal(t, "Shell", txs[0].MerchantName)
	assert.True(t, txs[0].Amount.Equal(decimal.RequireFromString("12.34")))
	assert.Equal(t, start, txs[0].Date)

	assert.Empty(t, txs[1].MerchantName)
	assert.True(t, txs[1].Amount.Equal(decimal.NewFromInt(-500)))
	assert.True(t, txs[2].Pending)
	assert.True(t, txs[2].Amount.Equal(decimal.RequireFromString("0.1")))
}

func TestFetchTransactions_Error(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, `{"error_type":"ITEM_ERROR","error_code":"ITEM_LOGIN_REQUIRED","error_message":"the login details of this item have changed","display_message":null,"request_id":"req-1"}`)
	}, 0)

	_, err := c.FetchTransactions(context.Background(), "access-token", time.Now(), time.Now())
	require.ErrorIs(t, err, ErrItemLoginRequired)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "req-1", apiErr.RequestID)
}

func TestFetchAccountBalance(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/accounts/balance/get", r.URL.Path)

		var req struct {
			AccessToken string `json:"access_token"`
			Options     struct {
				AccountIDs []string `json:"account_ids"`
			} `json:"options"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "access-token", req.AccessToken)
		assert.Equal(t, []string{"acc-1"}, req.Options.AccountIDs)

		writeJSON(w, http.StatusOK, `{"accounts":[
			{"account_id":"acc-2","balances":{"current":1}},
			{"account_id":"acc-1","balances":{"available":100,"current":123.45,"iso_currency_code":"EUR"}}
		]}`)
	}, 0)

	balance, err := c.FetchAccountBalance(context.Background(), "access-token", "acc-1")
	require.NoError(t, err)
	assert.Equal(t, "123.45", balance.String())

	_, err = c.FetchAccountBalance(context.Background(), "access-token", "acc-3")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestFetchAccountBalance_NoCurrent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"accounts":[{"account_id":"acc-1","balances":{"current":null}}]}`)
	}, 0)

	_, err := c.FetchAccountBalance(context.Background(), "access-token", "acc-1")
	assert.ErrorIs(t, err, ErrNoBalance)
}
