package etherscan

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/opensource-finance/harrier/internal/domain"
)

const testAddr = "0x00009277775ac7d0d59eaad8fee3d10ac6c805e8"

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewClient(domain.ChainConfig{
		BaseURL:           srv.URL,
		APIKey:            "test-key",
		PageSize:          2,
		MaxPages:          3,
		RequestIntervalMs: 0,
		MaxAttempts:       2,
	}, nil)
	return client, srv
}

func writeEnvelope(w http.ResponseWriter, status, message string, result any) {
	raw, _ := json.Marshal(result)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  status,
		"message": message,
		"result":  json.RawMessage(raw),
	})
}

func TestBalance(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("action"); got != "balance" {
			t.Errorf("unexpected action %q", got)
		}
		if got := r.URL.Query().Get("apikey"); got != "test-key" {
			t.Errorf("api key not forwarded, got %q", got)
		}
		writeEnvelope(w, "1", "OK", "2500000000000000000")
	}))

	balance, err := client.Balance(context.Background(), testAddr)
	if err != nil {
		t.Fatalf("balance failed: %v", err)
	}
	if balance != "2500000000000000000" {
		t.Errorf("unexpected balance %q", balance)
	}
}

func TestTransactionsEmptyWallet(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, "0", "No transactions found", []any{})
	}))

	txs, err := client.Transactions(context.Background(), testAddr)
	if err != nil {
		t.Fatalf("expected empty result, got error: %v", err)
	}
	if len(txs) != 0 {
		t.Errorf("expected no transactions, got %d", len(txs))
	}
}

func TestTransactionsPagination(t *testing.T) {
	var pages atomic.Int32
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		pages.Add(1)
		switch page {
		case "1":
			writeEnvelope(w, "1", "OK", []domain.Transaction{
				{Hash: "0xa", From: testAddr},
				{Hash: "0xb", From: testAddr},
			})
		case "2":
			writeEnvelope(w, "1", "OK", []domain.Transaction{
				{Hash: "0xc", From: testAddr},
			})
		default:
			t.Errorf("unexpected page %q", page)
			writeEnvelope(w, "1", "OK", []domain.Transaction{})
		}
	}))

	txs, err := client.Transactions(context.Background(), testAddr)
	if err != nil {
		t.Fatalf("transactions failed: %v", err)
	}
	if len(txs) != 3 {
		t.Errorf("expected 3 transactions, got %d", len(txs))
	}
	// A short page stops pagination.
	if pages.Load() != 2 {
		t.Errorf("expected 2 page fetches, got %d", pages.Load())
	}
}

func TestPaginationCapped(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Always a full page: only the cap can stop us.
		writeEnvelope(w, "1", "OK", []domain.Transaction{
			{Hash: "0xa", From: testAddr},
			{Hash: "0xb", From: testAddr},
		})
	}))

	txs, err := client.Transactions(context.Background(), testAddr)
	if err != nil {
		t.Fatalf("transactions failed: %v", err)
	}
	if len(txs) != 6 {
		t.Errorf("expected 3 pages x 2 txs, got %d", len(txs))
	}
}

func TestRateLimitRetriesThenFails(t *testing.T) {
	var calls atomic.Int32
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	_, err := client.Balance(context.Background(), testAddr)
	if err == nil {
		t.Fatal("expected rate limit error")
	}
	if calls.Load() != 2 {
		t.Errorf("expected maxAttempts=2 calls, got %d", calls.Load())
	}
}

func TestRateLimitRecovery(t *testing.T) {
	var calls atomic.Int32
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		writeEnvelope(w, "1", "OK", "0")
	}))

	balance, err := client.Balance(context.Background(), testAddr)
	if err != nil {
		t.Fatalf("expected recovery after throttle, got %v", err)
	}
	if balance != "0" {
		t.Errorf("unexpected balance %q", balance)
	}
}

func TestServerErrorIsPermanent(t *testing.T) {
	var calls atomic.Int32
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))

	if _, err := client.Balance(context.Background(), testAddr); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("permanent errors must not retry, got %d calls", calls.Load())
	}
}

func TestProviderStatusZeroError(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, "0", "Max rate limit reached", nil)
	}))

	if _, err := client.Transactions(context.Background(), testAddr); err == nil {
		t.Fatal("expected error for non-empty status 0")
	}
}

func TestFetchAssemblesSnapshot(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("action") {
		case "txlist":
			writeEnvelope(w, "1", "OK", []domain.Transaction{{Hash: "0xa", From: testAddr}})
		case "tokentx":
			writeEnvelope(w, "0", "No transactions found", nil)
		case "balance":
			writeEnvelope(w, "1", "OK", "1000000000000000000")
		default:
			t.Errorf("unexpected action %q", r.URL.Query().Get("action"))
		}
	}))

	snap, err := client.Fetch(context.Background(), testAddr)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if snap.Address != testAddr {
		t.Errorf("unexpected address %q", snap.Address)
	}
	if len(snap.NativeTxs) != 1 || len(snap.TokenTxs) != 0 {
		t.Errorf("unexpected tx counts %d/%d", len(snap.NativeTxs), len(snap.TokenTxs))
	}
	if snap.BalanceWei != "1000000000000000000" {
		t.Errorf("unexpected balance %q", snap.BalanceWei)
	}
	if snap.FetchedAt.IsZero() {
		t.Error("missing fetch timestamp")
	}
}
