package jito

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"

	"bundler/logger"
	"bundler/types"
)

func init() {
	logger.InitLogs("jito_test")
}

type rpcRequest struct {
	Jsonrpc string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// newFakeRelay fakes the block-engine JSON-RPC surface. The handler
// returns either a result or an error envelope per method call.
func newFakeRelay(t *testing.T, handle func(method string, params json.RawMessage) (any, string)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("malformed request body: %v", err)
			return
		}

		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		result, errMsg := handle(req.Method, req.Params)
		if errMsg != "" {
			resp["error"] = map[string]any{"code": -32000, "message": errMsg}
		} else {
			resp["result"] = result
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func signedTransfer(t *testing.T, lamports uint64) *solana.Transaction {
	t.Helper()
	key := solana.NewWallet().PrivateKey
	ix := system.NewTransferInstruction(lamports, key.PublicKey(), solana.NewWallet().PublicKey()).Build()
	tx, err := solana.NewTransaction([]solana.Instruction{ix}, solana.Hash{}, solana.TransactionPayer(key.PublicKey()))
	if err != nil {
		t.Fatalf("failed to build transaction: %v", err)
	}
	_, err = tx.Sign(func(k solana.PublicKey) *solana.PrivateKey {
		if k.Equals(key.PublicKey()) {
			return &key
		}
		return nil
	})
	if err != nil {
		t.Fatalf("failed to sign transaction: %v", err)
	}
	return tx
}

func TestSendBundle(t *testing.T) {
	var gotTxs int
	ts := newFakeRelay(t, func(method string, params json.RawMessage) (any, string) {
		if method != "sendBundle" {
			t.Errorf("unexpected method: %s", method)
		}
		var parsed []json.RawMessage
		if err := json.Unmarshal(params, &parsed); err != nil || len(parsed) != 2 {
			t.Errorf("expected [txs, opts] params, got %s", string(params))
			return nil, "bad params"
		}
		var txs []string
		_ = json.Unmarshal(parsed[0], &txs)
		gotTxs = len(txs)
		var opts map[string]string
		_ = json.Unmarshal(parsed[1], &opts)
		if opts["encoding"] != "base64" {
			t.Errorf("expected base64 encoding option, got %v", opts)
		}
		return "testbundleid", ""
	})
	defer ts.Close()

	client := NewClientWithURL("mainnet", ts.URL)
	bundleID, err := client.SendBundle(context.Background(), []*solana.Transaction{
		signedTransfer(t, 1000),
		signedTransfer(t, 2000),
	})
	if err != nil {
		t.Fatalf("SendBundle failed: %v", err)
	}
	if bundleID != "testbundleid" {
		t.Errorf("unexpected bundle id: %s", bundleID)
	}
	if gotTxs != 2 {
		t.Errorf("expected 2 encoded transactions on the wire, got %d", gotTxs)
	}
}

func TestSendBundleRelayError(t *testing.T) {
	ts := newFakeRelay(t, func(method string, params json.RawMessage) (any, string) {
		return nil, "bundle exceeds max size"
	})
	defer ts.Close()

	client := NewClientWithURL("mainnet", ts.URL)
	_, err := client.SendBundle(context.Background(), []*solana.Transaction{signedTransfer(t, 1000)})
	if !errors.Is(err, types.ErrRelayRejected) {
		t.Fatalf("expected ErrRelayRejected, got %v", err)
	}
}

func TestSendBundleTooLarge(t *testing.T) {
	called := false
	ts := newFakeRelay(t, func(method string, params json.RawMessage) (any, string) {
		called = true
		return "unreachable", ""
	})
	defer ts.Close()

	txs := make([]*solana.Transaction, 6)
	for i := range txs {
		txs[i] = signedTransfer(t, 1000)
	}

	client := NewClientWithURL("mainnet", ts.URL)
	_, err := client.SendBundle(context.Background(), txs)
	if !errors.Is(err, types.ErrBundleTooLarge) {
		t.Fatalf("expected ErrBundleTooLarge, got %v", err)
	}
	if called {
		t.Error("oversized bundle must be rejected before the wire")
	}
}

func TestGetTipAccounts(t *testing.T) {
	ts := newFakeRelay(t, func(method string, params json.RawMessage) (any, string) {
		if method != "getTipAccounts" {
			t.Errorf("unexpected method: %s", method)
		}
		return []string{"tipacct1", "tipacct2"}, ""
	})
	defer ts.Close()

	client := NewClientWithURL("mainnet", ts.URL)
	accounts, err := client.GetTipAccounts(context.Background())
	if err != nil {
		t.Fatalf("GetTipAccounts failed: %v", err)
	}
	if len(accounts) != 2 || accounts[0] != "tipacct1" {
		t.Errorf("unexpected accounts: %v", accounts)
	}
}

func TestGetBundleStatuses(t *testing.T) {
	ts := newFakeRelay(t, func(method string, params json.RawMessage) (any, string) {
		return map[string]any{
			"context": map[string]any{"slot": 350000123},
			"value": []any{
				nil,
				map[string]any{
					"bundle_id":           "known",
					"slot":                350000120,
					"confirmation_status": "finalized",
					"err":                 map[string]any{"Ok": nil},
				},
			},
		}, ""
	})
	defer ts.Close()

	client := NewClientWithURL("mainnet", ts.URL)
	statuses, err := client.GetBundleStatuses(context.Background(), []string{"unknown", "known"})
	if err != nil {
		t.Fatalf("GetBundleStatuses failed: %v", err)
	}
	if len(statuses) != 2 {
		t.Fatalf("expected one slot per requested id, got %d", len(statuses))
	}
	if statuses[0] != nil {
		t.Error("unknown bundle must come back as nil, not an error")
	}
	if statuses[1] == nil || !statuses[1].Landed() {
		t.Errorf("expected landed status, got %+v", statuses[1])
	}
	if statuses[1].OnChainErr() != nil {
		t.Errorf("Ok payload must not read as on-chain error: %s", string(statuses[1].OnChainErr()))
	}
}

func TestGetInflightBundleStatuses(t *testing.T) {
	ts := newFakeRelay(t, func(method string, params json.RawMessage) (any, string) {
		return map[string]any{
			"context": map[string]any{"slot": 350000123},
			"value": []any{
				map[string]any{"bundle_id": "pending", "status": "Pending"},
			},
		}, ""
	})
	defer ts.Close()

	client := NewClientWithURL("mainnet", ts.URL)
	inflight, err := client.GetInflightBundleStatuses(context.Background(), []string{"pending"})
	if err != nil {
		t.Fatalf("GetInflightBundleStatuses failed: %v", err)
	}
	if len(inflight) != 1 || inflight[0].Status != types.InflightPending {
		t.Errorf("unexpected inflight statuses: %+v", inflight)
	}
}
