package steps

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"

	"bundler/types"
)

func newFakeQuoteAPI(t *testing.T, outAmount string) *httptest.Server {
	t.Helper()

	key := solana.NewWallet().PrivateKey
	ix := system.NewTransferInstruction(1, key.PublicKey(), solana.NewWallet().PublicKey()).Build()
	routeTx, err := solana.NewTransaction([]solana.Instruction{ix}, solana.Hash{}, solana.TransactionPayer(key.PublicKey()))
	if err != nil {
		t.Fatalf("failed to build route transaction: %v", err)
	}
	b64, err := routeTx.ToBase64()
	if err != nil {
		t.Fatalf("failed to encode route transaction: %v", err)
	}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/quote":
			if r.URL.Query().Get("inputMint") == "" || r.URL.Query().Get("amount") == "" {
				t.Errorf("missing quote query params: %s", r.URL.RawQuery)
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"inputMint": r.URL.Query().Get("inputMint"),
				"outAmount": outAmount,
			})
		case "/swap":
			var body map[string]json.RawMessage
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("malformed swap body: %v", err)
			}
			if _, ok := body["quoteResponse"]; !ok {
				t.Error("swap request must echo the quote response")
			}
			_ = json.NewEncoder(w).Encode(map[string]string{"swapTransaction": b64})
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestSwapBuild(t *testing.T) {
	ts := newFakeQuoteAPI(t, "123456")
	defer ts.Close()

	builder := NewSwapBuilderWithURL(ts.URL)
	payer := solana.NewWallet().PublicKey()

	tx, note, err := builder.Build(context.Background(), types.SwapStep{
		InputMint:   solana.NewWallet().PublicKey(),
		OutputMint:  solana.NewWallet().PublicKey(),
		Amount:      100000000,
		SlippageBps: 50,
	}, payer)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if tx == nil || len(tx.Message.Instructions) == 0 {
		t.Fatal("expected a decoded swap transaction")
	}
	if note == nil || *note != 123456 {
		t.Errorf("expected quoted out amount 123456, got %v", note)
	}
}

func TestSwapQuoteFailurePropagates(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	builder := NewSwapBuilderWithURL(ts.URL)
	_, _, err := builder.Build(context.Background(), types.SwapStep{
		InputMint:  solana.NewWallet().PublicKey(),
		OutputMint: solana.NewWallet().PublicKey(),
		Amount:     1,
	}, solana.NewWallet().PublicKey())
	if err == nil {
		t.Fatal("expected quote failure to propagate as build failure")
	}
}

func TestSwapMissingTransaction(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/quote" {
			_ = json.NewEncoder(w).Encode(map[string]string{"outAmount": "1"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer ts.Close()

	builder := NewSwapBuilderWithURL(ts.URL)
	_, _, err := builder.Build(context.Background(), types.SwapStep{
		InputMint:  solana.NewWallet().PublicKey(),
		OutputMint: solana.NewWallet().PublicKey(),
		Amount:     1,
	}, solana.NewWallet().PublicKey())
	if err == nil {
		t.Fatal("expected error when the API returns no transaction")
	}
}
