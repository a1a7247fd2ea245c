package jito

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/viper"
	"github.com/ybbus/jsonrpc/v3"

	"bundler/config"
	"bundler/logger"
	"bundler/types"
)

// Regional block-engine hosts published by Jito. The caller picks one
// region per client, there is no cross-region failover here.
var regionHosts = map[string]string{
	"mainnet":   "https://mainnet.block-engine.jito.wtf",
	"amsterdam": "https://amsterdam.mainnet.block-engine.jito.wtf",
	"frankfurt": "https://frankfurt.mainnet.block-engine.jito.wtf",
	"ny":        "https://ny.mainnet.block-engine.jito.wtf",
	"tokyo":     "https://tokyo.mainnet.block-engine.jito.wtf",
	"slc":       "https://slc.mainnet.block-engine.jito.wtf",
}

// BlockEngineURL resolves the bundle endpoint for a region, preferring the
// configured override.
func BlockEngineURL(region string) string {
	if url := viper.GetString("jito.block-engine-url"); url != "" {
		return url
	}
	host, ok := regionHosts[region]
	if !ok {
		host = regionHosts[config.DefaultRegion]
		logger.RelayLogger.Warn("Unknown relay region, using default", "region", region, "default", config.DefaultRegion)
	}
	return host + "/api/v1/bundles"
}

// Client is a stateless wrapper around one block-engine endpoint. Every
// call is an independent request/response exchange.
type Client struct {
	region string
	rpc    jsonrpc.RPCClient
}

func NewClient(region string) *Client {
	return &Client{
		region: region,
		rpc:    jsonrpc.NewClient(BlockEngineURL(region)),
	}
}

// NewClientWithURL binds the client to an explicit endpoint, bypassing the
// region catalogue.
func NewClientWithURL(region, url string) *Client {
	return &Client{
		region: region,
		rpc:    jsonrpc.NewClient(url),
	}
}

func (c *Client) Region() string { return c.region }

// GetTipAccounts fetches the published set of tip recipient accounts.
func (c *Client) GetTipAccounts(ctx context.Context) ([]string, error) {
	resp, err := c.rpc.Call(ctx, "getTipAccounts", []interface{}{})
	if err != nil {
		return nil, fmt.Errorf("getTipAccounts failed: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("getTipAccounts returned error: %d %s", resp.Error.Code, resp.Error.Message)
	}

	var accounts []string
	if err := resp.GetObject(&accounts); err != nil {
		return nil, fmt.Errorf("getTipAccounts malformed result: %w", err)
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("getTipAccounts returned empty set")
	}
	return accounts, nil
}

// SendBundle submits the signed transactions as one atomic bundle and
// returns the relay's bundle id. Transactions land in the submitted order
// or not at all.
func (c *Client) SendBundle(ctx context.Context, txs []*solana.Transaction) (string, error) {
	if len(txs) == 0 {
		return "", fmt.Errorf("%w: empty bundle", types.ErrRelayRejected)
	}
	if len(txs) > config.MaxBundleTxs {
		return "", fmt.Errorf("%w: %d transactions, limit %d", types.ErrBundleTooLarge, len(txs), config.MaxBundleTxs)
	}

	encoded := make([]string, 0, len(txs))
	for i, tx := range txs {
		b64, err := tx.ToBase64()
		if err != nil {
			return "", fmt.Errorf("failed to serialize bundle transaction %d: %w", i, err)
		}
		encoded = append(encoded, b64)
	}

	resp, err := c.rpc.Call(ctx, "sendBundle", []interface{}{encoded, map[string]string{"encoding": "base64"}})
	if err != nil {
		return "", fmt.Errorf("sendBundle failed: %w", err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("%w: %s", types.ErrRelayRejected, resp.Error.Message)
	}

	bundleID, err := resp.GetString()
	if err != nil || bundleID == "" {
		return "", fmt.Errorf("%w: missing bundle id in response", types.ErrRelayRejected)
	}

	logger.RelayLogger.Info("Bundle accepted by relay", "region", c.region, "bundle_id", bundleID, "tx_count", len(txs))
	return bundleID, nil
}

type statusesResult struct {
	Context struct {
		Slot uint64 `json:"slot"`
	} `json:"context"`
	Value []*types.BundleStatus `json:"value"`
}

type inflightResult struct {
	Context struct {
		Slot uint64 `json:"slot"`
	} `json:"context"`
	Value []*types.InflightStatus `json:"value"`
}

// GetBundleStatuses looks up landed-bundle statuses. The result holds one
// entry per requested id; nil entries mean the relay does not know the
// bundle yet, which is normal during the propagation window.
func (c *Client) GetBundleStatuses(ctx context.Context, bundleIDs []string) ([]*types.BundleStatus, error) {
	resp, err := c.rpc.Call(ctx, "getBundleStatuses", []interface{}{bundleIDs})
	if err != nil {
		return nil, fmt.Errorf("getBundleStatuses failed: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("getBundleStatuses returned error: %d %s", resp.Error.Code, resp.Error.Message)
	}

	var result statusesResult
	if err := resp.GetObject(&result); err != nil {
		return nil, fmt.Errorf("getBundleStatuses malformed result: %w", err)
	}
	return result.Value, nil
}

// GetInflightBundleStatuses looks up the relay's pre-landing view, which
// distinguishes "not yet seen" from "seen but not yet landed".
func (c *Client) GetInflightBundleStatuses(ctx context.Context, bundleIDs []string) ([]*types.InflightStatus, error) {
	resp, err := c.rpc.Call(ctx, "getInflightBundleStatuses", []interface{}{bundleIDs})
	if err != nil {
		return nil, fmt.Errorf("getInflightBundleStatuses failed: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("getInflightBundleStatuses returned error: %d %s", resp.Error.Code, resp.Error.Message)
	}

	var result inflightResult
	if err := resp.GetObject(&result); err != nil {
		return nil, fmt.Errorf("getInflightBundleStatuses malformed result: %w", err)
	}
	return result.Value, nil
}
