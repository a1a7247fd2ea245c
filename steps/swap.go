package steps

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/spf13/viper"

	"bundler/logger"
	"bundler/types"
	"bundler/utils"
)

var quoteAPIURL string

// QuoteAPIURL resolves the swap aggregator endpoint, preferring the
// configured override.
func QuoteAPIURL() string {
	if quoteAPIURL != "" {
		return quoteAPIURL
	}

	quoteAPIURL = viper.GetString("swap.quote-api-url")
	if quoteAPIURL == "" {
		quoteAPIURL = "https://quote-api.jup.ag/v6"
		logger.BundleLogger.Warn("swap.quote-api-url not set in config, using default", "url", quoteAPIURL)
	}

	return quoteAPIURL
}

// SwapBuilder wraps the aggregator's quote/swap API. The aggregator
// returns a fully formed transaction for the quoted route; business
// correctness of the quote (price, slippage economics) is its problem,
// not ours.
type SwapBuilder struct {
	url string
}

func NewSwapBuilder() *SwapBuilder {
	return &SwapBuilder{url: QuoteAPIURL()}
}

func NewSwapBuilderWithURL(url string) *SwapBuilder {
	return &SwapBuilder{url: url}
}

func (b *SwapBuilder) Kind() types.StepKind { return types.StepSwap }

type swapResponse struct {
	SwapTransaction string `json:"swapTransaction"`
}

func (b *SwapBuilder) Build(ctx context.Context, step types.BundleStep, payer solana.PublicKey) (*solana.Transaction, *float64, error) {
	swap, ok := step.(types.SwapStep)
	if !ok {
		return nil, nil, fmt.Errorf("swap builder got step kind %s", step.Kind())
	}

	params := map[string]string{
		"inputMint":   swap.InputMint.String(),
		"outputMint":  swap.OutputMint.String(),
		"amount":      strconv.FormatUint(swap.Amount, 10),
		"slippageBps": strconv.FormatUint(swap.SlippageBps, 10),
	}

	// The raw quote is passed back verbatim in the swap request, only the
	// quoted output amount is read out of it.
	var quote json.RawMessage
	err := utils.GetUrlResponseWithRetry(b.url+"/quote", params, &quote, utils.DefaultRetryTimes, logger.BundleLogger)
	if err != nil {
		return nil, nil, fmt.Errorf("swap quote failed: %w", err)
	}
	note := quotedOutAmount(quote)

	body := map[string]interface{}{
		"quoteResponse": quote,
		"userPublicKey": payer.String(),
		// The bundle carries its own tip, priority fees would be wasted.
		"prioritizationFeeLamports": 0,
	}
	var resp swapResponse
	err = utils.PostUrlResponse(b.url+"/swap", body, &resp, logger.BundleLogger)
	if err != nil {
		return nil, nil, fmt.Errorf("swap transaction request failed: %w", err)
	}
	if resp.SwapTransaction == "" {
		return nil, nil, fmt.Errorf("swap API returned no transaction")
	}

	raw, err := base64.StdEncoding.DecodeString(resp.SwapTransaction)
	if err != nil {
		return nil, nil, fmt.Errorf("swap transaction is not valid base64: %w", err)
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode swap transaction: %w", err)
	}

	return tx, note, nil
}

func quotedOutAmount(quote json.RawMessage) *float64 {
	var parsed struct {
		OutAmount string `json:"outAmount"`
	}
	if err := json.Unmarshal(quote, &parsed); err != nil {
		return nil
	}
	out, err := strconv.ParseFloat(parsed.OutAmount, 64)
	if err != nil {
		return nil
	}
	return &out
}
