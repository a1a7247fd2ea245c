package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultRetryTimes    = 3
	DefaultRetryInterval = 100 * time.Millisecond
	DefaultTimeout       = 5 * time.Second
)

func GetUrlResponse(url string, params map[string]string, result any, logger *slog.Logger) error {
	return GetUrlResponseWithRetry(url, params, result, 1, logger)
}

// GetUrlResponseWithRetry issues a GET and decodes the JSON response into
// result, retrying up to retry attempts with exponential backoff. Only for
// idempotent reads.
func GetUrlResponseWithRetry(url string, params map[string]string, result any, retry uint64, logger *slog.Logger) error {
	reqUrl := url
	if len(params) > 0 {
		q := "?"
		for k, v := range params {
			q += fmt.Sprintf("%s=%s&", k, v)
		}
		reqUrl += q[:len(q)-1] // Remove trailing '&'
	}

	attempt := 0
	op := func() error {
		attempt++
		err := doGet(reqUrl, result)
		if err != nil {
			logger.Warn("GET request failed", "url", reqUrl, "attempt", attempt, "err", err)
		}
		return err
	}
	err := backoff.Retry(op, retryPolicy(retry))
	if err != nil {
		return fmt.Errorf("GET request failed after %d attempts: %w", attempt, err)
	}
	return nil
}

func PostUrlResponse(url string, body any, result any, logger *slog.Logger) error {
	return PostUrlResponseWithRetry(url, body, result, 1, logger)
}

func PostUrlResponseWithRetry(url string, body any, result any, retry uint64, logger *slog.Logger) error {
	attempt := 0
	op := func() error {
		attempt++
		err := doPost(url, body, result)
		if err != nil {
			logger.Warn("POST request failed", "url", url, "attempt", attempt, "err", err)
		}
		return err
	}
	err := backoff.Retry(op, retryPolicy(retry))
	if err != nil {
		return fmt.Errorf("POST request failed after %d attempts: %w", attempt, err)
	}
	return nil
}

func retryPolicy(retry uint64) backoff.BackOff {
	if retry <= 1 {
		return &backoff.StopBackOff{}
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = DefaultRetryInterval
	return backoff.WithMaxRetries(b, retry-1)
}

func doGet(url string, result any) error {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create GET request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GET request returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(result); err != nil {
		return fmt.Errorf("failed to stream and unmarshal GET response: %w", err)
	}

	return nil
}

func doPost(url string, body any, result any) error {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	defer cancel()

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal POST body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create POST request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("POST request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyResp, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("POST request returned status %d: %s", resp.StatusCode, string(bodyResp))
	}

	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(result); err != nil {
		return fmt.Errorf("failed to stream and unmarshal POST response: %w", err)
	}

	return nil
}
