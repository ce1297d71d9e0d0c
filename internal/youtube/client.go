package youtube

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"time"
)

// Production endpoints for the YouTube Data API v3.
const (
	DefaultAPIBaseURL    = "https://www.googleapis.com/youtube/v3"
	DefaultUploadBaseURL = "https://www.googleapis.com/upload/youtube/v3"
)

// Retry and backoff constants.
const (
	maxRetries     = 5
	baseBackoff    = 1 * time.Second
	maxBackoff     = 60 * time.Second
	backoffFactor  = 2.0
	jitterFraction = 0.25
	userAgent      = "ytup/0.1"
)

// chunkAlignment is the required alignment for upload chunk sizes (256 KiB).
// All chunks except the final one must be a multiple of this value.
const chunkAlignment = 256 * 1024

// DefaultChunkSize is the per-request transfer size for resumable uploads.
const DefaultChunkSize = 8 * 1024 * 1024

// TokenSource provides OAuth2 bearer tokens. Defined at the consumer per Go
// convention "accept interfaces, return structs"; the auth broker provides
// the real implementation.
type TokenSource interface {
	Token() (string, error)
}

// Client is an HTTP client for the YouTube Data API.
// It handles request construction, authentication, retry with exponential
// backoff, and error classification. Metadata calls go to apiBase; resumable
// upload session initiation goes to uploadBase.
type Client struct {
	apiBase    string
	uploadBase string
	httpClient *http.Client
	token      TokenSource
	logger     *slog.Logger
	chunkSize  int64

	// sleepFunc is called to wait between retries. Defaults to timeSleep.
	// Tests override this to avoid real delays.
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// NewClient creates a YouTube API client. apiBase and uploadBase are
// typically DefaultAPIBaseURL and DefaultUploadBaseURL.
func NewClient(apiBase, uploadBase string, httpClient *http.Client, token TokenSource, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		apiBase:    apiBase,
		uploadBase: uploadBase,
		httpClient: httpClient,
		token:      token,
		logger:     logger,
		chunkSize:  DefaultChunkSize,
		sleepFunc:  timeSleep,
	}
}

// SetChunkSize overrides the resumable upload chunk size. The value is
// rounded down to the nearest 256 KiB multiple; values below one alignment
// unit are clamped to it.
func (c *Client) SetChunkSize(size int64) {
	size -= size % chunkAlignment
	if size < chunkAlignment {
		size = chunkAlignment
	}

	c.chunkSize = size
}

// do executes a JSON API request with retry. The body is kept as bytes so
// each retry attempt sends a fresh reader — retrying a partially consumed
// io.Reader is not safe.
func (c *Client) do(ctx context.Context, method, url string, body []byte, extraHeaders http.Header) (*http.Response, error) {
	var attempt int
	for {
		resp, err := c.doOnce(ctx, method, url, body, extraHeaders)
		if err != nil {
			// Context cancellation is not retryable.
			if ctx.Err() != nil {
				return nil, fmt.Errorf("youtube: request canceled: %w", ctx.Err())
			}

			// Network errors are retryable.
			if attempt < maxRetries {
				backoff := c.calcBackoff(attempt)
				c.logger.Warn("retrying after network error",
					slog.String("method", method),
					slog.String("url", url),
					slog.Int("attempt", attempt+1),
					slog.Duration("backoff", backoff),
					slog.String("error", err.Error()),
				)

				if sleepErr := c.sleepFunc(ctx, backoff); sleepErr != nil {
					return nil, fmt.Errorf("youtube: request canceled: %w", sleepErr)
				}

				attempt++

				continue
			}

			return nil, fmt.Errorf("youtube: %s %s failed after %d retries: %w", method, url, maxRetries, err)
		}

		// 2xx — success. 3xx never occurs on these endpoints.
		if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
			c.logger.Debug("request succeeded",
				slog.String("method", method),
				slog.Int("status", resp.StatusCode),
			)

			return resp, nil
		}

		// Read and close body for error responses.
		errBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if readErr != nil {
			errBody = []byte("(failed to read response body)")
		}

		if isRetryable(resp.StatusCode) && attempt < maxRetries {
			backoff := c.retryBackoff(resp, attempt)
			c.logger.Warn("retrying after HTTP error",
				slog.String("method", method),
				slog.Int("status", resp.StatusCode),
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", backoff),
			)

			if err := c.sleepFunc(ctx, backoff); err != nil {
				return nil, fmt.Errorf("youtube: request canceled: %w", err)
			}

			attempt++

			continue
		}

		apiErr := newAPIError(resp.StatusCode, errBody)

		if attempt > 0 {
			c.logger.Error("request failed after retries",
				slog.String("method", method),
				slog.Int("status", resp.StatusCode),
				slog.Int("attempts", attempt+1),
			)
		}

		return nil, apiErr
	}
}

// doOnce executes a single HTTP request (no retry).
func (c *Client) doOnce(ctx context.Context, method, url string, body []byte, extraHeaders http.Header) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	tok, err := c.token.Token()
	if err != nil {
		return nil, fmt.Errorf("obtaining token: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("User-Agent", userAgent)

	if body != nil {
		req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	}

	for k, vs := range extraHeaders {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}

	return c.httpClient.Do(req)
}

// retryBackoff returns the backoff duration for a retryable response.
// For 429 responses with a Retry-After header, that value is used.
func (c *Client) retryBackoff(resp *http.Response, attempt int) time.Duration {
	if resp.StatusCode == http.StatusTooManyRequests {
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if seconds, err := strconv.Atoi(ra); err == nil && seconds > 0 {
				return time.Duration(seconds) * time.Second
			}
		}
	}

	return c.calcBackoff(attempt)
}

// calcBackoff computes exponential backoff with ±25% jitter.
func (c *Client) calcBackoff(attempt int) time.Duration {
	backoff := float64(baseBackoff) * math.Pow(backoffFactor, float64(attempt))
	if backoff > float64(maxBackoff) {
		backoff = float64(maxBackoff)
	}

	jitter := backoff * jitterFraction * (rand.Float64()*2 - 1) //nolint:gosec // jitter does not need crypto rand
	backoff += jitter

	return time.Duration(backoff)
}

// timeSleep waits for the given duration or until the context is canceled.
// It is the default sleepFunc for Client.
func timeSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
