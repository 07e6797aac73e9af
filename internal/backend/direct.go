package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// directFetcher streams a resolved URL to a local file with bounded retries
// and exponential backoff.
type directFetcher struct {
	httpClient     *http.Client
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

func newDirectFetcher(httpClient *http.Client) *directFetcher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &directFetcher{
		httpClient:     httpClient,
		initialBackoff: 500 * time.Millisecond,
		maxBackoff:     3 * time.Second,
	}
}

func (d *directFetcher) Name() Path { return PathDirect }

func (d *directFetcher) Available() bool { return true }

type httpStatusError struct {
	StatusCode int
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("download failed: status=%d", e.StatusCode)
}

func (d *directFetcher) Fetch(ctx context.Context, req Request) (string, error) {
	if req.StreamURL == "" {
		return "", ErrNoDirectURL
	}
	if req.Section != nil {
		return "", errors.New("direct path cannot perform windowed retrieval")
	}
	if dir := filepath.Dir(req.OutputPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
	}

	maxRetries := req.Retries
	if maxRetries < 0 {
		maxRetries = 0
	}
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		lastErr = d.fetchOnce(ctx, req)
		if lastErr == nil {
			return req.OutputPath, nil
		}
		if !d.retryable(lastErr) || attempt == maxRetries {
			return "", lastErr
		}
		if err := waitBackoff(ctx, d.backoffFor(attempt)); err != nil {
			return "", err
		}
	}
	return "", lastErr
}

func (d *directFetcher) fetchOnce(ctx context.Context, req Request) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.StreamURL, nil)
	if err != nil {
		return err
	}
	for k, values := range req.Headers {
		for _, v := range values {
			httpReq.Header.Add(k, v)
		}
	}

	resp, err := d.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return &httpStatusError{StatusCode: resp.StatusCode}
	}

	out, err := os.Create(req.OutputPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(req.OutputPath)
		return err
	}
	return out.Close()
}

func (d *directFetcher) retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	return true
}

func (d *directFetcher) backoffFor(attempt int) time.Duration {
	backoff := d.initialBackoff
	for i := 0; i < attempt; i++ {
		backoff *= 2
		if backoff > d.maxBackoff {
			return d.maxBackoff
		}
	}
	return backoff
}

func waitBackoff(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
