package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jpillora/backoff"
)

const maxGatewayAttempts = 3

// doJSON performs one JSON request against a gateway API and decodes the
// response into out (when non-nil). 5xx and transport errors map to
// ErrGatewayUnavailable, 4xx to ErrGatewayRejected.
func doJSON(ctx context.Context, hc *http.Client, method, url string, headers map[string]string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode gateway request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return doRequest(hc, req, out)
}

// doForm performs one form-encoded request; same error mapping as doJSON.
func doForm(ctx context.Context, hc *http.Client, method, rawURL string, headers map[string]string, form url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return doRequest(hc, req, out)
}

func doRequest(hc *http.Client, req *http.Request, out interface{}) error {
	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrGatewayUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", ErrGatewayUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		return fmt.Errorf("%w: status %d: %s", ErrGatewayRejected, resp.StatusCode, truncate(raw, 200))
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode gateway response: %w", err)
		}
	}
	return nil
}

// withRetry retries fn on ErrGatewayUnavailable only, with a small bounded
// backoff. Rejections and decode errors are returned immediately.
func withRetry(ctx context.Context, fn func() error) error {
	b := &backoff.Backoff{
		Min:    250 * time.Millisecond,
		Max:    2 * time.Second,
		Factor: 2,
		Jitter: true,
	}

	var err error
	for attempt := 0; attempt < maxGatewayAttempts; attempt++ {
		err = fn()
		if err == nil || !isUnavailable(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrGatewayUnavailable, ctx.Err())
		case <-time.After(b.Duration()):
		}
	}
	return err
}

func doJSONWithRetry(ctx context.Context, hc *http.Client, method, url string, headers map[string]string, in, out interface{}) error {
	return withRetry(ctx, func() error {
		return doJSON(ctx, hc, method, url, headers, in, out)
	})
}

func doFormWithRetry(ctx context.Context, hc *http.Client, method, rawURL string, headers map[string]string, form url.Values, out interface{}) error {
	return withRetry(ctx, func() error {
		return doForm(ctx, hc, method, rawURL, headers, form, out)
	})
}

func isUnavailable(err error) bool {
	return errors.Is(err, ErrGatewayUnavailable)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
