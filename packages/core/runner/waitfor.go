package runner

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// WaitForConfig makes a run wait until a service (typically the WebDriver
// endpoint's /status) answers with Status before any test starts.
type WaitForConfig struct {
	URL      string
	Status   int
	Timeout  time.Duration
	Interval time.Duration
}

// waitForService polls a URL until it returns the expected status code or times out
func (r *Runner) waitForService(ctx context.Context, cfg *WaitForConfig) error {
	if cfg == nil || cfg.URL == "" {
		return nil
	}

	expectedStatus := cfg.Status
	if expectedStatus == 0 {
		expectedStatus = http.StatusOK
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	r.logger.Info("waiting for service", "url", cfg.URL, "status", expectedStatus, "timeout", timeout)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client := &http.Client{
		Timeout: 5 * time.Second, // Per-request timeout
	}

	var lastErr error
	var lastStatus int

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.URL, nil)
		if err != nil {
			return fmt.Errorf("wait for %s: %w", cfg.URL, err)
		}
		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
		} else {
			lastStatus = resp.StatusCode
			resp.Body.Close()
			if resp.StatusCode == expectedStatus {
				r.logger.Info("service is ready", "url", cfg.URL)
				return nil
			}
		}

		select {
		case <-ctx.Done():
			if lastErr != nil {
				return fmt.Errorf("service %s not ready after %v: %v", cfg.URL, timeout, lastErr)
			}
			return fmt.Errorf("service %s not ready after %v: got status %d, expected %d",
				cfg.URL, timeout, lastStatus, expectedStatus)
		case <-time.After(interval):
		}
	}
}
