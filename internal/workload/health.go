// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package workload

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"grimm.is/uplinkd/internal/logging"
)

// HealthChecker polls the workload's own health endpoint with bounded
// retries. A passing check means the workload itself, not just the
// network path, is functioning.
type HealthChecker struct {
	client *retryablehttp.Client
	logger *logging.Logger
}

// NewHealthChecker builds a checker that retries up to retries times
// with interval between polls.
func NewHealthChecker(retries int, interval time.Duration, logger *logging.Logger) *HealthChecker {
	if logger == nil {
		logger = logging.New(logging.DefaultConfig())
	}

	client := retryablehttp.NewClient()
	client.RetryMax = retries
	client.RetryWaitMin = interval
	client.RetryWaitMax = interval
	client.HTTPClient.Timeout = interval
	client.Logger = nil

	return &HealthChecker{
		client: client,
		logger: logger,
	}
}

// Check polls url until it answers with a non-5xx status or retries are
// exhausted.
func (h *HealthChecker) Check(ctx context.Context, url string) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return fmt.Errorf("invalid health endpoint %s: %w", url, err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("workload health endpoint unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("workload health endpoint returned %d", resp.StatusCode)
	}
	h.logger.Debug("Workload health check passed", "url", url, "status", resp.StatusCode)
	return nil
}

// HealthURL builds the workload health endpoint URL from a host address
// and the configured port and path.
func HealthURL(host string, port int, path string) string {
	if path == "" || path[0] != '/' {
		path = "/" + path
	}
	return fmt.Sprintf("http://%s:%d%s", host, port, path)
}
