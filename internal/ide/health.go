package ide

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HealthPath is appended to the IDE URL for the health check.
const HealthPath = "/health"

// HealthChecker GETs the IDE's health endpoint and wants a 200.
type HealthChecker struct {
	Client *http.Client
}

// NewHealthChecker returns a checker whose requests give up after timeout.
func NewHealthChecker(timeout time.Duration) *HealthChecker {
	return &HealthChecker{Client: &http.Client{Timeout: timeout}}
}

// Check implements Checker.
func (h *HealthChecker) Check(ctx context.Context, ideURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(ideURL, "/")+HealthPath, nil)
	if err != nil {
		return err
	}
	resp, err := h.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck // drained for connection reuse
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned %d", HealthPath, resp.StatusCode)
	}
	return nil
}
