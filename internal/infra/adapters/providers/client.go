// File: internal/infra/adapters/providers/client.go
package providers

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"ai-generation-gateway/internal/domain"
)

const maxErrorBody = 4 << 10

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

// readBody drains at most maxErrorBody bytes for inclusion in error messages.
func readBody(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	return string(b)
}

// submitError maps a non-2xx submission response onto the taxonomy: auth
// failures are ErrAuth, everything else carries the provider's raw body.
func submitError(provider string, resp *http.Response) error {
	body := readBody(resp.Body)
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: %s returned %d", domain.ErrAuth, provider, resp.StatusCode)
	}
	return &domain.ProviderRejectedError{Provider: provider, StatusCode: resp.StatusCode, Body: body}
}

// pollError maps a non-2xx poll response. Auth failures must stop the polling
// loop; server-side hiccups and throttling are transient and retried by the
// caller; an unknown task id is ErrNotFound.
func pollError(provider string, resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s returned %d", domain.ErrAuth, provider, resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s task", domain.ErrNotFound, provider)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s returned %d", domain.ErrTransientPoll, provider, resp.StatusCode)
	default:
		return fmt.Errorf("%s poll returned %d: %s", provider, resp.StatusCode, readBody(resp.Body))
	}
}

// transport maps a network-level failure (DNS, dial, timeout) during a poll.
func transport(provider string, err error) error {
	return fmt.Errorf("%w: %s: %v", domain.ErrTransientPoll, provider, err)
}
