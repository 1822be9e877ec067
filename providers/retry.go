package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// RetryPolicy bündelt das Retry-Budget für alle externen HTTP-Aufrufe an
// einer Stelle: begrenzte Gesamtversuche, exponentielles Backoff und
// Wiederholung nur bei transienten Statusklassen bzw. Netzwerkfehlern.
type RetryPolicy struct {
	MaxAttempts int
	BackoffBase time.Duration
}

// DefaultRetryPolicy ist das Budget, wenn nichts konfiguriert ist.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 5, BackoffBase: time.Second}

// Retryable meldet, ob ein HTTP-Status eine Wiederholung rechtfertigt.
// Client-Fehler wie 404 oder 400 sind endgültig und werden nie retried.
func Retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultRetryPolicy.MaxAttempts
	}
	if p.BackoffBase <= 0 {
		p.BackoffBase = DefaultRetryPolicy.BackoffBase
	}
	return p
}

// Get führt einen GET-Request mit dem konfigurierten Budget aus. Bei
// transienten Fehlern wird mit BackoffBase * 2^(n-1) gewartet; nicht
// transiente Antworten werden unverändert an den Aufrufer durchgereicht.
func (p RetryPolicy) Get(ctx context.Context, client *http.Client, url string, header http.Header) (*http.Response, error) {
	p = p.withDefaults()

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if attempt > 1 {
			wait := p.BackoffBase << (attempt - 2)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		for key, values := range header {
			for _, v := range values {
				req.Header.Add(key, v)
			}
		}

		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		if !Retryable(resp.StatusCode) {
			return resp, nil
		}
		resp.Body.Close()
		lastErr = fmt.Errorf("transient status %d from %s", resp.StatusCode, url)
	}
	return nil, fmt.Errorf("retry budget exhausted after %d attempts: %w", p.MaxAttempts, lastErr)
}
