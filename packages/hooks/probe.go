package hooks

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrNotReady is returned when a probe gives up.
var ErrNotReady = errors.New("service not ready")

// WaitFor configures an HTTP readiness probe.
type WaitFor struct {
	URL      string
	Status   int
	Timeout  time.Duration
	Interval time.Duration
	Client   *http.Client
}

func (w *WaitFor) defaults() {
	if w.Status == 0 {
		w.Status = http.StatusOK
	}
	if w.Timeout <= 0 {
		w.Timeout = 30 * time.Second
	}
	if w.Interval <= 0 {
		w.Interval = 500 * time.Millisecond
	}
	if w.Client == nil {
		w.Client = &http.Client{Timeout: 5 * time.Second}
	}
}

// WaitForHTTP polls w.URL until it answers w.Status, the timeout passes or
// ctx is done.
func WaitForHTTP(ctx context.Context, w WaitFor) error {
	w.defaults()

	ctx, cancel := context.WithTimeout(ctx, w.Timeout)
	defer cancel()

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	var lastErr error
	var lastStatus int
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.URL, nil)
		if err != nil {
			return fmt.Errorf("building probe request: %w", err)
		}
		resp, err := w.Client.Do(req)
		if err != nil {
			lastErr = err
		} else {
			lastStatus = resp.StatusCode
			resp.Body.Close()
			if resp.StatusCode == w.Status {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			if lastStatus != 0 {
				return fmt.Errorf("%w: %s after %v: got status %d, expected %d",
					ErrNotReady, w.URL, w.Timeout, lastStatus, w.Status)
			}
			return fmt.Errorf("%w: %s after %v: %v", ErrNotReady, w.URL, w.Timeout, lastErr)
		case <-ticker.C:
		}
	}
}
