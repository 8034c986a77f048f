package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lexiqai/media-transcriber/internal/observability"
)

// Pinger makes one small network request. A nil error means reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HTTPProbe checks reachability with a GET request
type HTTPProbe struct {
	client *http.Client
	url    string
}

// NewHTTPProbe creates a probe against url. A nil client uses http.DefaultClient.
func NewHTTPProbe(url string, client *http.Client) *HTTPProbe {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPProbe{client: client, url: url}
}

// Ping treats any response below 500 as reachable
func (p *HTTPProbe) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return fmt.Errorf("build probe request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("probe returned status %d", resp.StatusCode)
	}
	return nil
}

// Checker answers "is the network usable right now" with bounded latency.
// It keeps a last-known online flag that the Monitor maintains.
type Checker struct {
	pinger  Pinger
	timeout time.Duration
	logger  zerolog.Logger

	mu     sync.RWMutex
	online bool
}

// NewChecker creates a checker that assumes it starts online
func NewChecker(pinger Pinger, timeout time.Duration, logger zerolog.Logger) *Checker {
	observability.SetOnline(true)
	return &Checker{
		pinger:  pinger,
		timeout: timeout,
		logger:  logger,
		online:  true,
	}
}

// Check returns false at once when known offline. Otherwise it pings:
// success is true, an explicit failure is false and a timeout falls back
// to the last-known flag.
func (c *Checker) Check(ctx context.Context) bool {
	if !c.Online() {
		observability.RecordConnectivityCheck("offline")
		return false
	}

	pctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.pinger.Ping(pctx)
	switch {
	case err == nil:
		observability.RecordConnectivityCheck("online")
		return true
	case errors.Is(pctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		online := c.Online()
		c.logger.Warn().Dur("timeout", c.timeout).Bool("online", online).Msg("Connectivity check timed out, using last known state")
		observability.RecordConnectivityCheck("fallback")
		return online
	default:
		c.logger.Warn().Err(err).Msg("Connectivity check failed")
		observability.RecordConnectivityCheck("offline")
		return false
	}
}

// Ping runs the underlying probe once, bounded by the checker timeout
func (c *Checker) Ping(ctx context.Context) error {
	pctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.pinger.Ping(pctx)
}

// Online returns the last-known flag
func (c *Checker) Online() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.online
}

// SetOnline updates the last-known flag and reports whether it changed
func (c *Checker) SetOnline(online bool) bool {
	c.mu.Lock()
	changed := c.online != online
	c.online = online
	c.mu.Unlock()
	observability.SetOnline(online)
	return changed
}

// Ready adapts the checker to a readiness check
func (c *Checker) Ready(ctx context.Context) (bool, error) {
	if !c.Online() {
		return false, fmt.Errorf("offline")
	}
	return true, nil
}
