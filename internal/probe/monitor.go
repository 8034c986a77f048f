package probe

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// offlineAfter consecutive failed pings flip the monitor to offline
const offlineAfter = 2

// Monitor polls connectivity and reports online/offline transitions
type Monitor struct {
	checker  *Checker
	interval time.Duration
	onChange func(online bool)
	logger   zerolog.Logger

	failures int
}

// NewMonitor creates a monitor that calls onChange on every transition
func NewMonitor(checker *Checker, interval time.Duration, onChange func(online bool), logger zerolog.Logger) *Monitor {
	return &Monitor{
		checker:  checker,
		interval: interval,
		onChange: onChange,
		logger:   logger,
	}
}

// Run polls until ctx is done
func (m *Monitor) Run(ctx context.Context) {
	if m.interval <= 0 {
		return
	}
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Poll(ctx)
		}
	}
}

// Poll pings once and applies the result
func (m *Monitor) Poll(ctx context.Context) {
	err := m.checker.Ping(ctx)
	if ctx.Err() != nil {
		return
	}

	online := err == nil
	if online {
		m.failures = 0
	} else {
		m.failures++
		if m.failures < offlineAfter {
			return
		}
	}

	if !m.checker.SetOnline(online) {
		return
	}
	if online {
		m.logger.Info().Msg("Connectivity restored")
	} else {
		m.logger.Warn().Err(err).Msg("Connectivity lost")
	}
	if m.onChange != nil {
		m.onChange(online)
	}
}
