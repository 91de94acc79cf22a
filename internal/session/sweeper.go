package session

import (
	"context"
	"time"
)

// RunSweeper calls Sweep once immediately and then every interval until ctx
// is cancelled.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) {
	m.sweepOnce(ctx)

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.sweepOnce(ctx)
		}
	}
}

func (m *Manager) sweepOnce(ctx context.Context) {
	n, err := m.Sweep(ctx)
	if err != nil {
		if ctx.Err() == nil {
			m.log.Error(ctx, "session sweep failed", "error", err)
		}
		return
	}
	if n > 0 {
		m.log.Info(ctx, "expired sessions removed", "count", n)
	}
}
