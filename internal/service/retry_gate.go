package service

import (
	"context"
	"sync"
)

// ExportedRetryGate is an exported alias so _test packages can test the gate.
type ExportedRetryGate = retryGate

// retryGate lets one retry of the pending saves through at a time. A cron
// tick or RetryPending call that finds a retry in flight is dropped, since
// the running retry already drains the same queue. Shutdown waits on the
// gate so no retry is writing when the session closes.
type retryGate struct {
	mu      sync.Mutex
	running chan struct{} // closed by Leave; nil when idle
	skipped int
}

// Enter claims the gate. It returns false and counts a skip when a retry
// is already running.
func (g *retryGate) Enter() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running != nil {
		g.skipped++
		return false
	}
	g.running = make(chan struct{})
	return true
}

// Leave releases the gate after a successful Enter.
func (g *retryGate) Leave() {
	g.mu.Lock()
	defer g.mu.Unlock()
	close(g.running)
	g.running = nil
}

// Skipped reports how many retries were dropped while another ran.
func (g *retryGate) Skipped() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.skipped
}

// Wait blocks until the running retry, if any, finishes or ctx is done.
func (g *retryGate) Wait(ctx context.Context) {
	g.mu.Lock()
	running := g.running
	g.mu.Unlock()
	if running == nil {
		return
	}
	select {
	case <-running:
	case <-ctx.Done():
	}
}
