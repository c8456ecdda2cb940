package resilience

import (
	"sync"
	"sync/atomic"

	"github.com/sony/gobreaker"
)

// ConnectivityMonitor tracks whether the backend is reachable and fires
// its listeners on the offline to online edge only. Listeners run on their
// own goroutine, never on the caller's.
type ConnectivityMonitor struct {
	online atomic.Bool

	mu        sync.Mutex
	listeners []func()
}

// NewConnectivityMonitor starts in the online state.
func NewConnectivityMonitor() *ConnectivityMonitor {
	m := &ConnectivityMonitor{}
	m.online.Store(true)
	return m
}

// OnReconnect registers fn to run each time connectivity comes back.
func (m *ConnectivityMonitor) OnReconnect(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Online reports the last observed state.
func (m *ConnectivityMonitor) Online() bool {
	return m.online.Load()
}

// MarkOffline records a transient backend failure.
func (m *ConnectivityMonitor) MarkOffline() {
	m.online.Store(false)
}

// MarkOnline records a successful backend call and fires the listeners if
// the backend was previously marked offline.
func (m *ConnectivityMonitor) MarkOnline() {
	if !m.online.CompareAndSwap(false, true) {
		return
	}

	m.mu.Lock()
	listeners := append([]func(){}, m.listeners...)
	m.mu.Unlock()

	for _, fn := range listeners {
		go fn()
	}
}

// BreakerStateChange adapts the monitor to circuit breaker transitions:
// opening marks the backend offline, closing marks it online.
func (m *ConnectivityMonitor) BreakerStateChange(_ string, _ gobreaker.State, to gobreaker.State) {
	switch to {
	case gobreaker.StateOpen:
		m.MarkOffline()
	case gobreaker.StateClosed:
		m.MarkOnline()
	}
}
