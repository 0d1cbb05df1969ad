package perf

import (
	"errors"
	"sync"
)

var (
	// ErrSessionBusy indicates a session was requested while another one
	// is still open on the same Monitor.
	ErrSessionBusy = errors.New("perf: measurement session already active")

	// ErrSessionClosed indicates a session handle that was already ended or
	// belongs to another Monitor.
	ErrSessionClosed = errors.New("perf: measurement session not active")
)

// Session is the handle for one measurement session. Its counters are valid
// until the session is ended.
type Session struct {
	counters Counters
	monitor  *Monitor
}

// Counters returns the session's counter set.
func (s *Session) Counters() *Counters {
	return &s.counters
}

// Monitor admits at most one active measurement session at a time.
type Monitor struct {
	mu     sync.Mutex
	active *Session
}

func NewMonitor() *Monitor {
	return &Monitor{}
}

// Begin opens a session with freshly reset counters.
func (m *Monitor) Begin() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		return nil, ErrSessionBusy
	}
	s := &Session{monitor: m}
	s.counters.Reset()
	m.active = s
	return s, nil
}

// End closes s and returns its final metrics. The handle is invalid
// afterwards.
func (m *Monitor) End(s *Session) (Metrics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s == nil || m.active != s {
		return Metrics{}, ErrSessionClosed
	}
	metrics := s.counters.Snapshot()
	m.active = nil
	s.monitor = nil
	return metrics, nil
}

// Active reports whether a session is open.
func (m *Monitor) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active != nil
}
