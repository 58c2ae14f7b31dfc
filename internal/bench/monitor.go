package bench

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// publishEvery is how many executor steps pass between poll count updates.
const publishEvery = 1024

// Monitor exposes live per-scenario poll counts to other goroutines.
// The zero value is not usable; use NewMonitor.
type Monitor struct {
	mu     sync.Mutex
	polls  map[string]*atomic.Uint64
	order  []string
	closed map[string]bool
}

// NewMonitor returns an empty monitor.
func NewMonitor() *Monitor {
	return &Monitor{
		polls:  make(map[string]*atomic.Uint64),
		closed: make(map[string]bool),
	}
}

func (m *Monitor) counter(scenario string) *atomic.Uint64 {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.polls[scenario]
	if !ok {
		c = new(atomic.Uint64)
		m.polls[scenario] = c
		m.order = append(m.order, scenario)
		sort.Strings(m.order)
	}
	delete(m.closed, scenario)
	return c
}

func (m *Monitor) finish(scenario string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.closed[scenario] = true
	m.mu.Unlock()
}

// Polls returns the last published poll count of scenario.
func (m *Monitor) Polls(scenario string) uint64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	c := m.polls[scenario]
	m.mu.Unlock()
	if c == nil {
		return 0
	}
	return c.Load()
}

// String lists the scenarios still running with their poll counts, sorted
// by name. It is empty when nothing runs.
func (m *Monitor) String() string {
	if m == nil {
		return ""
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	parts := make([]string, 0, len(m.order))
	for _, name := range m.order {
		if m.closed[name] {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s polls=%d", name, m.polls[name].Load()))
	}
	return strings.Join(parts, " ")
}
