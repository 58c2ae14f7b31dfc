package asyncrt

import (
	"fmt"
	"math"
	"strings"
	"time"

	"fortio.org/safecast"
)

// ClockMode controls whether simulated latency uses virtual or real time.
type ClockMode uint8

const (
	ClockVirtual ClockMode = iota
	ClockReal
)

func (m ClockMode) String() string {
	switch m {
	case ClockVirtual:
		return "virtual"
	case ClockReal:
		return "real"
	default:
		return "unknown"
	}
}

// ParseClockMode converts a string to ClockMode.
func ParseClockMode(s string) (ClockMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "virtual":
		return ClockVirtual, nil
	case "real":
		return ClockReal, nil
	default:
		return ClockVirtual, fmt.Errorf("invalid clock mode: %q (expected: virtual|real)", s)
	}
}

// Clock supplies time and blocking behavior for simulated drive latency.
type Clock interface {
	NowMicros() uint64
	SleepMicros(us uint64)
}

// NewClock returns a clock for the mode.
func NewClock(mode ClockMode) Clock {
	if mode == ClockReal {
		return &RealClock{}
	}
	return &VirtualClock{}
}

// VirtualClock advances time without blocking.
type VirtualClock struct {
	now uint64
}

func (c *VirtualClock) NowMicros() uint64 {
	if c == nil {
		return 0
	}
	return c.now
}

func (c *VirtualClock) SleepMicros(us uint64) {
	if c == nil {
		return
	}
	c.now += us
}

var monoStart = time.Now()

// RealClock blocks the OS thread for the requested duration.
// NowFunc overrides the monotonic time source when set.
type RealClock struct {
	NowFunc func() uint64
}

func (c *RealClock) NowMicros() uint64 {
	if c == nil {
		return 0
	}
	if c.NowFunc != nil {
		return c.NowFunc()
	}
	now, err := safecast.Conv[uint64](time.Since(monoStart).Microseconds())
	if err != nil {
		return 0
	}
	return now
}

func (c *RealClock) SleepMicros(us uint64) {
	if c == nil || us == 0 {
		return
	}
	maxUs := uint64(math.MaxInt64 / int64(time.Microsecond))
	if us > maxUs {
		us = maxUs
	}
	delay, err := safecast.Conv[int64](us)
	if err != nil {
		return
	}
	time.Sleep(time.Duration(delay) * time.Microsecond)
}
