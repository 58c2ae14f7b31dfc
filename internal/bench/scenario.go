package bench

import (
	"fmt"
	"math"
	"strings"
	"time"

	"fortio.org/safecast"
	"golang.org/x/text/unicode/norm"

	"coselect/internal/asyncrt"
)

const (
	// DefaultCycles is the number of select cycles per iteration.
	DefaultCycles = 10
	// DefaultThreshold is the rendezvous count the leader must exceed.
	DefaultThreshold uint32 = 10
	// DefaultLatency is the simulated cost of one drive.
	DefaultLatency = 50 * time.Microsecond
	// MaxBranches bounds the width of a select.
	MaxBranches = 64
)

// Scenario describes one select workload.
type Scenario struct {
	Name      string
	Branches  int
	Cycles    int
	Threshold uint32
	Latency   time.Duration
	Order     asyncrt.ScanOrder
}

// DefaultScenarios returns the two classic workloads: a select over two
// branches and a select over eight.
func DefaultScenarios() []Scenario {
	return []Scenario{
		{Name: "select_some", Branches: 2, Cycles: DefaultCycles, Threshold: DefaultThreshold, Latency: DefaultLatency},
		{Name: "select_many", Branches: 8, Cycles: DefaultCycles, Threshold: DefaultThreshold, Latency: DefaultLatency},
	}
}

// Key returns the normalized scenario name used for lookups and baselines.
func (s Scenario) Key() string {
	return norm.NFC.String(strings.TrimSpace(s.Name))
}

// Validate checks that the scenario can run.
func (s Scenario) Validate() error {
	if s.Key() == "" {
		return fmt.Errorf("scenario name is empty")
	}
	if s.Branches < 1 || s.Branches > MaxBranches {
		return fmt.Errorf("scenario %q: branches must be in [1, %d], got %d", s.Name, MaxBranches, s.Branches)
	}
	if _, err := safecast.Conv[uint32](s.Branches); err != nil {
		return fmt.Errorf("scenario %q: %w", s.Name, err)
	}
	if s.Cycles < 1 {
		return fmt.Errorf("scenario %q: cycles must be positive, got %d", s.Name, s.Cycles)
	}
	if s.Threshold == math.MaxUint32 {
		return fmt.Errorf("scenario %q: threshold %d can never be exceeded", s.Name, s.Threshold)
	}
	if s.Latency < 0 {
		return fmt.Errorf("scenario %q: negative latency %s", s.Name, s.Latency)
	}
	return nil
}

// DrivesPerCycle is the number of times the leading branch is driven before
// it completes: one increment per drive until the count exceeds the threshold.
func (s Scenario) DrivesPerCycle() int {
	return int(s.Threshold) + 1
}

func (s Scenario) latencyMicros() uint64 {
	us, err := safecast.Conv[uint64](s.Latency.Microseconds())
	if err != nil {
		return 0
	}
	return us
}
