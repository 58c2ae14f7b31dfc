package bench

import (
	"coselect/internal/asyncrt"
)

// Rendezvous is the counter shared by every branch of one select cycle.
// A fresh value is built for each cycle before any branch is driven.
type Rendezvous struct {
	Count     uint32
	Threshold uint32
	Leader    uint32
}

// Result is the value a leading probe completes with.
type Result struct {
	Count uint32
	ID    uint32
}

// Probe is the contended test computation. Every drive spends the configured
// latency on the clock. The leader bumps the rendezvous counter and completes
// once it exceeds the threshold; everyone else parks the task waker in the
// task slot and stays pending forever.
type Probe struct {
	ID uint32

	rv        *Rendezvous
	clock     asyncrt.Clock
	latencyUs uint64

	slot    *asyncrt.Slot
	token   asyncrt.SlotToken
	drives  int
	dropped bool
}

// NewProbe builds a probe bound to rv.
func NewProbe(id uint32, rv *Rendezvous, clock asyncrt.Clock, latencyUs uint64) *Probe {
	return &Probe{ID: id, rv: rv, clock: clock, latencyUs: latencyUs}
}

// Poll drives the probe once.
func (p *Probe) Poll(cx *asyncrt.Context) asyncrt.Poll[Result] {
	p.drives++
	if p.clock != nil {
		p.clock.SleepMicros(p.latencyUs)
	}
	if p.ID == p.rv.Leader {
		p.rv.Count++
		if p.rv.Count > p.rv.Threshold {
			return asyncrt.Ready(Result{Count: p.rv.Count, ID: p.ID})
		}
	}
	p.slot = cx.Slot()
	p.token = p.slot.Register(cx.Waker())
	return asyncrt.Pending[Result]()
}

// Drop releases the probe's slot registration.
func (p *Probe) Drop() {
	p.dropped = true
	p.slot.Cancel(p.token)
}

// Drives returns how many times the probe was driven.
func (p *Probe) Drives() int {
	return p.drives
}

// Dropped reports whether a select discarded the probe.
func (p *Probe) Dropped() bool {
	return p.dropped
}

// companion keeps fulfilling the slot of the current entry task and yielding,
// so a parked entry task is always resumed on the next scheduler turn.
type companion struct {
	target *asyncrt.Slot
	yield  *asyncrt.Checkpoint

	rounds    uint64
	fulfilled uint64
}

func (c *companion) Poll(cx *asyncrt.Context) asyncrt.Poll[struct{}] {
	for {
		if c.yield == nil {
			c.rounds++
			if c.target.Fulfill() {
				c.fulfilled++
			}
			c.yield = asyncrt.Yield()
		}
		if !c.yield.Poll(cx).Ready {
			return asyncrt.Pending[struct{}]()
		}
		c.yield = nil
	}
}
