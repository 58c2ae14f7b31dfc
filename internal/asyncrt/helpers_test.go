package asyncrt

// countdown completes with value once it has been driven need times. Until
// then it parks its waker in the driving task's slot, or wakes itself when
// selfWake is set.
type countdown struct {
	value    int
	need     int // 0 = never completes
	selfWake bool

	drives int
	drops  int
	token  SlotToken
	slot   *Slot
}

func (c *countdown) Poll(cx *Context) Poll[int] {
	if c.drops > 0 {
		panic("countdown driven after drop")
	}
	c.drives++
	if c.need > 0 && c.drives >= c.need {
		return Ready(c.value)
	}
	if c.selfWake {
		cx.Waker().Wake()
		return Pending[int]()
	}
	c.slot = cx.Slot()
	c.token = c.slot.Register(cx.Waker())
	return Pending[int]()
}

func (c *countdown) Drop() {
	c.drops++
	c.slot.Cancel(c.token)
}

// fulfiller keeps fulfilling *target and yielding, like the benchmark companion.
type fulfiller struct {
	target **Slot
	yield  *Checkpoint
	rounds int
}

func (f *fulfiller) Poll(cx *Context) Poll[struct{}] {
	for {
		if f.yield == nil {
			f.rounds++
			(*f.target).Fulfill()
			f.yield = Yield()
		}
		if !f.yield.Poll(cx).Ready {
			return Pending[struct{}]()
		}
		f.yield = nil
	}
}

// runWithCompanion spawns fut as the entry task plus a companion fulfilling
// its slot, then runs until the entry completes.
func runWithCompanion[T any](exec *Executor, fut Future[T]) (T, error) {
	entry := Spawn(exec, "entry", fut)
	target := entry.Slot()
	Spawn[struct{}](exec, "companion", &fulfiller{target: &target})
	return Run(exec, entry)
}

func branchesOf(futs ...*countdown) []Branch[int] {
	out := make([]Branch[int], len(futs))
	for i, f := range futs {
		out[i] = Branch[int]{Tag: i, Future: f}
	}
	return out
}
