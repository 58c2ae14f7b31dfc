package asyncrt

// Waker is the wake handle passed to a computation on each drive.
// It is bound to a task and to the drive that produced it: waking on behalf of
// an earlier drive, a finished task or an already runnable task does nothing.
type Waker struct {
	exec *Executor
	id   TaskID
	gen  uint64
}

// IsValid reports whether the waker refers to a task.
func (w Waker) IsValid() bool {
	return w.exec != nil && w.id != 0
}

// TaskID returns the task this waker resumes.
func (w Waker) TaskID() TaskID {
	return w.id
}

// Wake marks the task runnable again. Safe to call any number of times; only
// the first call after a suspension has effect.
func (w Waker) Wake() {
	if !w.IsValid() {
		return
	}
	w.exec.wake(w.id, w.gen)
}

// SlotToken identifies one registration in a Slot.
type SlotToken uint64

// Slot is a single-slot waker handoff. Registering replaces any previous
// waker, fulfilling takes the stored waker and invokes it.
type Slot struct {
	waker Waker
	held  bool
	seq   uint64

	registered uint64
	fulfilled  uint64
}

// Register stores w, replacing any earlier registration.
func (s *Slot) Register(w Waker) SlotToken {
	if s == nil {
		return 0
	}
	s.seq++
	s.waker = w
	s.held = true
	s.registered++
	return SlotToken(s.seq)
}

// Fulfill wakes and clears the stored waker. An empty slot is a no-op.
func (s *Slot) Fulfill() bool {
	if s == nil || !s.held {
		return false
	}
	w := s.waker
	s.waker = Waker{}
	s.held = false
	s.fulfilled++
	w.Wake()
	return true
}

// Cancel clears the slot if tok is still the current registration.
func (s *Slot) Cancel(tok SlotToken) bool {
	if s == nil || !s.held || tok == 0 || SlotToken(s.seq) != tok {
		return false
	}
	s.waker = Waker{}
	s.held = false
	return true
}

// Pending reports whether a waker is stored.
func (s *Slot) Pending() bool {
	return s != nil && s.held
}

// Registered returns how many registrations the slot has seen.
func (s *Slot) Registered() uint64 {
	if s == nil {
		return 0
	}
	return s.registered
}

// Fulfilled returns how many registrations were handed to a waker.
func (s *Slot) Fulfilled() uint64 {
	if s == nil {
		return 0
	}
	return s.fulfilled
}
