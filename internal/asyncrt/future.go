package asyncrt

import (
	"fmt"

	"coselect/internal/trace"
)

// Poll is the outcome of driving a computation once.
// A zero Poll is pending.
type Poll[T any] struct {
	Ready bool
	Value T
}

// Ready builds a completed outcome.
func Ready[T any](v T) Poll[T] {
	return Poll[T]{Ready: true, Value: v}
}

// Pending builds a suspended outcome.
func Pending[T any]() Poll[T] {
	return Poll[T]{}
}

// Future is a suspendable computation. Poll either completes with a value or
// reports Pending after arranging for cx.Waker() to be invoked once progress
// is possible again.
type Future[T any] interface {
	Poll(cx *Context) Poll[T]
}

// FutureFunc adapts a plain function to Future.
type FutureFunc[T any] func(cx *Context) Poll[T]

// Poll calls f.
func (f FutureFunc[T]) Poll(cx *Context) Poll[T] {
	return f(cx)
}

// Dropper is implemented by computations holding resources that must be
// released when a select discards them.
type Dropper interface {
	Drop()
}

// Context is handed to every Poll call. It is only valid for the duration of
// that call.
type Context struct {
	exec  *Executor
	task  *Task
	waker Waker
}

// Waker returns the wake handle for the current drive.
func (cx *Context) Waker() Waker {
	if cx == nil {
		return Waker{}
	}
	return cx.waker
}

// Slot returns the notification slot owned by the task being driven.
func (cx *Context) Slot() *Slot {
	if cx == nil || cx.task == nil {
		return nil
	}
	return &cx.task.slot
}

// TaskID returns the ID of the task being driven.
func (cx *Context) TaskID() TaskID {
	if cx == nil || cx.task == nil {
		return 0
	}
	return cx.task.ID
}

// TaskName returns the name the task was spawned with.
func (cx *Context) TaskName() string {
	if cx == nil || cx.task == nil {
		return ""
	}
	return cx.task.Name
}

// Intn draws from the executor's seeded source, so results are reproducible
// for a given Config.Seed.
func (cx *Context) Intn(n int) int {
	if cx == nil || n <= 1 {
		return 0
	}
	return cx.exec.intn(n)
}

// Tracer returns the executor tracer.
func (cx *Context) Tracer() trace.Tracer {
	if cx == nil || cx.exec == nil || cx.exec.tracer == nil {
		return trace.Nop
	}
	return cx.exec.tracer
}

type guarded[T any] struct {
	label string
	fut   Future[T]
	done  bool
}

// Guard wraps fut with a state check: driving it again after it reported Ready
// panics with PanicPollAfterDone naming label.
func Guard[T any](label string, fut Future[T]) Future[T] {
	return &guarded[T]{label: label, fut: fut}
}

func (g *guarded[T]) Poll(cx *Context) Poll[T] {
	if g.done {
		panic(&RuntimeError{
			Code:    PanicPollAfterDone,
			Message: fmt.Sprintf("%s polled after completion", g.label),
		})
	}
	p := g.fut.Poll(cx)
	if p.Ready {
		g.done = true
	}
	return p
}

func (g *guarded[T]) Drop() {
	if d, ok := g.fut.(Dropper); ok {
		d.Drop()
	}
}

// Checkpoint yields control back to the scheduler exactly once.
type Checkpoint struct {
	polled bool
}

// Yield returns a fresh checkpoint.
func Yield() *Checkpoint {
	return &Checkpoint{}
}

// Poll wakes its own task and suspends on the first drive, completes on the second.
func (c *Checkpoint) Poll(cx *Context) Poll[struct{}] {
	if c.polled {
		return Ready(struct{}{})
	}
	c.polled = true
	cx.Waker().Wake()
	return Pending[struct{}]()
}
