package asyncrt

import (
	"fmt"
	"strings"
)

// ScanOrder controls the order in which a select drives its branches on each pass.
// Within a pass the first branch to report Ready wins and later branches are not
// driven, so the order decides ties between branches that become ready together.
type ScanOrder uint8

const (
	// ScanFixed drives branches left to right. Earlier branches can starve
	// later ones under contention.
	ScanFixed ScanOrder = iota
	// ScanRandom starts each pass at a random branch drawn from the executor
	// source and wraps around, visiting every branch once.
	ScanRandom
)

// String returns the string representation of ScanOrder.
func (o ScanOrder) String() string {
	switch o {
	case ScanFixed:
		return "fixed"
	case ScanRandom:
		return "random"
	default:
		return "unknown"
	}
}

// ParseScanOrder converts a string to ScanOrder.
func ParseScanOrder(s string) (ScanOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fixed":
		return ScanFixed, nil
	case "random":
		return ScanRandom, nil
	default:
		return ScanFixed, fmt.Errorf("invalid scan order: %q (expected: fixed|random)", s)
	}
}

// Branch is one arm of a select: a computation plus the tag reported when it wins.
type Branch[T any] struct {
	Tag    int
	Future Future[T]
}

// Selected is the outcome of a select.
type Selected[T any] struct {
	Value T
	Tag   int
	Index int
}

// SelectOptions configures a select.
type SelectOptions struct {
	Order ScanOrder
}

type selectArm[T any] struct {
	tag     int
	fut     Future[T]
	drives  int
	dropped bool
}

// SelectFuture races its branches and completes with the first one to finish.
type SelectFuture[T any] struct {
	arms   []selectArm[T]
	order  ScanOrder
	passes int
	done   bool
	winner int
}

// Select builds a select scanning its branches in fixed order.
func Select[T any](branches ...Branch[T]) *SelectFuture[T] {
	return SelectWith(SelectOptions{}, branches...)
}

// SelectWith builds a select with explicit options.
func SelectWith[T any](opts SelectOptions, branches ...Branch[T]) *SelectFuture[T] {
	arms := make([]selectArm[T], len(branches))
	for i, b := range branches {
		arms[i] = selectArm[T]{tag: b.Tag, fut: b.Future}
	}
	return &SelectFuture[T]{arms: arms, order: opts.Order, winner: -1}
}

// Poll runs one pass over the branches.
func (s *SelectFuture[T]) Poll(cx *Context) Poll[Selected[T]] {
	if s.done {
		msg := "select polled after completion"
		if s.winner >= 0 {
			msg = fmt.Sprintf("select polled after branch %d won", s.arms[s.winner].tag)
		}
		panic(&RuntimeError{Code: PanicPollAfterDone, Message: msg})
	}
	n := len(s.arms)
	if n == 0 {
		panic(&RuntimeError{Code: PanicEmptySelect, Message: "select over zero branches"})
	}
	s.passes++

	start := 0
	if s.order == ScanRandom {
		start = cx.Intn(n)
	}
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		arm := &s.arms[idx]
		arm.drives++
		p := arm.fut.Poll(cx)
		if !p.Ready {
			continue
		}
		s.done = true
		s.winner = idx
		arm.fut = nil
		s.dropFrom(idx)
		return Ready(Selected[T]{Value: p.Value, Tag: arm.tag, Index: idx})
	}
	return Pending[Selected[T]]()
}

// Drop discards every branch that is still held. A select nested as the arm of
// another select is dropped this way when it loses.
func (s *SelectFuture[T]) Drop() {
	s.done = true
	s.dropFrom(-1)
}

func (s *SelectFuture[T]) dropFrom(keep int) {
	for i := range s.arms {
		arm := &s.arms[i]
		if i == keep || arm.dropped || arm.fut == nil {
			continue
		}
		arm.dropped = true
		if d, ok := arm.fut.(Dropper); ok {
			d.Drop()
		}
		arm.fut = nil
	}
}

// Passes returns how many times the select was driven.
func (s *SelectFuture[T]) Passes() int {
	return s.passes
}

// Drives returns per-branch drive counts in construction order.
func (s *SelectFuture[T]) Drives() []int {
	out := make([]int, len(s.arms))
	for i := range s.arms {
		out[i] = s.arms[i].drives
	}
	return out
}

// Winner returns the tag of the winning branch.
func (s *SelectFuture[T]) Winner() (int, bool) {
	if s.winner < 0 {
		return 0, false
	}
	return s.arms[s.winner].tag, true
}
