package asyncrt

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"coselect/internal/trace"
)

// Executor runs tasks on a single thread with a deterministic FIFO scheduler by default.
// Fuzz scheduling is supported for reproducible interleavings.
type Executor struct {
	cfg      Config
	nextID   TaskID
	ready    []TaskID
	readySet map[TaskID]struct{}
	tasks    map[TaskID]*Task
	current  TaskID
	rng      *rand.Rand
	tracer   trace.Tracer
	traceOn  bool
	stats    Stats
}

// TaskID identifies a spawned task.
type TaskID uint64

// TaskStatus describes task scheduling state.
type TaskStatus uint8

const (
	TaskReady TaskStatus = iota
	TaskRunning
	TaskWaiting
	TaskDone
)

func (s TaskStatus) String() string {
	switch s {
	case TaskReady:
		return "ready"
	case TaskRunning:
		return "running"
	case TaskWaiting:
		return "waiting"
	case TaskDone:
		return "done"
	default:
		return "unknown"
	}
}

// Task stores executor-visible task state.
type Task struct {
	ID     TaskID
	Name   string
	Status TaskStatus
	Polls  uint64
	Result any

	poll     func(cx *Context) (bool, any)
	slot     Slot
	gen      uint64
	notified bool
}

// Config configures executor scheduling behavior.
type Config struct {
	Fuzz     bool
	Seed     uint64
	MaxPolls uint64 // 0 = unlimited
	Tracer   trace.Tracer
}

// Stats counts scheduler activity since the executor was created.
type Stats struct {
	Spawned    uint64
	Polls      uint64
	Wakes      uint64
	StaleWakes uint64
	Completed  uint64
}

// NewExecutor constructs an executor with the provided configuration.
func NewExecutor(cfg Config) *Executor {
	exec := &Executor{
		cfg:      cfg,
		nextID:   1,
		readySet: make(map[TaskID]struct{}),
		tasks:    make(map[TaskID]*Task),
		tracer:   cfg.Tracer,
	}
	if exec.tracer == nil {
		exec.tracer = trace.Nop
	}
	exec.traceOn = exec.tracer.Enabled() && exec.tracer.Level().ShouldEmit(trace.ScopeTask)
	if cfg.Fuzz {
		exec.rng = newRand(cfg.Seed)
	}
	return exec
}

func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = 1
	}
	return rand.New(rand.NewSource(int64(seed))) //nolint:gosec // deterministic scheduler seed
}

// Current returns the ID of the task being polled.
func (e *Executor) Current() TaskID {
	if e == nil {
		return 0
	}
	return e.current
}

// Task returns a live task by ID. Finished tasks are no longer tracked.
func (e *Executor) Task(id TaskID) *Task {
	if e == nil {
		return nil
	}
	return e.tasks[id]
}

// Stats returns a snapshot of scheduler counters.
func (e *Executor) Stats() Stats {
	if e == nil {
		return Stats{}
	}
	return e.stats
}

// Live returns the number of tasks that have not completed.
func (e *Executor) Live() int {
	if e == nil {
		return 0
	}
	return len(e.tasks)
}

// JoinHandle refers to a spawned task and its eventual result.
type JoinHandle[T any] struct {
	exec *Executor
	task *Task
}

// ID returns the task ID.
func (h JoinHandle[T]) ID() TaskID {
	if h.task == nil {
		return 0
	}
	return h.task.ID
}

// Slot returns the notification slot owned by the task.
func (h JoinHandle[T]) Slot() *Slot {
	if h.task == nil {
		return nil
	}
	return &h.task.slot
}

// Done reports whether the task completed.
func (h JoinHandle[T]) Done() bool {
	return h.task != nil && h.task.Status == TaskDone
}

// Result returns the task value once it completed.
func (h JoinHandle[T]) Result() (T, bool) {
	var zero T
	if !h.Done() {
		return zero, false
	}
	v, ok := h.task.Result.(T)
	if !ok {
		return zero, false
	}
	return v, true
}

// Spawn registers a task driving fut and enqueues it for execution.
func Spawn[T any](e *Executor, name string, fut Future[T]) JoinHandle[T] {
	if e == nil || fut == nil {
		return JoinHandle[T]{}
	}
	task := e.spawn(name, func(cx *Context) (bool, any) {
		p := fut.Poll(cx)
		if !p.Ready {
			return false, nil
		}
		return true, p.Value
	})
	return JoinHandle[T]{exec: e, task: task}
}

// Run drives the scheduler until the task behind h completes and returns its
// value. Other tasks stay registered and keep running on later calls.
func Run[T any](e *Executor, h JoinHandle[T]) (T, error) {
	var zero T
	if e == nil || h.task == nil || h.exec != e {
		return zero, &RuntimeError{Code: PanicInvalidHandle, Message: "run on a handle from another executor"}
	}
	for h.task.Status != TaskDone {
		ran, err := e.RunOnce()
		if err != nil {
			return zero, err
		}
		if !ran {
			return zero, e.deadlock(h.task)
		}
	}
	if failure, ok := h.task.Result.(*RuntimeError); ok {
		return zero, failure
	}
	v, _ := h.task.Result.(T) //nolint:errcheck // type assertion, not error
	return v, nil
}

// BlockOn spawns fut and runs the scheduler until it completes.
func BlockOn[T any](e *Executor, name string, fut Future[T]) (T, error) {
	return Run(e, Spawn(e, name, fut))
}

// RunOnce drives the next runnable task once. It reports false when nothing
// is runnable.
func (e *Executor) RunOnce() (bool, error) {
	if e == nil {
		return false, nil
	}
	if e.cfg.MaxPolls > 0 && e.stats.Polls >= e.cfg.MaxPolls {
		return false, &RuntimeError{
			Code:    PanicPollBudget,
			Message: fmt.Sprintf("poll budget of %d exhausted", e.cfg.MaxPolls),
		}
	}
	id, ok := e.NextReady()
	if !ok {
		return false, nil
	}
	return true, e.drive(e.tasks[id])
}

// NextReady returns the next ready task according to scheduler policy.
func (e *Executor) NextReady() (TaskID, bool) {
	if e == nil || len(e.ready) == 0 {
		return 0, false
	}
	for len(e.ready) > 0 {
		idx := 0
		if e.cfg.Fuzz {
			idx = e.intn(len(e.ready))
		}
		id := e.ready[idx]
		copy(e.ready[idx:], e.ready[idx+1:])
		e.ready = e.ready[:len(e.ready)-1]
		delete(e.readySet, id)
		task := e.tasks[id]
		if task == nil || task.Status == TaskDone {
			continue
		}
		return id, true
	}
	return 0, false
}

func (e *Executor) spawn(name string, poll func(cx *Context) (bool, any)) *Task {
	if e.nextID == 0 {
		e.nextID = 1
	}
	id := e.nextID
	e.nextID++

	task := &Task{
		ID:     id,
		Name:   name,
		Status: TaskReady,
		poll:   poll,
	}
	if e.tasks == nil {
		e.tasks = make(map[TaskID]*Task)
	}
	e.tasks[id] = task
	e.stats.Spawned++
	if e.traceOn {
		trace.Point(e.tracer, trace.ScopeTask, "spawn", fmt.Sprintf("task %d (%s)", id, name))
	}
	e.enqueue(id)
	return task
}

func (e *Executor) drive(task *Task) (err error) {
	task.gen++
	task.notified = false
	task.Status = TaskRunning
	task.Polls++
	e.stats.Polls++

	prev := e.current
	e.current = task.ID
	cx := &Context{exec: e, task: task, waker: Waker{exec: e, id: task.ID, gen: task.gen}}

	defer func() {
		e.current = prev
		r := recover()
		if r == nil {
			return
		}
		rtErr, ok := r.(*RuntimeError)
		if !ok {
			panic(r)
		}
		if rtErr.TaskID == 0 {
			rtErr.TaskID = task.ID
			rtErr.TaskName = task.Name
		}
		e.complete(task, rtErr)
		err = rtErr
	}()

	ready, val := task.poll(cx)
	if ready {
		e.complete(task, val)
		return nil
	}
	if task.notified {
		e.enqueue(task.ID)
		return nil
	}
	task.Status = TaskWaiting
	return nil
}

func (e *Executor) complete(task *Task, result any) {
	task.Result = result
	task.Status = TaskDone
	task.poll = nil
	task.slot = Slot{}
	delete(e.tasks, task.ID)
	delete(e.readySet, task.ID)
	e.stats.Completed++
	if e.traceOn {
		trace.Point(e.tracer, trace.ScopeTask, "done", fmt.Sprintf("task %d (%s) after %d polls", task.ID, task.Name, task.Polls))
	}
}

func (e *Executor) wake(id TaskID, gen uint64) {
	task := e.tasks[id]
	if task == nil || task.gen != gen {
		e.stats.StaleWakes++
		return
	}
	switch task.Status {
	case TaskRunning:
		if !task.notified {
			task.notified = true
			e.stats.Wakes++
		}
	case TaskWaiting:
		e.stats.Wakes++
		e.enqueue(id)
	}
}

func (e *Executor) enqueue(id TaskID) {
	if e.readySet == nil {
		e.readySet = make(map[TaskID]struct{})
	}
	if _, ok := e.readySet[id]; ok {
		return
	}
	e.ready = append(e.ready, id)
	e.readySet[id] = struct{}{}
	if task := e.tasks[id]; task != nil && task.Status != TaskDone {
		task.Status = TaskReady
	}
}

func (e *Executor) intn(n int) int {
	if e == nil || n <= 1 {
		return 0
	}
	if e.rng == nil {
		e.rng = newRand(e.cfg.Seed)
	}
	return e.rng.Intn(n)
}

func (e *Executor) deadlock(entry *Task) *RuntimeError {
	ids := make([]TaskID, 0, len(e.tasks))
	for id := range e.tasks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	waiting := make([]string, 0, len(ids))
	for _, id := range ids {
		waiting = append(waiting, fmt.Sprintf("%d:%s", id, e.tasks[id].Name))
	}
	return &RuntimeError{
		Code:     PanicDeadlock,
		TaskID:   entry.ID,
		TaskName: entry.Name,
		Message:  fmt.Sprintf("no runnable task; waiting: [%s]", strings.Join(waiting, " ")),
	}
}
