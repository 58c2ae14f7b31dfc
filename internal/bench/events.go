package bench

import "time"

// Status captures progress state of one scenario.
type Status string

const (
	// StatusQueued indicates the scenario is waiting for a worker.
	StatusQueued Status = "queued"
	// StatusWorking indicates the scenario is running iterations.
	StatusWorking Status = "working"
	// StatusDone indicates the scenario finished.
	StatusDone Status = "done"
	// StatusError indicates the scenario failed.
	StatusError Status = "error"
)

// Event reports progress for a scenario.
type Event struct {
	Scenario  string
	Status    Status
	Iteration int
	Total     int
	Err       error
	Elapsed   time.Duration
}

// ProgressSink consumes progress events. Scenarios run on separate
// goroutines, so implementations must tolerate concurrent calls.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

// OnEvent sends evt on the channel.
func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

// ProgressFunc adapts a function to ProgressSink.
type ProgressFunc func(Event)

// OnEvent calls f.
func (f ProgressFunc) OnEvent(evt Event) { f(evt) }
