package gdb

// StreamKind identifies which of the debugger's output streams a piece of
// display text came from.
type StreamKind int

const (
	// StreamConsole is textual CLI output from the debugger.
	StreamConsole StreamKind = iota
	// StreamLog is the debugger's internal log text.
	StreamLog
	// StreamTarget is output produced by the target program.
	StreamTarget
)

func (k StreamKind) String() string {
	switch k {
	case StreamConsole:
		return "console"
	case StreamLog:
		return "log"
	case StreamTarget:
		return "target"
	}
	return "unknown"
}

// Event is a notification delivered to subscribed observers. Observers
// receive read-only, point-in-time copies; they never share memory with the
// session's own state.
type Event interface {
	isEvent()
}

// StateEvent reports that the execution state changed.
type StateEvent struct {
	State ExecutionState
}

// BreakpointsEvent reports that the breakpoint table changed. It carries a
// snapshot of the whole table, ordered by id.
type BreakpointsEvent struct {
	Breakpoints []Breakpoint
}

// OutputEvent carries raw display text from one of the debugger's streams.
// Output events are the only event kind the dispatcher may drop when an
// observer falls behind.
type OutputEvent struct {
	Stream StreamKind
	Text   string
}

// TerminatedEvent is the terminal session event: the debugger process ended
// or the session was closed. Err is nil on an orderly shutdown.
type TerminatedEvent struct {
	Err error
}

func (StateEvent) isEvent()       {}
func (BreakpointsEvent) isEvent() {}
func (OutputEvent) isEvent()      {}
func (TerminatedEvent) isEvent()  {}
