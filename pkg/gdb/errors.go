package gdb

import (
	"errors"
	"fmt"
	"time"
)

// ErrSessionClosed resolves every command still pending when the session is
// shut down.
var ErrSessionClosed = errors.New("session closed")

// ProtocolError describes a line of debugger output that could not be used:
// either it failed the output grammar, or it was a result carrying a token
// with no command waiting on it. Protocol errors are logged and contained;
// they never abort the read loop.
type ProtocolError struct {
	Line   string
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error: %s: %q", e.Reason, e.Line)
}

// CommandError is a command the debugger rejected. Msg is the debugger's own
// message, surfaced verbatim to the caller.
type CommandError struct {
	Token   int64
	Command string
	Msg     string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %q (token %d) failed: %s", e.Command, e.Token, e.Msg)
}

// CommandTimeout is a command that received no reply within its budget.
// Nothing is retried automatically; a caller that wants retry semantics
// re-submits explicitly.
type CommandTimeout struct {
	Token   int64
	Command string
	After   time.Duration
}

func (e *CommandTimeout) Error() string {
	return fmt.Sprintf("command %q (token %d) timed out after %v", e.Command, e.Token, e.After)
}

// ProcessError is a failure of the debugger process itself: spawn failure,
// broken pipe, or unexpected exit. It fails the whole session.
type ProcessError struct {
	Op  string
	Err error
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("debugger process: %s: %v", e.Op, e.Err)
}

func (e *ProcessError) Unwrap() error { return e.Err }
