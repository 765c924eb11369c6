package gdb

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"gdbfront/pkg/mi"
)

// Typed wrappers over Submit for the operations a frontend needs. Each one
// blocks on the command's completion; the per-command timeout still applies.

func (s *Session) do(text string) (Result, error) {
	cmd, err := s.Submit(text)
	if err != nil {
		return Result{Err: err}, err
	}
	res := <-cmd.Done()
	return res, res.Err
}

// Run starts target execution from the beginning.
func (s *Session) Run() error {
	_, err := s.do("-exec-run")
	return err
}

// Continue resumes the target until the next stop.
func (s *Session) Continue() error {
	_, err := s.do("-exec-continue")
	return err
}

// Next steps over the current source line.
func (s *Session) Next() error {
	_, err := s.do("-exec-next")
	return err
}

// Step steps into function calls on the current source line.
func (s *Session) Step() error {
	_, err := s.do("-exec-step")
	return err
}

// Finish runs until the current function returns.
func (s *Session) Finish() error {
	_, err := s.do("-exec-finish")
	return err
}

// Interrupt suspends a running target.
func (s *Session) Interrupt() error {
	_, err := s.do("-exec-interrupt")
	return err
}

// BreakInsert sets a breakpoint at a location spec (file:line, function or
// *address), optionally guarded by a condition, and returns the table entry
// the debugger assigned.
func (s *Session) BreakInsert(loc, condition string) (Breakpoint, error) {
	var res Result
	var err error
	if condition != "" {
		res, err = s.do(mi.Encode(mi.NoToken, "-break-insert", "-c", condition, loc))
	} else {
		res, err = s.do(mi.Encode(mi.NoToken, "-break-insert", loc))
	}
	if err != nil {
		return Breakpoint{}, err
	}
	bkpt, ok := res.Results.GetTuple("bkpt")
	if !ok {
		return Breakpoint{}, fmt.Errorf("break-insert reply carries no breakpoint descriptor")
	}
	bp := Breakpoint{}
	bp.ID, _ = bkpt.GetInt("number")
	fillBreakpoint(&bp, bkpt)
	return bp, nil
}

// BreakDelete removes a breakpoint by its debugger-assigned id.
func (s *Session) BreakDelete(id int) error {
	if _, err := s.do("-break-delete " + strconv.Itoa(id)); err != nil {
		return err
	}
	// The reply carries no descriptor; mirror the deletion ourselves. A
	// =breakpoint-deleted notify for the same id is a no-op by then.
	s.mu.Lock()
	events := s.tracker.removeBreakpoint(id)
	s.mu.Unlock()
	s.publishAll(events)
	return nil
}

// BreakEnable re-enables a disabled breakpoint.
func (s *Session) BreakEnable(id int) error {
	return s.setBreakpointFlag(id, "-break-enable", true)
}

// BreakDisable keeps the breakpoint in the table but stops it triggering.
func (s *Session) BreakDisable(id int) error {
	return s.setBreakpointFlag(id, "-break-disable", false)
}

func (s *Session) setBreakpointFlag(id int, op string, enabled bool) error {
	if _, err := s.do(op + " " + strconv.Itoa(id)); err != nil {
		return err
	}
	s.mu.Lock()
	var events []Event
	if bp, ok := s.tracker.breakpoints[id]; ok && bp.Enabled != enabled {
		bp.Enabled = enabled
		events = []Event{BreakpointsEvent{Breakpoints: s.tracker.breakpointList()}}
	}
	s.mu.Unlock()
	s.publishAll(events)
	return nil
}

// BreakCondition attaches (or with an empty expression clears) a condition.
func (s *Session) BreakCondition(id int, expr string) error {
	text := "-break-condition " + strconv.Itoa(id)
	if expr != "" {
		text += " " + expr
	}
	if _, err := s.do(text); err != nil {
		return err
	}
	s.mu.Lock()
	var events []Event
	if bp, ok := s.tracker.breakpoints[id]; ok {
		bp.Condition = expr
		events = []Event{BreakpointsEvent{Breakpoints: s.tracker.breakpointList()}}
	}
	s.mu.Unlock()
	s.publishAll(events)
	return nil
}

// Evaluate prints an expression in the current frame. The structured value
// field is authoritative; the raw remainder is only a fallback for replies
// that carry none.
func (s *Session) Evaluate(expr string) (string, error) {
	res, err := s.do(mi.Encode(mi.NoToken, "-data-evaluate-expression", expr))
	if err != nil {
		return "", err
	}
	if value, ok := res.Results.GetString("value"); ok {
		return value, nil
	}
	if raw, ok := res.Results.GetString("raw"); ok {
		return raw, nil
	}
	return "", fmt.Errorf("evaluation of %q returned no value", expr)
}

// ListStack fetches the call stack of the stopped target, innermost first.
func (s *Session) ListStack() ([]StackFrame, error) {
	res, err := s.do("-stack-list-frames")
	if err != nil {
		return nil, err
	}
	stack, ok := res.Results.GetList("stack")
	if !ok {
		return nil, fmt.Errorf("stack listing reply carries no frames")
	}
	return framesFromList(stack), nil
}

// ListVariables fetches the locals and arguments of the current frame with
// their printed values.
func (s *Session) ListVariables() ([]Variable, error) {
	res, err := s.do("-stack-list-variables --all-values")
	if err != nil {
		return nil, err
	}
	vars, ok := res.Results.GetList("variables")
	if !ok {
		return nil, fmt.Errorf("variable listing reply carries no variables")
	}
	return variablesFromList(vars), nil
}

// ReadMemory reads count bytes starting at an address expression. Pure
// query; nothing is cached.
func (s *Session) ReadMemory(addr string, count int) ([]byte, error) {
	res, err := s.do(mi.Encode(mi.NoToken, "-data-read-memory-bytes", addr, strconv.Itoa(count)))
	if err != nil {
		return nil, err
	}
	blocks, ok := res.Results.GetList("memory")
	if !ok {
		return nil, fmt.Errorf("memory read reply carries no contents")
	}
	var out []byte
	for _, v := range blocks {
		block, ok := v.(mi.Tuple)
		if !ok {
			continue
		}
		contents, ok := block.GetString("contents")
		if !ok {
			continue
		}
		raw, err := hex.DecodeString(contents)
		if err != nil {
			return nil, fmt.Errorf("memory contents not hex: %v", err)
		}
		out = append(out, raw...)
	}
	return out, nil
}
