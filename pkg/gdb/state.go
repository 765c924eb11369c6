package gdb

import (
	"sort"

	"gdbfront/pkg/mi"
)

// Phase is the coarse run state of the debug session.
type Phase int

const (
	// NotStarted means the debugger is up but the target has not run yet.
	NotStarted Phase = iota
	// Running means the target is executing.
	Running
	// Stopped means the target is suspended and can be inspected.
	Stopped
	// Exited is terminal: the target is gone.
	Exited
)

func (p Phase) String() string {
	switch p {
	case NotStarted:
		return "not-started"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	case Exited:
		return "exited"
	}
	return "unknown"
}

// StopReason says why the target stopped. Reasons the debugger reports that
// have no normalized form are kept verbatim.
type StopReason string

const (
	ReasonBreakpointHit   StopReason = "breakpoint-hit"
	ReasonStepComplete    StopReason = "step-complete"
	ReasonSignal          StopReason = "signal"
	ReasonExitedNormally  StopReason = "exited-normally"
	ReasonExitedSignalled StopReason = "exited-signalled"
)

func normalizeReason(r string) StopReason {
	switch r {
	case "breakpoint-hit", "watchpoint-trigger", "read-watchpoint-trigger", "access-watchpoint-trigger":
		return ReasonBreakpointHit
	case "end-stepping-range", "function-finished", "location-reached":
		return ReasonStepComplete
	case "signal-received":
		return ReasonSignal
	case "exited-normally":
		return ReasonExitedNormally
	case "exited-signalled":
		return ReasonExitedSignalled
	}
	return StopReason(r)
}

// Breakpoint is one entry of the breakpoint table. Ids are assigned by the
// debugger and are never reused by this client.
type Breakpoint struct {
	ID        int
	File      string
	Line      int
	Function  string
	Address   string
	Enabled   bool
	Condition string
	HitCount  int
}

// StackFrame is one frame of the call stack; level 0 is innermost.
type StackFrame struct {
	Level    int
	Function string
	File     string
	Line     int
	Address  string
}

// Variable is a name/value pair as printed by the debugger. The value is an
// opaque formatted string; the core does not interpret it.
type Variable struct {
	Name  string
	Value string
	Type  string
}

// ExecutionState is the authoritative view of the target's run state.
// Exactly one is live per session, owned by the tracker and mutated only
// under the session's serialization boundary.
type ExecutionState struct {
	Phase      Phase
	Reason     StopReason
	Frame      *StackFrame // current frame; valid only while Stopped
	Thread     string      // debugger thread id of the stopping thread
	ExitCode   int
	ExitSignal string
}

// tracker owns the execution state, the breakpoint table and the current
// frame/variable snapshots. Callers hold the session mutex.
type tracker struct {
	state       ExecutionState
	breakpoints map[int]*Breakpoint
	stack       []StackFrame
	stackValid  bool
	vars        []Variable
	varsValid   bool
}

func newTracker() *tracker {
	return &tracker{
		state:       ExecutionState{Phase: NotStarted},
		breakpoints: make(map[int]*Breakpoint),
	}
}

// applyExec feeds an exec-async record ('*running', '*stopped') through the
// state machine and returns the events to dispatch.
func (t *tracker) applyExec(rec *mi.Record) []Event {
	switch rec.Class {
	case mi.ClassRunning:
		return t.toRunning()

	case mi.ClassStopped:
		reason, _ := rec.Results.GetString("reason")
		switch normalizeReason(reason) {
		case ReasonExitedNormally:
			code, _ := rec.Results.GetInt("exit-code")
			return t.toExited(ReasonExitedNormally, code, "")
		case ReasonExitedSignalled:
			sig, _ := rec.Results.GetString("signal-name")
			return t.toExited(ReasonExitedSignalled, -1, sig)
		}
		if reason == "exited" {
			code, _ := rec.Results.GetInt("exit-code")
			return t.toExited(ReasonExitedNormally, code, "")
		}
		return t.toStopped(rec)
	}
	return nil
}

// applyNotify handles notify-async records that mutate tracked state. The
// breakpoint table accepts this path and the command-result path without
// ever duplicating an id.
func (t *tracker) applyNotify(rec *mi.Record) []Event {
	switch rec.Class {
	case "breakpoint-created", "breakpoint-modified":
		bkpt, ok := rec.Results.GetTuple("bkpt")
		if !ok {
			return nil
		}
		t.upsertBreakpoint(bkpt)
		return []Event{BreakpointsEvent{Breakpoints: t.breakpointList()}}

	case "breakpoint-deleted":
		id, ok := rec.Results.GetInt("id")
		if !ok {
			return nil
		}
		if _, present := t.breakpoints[id]; !present {
			return nil
		}
		delete(t.breakpoints, id)
		return []Event{BreakpointsEvent{Breakpoints: t.breakpointList()}}

	case "thread-group-exited":
		code, ok := rec.Results.GetInt("exit-code")
		if !ok {
			code = 0
		}
		return t.toExited(ReasonExitedNormally, code, "")
	}
	return nil
}

// applyResult inspects a command reply for state it carries: a breakpoint
// descriptor, a 'running' acknowledgement, or stack/variable listings.
func (t *tracker) applyResult(rec *mi.Record) []Event {
	if rec.Class == mi.ClassRunning {
		return t.toRunning()
	}
	if rec.Class != mi.ClassDone {
		return nil
	}

	var events []Event
	if bkpt, ok := rec.Results.GetTuple("bkpt"); ok {
		t.upsertBreakpoint(bkpt)
		events = append(events, BreakpointsEvent{Breakpoints: t.breakpointList()})
	}
	if stack, ok := rec.Results.GetList("stack"); ok && t.state.Phase == Stopped {
		t.stack = framesFromList(stack)
		t.stackValid = true
	}
	if vars, ok := rec.Results.GetList("variables"); ok && t.state.Phase == Stopped {
		t.vars = variablesFromList(vars)
		t.varsValid = true
	}
	return events
}

// applyProcessExit forces the terminal state when the supervisor reports the
// debugger process gone, whatever the target was doing.
func (t *tracker) applyProcessExit(code int, signal string) []Event {
	reason := ReasonExitedNormally
	if signal != "" {
		reason = ReasonExitedSignalled
	}
	return t.toExited(reason, code, signal)
}

func (t *tracker) toRunning() []Event {
	if t.state.Phase == Exited || t.state.Phase == Running {
		return nil
	}
	// Stale inspection data must never be served after the target moves.
	t.invalidateSnapshots()
	t.state.Phase = Running
	t.state.Reason = ""
	t.state.Frame = nil
	return []Event{StateEvent{State: t.stateCopy()}}
}

func (t *tracker) toStopped(rec *mi.Record) []Event {
	if t.state.Phase == Exited {
		return nil
	}
	// A new stop location voids anything captured at the previous one,
	// even if no '*running' was seen in between.
	t.invalidateSnapshots()
	reason, _ := rec.Results.GetString("reason")
	t.state.Phase = Stopped
	t.state.Reason = normalizeReason(reason)
	t.state.Thread, _ = rec.Results.GetString("thread-id")

	t.state.Frame = nil
	if frame, ok := rec.Results.GetTuple("frame"); ok {
		f := frameFromTuple(frame)
		t.state.Frame = &f
	}

	events := []Event{}
	if no, ok := rec.Results.GetInt("bkptno"); ok {
		if bp, present := t.breakpoints[no]; present {
			bp.HitCount++
			events = append(events, BreakpointsEvent{Breakpoints: t.breakpointList()})
		}
	}
	return append(events, StateEvent{State: t.stateCopy()})
}

func (t *tracker) toExited(reason StopReason, code int, signal string) []Event {
	if t.state.Phase == Exited {
		return nil
	}
	t.invalidateSnapshots()
	t.state = ExecutionState{
		Phase:      Exited,
		Reason:     reason,
		ExitCode:   code,
		ExitSignal: signal,
	}

	events := []Event{}
	if len(t.breakpoints) > 0 {
		// Debugger-assigned breakpoints die with the target.
		t.breakpoints = make(map[int]*Breakpoint)
		events = append(events, BreakpointsEvent{Breakpoints: nil})
	}
	return append(events, StateEvent{State: t.stateCopy()})
}

func (t *tracker) invalidateSnapshots() {
	t.stack = nil
	t.stackValid = false
	t.vars = nil
	t.varsValid = false
}

// upsertBreakpoint inserts or updates the table entry for the descriptor's
// id. An already-present id updates in place; the table never holds two
// entries for one id.
func (t *tracker) upsertBreakpoint(bkpt mi.Tuple) {
	id, ok := bkpt.GetInt("number")
	if !ok {
		return
	}
	bp, present := t.breakpoints[id]
	if !present {
		bp = &Breakpoint{ID: id}
		t.breakpoints[id] = bp
	}
	fillBreakpoint(bp, bkpt)
}

func fillBreakpoint(bp *Breakpoint, bkpt mi.Tuple) {
	if file, ok := bkpt.GetString("fullname"); ok {
		bp.File = file
	} else if file, ok := bkpt.GetString("file"); ok {
		bp.File = file
	}
	if line, ok := bkpt.GetInt("line"); ok {
		bp.Line = line
	}
	if fn, ok := bkpt.GetString("func"); ok {
		bp.Function = fn
	}
	if addr, ok := bkpt.GetString("addr"); ok {
		bp.Address = addr
	}
	if enabled, ok := bkpt.GetString("enabled"); ok {
		bp.Enabled = enabled == "y"
	}
	if cond, ok := bkpt.GetString("cond"); ok {
		bp.Condition = cond
	}
	if times, ok := bkpt.GetInt("times"); ok {
		bp.HitCount = times
	}
}

func (t *tracker) removeBreakpoint(id int) []Event {
	if _, present := t.breakpoints[id]; !present {
		return nil
	}
	delete(t.breakpoints, id)
	return []Event{BreakpointsEvent{Breakpoints: t.breakpointList()}}
}

// breakpointList snapshots the table as a slice ordered by id.
func (t *tracker) breakpointList() []Breakpoint {
	if len(t.breakpoints) == 0 {
		return nil
	}
	list := make([]Breakpoint, 0, len(t.breakpoints))
	for _, bp := range t.breakpoints {
		list = append(list, *bp)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

func (t *tracker) stateCopy() ExecutionState {
	s := t.state
	if s.Frame != nil {
		f := *s.Frame
		s.Frame = &f
	}
	return s
}

func frameFromTuple(frame mi.Tuple) StackFrame {
	f := StackFrame{}
	f.Level, _ = frame.GetInt("level")
	f.Function, _ = frame.GetString("func")
	if file, ok := frame.GetString("fullname"); ok {
		f.File = file
	} else {
		f.File, _ = frame.GetString("file")
	}
	f.Line, _ = frame.GetInt("line")
	f.Address, _ = frame.GetString("addr")
	return f
}

// framesFromList converts stack=[frame={...},frame={...}] into frames,
// preserving the debugger's innermost-first ordering exactly.
func framesFromList(stack mi.List) []StackFrame {
	frames := make([]StackFrame, 0, len(stack))
	for _, v := range stack {
		wrap, ok := v.(mi.Tuple)
		if !ok {
			continue
		}
		frame, ok := wrap.GetTuple("frame")
		if !ok {
			// Newer debuggers emit bare tuples inside the list.
			frame = wrap
		}
		frames = append(frames, frameFromTuple(frame))
	}
	return frames
}

func variablesFromList(vars mi.List) []Variable {
	out := make([]Variable, 0, len(vars))
	for _, v := range vars {
		tup, ok := v.(mi.Tuple)
		if !ok {
			continue
		}
		var item Variable
		item.Name, _ = tup.GetString("name")
		item.Value, _ = tup.GetString("value")
		item.Type, _ = tup.GetString("type")
		if item.Name != "" {
			out = append(out, item)
		}
	}
	return out
}
