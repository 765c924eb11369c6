package gdb

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"gdbfront/pkg/mi"
)

const (
	// DefaultTimeout is the per-command reply budget. Generous: debugger
	// commands may legitimately take a while, and a deliberately running
	// target is not subject to it at all (a 'running' reply completes the
	// command).
	DefaultTimeout = 30 * time.Second

	// DefaultQueueSize bounds each observer's event queue.
	DefaultQueueSize = 64
)

// Config configures a debug session.
type Config struct {
	// GDBPath is the debugger binary; "gdb" when empty.
	GDBPath string
	// Program is the executable to debug. Ignored when AttachPID is set.
	Program string
	// AttachPID attaches to a running process instead of loading Program.
	AttachPID int
	// Timeout is the per-command reply budget; DefaultTimeout when zero.
	Timeout time.Duration
	// QueueSize bounds each observer's event queue; DefaultQueueSize when zero.
	QueueSize int
	// Logger receives structured diagnostics; a default logger when nil.
	Logger logrus.FieldLogger
}

// Result is the completion of one submitted command. Err carries a
// *CommandError, *CommandTimeout, *ProcessError or ErrSessionClosed; on
// success Class and Results hold the debugger's reply.
type Result struct {
	Class   string
	Results mi.Tuple
	Raw     string
	Err     error
}

// Command is the completion handle for one submitted command. It resolves
// exactly once: with the debugger's reply, an explicit error, or a timeout.
// A caller may abandon the handle at any time; bookkeeping is unaffected.
type Command struct {
	token     int64
	text      string
	submitted time.Time
	done      chan Result
	timer     *time.Timer
}

// Token returns the token this command was sent under.
func (c *Command) Token() int64 { return c.token }

// Text returns the command as submitted, without the token prefix.
func (c *Command) Text() string { return c.text }

// SubmittedAt returns when the command was written.
func (c *Command) SubmittedAt() time.Time { return c.submitted }

// Done returns a channel that receives the single completion.
func (c *Command) Done() <-chan Result { return c.done }

// Wait blocks for the completion or the context, whichever first.
func (c *Command) Wait(ctx context.Context) (Result, error) {
	select {
	case res := <-c.done:
		return res, res.Err
	case <-ctx.Done():
		return Result{Err: ctx.Err()}, ctx.Err()
	}
}

// Session owns the debugger subprocess and everything derived from its
// output: the pending-command table, the execution state, the breakpoint
// table and the snapshots. The read loop and the command-issuance path
// serialize on mu; nothing else touches the shared state.
type Session struct {
	cfg  Config
	log  logrus.FieldLogger
	proc *process
	disp *dispatcher

	token  *atomic.Int64
	closed *atomic.Bool

	// mu is the single serialization boundary: the read loop, Submit,
	// timers and queries all take it before touching pending or tracker.
	mu      sync.Mutex
	pending map[int64]*Command
	tracker *tracker
}

// New spawns the debugger in MI mode against cfg.Program (or attaches to
// cfg.AttachPID) and starts the output pipeline.
func New(cfg Config) (*Session, error) {
	if cfg.GDBPath == "" {
		cfg.GDBPath = "gdb"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	args := []string{"--interpreter=mi2", "-q"}
	switch {
	case cfg.AttachPID > 0:
		args = append(args, "-p", strconv.Itoa(cfg.AttachPID))
	case cfg.Program != "":
		args = append(args, cfg.Program)
	default:
		return nil, fmt.Errorf("session config: neither Program nor AttachPID given")
	}

	proc, err := startProcess(cfg.GDBPath, args...)
	if err != nil {
		return nil, err
	}

	s := newSession(cfg, log, proc)
	log.WithFields(logrus.Fields{"gdb": cfg.GDBPath, "pid": proc.cmd.Process.Pid}).
		Debug("debug session started")
	return s, nil
}

// newSession wires the pipeline over an already-started process and starts
// the loops.
func newSession(cfg Config, log logrus.FieldLogger, proc *process) *Session {
	s := &Session{
		cfg:     cfg,
		log:     log,
		proc:    proc,
		disp:    newDispatcher(cfg.QueueSize, log),
		token:   atomic.NewInt64(0),
		closed:  atomic.NewBool(false),
		pending: make(map[int64]*Command),
		tracker: newTracker(),
	}

	go s.readLoop()
	go s.stderrLoop()
	go s.waitLoop()
	return s
}

// Submit sends one command line to the debugger and returns its completion
// handle. The pending entry is registered before the line is written, so the
// earliest possible reply can never race past its slot.
func (s *Session) Submit(text string) (*Command, error) {
	if s.closed.Load() {
		return nil, ErrSessionClosed
	}

	cmd := &Command{
		token:     s.token.Inc(),
		text:      text,
		submitted: time.Now(),
		done:      make(chan Result, 1),
	}

	s.mu.Lock()
	cmd.timer = time.AfterFunc(s.cfg.Timeout, func() { s.expire(cmd.token) })
	s.pending[cmd.token] = cmd
	s.mu.Unlock()

	if err := s.proc.writeLine(mi.Encode(cmd.token, text)); err != nil {
		// A broken pipe fails every currently pending command, this one
		// included; each caller still receives exactly one completion.
		s.failPending(err)
		return cmd, nil
	}
	return cmd, nil
}

// Subscribe registers an observer. Events arrive in publication order on the
// subscription's channel until Unsubscribe or session end.
func (s *Session) Subscribe(name string) *Subscription {
	return s.disp.subscribe(name)
}

// Unsubscribe cancels a subscription. Idempotent.
func (s *Session) Unsubscribe(sub *Subscription) {
	s.disp.unsubscribe(sub)
}

// State returns a point-in-time copy of the execution state.
func (s *Session) State() ExecutionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.stateCopy()
}

// Breakpoints returns a snapshot of the breakpoint table, ordered by id.
func (s *Session) Breakpoints() []Breakpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.breakpointList()
}

// Stack returns the current call stack snapshot. ok is false whenever the
// target has moved since the snapshot was taken, or none was taken.
func (s *Session) Stack() (frames []StackFrame, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.tracker.stackValid {
		return nil, false
	}
	frames = make([]StackFrame, len(s.tracker.stack))
	copy(frames, s.tracker.stack)
	return frames, true
}

// Variables returns the current variable snapshot, under the same staleness
// rule as Stack.
func (s *Session) Variables() (vars []Variable, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.tracker.varsValid {
		return nil, false
	}
	vars = make([]Variable, len(s.tracker.vars))
	copy(vars, s.tracker.vars)
	return vars, true
}

// Close shuts the session down: every pending command resolves with
// ErrSessionClosed, the debugger process is killed and the loops stop.
// Safe to invoke twice.
func (s *Session) Close() error {
	if !s.closed.CAS(false, true) {
		return nil
	}
	// Ask the debugger to leave on its own terms, then make sure.
	s.proc.writeLine(mi.Encode(mi.NoToken, "-gdb-exit"))
	s.failPending(ErrSessionClosed)
	s.proc.kill()
	return nil
}

// readLoop consumes the debugger's stdout line by line and feeds the codec,
// the correlator and the tracker. Parse failures are contained here; the
// loop only ends with the pipe.
func (s *Session) readLoop() {
	for line := range s.proc.stdout {
		s.handleRecord(mi.Decode(line))
	}
}

// stderrLoop surfaces anything the debugger writes to stderr as log-stream
// output. MI keeps stderr quiet, but a loader complaint must not vanish.
func (s *Session) stderrLoop() {
	for line := range s.proc.stderr {
		s.disp.publish(OutputEvent{Stream: StreamLog, Text: line + "\n"})
	}
}

// waitLoop turns process death into the terminal session state: Exited,
// every pending command failed, observers notified.
func (s *Session) waitLoop() {
	st := <-s.proc.exited
	s.closed.Store(true)

	var procErr error
	if st.Err != nil {
		procErr = &ProcessError{Op: "exited", Err: st.Err}
	} else if st.Signal != "" {
		procErr = &ProcessError{Op: "exited", Err: fmt.Errorf("terminated by signal %s", st.Signal)}
	}

	s.mu.Lock()
	events := s.tracker.applyProcessExit(st.Code, st.Signal)
	s.mu.Unlock()

	failErr := procErr
	if failErr == nil {
		failErr = &ProcessError{Op: "exited", Err: fmt.Errorf("exit code %d", st.Code)}
	}
	s.failPending(failErr)

	s.publishAll(events)
	s.disp.publish(TerminatedEvent{Err: procErr})
	s.disp.close()

	s.log.WithFields(logrus.Fields{"code": st.Code, "signal": st.Signal}).
		Debug("debugger process ended")
}

func (s *Session) handleRecord(rec *mi.Record) {
	switch rec.Kind {
	case mi.KindPrompt:
		return

	case mi.KindMalformed:
		s.log.WithFields(logrus.Fields{"line": rec.Raw, "reason": rec.ParseError}).
			Warn("discarding malformed output line")
		return

	case mi.KindConsoleStream:
		s.disp.publish(OutputEvent{Stream: StreamConsole, Text: rec.Stream})
	case mi.KindLogStream:
		s.disp.publish(OutputEvent{Stream: StreamLog, Text: rec.Stream})
	case mi.KindTargetStream:
		s.disp.publish(OutputEvent{Stream: StreamTarget, Text: rec.Stream})

	case mi.KindResult:
		s.resolve(rec)

	case mi.KindAsyncExec:
		s.mu.Lock()
		events := s.tracker.applyExec(rec)
		s.mu.Unlock()
		s.publishAll(events)

	case mi.KindAsyncNotify:
		s.mu.Lock()
		events := s.tracker.applyNotify(rec)
		s.mu.Unlock()
		if events == nil {
			// Lifecycle notifications the tracker has no use for still
			// reach the raw-output panel.
			s.disp.publish(OutputEvent{Stream: StreamLog, Text: rec.Raw + "\n"})
			return
		}
		s.publishAll(events)

	case mi.KindAsyncStatus:
		// Progress records are rare; forwarded as-is.
		s.disp.publish(OutputEvent{Stream: StreamLog, Text: rec.Raw + "\n"})
	}
}

// resolve matches a result record to its pending command and completes it.
// Exactly one completion per command: the delete from the map is what makes
// a second resolution impossible.
func (s *Session) resolve(rec *mi.Record) {
	s.mu.Lock()
	cmd, ok := s.pending[rec.Token]
	if !ok {
		s.mu.Unlock()
		if rec.Token == mi.NoToken {
			// Untokenized results answer lines we did not correlate,
			// such as the shutdown command.
			s.log.WithFields(logrus.Fields{"class": rec.Class}).Debug("untokenized result")
			return
		}
		err := &ProtocolError{Line: rec.Raw, Reason: "result with no pending command"}
		s.log.WithFields(logrus.Fields{"token": rec.Token}).Warn(err.Error())
		return
	}
	delete(s.pending, rec.Token)
	events := s.tracker.applyResult(rec)
	s.mu.Unlock()

	if cmd.timer != nil {
		cmd.timer.Stop()
	}

	res := Result{Class: rec.Class, Results: rec.Results, Raw: rec.Raw}
	if rec.Class == mi.ClassError {
		msg := rec.ErrorMessage()
		if msg == "" {
			msg = "unspecified error"
		}
		res.Err = &CommandError{Token: cmd.token, Command: cmd.text, Msg: msg}
	}
	cmd.done <- res

	s.publishAll(events)
}

// expire times out one pending command. Racing with resolve is settled by
// the map: whoever deletes the entry delivers the completion.
func (s *Session) expire(token int64) {
	s.mu.Lock()
	cmd, ok := s.pending[token]
	if ok {
		delete(s.pending, token)
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	err := &CommandTimeout{Token: cmd.token, Command: cmd.text, After: s.cfg.Timeout}
	s.log.Warn(err.Error())
	cmd.done <- Result{Err: err}
}

// failPending resolves every pending command with err and empties the table.
func (s *Session) failPending(err error) {
	s.mu.Lock()
	pending := s.pending
	s.pending = make(map[int64]*Command)
	s.mu.Unlock()

	for _, cmd := range pending {
		if cmd.timer != nil {
			cmd.timer.Stop()
		}
		cmd.done <- Result{Err: err}
	}
}

func (s *Session) publishAll(events []Event) {
	for _, ev := range events {
		s.disp.publish(ev)
	}
}
