package gdb

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"gdbfront/pkg/mi"
)

// fakeGDB stands in for the debugger process: it owns the channels the
// session reads, and records every command line the session writes.
type fakeGDB struct {
	proc   *process
	stdinR *io.PipeReader

	mu       sync.Mutex
	commands []string

	once sync.Once
}

func newFakeSession(t *testing.T, timeout time.Duration) (*Session, *fakeGDB) {
	t.Helper()

	pr, pw := io.Pipe()
	g := &fakeGDB{
		stdinR: pr,
		proc: &process{
			stdin:  pw,
			stdout: make(chan string, 64),
			stderr: make(chan string, 16),
			exited: make(chan exitStatus, 1),
			killed: atomic.NewBool(false),
		},
	}

	go func() {
		sc := bufio.NewScanner(pr)
		for sc.Scan() {
			g.mu.Lock()
			g.commands = append(g.commands, sc.Text())
			g.mu.Unlock()
		}
	}()

	s := newSession(Config{Timeout: timeout, QueueSize: 8}, quietLogger(), g.proc)
	t.Cleanup(func() {
		s.Close()
		g.terminate(exitStatus{Code: 0})
	})
	return s, g
}

// emit feeds one line of debugger output into the session's read loop.
func (g *fakeGDB) emit(line string) {
	g.proc.stdout <- line
}

// reply answers the nth submitted command (1-based) with the given result
// class and trailing fields, under the command's own token.
func (g *fakeGDB) reply(t *testing.T, n int, class, fields string) {
	t.Helper()
	token, _, err := mi.ParseCommand(g.command(t, n))
	require.NoError(t, err)
	line := fmt.Sprintf("%d^%s", token, class)
	if fields != "" {
		line += "," + fields
	}
	g.emit(line)
}

// command waits for the nth command line (1-based) to arrive and returns it.
func (g *fakeGDB) command(t *testing.T, n int) string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		g.mu.Lock()
		var line string
		if len(g.commands) >= n {
			line = g.commands[n-1]
		}
		g.mu.Unlock()
		if line != "" {
			return line
		}
		if time.Now().After(deadline) {
			t.Fatalf("command %d never arrived", n)
		}
		time.Sleep(time.Millisecond)
	}
}

// breakStdin makes every subsequent command write fail with a pipe error,
// as if the debugger's stdin went away while the process lingers.
func (g *fakeGDB) breakStdin() {
	g.stdinR.Close()
}

// terminate simulates the debugger process dying.
func (g *fakeGDB) terminate(st exitStatus) {
	g.once.Do(func() {
		close(g.proc.stdout)
		close(g.proc.stderr)
		g.proc.exited <- st
	})
}

func waitResult(t *testing.T, cmd *Command) Result {
	t.Helper()
	select {
	case res := <-cmd.Done():
		return res
	case <-time.After(2 * time.Second):
		t.Fatalf("command %q (token %d) never completed", cmd.Text(), cmd.Token())
		return Result{}
	}
}

func waitPhase(t *testing.T, s *Session, want Phase) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.State().Phase != want {
		if time.Now().After(deadline) {
			t.Fatalf("state never became %v, still %v", want, s.State().Phase)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestSubmitCorrelatesReplyByToken(t *testing.T) {
	s, g := newFakeSession(t, time.Second)

	cmd, err := s.Submit("-break-insert main.c:15")
	require.NoError(t, err)

	g.emit(fmt.Sprintf(`%d^done,bkpt={number="1",file="main.c",line="15",enabled="y",times="0"}`, cmd.Token()))

	res := waitResult(t, cmd)
	require.NoError(t, res.Err)
	assert.Equal(t, mi.ClassDone, res.Class)

	bps := s.Breakpoints()
	require.Len(t, bps, 1)
	assert.Equal(t, 1, bps[0].ID)
	assert.Equal(t, "main.c", bps[0].File)
	assert.Equal(t, 15, bps[0].Line)
}

func TestSubmitInterleavedReplies(t *testing.T) {
	s, g := newFakeSession(t, time.Second)

	first, err := s.Submit("-stack-list-frames")
	require.NoError(t, err)
	second, err := s.Submit("-thread-info")
	require.NoError(t, err)

	// replies arrive out of order; each still reaches its own command
	g.emit(fmt.Sprintf("%d^done", second.Token()))
	g.emit(fmt.Sprintf("%d^done", first.Token()))

	require.NoError(t, waitResult(t, second).Err)
	require.NoError(t, waitResult(t, first).Err)
}

func TestCommandErrorSurfacesMessage(t *testing.T) {
	s, g := newFakeSession(t, time.Second)

	cmd, err := s.Submit("-break-insert nosuchfile.c:1")
	require.NoError(t, err)
	g.emit(fmt.Sprintf(`%d^error,msg="No source file named nosuchfile.c."`, cmd.Token()))

	res := waitResult(t, cmd)
	var cmdErr *CommandError
	require.True(t, errors.As(res.Err, &cmdErr))
	assert.Equal(t, "No source file named nosuchfile.c.", cmdErr.Msg)
	assert.Equal(t, cmd.Token(), cmdErr.Token)
}

func TestCommandTimeout(t *testing.T) {
	s, _ := newFakeSession(t, 20*time.Millisecond)

	cmd, err := s.Submit("-stack-list-frames")
	require.NoError(t, err)

	res := waitResult(t, cmd)
	var timeout *CommandTimeout
	require.True(t, errors.As(res.Err, &timeout))
	assert.Equal(t, cmd.Token(), timeout.Token)

	// the pending table forgot the command
	s.mu.Lock()
	assert.Empty(t, s.pending)
	s.mu.Unlock()
}

func TestUnknownTokenIsDiscarded(t *testing.T) {
	s, g := newFakeSession(t, time.Second)

	cmd, err := s.Submit("-exec-run")
	require.NoError(t, err)

	// a result for a token nobody is waiting on: logged and dropped
	g.emit(`99^done,msg="stray"`)
	// the real reply still lands
	g.emit(fmt.Sprintf("%d^running", cmd.Token()))

	res := waitResult(t, cmd)
	require.NoError(t, res.Err)
	assert.Equal(t, mi.ClassRunning, res.Class)
	waitPhase(t, s, Running)
}

func TestRunStopScenario(t *testing.T) {
	s, g := newFakeSession(t, time.Second)

	sub := s.Subscribe("test")
	defer s.Unsubscribe(sub)

	bpCmd, err := s.Submit("-break-insert main.c:15")
	require.NoError(t, err)
	g.emit(fmt.Sprintf(`%d^done,bkpt={number="1",file="main.c",line="15",enabled="y",times="0"}`, bpCmd.Token()))
	require.NoError(t, waitResult(t, bpCmd).Err)

	runCmd, err := s.Submit("-exec-run")
	require.NoError(t, err)
	g.emit(fmt.Sprintf("%d^running", runCmd.Token()))
	g.emit(`*running,thread-id="all"`)
	require.NoError(t, waitResult(t, runCmd).Err)
	waitPhase(t, s, Running)

	g.emit(`*stopped,reason="breakpoint-hit",disp="keep",bkptno="1",frame={addr="0x23c5",func="main",file="main.c",fullname="/src/main.c",line="15"},thread-id="1"`)
	waitPhase(t, s, Stopped)

	st := s.State()
	assert.Equal(t, ReasonBreakpointHit, st.Reason)
	require.NotNil(t, st.Frame)
	assert.Equal(t, "/src/main.c", st.Frame.File)
	assert.Equal(t, 15, st.Frame.Line)

	bps := s.Breakpoints()
	require.Len(t, bps, 1)
	assert.Equal(t, 1, bps[0].HitCount)
}

func TestStreamRecordsReachObservers(t *testing.T) {
	s, g := newFakeSession(t, time.Second)

	sub := s.Subscribe("panel")
	defer s.Unsubscribe(sub)

	g.emit(`~"Reading symbols...\n"`)
	g.emit(`@"inferior says hi\n"`)

	events := collect(t, sub, 2)
	assert.Equal(t, OutputEvent{Stream: StreamConsole, Text: "Reading symbols...\n"}, events[0])
	assert.Equal(t, OutputEvent{Stream: StreamTarget, Text: "inferior says hi\n"}, events[1])
}

func TestMalformedLineDoesNotBreakPipeline(t *testing.T) {
	s, g := newFakeSession(t, time.Second)

	g.emit("complete garbage ###")
	g.emit("(gdb) ")

	// the pipeline keeps working afterwards
	cmd, err := s.Submit("-exec-run")
	require.NoError(t, err)
	g.emit(fmt.Sprintf("%d^running", cmd.Token()))
	require.NoError(t, waitResult(t, cmd).Err)
}

func TestWriteFailureFailsAllPending(t *testing.T) {
	s, g := newFakeSession(t, time.Minute)

	// two healthy submissions waiting on replies
	first, err := s.Submit("-stack-list-frames")
	require.NoError(t, err)
	second, err := s.Submit("-thread-info")
	require.NoError(t, err)
	g.command(t, 2)

	// stdin breaks under the next write; that failure is a command
	// failure for everything currently pending, this command included
	g.breakStdin()
	third, err := s.Submit("-exec-run")
	require.NoError(t, err)

	for _, cmd := range []*Command{first, second, third} {
		res := waitResult(t, cmd)
		var procErr *ProcessError
		require.True(t, errors.As(res.Err, &procErr), "token %d got %v", cmd.Token(), res.Err)
	}

	// each handle resolved exactly once; nothing is left pending
	s.mu.Lock()
	assert.Empty(t, s.pending)
	s.mu.Unlock()
}

func TestProcessDeathFailsAllPending(t *testing.T) {
	s, g := newFakeSession(t, time.Minute)

	first, err := s.Submit("-stack-list-frames")
	require.NoError(t, err)
	second, err := s.Submit("-thread-info")
	require.NoError(t, err)

	g.terminate(exitStatus{Signal: "killed"})

	for _, cmd := range []*Command{first, second} {
		res := waitResult(t, cmd)
		var procErr *ProcessError
		require.True(t, errors.As(res.Err, &procErr), "got %v", res.Err)
	}

	waitPhase(t, s, Exited)
	assert.Equal(t, "killed", s.State().ExitSignal)
}

func TestProcessDeathNotifiesObservers(t *testing.T) {
	s, g := newFakeSession(t, time.Minute)

	sub := s.Subscribe("panel")

	g.terminate(exitStatus{Code: 1})

	var sawTerminated bool
	for ev := range sub.C() {
		if _, ok := ev.(TerminatedEvent); ok {
			sawTerminated = true
		}
	}
	assert.True(t, sawTerminated)
	waitPhase(t, s, Exited)
}

func TestCloseIsIdempotent(t *testing.T) {
	s, _ := newFakeSession(t, time.Minute)

	pending, err := s.Submit("-stack-list-frames")
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	res := waitResult(t, pending)
	assert.Equal(t, ErrSessionClosed, res.Err)

	_, err = s.Submit("-exec-run")
	assert.Equal(t, ErrSessionClosed, err)
}

func TestSnapshotsUnavailableAfterResume(t *testing.T) {
	s, g := newFakeSession(t, time.Second)

	g.emit(`*stopped,reason="breakpoint-hit",frame={func="main",file="main.c",line="15"}`)
	waitPhase(t, s, Stopped)

	stackCmd, err := s.Submit("-stack-list-frames")
	require.NoError(t, err)
	g.emit(fmt.Sprintf(`%d^done,stack=[frame={level="0",func="main",file="main.c",line="15"}]`, stackCmd.Token()))
	require.NoError(t, waitResult(t, stackCmd).Err)

	frames, ok := s.Stack()
	require.True(t, ok)
	require.Len(t, frames, 1)

	// the target resumes: the snapshot is gone, not stale
	g.emit(`*running,thread-id="all"`)
	waitPhase(t, s, Running)

	_, ok = s.Stack()
	assert.False(t, ok)
	_, ok = s.Variables()
	assert.False(t, ok)
}

func TestConvenienceWrappers(t *testing.T) {
	s, g := newFakeSession(t, time.Second)

	done := make(chan error, 1)
	go func() {
		bp, err := s.BreakInsert("main.c:15", "x > 2")
		if err == nil && bp.ID != 1 {
			err = fmt.Errorf("unexpected breakpoint id %d", bp.ID)
		}
		done <- err
	}()

	sent := g.command(t, 1)
	assert.Contains(t, sent, "-break-insert")
	assert.Contains(t, sent, `"x > 2"`)
	g.reply(t, 1, "done", `bkpt={number="1",file="main.c",line="15",enabled="y",cond="x > 2",times="0"}`)
	require.NoError(t, <-done)

	go func() { done <- s.Run() }()
	g.reply(t, 2, "running", "")
	require.NoError(t, <-done)
	waitPhase(t, s, Running)
}

func TestEvaluateUsesStructuredValue(t *testing.T) {
	s, g := newFakeSession(t, time.Second)

	type evalResult struct {
		value string
		err   error
	}
	done := make(chan evalResult, 1)
	go func() {
		v, err := s.Evaluate("argc")
		done <- evalResult{v, err}
	}()

	g.reply(t, 1, "done", `value="1"`)

	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, "1", res.value)
}

func TestBreakDeleteUpdatesTable(t *testing.T) {
	s, g := newFakeSession(t, time.Second)

	g.emit(`=breakpoint-created,bkpt={number="3",file="main.c",line="9",enabled="y"}`)
	deadline := time.Now().Add(2 * time.Second)
	for len(s.Breakpoints()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("breakpoint never appeared")
		}
		time.Sleep(time.Millisecond)
	}

	done := make(chan error, 1)
	go func() { done <- s.BreakDelete(3) }()
	g.reply(t, 1, "done", "")
	require.NoError(t, <-done)

	assert.Empty(t, s.Breakpoints())
}
