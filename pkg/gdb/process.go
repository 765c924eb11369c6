package gdb

import (
	"bufio"
	"io"
	"os/exec"
	"sync"
	"syscall"

	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
)

// Output lines can carry whole source listings or memory dumps on one line.
const maxLineSize = 4 * 1024 * 1024

// exitStatus describes how the debugger process ended.
type exitStatus struct {
	Code   int
	Signal string // non-empty when terminated by a signal
	Err    error  // non-nil when Wait itself failed
}

// process owns the debugger child process: its stdin for command lines, and
// read loops over stdout and stderr. Reading and writing are independent
// directions; the read loops never block a writer and vice versa.
type process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout chan string
	stderr chan string
	exited chan exitStatus

	writeMu sync.Mutex
	killed  *atomic.Bool
}

// startProcess spawns the debugger binary and starts its read loops. The
// stdout and stderr channels close on pipe EOF; exited delivers exactly one
// status after both are drained.
func startProcess(path string, args ...string) (*process, error) {
	cmd := exec.Command(path, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &ProcessError{Op: "stdin pipe", Err: err}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &ProcessError{Op: "stdout pipe", Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, &ProcessError{Op: "stderr pipe", Err: err}
	}

	if err := cmd.Start(); err != nil {
		return nil, &ProcessError{Op: "spawn", Err: err}
	}

	p := &process{
		cmd:    cmd,
		stdin:  stdin,
		stdout: make(chan string, 64),
		stderr: make(chan string, 16),
		exited: make(chan exitStatus, 1),
		killed: atomic.NewBool(false),
	}

	var grp errgroup.Group
	grp.Go(func() error { return readLines(stdout, p.stdout) })
	grp.Go(func() error { return readLines(stderr, p.stderr) })

	go func() {
		readErr := grp.Wait()
		err := cmd.Wait()
		p.exited <- waitStatus(cmd, err, readErr)
	}()

	return p, nil
}

// writeLine sends one command line to the debugger's stdin. A broken pipe is
// reported, never silently dropped.
func (p *process) writeLine(line string) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	if _, err := io.WriteString(p.stdin, line+"\n"); err != nil {
		return &ProcessError{Op: "write", Err: err}
	}
	return nil
}

// kill terminates the debugger process. Safe to invoke more than once.
func (p *process) kill() {
	if !p.killed.CAS(false, true) {
		return
	}
	p.stdin.Close()
	if p.cmd != nil && p.cmd.Process != nil {
		p.cmd.Process.Kill()
	}
}

func readLines(r io.Reader, out chan<- string) error {
	defer close(out)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	for sc.Scan() {
		out <- sc.Text()
	}
	return sc.Err()
}

// waitStatus distinguishes a normal exit code from signal termination.
func waitStatus(cmd *exec.Cmd, waitErr, readErr error) exitStatus {
	st := exitStatus{Code: -1}
	if ps := cmd.ProcessState; ps != nil {
		if ws, ok := ps.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			st.Signal = ws.Signal().String()
		} else {
			st.Code = ps.ExitCode()
		}
	}
	if st.Signal == "" && st.Code != 0 && waitErr != nil {
		st.Err = waitErr
	}
	if st.Err == nil && readErr != nil {
		st.Err = readErr
	}
	return st
}
