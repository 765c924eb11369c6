package gdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gdbfront/pkg/mi"
)

func TestTrackerRunStopCycle(t *testing.T) {
	tr := newTracker()
	assert.Equal(t, NotStarted, tr.state.Phase)

	events := tr.applyExec(mi.Decode(`*running,thread-id="all"`))
	require.Len(t, events, 1)
	assert.Equal(t, Running, tr.state.Phase)

	events = tr.applyExec(mi.Decode(`*stopped,reason="end-stepping-range",frame={addr="0x23e7",func="main",file="main.c",line="35"},thread-id="1"`))
	require.NotEmpty(t, events)
	assert.Equal(t, Stopped, tr.state.Phase)
	assert.Equal(t, ReasonStepComplete, tr.state.Reason)
	require.NotNil(t, tr.state.Frame)
	assert.Equal(t, "main.c", tr.state.Frame.File)
	assert.Equal(t, 35, tr.state.Frame.Line)

	// resuming drops the frame
	tr.applyExec(mi.Decode(`*running,thread-id="all"`))
	assert.Equal(t, Running, tr.state.Phase)
	assert.Nil(t, tr.state.Frame)
}

func TestTrackerBreakpointHitCount(t *testing.T) {
	tr := newTracker()
	tr.applyResult(mi.Decode(`1^done,bkpt={number="1",file="main.c",fullname="/src/main.c",line="15",enabled="y",times="0"}`))

	require.Len(t, tr.breakpointList(), 1)
	bp := tr.breakpointList()[0]
	assert.Equal(t, 1, bp.ID)
	assert.Equal(t, "/src/main.c", bp.File)
	assert.Equal(t, 15, bp.Line)
	assert.True(t, bp.Enabled)
	assert.Equal(t, 0, bp.HitCount)

	events := tr.applyExec(mi.Decode(`*stopped,reason="breakpoint-hit",bkptno="1",frame={func="main",file="main.c",line="15"}`))
	assert.Equal(t, Stopped, tr.state.Phase)
	assert.Equal(t, ReasonBreakpointHit, tr.state.Reason)
	assert.Equal(t, 1, tr.breakpointList()[0].HitCount)

	// a breakpoints event and a state event, in that order
	require.Len(t, events, 2)
	_, ok := events[0].(BreakpointsEvent)
	assert.True(t, ok)
	_, ok = events[1].(StateEvent)
	assert.True(t, ok)
}

func TestTrackerBreakpointUpsertNoDuplicates(t *testing.T) {
	tr := newTracker()

	// command path inserts
	tr.applyResult(mi.Decode(`1^done,bkpt={number="2",file="main.c",line="20",enabled="y",times="0"}`))
	// notify path updates the same id out of band
	tr.applyNotify(mi.Decode(`=breakpoint-modified,bkpt={number="2",file="main.c",line="20",enabled="n",times="3"}`))

	bps := tr.breakpointList()
	require.Len(t, bps, 1)
	assert.False(t, bps[0].Enabled)
	assert.Equal(t, 3, bps[0].HitCount)

	// notify path can also create
	tr.applyNotify(mi.Decode(`=breakpoint-created,bkpt={number="5",file="util.c",line="7",enabled="y"}`))
	bps = tr.breakpointList()
	require.Len(t, bps, 2)
	assert.Equal(t, 2, bps[0].ID)
	assert.Equal(t, 5, bps[1].ID)
}

func TestTrackerBreakpointDeletedNotify(t *testing.T) {
	tr := newTracker()
	tr.applyNotify(mi.Decode(`=breakpoint-created,bkpt={number="1",file="main.c",line="5",enabled="y"}`))

	events := tr.applyNotify(mi.Decode(`=breakpoint-deleted,id="1"`))
	require.Len(t, events, 1)
	assert.Empty(t, tr.breakpointList())

	// deleting an unknown id changes nothing
	events = tr.applyNotify(mi.Decode(`=breakpoint-deleted,id="9"`))
	assert.Nil(t, events)
}

func TestTrackerSnapshotsInvalidatedOnResume(t *testing.T) {
	tr := newTracker()
	tr.applyExec(mi.Decode(`*stopped,reason="breakpoint-hit",frame={func="main",file="main.c",line="15"}`))

	tr.applyResult(mi.Decode(`3^done,stack=[frame={level="0",func="inner",file="main.c",line="15"},frame={level="1",func="main",file="main.c",line="40"}]`))
	tr.applyResult(mi.Decode(`4^done,variables=[{name="x",value="1",type="int"},{name="s",value="\"hi\""}]`))

	require.True(t, tr.stackValid)
	require.Len(t, tr.stack, 2)
	assert.Equal(t, "inner", tr.stack[0].Function)
	assert.Equal(t, 0, tr.stack[0].Level)
	require.True(t, tr.varsValid)
	require.Len(t, tr.vars, 2)
	assert.Equal(t, "int", tr.vars[0].Type)

	// the target moves: everything captured while stopped is stale
	tr.applyExec(mi.Decode(`*running,thread-id="all"`))
	assert.False(t, tr.stackValid)
	assert.Nil(t, tr.stack)
	assert.False(t, tr.varsValid)
	assert.Nil(t, tr.vars)
}

func TestTrackerSnapshotsInvalidatedOnNextStop(t *testing.T) {
	tr := newTracker()
	tr.applyExec(mi.Decode(`*stopped,reason="breakpoint-hit",frame={func="main",file="main.c",line="15"}`))
	tr.applyResult(mi.Decode(`3^done,stack=[frame={level="0",func="main",file="main.c",line="15"}]`))
	tr.applyResult(mi.Decode(`4^done,variables=[{name="x",value="1"}]`))
	require.True(t, tr.stackValid)
	require.True(t, tr.varsValid)

	// a second stop with no '*running' in between; the old snapshots
	// describe the old location and must not be served at the new one
	tr.applyExec(mi.Decode(`*stopped,reason="signal-received",signal-name="SIGINT",frame={func="worker",file="util.c",line="8"}`))
	assert.Equal(t, Stopped, tr.state.Phase)
	assert.False(t, tr.stackValid)
	assert.Nil(t, tr.stack)
	assert.False(t, tr.varsValid)
	assert.Nil(t, tr.vars)
}

func TestTrackerSnapshotsIgnoredWhileRunning(t *testing.T) {
	tr := newTracker()
	tr.applyExec(mi.Decode(`*running,thread-id="all"`))

	// a stale stack reply arriving after the resume must not stick
	tr.applyResult(mi.Decode(`3^done,stack=[frame={level="0",func="main"}]`))
	assert.False(t, tr.stackValid)
}

func TestTrackerExit(t *testing.T) {
	tr := newTracker()
	tr.applyNotify(mi.Decode(`=breakpoint-created,bkpt={number="1",file="main.c",line="5",enabled="y"}`))
	tr.applyExec(mi.Decode(`*running,thread-id="all"`))

	events := tr.applyExec(mi.Decode(`*stopped,reason="exited-normally"`))
	assert.Equal(t, Exited, tr.state.Phase)
	assert.Equal(t, ReasonExitedNormally, tr.state.Reason)

	// breakpoint ids die with the target
	assert.Empty(t, tr.breakpointList())
	require.Len(t, events, 2)

	// terminal: nothing moves the machine afterwards
	assert.Nil(t, tr.applyExec(mi.Decode(`*running,thread-id="all"`)))
	assert.Equal(t, Exited, tr.state.Phase)
}

func TestTrackerExitBySignal(t *testing.T) {
	tr := newTracker()
	tr.applyExec(mi.Decode(`*stopped,reason="exited-signalled",signal-name="SIGSEGV"`))

	assert.Equal(t, Exited, tr.state.Phase)
	assert.Equal(t, ReasonExitedSignalled, tr.state.Reason)
	assert.Equal(t, "SIGSEGV", tr.state.ExitSignal)
}

func TestTrackerProcessExit(t *testing.T) {
	tr := newTracker()
	tr.applyExec(mi.Decode(`*running,thread-id="all"`))

	events := tr.applyProcessExit(-1, "killed")
	assert.Equal(t, Exited, tr.state.Phase)
	assert.Equal(t, "killed", tr.state.ExitSignal)
	require.NotEmpty(t, events)
}

func TestStateCopyIsDetached(t *testing.T) {
	tr := newTracker()
	tr.applyExec(mi.Decode(`*stopped,reason="breakpoint-hit",frame={func="main",file="main.c",line="15"}`))

	snap := tr.stateCopy()
	require.NotNil(t, snap.Frame)
	snap.Frame.Line = 999
	assert.Equal(t, 15, tr.state.Frame.Line)
}
