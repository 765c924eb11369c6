package debug

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"gdbfront/pkg/gdb"
)

const (
	cmdGroupAnnotation = "cmd_group_annotation"

	cmdGroupBreakpoints = "1-breaks"
	cmdGroupCtrlFlow    = "2-execute"
	cmdGroupInfo        = "3-info"
	cmdGroupOthers      = "4-other"
	cmdGroupCobra       = "other"

	prefix    = "gdbfront> "
	descShort = "gdbfront interactive debugging commands"
)

var debugRootCmd = &cobra.Command{
	Use:   "help [command]",
	Short: descShort,
}

var (
	CurrentSession *DebugSession

	// sess is the live debug session every shell command talks to.
	sess *gdb.Session
)

// StartSession spawns the debugger and makes the session available to the
// shell commands.
func StartSession(cfg gdb.Config) error {
	s, err := gdb.New(cfg)
	if err != nil {
		return err
	}
	sess = s
	return nil
}

// CloseSession shuts the debugger down. Safe to call more than once, or
// before any session started.
func CloseSession() {
	if sess != nil {
		sess.Close()
	}
}

// DebugSession is the interactive shell: a liner prompt dispatching into the
// shell command set, plus a background drain of the session's event stream
// standing in for the GUI panels.
type DebugSession struct {
	done   chan bool
	prefix string
	root   *cobra.Command
	liner  *liner.State
	last   string

	defers []func()
}

// NewDebugSession creates the interactive shell around the live session.
func NewDebugSession() *DebugSession {
	fn := func(cmd *cobra.Command, args []string) {
		fmt.Println(cmd.Short)
		fmt.Println()
		fmt.Println(cmd.Use)
		fmt.Println(cmd.Flags().FlagUsages())

		usage := helpMessageByGroups(cmd)
		fmt.Println(usage)
	}
	debugRootCmd.SetHelpFunc(fn)

	return &DebugSession{
		done:   make(chan bool),
		prefix: prefix,
		root:   debugRootCmd,
		liner:  liner.NewLiner(),
		last:   "",
	}
}

func (s *DebugSession) Start() {
	s.liner.SetCompleter(completer)
	s.liner.SetTabCompletionStyle(liner.TabPrints)

	defer func() {
		for idx := len(s.defers) - 1; idx >= 0; idx-- {
			s.defers[idx]()
		}
	}()

	sub := sess.Subscribe("shell")
	go printEvents(s, sub)
	defer sess.Unsubscribe(sub)

	for {
		select {
		case <-s.done:
			s.liner.Close()
			return
		default:
		}

		txt, err := s.liner.Prompt(s.prefix)
		if err != nil {
			s.liner.Close()
			return
		}

		txt = strings.TrimSpace(txt)
		if len(txt) != 0 {
			s.last = txt
			s.liner.AppendHistory(txt)
		} else {
			txt = s.last
		}

		s.root.SetArgs(strings.Split(txt, " "))
		s.root.Execute()
	}
}

func (s *DebugSession) AtExit(fn func()) *DebugSession {
	s.defers = append(s.defers, fn)
	return s
}

func (s *DebugSession) Stop() {
	close(s.done)
}

// printEvents renders the event stream: raw output verbatim, state changes
// as one-liners. This is what the source viewer and output panels would
// consume in a GUI build.
func printEvents(s *DebugSession, sub *gdb.Subscription) {
	for ev := range sub.C() {
		switch ev := ev.(type) {
		case gdb.OutputEvent:
			fmt.Print(ev.Text)

		case gdb.StateEvent:
			fmt.Println(describeState(ev.State))

		case gdb.BreakpointsEvent:
			// panels re-query; the shell prints on demand via 'breaks'

		case gdb.TerminatedEvent:
			if ev.Err != nil {
				fmt.Printf("debug session ended: %v\n", ev.Err)
			} else {
				fmt.Println("debug session ended")
			}
		}
	}
}

func describeState(st gdb.ExecutionState) string {
	switch st.Phase {
	case gdb.Running:
		return "target running"
	case gdb.Stopped:
		loc := "?"
		if st.Frame != nil {
			loc = fmt.Sprintf("%s:%d in %s", st.Frame.File, st.Frame.Line, st.Frame.Function)
		}
		return fmt.Sprintf("stopped at %s (%s)", loc, st.Reason)
	case gdb.Exited:
		if st.ExitSignal != "" {
			return "target killed by signal " + st.ExitSignal
		}
		return fmt.Sprintf("target exited with code %d", st.ExitCode)
	}
	return "target " + st.Phase.String()
}

func completer(line string) []string {
	cmds := []string{}
	for _, c := range debugRootCmd.Commands() {
		// complete cmd
		if strings.HasPrefix(c.Use, line) {
			cmds = append(cmds, strings.Split(c.Use, " ")[0])
		}
		// complete cmd's aliases
		for _, alias := range c.Aliases {
			if strings.HasPrefix(alias, line) {
				cmds = append(cmds, alias)
			}
		}
	}
	return cmds
}

// helpMessageByGroups lists the commands under their group headings.
func helpMessageByGroups(cmd *cobra.Command) string {
	// key:group, val:sorted commands in same group
	groups := map[string][]string{}
	for _, c := range cmd.Commands() {
		var groupName string
		v, ok := c.Annotations[cmdGroupAnnotation]
		if !ok {
			groupName = "other"
		} else {
			groupName = v
		}

		groupCmds := groups[groupName]
		groupCmds = append(groupCmds, fmt.Sprintf("  %-16s:%s", c.Name(), c.Short))
		sort.Strings(groupCmds)

		groups[groupName] = groupCmds
	}

	if len(groups[cmdGroupCobra]) != 0 {
		groups[cmdGroupOthers] = append(groups[cmdGroupOthers], groups[cmdGroupCobra]...)
	}
	delete(groups, cmdGroupCobra)

	groupNames := []string{}
	for k := range groups {
		groupNames = append(groupNames, k)
	}
	sort.Strings(groupNames)

	buf := bytes.Buffer{}
	for _, groupName := range groupNames {
		commands := groups[groupName]

		group := strings.SplitN(groupName, "-", 2)[1]
		buf.WriteString("- " + group + "\n")
		for _, cmd := range commands {
			buf.WriteString(cmd + "\n")
		}
		buf.WriteString("\n")
	}
	return buf.String()
}
