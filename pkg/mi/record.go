package mi

import "strconv"

// RecordKind classifies a decoded output line by its leading character.
type RecordKind int

const (
	// KindResult is a reply to a tokenized command, prefixed with '^'.
	KindResult RecordKind = iota
	// KindAsyncExec reports a spontaneous execution-state change, prefixed with '*'.
	KindAsyncExec
	// KindAsyncStatus reports progress of a slow operation, prefixed with '+'.
	KindAsyncStatus
	// KindAsyncNotify reports supplementary state the frontend should track
	// (breakpoints, threads, libraries), prefixed with '='.
	KindAsyncNotify
	// KindConsoleStream is textual CLI output, prefixed with '~'.
	KindConsoleStream
	// KindLogStream is debugger-internal log text, prefixed with '&'.
	KindLogStream
	// KindTargetStream is output produced by the target program, prefixed with '@'.
	KindTargetStream
	// KindPrompt is a "(gdb)" terminator or blank line; carries no information.
	KindPrompt
	// KindMalformed is a line that failed the output grammar. The raw text and
	// the parse error are preserved; the pipeline must never abort on these.
	KindMalformed
)

func (k RecordKind) String() string {
	switch k {
	case KindResult:
		return "result"
	case KindAsyncExec:
		return "exec-async"
	case KindAsyncStatus:
		return "status-async"
	case KindAsyncNotify:
		return "notify-async"
	case KindConsoleStream:
		return "console-stream"
	case KindLogStream:
		return "log-stream"
	case KindTargetStream:
		return "target-stream"
	case KindPrompt:
		return "prompt"
	}
	return "malformed"
}

// IsStream reports whether the record carries display text rather than
// structured state.
func (k RecordKind) IsStream() bool {
	return k == KindConsoleStream || k == KindLogStream || k == KindTargetStream
}

// Result classes defined by the output grammar.
const (
	ClassDone      = "done"
	ClassRunning   = "running"
	ClassConnected = "connected"
	ClassError     = "error"
	ClassExit      = "exit"
	ClassStopped   = "stopped"
)

// NoToken marks a record or command line that carries no numeric token prefix.
const NoToken int64 = -1

// Record is one parsed line of debugger output. It should not be modified
// after decoding.
type Record struct {
	Kind       RecordKind
	Token      int64  // NoToken when absent; only meaningful for result records
	Class      string // result-class or async-class
	Results    Tuple  // name/value pairs following the class, possibly empty
	Stream     string // unescaped text for stream kinds
	Raw        string // the line as received
	ParseError string // set for KindMalformed only
}

// ErrorMessage returns the debugger-supplied message of an error result, or
// the empty string when there is none.
func (r *Record) ErrorMessage() string {
	if r.Kind != KindResult || r.Class != ClassError {
		return ""
	}
	msg, _ := r.Results.GetString("msg")
	return msg
}

// Value is one node of the recursive output value grammar:
// a Const scalar, an order-preserving Tuple, or a List.
type Value interface {
	isValue()
}

// Const is a scalar value, already unescaped to its literal text. The core
// never interprets the debugger's value syntax beyond this.
type Const string

func (Const) isValue() {}

// Field is a named value inside a tuple.
type Field struct {
	Name  string
	Value Value
}

// Tuple is an ordered sequence of uniquely named fields. A duplicated name
// overwrites the earlier field in place, so lookups are unambiguous while
// the original ordering is preserved.
type Tuple []Field

func (Tuple) isValue() {}

func (t Tuple) add(name string, v Value) Tuple {
	for i := range t {
		if t[i].Name == name {
			t[i].Value = v
			return t
		}
	}
	return append(t, Field{Name: name, Value: v})
}

// Get returns the value of the named field.
func (t Tuple) Get(name string) (Value, bool) {
	for i := range t {
		if t[i].Name == name {
			return t[i].Value, true
		}
	}
	return nil, false
}

// GetString returns the named field as scalar text.
func (t Tuple) GetString(name string) (string, bool) {
	v, ok := t.Get(name)
	if !ok {
		return "", false
	}
	c, ok := v.(Const)
	return string(c), ok
}

// GetInt returns the named field parsed as a decimal integer.
func (t Tuple) GetInt(name string) (int, bool) {
	s, ok := t.GetString(name)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// GetTuple returns the named field as a nested tuple.
func (t Tuple) GetTuple(name string) (Tuple, bool) {
	v, ok := t.Get(name)
	if !ok {
		return nil, false
	}
	sub, ok := v.(Tuple)
	return sub, ok
}

// GetList returns the named field as a list.
func (t Tuple) GetList(name string) (List, bool) {
	v, ok := t.Get(name)
	if !ok {
		return nil, false
	}
	l, ok := v.(List)
	return l, ok
}

// List is an ordered sequence of values. Lists of named results, such as
// stack=[frame={...},frame={...}], are folded into single-field tuples so
// that every element is a plain Value.
type List []Value

func (List) isValue() {}
