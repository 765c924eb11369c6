package mi

import (
	"fmt"
	"strconv"
	"strings"
)

// Holds state for parsing a single line.
type parser struct {
	s string // the source text
	i int    // the current position
}

// Decode parses one line of debugger output into a Record. It never returns
// an error: lines that fail the output grammar decode to KindMalformed with
// the raw text and a description of the failure preserved, and "(gdb)"
// terminator lines and blank lines decode to KindPrompt.
//
// output grammar: http://sourceware.org/gdb/onlinedocs/gdb/GDB_002fMI-Output-Syntax.html
func Decode(line string) *Record {
	raw := strings.TrimRight(line, "\r\n")
	rec := &Record{Kind: KindMalformed, Token: NoToken, Raw: raw}

	trimmed := strings.TrimSpace(raw)
	if len(trimmed) == 0 || strings.HasPrefix(trimmed, "(gdb)") {
		rec.Kind = KindPrompt
		return rec
	}

	p := &parser{s: trimmed}
	if digits := p.parseDigits(); len(digits) > 0 {
		tok, err := strconv.ParseInt(digits, 10, 64)
		if err != nil {
			return malformed(rec, "token overflows int64")
		}
		rec.Token = tok
	}

	if p.i >= len(p.s) {
		return malformed(rec, "expected record prefix (one of ^*+=~@&), found end of line")
	}

	switch c := p.s[p.i]; c {
	case '^', '*', '+', '=':
		switch c {
		case '^':
			rec.Kind = KindResult
		case '*':
			rec.Kind = KindAsyncExec
		case '+':
			rec.Kind = KindAsyncStatus
		case '=':
			rec.Kind = KindAsyncNotify
		}
		p.i++

		rec.Class = p.parseWord()
		if len(rec.Class) == 0 {
			return malformed(rec, p.expected("result or async record", "class name"))
		}
		if p.i >= len(p.s) {
			return rec
		}
		if !p.consume(',') {
			return malformed(rec, p.expected("result or async record", "','"))
		}
		rec.Results = p.parseResults()
		return rec

	case '~', '@', '&':
		switch c {
		case '~':
			rec.Kind = KindConsoleStream
		case '@':
			rec.Kind = KindTargetStream
		case '&':
			rec.Kind = KindLogStream
		}
		p.i++

		text, err := p.parseCString()
		if err != nil {
			rec.Kind = KindMalformed
			rec.ParseError = err.Error()
			return rec
		}
		rec.Stream = text
		return rec
	}

	return malformed(rec, p.expected("record", "prefix (one of ^*+=~@&)"))
}

func malformed(rec *Record, why string) *Record {
	rec.Kind = KindMalformed
	rec.ParseError = why
	return rec
}

// Parses the name/value pairs following a record class, up to the end of the
// line. A fragment that fails the grammar degrades to a single Const holding
// the unparsed remainder rather than failing the whole record.
//
// result ( "," result )*
func (p *parser) parseResults() Tuple {
	t := Tuple{}
	for {
		rest := p.i
		name := p.parseWord()
		if len(name) == 0 || !p.consume('=') {
			return t.add("raw", Const(p.s[rest:]))
		}
		valStart := p.i
		v, err := p.parseValue()
		if err != nil {
			return t.add(name, Const(p.s[valStart:]))
		}
		t = t.add(name, v)

		if p.i >= len(p.s) {
			return t
		}
		if !p.consume(',') {
			return t.add("raw", Const(p.s[p.i:]))
		}
	}
}

// result ==> variable "=" value
func (p *parser) parseResult() (name string, v Value, err error) {
	name = p.parseWord()
	if len(name) == 0 {
		return "", nil, p.errExpected("result", "name")
	}
	if !p.consume('=') {
		return name, nil, p.errExpected("result", "'='")
	}
	v, err = p.parseValue()
	return name, v, err
}

// value ==> const | tuple | list
func (p *parser) parseValue() (Value, error) {
	if p.i >= len(p.s) {
		return nil, p.errEOF("value", `'"', '{' or '['`)
	}
	switch p.s[p.i] {
	case '"':
		s, err := p.parseCString()
		return Const(s), err
	case '{':
		return p.parseTuple()
	case '[':
		return p.parseList()
	}
	return nil, p.errExpected("value", `'"', '{' or '['`)
}

// tuple ==> "{}" | "{" result ( "," result )* "}"
func (p *parser) parseTuple() (Tuple, error) {
	if !p.consume('{') {
		return nil, p.errExpected("tuple", "'{'")
	}
	t := Tuple{}
	if p.consume('}') {
		return t, nil
	}
	for {
		name, v, err := p.parseResult()
		if err != nil {
			return t, err
		}
		t = t.add(name, v)

		if p.i >= len(p.s) {
			return t, p.errEOF("tuple", "',' or '}'")
		}
		if !p.consume(',') {
			break
		}
	}
	if !p.consume('}') {
		return t, p.errExpected("tuple", "'}'")
	}
	return t, nil
}

// list ==> "[]" | "[" value ( "," value )* "]" | "[" result ( "," result )* "]"
//
// A list of results is folded into a list of single-field tuples.
func (p *parser) parseList() (List, error) {
	if !p.consume('[') {
		return nil, p.errExpected("list", "'['")
	}
	l := List{}
	if p.consume(']') {
		return l, nil
	}
	if p.i >= len(p.s) {
		return l, p.errEOF("list", "value, result or ']'")
	}

	switch c := p.s[p.i]; {
	case c == '"' || c == '{' || c == '[':
		for {
			v, err := p.parseValue()
			if err != nil {
				return l, err
			}
			l = append(l, v)
			if p.i >= len(p.s) {
				return l, p.errEOF("list", "',' or ']'")
			}
			if !p.consume(',') {
				break
			}
		}

	default:
		for {
			name, v, err := p.parseResult()
			if err != nil {
				return l, err
			}
			l = append(l, Tuple{{Name: name, Value: v}})
			if p.i >= len(p.s) {
				return l, p.errEOF("list", "',' or ']'")
			}
			if !p.consume(',') {
				break
			}
		}
	}

	if !p.consume(']') {
		return l, p.errExpected("list", "']'")
	}
	return l, nil
}

// Parses a double-quoted c-string starting at the current position and
// returns its unescaped content. The position advances past the closing
// quote.
func (p *parser) parseCString() (string, error) {
	if p.i >= len(p.s) {
		return "", p.errEOF("string", `'"'`)
	}
	if p.s[p.i] != '"' {
		return "", p.errExpected("string", `'"'`)
	}
	p.i++
	start := p.i

	for i := p.i; i < len(p.s); {
		switch p.s[i] {
		case '\\':
			i += 2
		case '"':
			p.i = i + 1
			return unescape(p.s[start:i]), nil
		default:
			i++
		}
	}
	p.i = len(p.s)
	return "", p.errEOF("string", `a character or terminating '"'`)
}

// unescape resolves c-string backslash escapes to their literal characters.
// Unknown escapes keep the escaped character as-is.
func unescape(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 >= len(s) {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'a':
			b.WriteByte('\a')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		case '0', '1', '2', '3', '4', '5', '6', '7':
			n, j := 0, i
			for j < len(s) && j < i+3 && s[j] >= '0' && s[j] <= '7' {
				n = n*8 + int(s[j]-'0')
				j++
			}
			b.WriteByte(byte(n))
			i = j - 1
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// Returns the run of letters, '-' and '_' starting at the current position.
func (p *parser) parseWord() string {
	start, i := p.i, p.i
	for i < len(p.s) {
		c := p.s[i]
		if 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || c == '-' || c == '_' {
			i++
			continue
		}
		break
	}
	if i == start {
		return ""
	}
	p.i = i
	return p.s[start:i]
}

// Returns the run of digits starting at the current position.
func (p *parser) parseDigits() string {
	start, i := p.i, p.i
	for i < len(p.s) && '0' <= p.s[i] && p.s[i] <= '9' {
		i++
	}
	if i == start {
		return ""
	}
	p.i = i
	return p.s[start:i]
}

// Returns true and advances the position if the current character is c.
func (p *parser) consume(c byte) bool {
	if p.i < len(p.s) && p.s[p.i] == c {
		p.i++
		return true
	}
	return false
}

func (p *parser) expected(elem, want string) string {
	if p.i >= len(p.s) {
		return fmt.Sprintf("malformed %s, expected %s, found end of line", elem, want)
	}
	return fmt.Sprintf("malformed %s, expected %s, found %q at %d", elem, want, p.s[p.i], p.i)
}

func (p *parser) errExpected(elem, want string) error {
	return fmt.Errorf("%s", p.expected(elem, want))
}

func (p *parser) errEOF(elem, want string) error {
	return fmt.Errorf("malformed %s, expected %s, found end of line", elem, want)
}
