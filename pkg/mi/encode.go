package mi

import (
	"fmt"
	"strconv"
	"strings"
)

// Encode renders a token-prefixed command line, without the trailing newline.
// The token is supplied by the caller; pass NoToken to omit the prefix.
// Arguments are quoted and escaped only when their content requires it.
func Encode(token int64, operation string, args ...string) string {
	var b strings.Builder
	if token != NoToken {
		b.WriteString(strconv.FormatInt(token, 10))
	}
	b.WriteString(operation)
	for _, arg := range args {
		b.WriteByte(' ')
		b.WriteString(quoteArg(arg))
	}
	return b.String()
}

// ParseCommand splits an encoded command line back into its token and the
// remaining command text. Lines without a digit prefix yield NoToken.
func ParseCommand(line string) (token int64, command string, err error) {
	line = strings.TrimRight(line, "\r\n")
	p := &parser{s: line}
	digits := p.parseDigits()
	if len(digits) == 0 {
		return NoToken, line, nil
	}
	token, err = strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return NoToken, "", fmt.Errorf("command token %q overflows int64", digits)
	}
	return token, line[p.i:], nil
}

func quoteArg(s string) string {
	if len(s) > 0 && !strings.ContainsAny(s, " \t\"\\") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteByte(s[i])
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(s[i])
		}
	}
	b.WriteByte('"')
	return b.String()
}
