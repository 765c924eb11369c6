package mi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	assert.Equal(t, "7-exec-run", Encode(7, "-exec-run"))
	assert.Equal(t, "12-break-insert main.c:15", Encode(12, "-break-insert", "main.c:15"))
	assert.Equal(t, "-gdb-exit", Encode(NoToken, "-gdb-exit"))
}

func TestEncodeQuotesArgs(t *testing.T) {
	line := Encode(3, "-data-evaluate-expression", `x > 5 && s == "hi"`)
	assert.Equal(t, `3-data-evaluate-expression "x > 5 && s == \"hi\""`, line)

	// empty arguments still occupy a position
	assert.Equal(t, `1-interpreter-exec ""`, Encode(1, "-interpreter-exec", ""))
}

func TestCommandTokenRoundTrip(t *testing.T) {
	for _, token := range []int64{0, 1, 42, 99, 123456789} {
		line := Encode(token, "-break-insert", "main.c:15")

		got, command, err := ParseCommand(line)
		require.NoError(t, err)
		assert.Equal(t, token, got)
		assert.Equal(t, "-break-insert main.c:15", command)
	}
}

func TestParseCommandWithoutToken(t *testing.T) {
	token, command, err := ParseCommand("-exec-continue\n")
	require.NoError(t, err)
	assert.Equal(t, NoToken, token)
	assert.Equal(t, "-exec-continue", command)
}
