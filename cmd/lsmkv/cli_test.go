package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitCmdRest(t *testing.T) {
	cmd, rest := splitCmdRest("put 7 hello world")
	assert.Equal(t, "put", cmd)
	assert.Equal(t, "7 hello world", rest)

	cmd, rest = splitCmdRest("stats")
	assert.Equal(t, "stats", cmd)
	assert.Empty(t, rest)
}

func TestParseKey(t *testing.T) {
	key, ok := parseKey("18446744073709551615", "get <key>")
	assert.True(t, ok)
	assert.Equal(t, uint64(18446744073709551615), key)

	_, ok = parseKey("-1", "get <key>")
	assert.False(t, ok)

	_, ok = parseKey("", "get <key>")
	assert.False(t, ok)
}

func TestCompleter(t *testing.T) {
	var c completer

	got, n := c.Do([]rune("com"), 3)
	assert.Equal(t, 3, n)
	assert.ElementsMatch(t, [][]rune{[]rune("pact"), []rune("pactall")}, got)

	got, _ = c.Do([]rune("get 1"), 5)
	assert.Empty(t, got)

	got, n = c.Do([]rune(""), 0)
	assert.Equal(t, 0, n)
	assert.Len(t, got, len(allCommands))
}
