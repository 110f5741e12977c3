package main

import "strings"

// completer implements readline.AutoCompleter
type completer struct{}

var allCommands = []string{
	"put", "get", "del", "scan", "flush", "compact", "compactall", "reset",
	"stats", "levels", "export", "import", "help", "clear", "exit",
}

// Do completes the command word only; keys and file names are free text.
// It returns the candidate suffixes and the length of the token they extend.
func (c completer) Do(line []rune, pos int) ([][]rune, int) {
	if pos < 0 {
		pos = 0
	}
	if pos > len(line) {
		pos = len(line)
	}
	prefix := string(line[:pos])
	if strings.ContainsAny(prefix, " \t") {
		return nil, 0
	}

	var out [][]rune
	for _, cmd := range allCommands {
		if strings.HasPrefix(cmd, strings.ToLower(prefix)) {
			out = append(out, []rune(cmd[len(prefix):]))
		}
	}
	return out, len([]rune(prefix))
}
