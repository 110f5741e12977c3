package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/dd0wney/cluso-kv/pkg/dump"
	"github.com/dd0wney/cluso-kv/pkg/lsm"
)

// maxScanRows caps how many rows a scan prints
const maxScanRows = 50

// CLI is the interactive shell over one store
type CLI struct {
	store *lsm.LSMStorage
	rl    *readline.Instance
}

func (cli *CLI) run() {
	for {
		line, err := cli.rl.Readline()
		if err != nil {
			// Ctrl+D / Ctrl+C / EOF
			fmt.Println()
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		cmd, rest := splitCmdRest(line)
		cmd = strings.ToLower(cmd)
		if cmd == "exit" || cmd == "quit" {
			fmt.Println("👋 Goodbye!")
			return
		}

		cli.executeCommand(cmd, rest)
		fmt.Println()
	}
}

func (cli *CLI) executeCommand(cmd, rest string) {
	start := time.Now()

	switch cmd {
	case "help":
		showHelp()

	case "put":
		keyArg, value := splitCmdRest(rest)
		key, ok := parseKey(keyArg, "put <key> <value>")
		if !ok {
			return
		}
		if err := cli.store.Put(key, value); err != nil {
			fmt.Printf("❌ %v\n", err)
			return
		}
		fmt.Printf("✅ OK (%v)\n", time.Since(start))

	case "get":
		key, ok := parseKey(rest, "get <key>")
		if !ok {
			return
		}
		value, found, err := cli.store.Get(key)
		switch {
		case err != nil && !found:
			fmt.Printf("❌ %v\n", err)
		case !found:
			fmt.Println("(not found)")
		default:
			fmt.Printf("%q\n", value)
		}

	case "del", "delete":
		key, ok := parseKey(rest, "del <key>")
		if !ok {
			return
		}
		existed, err := cli.store.Delete(key)
		if err != nil {
			fmt.Printf("❌ %v\n", err)
			return
		}
		fmt.Println(existed)

	case "scan":
		fields := strings.Fields(rest)
		if len(fields) != 2 {
			fmt.Println("Usage: scan <lo> <hi>")
			return
		}
		lo, ok := parseKey(fields[0], "scan <lo> <hi>")
		if !ok {
			return
		}
		hi, ok := parseKey(fields[1], "scan <lo> <hi>")
		if !ok {
			return
		}
		cli.scan(lo, hi, start)

	case "flush":
		cli.report("flush", cli.store.Flush(), start)

	case "compact":
		cli.report("compact", cli.store.Compact(), start)

	case "compactall":
		cli.report("compactall", cli.store.CompactAll(), start)

	case "reset":
		cli.report("reset", cli.store.Reset(), start)

	case "stats", "status":
		cli.showStats()

	case "levels":
		cli.showLevels()

	case "export":
		if rest == "" {
			fmt.Println("Usage: export <file>")
			return
		}
		n, err := dump.ExportFile(rest, cli.store)
		if err != nil {
			fmt.Printf("❌ %v\n", err)
			return
		}
		fmt.Printf("✅ Exported %d entries to %s (%v)\n", n, rest, time.Since(start))

	case "import":
		if rest == "" {
			fmt.Println("Usage: import <file>")
			return
		}
		n, err := dump.ImportFile(rest, cli.store)
		if err != nil {
			fmt.Printf("❌ %v (after %d entries)\n", err, n)
			return
		}
		fmt.Printf("✅ Imported %d entries from %s (%v)\n", n, rest, time.Since(start))

	case "clear":
		fmt.Print("\033[H\033[2J")

	default:
		fmt.Printf("❌ Unknown command: %s (type 'help' for available commands)\n", cmd)
	}
}

func (cli *CLI) scan(lo, hi uint64, start time.Time) {
	kvs, err := cli.store.Scan(lo, hi)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		return
	}
	for i, kv := range kvs {
		if i == maxScanRows {
			fmt.Printf("... %d more\n", len(kvs)-maxScanRows)
			break
		}
		fmt.Printf("%d\t%q\n", kv.Key, kv.Value)
	}
	fmt.Printf("(%d entries, %v)\n", len(kvs), time.Since(start))
}

func (cli *CLI) report(op string, err error, start time.Time) {
	if err != nil {
		fmt.Printf("❌ %s failed: %v\n", op, err)
		return
	}
	fmt.Printf("✅ %s done (%v)\n", op, time.Since(start))
}

func (cli *CLI) showStats() {
	s := cli.store.GetStats()
	fmt.Println("📊 Store Statistics")
	fmt.Printf("   Store ID:        %s\n", s.StoreID)
	fmt.Printf("   Writes:          %d (%d bytes)\n", s.WriteCount, s.BytesWritten)
	fmt.Printf("   Reads:           %d\n", s.ReadCount)
	fmt.Printf("   Deletes:         %d\n", s.DeleteCount)
	fmt.Printf("   Scans:           %d\n", s.ScanCount)
	fmt.Printf("   Flushes:         %d\n", s.FlushCount)
	fmt.Printf("   Compactions:     %d (%d keys removed)\n", s.CompactionCount, s.KeysRemoved)
	fmt.Printf("   MemTable:        %d entries, %d bytes\n", s.MemTableEntries, s.MemTableSize)
	fmt.Printf("   Tables:          %d (%d in level 0)\n", s.SSTableCount, s.Level0FileCount)
	fmt.Printf("   Cache:           %d hits, %d misses\n", s.CacheHits, s.CacheMisses)
	if s.CorruptTables > 0 || s.OrphanedTables > 0 {
		fmt.Printf("   ⚠️  Corrupt: %d, orphaned: %d\n", s.CorruptTables, s.OrphanedTables)
	}
}

func (cli *CLI) showLevels() {
	fmt.Println("LEVEL  TABLES  BUDGET     BYTES  ENTRIES  KEYS")
	for _, info := range cli.store.Levels() {
		budget := strconv.Itoa(info.Budget)
		if info.Budget == 0 {
			budget = "-"
		}
		keys := ""
		if info.Tables > 0 {
			keys = fmt.Sprintf("[%d, %d]", info.MinKey, info.MaxKey)
		}
		fmt.Printf("%5d  %6d  %6s  %8d  %7d  %s\n",
			info.Level, info.Tables, budget, info.Bytes, info.Entries, keys)
	}
}

func showHelp() {
	help := `
📖 Available Commands:

  put <key> <value>     Store value under a uint64 key (value may contain spaces)
  get <key>             Read a key
  del <key>             Delete a key, prints whether it existed
  scan <lo> <hi>        List live pairs with lo <= key <= hi

  flush                 Write the memtable to level 0
  compact               Compact levels that are over budget
  compactall            Flush and push every level down once
  reset                 Remove all data

  stats                 Show store statistics
  levels                Show per-level table counts
  export <file>         Write every live pair to a dump file
  import <file>         Load pairs from a dump file

  clear                 Clear the screen
  exit                  Close the store and quit`
	fmt.Println(help)
}

// splitCmdRest extracts the first token and the raw rest of the line
func splitCmdRest(line string) (cmd, rest string) {
	for i, r := range line {
		if r == ' ' || r == '\t' {
			return line[:i], strings.TrimSpace(line[i+1:])
		}
	}
	return line, ""
}

func parseKey(s, usage string) (uint64, bool) {
	if s == "" {
		fmt.Printf("Usage: %s\n", usage)
		return 0, false
	}
	key, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		fmt.Printf("❌ Invalid key %q: keys are unsigned 64-bit integers\n", s)
		return 0, false
	}
	return key, true
}
