package lsm

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	levelDirPrefix = "level-"
	tableExt       = ".sst"
	tmpExt         = ".tmp"
	corruptExt     = ".corrupt" // Quarantined tables, ignored on open
)

// writeIndex writes the index area
func writeIndex(w *bufio.Writer, index []IndexEntry) error {
	var rec [IndexRecordSize]byte
	for _, ie := range index {
		binary.LittleEndian.PutUint64(rec[0:8], ie.Key)
		binary.LittleEndian.PutUint32(rec[8:12], ie.Offset)
		if _, err := w.Write(rec[:]); err != nil {
			return err
		}
	}
	return nil
}

// decodeIndex parses count index records from buf
func decodeIndex(buf []byte, count int) []IndexEntry {
	index := make([]IndexEntry, count)
	for i := range index {
		rec := buf[i*IndexRecordSize : (i+1)*IndexRecordSize]
		index[i] = IndexEntry{
			Key:    binary.LittleEndian.Uint64(rec[0:8]),
			Offset: binary.LittleEndian.Uint32(rec[8:12]),
		}
	}
	return index
}

// LevelDir returns the directory holding the tables of a level
func LevelDir(dir string, level int) string {
	return filepath.Join(dir, levelDirPrefix+strconv.Itoa(level))
}

// SSTablePath generates a path for a new SSTable. Names sort by timestamp.
func SSTablePath(dir string, level int, timestamp uint64) string {
	return filepath.Join(LevelDir(dir, level), fmt.Sprintf("%020d%s", timestamp, tableExt))
}

// parseLevelDir extracts the level number from a level directory name
func parseLevelDir(name string) (int, bool) {
	rest, ok := strings.CutPrefix(name, levelDirPrefix)
	if !ok {
		return 0, false
	}
	level, err := strconv.Atoi(rest)
	if err != nil || level < 0 {
		return 0, false
	}
	// Only the canonical spelling, so "level-01" is not read as level-1
	if levelDirPrefix+strconv.Itoa(level) != name {
		return 0, false
	}
	return level, true
}

// listLevelFiles returns the table and leftover temporary files of a level
// directory, sorted by name.
func listLevelFiles(levelDir string) (tables, temps []string, err error) {
	entries, err := os.ReadDir(levelDir)
	if err != nil {
		return nil, nil, err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case tableExt:
			tables = append(tables, filepath.Join(levelDir, e.Name()))
		case tmpExt:
			temps = append(temps, filepath.Join(levelDir, e.Name()))
		}
	}
	return tables, temps, nil
}
