package lsm

import (
	"os"

	"github.com/dd0wney/cluso-kv/pkg/logging"
)

// loadLevels opens every table under the data directory's level
// directories. Leftover temporary files from interrupted writes are
// removed and corrupt tables are quarantined with a warning. The timestamp
// counter resumes after the largest timestamp found.
func (lsm *LSMStorage) loadLevels() error {
	lsm.levels = make([][]*SSTable, lsm.strategy.MaxLevels)

	dirs, err := os.ReadDir(lsm.dataDir)
	if err != nil {
		return ioError("load", lsm.dataDir, -1, err)
	}

	for _, d := range dirs {
		level, ok := parseLevelDir(d.Name())
		if !ok || !d.IsDir() {
			continue
		}
		if level >= lsm.strategy.MaxLevels {
			lsm.logger.Warn("ignoring level beyond max levels",
				logging.TableLevel(level),
				logging.Int("max_levels", lsm.strategy.MaxLevels))
			continue
		}
		if err := lsm.loadLevel(level); err != nil {
			return err
		}
	}

	sortByTimestamp(lsm.levels[0])
	for level := 1; level < len(lsm.levels); level++ {
		sortByMinKey(lsm.levels[level])
		lsm.checkDisjoint(level)
	}
	return nil
}

func (lsm *LSMStorage) loadLevel(level int) error {
	dir := LevelDir(lsm.dataDir, level)
	paths, temps, err := listLevelFiles(dir)
	if err != nil {
		return ioError("load", dir, level, err)
	}

	for _, tmp := range temps {
		if err := os.Remove(tmp); err != nil {
			lsm.logger.Warn("failed to remove temporary table", logging.Path(tmp), logging.Error(err))
			continue
		}
		lsm.logger.Info("removed incomplete table", logging.Path(tmp))
	}

	for _, path := range paths {
		sst, err := OpenSSTable(path, level)
		if err != nil {
			if !IsCorrupt(err) {
				return err
			}
			lsm.noteCorrupt(path, level, err)
			continue
		}
		lsm.levels[level] = append(lsm.levels[level], sst)
		lsm.lastTimestamp = max(lsm.lastTimestamp, sst.Timestamp())
	}
	return nil
}

// checkDisjoint warns when a sorted level holds overlapping tables, which
// happens only when a compaction was interrupted before deleting inputs.
func (lsm *LSMStorage) checkDisjoint(level int) {
	tables := lsm.levels[level]
	for i := 1; i < len(tables); i++ {
		if tables[i].MinKey() <= tables[i-1].MaxKey() {
			lsm.logger.Warn("overlapping tables in level",
				logging.TableLevel(level),
				logging.Table(tables[i-1].Path()),
				logging.String("other_table", tables[i].Path()))
		}
	}
}
