package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-kv/pkg/logging"
	"github.com/dd0wney/cluso-kv/pkg/lsm"
)

func TestDefaultMatchesStoreDefaults(t *testing.T) {
	cfg := Default("/tmp/store")
	opts := lsm.DefaultLSMOptions("/tmp/store")

	assert.Equal(t, opts.TableSizeBudget, cfg.MemTableSize)
	assert.Equal(t, opts.Level0TableLimit, cfg.Level0TableLimit)
	assert.Equal(t, opts.MaxLevels, cfg.MaxLevels)
	assert.Equal(t, opts.CacheEntries, cfg.CacheEntries)
	assert.NoError(t, cfg.Validate())
}

func TestParseKeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte("data_dir: /var/lib/kv\nmax_levels: 4\nlog_level: debug\n"))
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/kv", cfg.DataDir)
	assert.Equal(t, 4, cfg.MaxLevels)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, lsm.DefaultTableSizeBudget, cfg.MemTableSize)
	assert.Equal(t, 2, cfg.Level0TableLimit)
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"missing data dir", "max_levels: 4\n", "DataDir: field is required"},
		{"too few levels", "data_dir: d\nmax_levels: 1\n", "MaxLevels: must be at least 2"},
		{"tiny memtable", "data_dir: d\nmemtable_size: 100\n", "MemTableSize: must be at least 16384"},
		{"bad log level", "data_dir: d\nlog_level: loud\n", "LogLevel: must be one of"},
		{"negative cache", "data_dir: d\ncache_entries: -1\n", "CacheEntries: must be at least 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	_, err := Parse([]byte("data_dir: [unterminated"))
	assert.Error(t, err)
}

func TestLoadAndWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lsmkv.yaml")

	cfg := Default(t.TempDir())
	cfg.CacheEntries = 0
	cfg.Level0TableLimit = 4
	require.NoError(t, cfg.WriteFile(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLSMOptionsOpensStore(t *testing.T) {
	cfg := Default(t.TempDir())
	cfg.MemTableSize = 32 * 1024

	logger := cfg.NewLogger(os.Stderr)
	assert.Equal(t, logging.InfoLevel, logger.GetLevel())

	opts := cfg.LSMOptions(logging.NewNopLogger())
	assert.Equal(t, 32*1024, opts.TableSizeBudget)

	store, err := lsm.NewLSMStorage(opts)
	require.NoError(t, err)
	require.NoError(t, store.Put(1, "one"))

	value, found, err := store.Get(1)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "one", value)
	require.NoError(t, store.Close())
}
