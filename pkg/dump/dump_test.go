package dump

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang/snappy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-kv/pkg/lsm"
)

func newStore(t *testing.T) *lsm.LSMStorage {
	t.Helper()
	opts := lsm.DefaultLSMOptions(t.TempDir())
	opts.TableSizeBudget = lsm.TableSize(16, 256)
	store, err := lsm.NewLSMStorage(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

type failingSink struct{ after int }

func (f *failingSink) Put(key uint64, value string) error {
	if f.after == 0 {
		return errors.New("sink full")
	}
	f.after--
	return nil
}

func TestExportImportRoundTrip(t *testing.T) {
	src := newStore(t)
	for key := uint64(0); key < 300; key++ {
		require.NoError(t, src.Put(key*3, fmt.Sprintf("value-%d", key)))
	}
	_, err := src.Delete(9)
	require.NoError(t, err)
	require.NoError(t, src.Put(1<<63, ""))

	var buf bytes.Buffer
	n, err := Export(&buf, src)
	require.NoError(t, err)
	assert.Equal(t, 300, n)

	dst := newStore(t)
	n, err = Import(&buf, dst)
	require.NoError(t, err)
	assert.Equal(t, 300, n)

	want, err := src.Scan(0, ^uint64(0))
	require.NoError(t, err)
	got, err := dst.Scan(0, ^uint64(0))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestExportCompresses(t *testing.T) {
	src := newStore(t)
	value := strings.Repeat("a", 200)
	for key := uint64(0); key < 200; key++ {
		require.NoError(t, src.Put(key, value))
	}

	var buf bytes.Buffer
	_, err := Export(&buf, src)
	require.NoError(t, err)
	assert.Less(t, buf.Len(), 200*len(value)/4, "repetitive values should compress")
}

func TestImportRejectsBadInput(t *testing.T) {
	dst := newStore(t)

	// Not a snappy stream at all
	_, err := Import(strings.NewReader("plain text"), dst)
	assert.ErrorIs(t, err, ErrBadMagic)

	// Valid snappy stream with the wrong magic
	var wrong bytes.Buffer
	w := snappy.NewBufferedWriter(&wrong)
	_, _ = w.Write([]byte("NOTADUMP"))
	require.NoError(t, w.Close())
	_, err = Import(&wrong, dst)
	assert.ErrorIs(t, err, ErrBadMagic)

	// Empty input
	_, err = Import(bytes.NewReader(nil), dst)
	assert.ErrorIs(t, err, ErrBadMagic)
}

func TestImportDetectsDamage(t *testing.T) {
	raw := func(records ...lsm.KV) *bytes.Buffer {
		var plain bytes.Buffer
		plain.Write(magic[:])
		for _, kv := range records {
			require.NoError(t, writeRecord(&plain, kv))
		}
		return &plain
	}
	compress := func(plain []byte) *bytes.Buffer {
		var out bytes.Buffer
		w := snappy.NewBufferedWriter(&out)
		_, _ = w.Write(plain)
		require.NoError(t, w.Close())
		return &out
	}

	// Record cut short
	plain := raw(lsm.KV{Key: 1, Value: "one"}, lsm.KV{Key: 2, Value: "two"})
	cut := plain.Bytes()[:plain.Len()-2]
	n, err := Import(compress(cut), newStore(t))
	assert.ErrorIs(t, err, ErrTruncated)
	assert.Equal(t, 1, n)

	// Flipped value byte
	plain = raw(lsm.KV{Key: 1, Value: "one"})
	damaged := plain.Bytes()
	damaged[len(magic)+12] ^= 0xff
	_, err = Import(compress(damaged), newStore(t))
	assert.ErrorIs(t, err, ErrChecksumMismatch)
}

func TestImportStopsOnSinkError(t *testing.T) {
	src := newStore(t)
	for key := uint64(0); key < 10; key++ {
		require.NoError(t, src.Put(key, "v"))
	}

	var buf bytes.Buffer
	_, err := Export(&buf, src)
	require.NoError(t, err)

	n, err := Import(&buf, &failingSink{after: 4})
	assert.Error(t, err)
	assert.Equal(t, 4, n)
}

func TestExportImportFile(t *testing.T) {
	src := newStore(t)
	require.NoError(t, src.Put(7, "seven"))

	path := filepath.Join(t.TempDir(), "store.dump")
	n, err := ExportFile(path, src)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	dst := newStore(t)
	n, err = ImportFile(path, dst)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	value, found, err := dst.Get(7)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "seven", value)

	_, err = ImportFile(filepath.Join(t.TempDir(), "missing.dump"), dst)
	assert.Error(t, err)
}
