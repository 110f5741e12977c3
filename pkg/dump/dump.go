// Package dump exports the live contents of a store to a compressed
// stream and imports them back.
//
// Stream format, inside a snappy framed stream:
//
//	[Magic:8]
//	repeated: [Key:8][ValueLen:4][Value:N][Checksum:4]
//
// Integers are big-endian. Checksum is CRC-32 (IEEE) over key and value.
package dump

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"os"

	"github.com/golang/snappy"

	"github.com/dd0wney/cluso-kv/pkg/lsm"
)

var magic = [8]byte{'L', 'S', 'M', 'K', 'V', 'D', 'P', '1'}

var (
	ErrBadMagic         = errors.New("not a store dump")
	ErrChecksumMismatch = errors.New("dump record checksum mismatch")
	ErrTruncated        = errors.New("dump ends mid-record")
)

// Source is anything that can list its live pairs in key order
type Source interface {
	Scan(lo, hi uint64) ([]lsm.KV, error)
}

// Sink receives imported pairs
type Sink interface {
	Put(key uint64, value string) error
}

// Export writes every live pair of src to w and returns the record count
func Export(w io.Writer, src Source) (int, error) {
	pairs, err := src.Scan(0, math.MaxUint64)
	if err != nil {
		return 0, fmt.Errorf("scan store: %w", err)
	}

	sw := snappy.NewBufferedWriter(w)
	if _, err := sw.Write(magic[:]); err != nil {
		return 0, err
	}

	for i, kv := range pairs {
		if err := writeRecord(sw, kv); err != nil {
			return i, fmt.Errorf("write record for key %d: %w", kv.Key, err)
		}
	}

	if err := sw.Close(); err != nil {
		return len(pairs), err
	}
	return len(pairs), nil
}

func writeRecord(w io.Writer, kv lsm.KV) error {
	var hdr [12]byte
	binary.BigEndian.PutUint64(hdr[0:8], kv.Key)
	binary.BigEndian.PutUint32(hdr[8:12], uint32(len(kv.Value)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	if _, err := io.WriteString(w, kv.Value); err != nil {
		return err
	}

	checksum := crc32.Update(crc32.ChecksumIEEE(hdr[0:8]), crc32.IEEETable, []byte(kv.Value))
	return binary.Write(w, binary.BigEndian, checksum)
}

// Import reads a dump from r into dst and returns the record count.
// Records already written to dst stay there if a later record fails.
func Import(r io.Reader, dst Sink) (int, error) {
	// Note: bufio.NewReader does not return an error - it always succeeds
	reader := bufio.NewReader(snappy.NewReader(r))

	var got [8]byte
	if _, err := io.ReadFull(reader, got[:]); err != nil || got != magic {
		return 0, ErrBadMagic
	}

	count := 0
	for {
		kv, err := readRecord(reader)
		if err == io.EOF {
			return count, nil
		}
		if err != nil {
			return count, fmt.Errorf("record %d: %w", count, err)
		}
		if err := dst.Put(kv.Key, kv.Value); err != nil {
			return count, fmt.Errorf("import key %d: %w", kv.Key, err)
		}
		count++
	}
}

func readRecord(r io.Reader) (lsm.KV, error) {
	var hdr [12]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if err == io.EOF {
			return lsm.KV{}, io.EOF
		}
		return lsm.KV{}, truncated(err)
	}

	value := make([]byte, binary.BigEndian.Uint32(hdr[8:12]))
	if _, err := io.ReadFull(r, value); err != nil {
		return lsm.KV{}, truncated(err)
	}

	var checksum uint32
	if err := binary.Read(r, binary.BigEndian, &checksum); err != nil {
		return lsm.KV{}, truncated(err)
	}
	if crc32.Update(crc32.ChecksumIEEE(hdr[0:8]), crc32.IEEETable, value) != checksum {
		return lsm.KV{}, ErrChecksumMismatch
	}

	return lsm.KV{Key: binary.BigEndian.Uint64(hdr[0:8]), Value: string(value)}, nil
}

func truncated(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrTruncated
	}
	return err
}

// ExportFile writes a dump of src to path
func ExportFile(path string, src Source) (int, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, err
	}

	n, err := Export(file, src)
	if err != nil {
		_ = file.Close()
		return n, err
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		return n, err
	}
	return n, file.Close()
}

// ImportFile loads the dump at path into dst
func ImportFile(path string, dst Sink) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	return Import(file, dst)
}
