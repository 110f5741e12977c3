package main

import (
	"fmt"
	"log"
	"os"

	"github.com/dd0wney/cluso-kv/pkg/lsm"
)

const smokeKeys = 200

func main() {
	// Clean up
	os.RemoveAll("./data/test-lsm")

	fmt.Println("Creating LSM storage...")
	opts := lsm.DefaultLSMOptions("./data/test-lsm")
	opts.TableSizeBudget = lsm.TableSize(16, 32*16) // Very small for quick flush

	storage, err := lsm.NewLSMStorage(opts)
	if err != nil {
		log.Fatalf("Failed to create storage: %v", err)
	}

	fmt.Println("Writing data...")
	for i := 0; i < smokeKeys; i++ {
		if err := storage.Put(uint64(i), fmt.Sprintf("value%03d", i)); err != nil {
			log.Fatalf("Failed to write: %v", err)
		}
	}
	for i := 0; i < smokeKeys; i += 2 {
		if _, err := storage.Delete(uint64(i)); err != nil {
			log.Fatalf("Failed to delete: %v", err)
		}
	}

	fmt.Println("\nReading back...")
	check(storage)

	printLevels(storage)

	// Close (should flush)
	fmt.Println("\nClosing storage...")
	if err := storage.Close(); err != nil {
		log.Fatalf("Failed to close: %v", err)
	}

	fmt.Println("\nReopening storage...")
	storage2, err := lsm.NewLSMStorage(opts)
	if err != nil {
		log.Fatalf("Failed to reopen: %v", err)
	}
	defer storage2.Close()

	fmt.Println("\nReading from disk...")
	check(storage2)

	kvs, err := storage2.Scan(0, smokeKeys)
	if err != nil {
		log.Fatalf("Failed to scan: %v", err)
	}
	if len(kvs) != smokeKeys/2 {
		log.Fatalf("Scan returned %d pairs, want %d", len(kvs), smokeKeys/2)
	}
	fmt.Printf("  Scan returned %d pairs ✓\n", len(kvs))

	fmt.Println("\n✅ Test complete!")
}

// check expects odd keys present and even keys deleted
func check(storage *lsm.LSMStorage) {
	bad := 0
	for i := 0; i < smokeKeys; i++ {
		value, ok, err := storage.Get(uint64(i))
		if err != nil {
			log.Fatalf("Failed to read %d: %v", i, err)
		}
		want := i%2 == 1
		if ok != want || (ok && value != fmt.Sprintf("value%03d", i)) {
			fmt.Printf("  Read %d = %q (found=%v) ✗\n", i, value, ok)
			bad++
		}
	}
	if bad > 0 {
		log.Fatalf("%d keys read back wrong", bad)
	}
	fmt.Printf("  All %d keys read back ✓\n", smokeKeys)
}

func printLevels(storage *lsm.LSMStorage) {
	fmt.Println("\nLevels:")
	for _, info := range storage.Levels() {
		if info.Tables > 0 {
			fmt.Printf("  L%d: %d tables, keys [%d, %d]\n", info.Level, info.Tables, info.MinKey, info.MaxKey)
		}
	}
}
