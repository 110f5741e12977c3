package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"github.com/dd0wney/cluso-kv/pkg/logging"
	"github.com/dd0wney/cluso-kv/pkg/lsm"
)

func main() {
	writes := flag.Int("writes", 100000, "Number of writes")
	reads := flag.Int("reads", 10000, "Number of reads")
	valueSize := flag.Int("value-size", 1024, "Value size in bytes")
	dataDir := flag.String("data", "./data/benchmark-lsm", "Data directory")
	verbose := flag.Bool("v", false, "Log flushes and compactions to stderr")
	flag.Parse()

	fmt.Printf("🔥 Cluso KV - LSM Storage Benchmark\n")
	fmt.Printf("===================================\n\n")
	fmt.Printf("Configuration:\n")
	fmt.Printf("  Writes: %d\n", *writes)
	fmt.Printf("  Reads: %d\n", *reads)
	fmt.Printf("  Value Size: %d bytes\n\n", *valueSize)

	// Clean up old data
	os.RemoveAll(*dataDir)

	fmt.Printf("📂 Initializing LSM storage...\n")
	opts := lsm.DefaultLSMOptions(*dataDir)
	if *verbose {
		opts.Logger = logging.NewJSONLogger(os.Stderr, logging.DebugLevel)
	}

	storage, err := lsm.NewLSMStorage(opts)
	if err != nil {
		log.Fatalf("Failed to create LSM storage: %v", err)
	}
	defer storage.Close()

	value := strings.Repeat("v", *valueSize)

	fmt.Printf("\n📝 Benchmark 1: Sequential Writes\n")
	start := time.Now()
	for i := 0; i < *writes; i++ {
		if err := storage.Put(uint64(i), value); err != nil {
			log.Fatalf("Failed to write: %v", err)
		}
		if (i+1)%10000 == 0 {
			fmt.Printf("  Written %d entries...\n", i+1)
		}
	}
	report("writes", *writes, time.Since(start))
	fmt.Printf("  💾 Data written: %.2f MB\n", float64(*writes**valueSize)/(1024*1024))

	fmt.Printf("\n📖 Benchmark 2: Random Reads\n")
	start = time.Now()
	found := 0
	for i := 0; i < *reads; i++ {
		_, ok, err := storage.Get(uint64(rand.IntN(*writes)))
		if err != nil {
			log.Fatalf("Failed to read: %v", err)
		}
		if ok {
			found++
		}
	}
	report("reads", *reads, time.Since(start))
	fmt.Printf("  ✅ Found: %d/%d (%.1f%%)\n", found, *reads, float64(found)*100/float64(*reads))

	fmt.Printf("\n🔍 Benchmark 3: Range Scans\n")
	scanCount := 100
	scanSize := 1000
	start = time.Now()
	totalResults := 0
	for i := 0; i < scanCount; i++ {
		lo := uint64(rand.IntN(max(*writes-scanSize, 1)))
		results, err := storage.Scan(lo, lo+uint64(scanSize)-1)
		if err != nil {
			log.Printf("Scan failed: %v", err)
			continue
		}
		totalResults += len(results)
	}
	report("scans", scanCount, time.Since(start))
	fmt.Printf("  📊 Average results per scan: %d\n", totalResults/scanCount)

	fmt.Printf("\n✏️  Benchmark 4: Random Updates\n")
	updateCount := *writes / 10
	newValue := strings.Repeat("u", *valueSize)
	start = time.Now()
	for i := 0; i < updateCount; i++ {
		if err := storage.Put(uint64(rand.IntN(*writes)), newValue); err != nil {
			log.Fatalf("Failed to update: %v", err)
		}
	}
	report("updates", updateCount, time.Since(start))

	fmt.Printf("\n🗑️  Benchmark 5: Random Deletions\n")
	deleteCount := *writes / 20
	start = time.Now()
	for i := 0; i < deleteCount; i++ {
		if _, err := storage.Delete(uint64(rand.IntN(*writes))); err != nil {
			log.Fatalf("Failed to delete: %v", err)
		}
	}
	report("deletions", deleteCount, time.Since(start))

	fmt.Printf("\n🧹 Benchmark 6: Full Compaction\n")
	start = time.Now()
	if err := storage.CompactAll(); err != nil {
		log.Fatalf("Failed to compact: %v", err)
	}
	fmt.Printf("✅ Compacted in %v\n", time.Since(start))

	fmt.Printf("\n📊 Final LSM Storage Statistics\n")
	fmt.Printf("================================\n")
	s := storage.GetStats()
	fmt.Printf("  Flushes: %d, compactions: %d, keys removed: %d\n", s.FlushCount, s.CompactionCount, s.KeysRemoved)
	fmt.Printf("  Cache: %d hits, %d misses\n", s.CacheHits, s.CacheMisses)
	for _, info := range storage.Levels() {
		if info.Tables > 0 {
			fmt.Printf("  Level %d: %d tables, %.2f MB\n", info.Level, info.Tables, float64(info.Bytes)/(1024*1024))
		}
	}

	fmt.Printf("\n✅ Benchmark complete!\n")
}

func report(what string, n int, d time.Duration) {
	if n == 0 {
		return
	}
	fmt.Printf("✅ Completed %d %s in %v\n", n, what, d)
	fmt.Printf("  ⚡ Average: %dμs per op\n", d.Microseconds()/int64(n))
	fmt.Printf("  🚀 Throughput: %.0f ops/sec\n", float64(n)/d.Seconds())
}
