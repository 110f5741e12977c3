package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/chzyer/readline"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dd0wney/cluso-kv/pkg/config"
	"github.com/dd0wney/cluso-kv/pkg/lsm"
	"github.com/dd0wney/cluso-kv/pkg/metrics"
)

func main() {
	dataDir := flag.String("data", "./data/lsmkv", "Data directory")
	configPath := flag.String("config", "", "YAML config file (overrides -data)")
	metricsAddr := flag.String("metrics", "", "Serve Prometheus metrics on this address, e.g. :9090")
	flag.Parse()

	cfg := config.Default(*dataDir)
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}

	logger := cfg.NewLogger(os.Stderr)
	registry := metrics.NewRegistry()

	opts := cfg.LSMOptions(logger)
	opts.Metrics = registry

	fmt.Printf("📂 Opening store at %s...\n", cfg.DataDir)
	store, err := lsm.NewLSMStorage(opts)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Printf("❌ Close failed: %v\n", err)
		}
	}()

	if *metricsAddr != "" {
		go serveMetrics(*metricsAddr, registry)
	}

	stats := store.GetStats()
	fmt.Printf("✅ Store loaded (id %s)\n", stats.StoreID)
	fmt.Printf("   Tables: %d\n\n", stats.SSTableCount)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "lsmkv> ",
		HistoryFile:     filepath.Join(os.TempDir(), "lsmkv.history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer{},
	})
	if err != nil {
		log.Fatalf("Failed to start shell: %v", err)
	}
	defer rl.Close()

	fmt.Println("Type 'help' for available commands, 'exit' to quit")
	fmt.Println()

	cli := &CLI{store: store, rl: rl}
	cli.run()
}

func serveMetrics(addr string, registry *metrics.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry.GetPrometheusRegistry(), promhttp.HandlerOpts{}))
	if err := http.ListenAndServe(addr, mux); err != nil {
		fmt.Printf("❌ Metrics server stopped: %v\n", err)
	}
}
