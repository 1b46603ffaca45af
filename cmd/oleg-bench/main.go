// Package main provides oleg-bench, a throughput benchmark tool for stores
// opened with the oleg package.
package main

import (
	"fmt"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/oleg/pkg/oleg"
)

// Config holds all benchmark configuration.
type Config struct {
	Path       string
	Name       string
	Count      int
	ValueSize  int
	AppendOnly bool
	SyncEvery  int
	KeepFiles  bool
}

func main() {
	cfg := Config{}

	flag.StringVar(&cfg.Path, "path", "", "store directory (default: a fresh temp dir)")
	flag.StringVar(&cfg.Name, "name", "bench", "store name")
	flag.IntVar(&cfg.Count, "count", 100000, "number of keys to put/get/delete")
	flag.IntVar(&cfg.ValueSize, "value-size", 64, "size in bytes of each benchmark value")
	flag.BoolVar(&cfg.AppendOnly, "append-only", false, "enable the append-only log")
	flag.IntVar(&cfg.SyncEvery, "sync-every", 0, "fsync the log every N commands, 0=never")
	flag.BoolVar(&cfg.KeepFiles, "keep", false, "keep the store directory after the run")

	flag.Usage = func() {
		fmt.Fprint(os.Stderr, "Usage: oleg-bench [flags]\n\n")
		fmt.Fprint(os.Stderr, "Measures Put/Get/Delete/Save throughput for an oleg store.\n\n")
		fmt.Fprint(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	err := run(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg Config) error {
	dir := cfg.Path
	if dir == "" {
		tmp, err := os.MkdirTemp("", "oleg-bench-")
		if err != nil {
			return fmt.Errorf("create temp dir: %w", err)
		}

		dir = tmp

		if !cfg.KeepFiles {
			defer func() { _ = os.RemoveAll(dir) }()
		}
	}

	features := oleg.Feature(0)
	if cfg.AppendOnly {
		features |= oleg.FeatureAppendOnly
	}

	syncPolicy := oleg.SyncNever()
	if cfg.SyncEvery > 0 {
		syncPolicy = oleg.SyncInterval(cfg.SyncEvery)
	}

	store, err := oleg.Open(oleg.Options{
		Path:     dir,
		Name:     cfg.Name,
		Features: features,
		AOLSync:  syncPolicy,
	})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	defer func() { _ = store.Close() }()

	keys := make([][]byte, cfg.Count)
	value := make([]byte, cfg.ValueSize)

	for i := range value {
		value[i] = byte('a' + i%26)
	}

	for i := 0; i < cfg.Count; i++ {
		keys[i] = []byte(fmt.Sprintf("bench-key-%d", i))
	}

	report("put", cfg.Count, func() {
		for _, key := range keys {
			_ = store.Put(key, value)
		}
	})

	report("get", cfg.Count, func() {
		for _, key := range keys {
			store.Get(key)
		}
	})

	report("save", 1, func() {
		if err := store.Save(); err != nil {
			fmt.Fprintf(os.Stderr, "save failed: %v\n", err)
		}
	})

	report("delete", cfg.Count, func() {
		for _, key := range keys {
			_, _ = store.Delete(key)
		}
	})

	fmt.Printf("final len: %d\n", store.Len())

	return nil
}

func report(label string, ops int, fn func()) {
	start := time.Now()
	fn()
	elapsed := time.Since(start)

	if ops <= 1 {
		fmt.Printf("%-8s %10s\n", label, elapsed)

		return
	}

	perOp := elapsed / time.Duration(ops)
	fmt.Printf("%-8s %10s total, %10s/op, %.0f ops/sec\n", label, elapsed, perOp, float64(ops)/elapsed.Seconds())
}
