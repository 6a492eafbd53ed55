// Command kvstore is a demonstration front end for internal/kvstore: an
// interactive REPL by default, or a reproducible write/update workload
// under -bench.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/leengari/kvstore/internal/kvrepl"
	"github.com/leengari/kvstore/internal/kvstore"
	"github.com/leengari/kvstore/internal/kvstore/codec"
	"github.com/leengari/kvstore/internal/kvstore/errs"
	"github.com/leengari/kvstore/internal/logging"
)

func main() {
	logPath := flag.String("log", "kvstore.log", "write-ahead log path")
	dataPath := flag.String("data", "kvstore.db", "checkpoint image path")
	bench := flag.Bool("bench", false, "run the fixed read-or-create/update-sweep workload instead of the REPL")
	benchKeys := flag.Int("bench-keys", 100000, "number of integer keys touched by -bench")
	benchPasses := flag.Int("bench-passes", 1, "number of full-table update passes performed by -bench")
	seqURL := flag.String("seq-url", "", "Seq ingestion endpoint (empty disables the Seq log sink)")
	flag.Parse()

	logger, closeLogging := logging.Setup(logging.Config{
		Level:     slog.LevelInfo,
		SeqURL:    *seqURL,
		Component: "cmd/kvstore",
	})
	defer closeLogging()
	slog.SetDefault(logger)

	if *bench {
		if err := runBench(*logPath, *dataPath, *benchKeys, *benchPasses, logger); err != nil {
			logger.Error("bench failed", "error", err)
			os.Exit(1)
		}
		return
	}

	db, err := kvstore.Open[string, string](*logPath, *dataPath, codec.NaturalOrder[string](),
		kvstore.WithLogger[string, string](logger))
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("shutdown checkpoint failed", "error", err)
		}
	}()

	logger.Info("store ready", "log", *logPath, "data", *dataPath)
	kvrepl.Start(db, os.Stdin, os.Stdout)
}

// runBench reproduces the fixed workload this store's reference
// implementation shipped as its own smoke test: a single transaction that
// reads or creates every key in 0..n, followed by m full-table update
// passes, each its own transaction.
func runBench(logPath, dataPath string, n, m int, logger *slog.Logger) error {
	start := time.Now()
	db, err := kvstore.Open[int, int](logPath, dataPath, codec.NaturalOrder[int](),
		kvstore.WithLogger[int, int](logger))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	tx := db.Begin()
	created := 0
	for k := 0; k < n; k++ {
		if _, err := tx.Read(k); err != nil {
			if !errors.Is(err, errs.ErrKeyNotFound) {
				_ = tx.Abort()
				return fmt.Errorf("read %d: %w", k, err)
			}
			if err := tx.Create(k, -1); err != nil {
				_ = tx.Abort()
				return fmt.Errorf("create %d: %w", k, err)
			}
			created++
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit initial pass: %w", err)
	}
	logger.Info("initial pass complete", "keys", n, "created", created, "elapsed", time.Since(start))

	for v := 0; v < m; v++ {
		passStart := time.Now()
		tx := db.Begin()
		for k := 0; k < n; k++ {
			if err := tx.Update(k, v); err != nil {
				_ = tx.Abort()
				return fmt.Errorf("update %d to %d: %w", k, v, err)
			}
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit pass %d: %w", v, err)
		}
		logger.Info("update pass complete", "pass", v, "elapsed", time.Since(passStart))
	}

	logger.Info("bench complete", "total_elapsed", time.Since(start))
	return nil
}
