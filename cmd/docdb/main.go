package main

import (
	"flag"
	"log"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/coredb-io/kvdb/internal/config"
	"github.com/coredb-io/kvdb/internal/fileset"
	"github.com/coredb-io/kvdb/internal/ingest"
	"github.com/coredb-io/kvdb/internal/logger"
	"github.com/coredb-io/kvdb/internal/mdc"
	"github.com/coredb-io/kvdb/internal/memory"
	"github.com/coredb-io/kvdb/internal/wal"
)

func main() {
	dataDir := flag.String("data-dir", "./data", "Directory for database files")
	durableSeqno := flag.Uint64("durable-seqno", 0, "Seqno already absorbed by the on-disk index as of the last checkpoint")
	txHorizon := flag.Uint64("tx-horizon", 0, "Lowest txid whose commit descriptors still matter (0 = no horizon)")
	cleanShutdown := flag.Bool("clean-shutdown", false, "Skip replay: the metadata log's last recorded generation is trusted as-is")
	readOnly := flag.Bool("read-only", false, "Skip replay: open for inspection only, never mutate on-disk state")
	replayBudgetMB := flag.Uint64("replay-budget-mb", 0, "Memory budget for WAL replay in MB (0 = use per-DB limit)")
	flag.Parse()

	cfg := config.DefaultConfig()
	cfg.DataDir = *dataDir
	cfg.WAL.Dir = filepath.Join(cfg.DataDir, "wal")
	cfg.WAL.Replay = config.ReplayConfig{
		DurableSeqno:  *durableSeqno,
		TxHorizon:     *txHorizon,
		CleanShutdown: *cleanShutdown,
		ReadOnly:      *readOnly,
	}

	runID := uuid.New().String()
	logr := logger.Default()
	logr.Info("starting replay run %s", runID)
	logr.Info("data directory: %s", cfg.DataDir)

	caps := memory.NewCaps(cfg.Memory.GlobalCapacityMB, cfg.Memory.PerDBLimitMB)
	caps.RegisterDB(0, cfg.Memory.PerDBLimitMB)
	if *replayBudgetMB > 0 {
		caps.SetReplayBudget(0, *replayBudgetMB, cfg.Memory.PerDBLimitMB)
	}
	pool := memory.NewBufferPool(cfg.Memory.BufferSizes)

	mdcLog := mdc.New(filepath.Join(cfg.WAL.Dir, "mdc.log"), logr)
	if err := mdcLog.Open(); err != nil {
		log.Fatalf("open metadata log: %v", err)
	}
	defer mdcLog.Close()

	files := fileset.NewMmapManager(cfg.WAL.Dir, "db", logr)
	ingestLayer := ingest.NewLayer(0)

	coord := wal.NewCoordinator(0, mdcLog, files, ingestLayer, pool, caps, logr)

	if err := coord.Replay(cfg.WAL.Replay); err != nil {
		log.Fatalf("replay failed: %v", err)
	}

	logr.Info("replay complete: %d live keys, %d sync(s)", ingestLayer.Len(), ingestLayer.SyncCount())
}
