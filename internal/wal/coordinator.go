package wal

import (
	"fmt"

	"github.com/coredb-io/kvdb/internal/config"
	"github.com/coredb-io/kvdb/internal/ingest"
	"github.com/coredb-io/kvdb/internal/logger"
	"github.com/coredb-io/kvdb/internal/mdc"
	"github.com/coredb-io/kvdb/internal/memory"
)

// FileSetManager is the external collaborator that enumerates and tears
// down the memory-mapped file groups a replay pass reads (external
// interfaces: fileset manager). internal/fileset provides the concrete
// mmap-backed implementation; this interface lives here, rather than
// there, so that package can depend on wal's types without wal needing
// to depend back on it.
type FileSetManager interface {
	// ReplayEnumerate returns one FileWork per on-disk segment, mapped
	// read-only, sorted gen ascending then sequence ascending.
	ReplayEnumerate() ([]*FileWork, error)
	// ReplayRelease unmaps every file handed out by ReplayEnumerate.
	// failed is for logging only; the mapping is torn down either way.
	ReplayRelease(failed bool) error
}

// Coordinator owns one database's replay lifecycle (4.H), replacing the
// single-threaded, non-generation-aware Recovery of the live write path
// with the full concurrent WAL replay engine: metadata-log replay,
// early-exit for read-only/clean-shutdown opens, file-group enumeration,
// the concurrent driver (4.G), and a final single-threaded apply pass
// that drives every consolidated generation into the ingest layer in
// order, syncing a durability boundary between generations.
type Coordinator struct {
	dbID   uint64
	mdcLog *mdc.Log
	files  FileSetManager
	ingest *ingest.Layer
	pool   *memory.BufferPool
	caps   *memory.Caps
	logger *logger.Logger
}

// NewCoordinator wires together one database's replay collaborators.
func NewCoordinator(dbID uint64, mdcLog *mdc.Log, files FileSetManager, ingestLayer *ingest.Layer, pool *memory.BufferPool, caps *memory.Caps, log *logger.Logger) *Coordinator {
	return &Coordinator{
		dbID:   dbID,
		mdcLog: mdcLog,
		files:  files,
		ingest: ingestLayer,
		pool:   pool,
		caps:   caps,
		logger: log,
	}
}

// Replay runs the full recovery sequence for one database open (4.H).
// It always tears down the file-set mapping on the way out, whether
// replay succeeded, failed, or was skipped.
func (c *Coordinator) Replay(cfg config.ReplayConfig) (err error) {
	meta, err := c.mdcLog.Replay()
	if err != nil {
		return fmt.Errorf("replay: metadata log: %w", err)
	}

	if cfg.ReadOnly {
		c.logger.Info("replay: skipped (read-only open)")
		return nil
	}
	if cfg.CleanShutdown {
		c.logger.Info("replay: skipped (clean shutdown, last gen %d)", meta.LastGen)
		return nil
	}

	groups, err := c.files.ReplayEnumerate()
	if err != nil {
		return fmt.Errorf("replay: enumerate file groups: %w", err)
	}

	failed := true
	defer func() {
		if relErr := c.files.ReplayRelease(failed); relErr != nil && err == nil {
			err = fmt.Errorf("replay: release file groups: %w", relErr)
		}
	}()

	if len(groups) == 0 {
		c.logger.Info("replay: no file groups to replay")
		failed = false
		return nil
	}

	ctx := NewReplayContext(len(groups), c.ingest, c.pool, c.caps, c.dbID)
	ctx.DurableSeqno = cfg.DurableSeqno
	ctx.TxHorizon = cfg.TxHorizon
	defer ctx.Release()

	if err := RunDriver(ctx, groups); err != nil {
		return fmt.Errorf("replay: driver: %w", err)
	}

	if err := ApplyGens(c.ingest, ctx.Gens()); err != nil {
		return fmt.Errorf("replay: apply: %w", err)
	}

	failed = false
	return nil
}

// ApplyGens drives every consolidated generation into the ingest layer,
// in ascending gen order, single-threaded (4.H). Between generations it
// requests an asynchronous sync so readers opened mid-replay never see a
// torn generation boundary; after the last generation it sets the
// watermark, leaves replay mode, and forces a synchronous sync so the
// caller only returns once every applied mutation is durable. Exported
// so the apply pass can be driven directly in tests, without a metadata
// log or file-set manager.
func ApplyGens(layer *ingest.Layer, gens []*ReplayGen) error {
	h, err := layer.ReplayOpen()
	if err != nil {
		return err
	}
	defer layer.ReplayClose(h)

	layer.ReplayEnable()
	defer layer.ReplayDisable()

	var maxSeqno uint64
	for i, g := range gens {
		layer.ReplayGenSet(g.Gen)

		if err := g.Apply(layer, h, nil); err != nil {
			return fmt.Errorf("gen %d: %w", g.Gen, err)
		}

		_, genMax := g.Applied()
		if genMax > maxSeqno {
			maxSeqno = genMax
		}

		if i < len(gens)-1 {
			if err := layer.Sync(ingest.SyncAsync); err != nil {
				return err
			}
		}
	}

	if maxSeqno > 0 {
		layer.ReplaySeqnoSet(maxSeqno)
	}

	layer.ReplayDisable()
	return layer.Sync(ingest.SyncBlocking)
}
