package wal

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/coredb-io/kvdb/internal/ingest"
	"github.com/coredb-io/kvdb/internal/memory"
)

// recordPool recycles *Record wrappers across a replay pass. Key/Value
// byte slices alias mmap'd file data and are never owned by the pool;
// only the small Go struct itself is reused.
type recordPool struct {
	pool sync.Pool
}

func newRecordPool() *recordPool {
	return &recordPool{pool: sync.Pool{New: func() interface{} { return new(Record) }}}
}

func (p *recordPool) get() *Record {
	return p.pool.Get().(*Record)
}

func (p *recordPool) put(rec *Record) {
	*rec = Record{}
	p.pool.Put(rec)
}

// ReplayContext is the shared state threaded through one replay pass (3.
// Data model; 4.G/4.H): the ordered generation list, the global
// transaction index, the leader-election and validator-barrier counters,
// the sticky first error, and a record pool and buffer arena. The
// iterator does not draw from either: Unpack allocates each decoded
// Record directly.
type ReplayContext struct {
	DurableSeqno uint64
	TxHorizon    uint64
	DBID         uint64

	TxIndex *TxIndex
	Ingest  *ingest.Layer

	gensMu sync.Mutex
	gens   []*ReplayGen

	caps       *memory.Caps
	arena      *memory.Arena
	recordPool *recordPool

	leaderToken     int64
	validatorsDone  int64
	consolidateDone int64
	totalFiles      int64
	firstErr        atomic.Value
}

// NewReplayContext constructs a context for a replay pass over numFiles
// file groups.
func NewReplayContext(numFiles int, ingestLayer *ingest.Layer, pool *memory.BufferPool, caps *memory.Caps, dbID uint64) *ReplayContext {
	return &ReplayContext{
		DBID:       dbID,
		TxIndex:    NewTxIndex(),
		Ingest:     ingestLayer,
		arena:      memory.NewArena(pool),
		caps:       caps,
		recordPool: newRecordPool(),
		totalFiles: int64(numFiles),
	}
}

// TryElectLeader performs the atomic fetch-add leader election (4.G): the
// one worker that observes the counter transition 0->1 is the leader and
// runs the single-threaded consolidation/tx-index-merge stage.
func (rc *ReplayContext) TryElectLeader() bool {
	return atomic.AddInt64(&rc.leaderToken, 1) == 1
}

// MarkValidatorDone records that one file group's first pass has
// finished, successfully or not.
func (rc *ReplayContext) MarkValidatorDone() {
	atomic.AddInt64(&rc.validatorsDone, 1)
}

// WaitValidators busy-waits (spin-and-yield) until every file group has
// finished its first pass, or a sticky error has been latched.
func (rc *ReplayContext) WaitValidators() error {
	for atomic.LoadInt64(&rc.validatorsDone) < rc.totalFiles {
		if err := rc.FirstError(); err != nil {
			return err
		}
		runtime.Gosched()
	}
	return rc.FirstError()
}

// MarkConsolidateDone signals that the leader has finished 4.D/4.E.
func (rc *ReplayContext) MarkConsolidateDone() {
	atomic.StoreInt64(&rc.consolidateDone, 1)
}

// WaitConsolidate busy-waits (spin-and-yield) for the leader to finish
// consolidation and the transaction-index merge, or a sticky error.
func (rc *ReplayContext) WaitConsolidate() error {
	for atomic.LoadInt64(&rc.consolidateDone) == 0 {
		if err := rc.FirstError(); err != nil {
			return err
		}
		runtime.Gosched()
	}
	return rc.FirstError()
}

// SetFirstError latches err into the sticky first-error slot if no error
// has been recorded yet; later callers' errors are discarded once one is
// set, matching the C original's "first error wins" semantics.
func (rc *ReplayContext) SetFirstError(err error) {
	if err == nil {
		return
	}
	rc.firstErr.CompareAndSwap(nil, err)
}

// FirstError returns the sticky first error, or nil.
func (rc *ReplayContext) FirstError() error {
	v := rc.firstErr.Load()
	if v == nil {
		return nil
	}
	return v.(error)
}

// AddGen registers a consolidated replay generation. Called only by the
// leader, single-threaded, during 4.D.
func (rc *ReplayContext) AddGen(g *ReplayGen) {
	rc.gensMu.Lock()
	defer rc.gensMu.Unlock()
	rc.gens = append(rc.gens, g)
}

// Gens returns the consolidated generations in insertion order (already
// gen-ascending by construction of 4.D).
func (rc *ReplayContext) Gens() []*ReplayGen {
	rc.gensMu.Lock()
	defer rc.gensMu.Unlock()
	out := make([]*ReplayGen, len(rc.gens))
	copy(out, rc.gens)
	return out
}

// GenFor returns the generation bucket for gen, or nil.
func (rc *ReplayContext) GenFor(gen uint64) *ReplayGen {
	rc.gensMu.Lock()
	defer rc.gensMu.Unlock()
	for _, g := range rc.gens {
		if g.Gen == gen {
			return g
		}
	}
	return nil
}

// NewRecord returns a pooled *Record wrapper.
func (rc *ReplayContext) NewRecord() *Record {
	return rc.recordPool.get()
}

// FreeRecord returns a *Record wrapper to the pool.
func (rc *ReplayContext) FreeRecord(r *Record) {
	rc.recordPool.put(r)
}

// ReserveBudget attempts to account size bytes against this database's
// replay memory budget (internal/memory.Caps). A nil caps means no limit
// is configured and every reservation succeeds.
func (rc *ReplayContext) ReserveBudget(size uint64) bool {
	if rc.caps == nil {
		return true
	}
	return rc.caps.TryAllocateReplay(rc.DBID, size)
}

// Release returns every buffer the context's arena handed out back to the
// shared pool. Called once, unconditionally, when the replay pass ends.
func (rc *ReplayContext) Release() {
	rc.arena.Release()
}
