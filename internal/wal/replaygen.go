package wal

import (
	"sort"
	"sync"

	"github.com/coredb-io/kvdb/internal/ingest"
)

// ReplayGen is the in-memory aggregation of every live record destined for
// one ingest generation boundary (3. Data model: "Replay generation"). It
// mirrors the per-collection index shard idiom elsewhere in this module:
// records are indexed by rid (the only key that matters for ordering) and
// applied once, in ascending rid order, to the ingest layer.
type ReplayGen struct {
	Gen      uint64
	MinSeqno uint64
	MaxSeqno uint64

	mu      sync.Mutex
	byRid   map[uint64]*Record
	sorted  []uint64 // rids, populated lazily by Apply
	applied uint64
	maxSeen uint64
}

// NewReplayGen constructs an empty generation bucket.
func NewReplayGen(gen uint64, minSeqno, maxSeqno uint64) *ReplayGen {
	return &ReplayGen{
		Gen:      gen,
		MinSeqno: minSeqno,
		MaxSeqno: maxSeqno,
		byRid:    make(map[uint64]*Record),
	}
}

// Insert adds a live record into the generation's tree, keyed by rid. A
// duplicate rid within one generation is a conflict: two writers could
// never have produced the same rid legitimately, so this signals file-set
// corruption rather than a recoverable condition.
func (g *ReplayGen) Insert(rec *Record) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, dup := g.byRid[rec.Rid]; dup {
		return ErrConflict
	}
	g.byRid[rec.Rid] = rec
	return nil
}

// Len reports the number of records currently held.
func (g *ReplayGen) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.byRid)
}

// Applied reports how many records this generation has applied so far, and
// the highest seqno among them.
func (g *ReplayGen) Applied() (count uint64, maxSeqno uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.applied, g.maxSeen
}

// Apply drives every record into the ingest layer in ascending rid order
// (4.F). It is always called single-threaded, from the coordinator's apply
// pass, with the layer already in replay mode and pinned to this
// generation. Records are released back to pool after each is applied;
// if the pool is nil, records are simply dropped for GC. On ingest
// failure, the remaining unreleased records are still freed before the
// error is returned, so a failed generation never leaks its pool entries.
func (g *ReplayGen) Apply(layer *ingest.Layer, h ingest.Handle, pool *recordPool) error {
	g.mu.Lock()
	if g.sorted == nil {
		g.sorted = make([]uint64, 0, len(g.byRid))
		for rid := range g.byRid {
			g.sorted = append(g.sorted, rid)
		}
		sort.Slice(g.sorted, func(i, j int) bool { return g.sorted[i] < g.sorted[j] })
	}
	order := g.sorted
	g.mu.Unlock()

	var hasPrev bool
	var prevRid uint64
	var firstErr error

	for _, rid := range order {
		g.mu.Lock()
		rec, ok := g.byRid[rid]
		g.mu.Unlock()
		if !ok {
			continue
		}

		if firstErr != nil {
			if pool != nil {
				pool.put(rec)
			}
			continue
		}

		checkRidOrder(prevRid, rid, hasPrev)
		prevRid = rid
		hasPrev = true

		var err error
		switch rec.Op {
		case OpPut:
			err = layer.ReplayPut(h, rec.Cnid, rec.Seqno, rec.Key, rec.Value, true)
		case OpDel:
			err = layer.ReplayDel(h, rec.Cnid, rec.Seqno, rec.Key, true)
		case OpPdel:
			_, err = layer.ReplayPdel(h, rec.Cnid, rec.Seqno, rec.Key, true)
		}

		if err != nil {
			firstErr = errIngestFailure(err)
			if pool != nil {
				pool.put(rec)
			}
			continue
		}

		g.mu.Lock()
		g.applied++
		if rec.Seqno > g.maxSeen {
			g.maxSeen = rec.Seqno
		}
		g.mu.Unlock()

		if pool != nil {
			pool.put(rec)
		}
	}

	return firstErr
}
