package ingest

import (
	"encoding/binary"
	"sync"
	"sync/atomic"
)

// SyncFlags controls Sync's durability mode.
type SyncFlags int

const (
	// SyncAsync requests a sync be scheduled but not waited for; used by
	// the WAL replay coordinator to force a generation boundary between
	// replay generations without blocking the apply pass.
	SyncAsync SyncFlags = iota
	// SyncBlocking waits for the sync to complete before returning.
	SyncBlocking
)

// Handle is an opaque replay session token returned by ReplayOpen. Replay
// hook calls made with a stale or mismatched handle are rejected.
type Handle struct {
	id uint64
}

// Layer is the in-memory ingest structure. During normal operation it
// accepts writes from the live write path; during replay it is driven
// exclusively through the Replay* hooks below, which is why those hooks
// take an explicit Handle rather than relying on ambient state.
type Layer struct {
	idx *index

	mu         sync.RWMutex
	replayMode bool
	openHandle uint64 // 0 when no replay session is open
	handleSeq  uint64
	gen        uint64
	seqno      uint64 // reserved/high-water seqno
	syncCount  uint64
}

// NewLayer constructs an ingest layer with numShards shards (0 selects the
// default).
func NewLayer(numShards int) *Layer {
	return &Layer{idx: newIndex(numShards)}
}

// ReplayOpen begins a replay session. Only one may be open at a time.
func (l *Layer) ReplayOpen() (Handle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.openHandle != 0 {
		return Handle{}, ErrAlreadyOpen
	}
	l.handleSeq++
	l.openHandle = l.handleSeq
	return Handle{id: l.openHandle}, nil
}

// ReplayClose ends the replay session associated with h.
func (l *Layer) ReplayClose(h Handle) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.openHandle == h.id {
		l.openHandle = 0
	}
}

func (l *Layer) checkHandle(h Handle) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.openHandle == 0 {
		return ErrNotOpen
	}
	if l.openHandle != h.id {
		return ErrInvalidHandle
	}
	return nil
}

// ReplayEnable puts the ingest layer into replay mode: generation numbers
// are taken from the caller rather than advanced internally, and the
// reserved seqno counter is not bumped by writes.
func (l *Layer) ReplayEnable() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.replayMode = true
}

// ReplayDisable leaves replay mode.
func (l *Layer) ReplayDisable() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.replayMode = false
}

// InReplayMode reports whether replay mode is active.
func (l *Layer) InReplayMode() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.replayMode
}

// ReplayGenSet sets the ingest generation directly. Only meaningful in
// replay mode.
func (l *Layer) ReplayGenSet(gen uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen = gen
}

// CurrentGen returns the current ingest generation.
func (l *Layer) CurrentGen() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.gen
}

// ReplaySeqnoSet sets the reserved seqno watermark directly, bypassing the
// normal internal-increment path. Called once after the last replay
// generation has been applied.
func (l *Layer) ReplaySeqnoSet(seqno uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if seqno > l.seqno {
		l.seqno = seqno
	}
}

// CurrentSeqno returns the reserved seqno watermark.
func (l *Layer) CurrentSeqno() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.seqno
}

func compositeKey(cnid uint64, key []byte) string {
	buf := make([]byte, 8+len(key))
	binary.LittleEndian.PutUint64(buf[:8], cnid)
	copy(buf[8:], key)
	return string(buf)
}

// ReplayPut installs a live value for (cnid, key) at seqno. managed, when
// true, indicates value aliases memory owned by the caller (typically a
// memory-mapped WAL segment) and outlives this call; when false the layer
// takes ownership of the slice as given.
func (l *Layer) ReplayPut(h Handle, cnid uint64, seqno uint64, key, value []byte, managed bool) error {
	if err := l.checkHandle(h); err != nil {
		return err
	}
	k := compositeKey(cnid, key)
	sh := l.idx.shardFor(k)
	sh.set(k, &entry{seqno: seqno, value: value, managed: managed})
	return nil
}

// ReplayDel tombstones (cnid, key) at seqno.
func (l *Layer) ReplayDel(h Handle, cnid uint64, seqno uint64, key []byte, managed bool) error {
	if err := l.checkHandle(h); err != nil {
		return err
	}
	k := compositeKey(cnid, key)
	sh := l.idx.shardFor(k)
	sh.set(k, &entry{seqno: seqno, deleted: true, managed: managed})
	return nil
}

// ReplayPdel tombstones every live key under cnid with the given prefix at
// seqno, returning the number of keys affected.
func (l *Layer) ReplayPdel(h Handle, cnid uint64, seqno uint64, prefix []byte, managed bool) (int, error) {
	if err := l.checkHandle(h); err != nil {
		return 0, err
	}
	pfx := compositeKey(cnid, prefix)
	n := 0
	for _, sh := range l.idx.shards {
		n += sh.deletePrefix(pfx, seqno)
	}
	return n, nil
}

// Sync requests the ingest layer force a durability boundary. flags ==
// SyncAsync does not block; SyncBlocking does. This stand-in has nothing to
// flush to disk, so both modes just bump an observability counter.
func (l *Layer) Sync(flags SyncFlags) error {
	atomic.AddUint64(&l.syncCount, 1)
	return nil
}

// SyncCount returns the number of Sync calls observed, for tests.
func (l *Layer) SyncCount() uint64 {
	return atomic.LoadUint64(&l.syncCount)
}

// Get returns the live value for (cnid, key), for tests and the (not
// otherwise implemented) read path.
func (l *Layer) Get(cnid uint64, key []byte) ([]byte, bool) {
	k := compositeKey(cnid, key)
	sh := l.idx.shardFor(k)
	e, ok := sh.get(k)
	if !ok {
		return nil, false
	}
	return e.value, true
}

// Len returns the number of live keys across all collections.
func (l *Layer) Len() int {
	return l.idx.liveCount()
}
