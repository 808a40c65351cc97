// Package wal implements the write-ahead log: the append-only on-disk
// record stream written by the live write path (PartitionWAL and friends)
// and, on open after an unclean shutdown, the replay engine that
// reconstructs durable mutations from it.
//
// Replay glossary:
//
//   - rid — record id, monotonically increasing per writer.
//   - gen — ingest generation, advanced at every forced boundary.
//   - seqno — commit order; strictly monotonic for applied operations.
//   - txid — transaction identifier, scoped to a database lifetime.
//   - watermark (durable seqno) — the highest seqno already absorbed by
//     the on-disk index at the time of crash.
//   - tx horizon — the lowest txid whose commit descriptors are still
//     relevant.
//   - record-group end — the offset in a file beyond which only
//     transaction fragments may appear.
//   - torn tail — a trailing byte range containing a partially written
//     record due to crash.
//   - replay generation — the in-memory aggregation of all records to be
//     applied at a particular ingest generation boundary.
package wal

// Op identifies the mutation kind carried by a live record.
type Op byte

const (
	OpPut Op = iota + 1
	OpDel
	OpPdel
)

// RecType is the on-disk record type tag (4.A).
type RecType byte

const (
	// RecMutation is a non-transactional mutation.
	RecMutation RecType = iota + 1
	// RecTxMutation is a mutation scoped to a transaction; it only takes
	// effect if a matching RecTxCommit is found for its txid.
	RecTxMutation
	// RecTxBegin marks a transaction's start. Consumed silently by the
	// iterator.
	RecTxBegin
	// RecTxCommit carries a transaction's commit descriptor.
	RecTxCommit
	// RecTxAbort marks a transaction as aborted. Consumed silently.
	RecTxAbort
	// RecSkip is padding, emitted e.g. to align a rotation boundary.
	RecSkip
	// RecEndOfRecordGroup is a marker the writer emits at a group-commit
	// boundary; beyond it, only transaction fragments may legitimately
	// appear (the tail of a batch interrupted by crash).
	RecEndOfRecordGroup
)

// UnsetMinMax marks a minimum field of the min/max accumulator in which no
// record of that kind has been observed yet; the maximum fields start at 0
// instead. UnsetMax has the same value and is not used by the accumulator.
const (
	UnsetMinMax uint64 = ^uint64(0) // "no minimum observed yet"
	UnsetMax    uint64 = ^uint64(0)
)

// SentinelHorizon means "accept all" for txhorizon / txid-based filtering.
const SentinelHorizon uint64 = 0

// MinMaxInfo accumulates the seqno/gen/txid bounds observed while scanning
// a file or merging a generation (3. Data model: "Log file group info" /
// "Replay generation").
type MinMaxInfo struct {
	MinSeqno uint64
	MaxSeqno uint64
	MinGen   uint64
	MaxGen   uint64
	MinTxID  uint64
	MaxTxID  uint64
}

// NewMinMaxInfo returns an accumulator in its initial "nothing observed"
// state.
func NewMinMaxInfo() MinMaxInfo {
	return MinMaxInfo{
		MinSeqno: UnsetMinMax,
		MaxSeqno: 0,
		MinGen:   UnsetMinMax,
		MaxGen:   0,
		MinTxID:  UnsetMinMax,
		MaxTxID:  0,
	}
}

// observe folds (seqno, gen, txid) into the accumulator.
func (m *MinMaxInfo) observe(seqno, gen, txid uint64) {
	if m.MinSeqno == UnsetMinMax || seqno < m.MinSeqno {
		m.MinSeqno = seqno
	}
	if seqno > m.MaxSeqno {
		m.MaxSeqno = seqno
	}
	if m.MinGen == UnsetMinMax || gen < m.MinGen {
		m.MinGen = gen
	}
	if gen > m.MaxGen {
		m.MaxGen = gen
	}
	if m.MinTxID == UnsetMinMax || txid < m.MinTxID {
		m.MinTxID = txid
	}
	if txid > m.MaxTxID {
		m.MaxTxID = txid
	}
}

// Record is a decoded, live mutation (4.A/4.B). Key and Value may alias
// memory owned by a file group's mapping; they must not outlive it.
type Record struct {
	Type  RecType
	Rid   uint64
	Gen   uint64
	TxID  uint64 // 0 for non-tx
	Seqno uint64 // 0 for tx mutations before commit-seqno substitution
	Cnid  uint64
	Op    Op
	Key   []byte
	Value []byte // nil for delete/pdel
}

// CommitDescriptor is a transaction's commit record (3. Data model).
type CommitDescriptor struct {
	TxID        uint64
	CommitSeqno uint64
	FinalRid    uint64
	WriterGen   uint64 // gen recorded by the writer at commit time
	TargetGen   uint64 // computed by 4.E; UnsetMinMax until assigned
}
