package wal

import "sync"

// TxIndex is the global, cross-file transaction commit-descriptor table
// (3. Data model; 4.E). Every file group's first pass contributes its own
// local commit map; the elected leader merges every file's map into this
// index exactly once, after every validator has finished (4.D/4.E), under
// a single writer lock. Readers — the per-record iterator (4.B) resolving
// a transaction mutation against its commit record — then take it
// read-only for the rest of the replay. Per design decision, commit
// descriptors are never pruned from this index by txhorizon; only the
// iterator's seqno filter decides whether a resolved record is still
// live.
type TxIndex struct {
	mu      sync.RWMutex
	commits map[uint64]*CommitDescriptor
}

// NewTxIndex returns an empty index.
func NewTxIndex() *TxIndex {
	return &TxIndex{commits: make(map[uint64]*CommitDescriptor)}
}

// MergeFile folds one file's local commit descriptors into the global
// index. A txid observed in more than one file is a conflict: a
// transaction commits in exactly one file, exactly once.
func (t *TxIndex) MergeFile(local map[uint64]*CommitDescriptor) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for txid, cd := range local {
		if _, dup := t.commits[txid]; dup {
			return ErrConflict
		}
		t.commits[txid] = cd
	}
	return nil
}

// Lookup returns the commit descriptor for txid, if that transaction
// committed.
func (t *TxIndex) Lookup(txid uint64) (*CommitDescriptor, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	cd, ok := t.commits[txid]
	return cd, ok
}

// Len reports the number of committed transactions known to the index.
func (t *TxIndex) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.commits)
}

// AssignTargetGens computes, for every commit descriptor, which
// consolidated replay generation's seqno interval contains its commit
// seqno (4.E). gens must be sorted gen-ascending with non-overlapping
// [MinSeqno, MaxSeqno] bounds, which 4.D guarantees.
func (t *TxIndex) AssignTargetGens(gens []*ReplayGen) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, cd := range t.commits {
		found := false
		for _, g := range gens {
			if cd.CommitSeqno >= g.MinSeqno && cd.CommitSeqno <= g.MaxSeqno {
				checkCommitSeqnoInRange(cd.CommitSeqno, g.MinSeqno, g.MaxSeqno)
				cd.TargetGen = g.Gen
				found = true
				break
			}
		}
		if !found {
			return ErrBugAssertion
		}
	}
	return nil
}
