package wal

import "testing"

func TestTxIndexMergeAndLookup(t *testing.T) {
	idx := NewTxIndex()
	local := map[uint64]*CommitDescriptor{
		100: {TxID: 100, CommitSeqno: 21, FinalRid: 2},
	}
	if err := idx.MergeFile(local); err != nil {
		t.Fatalf("MergeFile: %v", err)
	}
	cd, ok := idx.Lookup(100)
	if !ok {
		t.Fatal("Lookup: txid 100 not found")
	}
	if cd.CommitSeqno != 21 {
		t.Fatalf("Lookup: CommitSeqno got %d, want 21", cd.CommitSeqno)
	}
	if idx.Len() != 1 {
		t.Fatalf("Len: got %d, want 1", idx.Len())
	}
}

func TestTxIndexMergeDuplicateTxidAcrossFilesIsConflict(t *testing.T) {
	idx := NewTxIndex()
	first := map[uint64]*CommitDescriptor{100: {TxID: 100, CommitSeqno: 21, FinalRid: 2}}
	second := map[uint64]*CommitDescriptor{100: {TxID: 100, CommitSeqno: 30, FinalRid: 1}}

	if err := idx.MergeFile(first); err != nil {
		t.Fatalf("MergeFile(first): %v", err)
	}
	if err := idx.MergeFile(second); err != ErrConflict {
		t.Fatalf("MergeFile(second): got %v, want ErrConflict", err)
	}
}

func TestTxIndexAssignTargetGens(t *testing.T) {
	idx := NewTxIndex()
	idx.MergeFile(map[uint64]*CommitDescriptor{
		100: {TxID: 100, CommitSeqno: 21},
		200: {TxID: 200, CommitSeqno: 38},
	})

	gens := []*ReplayGen{
		NewReplayGen(5, 20, 35),
		NewReplayGen(6, 36, 40),
	}
	if err := idx.AssignTargetGens(gens); err != nil {
		t.Fatalf("AssignTargetGens: %v", err)
	}

	cd, _ := idx.Lookup(100)
	if cd.TargetGen != 5 {
		t.Fatalf("txid 100 TargetGen: got %d, want 5", cd.TargetGen)
	}
	cd2, _ := idx.Lookup(200)
	if cd2.TargetGen != 6 {
		t.Fatalf("txid 200 TargetGen: got %d, want 6", cd2.TargetGen)
	}
}

func TestTxIndexAssignTargetGensNoMatchIsBug(t *testing.T) {
	idx := NewTxIndex()
	idx.MergeFile(map[uint64]*CommitDescriptor{
		100: {TxID: 100, CommitSeqno: 999},
	})
	gens := []*ReplayGen{NewReplayGen(5, 20, 35)}
	if err := idx.AssignTargetGens(gens); err != ErrBugAssertion {
		t.Fatalf("AssignTargetGens: got %v, want ErrBugAssertion", err)
	}
}
