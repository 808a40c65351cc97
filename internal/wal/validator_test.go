package wal

import "testing"

func TestValidateFileNonTxRecords(t *testing.T) {
	var buf []byte
	for i, seqno := range []uint64{11, 12, 13} {
		rec, _ := EncodeReplayRecord(RecMutation, uint64(i+1), 1, 0, seqno, 1, []byte("k"), []byte("v"))
		buf = append(buf, rec...)
	}

	info := NewFileGroupInfo(1, 1, "f1", int64(len(buf)), true)
	if err := ValidateFile(info, buf, SentinelHorizon); err != nil {
		t.Fatalf("ValidateFile: %v", err)
	}
	if info.Torn {
		t.Fatal("ValidateFile: want no torn tail")
	}
	if info.EndOff != int64(len(buf)) {
		t.Fatalf("EndOff: got %d, want %d", info.EndOff, len(buf))
	}
	if info.MinMax.MinSeqno != 11 || info.MinMax.MaxSeqno != 13 {
		t.Fatalf("MinMax: got %+v", info.MinMax)
	}
}

func TestValidateFileCollectsCommits(t *testing.T) {
	var buf []byte
	commit, _ := EncodeCommitRecord(1, 1, 100, 21, 1)
	buf = append(buf, commit...)

	info := NewFileGroupInfo(1, 1, "f1", int64(len(buf)), true)
	if err := ValidateFile(info, buf, SentinelHorizon); err != nil {
		t.Fatalf("ValidateFile: %v", err)
	}
	cd, ok := info.Commits[100]
	if !ok {
		t.Fatal("ValidateFile: commit for txid 100 not recorded")
	}
	if cd.CommitSeqno != 21 {
		t.Fatalf("commit: got CommitSeqno=%d, want 21", cd.CommitSeqno)
	}
}

func TestValidateFileDropsCommitsBelowHorizon(t *testing.T) {
	commit, _ := EncodeCommitRecord(1, 1, 5, 21, 1)
	info := NewFileGroupInfo(1, 1, "f1", int64(len(commit)), true)
	if err := ValidateFile(info, commit, 10); err != nil {
		t.Fatalf("ValidateFile: %v", err)
	}
	if len(info.Commits) != 0 {
		t.Fatalf("ValidateFile: want commit dropped below horizon, got %d entries", len(info.Commits))
	}
}

func TestValidateFileDuplicateTxidIsConflict(t *testing.T) {
	c1, _ := EncodeCommitRecord(1, 1, 100, 21, 1)
	c2, _ := EncodeCommitRecord(2, 1, 100, 22, 2)
	buf := append(append([]byte{}, c1...), c2...)

	info := NewFileGroupInfo(1, 1, "f1", int64(len(buf)), true)
	if err := ValidateFile(info, buf, SentinelHorizon); err != ErrConflict {
		t.Fatalf("ValidateFile: got %v, want ErrConflict", err)
	}
}

func TestValidateFileTornTailOnlyLegalOnLastFile(t *testing.T) {
	rec, _ := EncodeReplayRecord(RecMutation, 1, 1, 0, 11, 1, []byte("a"), []byte("1"))
	torn := rec[:len(rec)-5]

	last := NewFileGroupInfo(1, 1, "f1", int64(len(torn)), true)
	if err := ValidateFile(last, torn, SentinelHorizon); err != nil {
		t.Fatalf("ValidateFile (last file): %v", err)
	}
	if !last.Torn {
		t.Fatal("ValidateFile: want Torn=true for a truncated last file")
	}
	if last.EndOff != 0 {
		t.Fatalf("EndOff: got %d, want 0 (no complete record before the tear)", last.EndOff)
	}

	notLast := NewFileGroupInfo(1, 1, "f1", int64(len(torn)), false)
	if err := ValidateFile(notLast, torn, SentinelHorizon); err != ErrCorruption {
		t.Fatalf("ValidateFile (non-last file): got %v, want ErrCorruption", err)
	}
}
