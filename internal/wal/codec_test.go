package wal

import "testing"

func TestEncodeDecodeMutationRecord(t *testing.T) {
	buf, err := EncodeReplayRecord(RecMutation, 1, 5, 0, 11, 7, []byte("a"), []byte("1"))
	if err != nil {
		t.Fatalf("EncodeReplayRecord: %v", err)
	}

	valid, next, eorg := IsValid(buf, 0, nil)
	if !valid {
		t.Fatal("IsValid: want true")
	}
	if next != int64(len(buf)) {
		t.Fatalf("IsValid: next=%d, want %d", next, len(buf))
	}
	if eorg {
		t.Fatal("IsValid: want eorg=false for a mutation record")
	}

	rec := Unpack(buf)
	if rec.Rid != 1 || rec.Gen != 5 || rec.Seqno != 11 || rec.Cnid != 7 {
		t.Fatalf("Unpack: got %+v", rec)
	}
	if rec.Op != OpPut || string(rec.Key) != "a" || string(rec.Value) != "1" {
		t.Fatalf("Unpack: got op=%v key=%q value=%q", rec.Op, rec.Key, rec.Value)
	}
}

func TestEncodeDecodeDeleteRecordHasNilValue(t *testing.T) {
	buf, err := EncodeReplayRecord(RecMutation, 2, 5, 0, 12, 7, []byte("b"), nil)
	if err != nil {
		t.Fatalf("EncodeReplayRecord: %v", err)
	}
	rec := Unpack(buf)
	if rec.Op != OpDel {
		t.Fatalf("Unpack: got op=%v, want OpDel", rec.Op)
	}
	if rec.Value != nil {
		t.Fatalf("Unpack: want nil value for a delete, got %q", rec.Value)
	}
}

func TestEncodeDecodeCommitRecord(t *testing.T) {
	buf, err := EncodeCommitRecord(3, 5, 100, 21, 2)
	if err != nil {
		t.Fatalf("EncodeCommitRecord: %v", err)
	}
	valid, _, _ := IsValid(buf, 0, nil)
	if !valid {
		t.Fatal("IsValid: want true")
	}
	if !IsTxCommit(buf) {
		t.Fatal("IsTxCommit: want true")
	}
	cd := UnpackCommit(buf)
	if cd.TxID != 100 || cd.CommitSeqno != 21 || cd.FinalRid != 2 || cd.WriterGen != 5 {
		t.Fatalf("UnpackCommit: got %+v", cd)
	}
	if cd.TargetGen != UnsetMinMax {
		t.Fatalf("UnpackCommit: TargetGen should start unset, got %d", cd.TargetGen)
	}
}

func TestIsValidRejectsHeaderCRCMismatch(t *testing.T) {
	buf, _ := EncodeReplayRecord(RecMutation, 1, 1, 0, 1, 1, []byte("a"), []byte("1"))
	buf[10] ^= 0xFF // corrupt a header byte, leaving both CRCs as originally computed
	if valid, _, _ := IsValid(buf, 0, nil); valid {
		t.Fatal("IsValid: want false after corrupting a header byte")
	}
}

func TestIsValidRejectsPayloadCRCMismatch(t *testing.T) {
	buf, _ := EncodeReplayRecord(RecMutation, 1, 1, 0, 1, 1, []byte("a"), []byte("1"))
	buf[len(buf)-5] ^= 0xFF // corrupt a payload byte without touching the header CRC
	if valid, _, _ := IsValid(buf, 0, nil); valid {
		t.Fatal("IsValid: want false after corrupting a payload byte")
	}
}

func TestIsValidRejectsTruncatedRecord(t *testing.T) {
	buf, _ := EncodeReplayRecord(RecMutation, 1, 1, 0, 1, 1, []byte("a"), []byte("1"))
	short := buf[:len(buf)-5]
	if valid, _, _ := IsValid(short, 0, nil); valid {
		t.Fatal("IsValid: want false on a truncated record")
	}
}

func TestIsValidFoldsMinMax(t *testing.T) {
	mm := NewMinMaxInfo()
	buf, _ := EncodeReplayRecord(RecMutation, 1, 5, 0, 11, 1, []byte("a"), []byte("1"))
	IsValid(buf, 0, &mm)
	if mm.MinSeqno != 11 || mm.MaxSeqno != 11 || mm.MinGen != 5 || mm.MaxGen != 5 {
		t.Fatalf("observe: got %+v", mm)
	}
}

func TestEndOfRecordGroupMarker(t *testing.T) {
	buf, err := EncodeMetaRecord(RecEndOfRecordGroup, 9, 1, 0)
	if err != nil {
		t.Fatalf("EncodeMetaRecord: %v", err)
	}
	valid, _, eorg := IsValid(buf, 0, nil)
	if !valid || !eorg {
		t.Fatalf("IsValid: got valid=%v eorg=%v, want true/true", valid, eorg)
	}
}
