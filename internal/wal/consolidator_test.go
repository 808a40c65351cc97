package wal

import "testing"

func mmWith(minSeqno, maxSeqno uint64) MinMaxInfo {
	mm := NewMinMaxInfo()
	mm.MinSeqno = minSeqno
	mm.MaxSeqno = maxSeqno
	return mm
}

func TestConsolidateFilesOrdersByGen(t *testing.T) {
	a := &FileGroupInfo{FileID: 2, Gen: 6, MinMax: mmWith(36, 40)}
	b := &FileGroupInfo{FileID: 1, Gen: 5, MinMax: mmWith(30, 35)}

	gens := ConsolidateFiles([]*FileGroupInfo{a, b})
	if len(gens) != 2 {
		t.Fatalf("ConsolidateFiles: got %d gens, want 2", len(gens))
	}
	if gens[0].Gen != 5 || gens[1].Gen != 6 {
		t.Fatalf("ConsolidateFiles: got gens %d,%d, want 5,6", gens[0].Gen, gens[1].Gen)
	}
	if gens[0].MinSeqno != 30 || gens[0].MaxSeqno != 35 {
		t.Fatalf("gen 5 bounds: got [%d,%d]", gens[0].MinSeqno, gens[0].MaxSeqno)
	}
	if gens[1].MinSeqno != 36 || gens[1].MaxSeqno != 40 {
		t.Fatalf("gen 6 bounds: got [%d,%d]", gens[1].MinSeqno, gens[1].MaxSeqno)
	}
}

func TestConsolidateFilesMergesSameGenAcrossFiles(t *testing.T) {
	f1 := &FileGroupInfo{FileID: 1, Gen: 5, MinMax: mmWith(20, 21)}
	f2 := &FileGroupInfo{FileID: 2, Gen: 5, MinMax: mmWith(22, 22)}

	gens := ConsolidateFiles([]*FileGroupInfo{f1, f2})
	if len(gens) != 1 {
		t.Fatalf("ConsolidateFiles: got %d gens, want 1", len(gens))
	}
	if gens[0].MinSeqno != 20 || gens[0].MaxSeqno != 22 {
		t.Fatalf("merged bounds: got [%d,%d], want [20,22]", gens[0].MinSeqno, gens[0].MaxSeqno)
	}
}

func TestConsolidateFilesLiftsOverlappingBounds(t *testing.T) {
	a := &FileGroupInfo{FileID: 1, Gen: 5, MinMax: mmWith(UnsetMinMax, 50)}
	b := &FileGroupInfo{FileID: 2, Gen: 6, MinMax: mmWith(49, 60)}

	gens := ConsolidateFiles([]*FileGroupInfo{a, b})
	if gens[1].MinSeqno != 51 {
		t.Fatalf("ConsolidateFiles: gen 6 MinSeqno got %d, want 51 (lifted past gen 5 max 50)", gens[1].MinSeqno)
	}
	if gens[1].MaxSeqno < gens[1].MinSeqno {
		t.Fatalf("ConsolidateFiles: gen 6 MaxSeqno %d < MinSeqno %d", gens[1].MaxSeqno, gens[1].MinSeqno)
	}
}

func TestConsolidateFilesLiftsEmptyGeneration(t *testing.T) {
	a := &FileGroupInfo{FileID: 1, Gen: 5, MinMax: mmWith(30, 35)}
	empty := &FileGroupInfo{FileID: 2, Gen: 6, MinMax: NewMinMaxInfo()} // no live mutations of its own

	gens := ConsolidateFiles([]*FileGroupInfo{a, empty})
	if gens[1].MinSeqno != 36 || gens[1].MaxSeqno != 36 {
		t.Fatalf("empty gen bounds: got [%d,%d], want [36,36]", gens[1].MinSeqno, gens[1].MaxSeqno)
	}
}
