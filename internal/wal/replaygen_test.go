package wal

import (
	"testing"

	"github.com/coredb-io/kvdb/internal/ingest"
)

func TestReplayGenInsertDuplicateRidIsConflict(t *testing.T) {
	g := NewReplayGen(1, 0, 100)
	if err := g.Insert(&Record{Rid: 1, Op: OpPut, Key: []byte("a")}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := g.Insert(&Record{Rid: 1, Op: OpPut, Key: []byte("b")}); err != ErrConflict {
		t.Fatalf("Insert (dup rid): got %v, want ErrConflict", err)
	}
}

func TestReplayGenApplyInRidOrder(t *testing.T) {
	layer := ingest.NewLayer(0)
	h, err := layer.ReplayOpen()
	if err != nil {
		t.Fatalf("ReplayOpen: %v", err)
	}
	defer layer.ReplayClose(h)
	layer.ReplayEnable()

	g := NewReplayGen(1, 11, 13)
	g.Insert(&Record{Rid: 1, Seqno: 11, Cnid: 1, Op: OpPut, Key: []byte("a"), Value: []byte("1")})
	g.Insert(&Record{Rid: 2, Seqno: 12, Cnid: 1, Op: OpDel, Key: []byte("b")})
	g.Insert(&Record{Rid: 3, Seqno: 13, Cnid: 1, Op: OpPut, Key: []byte("c"), Value: []byte("3")})

	if err := g.Apply(layer, h, nil); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	count, maxSeqno := g.Applied()
	if count != 3 {
		t.Fatalf("Applied: count got %d, want 3", count)
	}
	if maxSeqno != 13 {
		t.Fatalf("Applied: maxSeqno got %d, want 13", maxSeqno)
	}

	if val, ok := layer.Get(1, []byte("a")); !ok || string(val) != "1" {
		t.Fatalf("Get a: got %q, %v", val, ok)
	}
	if _, ok := layer.Get(1, []byte("b")); ok {
		t.Fatal("Get b: want deleted")
	}
}
