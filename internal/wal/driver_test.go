package wal

import (
	"testing"

	"github.com/coredb-io/kvdb/internal/ingest"
)

func TestRunDriverNoGroupsIsNoop(t *testing.T) {
	ctx := NewReplayContext(0, ingest.NewLayer(0), nil, nil, 0)
	if err := RunDriver(ctx, nil); err != nil {
		t.Fatalf("RunDriver: %v", err)
	}
}

func TestRunDriverCorruptionInNonLastFilePropagates(t *testing.T) {
	good, _ := EncodeReplayRecord(RecMutation, 1, 1, 0, 11, 1, []byte("a"), []byte("1"))
	bad, _ := EncodeReplayRecord(RecMutation, 1, 1, 0, 11, 1, []byte("a"), []byte("1"))
	bad[10] ^= 0xFF

	groups := []*FileWork{
		fileWork(1, 1, false, bad),
		fileWork(2, 2, true, good),
	}
	ctx := NewReplayContext(len(groups), ingest.NewLayer(0), nil, nil, 0)
	if err := RunDriver(ctx, groups); err != ErrCorruption {
		t.Fatalf("RunDriver: got %v, want ErrCorruption", err)
	}
}

func TestRunDriverConsolidatesExactlyOnce(t *testing.T) {
	var groups []*FileWork
	for i := uint64(1); i <= 8; i++ {
		rec, _ := EncodeReplayRecord(RecMutation, 1, i, 0, i, 1, []byte("a"), []byte("1"))
		groups = append(groups, fileWork(i, i, i == 8, rec))
	}

	ctx := NewReplayContext(len(groups), ingest.NewLayer(0), nil, nil, 0)
	if err := RunDriver(ctx, groups); err != nil {
		t.Fatalf("RunDriver: %v", err)
	}
	if got := len(ctx.Gens()); got != 8 {
		t.Fatalf("Gens: got %d, want 8 (one consolidation pass, every gen registered once)", got)
	}
}
