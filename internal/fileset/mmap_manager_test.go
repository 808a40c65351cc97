package fileset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/coredb-io/kvdb/internal/logger"
	"github.com/coredb-io/kvdb/internal/wal"
)

func writeSegment(t *testing.T, dir, name string, contents []byte) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), contents, 0644); err != nil {
		t.Fatalf("WriteFile(%s): %v", name, err)
	}
}

func TestMmapManagerDiscoversAndOrdersSegments(t *testing.T) {
	dir := t.TempDir()
	writeSegment(t, dir, "db.gen6.wal.1", []byte("bbbb"))
	writeSegment(t, dir, "db.gen5.wal.2", []byte("aaaa2"))
	writeSegment(t, dir, "db.gen5.wal.1", []byte("aaaa1"))
	writeSegment(t, dir, "not-a-segment.txt", []byte("ignore me"))

	m := NewMmapManager(dir, "db", logger.Default())
	works, err := m.ReplayEnumerate()
	if err != nil {
		t.Fatalf("ReplayEnumerate: %v", err)
	}
	defer m.ReplayRelease(false)

	if len(works) != 3 {
		t.Fatalf("ReplayEnumerate: got %d segments, want 3 (non-matching file excluded)", len(works))
	}

	wantGens := []uint64{5, 5, 6}
	for i, w := range works {
		if w.Info.Gen != wantGens[i] {
			t.Fatalf("segment %d: gen got %d, want %d (gen ascending, then seq ascending)", i, w.Info.Gen, wantGens[i])
		}
	}
	if string(works[0].Buf) != "aaaa1" || string(works[1].Buf) != "aaaa2" {
		t.Fatalf("segment ordering within gen 5: got %q, %q", works[0].Buf, works[1].Buf)
	}
	if !works[2].Info.Last {
		t.Fatal("last segment (highest gen) should have Info.Last=true")
	}
	if works[0].Info.Last || works[1].Info.Last {
		t.Fatal("only the last segment should have Info.Last=true")
	}
}

func TestMmapManagerReplayReleaseUnmaps(t *testing.T) {
	dir := t.TempDir()
	writeSegment(t, dir, "db.gen1.wal.1", []byte("hello world"))

	m := NewMmapManager(dir, "db", logger.Default())
	works, err := m.ReplayEnumerate()
	if err != nil {
		t.Fatalf("ReplayEnumerate: %v", err)
	}
	if len(works) != 1 {
		t.Fatalf("ReplayEnumerate: got %d segments, want 1", len(works))
	}
	if string(works[0].Buf) != "hello world" {
		t.Fatalf("mapped contents: got %q", works[0].Buf)
	}

	if err := m.ReplayRelease(false); err != nil {
		t.Fatalf("ReplayRelease: %v", err)
	}
	if len(m.mapped) != 0 {
		t.Fatal("ReplayRelease: mapped list should be empty after release")
	}
}

func TestMmapManagerEmptyDirYieldsNoSegments(t *testing.T) {
	dir := t.TempDir()
	m := NewMmapManager(dir, "db", logger.Default())
	works, err := m.ReplayEnumerate()
	if err != nil {
		t.Fatalf("ReplayEnumerate: %v", err)
	}
	if len(works) != 0 {
		t.Fatalf("ReplayEnumerate: got %d segments, want 0", len(works))
	}
}

var _ wal.FileSetManager = (*MmapManager)(nil)
