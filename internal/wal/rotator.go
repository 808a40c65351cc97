package wal

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/coredb-io/kvdb/internal/logger"
)

// genMarker/segMarker mirror the fileset package's own copy of this naming
// convention (internal/fileset/mmap_manager.go); the two sides agree on the
// scheme without sharing a dependency, since fileset already imports wal.
const (
	genMarker = ".gen"
	segMarker = ".wal."
)

// Rotator manages WAL segment naming and rotation for the live write path,
// in the generation-tagged convention the fileset manager (6. External
// interfaces) discovers at replay time: "<base>.gen<G>.wal.<n>".
//
// It provides:
//   - Deterministic segment paths per (generation, sequence)
//   - Size-threshold rotation within one generation
//   - Segment discovery scoped to one generation, so a restarted writer
//     resumes sequence numbering instead of colliding with what's on disk
type Rotator struct {
	dir     string
	base    string
	maxSize uint64
	logger  *logger.Logger
}

// NewRotator creates a new WAL rotator.
//
// Parameters:
//   - dir: directory holding WAL segments
//   - base: segment base name (e.g. "db")
//   - maxSize: maximum size before rotation (bytes, 0 = no limit)
//   - log: logger instance
func NewRotator(dir, base string, maxSize uint64, log *logger.Logger) *Rotator {
	return &Rotator{dir: dir, base: base, maxSize: maxSize, logger: log}
}

// SegmentPath returns the on-disk path for generation gen, sequence seq.
func (r *Rotator) SegmentPath(gen uint64, seq int) string {
	return filepath.Join(r.dir, fmt.Sprintf("%s%s%d%s%d", r.base, genMarker, gen, segMarker, seq))
}

// ShouldRotate checks if rotation is needed based on current size.
func (r *Rotator) ShouldRotate(currentSize uint64) bool {
	if r.maxSize == 0 {
		return false
	}
	return currentSize >= r.maxSize
}

// ListGenSegments returns every existing segment path for gen, sorted by
// ascending sequence number.
func (r *Rotator) ListGenSegments(gen uint64) ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read WAL directory: %w", err)
	}

	prefix := r.genPrefix(gen)
	type seg struct {
		path string
		seq  int
	}
	var segs []seg
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		seq, err := strconv.Atoi(name[len(prefix):])
		if err != nil {
			r.logger.Debug("Ignoring non-segment file: %s", name)
			continue
		}
		segs = append(segs, seg{path: filepath.Join(r.dir, name), seq: seq})
	}

	sort.Slice(segs, func(i, j int) bool { return segs[i].seq < segs[j].seq })

	paths := make([]string, len(segs))
	for i, s := range segs {
		paths[i] = s.path
	}
	return paths, nil
}

// NextSeq returns the sequence number to use for the next segment in gen:
// one past the highest existing sequence, or 1 if none exist yet.
func (r *Rotator) NextSeq(gen uint64) (int, error) {
	segs, err := r.ListGenSegments(gen)
	if err != nil {
		return 0, err
	}
	if len(segs) == 0 {
		return 1, nil
	}

	prefix := r.genPrefix(gen)
	last := filepath.Base(segs[len(segs)-1])
	seq, err := strconv.Atoi(last[len(prefix):])
	if err != nil {
		return 0, fmt.Errorf("invalid segment name: %s", last)
	}
	return seq + 1, nil
}

func (r *Rotator) genPrefix(gen uint64) string {
	return fmt.Sprintf("%s%s%d%s", r.base, genMarker, gen, segMarker)
}
