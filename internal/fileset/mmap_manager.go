package fileset

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/coredb-io/kvdb/internal/logger"
	"github.com/coredb-io/kvdb/internal/wal"
)

// genMarker and segMarker delimit the generation-tagged WAL file naming
// convention this package understands, e.g. "testdb.gen3.wal.1":
// <base>.gen<G>.wal.<n>, the same scheme wal.Rotator writes, carrying the
// ingest generation a segment belongs to.
const (
	genMarker = ".gen"
	segMarker = ".wal."
)

// MmapManager implements wal.FileSetManager by memory-mapping every generation
// segment under one directory, read-only, for the duration of a replay
// pass.
type MmapManager struct {
	dir    string
	base   string
	logger *logger.Logger

	mapped []mappedFile
}

type mappedFile struct {
	fd  *os.File
	buf []byte
}

// NewMmapManager constructs a manager that scans dir for segments named
// "<base>.gen<G>.wal.<n>".
func NewMmapManager(dir, base string, log *logger.Logger) *MmapManager {
	return &MmapManager{dir: dir, base: base, logger: log}
}

type segmentMeta struct {
	path string
	gen  uint64
	seq  int
}

func (m *MmapManager) discover() ([]segmentMeta, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("fileset: read dir: %w", err)
	}

	var segs []segmentMeta
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, m.base+genMarker) {
			continue
		}
		rest := name[len(m.base+genMarker):]
		segIdx := strings.Index(rest, segMarker)
		if segIdx < 0 {
			continue
		}
		genStr := rest[:segIdx]
		gen, err := strconv.ParseUint(genStr, 10, 64)
		if err != nil {
			continue
		}
		seqStr := rest[segIdx+len(segMarker):]
		seq, err := strconv.Atoi(seqStr)
		if err != nil {
			continue
		}
		segs = append(segs, segmentMeta{path: filepath.Join(m.dir, name), gen: gen, seq: seq})
	}

	sort.Slice(segs, func(i, j int) bool {
		if segs[i].gen != segs[j].gen {
			return segs[i].gen < segs[j].gen
		}
		return segs[i].seq < segs[j].seq
	})

	return segs, nil
}

// ReplayEnumerate implements wal.FileSetManager.
func (m *MmapManager) ReplayEnumerate() ([]*wal.FileWork, error) {
	segs, err := m.discover()
	if err != nil {
		return nil, err
	}

	works := make([]*wal.FileWork, 0, len(segs))
	for i, seg := range segs {
		f, err := os.Open(seg.path)
		if err != nil {
			m.ReplayRelease(true)
			return nil, fmt.Errorf("fileset: open %s: %w", seg.path, err)
		}

		st, err := f.Stat()
		if err != nil {
			f.Close()
			m.ReplayRelease(true)
			return nil, fmt.Errorf("fileset: stat %s: %w", seg.path, err)
		}

		size := st.Size()
		var buf []byte
		if size > 0 {
			buf, err = unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
			if err != nil {
				f.Close()
				m.ReplayRelease(true)
				return nil, fmt.Errorf("fileset: mmap %s: %w", seg.path, err)
			}
		}

		m.mapped = append(m.mapped, mappedFile{fd: f, buf: buf})

		info := wal.NewFileGroupInfo(uint64(i+1), seg.gen, seg.path, size, i == len(segs)-1)
		works = append(works, &wal.FileWork{Info: info, Buf: buf})
	}

	if m.logger != nil {
		m.logger.Info("fileset: enumerated %d replay segments under %s", len(works), m.dir)
	}

	return works, nil
}

// ReplayRelease implements wal.FileSetManager.
func (m *MmapManager) ReplayRelease(failed bool) error {
	var firstErr error
	for _, mf := range m.mapped {
		if mf.buf != nil {
			if err := unix.Munmap(mf.buf); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		if err := mf.fd.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	m.mapped = nil

	if m.logger != nil {
		if failed {
			m.logger.Warn("fileset: released replay mappings under %s after failed replay", m.dir)
		} else {
			m.logger.Debug("fileset: released replay mappings under %s", m.dir)
		}
	}

	return firstErr
}
