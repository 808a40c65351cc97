// Package mdc implements the metadata change log: a small append-only log
// of ingest-generation boundary records, replayed once at open, before WAL
// replay, to recover the last ingest generation the on-disk index had
// absorbed.
//
// The on-disk format mirrors the coordinator decision log this package is
// adapted from: a fixed-size CRC32-framed record, one field changed (a
// generation number instead of a commit/abort decision).
package mdc

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
	"os"
	"path/filepath"
	"sync"

	"github.com/coredb-io/kvdb/internal/logger"
)

// ErrCorruptRecord is returned when a record in the middle of the log (not
// its trailing bytes) fails its checksum. A failure confined to the final
// record is treated as a torn tail and is not an error.
var ErrCorruptRecord = errors.New("mdc: corrupt record")

const (
	recordSize            = 1 + 8 + 4 // type(1) + gen(8) + crc32(4)
	recordTypeGenAdvance byte = 1
)

var byteOrder = binary.LittleEndian

// Metadata is the recovered state of the log.
type Metadata struct {
	// LastGen is the highest generation boundary recorded before crash.
	LastGen uint64
}

// Log is an append-only generation-boundary log. One per database; it must
// survive crashes so WAL replay knows which ingest generation to resume at.
type Log struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	logger *logger.Logger
}

// New creates a metadata change log. Call Open before use.
func New(path string, log *logger.Logger) *Log {
	return &Log{path: path, logger: log}
}

// Open creates or opens the log file. Idempotent.
func (l *Log) Open() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(l.path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	l.file = f
	return nil
}

// Close closes the log file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// AppendGenAdvance records that the ingest layer crossed into gen.
func (l *Log) AppendGenAdvance(gen uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return os.ErrClosed
	}
	buf := make([]byte, recordSize)
	buf[0] = recordTypeGenAdvance
	byteOrder.PutUint64(buf[1:9], gen)
	crc := crc32.ChecksumIEEE(buf[:9])
	byteOrder.PutUint32(buf[9:13], crc)
	if _, err := l.file.Write(buf); err != nil {
		return err
	}
	return l.file.Sync()
}

// Replay scans the log and returns the recovered metadata. Must be called
// before WAL replay begins. A checksum failure on a trailing, partially
// written record is a torn tail and is tolerated; a checksum failure with
// valid-looking records after it is corruption and is reported.
func (l *Log) Replay() (*Metadata, error) {
	l.mu.Lock()
	f := l.file
	path := l.path
	l.mu.Unlock()

	var file *os.File
	var err error
	if f != nil {
		if _, err = f.Seek(0, os.SEEK_SET); err != nil {
			return nil, err
		}
		file = f
	} else {
		file, err = os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				return &Metadata{}, nil
			}
			return nil, err
		}
		defer file.Close()
	}

	md := &Metadata{}
	buf := make([]byte, recordSize)
	tornSeen := false
	for {
		n, rerr := file.Read(buf)
		if n < recordSize {
			// Short read at EOF: torn tail, stop cleanly.
			break
		}
		crc := crc32.ChecksumIEEE(buf[:9])
		stored := byteOrder.Uint32(buf[9:13])
		if crc != stored {
			tornSeen = true
			if rerr != nil {
				break
			}
			continue
		}
		if tornSeen {
			// A checksum failure was followed by another well-formed
			// record: the failure was not a trailing torn write.
			return nil, ErrCorruptRecord
		}
		if buf[0] == recordTypeGenAdvance {
			gen := byteOrder.Uint64(buf[1:9])
			if gen > md.LastGen {
				md.LastGen = gen
			}
		}
		if rerr != nil {
			break
		}
	}

	if f != nil {
		if _, err := f.Seek(0, os.SEEK_END); err != nil {
			return md, err
		}
	}
	if l.logger != nil {
		l.logger.Debug("mdc replay complete: last_gen=%d", md.LastGen)
	}
	return md, nil
}
