package wal

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/coredb-io/kvdb/internal/config"
	"github.com/coredb-io/kvdb/internal/errors"
	"github.com/coredb-io/kvdb/internal/logger"
)

// PartitionWAL is a generation-tagged segment writer for the live write
// path. Each partition:
//   - appends records in the replay engine's own wire format
//     (EncodeReplayRecord/EncodeCommitRecord), so crash recovery reads
//     back exactly what it wrote
//   - owns a monotonically increasing rid, never reset by rotation or by
//     advancing to a new generation
//   - rotates to a new numbered segment at a size threshold, within the
//     current generation, or can be advanced explicitly to a new
//     generation (AdvanceGen)
//   - has its own group commit controller and checkpoint manager
type PartitionWAL struct {
	mu            sync.Mutex
	partitionID   int
	dir           string
	base          string
	file          *os.File
	path          string
	gen           uint64
	seq           int
	rid           uint64 // monotonically increasing per writer
	size          uint64
	maxSize       uint64
	fsyncConfig   *config.FsyncConfig
	groupCommit   *GroupCommit
	logger        *logger.Logger
	rotator       *Rotator
	isClosed      bool
	checkpointMgr *PartitionCheckpointManager
	retryCtrl     *errors.RetryController
	classifier    *errors.Classifier
	onFsync       func(duration time.Duration) // Callback for fsync metrics
}

// NewPartitionWAL creates a new partition WAL writing generation gen's
// segments under dir with the given base name.
func NewPartitionWAL(partitionID int, dir, base string, gen uint64, maxSize uint64, walCfg *config.WALConfig, log *logger.Logger) *PartitionWAL {
	pw := &PartitionWAL{
		partitionID: partitionID,
		dir:         dir,
		base:        base,
		gen:         gen,
		maxSize:     maxSize,
		fsyncConfig: &walCfg.Fsync,
		logger:      log,
		rotator:     NewRotator(dir, base, maxSize, log),
		retryCtrl:   errors.NewRetryController(),
		classifier:  errors.NewClassifier(),
	}

	pw.checkpointMgr = NewPartitionCheckpointManager(partitionID, walCfg.Checkpoint, log)

	return pw
}

// Open opens the partition's current generation segment, resuming
// sequence numbering from whatever already exists on disk.
func (pw *PartitionWAL) Open() error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if err := os.MkdirAll(pw.dir, 0755); err != nil {
		return errors.ErrFileOpen
	}

	seq, err := pw.rotator.NextSeq(pw.gen)
	if err != nil {
		return errors.ErrFileOpen
	}
	path := pw.rotator.SegmentPath(pw.gen, seq)

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return errors.ErrFileOpen
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return errors.ErrFileOpen
	}

	pw.file = file
	pw.path = path
	pw.seq = seq
	pw.size = uint64(info.Size())
	pw.isClosed = false

	// Initialize group commit if configured
	if pw.fsyncConfig != nil && (pw.fsyncConfig.Mode == config.FsyncGroup || pw.fsyncConfig.Mode == config.FsyncInterval) {
		pw.groupCommit = NewGroupCommit(file, pw.fsyncConfig, pw.logger)
		// Set fsync callback if configured
		if pw.onFsync != nil {
			pw.groupCommit.OnFsync = pw.onFsync
		}
		pw.groupCommit.Start()
	}

	// Resume rid from the last checkpoint, if any.
	if lastRid := pw.checkpointMgr.GetLastRid(); lastRid > 0 {
		pw.rid = lastRid
	}

	return nil
}

// WritePut appends a non-transactional put record.
func (pw *PartitionWAL) WritePut(cnid, seqno uint64, key, value []byte) error {
	return pw.write(RecMutation, cnid, seqno, key, value)
}

// WriteDel appends a non-transactional delete record (an empty value
// marks deletion on replay; see Unpack).
func (pw *PartitionWAL) WriteDel(cnid, seqno uint64, key []byte) error {
	return pw.write(RecMutation, cnid, seqno, key, nil)
}

func (pw *PartitionWAL) write(rt RecType, cnid, seqno uint64, key, value []byte) error {
	return pw.retryCtrl.Retry(func() error {
		pw.mu.Lock()
		defer pw.mu.Unlock()

		if pw.file == nil {
			return errors.ErrFileWrite
		}

		rid := pw.rid + 1
		checkLSNMonotonic(pw.rid, rid)

		record, err := EncodeReplayRecord(rt, rid, pw.gen, 0, seqno, cnid, key, value)
		if err != nil {
			return err
		}

		if err := pw.appendLocked(record); err != nil {
			return err
		}
		pw.rid = rid
		return nil
	}, pw.classifier)
}

// WriteCommit appends a transaction commit record.
func (pw *PartitionWAL) WriteCommit(txid, commitSeqno, finalRid uint64) error {
	return pw.retryCtrl.Retry(func() error {
		pw.mu.Lock()
		defer pw.mu.Unlock()

		if pw.file == nil {
			return errors.ErrFileWrite
		}

		rid := pw.rid + 1
		checkLSNMonotonic(pw.rid, rid)

		record, err := EncodeCommitRecord(rid, pw.gen, txid, commitSeqno, finalRid)
		if err != nil {
			return err
		}

		if err := pw.appendLocked(record); err != nil {
			return err
		}
		pw.rid = rid
		return nil
	}, pw.classifier)
}

// appendLocked writes a pre-encoded record via group commit or directly,
// and rotates if the size threshold is crossed. Caller holds mu.
func (pw *PartitionWAL) appendLocked(record []byte) error {
	if pw.groupCommit != nil {
		if err := pw.groupCommit.Write(record); err != nil {
			return errors.ErrFileWrite
		}
	} else {
		if _, err := pw.file.Write(record); err != nil {
			return errors.ErrFileWrite
		}
		if pw.fsyncConfig != nil && pw.fsyncConfig.Mode == config.FsyncAlways {
			fsyncStart := time.Now()
			if err := pw.file.Sync(); err != nil {
				return errors.ErrFileWrite
			}
			fsyncDuration := time.Since(fsyncStart)
			if pw.onFsync != nil {
				pw.onFsync(fsyncDuration)
			}
		}
	}

	pw.size += uint64(len(record))

	if pw.maxSize > 0 && pw.size >= pw.maxSize {
		if err := pw.rotate(); err != nil {
			pw.logger.Warn("Failed to rotate partition WAL: %v", err)
		}
	}

	return nil
}

// rotate opens the next sequence number's segment within the current
// generation.
func (pw *PartitionWAL) rotate() error {
	return pw.openSegment(pw.gen, pw.seq+1)
}

// AdvanceGen closes the current segment and opens a fresh one tagged with
// the next ingest generation, starting again at sequence 1. rid is not
// reset: it stays monotonic across the writer's whole lifetime.
func (pw *PartitionWAL) AdvanceGen(newGen uint64) error {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	return pw.openSegment(newGen, 1)
}

// openSegment closes the current file (if any) and opens gen/seq as the
// new active segment. Caller holds mu.
func (pw *PartitionWAL) openSegment(gen uint64, seq int) error {
	if pw.groupCommit != nil {
		pw.groupCommit.Stop()
		pw.groupCommit = nil
	}
	if pw.file != nil {
		_ = pw.file.Sync()
		pw.file.Close()
	}

	path := pw.rotator.SegmentPath(gen, seq)
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return errors.ErrFileOpen
	}

	pw.file = file
	pw.path = path
	pw.gen = gen
	pw.seq = seq
	pw.size = 0

	if pw.fsyncConfig != nil && (pw.fsyncConfig.Mode == config.FsyncGroup || pw.fsyncConfig.Mode == config.FsyncInterval) {
		pw.groupCommit = NewGroupCommit(file, pw.fsyncConfig, pw.logger)
		if pw.onFsync != nil {
			pw.groupCommit.OnFsync = pw.onFsync
		}
		pw.groupCommit.Start()
	}

	return nil
}

// Close closes the partition WAL. Syncs the file before closing so replay after reopen sees all data.
func (pw *PartitionWAL) Close() error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if pw.isClosed {
		return nil
	}

	if pw.groupCommit != nil {
		pw.groupCommit.Stop()
		pw.groupCommit = nil
	}

	if pw.file != nil {
		_ = pw.file.Sync()
		pw.file.Close()
		pw.file = nil
	}

	pw.isClosed = true
	return nil
}

// Size returns the current segment's size.
func (pw *PartitionWAL) Size() uint64 {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	return pw.size
}

// CurrentRid returns the last rid assigned.
func (pw *PartitionWAL) CurrentRid() uint64 {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	return pw.rid
}

// GetCheckpointManager returns the checkpoint manager for this partition.
func (pw *PartitionWAL) GetCheckpointManager() *PartitionCheckpointManager {
	return pw.checkpointMgr
}

// SetFsyncCallback sets the callback function to be called after each fsync with the duration.
func (pw *PartitionWAL) SetFsyncCallback(callback func(duration time.Duration)) {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	pw.onFsync = callback
	if pw.groupCommit != nil {
		pw.groupCommit.OnFsync = callback
	}
}

// SetNextRid sets the last-assigned rid (e.g. after recovery).
// The next write will use nextRid+1; typically call with the max replayed
// rid so the next write uses max+1.
func (pw *PartitionWAL) SetNextRid(nextRid uint64) {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	pw.rid = nextRid
}

// PartitionCheckpointManager manages checkpoints for a single partition.
type PartitionCheckpointManager struct {
	mu                  sync.Mutex
	partitionID         int
	checkpointPath      string
	intervalBytes       uint64
	autoCreate          bool
	maxCheckpoints      int
	logger              *logger.Logger
	lastRid             uint64
	checkpointCount     int
	walSizeAtCheckpoint uint64
}

// NewPartitionCheckpointManager creates a new partition checkpoint manager.
func NewPartitionCheckpointManager(partitionID int, cfg config.CheckpointConfig, log *logger.Logger) *PartitionCheckpointManager {
	return &PartitionCheckpointManager{
		partitionID:         partitionID,
		checkpointPath:      "", // Will be set when checkpoint directory is known
		intervalBytes:       cfg.IntervalMB * 1024 * 1024,
		autoCreate:          cfg.AutoCreate,
		maxCheckpoints:      cfg.MaxCheckpoints,
		logger:              log,
		walSizeAtCheckpoint: 0,
	}
}

// SetCheckpointPath sets the checkpoint directory path.
func (pcm *PartitionCheckpointManager) SetCheckpointPath(checkpointDir string) {
	pcm.mu.Lock()
	defer pcm.mu.Unlock()
	pcm.checkpointPath = filepath.Join(checkpointDir, fmt.Sprintf("p%d.chk", pcm.partitionID))
}

// ShouldCreateCheckpoint returns true if a checkpoint should be created.
func (pcm *PartitionCheckpointManager) ShouldCreateCheckpoint(currentWALSize uint64) bool {
	pcm.mu.Lock()
	defer pcm.mu.Unlock()

	if !pcm.autoCreate || pcm.intervalBytes == 0 {
		return false
	}

	if pcm.walSizeAtCheckpoint == 0 {
		return currentWALSize >= pcm.intervalBytes
	}

	sizeSinceLastCheckpoint := currentWALSize - pcm.walSizeAtCheckpoint
	return sizeSinceLastCheckpoint >= pcm.intervalBytes
}

// WriteCheckpoint writes a checkpoint for this partition.
func (pcm *PartitionCheckpointManager) WriteCheckpoint(rid uint64, walSize uint64) error {
	pcm.mu.Lock()
	defer pcm.mu.Unlock()

	if pcm.checkpointPath == "" {
		return fmt.Errorf("checkpoint path not set")
	}

	// Write checkpoint file (simplified - full implementation would write structured data)
	// Format: Rid (8 bytes) | WALSize (8 bytes)
	data := make([]byte, 16)
	binary.LittleEndian.PutUint64(data[0:], rid)
	binary.LittleEndian.PutUint64(data[8:], walSize)

	if err := os.WriteFile(pcm.checkpointPath, data, 0644); err != nil {
		return err
	}

	pcm.lastRid = rid
	pcm.walSizeAtCheckpoint = walSize
	pcm.checkpointCount++

	pcm.logger.Debug("Partition checkpoint written: partition=%d, rid=%d, wal_size=%d", pcm.partitionID, rid, walSize)
	return nil
}

// GetLastRid returns the last checkpointed rid.
func (pcm *PartitionCheckpointManager) GetLastRid() uint64 {
	pcm.mu.Lock()
	defer pcm.mu.Unlock()

	if pcm.checkpointPath == "" {
		return 0
	}

	// Read checkpoint file
	data, err := os.ReadFile(pcm.checkpointPath)
	if err != nil {
		return 0
	}

	if len(data) < 8 {
		return 0
	}

	return binary.LittleEndian.Uint64(data[0:])
}
