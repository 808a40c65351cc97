package config

type Config struct {
	DataDir string

	Memory MemoryConfig
	WAL    WALConfig
}

type MemoryConfig struct {
	GlobalCapacityMB uint64
	PerDBLimitMB     uint64
	BufferSizes      []uint64
}

type FsyncMode int

const (
	FsyncAlways   FsyncMode = iota // Sync on every write (safest, slowest)
	FsyncGroup                     // Batch syncs with group commit (recommended)
	FsyncInterval                  // Sync at fixed intervals
	FsyncNone                      // Never sync (for benchmarks only, unsafe)
)

type FsyncConfig struct {
	Mode         FsyncMode // Sync strategy: always | group | interval | none
	IntervalMS   int       // Milliseconds for interval mode (default: 1ms)
	MaxBatchSize int       // Max records per group commit batch (default: 100)
}

type WALConfig struct {
	Dir                 string
	MaxFileSizeMB       uint64
	Checkpoint          CheckpointConfig
	TrimAfterCheckpoint bool // Automatically trim WAL segments after checkpoint
	KeepSegments        int  // Number of segments to keep before checkpoint
	Fsync               FsyncConfig
	Replay              ReplayConfig
}

type CheckpointConfig struct {
	IntervalMB     uint64 // Create checkpoint every X MB
	AutoCreate     bool   // Automatically create checkpoints
	MaxCheckpoints int    // Maximum checkpoints to keep (0 = unlimited)
}

// ReplayConfig carries the replay-time inputs the coordinator (4.H) needs
// at database open: the durability watermark and transaction horizon
// recorded by the last checkpoint, and the two flags that short-circuit
// replay entirely.
type ReplayConfig struct {
	// DurableSeqno is the highest seqno already absorbed into the on-disk
	// index as of the last checkpoint; replayed mutations at or below it
	// are skipped.
	DurableSeqno uint64
	// TxHorizon is the lowest txid whose commit descriptors still matter;
	// wal.SentinelHorizon (0) means "no horizon, keep everything".
	TxHorizon uint64
	// CleanShutdown, when true, skips replay entirely: the coordinator
	// trusts the metadata log's own bookkeeping of the last committed
	// generation.
	CleanShutdown bool
	// ReadOnly, when true, skips replay: the database was opened for
	// inspection only and must not mutate on-disk state.
	ReadOnly bool
}

func DefaultConfig() *Config {
	return &Config{
		DataDir: "./data",
		Memory: MemoryConfig{
			GlobalCapacityMB: 1024,
			PerDBLimitMB:     256,
			BufferSizes:      []uint64{1024, 4096, 16384, 65536, 262144},
		},
		WAL: WALConfig{
			Dir:                 "./data/wal",
			MaxFileSizeMB:       64,
			TrimAfterCheckpoint: true,
			KeepSegments:        2,
			Checkpoint: CheckpointConfig{
				IntervalMB:     64,
				AutoCreate:     true,
				MaxCheckpoints: 0,
			},
			Fsync: FsyncConfig{
				Mode:         FsyncGroup,
				IntervalMS:   1,
				MaxBatchSize: 100,
			},
			Replay: ReplayConfig{
				DurableSeqno:  0,
				TxHorizon:     0,
				CleanShutdown: false,
				ReadOnly:      false,
			},
		},
	}
}
