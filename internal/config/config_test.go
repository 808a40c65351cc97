package config

import "testing"

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.DataDir == "" {
		t.Fatal("DefaultConfig: DataDir must not be empty")
	}
	if cfg.Memory.GlobalCapacityMB == 0 || cfg.Memory.PerDBLimitMB == 0 {
		t.Fatal("DefaultConfig: memory limits must be nonzero")
	}
	if cfg.WAL.Replay.CleanShutdown || cfg.WAL.Replay.ReadOnly {
		t.Fatal("DefaultConfig: replay should default to a full recovery pass")
	}
	if cfg.WAL.Replay.DurableSeqno != 0 || cfg.WAL.Replay.TxHorizon != 0 {
		t.Fatal("DefaultConfig: replay watermarks should default to zero")
	}
}
