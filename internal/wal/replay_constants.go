package wal

// Replay record header layout (little-endian throughout, 4.A / 6):
//
//	off 0  total_len    uint64
//	off 8  type         byte
//	off 9  rid          uint64
//	off 17 gen          uint64
//	off 25 txid         uint64  (0 for non-tx)
//	off 33 seqno        uint64  (0 for tx mutations; commit-seqno for commit records)
//	off 41 cnid         uint64
//	off 49 aux          uint64  (final rid, commit records only; 0 otherwise)
//	off 57 key_len      uint32
//	off 61 value_len    uint32
//	off 65 header_crc   uint32  (CRC-32 over bytes [0:65))
//	off 69 payload: key bytes (8-byte aligned), then value bytes (8-byte aligned)
//	...    payload_crc  uint32  (CRC-32 over the payload bytes only; last 4 bytes of the record)
const (
	replayTotalLenSize = 8
	replayTypeSize     = 1
	replayRidSize      = 8
	replayGenSize      = 8
	replayTxIDSize     = 8
	replaySeqnoSize    = 8
	replayCnidSize     = 8
	replayAuxSize      = 8
	replayKeyLenSize   = 4
	replayValueLenSize = 4
	replayHeaderCRCSize  = 4
	replayPayloadCRCSize = 4

	replayHeaderSize = replayTotalLenSize + replayTypeSize + replayRidSize + replayGenSize +
		replayTxIDSize + replaySeqnoSize + replayCnidSize + replayAuxSize +
		replayKeyLenSize + replayValueLenSize

	// replayFixedOverhead is the smallest possible record: header, header
	// CRC and payload CRC, with no key/value payload (skip and tx-meta
	// records).
	replayFixedOverhead = replayHeaderSize + replayHeaderCRCSize + replayPayloadCRCSize
)

// align8 rounds n up to the next multiple of 8.
func align8(n int) int {
	return (n + 7) &^ 7
}
