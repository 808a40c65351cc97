package wal

import (
	"encoding/binary"
	"hash/crc32"
)

var byteOrder = binary.LittleEndian

// MaxPayloadSize bounds a single key or value: the on-disk key_len/
// value_len fields are uint32, but this caps it well below that to keep a
// single bad record from forcing a huge allocation during validation.
const MaxPayloadSize = 16 * 1024 * 1024

// EncodeReplayRecord encodes a live mutation record (4.A): a fixed header,
// a header CRC for cheap framing validation, then key/value payload
// 8-byte aligned, then a payload CRC. Writer and PartitionWAL call this
// directly, so every record the live write path appends is the same byte
// layout the replay engine validates and unpacks.
func EncodeReplayRecord(rt RecType, rid, gen, txid, seqno, cnid uint64, key, value []byte) ([]byte, error) {
	if len(key) > MaxPayloadSize || len(value) > MaxPayloadSize {
		return nil, ErrPayloadTooLarge
	}

	keyPad := align8(len(key))
	valPad := align8(len(value))
	totalLen := replayFixedOverhead + keyPad + valPad
	buf := make([]byte, totalLen)

	off := 0
	byteOrder.PutUint64(buf[off:], uint64(totalLen))
	off += replayTotalLenSize
	buf[off] = byte(rt)
	off += replayTypeSize
	byteOrder.PutUint64(buf[off:], rid)
	off += replayRidSize
	byteOrder.PutUint64(buf[off:], gen)
	off += replayGenSize
	byteOrder.PutUint64(buf[off:], txid)
	off += replayTxIDSize
	byteOrder.PutUint64(buf[off:], seqno)
	off += replaySeqnoSize
	byteOrder.PutUint64(buf[off:], cnid)
	off += replayCnidSize
	byteOrder.PutUint64(buf[off:], 0) // aux unused for mutation records
	off += replayAuxSize
	byteOrder.PutUint32(buf[off:], uint32(len(key)))
	off += replayKeyLenSize
	byteOrder.PutUint32(buf[off:], uint32(len(value)))
	off += replayValueLenSize

	headerCRC := crc32.ChecksumIEEE(buf[:off])
	byteOrder.PutUint32(buf[off:], headerCRC)
	off += replayHeaderCRCSize

	payloadStart := off
	copy(buf[off:], key)
	off += keyPad
	copy(buf[off:], value)
	off += valPad

	payloadCRC := crc32.ChecksumIEEE(buf[payloadStart:off])
	byteOrder.PutUint32(buf[off:], payloadCRC)

	return buf, nil
}

// EncodeCommitRecord encodes a transaction commit record (4.A / 6).
func EncodeCommitRecord(rid, gen, txid, commitSeqno, finalRid uint64) ([]byte, error) {
	buf := make([]byte, replayFixedOverhead)

	off := 0
	byteOrder.PutUint64(buf[off:], uint64(replayFixedOverhead))
	off += replayTotalLenSize
	buf[off] = byte(RecTxCommit)
	off += replayTypeSize
	byteOrder.PutUint64(buf[off:], rid)
	off += replayRidSize
	byteOrder.PutUint64(buf[off:], gen)
	off += replayGenSize
	byteOrder.PutUint64(buf[off:], txid)
	off += replayTxIDSize
	byteOrder.PutUint64(buf[off:], commitSeqno)
	off += replaySeqnoSize
	byteOrder.PutUint64(buf[off:], 0) // cnid unused
	off += replayCnidSize
	byteOrder.PutUint64(buf[off:], finalRid)
	off += replayAuxSize
	byteOrder.PutUint32(buf[off:], 0) // key_len unused
	off += replayKeyLenSize
	byteOrder.PutUint32(buf[off:], 0) // value_len unused
	off += replayValueLenSize

	headerCRC := crc32.ChecksumIEEE(buf[:off])
	byteOrder.PutUint32(buf[off:], headerCRC)
	off += replayHeaderCRCSize

	// No payload; payload CRC is over zero bytes.
	payloadCRC := crc32.ChecksumIEEE(nil)
	byteOrder.PutUint32(buf[off:], payloadCRC)

	return buf, nil
}

// EncodeMetaRecord encodes a skip, tx-begin, tx-abort, or end-of-record-
// group marker: header only, no payload.
func EncodeMetaRecord(rt RecType, rid, gen, txid uint64) ([]byte, error) {
	buf := make([]byte, replayFixedOverhead)

	off := 0
	byteOrder.PutUint64(buf[off:], uint64(replayFixedOverhead))
	off += replayTotalLenSize
	buf[off] = byte(rt)
	off += replayTypeSize
	byteOrder.PutUint64(buf[off:], rid)
	off += replayRidSize
	byteOrder.PutUint64(buf[off:], gen)
	off += replayGenSize
	byteOrder.PutUint64(buf[off:], txid)
	off += replayTxIDSize
	byteOrder.PutUint64(buf[off:], 0) // seqno unused
	off += replaySeqnoSize
	byteOrder.PutUint64(buf[off:], 0) // cnid unused
	off += replayCnidSize
	byteOrder.PutUint64(buf[off:], 0) // aux unused
	off += replayAuxSize
	byteOrder.PutUint32(buf[off:], 0)
	off += replayKeyLenSize
	byteOrder.PutUint32(buf[off:], 0)
	off += replayValueLenSize

	headerCRC := crc32.ChecksumIEEE(buf[:off])
	byteOrder.PutUint32(buf[off:], headerCRC)
	off += replayHeaderCRCSize

	payloadCRC := crc32.ChecksumIEEE(nil)
	byteOrder.PutUint32(buf[off:], payloadCRC)

	return buf, nil
}

// RecLenTotal reads the declared total length of the record starting at
// buf[0]. ok is false if buf is too short to even hold the length field.
func RecLenTotal(buf []byte) (length uint64, ok bool) {
	if len(buf) < replayTotalLenSize {
		return 0, false
	}
	return byteOrder.Uint64(buf[:replayTotalLenSize]), true
}

func recType(buf []byte) RecType {
	return RecType(buf[replayTotalLenSize])
}

// IsSkip reports whether the record at buf[0] is padding.
func IsSkip(buf []byte) bool {
	return len(buf) > replayTotalLenSize && recType(buf) == RecSkip
}

// IsTxMeta reports whether the record at buf[0] is a tx-meta record (begin,
// commit, abort) or the end-of-record-group marker. These, along with skip
// records, are consumed silently by the iterator (4.B).
func IsTxMeta(buf []byte) bool {
	if len(buf) <= replayTotalLenSize {
		return false
	}
	switch recType(buf) {
	case RecTxBegin, RecTxCommit, RecTxAbort, RecEndOfRecordGroup:
		return true
	default:
		return false
	}
}

// IsTxCommit reports whether the record at buf[0] is a transaction commit
// record.
func IsTxCommit(buf []byte) bool {
	return len(buf) > replayTotalLenSize && recType(buf) == RecTxCommit
}

// IsValid validates the record starting at buf[off] (4.A). It checks: (i)
// enough remaining bytes for a header, (ii) declared total length fits
// within the file, (iii) header CRC, (iv) payload CRC, and folds
// seqno/gen/txid into minmax if provided. It returns false without
// touching endOfRecordGroup when the record is torn (caller must not
// distinguish a torn tail from "not yet decided" any other way); it
// returns true and sets endOfRecordGroup when the record is a legitimate
// RecEndOfRecordGroup marker.
func IsValid(buf []byte, off int64, minmax *MinMaxInfo) (valid bool, nextOff int64, endOfRecordGroup bool) {
	fileSize := int64(len(buf))
	remaining := fileSize - off
	if remaining < replayHeaderSize+replayHeaderCRCSize {
		return false, off, false
	}

	rec := buf[off:]
	totalLen, ok := RecLenTotal(rec)
	if !ok {
		return false, off, false
	}
	if totalLen < uint64(replayFixedOverhead) || int64(totalLen) > remaining {
		return false, off, false
	}

	recBuf := rec[:totalLen]

	headerCRCOff := replayHeaderSize
	storedHeaderCRC := byteOrder.Uint32(recBuf[headerCRCOff:])
	computedHeaderCRC := crc32.ChecksumIEEE(recBuf[:headerCRCOff])
	if storedHeaderCRC != computedHeaderCRC {
		return false, off, false
	}

	payloadStart := headerCRCOff + replayHeaderCRCSize
	payloadEnd := len(recBuf) - replayPayloadCRCSize
	if payloadEnd < payloadStart {
		return false, off, false
	}
	storedPayloadCRC := byteOrder.Uint32(recBuf[payloadEnd:])
	computedPayloadCRC := crc32.ChecksumIEEE(recBuf[payloadStart:payloadEnd])
	if storedPayloadCRC != computedPayloadCRC {
		return false, off, false
	}

	if minmax != nil {
		rt := RecType(recBuf[replayTotalLenSize])
		gen := byteOrder.Uint64(recBuf[9+replayRidSize:])
		txid := byteOrder.Uint64(recBuf[9+replayRidSize+replayGenSize:])
		seqno := byteOrder.Uint64(recBuf[9+replayRidSize+replayGenSize+replayTxIDSize:])
		switch rt {
		case RecMutation, RecTxMutation, RecTxCommit:
			minmax.observe(seqno, gen, txid)
		}
	}

	eorg := recType(recBuf) == RecEndOfRecordGroup
	return true, off + int64(totalLen), eorg
}

// Unpack decodes a mutation or tx-mutation record into a Record. Caller
// must have already validated the record with IsValid.
func Unpack(buf []byte) *Record {
	off := replayTotalLenSize
	rt := RecType(buf[off])
	off += replayTypeSize
	rid := byteOrder.Uint64(buf[off:])
	off += replayRidSize
	gen := byteOrder.Uint64(buf[off:])
	off += replayGenSize
	txid := byteOrder.Uint64(buf[off:])
	off += replayTxIDSize
	seqno := byteOrder.Uint64(buf[off:])
	off += replaySeqnoSize
	cnid := byteOrder.Uint64(buf[off:])
	off += replayCnidSize
	off += replayAuxSize // unused for mutations
	keyLen := byteOrder.Uint32(buf[off:])
	off += replayKeyLenSize
	valLen := byteOrder.Uint32(buf[off:])
	off += replayValueLenSize
	off += replayHeaderCRCSize

	key := buf[off : off+int(keyLen)]
	off += align8(int(keyLen))
	var value []byte
	op := OpPut
	if valLen == 0 {
		op = OpDel
	} else {
		value = buf[off : off+int(valLen)]
	}

	return &Record{
		Type:  rt,
		Rid:   rid,
		Gen:   gen,
		TxID:  txid,
		Seqno: seqno,
		Cnid:  cnid,
		Op:    op,
		Key:   key,
		Value: value,
	}
}

// UnpackCommit decodes a tx-commit record into a CommitDescriptor.
// TargetGen is left as UnsetMinMax; it is filled in by the transaction
// index merge (4.E).
func UnpackCommit(buf []byte) *CommitDescriptor {
	off := replayTotalLenSize + replayTypeSize
	rid := byteOrder.Uint64(buf[off:]) // the commit record's own rid; unused beyond framing
	_ = rid
	off += replayRidSize
	gen := byteOrder.Uint64(buf[off:])
	off += replayGenSize
	txid := byteOrder.Uint64(buf[off:])
	off += replayTxIDSize
	commitSeqno := byteOrder.Uint64(buf[off:])
	off += replaySeqnoSize
	off += replayCnidSize // unused for commit records
	finalRid := byteOrder.Uint64(buf[off:])

	return &CommitDescriptor{
		TxID:        txid,
		CommitSeqno: commitSeqno,
		FinalRid:    finalRid,
		WriterGen:   gen,
		TargetGen:   UnsetMinMax,
	}
}
