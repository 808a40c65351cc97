package wal

// Iterator walks the live records of one validated WAL file (4.B). It
// silently consumes skip records, tx-begin/abort markers and the
// end-of-record-group marker; resolves every transaction mutation
// against the global commit index, substituting the commit's seqno and
// target generation and asserting rid never exceeds the commit's final
// rid; and drops anything that didn't durably commit. A plain mutation
// observed after the end-of-record-group marker is itself a corruption
// signal — only transaction fragments may straggle past that point
// (the tail of a group-commit batch interrupted mid-flush).
type Iterator struct {
	buf       []byte
	off       int64
	endOff    int64
	txIndex   *TxIndex
	ctx       *ReplayContext
	afterEORG bool
}

// NewIterator constructs an iterator over buf[0:endOff]. endOff is the
// validated ending offset from the file's FileGroupInfo, never the raw
// file size (4.C already excluded any torn tail).
func NewIterator(buf []byte, endOff int64, txIndex *TxIndex, ctx *ReplayContext) *Iterator {
	return &Iterator{buf: buf, endOff: endOff, txIndex: txIndex, ctx: ctx}
}

// Next returns the next live record, or (nil, nil) at end of file.
func (it *Iterator) Next() (*Record, error) {
	for {
		if it.off >= it.endOff {
			return nil, nil
		}

		valid, next, eorg := IsValid(it.buf, it.off, nil)
		if !valid {
			return nil, ErrCorruption
		}
		rec := it.buf[it.off:next]
		it.off = next

		if eorg {
			it.afterEORG = true
			continue
		}
		if IsSkip(rec) || IsTxMeta(rec) {
			continue
		}

		out := Unpack(rec)

		switch {
		case out.Type == RecTxMutation:
			cd, ok := it.txIndex.Lookup(out.TxID)
			if !ok {
				// Never committed, or its commit record was itself torn
				// off the tail: the mutation did not durably happen.
				continue
			}
			if out.Rid > cd.FinalRid {
				return nil, ErrBugAssertion
			}
			out.Seqno = cd.CommitSeqno
			out.Gen = cd.TargetGen
		case it.afterEORG:
			return nil, ErrCorruption
		}

		if it.ctx != nil {
			if out.Seqno <= it.ctx.DurableSeqno {
				continue
			}
			size := uint64(len(out.Key) + len(out.Value))
			if !it.ctx.ReserveBudget(size) {
				return nil, ErrOutOfMemory
			}
		}

		return out, nil
	}
}
