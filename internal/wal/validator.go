package wal

// ValidateFile runs one file group's first pass (4.C): walk records front
// to back with IsValid, classifying a broken record as either a torn tail
// (legal only at the very end of the one file open at crash time) or
// corruption (broken mid-file, or a torn-looking tail in any other
// file), extract commit records into a local per-file map keyed by txid,
// and fold every mutation's (seqno, gen, txid) into the file's min/max
// accumulator. Commits below txHorizon are dropped immediately; they can
// never be referenced by a live mutation.
//
// A duplicate txid observed twice within the same file is always fatal:
// a transaction's commit record is written exactly once by its writer.
func ValidateFile(info *FileGroupInfo, buf []byte, txHorizon uint64) error {
	info.MinMax = NewMinMaxInfo()
	var off int64

	for {
		remaining := int64(len(buf)) - off
		if remaining <= 0 {
			info.EndOff = off
			return nil
		}

		valid, next, eorg := IsValid(buf, off, &info.MinMax)
		if !valid {
			if !info.Last {
				return ErrCorruption
			}
			if remaining >= replayFixedOverhead && !isAllZero(buf[off:]) {
				info.Torn = true
			}
			info.EndOff = off
			return nil
		}

		rec := buf[off:next]
		off = next

		if eorg {
			continue
		}
		if IsTxCommit(rec) {
			cd := UnpackCommit(rec)
			if cd.TxID < txHorizon && txHorizon != SentinelHorizon {
				continue
			}
			if _, dup := info.Commits[cd.TxID]; dup {
				return ErrConflict
			}
			info.Commits[cd.TxID] = cd
		}
	}
}

func isAllZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
