//go:build !debug

package wal

func checkLSNMonotonic(prevLSN, newLSN uint64) {
	_ = prevLSN
	_ = newLSN
}

func checkGenAscending(prevGen, gen uint64, hasPrev bool) {
	_ = prevGen
	_ = gen
	_ = hasPrev
}

func checkSeqnoNonOverlapping(curMax, nextMin uint64) {
	_ = curMax
	_ = nextMin
}

func checkRidOrder(prevRid, newRid uint64, hasPrev bool) {
	_ = prevRid
	_ = newRid
	_ = hasPrev
}

func checkCommitSeqnoInRange(commitSeqno, genMin, genMax uint64) {
	_ = commitSeqno
	_ = genMin
	_ = genMax
}
