//go:build debug

package wal

import "fmt"

// checkLSNMonotonic verifies LSN strictly increases per partition.
// Panics if newLSN != prevLSN+1.
func checkLSNMonotonic(prevLSN, newLSN uint64) {
	if newLSN != prevLSN+1 {
		panic(fmt.Sprintf("wal invariant: LSN not monotonic prev=%d new=%d", prevLSN, newLSN))
	}
}

// checkGenAscending verifies replay generations are consolidated in
// strictly increasing order. Panics otherwise.
func checkGenAscending(prevGen, gen uint64, hasPrev bool) {
	if hasPrev && gen <= prevGen {
		panic(fmt.Sprintf("wal invariant: replay generations not strictly ascending prev=%d gen=%d", prevGen, gen))
	}
}

// checkSeqnoNonOverlapping verifies two adjacent consolidated generations
// have non-overlapping seqno intervals. Panics if curMax >= nextMin.
func checkSeqnoNonOverlapping(curMax, nextMin uint64) {
	if curMax >= nextMin {
		panic(fmt.Sprintf("wal invariant: generation seqno intervals overlap cur_max=%d next_min=%d", curMax, nextMin))
	}
}

// checkRidOrder verifies a replay generation's apply pass visits rids in
// strictly increasing order. Panics if newRid <= prevRid.
func checkRidOrder(prevRid, newRid uint64, hasPrev bool) {
	if hasPrev && newRid <= prevRid {
		panic(fmt.Sprintf("wal invariant: apply visiting rid out of order prev=%d new=%d", prevRid, newRid))
	}
}

// checkCommitSeqnoInRange verifies a transaction's commit seqno falls
// within its assigned target generation's seqno bounds. Panics otherwise.
func checkCommitSeqnoInRange(commitSeqno, genMin, genMax uint64) {
	if commitSeqno < genMin || commitSeqno > genMax {
		panic(fmt.Sprintf("wal invariant: commit seqno %d outside target gen bounds [%d,%d]", commitSeqno, genMin, genMax))
	}
}
