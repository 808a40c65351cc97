package wal

import "sort"

// ConsolidateFiles merges every file group's first-pass result into an
// ordered list of replay generations (4.D). Only the elected leader runs
// this, single-threaded, once every validator has finished: files are
// sorted gen ascending then file-id ascending, their min/max
// accumulators are folded per gen, and adjacent generations' seqno
// bounds are normalized so that an empty generation (one with no live
// mutations of its own) or one whose recorded minimum collides with the
// previous generation's maximum is lifted to start just past it. This
// guarantees the generations the transaction index (4.E) later searches
// by seqno form a strictly ascending, non-overlapping partition.
func ConsolidateFiles(infos []*FileGroupInfo) []*ReplayGen {
	sorted := make([]*FileGroupInfo, len(infos))
	copy(sorted, infos)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Gen != sorted[j].Gen {
			return sorted[i].Gen < sorted[j].Gen
		}
		return sorted[i].FileID < sorted[j].FileID
	})

	byGen := make(map[uint64]*MinMaxInfo)
	var genOrder []uint64
	for _, info := range sorted {
		mm, ok := byGen[info.Gen]
		if !ok {
			fresh := NewMinMaxInfo()
			mm = &fresh
			byGen[info.Gen] = mm
			genOrder = append(genOrder, info.Gen)
		}
		foldMinMax(mm, &info.MinMax)
	}
	sort.Slice(genOrder, func(i, j int) bool { return genOrder[i] < genOrder[j] })

	gens := make([]*ReplayGen, 0, len(genOrder))
	for _, gen := range genOrder {
		mm := byGen[gen]
		gens = append(gens, NewReplayGen(gen, mm.MinSeqno, mm.MaxSeqno))
	}

	var hasPrev bool
	var prevGen uint64
	for _, g := range gens {
		checkGenAscending(prevGen, g.Gen, hasPrev)
		prevGen, hasPrev = g.Gen, true
	}

	for i := 1; i < len(gens); i++ {
		cur, next := gens[i-1], gens[i]
		if next.MinSeqno == UnsetMinMax || next.MinSeqno <= cur.MaxSeqno {
			next.MinSeqno = cur.MaxSeqno + 1
			if next.MaxSeqno < next.MinSeqno {
				next.MaxSeqno = next.MinSeqno
			}
		}
		checkSeqnoNonOverlapping(cur.MaxSeqno, next.MinSeqno)
	}

	return gens
}

func foldMinMax(acc *MinMaxInfo, in *MinMaxInfo) {
	if in.MinSeqno != UnsetMinMax && (acc.MinSeqno == UnsetMinMax || in.MinSeqno < acc.MinSeqno) {
		acc.MinSeqno = in.MinSeqno
	}
	if in.MaxSeqno > acc.MaxSeqno {
		acc.MaxSeqno = in.MaxSeqno
	}
	if in.MinGen != UnsetMinMax && (acc.MinGen == UnsetMinMax || in.MinGen < acc.MinGen) {
		acc.MinGen = in.MinGen
	}
	if in.MaxGen > acc.MaxGen {
		acc.MaxGen = in.MaxGen
	}
	if in.MinTxID != UnsetMinMax && (acc.MinTxID == UnsetMinMax || in.MinTxID < acc.MinTxID) {
		acc.MinTxID = in.MinTxID
	}
	if in.MaxTxID > acc.MaxTxID {
		acc.MaxTxID = in.MaxTxID
	}
}
