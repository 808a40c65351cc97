package wal

import (
	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/errgroup"
)

// FileWork is one file group's input to the concurrent driver (4.G): its
// first-pass result struct (filled in by ValidateFile) paired with its
// memory-mapped contents.
type FileWork struct {
	Info *FileGroupInfo
	Buf  []byte
}

// RunDriver executes the concurrent phase of replay (4.G). One worker
// runs per file group, via a pool sized to the file-group count so every
// worker can make progress independently:
//
//  1. first pass (4.C) over its own file;
//  2. busy-wait at a barrier until every file's first pass is done, or a
//     sticky error has been latched by any worker;
//  3. the one worker that wins the atomic leader election runs
//     consolidation (4.D) and the transaction-index merge (4.E),
//     single-threaded, while every other worker busy-waits at a second
//     barrier;
//  4. every worker resumes and iterates its own file's live records
//     (4.B), inserting each into the generation tree (4.F) its resolved
//     gen names, dropping anything at or below the durable watermark.
func RunDriver(ctx *ReplayContext, groups []*FileWork) error {
	if len(groups) == 0 {
		return nil
	}

	pool, err := ants.NewPool(len(groups), ants.WithPreAlloc(true))
	if err != nil {
		ctx.SetFirstError(ErrBugAssertion)
		return ctx.FirstError()
	}
	defer pool.Release()

	// errgroup supervises one lightweight goroutine per file group and
	// aggregates pool-submission failures; the ants pool is what actually
	// bounds concurrent execution to len(groups), per 4.G.
	var eg errgroup.Group
	for _, fw := range groups {
		fw := fw
		eg.Go(func() error {
			done := make(chan struct{})
			submitErr := pool.Submit(func() {
				defer close(done)
				runFileWorker(ctx, fw, groups)
			})
			if submitErr != nil {
				return submitErr
			}
			<-done
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		ctx.SetFirstError(ErrBugAssertion)
	}

	return ctx.FirstError()
}

func runFileWorker(ctx *ReplayContext, self *FileWork, groups []*FileWork) {
	if err := ValidateFile(self.Info, self.Buf, ctx.TxHorizon); err != nil {
		ctx.SetFirstError(err)
	}
	ctx.MarkValidatorDone()

	if err := ctx.WaitValidators(); err != nil {
		return
	}

	if ctx.TryElectLeader() {
		runLeaderConsolidation(ctx, groups)
		ctx.MarkConsolidateDone()
	}

	if err := ctx.WaitConsolidate(); err != nil {
		return
	}

	it := NewIterator(self.Buf, self.Info.EndOff, ctx.TxIndex, ctx)
	for {
		rec, err := it.Next()
		if err != nil {
			ctx.SetFirstError(err)
			return
		}
		if rec == nil {
			return
		}
		gen := ctx.GenFor(rec.Gen)
		if gen == nil {
			ctx.SetFirstError(ErrBugAssertion)
			return
		}
		if err := gen.Insert(rec); err != nil {
			ctx.SetFirstError(err)
			return
		}
	}
}

func runLeaderConsolidation(ctx *ReplayContext, groups []*FileWork) {
	infos := make([]*FileGroupInfo, 0, len(groups))
	for _, g := range groups {
		infos = append(infos, g.Info)
		if err := ctx.TxIndex.MergeFile(g.Info.Commits); err != nil {
			ctx.SetFirstError(err)
			return
		}
	}

	gens := ConsolidateFiles(infos)
	for _, g := range gens {
		ctx.AddGen(g)
	}

	if err := ctx.TxIndex.AssignTargetGens(gens); err != nil {
		ctx.SetFirstError(err)
	}
}
