package scan

import (
	"sync/atomic"

	"github.com/sirgallo/ordinex/internal/page"
)


//============================================= Parallel-Scan Shared State


// ParallelClaim is the single shared `curr: atomic-u32` word workers CAS to hand off
// leaves. The host allocates the backing uint32 in whatever shared memory its worker
// processes (or goroutines) both see and passes the same *ParallelClaim to BeginScan
// for every worker scanning the same index concurrently.
//
// Value semantics:
//   0             - uninitialised; the first worker to observe it seeds the scan.
//   InvalidBlock  - scan is done; further claimers get none.
//   otherwise     - the block id of the next leaf to be claimed.
type ParallelClaim struct {
	curr *uint32
}

// NewParallelClaim wraps a caller-owned shared word. Pass a freshly zeroed *uint32 to
// start a new parallel scan.
func NewParallelClaim(shared *uint32) *ParallelClaim {
	return &ParallelClaim{curr: shared}
}

// Reset implements parallel_rescan: resets curr back to 0 so the next round of workers
// reseeds the starting leaf from the (possibly new) scan bounds.
func (p *ParallelClaim) Reset() { atomic.StoreUint32(p.curr, 0) }

// Claim executes one iteration of the claim protocol and returns the leaf block
// this caller now exclusively owns, or ok=false when the scan is complete.
func (p *ParallelClaim) Claim(s *Scan) (uint32, bool, error) {
	for {
		v := atomic.LoadUint32(p.curr)

		if v == page.InvalidBlock { return 0, false, nil }

		if v == 0 {
			var target []byte
			hasTarget := s.b.hasLower
			if hasTarget { target = s.b.lower }

			start, err := s.descendTo(target, hasTarget, s.b.lowerStrict, false)
			if err != nil { return 0, false, err }

			if start == page.InvalidBlock {
				atomic.CompareAndSwapUint32(p.curr, v, page.InvalidBlock)
				return 0, false, nil
			}

			next, err := p.rightLinkOf(s, start)
			if err != nil { return 0, false, err }

			if atomic.CompareAndSwapUint32(p.curr, 0, next) { return start, true, nil }
			continue
		}

		next, err := p.rightLinkOf(s, v)
		if err != nil { return 0, false, err }

		if atomic.CompareAndSwapUint32(p.curr, v, next) { return v, true, nil }
	}
}

func (p *ParallelClaim) rightLinkOf(s *Scan, block uint32) (uint32, error) {
	raw, err := s.pf.Page(block)
	if err != nil { return 0, err }

	op := page.ReadOpaque(raw)
	if op.RightLink == page.InvalidBlock { return page.InvalidBlock, nil }
	return op.RightLink, nil
}
