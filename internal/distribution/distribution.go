// Package distribution splits each beneficiary-forged block's smoothed
// fee pool and fixed token emission proportionally among the lessors
// holding matured active leases at that block.
package distribution

import (
	"github.com/tn-tools/leasepay/internal/ledger"
	"github.com/tn-tools/leasepay/internal/models"
)

// Engine accumulates per-address fee and token shares across blocks.
// The accumulators are owned by the engine; a fresh engine is created
// per run and finalized exactly once.
type Engine struct {
	ledger        *ledger.Ledger
	tokenPerBlock float64
	feePercentage float64

	feeShare   map[string]float64
	tokenShare map[string]float64
}

// NewEngine returns an engine over the given ledger. feePercentage is
// the 0-100 share of the smoothed fee pool that is paid out rather than
// retained; tokenPerBlock is the fixed emission per forged block in
// display units.
func NewEngine(l *ledger.Ledger, tokenPerBlock, feePercentage float64) *Engine {
	return &Engine{
		ledger:        l,
		tokenPerBlock: tokenPerBlock,
		feePercentage: feePercentage,
		feeShare:      make(map[string]float64),
		tokenShare:    make(map[string]float64),
	}
}

// ActiveLeasesAt returns the matured active leased amount per lessor
// address at the given block, and the overall total. A lease counts iff
// it is uncancelled or cancelled strictly above the block's height
// (cancellation takes effect from its own height onward), and it has
// matured: height > openHeight + MaturityBlocks.
func (e *Engine) ActiveLeasesAt(block models.BlockSummary) (map[string]int64, int64) {
	active := make(map[string]int64)
	var total int64
	for id, lease := range e.ledger.Leases {
		if cancelHeight, cancelled := e.ledger.Cancellations[id]; cancelled && cancelHeight <= block.Height {
			continue
		}
		if block.Height <= lease.OpenHeight+ledger.MaturityBlocks {
			continue
		}
		active[lease.Sender] += lease.Amount
		total += lease.Amount
	}
	return active, total
}

// SmoothedFee blends the block's fee pool with the previous block's,
// weighted 40/60, for heights at or above the lease reset point. Below
// it the pool is used unsmoothed (historical compatibility; such blocks
// fall outside the normal distribution window).
func SmoothedFee(block models.BlockSummary) float64 {
	if block.Height >= ledger.FirstHeightWithLeases {
		return float64(block.FeePool)*0.4 + float64(block.PreviousFeePool)*0.6
	}
	return float64(block.FeePool)
}

// Distribute credits every lessor with its proportional slice of the
// block's smoothed fee pool and of the fixed token emission. A block
// with no matured active leases is a no-op.
func (e *Engine) Distribute(active map[string]int64, total int64, block models.BlockSummary) {
	if total == 0 {
		return
	}
	fee := SmoothedFee(block)
	for address, amount := range active {
		share := float64(amount) / float64(total)
		e.feeShare[address] += fee * share * (e.feePercentage / 100)
		e.tokenShare[address] += share * e.tokenPerBlock
	}
}

// FeeShares returns the per-address fee accumulator in minimal units.
func (e *Engine) FeeShares() map[string]float64 {
	return e.feeShare
}

// TokenShares returns the per-address token accumulator in display units.
func (e *Engine) TokenShares() map[string]float64 {
	return e.tokenShare
}
