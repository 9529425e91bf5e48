// Package ledger rebuilds the lease bookkeeping for one beneficiary from
// an ordered block sequence: which leases were opened toward it, when
// they were cancelled, which blocks it forged, and each block's fee pool.
package ledger

import (
	"github.com/tn-tools/leasepay/internal/models"
)

const (
	// FirstHeightWithLeases is the height at which lease bookkeeping was
	// last reset on chain; nothing before it is relevant.
	FirstHeightWithLeases uint64 = 149634

	// MaturityBlocks is the number of blocks a lease must stay open
	// before it counts toward distribution.
	MaturityBlocks uint64 = 1000

	// baseFeeCeiling guards the fee pool against anomalous fee values;
	// base-asset fees at or above it are not credited.
	baseFeeCeiling int64 = 10 * 100_000_000

	// Transfers paying their fee in a sponsored asset above this height
	// credit a flat fallback amount instead of the literal fee field,
	// which is denominated in the sponsor asset.
	sponsoredFeeMinHeight uint64 = 100000
	sponsoredTransferFee  int64  = 2_000_000
)

// Beneficiary identifies the node address the leases are directed at.
// ChainID is the network byte used in alias encodings (e.g. "L").
type Beneficiary struct {
	Address string
	Alias   string
	ChainID string
}

// MatchesRecipient reports whether a lease-open recipient field resolves
// to the beneficiary. The chain's transaction encoding is not
// normalized, so the raw address, the "address:"-prefixed form, and the
// alias form all occur in historical blocks.
func (b Beneficiary) MatchesRecipient(recipient string) bool {
	if recipient == b.Address || recipient == "address:"+b.Address {
		return true
	}
	return b.Alias != "" && recipient == "alias:"+b.ChainID+":"+b.Alias
}

// FeePool computes the fee total attributable to one block. Base-asset
// fees are credited as-is below the ceiling; sponsored transfer fees
// above the activation height are credited at the flat fallback rate.
func FeePool(block models.Block) int64 {
	var pool int64
	for _, tx := range block.Transactions {
		if tx.HasBaseFeeAsset() {
			if tx.Fee < baseFeeCeiling {
				pool += tx.Fee
			}
		} else if block.Height > sponsoredFeeMinHeight && tx.Type == models.TypeTransfer {
			pool += sponsoredTransferFee
		}
	}
	return pool
}

// Summarize converts a fetched block into its cached summary form. The
// fee pool is computed from the full transaction list before retention
// filtering: below startHeight only lease open/cancel transactions are
// kept (lease reconstruction needs them back to the reset height), at or
// after it the whole list is kept.
func Summarize(block models.Block, previousFeePool int64, startHeight uint64) models.BlockSummary {
	txs := block.Transactions
	if block.Height < startHeight {
		txs = nil
		for _, tx := range block.Transactions {
			if tx.Kind() != models.KindOther {
				txs = append(txs, tx)
			}
		}
	}
	return models.BlockSummary{
		Height:          block.Height,
		Generator:       block.Generator,
		FeePool:         FeePool(block),
		PreviousFeePool: previousFeePool,
		Transactions:    txs,
	}
}

// Ledger holds the reconstructed lease state for one beneficiary.
type Ledger struct {
	Beneficiary Beneficiary

	// Leases maps lease-open transaction id to the reconstructed lease.
	Leases map[string]models.Lease

	// Cancellations maps lease id to the height of the first valid
	// cancel referencing it.
	Cancellations map[string]uint64

	// ForgedBlocks are the summaries generated by the beneficiary, in
	// ascending height order.
	ForgedBlocks []models.BlockSummary
}

// New returns an empty ledger for the given beneficiary.
func New(b Beneficiary) *Ledger {
	return &Ledger{
		Beneficiary:   b,
		Leases:        make(map[string]models.Lease),
		Cancellations: make(map[string]uint64),
	}
}

// Rebuild runs the single forward pass over summaries in height order.
// A cancel only registers if its lease-open was already recorded; early
// cancels referencing unknown leases are ignored.
func (l *Ledger) Rebuild(summaries []models.BlockSummary) {
	for _, blk := range summaries {
		if blk.Generator == l.Beneficiary.Address {
			l.ForgedBlocks = append(l.ForgedBlocks, blk)
		}
		for _, tx := range blk.Transactions {
			switch tx.Kind() {
			case models.KindLeaseOpen:
				if l.Beneficiary.MatchesRecipient(tx.Recipient) {
					l.Leases[tx.ID] = models.Lease{
						ID:         tx.ID,
						Sender:     tx.Sender,
						Amount:     tx.Amount,
						OpenHeight: blk.Height,
					}
				}
			case models.KindLeaseCancel:
				if _, ok := l.Leases[tx.LeaseID]; !ok {
					continue
				}
				if _, seen := l.Cancellations[tx.LeaseID]; !seen {
					l.Cancellations[tx.LeaseID] = blk.Height
				}
			}
		}
	}
}
