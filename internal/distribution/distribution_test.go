package distribution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tn-tools/leasepay/internal/ledger"
	"github.com/tn-tools/leasepay/internal/models"
)

const (
	nodeAddr = "3JnodeAddressAAAAAAAAAAAAAAAAAAAAA"
	lessorA  = "3JlessorA"
	lessorB  = "3JlessorB"
)

func ledgerWith(leases []models.Lease, cancellations map[string]uint64) *ledger.Ledger {
	l := ledger.New(ledger.Beneficiary{Address: nodeAddr, ChainID: "L"})
	for _, lease := range leases {
		l.Leases[lease.ID] = lease
	}
	for id, h := range cancellations {
		l.Cancellations[id] = h
	}
	return l
}

func TestActiveLeasesMaturityBoundary(t *testing.T) {
	openHeight := uint64(150000)
	l := ledgerWith([]models.Lease{
		{ID: "lease-1", Sender: lessorA, Amount: 1000, OpenHeight: openHeight},
	}, nil)
	e := NewEngine(l, 10, 90)

	// Excluded exactly at openHeight + maturity, included one block later.
	_, total := e.ActiveLeasesAt(models.BlockSummary{Height: openHeight + ledger.MaturityBlocks})
	assert.Zero(t, total)

	active, total := e.ActiveLeasesAt(models.BlockSummary{Height: openHeight + ledger.MaturityBlocks + 1})
	assert.Equal(t, int64(1000), total)
	assert.Equal(t, int64(1000), active[lessorA])
}

func TestActiveLeasesCancellationBoundary(t *testing.T) {
	cancelHeight := uint64(160000)
	l := ledgerWith([]models.Lease{
		{ID: "lease-1", Sender: lessorA, Amount: 1000, OpenHeight: 150000},
	}, map[string]uint64{"lease-1": cancelHeight})
	e := NewEngine(l, 10, 90)

	// Still active the block before the cancel, gone from the cancel on.
	_, total := e.ActiveLeasesAt(models.BlockSummary{Height: cancelHeight - 1})
	assert.Equal(t, int64(1000), total)

	_, total = e.ActiveLeasesAt(models.BlockSummary{Height: cancelHeight})
	assert.Zero(t, total)

	_, total = e.ActiveLeasesAt(models.BlockSummary{Height: cancelHeight + 5})
	assert.Zero(t, total)
}

func TestActiveLeasesSumsPerSender(t *testing.T) {
	l := ledgerWith([]models.Lease{
		{ID: "lease-1", Sender: lessorA, Amount: 1000, OpenHeight: 150000},
		{ID: "lease-2", Sender: lessorA, Amount: 500, OpenHeight: 150000},
		{ID: "lease-3", Sender: lessorB, Amount: 2500, OpenHeight: 150000},
	}, nil)
	e := NewEngine(l, 10, 90)

	active, total := e.ActiveLeasesAt(models.BlockSummary{Height: 152000})
	assert.Equal(t, int64(4000), total)
	assert.Equal(t, int64(1500), active[lessorA])
	assert.Equal(t, int64(2500), active[lessorB])
}

func TestSmoothedFee(t *testing.T) {
	cases := []struct {
		name  string
		block models.BlockSummary
		want  float64
	}{
		{
			name:  "blended above reset height",
			block: models.BlockSummary{Height: ledger.FirstHeightWithLeases, FeePool: 1_000_000, PreviousFeePool: 500_000},
			want:  700_000,
		},
		{
			name:  "unsmoothed below reset height",
			block: models.BlockSummary{Height: ledger.FirstHeightWithLeases - 1, FeePool: 1_000_000, PreviousFeePool: 500_000},
			want:  1_000_000,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, SmoothedFee(tc.block), 1e-9)
		})
	}
}

func TestDistributeConservation(t *testing.T) {
	l := ledgerWith(nil, nil)
	e := NewEngine(l, 10, 90)

	active := map[string]int64{lessorA: 3000, lessorB: 1000}
	block := models.BlockSummary{Height: 160000, FeePool: 1_000_000, PreviousFeePool: 500_000}
	e.Distribute(active, 4000, block)

	// Fee increments sum to smoothedFee * 90%.
	var feeSum float64
	for _, v := range e.FeeShares() {
		feeSum += v
	}
	assert.InDelta(t, 700_000*0.9, feeSum, 1e-6)

	// Token increments sum to exactly the per-block emission.
	var tokenSum float64
	for _, v := range e.TokenShares() {
		tokenSum += v
	}
	assert.InDelta(t, 10, tokenSum, 1e-9)

	// Proportionality: lessorA holds 75% of the active amount.
	assert.InDelta(t, 700_000*0.9*0.75, e.FeeShares()[lessorA], 1e-6)
	assert.InDelta(t, 7.5, e.TokenShares()[lessorA], 1e-9)
}

func TestDistributeZeroActiveIsNoop(t *testing.T) {
	e := NewEngine(ledgerWith(nil, nil), 10, 90)

	require.NotPanics(t, func() {
		e.Distribute(map[string]int64{}, 0, models.BlockSummary{Height: 160000, FeePool: 1_000_000})
	})
	assert.Empty(t, e.FeeShares())
	assert.Empty(t, e.TokenShares())
}

func TestDistributeAccumulatesAcrossBlocks(t *testing.T) {
	e := NewEngine(ledgerWith(nil, nil), 10, 100)

	active := map[string]int64{lessorA: 1000}
	blk := models.BlockSummary{Height: 160000, FeePool: 100, PreviousFeePool: 100}
	e.Distribute(active, 1000, blk)
	e.Distribute(active, 1000, blk)

	assert.InDelta(t, 200, e.FeeShares()[lessorA], 1e-9)
	assert.InDelta(t, 20, e.TokenShares()[lessorA], 1e-9)
}
