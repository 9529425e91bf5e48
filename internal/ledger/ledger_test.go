package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tn-tools/leasepay/internal/models"
)

const (
	nodeAddr   = "3JnodeAddressAAAAAAAAAAAAAAAAAAAAA"
	lessorAddr = "3JlessorAddressBBBBBBBBBBBBBBBBBBB"
)

func testBeneficiary() Beneficiary {
	return Beneficiary{Address: nodeAddr, Alias: "mynode", ChainID: "L"}
}

func TestMatchesRecipient(t *testing.T) {
	b := testBeneficiary()

	cases := []struct {
		name      string
		recipient string
		want      bool
	}{
		{name: "raw address", recipient: nodeAddr, want: true},
		{name: "address prefixed", recipient: "address:" + nodeAddr, want: true},
		{name: "alias prefixed", recipient: "alias:L:mynode", want: true},
		{name: "other address", recipient: lessorAddr, want: false},
		{name: "other alias", recipient: "alias:L:othernode", want: false},
		{name: "alias on wrong chain", recipient: "alias:W:mynode", want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, b.MatchesRecipient(tc.recipient))
		})
	}
}

func TestMatchesRecipientEmptyAlias(t *testing.T) {
	b := Beneficiary{Address: nodeAddr, ChainID: "L"}
	assert.False(t, b.MatchesRecipient("alias:L:"))
}

func TestFeePool(t *testing.T) {
	cases := []struct {
		name  string
		block models.Block
		want  int64
	}{
		{
			name: "base asset fees summed",
			block: models.Block{Height: 150000, Transactions: []models.Transaction{
				{Type: models.TypeTransfer, Fee: 100_000},
				{Type: models.TypeTransfer, Fee: 200_000},
			}},
			want: 300_000,
		},
		{
			name: "anomalous fee above ceiling skipped",
			block: models.Block{Height: 150000, Transactions: []models.Transaction{
				{Type: models.TypeTransfer, Fee: 10 * 100_000_000},
				{Type: models.TypeTransfer, Fee: 100_000},
			}},
			want: 100_000,
		},
		{
			name: "sponsored transfer uses fallback fee",
			block: models.Block{Height: 150000, Transactions: []models.Transaction{
				{Type: models.TypeTransfer, Fee: 12345, FeeAsset: "AbCdAsset"},
			}},
			want: 2_000_000,
		},
		{
			name: "sponsored transfer below activation height ignored",
			block: models.Block{Height: 99999, Transactions: []models.Transaction{
				{Type: models.TypeTransfer, Fee: 12345, FeeAsset: "AbCdAsset"},
			}},
			want: 0,
		},
		{
			name: "sponsored fee on non-transfer ignored",
			block: models.Block{Height: 150000, Transactions: []models.Transaction{
				{Type: models.TypeLeaseOpen, Fee: 12345, FeeAsset: "AbCdAsset"},
			}},
			want: 0,
		},
		{
			name:  "empty block",
			block: models.Block{Height: 150000},
			want:  0,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FeePool(tc.block))
		})
	}
}

func TestSummarizeRetention(t *testing.T) {
	txs := []models.Transaction{
		{Type: models.TypeTransfer, ID: "t1", Fee: 100_000},
		{Type: models.TypeLeaseOpen, ID: "l1", Fee: 100_000, Recipient: nodeAddr, Amount: 500},
		{Type: models.TypeLeaseCancel, ID: "c1", Fee: 100_000, LeaseID: "l1"},
	}

	// Below the start height only lease transactions survive, but the
	// fee pool still covers the full list.
	sum := Summarize(models.Block{Height: 150000, Transactions: txs}, 42, 160000)
	require.Len(t, sum.Transactions, 2)
	assert.Equal(t, "l1", sum.Transactions[0].ID)
	assert.Equal(t, "c1", sum.Transactions[1].ID)
	assert.Equal(t, int64(300_000), sum.FeePool)
	assert.Equal(t, int64(42), sum.PreviousFeePool)

	// At or above the start height everything is retained.
	sum = Summarize(models.Block{Height: 160000, Transactions: txs}, 0, 160000)
	assert.Len(t, sum.Transactions, 3)
}

func TestRebuild(t *testing.T) {
	led := New(testBeneficiary())
	led.Rebuild([]models.BlockSummary{
		{Height: 150000, Generator: lessorAddr, Transactions: []models.Transaction{
			{Type: models.TypeLeaseOpen, ID: "lease-1", Sender: lessorAddr, Recipient: nodeAddr, Amount: 1000},
			{Type: models.TypeLeaseOpen, ID: "lease-other", Sender: lessorAddr, Recipient: "someone-else", Amount: 1000},
		}},
		{Height: 150001, Generator: nodeAddr, Transactions: []models.Transaction{
			{Type: models.TypeLeaseOpen, ID: "lease-2", Sender: lessorAddr, Recipient: "alias:L:mynode", Amount: 2000},
		}},
		{Height: 150002, Generator: nodeAddr, Transactions: []models.Transaction{
			{Type: models.TypeLeaseCancel, ID: "cancel-1", LeaseID: "lease-1"},
		}},
	})

	require.Len(t, led.Leases, 2)
	assert.Equal(t, uint64(150000), led.Leases["lease-1"].OpenHeight)
	assert.Equal(t, int64(2000), led.Leases["lease-2"].Amount)
	assert.NotContains(t, led.Leases, "lease-other")

	require.Len(t, led.ForgedBlocks, 2)
	assert.Equal(t, uint64(150001), led.ForgedBlocks[0].Height)
	assert.Equal(t, uint64(150002), led.ForgedBlocks[1].Height)

	require.Len(t, led.Cancellations, 1)
	assert.Equal(t, uint64(150002), led.Cancellations["lease-1"])
}

func TestRebuildUnmatchedCancelIgnored(t *testing.T) {
	led := New(testBeneficiary())
	led.Rebuild([]models.BlockSummary{
		{Height: 150000, Transactions: []models.Transaction{
			{Type: models.TypeLeaseCancel, ID: "cancel-x", LeaseID: "never-opened"},
		}},
	})
	assert.Empty(t, led.Cancellations)
	assert.Empty(t, led.Leases)
}

func TestRebuildFirstCancelWins(t *testing.T) {
	led := New(testBeneficiary())
	led.Rebuild([]models.BlockSummary{
		{Height: 150000, Transactions: []models.Transaction{
			{Type: models.TypeLeaseOpen, ID: "lease-1", Sender: lessorAddr, Recipient: nodeAddr, Amount: 1000},
		}},
		{Height: 150001, Transactions: []models.Transaction{
			{Type: models.TypeLeaseCancel, ID: "cancel-1", LeaseID: "lease-1"},
		}},
		{Height: 150002, Transactions: []models.Transaction{
			{Type: models.TypeLeaseCancel, ID: "cancel-2", LeaseID: "lease-1"},
		}},
	})
	assert.Equal(t, uint64(150001), led.Cancellations["lease-1"])
}
