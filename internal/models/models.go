package models

// TransactionKind classifies a transaction once at decode time.
type TransactionKind int

const (
	KindOther TransactionKind = iota
	KindLeaseOpen
	KindLeaseCancel
)

// Wire type ids used by Waves-family node APIs.
const (
	TypeTransfer    = 4
	TypeLeaseOpen   = 8
	TypeLeaseCancel = 9
)

// Transaction represents a single transaction as returned by the node.
// Only the fields relevant to lease reconstruction and fee accounting
// are decoded; everything else is dropped at ingestion.
type Transaction struct {
	Type      int    `json:"type"`
	ID        string `json:"id"`
	Fee       int64  `json:"fee"`
	FeeAsset  string `json:"feeAsset,omitempty"`
	Sender    string `json:"sender,omitempty"`
	Recipient string `json:"recipient,omitempty"`
	Amount    int64  `json:"amount,omitempty"`
	LeaseID   string `json:"leaseId,omitempty"`
}

// Kind maps the wire type id to the tagged kind used downstream.
func (t Transaction) Kind() TransactionKind {
	switch t.Type {
	case TypeLeaseOpen:
		return KindLeaseOpen
	case TypeLeaseCancel:
		return KindLeaseCancel
	default:
		return KindOther
	}
}

// HasBaseFeeAsset reports whether the fee is paid in the network's base
// asset. The node encodes this as a missing, empty, or null feeAsset.
func (t Transaction) HasBaseFeeAsset() bool {
	return t.FeeAsset == ""
}

// Block represents a blockchain block as returned by the node.
type Block struct {
	Height       uint64        `json:"height"`
	Generator    string        `json:"generator"`
	Transactions []Transaction `json:"transactions"`
}

// BlockSummary is the cached form of a block: the computed fee pool,
// the previous block's fee pool, and the retained transaction list.
// Summaries are immutable once written.
type BlockSummary struct {
	Height          uint64        `json:"height"`
	Generator       string        `json:"generator"`
	FeePool         int64         `json:"feePool"`
	PreviousFeePool int64         `json:"previousFeePool"`
	Transactions    []Transaction `json:"transactions"`
}

// Lease is a reconstructed lease-open directed at the beneficiary,
// identified by its originating transaction id.
type Lease struct {
	ID         string
	Sender     string
	Amount     int64
	OpenHeight uint64
}

// PaymentInstruction is one outgoing transfer record in the format the
// downstream mass-payment tool consumes.
type PaymentInstruction struct {
	Amount     int64  `json:"amount"`
	Fee        int64  `json:"fee"`
	Sender     string `json:"sender"`
	Attachment string `json:"attachment"`
	Recipient  string `json:"recipient"`
}
