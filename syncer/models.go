package syncer

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is used for checkpoints, cache keys and the aggregator wire format.
const DateLayout = "2006-01-02"

// LinkedAccount pairs a ledger account with the aggregator account it imports from.
type LinkedAccount struct {
	LedgerAccountID     string
	LedgerAccountName   string
	LedgerAccountType   string
	AggregatorAccountID string
	AccessToken         string
	ItemID              string
	InstitutionID       string
	BankName            string
	Mask                string
	LastImport          *time.Time
}

// RawTransaction is a transaction as the aggregator reports it. Amount is positive for money
// leaving the account.
type RawTransaction struct {
	AccountID     string
	TransactionID string
	Date          time.Time
	Amount        decimal.Decimal
	MerchantName  string
	Name          string
	Pending       bool
}

// LedgerTransaction is ready for import. Amount is in minor units, positive for money coming in.
// ImportedID is the ledger's deduplication key.
type LedgerTransaction struct {
	AccountID     string
	Date          time.Time
	Amount        int64
	PayeeName     string
	ImportedPayee string
	Notes         string
	ImportedID    string
	Cleared       bool
}

type LedgerAccount struct {
	ID   string
	Name string
	Type string
}

type ImportResult struct {
	Added      int
	Duplicates int
}

// CheckpointKey is the store path of an account's last import date.
func CheckpointKey(ledgerAccountID string) string {
	return "links." + ledgerAccountID + ".lastImport"
}
