package domain

// Snapshot record types as pulled from the enterprise API. These are
// immutable inputs; every downstream table is derived from them.

// Transfer type tags as they appear in the source data. Anything else is
// counted as unclassified and excluded from the typed aggregates.
const (
	TransferTypeDeposit    = "deposit"
	TransferTypeWithdrawal = "withdrawal"
	TransferTypeP2P        = "p2p"
)

// BillStatusRecurring marks bills on a recurring schedule.
const BillStatusRecurring = "recurring"

// Account is a bank account snapshot row.
type Account struct {
	ID         string
	CustomerID string
	Balance    float64
	Rewards    float64
}

// Customer is a customer identity row with its mailing geography.
type Customer struct {
	ID        string
	FirstName string
	LastName  string
	Zip       string
	City      string
	State     string
}

// Bill is a single bill attached to an account.
type Bill struct {
	ID            string
	AccountID     string
	PaymentAmount float64
	Status        string
}

// Transfer is one money-movement event. PayerID is the source side
// (withdrawals, p2p), PayeeID the destination side (deposits, p2p).
type Transfer struct {
	ID      string
	Type    string
	Amount  float64
	PayerID string
	PayeeID string
}

// Snapshot bundles one complete pull of the source collections.
type Snapshot struct {
	Accounts  []Account
	Customers []Customer
	Bills     []Bill
	Transfers []Transfer
}
