package domain

// AccountProfile is one row per account: counts, sums and means of the
// account's bills and typed transfers, plus the combined totals. Zero values
// mean "no activity observed", which is distinct from an account missing
// from the snapshot entirely.
type AccountProfile struct {
	AccountID string

	NumBills        int
	NumRecurring    int
	TotalBillAmount float64
	AvgBillAmount   float64

	NumTransfersSent   int
	TotalTransfersSent float64
	AvgTransferSent    float64

	NumTransfersReceived   int
	TotalTransfersReceived float64
	AvgTransferReceived    float64

	NumDeposits   int
	TotalDeposits float64
	AvgDeposit    float64

	NumWithdrawals   int
	TotalWithdrawals float64
	AvgWithdrawal    float64

	TotalP2PCount          int
	TotalP2PVolume         float64
	TotalTransactionsCount int
	TotalTransactionVolume float64

	// nil when the account has no withdrawals; never coerced to zero.
	DepositWithdrawalRatio *float64
}

// ComputeDerived fills the combined totals and the deposit/withdrawal ratio
// from the per-kind metrics already present on the profile.
func (p *AccountProfile) ComputeDerived() {
	p.TotalP2PCount = p.NumTransfersSent + p.NumTransfersReceived
	p.TotalP2PVolume = p.TotalTransfersSent + p.TotalTransfersReceived
	p.TotalTransactionsCount = p.TotalP2PCount + p.NumDeposits + p.NumWithdrawals + p.NumBills
	p.TotalTransactionVolume = p.TotalP2PVolume + p.TotalDeposits + p.TotalWithdrawals + p.TotalBillAmount
	p.DepositWithdrawalRatio = Ratio(p.TotalDeposits, p.TotalWithdrawals)
}

// CustomerProfile is one row per customer: the sum of the customer's account
// profiles plus identity and geography carried from the customer record.
type CustomerProfile struct {
	CustomerID string
	FirstName  string
	LastName   string
	Zip        string
	City       string
	State      string

	NumAccounts int
	Balance     float64
	Rewards     float64

	NumBills        int
	NumRecurring    int
	TotalBillAmount float64

	NumTransfersSent       int
	TotalTransfersSent     float64
	NumTransfersReceived   int
	TotalTransfersReceived float64

	NumDeposits      int
	TotalDeposits    float64
	NumWithdrawals   int
	TotalWithdrawals float64

	TotalP2PCount          int
	TotalP2PVolume         float64
	TotalTransactionsCount int
	TotalTransactionVolume float64

	// Recomputed from the summed totals; nil when withdrawals are zero.
	DepositWithdrawalRatio *float64
}

// GeoProfile is one row per (zip, city, state). Intensity metrics (balance,
// rewards, ratio) are means across the geography's customers; volume and
// count metrics are sums. Count metrics are float64 here: after IQR capping
// they can land on fractional fence values.
type GeoProfile struct {
	Zip   string
	City  string
	State string

	Balance float64
	Rewards float64

	NumBills     float64
	NumRecurring float64

	NumTransfersSent       float64
	TotalTransfersSent     float64
	NumTransfersReceived   float64
	TotalTransfersReceived float64

	NumDeposits      float64
	TotalDeposits    float64
	NumWithdrawals   float64
	TotalWithdrawals float64

	TotalP2PCount          float64
	TotalP2PVolume         float64
	TotalTransactionsCount float64
	TotalTransactionVolume float64

	// Mean of the customer ratios that were defined; nil when every customer
	// in the geography had zero withdrawals.
	DepositWithdrawalRatio *float64

	// Cluster label attached by the cluster engine; -1 until assigned.
	Cluster int
}

// Ratio returns deposits/withdrawals, or nil when withdrawals is not
// strictly positive. The nil must survive downstream aggregation: a missing
// ratio is excluded from means, never treated as zero.
func Ratio(deposits, withdrawals float64) *float64 {
	if withdrawals <= 0 {
		return nil
	}
	r := deposits / withdrawals
	return &r
}
