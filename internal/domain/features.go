package domain

// Feature column names for the geography table. These are also the exact
// clustering feature set, in a fixed order so feature vectors line up with
// fitted scaler parameters and centroids.
const (
	FeatureBalance                = "balance"
	FeatureRewards                = "rewards"
	FeatureNumBills               = "num_bills"
	FeatureNumRecurring           = "num_recurring"
	FeatureNumTransfersSent       = "num_transfers_sent"
	FeatureTotalTransfersSent     = "total_transfers_sent"
	FeatureNumTransfersReceived   = "num_transfers_received"
	FeatureTotalTransfersReceived = "total_transfers_received"
	FeatureNumDeposits            = "num_deposits"
	FeatureTotalDeposits          = "total_deposits"
	FeatureNumWithdrawals         = "num_withdrawals"
	FeatureTotalWithdrawals       = "total_withdrawals"
	FeatureTotalP2PCount          = "total_p2p_count"
	FeatureTotalP2PVolume         = "total_p2p_volume"
	FeatureTotalTxCount           = "total_transactions_count"
	FeatureTotalTxVolume          = "total_transaction_volume"
	FeatureDepositWithdrawalRatio = "deposit_withdrawal_ratio"
)

// FeatureNames lists every clustering feature in canonical order.
var FeatureNames = []string{
	FeatureBalance,
	FeatureRewards,
	FeatureNumBills,
	FeatureNumRecurring,
	FeatureNumTransfersSent,
	FeatureTotalTransfersSent,
	FeatureNumTransfersReceived,
	FeatureTotalTransfersReceived,
	FeatureNumDeposits,
	FeatureTotalDeposits,
	FeatureNumWithdrawals,
	FeatureTotalWithdrawals,
	FeatureTotalP2PCount,
	FeatureTotalP2PVolume,
	FeatureTotalTxCount,
	FeatureTotalTxVolume,
	FeatureDepositWithdrawalRatio,
}

// FeatureRef returns a pointer to the named feature's storage on g, so
// callers can both read and clamp in place. It returns nil when the feature
// is null for this row (only deposit_withdrawal_ratio can be) or when the
// name is not a feature column.
func (g *GeoProfile) FeatureRef(name string) *float64 {
	switch name {
	case FeatureBalance:
		return &g.Balance
	case FeatureRewards:
		return &g.Rewards
	case FeatureNumBills:
		return &g.NumBills
	case FeatureNumRecurring:
		return &g.NumRecurring
	case FeatureNumTransfersSent:
		return &g.NumTransfersSent
	case FeatureTotalTransfersSent:
		return &g.TotalTransfersSent
	case FeatureNumTransfersReceived:
		return &g.NumTransfersReceived
	case FeatureTotalTransfersReceived:
		return &g.TotalTransfersReceived
	case FeatureNumDeposits:
		return &g.NumDeposits
	case FeatureTotalDeposits:
		return &g.TotalDeposits
	case FeatureNumWithdrawals:
		return &g.NumWithdrawals
	case FeatureTotalWithdrawals:
		return &g.TotalWithdrawals
	case FeatureTotalP2PCount:
		return &g.TotalP2PCount
	case FeatureTotalP2PVolume:
		return &g.TotalP2PVolume
	case FeatureTotalTxCount:
		return &g.TotalTransactionsCount
	case FeatureTotalTxVolume:
		return &g.TotalTransactionVolume
	case FeatureDepositWithdrawalRatio:
		return g.DepositWithdrawalRatio
	}
	return nil
}

// FeatureVector flattens the profile into the canonical feature order. Null
// ratios become 0 here and only here: the output table keeps them null, but
// a distance computation needs a number.
func (g *GeoProfile) FeatureVector() []float64 {
	vec := make([]float64, len(FeatureNames))
	for i, name := range FeatureNames {
		if ref := g.FeatureRef(name); ref != nil {
			vec[i] = *ref
		}
	}
	return vec
}
