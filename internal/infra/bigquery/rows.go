package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/banking-insights/internal/cluster"
	"github.com/dvloznov/banking-insights/internal/domain"
)

// GeoSegmentRow is one geography row of the segmentation output table.
type GeoSegmentRow struct {
	RunID string `bigquery:"run_id"` // REQUIRED

	Zip   string `bigquery:"zip"`
	City  string `bigquery:"city"`
	State string `bigquery:"state"`

	Balance float64 `bigquery:"balance"`
	Rewards float64 `bigquery:"rewards"`

	NumBills     float64 `bigquery:"num_bills"`
	NumRecurring float64 `bigquery:"num_recurring"`

	NumTransfersSent       float64 `bigquery:"num_transfers_sent"`
	TotalTransfersSent     float64 `bigquery:"total_transfers_sent"`
	NumTransfersReceived   float64 `bigquery:"num_transfers_received"`
	TotalTransfersReceived float64 `bigquery:"total_transfers_received"`

	NumDeposits      float64 `bigquery:"num_deposits"`
	TotalDeposits    float64 `bigquery:"total_deposits"`
	NumWithdrawals   float64 `bigquery:"num_withdrawals"`
	TotalWithdrawals float64 `bigquery:"total_withdrawals"`

	TotalP2PCount          float64 `bigquery:"total_p2p_count"`
	TotalP2PVolume         float64 `bigquery:"total_p2p_volume"`
	TotalTransactionsCount float64 `bigquery:"total_transactions_count"`
	TotalTransactionVolume float64 `bigquery:"total_transaction_volume"`

	// NULL when every customer in the geography had zero withdrawals.
	DepositWithdrawalRatio bigquery.NullFloat64 `bigquery:"deposit_withdrawal_ratio"`

	Cluster int64 `bigquery:"cluster"`

	CreatedTS time.Time `bigquery:"created_ts"`
}

// NewGeoSegmentRow maps a labeled geography profile into its output row.
func NewGeoSegmentRow(runID string, g *domain.GeoProfile, now time.Time) *GeoSegmentRow {
	row := &GeoSegmentRow{
		RunID: runID,

		Zip:   g.Zip,
		City:  g.City,
		State: g.State,

		Balance: g.Balance,
		Rewards: g.Rewards,

		NumBills:     g.NumBills,
		NumRecurring: g.NumRecurring,

		NumTransfersSent:       g.NumTransfersSent,
		TotalTransfersSent:     g.TotalTransfersSent,
		NumTransfersReceived:   g.NumTransfersReceived,
		TotalTransfersReceived: g.TotalTransfersReceived,

		NumDeposits:      g.NumDeposits,
		TotalDeposits:    g.TotalDeposits,
		NumWithdrawals:   g.NumWithdrawals,
		TotalWithdrawals: g.TotalWithdrawals,

		TotalP2PCount:          g.TotalP2PCount,
		TotalP2PVolume:         g.TotalP2PVolume,
		TotalTransactionsCount: g.TotalTransactionsCount,
		TotalTransactionVolume: g.TotalTransactionVolume,

		Cluster:   int64(g.Cluster),
		CreatedTS: now,
	}
	if g.DepositWithdrawalRatio != nil {
		row.DepositWithdrawalRatio = bigquery.NullFloat64{Float64: *g.DepositWithdrawalRatio, Valid: true}
	}
	return row
}

// ClusterSummaryRow is one cluster row of the companion summary table.
// Mean columns carry the per-cluster feature means on unscaled capped
// values.
type ClusterSummaryRow struct {
	RunID string `bigquery:"run_id"` // REQUIRED

	Cluster int64 `bigquery:"cluster"`
	Count   int64 `bigquery:"count"`

	MeanBalance bigquery.NullFloat64 `bigquery:"mean_balance"`
	MeanRewards bigquery.NullFloat64 `bigquery:"mean_rewards"`

	MeanNumBills     bigquery.NullFloat64 `bigquery:"mean_num_bills"`
	MeanNumRecurring bigquery.NullFloat64 `bigquery:"mean_num_recurring"`

	MeanNumTransfersSent       bigquery.NullFloat64 `bigquery:"mean_num_transfers_sent"`
	MeanTotalTransfersSent     bigquery.NullFloat64 `bigquery:"mean_total_transfers_sent"`
	MeanNumTransfersReceived   bigquery.NullFloat64 `bigquery:"mean_num_transfers_received"`
	MeanTotalTransfersReceived bigquery.NullFloat64 `bigquery:"mean_total_transfers_received"`

	MeanNumDeposits      bigquery.NullFloat64 `bigquery:"mean_num_deposits"`
	MeanTotalDeposits    bigquery.NullFloat64 `bigquery:"mean_total_deposits"`
	MeanNumWithdrawals   bigquery.NullFloat64 `bigquery:"mean_num_withdrawals"`
	MeanTotalWithdrawals bigquery.NullFloat64 `bigquery:"mean_total_withdrawals"`

	MeanTotalP2PCount          bigquery.NullFloat64 `bigquery:"mean_total_p2p_count"`
	MeanTotalP2PVolume         bigquery.NullFloat64 `bigquery:"mean_total_p2p_volume"`
	MeanTotalTransactionsCount bigquery.NullFloat64 `bigquery:"mean_total_transactions_count"`
	MeanTotalTransactionVolume bigquery.NullFloat64 `bigquery:"mean_total_transaction_volume"`

	MeanDepositWithdrawalRatio bigquery.NullFloat64 `bigquery:"mean_deposit_withdrawal_ratio"`

	CreatedTS time.Time `bigquery:"created_ts"`
}

// NewClusterSummaryRow maps one cluster summary into its output row.
func NewClusterSummaryRow(runID string, s cluster.Summary, now time.Time) *ClusterSummaryRow {
	mean := func(feature string) bigquery.NullFloat64 {
		if v, ok := s.FeatureMeans[feature]; ok {
			return bigquery.NullFloat64{Float64: v, Valid: true}
		}
		return bigquery.NullFloat64{}
	}

	return &ClusterSummaryRow{
		RunID: runID,

		Cluster: int64(s.Cluster),
		Count:   int64(s.Count),

		MeanBalance: mean(domain.FeatureBalance),
		MeanRewards: mean(domain.FeatureRewards),

		MeanNumBills:     mean(domain.FeatureNumBills),
		MeanNumRecurring: mean(domain.FeatureNumRecurring),

		MeanNumTransfersSent:       mean(domain.FeatureNumTransfersSent),
		MeanTotalTransfersSent:     mean(domain.FeatureTotalTransfersSent),
		MeanNumTransfersReceived:   mean(domain.FeatureNumTransfersReceived),
		MeanTotalTransfersReceived: mean(domain.FeatureTotalTransfersReceived),

		MeanNumDeposits:      mean(domain.FeatureNumDeposits),
		MeanTotalDeposits:    mean(domain.FeatureTotalDeposits),
		MeanNumWithdrawals:   mean(domain.FeatureNumWithdrawals),
		MeanTotalWithdrawals: mean(domain.FeatureTotalWithdrawals),

		MeanTotalP2PCount:          mean(domain.FeatureTotalP2PCount),
		MeanTotalP2PVolume:         mean(domain.FeatureTotalP2PVolume),
		MeanTotalTransactionsCount: mean(domain.FeatureTotalTxCount),
		MeanTotalTransactionVolume: mean(domain.FeatureTotalTxVolume),

		MeanDepositWithdrawalRatio: mean(domain.FeatureDepositWithdrawalRatio),

		CreatedTS: now,
	}
}

// FeatureMeanMap converts the mean columns back to the map form used in
// memory. NULL columns are left out, matching how the map was built.
func (r *ClusterSummaryRow) FeatureMeanMap() map[string]float64 {
	means := make(map[string]float64, len(domain.FeatureNames))
	put := func(feature string, v bigquery.NullFloat64) {
		if v.Valid {
			means[feature] = v.Float64
		}
	}

	put(domain.FeatureBalance, r.MeanBalance)
	put(domain.FeatureRewards, r.MeanRewards)
	put(domain.FeatureNumBills, r.MeanNumBills)
	put(domain.FeatureNumRecurring, r.MeanNumRecurring)
	put(domain.FeatureNumTransfersSent, r.MeanNumTransfersSent)
	put(domain.FeatureTotalTransfersSent, r.MeanTotalTransfersSent)
	put(domain.FeatureNumTransfersReceived, r.MeanNumTransfersReceived)
	put(domain.FeatureTotalTransfersReceived, r.MeanTotalTransfersReceived)
	put(domain.FeatureNumDeposits, r.MeanNumDeposits)
	put(domain.FeatureTotalDeposits, r.MeanTotalDeposits)
	put(domain.FeatureNumWithdrawals, r.MeanNumWithdrawals)
	put(domain.FeatureTotalWithdrawals, r.MeanTotalWithdrawals)
	put(domain.FeatureTotalP2PCount, r.MeanTotalP2PCount)
	put(domain.FeatureTotalP2PVolume, r.MeanTotalP2PVolume)
	put(domain.FeatureTotalTxCount, r.MeanTotalTransactionsCount)
	put(domain.FeatureTotalTxVolume, r.MeanTotalTransactionVolume)
	put(domain.FeatureDepositWithdrawalRatio, r.MeanDepositWithdrawalRatio)

	return means
}

// SegmentationRunRow tracks one pipeline run, mirroring the lifecycle
// status flow RUNNING -> SUCCESS | FAILED.
type SegmentationRunRow struct {
	RunID string `bigquery:"run_id"` // REQUIRED

	SnapshotSource string     `bigquery:"snapshot_source"`
	SnapshotDate   civil.Date `bigquery:"snapshot_date"`

	StartedTS  time.Time              `bigquery:"started_ts"`
	FinishedTS bigquery.NullTimestamp `bigquery:"finished_ts"`

	Status       string `bigquery:"status"`
	ErrorMessage string `bigquery:"error_message"`

	K         bigquery.NullInt64   `bigquery:"k"`
	Seed      bigquery.NullInt64   `bigquery:"seed"`
	Inertia   bigquery.NullFloat64 `bigquery:"inertia"`
	Converged bigquery.NullBool    `bigquery:"converged"`
	GeoCount  bigquery.NullInt64   `bigquery:"geo_count"`
}
