package notionsync

import (
	"fmt"

	"github.com/jomei/notionapi"

	infra "github.com/dvloznov/banking-insights/internal/infra/bigquery"
)

// ClusterSummaryToNotionProperties converts a ClusterSummaryRow to Notion properties.
// The "Cluster" title is the idempotency key within a segmentation run's database.
func ClusterSummaryToNotionProperties(row *infra.ClusterSummaryRow) notionapi.Properties {
	props := notionapi.Properties{
		"Cluster": notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: fmt.Sprintf("Cluster %d", row.Cluster),
					},
				},
			},
		},
		"Geography Count": notionapi.NumberProperty{
			Number: float64(row.Count),
		},
	}

	if row.RunID != "" {
		props["Run ID"] = notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: row.RunID,
					},
				},
			},
		}
	}

	addNullable(props, "Mean Balance", row.MeanBalance.Float64, row.MeanBalance.Valid)
	addNullable(props, "Mean Rewards", row.MeanRewards.Float64, row.MeanRewards.Valid)
	addNullable(props, "Mean Bills", row.MeanNumBills.Float64, row.MeanNumBills.Valid)
	addNullable(props, "Mean Recurring Bills", row.MeanNumRecurring.Float64, row.MeanNumRecurring.Valid)
	addNullable(props, "Mean Transfers Sent", row.MeanNumTransfersSent.Float64, row.MeanNumTransfersSent.Valid)
	addNullable(props, "Mean Transfers Sent Volume", row.MeanTotalTransfersSent.Float64, row.MeanTotalTransfersSent.Valid)
	addNullable(props, "Mean Transfers Received", row.MeanNumTransfersReceived.Float64, row.MeanNumTransfersReceived.Valid)
	addNullable(props, "Mean Transfers Received Volume", row.MeanTotalTransfersReceived.Float64, row.MeanTotalTransfersReceived.Valid)
	addNullable(props, "Mean Deposits", row.MeanNumDeposits.Float64, row.MeanNumDeposits.Valid)
	addNullable(props, "Mean Deposit Volume", row.MeanTotalDeposits.Float64, row.MeanTotalDeposits.Valid)
	addNullable(props, "Mean Withdrawals", row.MeanNumWithdrawals.Float64, row.MeanNumWithdrawals.Valid)
	addNullable(props, "Mean Withdrawal Volume", row.MeanTotalWithdrawals.Float64, row.MeanTotalWithdrawals.Valid)
	addNullable(props, "Mean P2P Count", row.MeanTotalP2PCount.Float64, row.MeanTotalP2PCount.Valid)
	addNullable(props, "Mean P2P Volume", row.MeanTotalP2PVolume.Float64, row.MeanTotalP2PVolume.Valid)
	addNullable(props, "Mean Transaction Count", row.MeanTotalTransactionsCount.Float64, row.MeanTotalTransactionsCount.Valid)
	addNullable(props, "Mean Transaction Volume", row.MeanTotalTransactionVolume.Float64, row.MeanTotalTransactionVolume.Valid)
	addNullable(props, "Mean Deposit/Withdrawal Ratio", row.MeanDepositWithdrawalRatio.Float64, row.MeanDepositWithdrawalRatio.Valid)

	return props
}

// addNullable sets a number property only when the underlying column is non-NULL,
// so undefined ratios show as empty cells in Notion.
func addNullable(props notionapi.Properties, name string, value float64, valid bool) {
	if !valid {
		return
	}
	props[name] = notionapi.NumberProperty{Number: value}
}
