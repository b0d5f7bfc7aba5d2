package insights

import (
	"context"
	"sort"

	"github.com/dvloznov/banking-insights/internal/domain"
	"github.com/dvloznov/banking-insights/internal/logger"
)

// JoinProfiles left-joins each account to its activity profile and its
// owning customer, then sums every numeric metric per customer.
//
// An account with no profile row gets all-zero activity: zero activity is a
// real observation, not missing data. An account whose customer is unknown
// is dropped here, since there is no customer row to roll it into.
// Customers that own no accounts do not appear in the output. Grouping is
// strictly by customer id; name and geography are carried along, never used
// as group keys.
func JoinProfiles(ctx context.Context, accounts []domain.Account, profiles map[string]*domain.AccountProfile, customers []domain.Customer) []*domain.CustomerProfile {
	log := logger.FromContext(ctx)

	custIndex := make(map[string]domain.Customer, len(customers))
	for _, c := range customers {
		custIndex[c.ID] = c
	}

	out := make(map[string]*domain.CustomerProfile)
	orphaned := 0

	for _, acc := range accounts {
		cust, ok := custIndex[acc.CustomerID]
		if !ok {
			orphaned++
			continue
		}

		prof, ok := profiles[acc.ID]
		if !ok {
			prof = &domain.AccountProfile{AccountID: acc.ID}
		}
		prof.ComputeDerived()

		cp, ok := out[cust.ID]
		if !ok {
			cp = &domain.CustomerProfile{
				CustomerID: cust.ID,
				FirstName:  cust.FirstName,
				LastName:   cust.LastName,
				Zip:        cust.Zip,
				City:       cust.City,
				State:      cust.State,
			}
			out[cust.ID] = cp
		}

		cp.NumAccounts++
		cp.Balance += acc.Balance
		cp.Rewards += acc.Rewards

		cp.NumBills += prof.NumBills
		cp.NumRecurring += prof.NumRecurring
		cp.TotalBillAmount += prof.TotalBillAmount

		cp.NumTransfersSent += prof.NumTransfersSent
		cp.TotalTransfersSent += prof.TotalTransfersSent
		cp.NumTransfersReceived += prof.NumTransfersReceived
		cp.TotalTransfersReceived += prof.TotalTransfersReceived

		cp.NumDeposits += prof.NumDeposits
		cp.TotalDeposits += prof.TotalDeposits
		cp.NumWithdrawals += prof.NumWithdrawals
		cp.TotalWithdrawals += prof.TotalWithdrawals

		cp.TotalP2PCount += prof.TotalP2PCount
		cp.TotalP2PVolume += prof.TotalP2PVolume
		cp.TotalTransactionsCount += prof.TotalTransactionsCount
		cp.TotalTransactionVolume += prof.TotalTransactionVolume
	}

	result := make([]*domain.CustomerProfile, 0, len(out))
	for _, cp := range out {
		// The ratio is recomputed from the customer-level sums, not
		// averaged across accounts.
		cp.DepositWithdrawalRatio = domain.Ratio(cp.TotalDeposits, cp.TotalWithdrawals)
		result = append(result, cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CustomerID < result[j].CustomerID })

	if orphaned > 0 {
		log.Info().Int("orphaned_accounts", orphaned).Msg("Dropped accounts with no matching customer")
	}
	log.Info().Int("customer_profiles", len(result)).Msg("Joined account profiles to customers")

	return result
}
