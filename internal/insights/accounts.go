package insights

import (
	"context"

	"github.com/dvloznov/banking-insights/internal/domain"
	"github.com/dvloznov/banking-insights/internal/logger"
	"golang.org/x/sync/errgroup"
)

// amountAgg accumulates count and sum for one group key. Means are always
// derived from (sum, count), so partial aggregates merge cleanly.
type amountAgg struct {
	count int
	sum   float64
}

func (a amountAgg) mean() float64 {
	if a.count == 0 {
		return 0
	}
	return a.sum / float64(a.count)
}

// billAgg extends amountAgg with the recurring-bill tally.
type billAgg struct {
	amountAgg
	recurring int
}

// AggregateAccounts rolls bills and transfers up to one profile per account.
//
// Transfers are partitioned by type: deposits group by payee, withdrawals by
// payer. P2P transfers are first filtered to those touching a known account;
// the outgoing side groups by payer, the incoming side by payee, and a
// self-transfer lands in both. Transfers with an unrecognized type are
// tallied and excluded from every aggregate. Accounts with no matching
// events simply get zero metrics wherever they surface downstream.
func AggregateAccounts(ctx context.Context, bills []domain.Bill, transfers []domain.Transfer, accountIDs map[string]bool) map[string]*domain.AccountProfile {
	log := logger.FromContext(ctx)

	var deposits, withdrawals, p2p []domain.Transfer
	unknownType := 0
	for _, t := range transfers {
		switch t.Type {
		case domain.TransferTypeDeposit:
			deposits = append(deposits, t)
		case domain.TransferTypeWithdrawal:
			withdrawals = append(withdrawals, t)
		case domain.TransferTypeP2P:
			p2p = append(p2p, t)
		default:
			unknownType++
		}
	}

	// Internal p2p only: at least one side must be a known account. A
	// transfer with neither side known is dropped entirely.
	externalP2P := 0
	internal := p2p[:0:0]
	for _, t := range p2p {
		if accountIDs[t.PayerID] || accountIDs[t.PayeeID] {
			internal = append(internal, t)
		} else {
			externalP2P++
		}
	}

	// The five group-bys are independent; run them concurrently.
	var (
		depositAggs    map[string]amountAgg
		withdrawalAggs map[string]amountAgg
		sentAggs       map[string]amountAgg
		receivedAggs   map[string]amountAgg
		billAggs       map[string]billAgg
	)

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		depositAggs = groupAmounts(deposits, func(t domain.Transfer) string { return t.PayeeID })
		return nil
	})
	g.Go(func() error {
		withdrawalAggs = groupAmounts(withdrawals, func(t domain.Transfer) string { return t.PayerID })
		return nil
	})
	g.Go(func() error {
		sentAggs = groupAmounts(internal, func(t domain.Transfer) string {
			if accountIDs[t.PayerID] {
				return t.PayerID
			}
			return ""
		})
		return nil
	})
	g.Go(func() error {
		receivedAggs = groupAmounts(internal, func(t domain.Transfer) string {
			if accountIDs[t.PayeeID] {
				return t.PayeeID
			}
			return ""
		})
		return nil
	})
	g.Go(func() error {
		billAggs = groupBills(bills)
		return nil
	})
	_ = g.Wait()

	profiles := make(map[string]*domain.AccountProfile)
	get := func(id string) *domain.AccountProfile {
		p, ok := profiles[id]
		if !ok {
			p = &domain.AccountProfile{AccountID: id}
			profiles[id] = p
		}
		return p
	}

	for id, agg := range depositAggs {
		p := get(id)
		p.NumDeposits = agg.count
		p.TotalDeposits = agg.sum
		p.AvgDeposit = agg.mean()
	}
	for id, agg := range withdrawalAggs {
		p := get(id)
		p.NumWithdrawals = agg.count
		p.TotalWithdrawals = agg.sum
		p.AvgWithdrawal = agg.mean()
	}
	for id, agg := range sentAggs {
		p := get(id)
		p.NumTransfersSent = agg.count
		p.TotalTransfersSent = agg.sum
		p.AvgTransferSent = agg.mean()
	}
	for id, agg := range receivedAggs {
		p := get(id)
		p.NumTransfersReceived = agg.count
		p.TotalTransfersReceived = agg.sum
		p.AvgTransferReceived = agg.mean()
	}
	for id, agg := range billAggs {
		p := get(id)
		p.NumBills = agg.count
		p.NumRecurring = agg.recurring
		p.TotalBillAmount = agg.sum
		p.AvgBillAmount = agg.mean()
	}

	for _, p := range profiles {
		p.ComputeDerived()
	}

	if unknownType > 0 || externalP2P > 0 {
		log.Info().
			Int("unknown_type", unknownType).
			Int("external_p2p", externalP2P).
			Msg("Excluded transfers from account aggregation")
	}
	log.Info().Int("account_profiles", len(profiles)).Msg("Aggregated account activity")

	return profiles
}

// groupAmounts groups transfers by the key function; an empty key means the
// transfer does not belong to this grouping.
func groupAmounts(transfers []domain.Transfer, key func(domain.Transfer) string) map[string]amountAgg {
	aggs := make(map[string]amountAgg)
	for _, t := range transfers {
		k := key(t)
		if k == "" {
			continue
		}
		agg := aggs[k]
		agg.count++
		agg.sum += t.Amount
		aggs[k] = agg
	}
	return aggs
}

func groupBills(bills []domain.Bill) map[string]billAgg {
	aggs := make(map[string]billAgg)
	for _, b := range bills {
		if b.AccountID == "" {
			continue
		}
		agg := aggs[b.AccountID]
		agg.count++
		agg.sum += b.PaymentAmount
		if b.Status == domain.BillStatusRecurring {
			agg.recurring++
		}
		aggs[b.AccountID] = agg
	}
	return aggs
}
