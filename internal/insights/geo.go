package insights

import (
	"context"
	"sort"

	"github.com/dvloznov/banking-insights/internal/domain"
	"github.com/dvloznov/banking-insights/internal/logger"
)

type geoKey struct {
	zip, city, state string
}

// geoAcc accumulates one geography's customers before finalization.
type geoAcc struct {
	profile *domain.GeoProfile

	customers  int
	balanceSum float64
	rewardsSum float64
	ratioSum   float64
	ratioCount int
}

// AggregateGeo rolls customer profiles up to one row per (zip, city, state).
// Balance, rewards and the deposit/withdrawal ratio aggregate by mean
// (undefined ratios are excluded from the mean, not zeroed); every volume
// or count metric aggregates by sum. Customers missing any part of the
// geography key are dropped.
func AggregateGeo(ctx context.Context, customers []*domain.CustomerProfile) []*domain.GeoProfile {
	log := logger.FromContext(ctx)

	groups := make(map[geoKey]*geoAcc)
	missingGeo := 0

	for _, cp := range customers {
		if cp.Zip == "" || cp.City == "" || cp.State == "" {
			missingGeo++
			continue
		}

		key := geoKey{cp.Zip, cp.City, cp.State}
		acc, ok := groups[key]
		if !ok {
			acc = &geoAcc{profile: &domain.GeoProfile{
				Zip:     cp.Zip,
				City:    cp.City,
				State:   cp.State,
				Cluster: -1,
			}}
			groups[key] = acc
		}

		acc.customers++
		acc.balanceSum += cp.Balance
		acc.rewardsSum += cp.Rewards
		if cp.DepositWithdrawalRatio != nil {
			acc.ratioSum += *cp.DepositWithdrawalRatio
			acc.ratioCount++
		}

		g := acc.profile
		g.NumBills += float64(cp.NumBills)
		g.NumRecurring += float64(cp.NumRecurring)
		g.NumTransfersSent += float64(cp.NumTransfersSent)
		g.TotalTransfersSent += cp.TotalTransfersSent
		g.NumTransfersReceived += float64(cp.NumTransfersReceived)
		g.TotalTransfersReceived += cp.TotalTransfersReceived
		g.NumDeposits += float64(cp.NumDeposits)
		g.TotalDeposits += cp.TotalDeposits
		g.NumWithdrawals += float64(cp.NumWithdrawals)
		g.TotalWithdrawals += cp.TotalWithdrawals
		g.TotalP2PCount += float64(cp.TotalP2PCount)
		g.TotalP2PVolume += cp.TotalP2PVolume
		g.TotalTransactionsCount += float64(cp.TotalTransactionsCount)
		g.TotalTransactionVolume += cp.TotalTransactionVolume
	}

	profiles := make([]*domain.GeoProfile, 0, len(groups))
	for _, acc := range groups {
		g := acc.profile
		g.Balance = acc.balanceSum / float64(acc.customers)
		g.Rewards = acc.rewardsSum / float64(acc.customers)
		if acc.ratioCount > 0 {
			mean := acc.ratioSum / float64(acc.ratioCount)
			g.DepositWithdrawalRatio = &mean
		}
		profiles = append(profiles, g)
	}

	sort.Slice(profiles, func(i, j int) bool {
		a, b := profiles[i], profiles[j]
		if a.Zip != b.Zip {
			return a.Zip < b.Zip
		}
		if a.City != b.City {
			return a.City < b.City
		}
		return a.State < b.State
	})

	if missingGeo > 0 {
		log.Info().Int("missing_geography", missingGeo).Msg("Dropped customers without a full geography key")
	}
	log.Info().Int("geo_profiles", len(profiles)).Msg("Aggregated customers by geography")

	return profiles
}
