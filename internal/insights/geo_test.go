package insights

import (
	"context"
	"math"
	"testing"

	"github.com/dvloznov/banking-insights/internal/domain"
)

func ratioOf(v float64) *float64 { return &v }

func TestAggregateGeoMeansAndSums(t *testing.T) {
	customers := []*domain.CustomerProfile{
		{
			CustomerID: "c1", Zip: "10001", City: "New York", State: "NY",
			Balance: 100, Rewards: 10, TotalDeposits: 200, NumDeposits: 2,
			DepositWithdrawalRatio: ratioOf(2.0),
		},
		{
			CustomerID: "c2", Zip: "10001", City: "New York", State: "NY",
			Balance: 300, Rewards: 30, TotalDeposits: 100, NumDeposits: 1,
			DepositWithdrawalRatio: ratioOf(4.0),
		},
	}

	out := AggregateGeo(context.Background(), customers)

	if len(out) != 1 {
		t.Fatalf("got %d geo profiles, want 1", len(out))
	}
	g := out[0]

	// Balance and rewards are means; deposits are sums.
	if g.Balance != 200 || g.Rewards != 20 {
		t.Errorf("balance/rewards = (%.0f, %.0f), want means (200, 20)", g.Balance, g.Rewards)
	}
	if g.TotalDeposits != 300 || g.NumDeposits != 3 {
		t.Errorf("deposits = (%.0f, %.0f), want sums (300, 3)", g.TotalDeposits, g.NumDeposits)
	}
	if g.DepositWithdrawalRatio == nil || *g.DepositWithdrawalRatio != 3.0 {
		t.Errorf("ratio = %v, want mean 3.0", g.DepositWithdrawalRatio)
	}
	if g.Cluster != -1 {
		t.Errorf("cluster = %d, want -1 before clustering", g.Cluster)
	}
}

func TestAggregateGeoRatioExcludesUndefined(t *testing.T) {
	customers := []*domain.CustomerProfile{
		{CustomerID: "c1", Zip: "94110", City: "San Francisco", State: "CA", DepositWithdrawalRatio: ratioOf(6.0)},
		{CustomerID: "c2", Zip: "94110", City: "San Francisco", State: "CA", DepositWithdrawalRatio: nil},
	}

	out := AggregateGeo(context.Background(), customers)

	g := out[0]
	// Mean over defined ratios only: 6.0 / 1, not 6.0 / 2.
	if g.DepositWithdrawalRatio == nil || *g.DepositWithdrawalRatio != 6.0 {
		t.Errorf("ratio = %v, want 6.0 over the single defined ratio", g.DepositWithdrawalRatio)
	}
}

func TestAggregateGeoAllRatiosUndefined(t *testing.T) {
	customers := []*domain.CustomerProfile{
		{CustomerID: "c1", Zip: "60601", City: "Chicago", State: "IL"},
		{CustomerID: "c2", Zip: "60601", City: "Chicago", State: "IL"},
	}

	out := AggregateGeo(context.Background(), customers)

	if out[0].DepositWithdrawalRatio != nil {
		t.Errorf("ratio = %v, want nil when no customer had withdrawals", *out[0].DepositWithdrawalRatio)
	}
}

func TestAggregateGeoDropsIncompleteKeys(t *testing.T) {
	customers := []*domain.CustomerProfile{
		{CustomerID: "c1", Zip: "10001", City: "New York", State: "NY"},
		{CustomerID: "c2", Zip: "", City: "New York", State: "NY"},
		{CustomerID: "c3", Zip: "10001", City: "", State: "NY"},
	}

	out := AggregateGeo(context.Background(), customers)

	if len(out) != 1 {
		t.Fatalf("got %d geo profiles, want 1 after dropping incomplete keys", len(out))
	}
}

func TestAggregateGeoConservesVolume(t *testing.T) {
	customers := []*domain.CustomerProfile{
		{CustomerID: "c1", Zip: "10001", City: "New York", State: "NY", TotalTransactionVolume: 120.5},
		{CustomerID: "c2", Zip: "10001", City: "New York", State: "NY", TotalTransactionVolume: 79.5},
		{CustomerID: "c3", Zip: "73301", City: "Austin", State: "TX", TotalTransactionVolume: 55},
	}

	out := AggregateGeo(context.Background(), customers)

	var total float64
	for _, g := range out {
		total += g.TotalTransactionVolume
	}
	if math.Abs(total-255) > 1e-9 {
		t.Errorf("total volume across geographies = %.2f, want 255", total)
	}
}

func TestAggregateGeoSortedByKey(t *testing.T) {
	customers := []*domain.CustomerProfile{
		{CustomerID: "c1", Zip: "73301", City: "Austin", State: "TX"},
		{CustomerID: "c2", Zip: "10001", City: "New York", State: "NY"},
	}

	out := AggregateGeo(context.Background(), customers)

	if len(out) != 2 || out[0].Zip != "10001" || out[1].Zip != "73301" {
		t.Errorf("geo profiles not sorted by zip: %s, %s", out[0].Zip, out[1].Zip)
	}
}
