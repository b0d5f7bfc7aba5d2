package cluster

import (
	"context"
	"testing"

	"github.com/dvloznov/banking-insights/internal/domain"
)

func depositProfiles(values ...float64) []*domain.GeoProfile {
	profiles := make([]*domain.GeoProfile, len(values))
	for i, v := range values {
		profiles[i] = &domain.GeoProfile{TotalDeposits: v}
	}
	return profiles
}

func TestCapOutliersClampsExtremes(t *testing.T) {
	// Q1=2, Q3=4 over [1..5], IQR=2: fences at [-4, 10] with multiplier 3.
	profiles := depositProfiles(1, 2, 3, 4, 5, 1000)

	CapOutliers(context.Background(), profiles, []string{domain.FeatureTotalDeposits}, 3)

	last := profiles[5].TotalDeposits
	if last >= 1000 {
		t.Errorf("outlier not capped: %.2f", last)
	}
	for i, want := range []float64{1, 2, 3, 4, 5} {
		if profiles[i].TotalDeposits != want {
			t.Errorf("row %d changed: got %.2f, want %.2f", i, profiles[i].TotalDeposits, want)
		}
	}
}

func TestCapOutliersIdempotent(t *testing.T) {
	profiles := depositProfiles(1, 2, 3, 4, 5, 1000, -500)
	features := []string{domain.FeatureTotalDeposits}

	CapOutliers(context.Background(), profiles, features, 3)

	first := make([]float64, len(profiles))
	for i, g := range profiles {
		first[i] = g.TotalDeposits
	}

	CapOutliers(context.Background(), profiles, features, 3)

	for i, g := range profiles {
		if g.TotalDeposits != first[i] {
			t.Errorf("row %d moved on second pass: %.4f -> %.4f", i, first[i], g.TotalDeposits)
		}
	}
}

func TestCapOutliersSkipsSparseFeatures(t *testing.T) {
	profiles := depositProfiles(999999)

	CapOutliers(context.Background(), profiles, []string{domain.FeatureTotalDeposits}, 3)

	if profiles[0].TotalDeposits != 999999 {
		t.Errorf("single-row feature was modified: %.2f", profiles[0].TotalDeposits)
	}
}

func TestCapOutliersIgnoresNullRatios(t *testing.T) {
	profiles := []*domain.GeoProfile{
		{DepositWithdrawalRatio: ratioPtr(1)},
		{DepositWithdrawalRatio: ratioPtr(2)},
		{DepositWithdrawalRatio: ratioPtr(3)},
		{DepositWithdrawalRatio: nil},
	}

	CapOutliers(context.Background(), profiles, []string{domain.FeatureDepositWithdrawalRatio}, 3)

	if profiles[3].DepositWithdrawalRatio != nil {
		t.Errorf("null ratio became %v, want nil", *profiles[3].DepositWithdrawalRatio)
	}
}

func ratioPtr(v float64) *float64 { return &v }
