package cluster

import (
	"math"
	"testing"

	"github.com/dvloznov/banking-insights/internal/domain"
)

func TestFitScalerStandardizes(t *testing.T) {
	profiles := depositProfiles(10, 20, 30, 40)
	features := []string{domain.FeatureTotalDeposits}

	scaler := FitScaler(profiles, features)
	vectors := scaler.Transform(profiles)

	var mean float64
	for _, v := range vectors {
		mean += v[0]
	}
	mean /= float64(len(vectors))
	if math.Abs(mean) > 1e-9 {
		t.Errorf("scaled mean = %.6f, want 0", mean)
	}

	var variance float64
	for _, v := range vectors {
		variance += (v[0] - mean) * (v[0] - mean)
	}
	variance /= float64(len(vectors) - 1)
	if math.Abs(variance-1) > 1e-9 {
		t.Errorf("scaled sample variance = %.6f, want 1", variance)
	}
}

func TestScalerZeroVarianceFeature(t *testing.T) {
	profiles := depositProfiles(7, 7, 7)
	features := []string{domain.FeatureTotalDeposits}

	scaler := FitScaler(profiles, features)
	vectors := scaler.Transform(profiles)

	for i, v := range vectors {
		if v[0] != 0 {
			t.Errorf("row %d of constant feature = %.4f, want 0", i, v[0])
		}
	}
}

func TestScalerNullRatioVectorizedAsZero(t *testing.T) {
	profiles := []*domain.GeoProfile{
		{DepositWithdrawalRatio: ratioPtr(2)},
		{DepositWithdrawalRatio: ratioPtr(4)},
		{DepositWithdrawalRatio: nil},
	}
	features := []string{domain.FeatureDepositWithdrawalRatio}

	scaler := FitScaler(profiles, features)

	// The null row contributes 0 to the fit: mean over {2, 4, 0} is 2.
	if math.Abs(scaler.Means[0]-2) > 1e-9 {
		t.Errorf("fitted mean = %.4f, want 2 with null as 0", scaler.Means[0])
	}

	vectors := scaler.Transform(profiles)
	want := (0 - scaler.Means[0]) / scaler.Stds[0]
	if math.Abs(vectors[2][0]-want) > 1e-9 {
		t.Errorf("null row scaled to %.4f, want %.4f", vectors[2][0], want)
	}
}

func TestTransformOneMatchesBatch(t *testing.T) {
	profiles := depositProfiles(1, 5, 9)
	features := []string{domain.FeatureTotalDeposits}

	scaler := FitScaler(profiles, features)
	batch := scaler.Transform(profiles)

	single, err := scaler.TransformOne(profiles[1])
	if err != nil {
		t.Fatalf("TransformOne returned error: %v", err)
	}
	if single[0] != batch[1][0] {
		t.Errorf("TransformOne = %.6f, batch = %.6f", single[0], batch[1][0])
	}
}

func TestTransformOneUnfitted(t *testing.T) {
	var scaler StandardScaler
	if _, err := scaler.TransformOne(&domain.GeoProfile{}); err == nil {
		t.Fatal("expected error from unfitted scaler")
	}
}
