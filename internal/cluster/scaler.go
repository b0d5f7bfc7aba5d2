package cluster

import (
	"fmt"

	"github.com/dvloznov/banking-insights/internal/domain"
	"gonum.org/v1/gonum/stat"
)

// StandardScaler standardizes features to zero mean and unit variance. The
// fitted means and deviations are an explicit artifact: the same transform
// can be reapplied to rows that were not part of the fit.
type StandardScaler struct {
	Features []string
	Means    []float64
	Stds     []float64
}

// FitScaler fits a standardization transform per feature over the given
// rows. Null ratios contribute 0, matching how rows are vectorized.
func FitScaler(profiles []*domain.GeoProfile, features []string) *StandardScaler {
	s := &StandardScaler{
		Features: features,
		Means:    make([]float64, len(features)),
		Stds:     make([]float64, len(features)),
	}
	if len(profiles) == 0 {
		return s
	}

	col := make([]float64, len(profiles))
	for j, name := range features {
		for i, g := range profiles {
			col[i] = featureOrZero(g, name)
		}
		mean, std := stat.MeanStdDev(col, nil)
		if len(profiles) < 2 {
			std = 0
		}
		s.Means[j] = mean
		s.Stds[j] = std
	}
	return s
}

// Transform produces one standardized vector per row, in the fitted feature
// order. A zero-variance feature maps to 0 for every row: dividing by a
// zero deviation is never attempted.
func (s *StandardScaler) Transform(profiles []*domain.GeoProfile) [][]float64 {
	vectors := make([][]float64, len(profiles))
	for i, g := range profiles {
		vec := make([]float64, len(s.Features))
		for j, name := range s.Features {
			if s.Stds[j] == 0 {
				continue
			}
			vec[j] = (featureOrZero(g, name) - s.Means[j]) / s.Stds[j]
		}
		vectors[i] = vec
	}
	return vectors
}

// TransformOne applies the fitted transform to a single row.
func (s *StandardScaler) TransformOne(g *domain.GeoProfile) ([]float64, error) {
	if len(s.Features) == 0 {
		return nil, fmt.Errorf("TransformOne: scaler is not fitted")
	}
	out := s.Transform([]*domain.GeoProfile{g})
	return out[0], nil
}

func featureOrZero(g *domain.GeoProfile, name string) float64 {
	if ref := g.FeatureRef(name); ref != nil {
		return *ref
	}
	return 0
}
