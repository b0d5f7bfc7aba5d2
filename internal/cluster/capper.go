package cluster

import (
	"context"
	"sort"

	"github.com/dvloznov/banking-insights/internal/domain"
	"github.com/dvloznov/banking-insights/internal/logger"
	"gonum.org/v1/gonum/stat"
)

// DefaultIQRMultiplier is deliberately wider than the conventional 1.5
// "mild outlier" fence: only extreme values get clamped, so most of the
// natural spread survives for clustering.
const DefaultIQRMultiplier = 3.0

// CapOutliers clamps each feature independently into
// [Q1 - k*IQR, Q3 + k*IQR], computed over the rows that have a value for
// that feature. Features with fewer than 2 populated rows are left
// untouched, as are null values. Capping is idempotent: fences computed
// from already-capped data clamp nothing further.
func CapOutliers(ctx context.Context, profiles []*domain.GeoProfile, features []string, multiplier float64) {
	log := logger.FromContext(ctx)
	if multiplier <= 0 {
		multiplier = DefaultIQRMultiplier
	}

	capped := 0
	for _, name := range features {
		var refs []*float64
		for _, g := range profiles {
			if ref := g.FeatureRef(name); ref != nil {
				refs = append(refs, ref)
			}
		}
		if len(refs) < 2 {
			continue
		}

		values := make([]float64, len(refs))
		for i, ref := range refs {
			values[i] = *ref
		}
		sort.Float64s(values)

		q1 := stat.Quantile(0.25, stat.LinInterp, values, nil)
		q3 := stat.Quantile(0.75, stat.LinInterp, values, nil)
		iqr := q3 - q1
		lower := q1 - multiplier*iqr
		upper := q3 + multiplier*iqr

		for _, ref := range refs {
			switch {
			case *ref < lower:
				*ref = lower
				capped++
			case *ref > upper:
				*ref = upper
				capped++
			}
		}
	}

	log.Info().
		Int("rows", len(profiles)).
		Int("capped_values", capped).
		Float64("multiplier", multiplier).
		Msg("Capped feature outliers")
}
