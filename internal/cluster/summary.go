package cluster

import (
	"sort"

	"github.com/dvloznov/banking-insights/internal/domain"
)

// Summary describes one cluster: how many geographies it holds and the mean
// of every feature across them, computed on the unscaled capped values so
// the numbers read in real units.
type Summary struct {
	Cluster      int
	Count        int
	FeatureMeans map[string]float64
}

// Summarize builds the per-cluster summary table from labeled geography
// rows. Null ratios are excluded from the ratio mean; a cluster where every
// geography has a null ratio has no ratio mean at all.
func Summarize(profiles []*domain.GeoProfile, features []string) []Summary {
	type acc struct {
		count int
		sums  map[string]float64
		ns    map[string]int
	}

	accs := make(map[int]*acc)
	for _, g := range profiles {
		a, ok := accs[g.Cluster]
		if !ok {
			a = &acc{
				sums: make(map[string]float64, len(features)),
				ns:   make(map[string]int, len(features)),
			}
			accs[g.Cluster] = a
		}
		a.count++
		for _, name := range features {
			if ref := g.FeatureRef(name); ref != nil {
				a.sums[name] += *ref
				a.ns[name]++
			}
		}
	}

	summaries := make([]Summary, 0, len(accs))
	for label, a := range accs {
		means := make(map[string]float64, len(features))
		for _, name := range features {
			if n := a.ns[name]; n > 0 {
				means[name] = a.sums[name] / float64(n)
			}
		}
		summaries = append(summaries, Summary{
			Cluster:      label,
			Count:        a.count,
			FeatureMeans: means,
		})
	}

	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Cluster < summaries[j].Cluster })
	return summaries
}
