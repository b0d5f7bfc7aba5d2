package pipeline

import (
	"github.com/dvloznov/banking-insights/internal/cluster"
	"github.com/dvloznov/banking-insights/internal/domain"
)

// Defaults for a segmentation run. K was chosen off the elbow diagnostic
// for the current snapshot; rerun the elbow command when the data changes
// materially.
const (
	DefaultK = 4
)

// Config parameterizes one segmentation run.
type Config struct {
	// SnapshotSource is a local directory or gs://bucket/prefix holding
	// the input collections.
	SnapshotSource string

	// K is the number of clusters. Required; never derived automatically.
	K int

	// Seed drives centroid initialization; fixed seed, fixed input and
	// fixed K reproduce the same segmentation.
	Seed int64

	// MaxIter bounds the clustering iterations.
	MaxIter int

	// IQRMultiplier widens the outlier fences; 0 means the default of 3.
	IQRMultiplier float64

	// Features defaults to the canonical feature list.
	Features []string
}

func (c Config) withDefaults() Config {
	if c.K == 0 {
		c.K = DefaultK
	}
	if c.Seed == 0 {
		c.Seed = cluster.DefaultSeed
	}
	if c.MaxIter == 0 {
		c.MaxIter = cluster.DefaultMaxIter
	}
	if c.IQRMultiplier == 0 {
		c.IQRMultiplier = cluster.DefaultIQRMultiplier
	}
	if len(c.Features) == 0 {
		c.Features = domain.FeatureNames
	}
	return c
}
