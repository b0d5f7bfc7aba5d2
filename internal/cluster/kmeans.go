package cluster

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/dvloznov/banking-insights/internal/logger"
	"golang.org/x/sync/errgroup"
)

// Clustering defaults. The seed matches the one the segmentation was tuned
// with; k is always an explicit input, chosen manually off the elbow sweep.
const (
	DefaultSeed    int64 = 42
	DefaultMaxIter       = 100
)

// KMeansResult holds one converged (or iteration-capped) clustering.
type KMeansResult struct {
	K         int
	Seed      int64
	Labels    []int
	Centroids [][]float64
	Inertia   float64
	Iters     int
	Converged bool
}

// ElbowPoint reports the inertia reached for one candidate k.
type ElbowPoint struct {
	K       int
	Inertia float64
}

// KMeans runs Lloyd's algorithm over the given vectors with k-means++
// seeding from a deterministic RNG. For a fixed input, k and seed the
// labels and centroids are reproducible. If the assignment has not settled
// within maxIter iterations the best state at the bound is returned and
// Converged is false; callers treat that as a soft condition.
func KMeans(ctx context.Context, vectors [][]float64, k int, seed int64, maxIter int) (*KMeansResult, error) {
	log := logger.FromContext(ctx)

	if k < 1 {
		return nil, fmt.Errorf("KMeans: k must be >= 1, got %d", k)
	}
	if maxIter <= 0 {
		maxIter = DefaultMaxIter
	}
	if len(vectors) == 0 {
		return &KMeansResult{K: k, Seed: seed, Converged: true}, nil
	}
	if k > len(vectors) {
		log.Warn().Int("k", k).Int("rows", len(vectors)).Msg("Fewer rows than clusters, clamping k")
		k = len(vectors)
	}

	centroids := seedCentroids(vectors, k, rand.New(rand.NewSource(seed)))

	labels := make([]int, len(vectors))
	for i := range labels {
		labels[i] = -1
	}

	var (
		iters     int
		converged bool
	)
	for iters = 1; iters <= maxIter; iters++ {
		changed := false
		for i, v := range vectors {
			best := nearestCentroid(v, centroids)
			if labels[i] != best {
				labels[i] = best
				changed = true
			}
		}

		recomputeCentroids(vectors, labels, centroids)

		if !changed {
			converged = true
			break
		}
	}
	if iters > maxIter {
		iters = maxIter
	}

	var inertia float64
	for i, v := range vectors {
		inertia += squaredDistance(v, centroids[labels[i]])
	}

	if !converged {
		log.Warn().Int("k", k).Int("max_iter", maxIter).Msg("Clustering hit the iteration bound before converging")
	}

	return &KMeansResult{
		K:         k,
		Seed:      seed,
		Labels:    labels,
		Centroids: centroids,
		Inertia:   inertia,
		Iters:     iters,
		Converged: converged,
	}, nil
}

// Elbow runs the clustering for every k in [kMin, kMax] and reports the
// inertia per k. It never picks a k; that call stays with a human reading
// the curve. The runs are independent, so they execute concurrently, each
// with its own RNG derived from the shared seed.
func Elbow(ctx context.Context, vectors [][]float64, kMin, kMax int, seed int64, maxIter int) ([]ElbowPoint, error) {
	if kMin < 1 || kMax < kMin {
		return nil, fmt.Errorf("Elbow: invalid k range [%d, %d]", kMin, kMax)
	}

	points := make([]ElbowPoint, kMax-kMin+1)
	g, gctx := errgroup.WithContext(ctx)
	for k := kMin; k <= kMax; k++ {
		g.Go(func() error {
			res, err := KMeans(gctx, vectors, k, seed, maxIter)
			if err != nil {
				return err
			}
			points[k-kMin] = ElbowPoint{K: k, Inertia: res.Inertia}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return points, nil
}

// seedCentroids picks k starting centroids k-means++ style: the first
// uniformly, each next weighted by squared distance to the nearest chosen
// centroid.
func seedCentroids(vectors [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, cloneVector(vectors[rng.Intn(len(vectors))]))

	dists := make([]float64, len(vectors))
	for len(centroids) < k {
		var total float64
		for i, v := range vectors {
			d := math.Inf(1)
			for _, c := range centroids {
				if dd := squaredDistance(v, c); dd < d {
					d = dd
				}
			}
			dists[i] = d
			total += d
		}

		// All remaining points coincide with a centroid; fall back to a
		// uniform pick so duplicate-heavy inputs still seed k centroids.
		if total == 0 {
			centroids = append(centroids, cloneVector(vectors[rng.Intn(len(vectors))]))
			continue
		}

		target := rng.Float64() * total
		idx := len(vectors) - 1
		var cum float64
		for i, d := range dists {
			cum += d
			if cum >= target {
				idx = i
				break
			}
		}
		centroids = append(centroids, cloneVector(vectors[idx]))
	}
	return centroids
}

// recomputeCentroids replaces each centroid with the mean of its members.
// An empty cluster keeps its previous centroid rather than collapsing.
func recomputeCentroids(vectors [][]float64, labels []int, centroids [][]float64) {
	dim := len(vectors[0])
	sums := make([][]float64, len(centroids))
	counts := make([]int, len(centroids))
	for i := range sums {
		sums[i] = make([]float64, dim)
	}

	for i, v := range vectors {
		c := labels[i]
		counts[c]++
		for j, x := range v {
			sums[c][j] += x
		}
	}

	for c := range centroids {
		if counts[c] == 0 {
			continue
		}
		for j := range centroids[c] {
			centroids[c][j] = sums[c][j] / float64(counts[c])
		}
	}
}

func nearestCentroid(v []float64, centroids [][]float64) int {
	best := 0
	bestDist := math.Inf(1)
	for c, centroid := range centroids {
		if d := squaredDistance(v, centroid); d < bestDist {
			bestDist = d
			best = c
		}
	}
	return best
}

func squaredDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func cloneVector(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
