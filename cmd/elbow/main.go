package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/dvloznov/banking-insights/internal/cluster"
	"github.com/dvloznov/banking-insights/internal/logger"
	"github.com/dvloznov/banking-insights/internal/pipeline"
)

func main() {
	var (
		source  = flag.String("source", "data/snapshot", "Snapshot directory or gs:// prefix")
		kMin    = flag.Int("k-min", 1, "Smallest k to evaluate")
		kMax    = flag.Int("k-max", 9, "Largest k to evaluate")
		seed    = flag.Int64("seed", cluster.DefaultSeed, "Random seed for k-means")
		maxIter = flag.Int("max-iter", cluster.DefaultMaxIter, "Maximum k-means iterations")
		iqr     = flag.Float64("iqr", cluster.DefaultIQRMultiplier, "IQR multiplier for outlier capping")
	)
	flag.Parse()

	log := logger.New()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	cfg := pipeline.Config{
		SnapshotSource: *source,
		Seed:           *seed,
		MaxIter:        *maxIter,
		IQRMultiplier:  *iqr,
	}

	state, err := pipeline.RunFeaturePrep(ctx, cfg, pipeline.NewFileSnapshotLoader())
	if err != nil {
		log.Fatal().Err(err).Msg("Preparing feature matrix failed")
	}

	points, err := cluster.Elbow(ctx, state.Vectors, *kMin, *kMax, *seed, *maxIter)
	if err != nil {
		log.Fatal().Err(err).Msg("Elbow sweep failed")
	}

	fmt.Printf("%-4s %s\n", "k", "inertia")
	for _, p := range points {
		fmt.Printf("%-4d %.4f\n", p.K, p.Inertia)
	}
}
