package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dvloznov/banking-insights/internal/cluster"
	infraBQ "github.com/dvloznov/banking-insights/internal/infra/bigquery"
	"github.com/dvloznov/banking-insights/internal/logger"
	"github.com/dvloznov/banking-insights/internal/pipeline"
	"github.com/dvloznov/banking-insights/internal/snapshot"
)

func main() {
	var (
		source       = flag.String("source", "data/snapshot", "Snapshot directory or gs:// prefix")
		k            = flag.Int("k", pipeline.DefaultK, "Number of clusters")
		seed         = flag.Int64("seed", cluster.DefaultSeed, "Random seed for k-means")
		maxIter      = flag.Int("max-iter", cluster.DefaultMaxIter, "Maximum k-means iterations")
		iqr          = flag.Float64("iqr", cluster.DefaultIQRMultiplier, "IQR multiplier for outlier capping")
		local        = flag.Bool("local", false, "Skip BigQuery, write CSVs locally instead")
		segmentsCSV  = flag.String("segments-csv", "geo_segments.csv", "Output path for the geography table (with --local)")
		summariesCSV = flag.String("summaries-csv", "cluster_summaries.csv", "Output path for cluster summaries (with --local)")
	)
	flag.Parse()

	log := logger.New()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	cfg := pipeline.Config{
		SnapshotSource: *source,
		K:              *k,
		Seed:           *seed,
		MaxIter:        *maxIter,
		IQRMultiplier:  *iqr,
	}

	loader := pipeline.NewFileSnapshotLoader()

	if *local {
		runLocal(ctx, cfg, loader, *segmentsCSV, *summariesCSV)
		return
	}

	repo, err := infraBQ.NewBigQuerySegmentRepository(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create segment repository")
	}
	defer repo.Close()

	state, err := pipeline.RunSegmentation(ctx, cfg, repo, loader)
	if err != nil {
		log.Fatal().Err(err).Msg("Segmentation failed")
	}

	fmt.Printf("Run %s: %d geographies in %d clusters (inertia %.2f)\n",
		state.RunID, len(state.GeoProfiles), state.Clustering.K, state.Clustering.Inertia)
}

func runLocal(ctx context.Context, cfg pipeline.Config, loader pipeline.SnapshotLoader, segmentsPath, summariesPath string) {
	log := logger.FromContext(ctx)

	state, err := pipeline.RunLocalSegmentation(ctx, cfg, loader)
	if err != nil {
		log.Fatal().Err(err).Msg("Segmentation failed")
	}

	if err := writeCSV(segmentsPath, func(f *os.File) error {
		return snapshot.WriteGeoSegmentsCSV(f, state.GeoProfiles)
	}); err != nil {
		log.Fatal().Err(err).Str("path", segmentsPath).Msg("Failed to write geography table")
	}

	if err := writeCSV(summariesPath, func(f *os.File) error {
		return snapshot.WriteClusterSummaryCSV(f, state.Summaries)
	}); err != nil {
		log.Fatal().Err(err).Str("path", summariesPath).Msg("Failed to write cluster summaries")
	}

	fmt.Printf("Wrote %s and %s: %d geographies in %d clusters\n",
		segmentsPath, summariesPath, len(state.GeoProfiles), state.Clustering.K)
}

func writeCSV(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
