package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/banking-insights/internal/cluster"
	infraBQ "github.com/dvloznov/banking-insights/internal/infra/bigquery"
	"github.com/dvloznov/banking-insights/internal/logger"
	"github.com/dvloznov/banking-insights/internal/narrative"
	"github.com/dvloznov/banking-insights/internal/nessie"
	"github.com/dvloznov/banking-insights/internal/notionsync"
	"github.com/dvloznov/banking-insights/internal/pipeline"
	"github.com/dvloznov/banking-insights/internal/snapshot"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "pull":
		runPull(log)
	case "segment":
		runSegment(log)
	case "elbow":
		runElbow(log)
	case "sync-notion":
		runSyncNotion(log)
	case "describe":
		runDescribe(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Banking Insights CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  pull         Pull a data snapshot from the Nessie API")
	fmt.Println("  segment      Run the geography segmentation pipeline")
	fmt.Println("  elbow        Sweep k and print inertia per k")
	fmt.Println("  sync-notion  Sync cluster summaries of a run to Notion")
	fmt.Println("  describe     Generate a plain-English cluster writeup")
	fmt.Println("  help         Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

func runPull(log zerolog.Logger) {
	fs := flag.NewFlagSet("pull", flag.ExitOnError)
	out := fs.String("out", "data/snapshot", "Output directory or gs:// prefix")
	baseURL := fs.String("base-url", nessie.DefaultBaseURL, "Nessie API base URL")
	apiKey := fs.String("api-key", os.Getenv("NESSIE_API_KEY"), "Nessie API key (or set NESSIE_API_KEY env)")
	fs.Parse(os.Args[2:])

	if *apiKey == "" {
		log.Fatal().Msg("Error: --api-key or NESSIE_API_KEY is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	client := nessie.NewClient(*baseURL, *apiKey)

	collections, err := client.FetchAll(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Snapshot pull failed")
	}

	for endpoint, data := range collections {
		name := endpoint + ".json"
		if strings.HasPrefix(*out, "gs://") {
			err = snapshot.UploadObject(ctx, *out, name, data)
		} else {
			if err = os.MkdirAll(*out, 0o755); err == nil {
				err = os.WriteFile(filepath.Join(*out, name), data, 0o644)
			}
		}
		if err != nil {
			log.Fatal().Err(err).Str("collection", name).Msg("Failed to write collection")
		}
	}

	fmt.Println("Snapshot pull completed.")
}

func runSegment(log zerolog.Logger) {
	fs := flag.NewFlagSet("segment", flag.ExitOnError)
	source := fs.String("source", "data/snapshot", "Snapshot directory or gs:// prefix")
	k := fs.Int("k", pipeline.DefaultK, "Number of clusters")
	seed := fs.Int64("seed", cluster.DefaultSeed, "Random seed for k-means")
	fs.Parse(os.Args[2:])

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	repo, err := infraBQ.NewBigQuerySegmentRepository(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create segment repository")
	}
	defer repo.Close()

	cfg := pipeline.Config{SnapshotSource: *source, K: *k, Seed: *seed}

	state, err := pipeline.RunSegmentation(ctx, cfg, repo, pipeline.NewFileSnapshotLoader())
	if err != nil {
		log.Fatal().Err(err).Msg("Segmentation failed")
	}

	fmt.Printf("Run %s: %d geographies in %d clusters (inertia %.2f)\n",
		state.RunID, len(state.GeoProfiles), state.Clustering.K, state.Clustering.Inertia)
}

func runElbow(log zerolog.Logger) {
	fs := flag.NewFlagSet("elbow", flag.ExitOnError)
	source := fs.String("source", "data/snapshot", "Snapshot directory or gs:// prefix")
	kMin := fs.Int("k-min", 1, "Smallest k to evaluate")
	kMax := fs.Int("k-max", 9, "Largest k to evaluate")
	seed := fs.Int64("seed", cluster.DefaultSeed, "Random seed for k-means")
	fs.Parse(os.Args[2:])

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	cfg := pipeline.Config{SnapshotSource: *source, Seed: *seed}

	state, err := pipeline.RunFeaturePrep(ctx, cfg, pipeline.NewFileSnapshotLoader())
	if err != nil {
		log.Fatal().Err(err).Msg("Preparing feature matrix failed")
	}

	points, err := cluster.Elbow(ctx, state.Vectors, *kMin, *kMax, *seed, cluster.DefaultMaxIter)
	if err != nil {
		log.Fatal().Err(err).Msg("Elbow sweep failed")
	}

	fmt.Printf("%-4s %s\n", "k", "inertia")
	for _, p := range points {
		fmt.Printf("%-4d %.4f\n", p.K, p.Inertia)
	}
}

func runSyncNotion(log zerolog.Logger) {
	fs := flag.NewFlagSet("sync-notion", flag.ExitOnError)
	runID := fs.String("run-id", "", "Segmentation run ID (defaults to the latest successful run)")
	notionDB := fs.String("notion-db", os.Getenv("NOTION_DATABASE_ID"), "Notion database ID (or set NOTION_DATABASE_ID env)")
	token := fs.String("token", os.Getenv("NOTION_TOKEN"), "Notion API token (or set NOTION_TOKEN env)")
	dryRun := fs.Bool("dry-run", false, "Log actions without writing to Notion")
	fs.Parse(os.Args[2:])

	if *notionDB == "" || *token == "" {
		log.Fatal().Msg("Error: --notion-db and --token (or env vars) are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	repo, err := infraBQ.NewBigQuerySegmentRepository(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create segment repository")
	}
	defer repo.Close()

	if *runID == "" {
		latest, err := repo.LatestSuccessfulRunID(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("No successful segmentation run found")
		}
		*runID = latest
	}

	notionClient := notionsync.NewClient(*token)

	if err := notionsync.SyncClusterSummaries(ctx, repo, notionClient, *notionDB, *runID, *dryRun); err != nil {
		log.Fatal().Err(err).Msg("Notion sync failed")
	}

	fmt.Println("Notion sync completed.")
}

func runDescribe(log zerolog.Logger) {
	fs := flag.NewFlagSet("describe", flag.ExitOnError)
	runID := fs.String("run-id", "", "Segmentation run ID (defaults to the latest successful run)")
	model := fs.String("model", narrative.DefaultModelName, "Gemini model name")
	fs.Parse(os.Args[2:])

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	repo, err := infraBQ.NewBigQuerySegmentRepository(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create segment repository")
	}
	defer repo.Close()

	if *runID == "" {
		latest, err := repo.LatestSuccessfulRunID(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("No successful segmentation run found")
		}
		*runID = latest
	}

	rows, err := repo.QueryClusterSummariesByRun(ctx, *runID)
	if err != nil {
		log.Fatal().Err(err).Str("run_id", *runID).Msg("Failed to query cluster summaries")
	}

	summaries := summariesFromRows(rows)

	describer := narrative.NewGeminiDescriber(*model)
	text, err := describer.Describe(ctx, summaries)
	if err != nil {
		log.Fatal().Err(err).Msg("Narrative generation failed")
	}

	fmt.Println(text)
}

// summariesFromRows converts persisted summary rows back to the in-memory
// form the narrative prompt is built from.
func summariesFromRows(rows []*infraBQ.ClusterSummaryRow) []cluster.Summary {
	summaries := make([]cluster.Summary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, cluster.Summary{
			Cluster:      int(row.Cluster),
			Count:        int(row.Count),
			FeatureMeans: row.FeatureMeanMap(),
		})
	}
	return summaries
}
