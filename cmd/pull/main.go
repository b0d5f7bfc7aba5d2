package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dvloznov/banking-insights/internal/logger"
	"github.com/dvloznov/banking-insights/internal/nessie"
	"github.com/dvloznov/banking-insights/internal/snapshot"
)

func main() {
	var (
		out     = flag.String("out", "data/snapshot", "Output directory or gs:// prefix for the snapshot")
		baseURL = flag.String("base-url", nessie.DefaultBaseURL, "Nessie API base URL")
		apiKey  = flag.String("api-key", os.Getenv("NESSIE_API_KEY"), "Nessie API key (or set NESSIE_API_KEY env)")
	)
	flag.Parse()

	log := logger.New()

	if *apiKey == "" {
		log.Fatal().Msg("Error: --api-key or NESSIE_API_KEY is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	client := nessie.NewClient(*baseURL, *apiKey)

	log.Info().Str("base_url", *baseURL).Str("out", *out).Msg("Pulling snapshot")

	collections, err := client.FetchAll(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Snapshot pull failed")
	}

	for endpoint, data := range collections {
		name := endpoint + ".json"
		if err := writeObject(ctx, *out, name, data); err != nil {
			log.Fatal().Err(err).Str("collection", name).Msg("Failed to write collection")
		}
		log.Info().Str("collection", name).Int("bytes", len(data)).Msg("Wrote collection")
	}

	log.Info().Msg("Snapshot pull completed")
}

func writeObject(ctx context.Context, out, name string, data []byte) error {
	if strings.HasPrefix(out, "gs://") {
		return snapshot.UploadObject(ctx, out, name, data)
	}
	if err := os.MkdirAll(out, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(out, name), data, 0o644)
}
