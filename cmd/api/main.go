package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dvloznov/banking-insights/internal/api/handlers"
	"github.com/dvloznov/banking-insights/internal/api/middleware"
	infraBQ "github.com/dvloznov/banking-insights/internal/infra/bigquery"
	"github.com/dvloznov/banking-insights/internal/jobs"
	"github.com/dvloznov/banking-insights/internal/jobs/inmemory"
	"github.com/dvloznov/banking-insights/internal/logger"
	"github.com/dvloznov/banking-insights/internal/pipeline"
)

func main() {
	var (
		port = flag.String("port", "8080", "HTTP server port")
	)
	flag.Parse()

	log := logger.New()

	ctx := context.Background()

	repo, err := infraBQ.NewBigQuerySegmentRepository(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create segment repository")
	}
	defer repo.Close()

	// Job infrastructure: runs are processed one at a time off an in-memory queue.
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	loader := pipeline.NewFileSnapshotLoader()

	jobHandler := func(ctx context.Context, job jobs.Job) error {
		segJob, ok := job.(*jobs.SegmentationJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log.Info().
			Str("job_id", segJob.JobID).
			Str("snapshot_source", segJob.SnapshotSource).
			Int("k", segJob.K).
			Msg("Processing segmentation job")

		ctx = logger.WithContext(ctx, log)

		cfg := pipeline.Config{
			SnapshotSource: segJob.SnapshotSource,
			K:              segJob.K,
			Seed:           segJob.Seed,
		}

		state, err := pipeline.RunSegmentation(ctx, cfg, repo, loader)
		if err != nil {
			log.Error().
				Err(err).
				Str("job_id", segJob.JobID).
				Msg("Segmentation pipeline failed")
			return err
		}

		segJob.RunID = state.RunID

		log.Info().
			Str("job_id", segJob.JobID).
			Str("run_id", state.RunID).
			Msg("Segmentation pipeline completed")

		return nil
	}

	go func() {
		log.Info().Msg("Starting job worker")
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Error().Err(err).Msg("Job worker stopped with error")
		}
	}()

	segmentsHandler := handlers.NewSegmentsHandler(repo, log)
	runsHandler := handlers.NewRunsHandler(jobQueue, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)

	mux := http.NewServeMux()

	mux.HandleFunc("/api/segments", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			segmentsHandler.ListSegments(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/summaries", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			segmentsHandler.ListClusterSummaries(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/runs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			runsHandler.EnqueueRun(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			jobsHandler.GetJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(mux),
			),
		),
	)

	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", *port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	log.Info().Msg("Server exited")
}
