package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"

	infra "github.com/dvloznov/banking-insights/internal/infra/bigquery"
	"github.com/dvloznov/banking-insights/internal/logger"
)

// SyncClusterSummaries mirrors the cluster summaries of a segmentation run into
// a Notion database. Pages are keyed on the "Cluster" title: existing pages are
// updated in place, stale pages (clusters not present in the run) are archived,
// and missing clusters get new pages. With dryRun set, actions are logged but
// not performed.
func SyncClusterSummaries(ctx context.Context, repo infra.SegmentRepository, notionClient PageService, notionDBID, runID string, dryRun bool) error {
	log := logger.FromContext(ctx)

	log.Info().
		Str("run_id", runID).
		Bool("dry_run", dryRun).
		Msg("Starting cluster summary sync to Notion")

	summaries, err := repo.QueryClusterSummariesByRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to query cluster summaries: %w", err)
	}
	if len(summaries) == 0 {
		return fmt.Errorf("no cluster summaries for run %s", runID)
	}

	log.Info().Int("summary_count", len(summaries)).Msg("Retrieved cluster summaries from BigQuery")

	validKeys := make(map[string]bool)
	for _, s := range summaries {
		validKeys[clusterKey(s.Cluster)] = true
	}

	notionPages, err := queryAllNotionPages(ctx, notionClient, notionDBID)
	if err != nil {
		return fmt.Errorf("failed to query Notion pages: %w", err)
	}

	log.Info().Int("notion_page_count", len(notionPages)).Msg("Retrieved existing Notion pages")

	// Map cluster key -> existing page ID so current clusters update in place.
	existingPages := make(map[string]string)

	var deleted int
	for _, page := range notionPages {
		key := extractClusterKey(page)

		if key != "" && validKeys[key] {
			existingPages[key] = string(page.ID)
			continue
		}

		// Stale page: unknown title or a cluster absent from this run.
		if dryRun {
			log.Info().
				Str("cluster", key).
				Str("page_id", string(page.ID)).
				Msg("[DRY RUN] Would archive stale Notion page")
			deleted++
			continue
		}
		if err := notionClient.DeletePage(ctx, string(page.ID)); err != nil {
			log.Warn().
				Err(err).
				Str("cluster", key).
				Str("page_id", string(page.ID)).
				Msg("Failed to archive stale Notion page")
			continue
		}
		log.Info().
			Str("cluster", key).
			Str("page_id", string(page.ID)).
			Msg("Archived stale Notion page")
		deleted++
	}

	var created, updated int
	for _, s := range summaries {
		key := clusterKey(s.Cluster)
		pageID := existingPages[key]

		if dryRun {
			if pageID != "" {
				log.Info().Str("cluster", key).Str("page_id", pageID).Msg("[DRY RUN] Would update Notion page")
				updated++
			} else {
				log.Info().Str("cluster", key).Msg("[DRY RUN] Would create Notion page")
				created++
			}
			continue
		}

		props := ClusterSummaryToNotionProperties(s)

		if pageID != "" {
			if _, err := notionClient.UpdatePage(ctx, pageID, props); err != nil {
				log.Warn().
					Err(err).
					Str("cluster", key).
					Str("page_id", pageID).
					Msg("Failed to update Notion page")
				continue
			}
			log.Info().Str("cluster", key).Str("page_id", pageID).Msg("Updated Notion page")
			updated++
		} else {
			page, err := notionClient.CreatePage(ctx, notionDBID, props)
			if err != nil {
				log.Warn().
					Err(err).
					Str("cluster", key).
					Msg("Failed to create Notion page")
				continue
			}
			log.Info().Str("cluster", key).Str("page_id", string(page.ID)).Msg("Created Notion page")
			created++
		}
	}

	log.Info().
		Int("created", created).
		Int("updated", updated).
		Int("deleted", deleted).
		Int("total", len(summaries)).
		Msg("Cluster summary sync completed")

	return nil
}

func clusterKey(cluster int64) string {
	return fmt.Sprintf("Cluster %d", cluster)
}

// queryAllNotionPages retrieves all pages from a Notion database, handling pagination.
func queryAllNotionPages(ctx context.Context, notionClient PageService, databaseID string) ([]notionapi.Page, error) {
	var allPages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			PageSize: 100,
		}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := notionClient.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllNotionPages: %w", err)
		}

		allPages = append(allPages, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return allPages, nil
}

// extractClusterKey extracts the cluster title from a Notion page's properties.
// Returns empty string if not found.
func extractClusterKey(page notionapi.Page) string {
	if prop, ok := page.Properties["Cluster"]; ok {
		if title, ok := prop.(*notionapi.TitleProperty); ok {
			if len(title.Title) > 0 {
				return title.Title[0].PlainText
			}
		}
	}
	return ""
}
