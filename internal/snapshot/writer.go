package snapshot

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/dvloznov/banking-insights/internal/cluster"
	"github.com/dvloznov/banking-insights/internal/domain"
)

// WriteGeoSegmentsCSV writes the geography table: zip, city, state, every
// feature column, and the cluster label. Null ratios are written as empty
// cells, not zeros.
func WriteGeoSegmentsCSV(w io.Writer, profiles []*domain.GeoProfile) error {
	cw := csv.NewWriter(w)

	header := append([]string{"zip", "city", "state"}, domain.FeatureNames...)
	header = append(header, "cluster")
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("WriteGeoSegmentsCSV: header: %w", err)
	}

	for _, g := range profiles {
		row := []string{g.Zip, g.City, g.State}
		for _, name := range domain.FeatureNames {
			ref := g.FeatureRef(name)
			if ref == nil {
				row = append(row, "")
				continue
			}
			row = append(row, formatFloat(*ref))
		}
		row = append(row, strconv.Itoa(g.Cluster))
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("WriteGeoSegmentsCSV: row %s/%s/%s: %w", g.Zip, g.City, g.State, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteClusterSummaryCSV writes the companion table: one row per cluster
// with its geography count and per-feature means on unscaled capped values.
func WriteClusterSummaryCSV(w io.Writer, summaries []cluster.Summary) error {
	cw := csv.NewWriter(w)

	header := append([]string{"cluster", "count"}, domain.FeatureNames...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("WriteClusterSummaryCSV: header: %w", err)
	}

	for _, s := range summaries {
		row := []string{strconv.Itoa(s.Cluster), strconv.Itoa(s.Count)}
		for _, name := range domain.FeatureNames {
			mean, ok := s.FeatureMeans[name]
			if !ok {
				row = append(row, "")
				continue
			}
			row = append(row, formatFloat(mean))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("WriteClusterSummaryCSV: cluster %d: %w", s.Cluster, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
