package narrative

import (
	"fmt"
	"strings"

	"github.com/dvloznov/banking-insights/internal/cluster"
	"github.com/dvloznov/banking-insights/internal/domain"
)

// buildSummaryPrompt renders the cluster-summary table as plain text the
// model can reason over, one block per cluster.
func buildSummaryPrompt(summaries []cluster.Summary) (string, error) {
	if len(summaries) == 0 {
		return "", fmt.Errorf("buildSummaryPrompt: no cluster summaries to describe")
	}

	var b strings.Builder
	b.WriteString("CLUSTER SUMMARY TABLE (per-cluster means on capped, unscaled values):\n\n")

	for _, s := range summaries {
		fmt.Fprintf(&b, "Cluster %d (%d geographies):\n", s.Cluster, s.Count)
		for _, name := range domain.FeatureNames {
			mean, ok := s.FeatureMeans[name]
			if !ok {
				fmt.Fprintf(&b, "  %s: undefined\n", name)
				continue
			}
			fmt.Fprintf(&b, "  %s: %.2f\n", name, mean)
		}
		b.WriteString("\n")
	}

	return b.String(), nil
}
