// Package analytics turns raw column-usage counters into schema
// recommendations for the admin surface.
package analytics

import (
	"fmt"
	"sort"

	"github.com/Blackhawkup/sql-bot/internal/store"
)

// Thresholds for classifying a counter. Chosen for readability of the
// admin report, not statistical rigor.
const (
	hotColumnThreshold  = 10
	coldColumnThreshold = 2
)

type Recommendation struct {
	Username   string `json:"username"`
	Column     string `json:"column"`
	Count      int64  `json:"count"`
	Category   string `json:"category"`
	Suggestion string `json:"suggestion"`
}

// AnalyzeColumnUsage classifies every counter and orders the result by
// count descending so the hottest columns lead the report.
func AnalyzeColumnUsage(usage []store.ColumnUsage) []Recommendation {
	recommendations := make([]Recommendation, 0, len(usage))
	for _, entry := range usage {
		recommendations = append(recommendations, classify(entry))
	}
	sort.SliceStable(recommendations, func(i, j int) bool {
		return recommendations[i].Count > recommendations[j].Count
	})
	return recommendations
}

func classify(entry store.ColumnUsage) Recommendation {
	recommendation := Recommendation{
		Username: entry.Username,
		Column:   entry.Column,
		Count:    entry.Count,
	}
	switch {
	case entry.Count >= hotColumnThreshold:
		recommendation.Category = "hot"
		recommendation.Suggestion = fmt.Sprintf("column %q is queried often; consider an index", entry.Column)
	case entry.Count < coldColumnThreshold:
		recommendation.Category = "cold"
		recommendation.Suggestion = fmt.Sprintf("column %q is rarely queried; review whether it is still needed", entry.Column)
	default:
		recommendation.Category = "warm"
		recommendation.Suggestion = fmt.Sprintf("column %q sees moderate use; keep monitoring", entry.Column)
	}
	return recommendation
}
