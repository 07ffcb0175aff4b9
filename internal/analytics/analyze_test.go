package analytics

import (
	"testing"

	"github.com/Blackhawkup/sql-bot/internal/store"
)

func TestAnalyzeColumnUsageClassifiesAndOrders(t *testing.T) {
	usage := []store.ColumnUsage{
		{Username: "alice", Column: "email", Count: 1},
		{Username: "alice", Column: "id", Count: 42},
		{Username: "bob", Column: "name", Count: 5},
	}

	recommendations := AnalyzeColumnUsage(usage)
	if len(recommendations) != 3 {
		t.Fatalf("len(recommendations) = %d, want 3", len(recommendations))
	}
	if recommendations[0].Column != "id" || recommendations[0].Category != "hot" {
		t.Fatalf("recommendations[0] = %+v", recommendations[0])
	}
	if recommendations[1].Column != "name" || recommendations[1].Category != "warm" {
		t.Fatalf("recommendations[1] = %+v", recommendations[1])
	}
	if recommendations[2].Column != "email" || recommendations[2].Category != "cold" {
		t.Fatalf("recommendations[2] = %+v", recommendations[2])
	}
}

func TestAnalyzeColumnUsageEmptyInput(t *testing.T) {
	if got := AnalyzeColumnUsage(nil); len(got) != 0 {
		t.Fatalf("AnalyzeColumnUsage(nil) = %v", got)
	}
}
