package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/models"
)

// formatCounts renders the non-zero counts in display order.
func formatCounts(counts map[models.Status]int) string {
	var parts []string
	for _, st := range models.AllStatuses {
		if n := counts[st]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", st, n))
		}
	}
	return strings.Join(parts, " ")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// truncate shortens a string to maxLen, adding "…" if truncated.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-1]) + "…"
}
