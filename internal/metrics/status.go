package metrics

import "sort"

// Bucket is one labelled count, e.g. a status code or a tracked variant.
type Bucket struct {
	Label string
	Count int
}

// FlattenCounts converts a label->count map into a sorted slice of Bucket rows.
// Rows are sorted by descending count, then by label for stability.
func FlattenCounts(counts map[string]int) []Bucket {
	if len(counts) == 0 {
		return nil
	}
	rows := make([]Bucket, 0, len(counts))
	for label, count := range counts {
		rows = append(rows, Bucket{Label: label, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count == rows[j].Count {
			return rows[i].Label < rows[j].Label
		}
		return rows[i].Count > rows[j].Count
	})
	return rows
}

// Share returns count as a percentage of total.
func Share(count int, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(count) / float64(total) * 100
}
