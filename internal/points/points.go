// Package points derives per-page totals and the leaderboard order from the current items.
//
// Everything here is recomputed from its inputs on each call; nothing is cached between calls.
package points

import (
	"sort"

	"github.com/geocoder89/housepoints/internal/domain/item"
)

type Summary struct {
	PageIndex   int     `json:"pageIndex"`
	TotalPoints float64 `json:"totalPoints"`
	ItemCount   int     `json:"itemCount"`
}

type Ranked struct {
	Summary
	Rank int `json:"rank"`
}

// Summarize returns one summary per entry of pages, in the same order.
// Pages missing from itemsByPage count as empty.
func Summarize(itemsByPage map[int][]item.Item, pages []int) []Summary {
	out := make([]Summary, 0, len(pages))

	for _, idx := range pages {
		items := itemsByPage[idx]

		total := 0.0
		for _, it := range items {
			total += it.Points()
		}

		out = append(out, Summary{
			PageIndex:   idx,
			TotalPoints: total,
			ItemCount:   len(items),
		})
	}

	return out
}

// Rank orders summaries by total points, highest first. Equal totals keep their input order
// and every entry gets its own position-based rank starting at 1.
func Rank(summaries []Summary) []Ranked {
	sorted := make([]Summary, len(summaries))
	copy(sorted, summaries)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TotalPoints > sorted[j].TotalPoints
	})

	out := make([]Ranked, len(sorted))
	for i, s := range sorted {
		out[i] = Ranked{Summary: s, Rank: i + 1}
	}

	return out
}
