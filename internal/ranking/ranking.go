// Package ranking derives the ranked view of players by their best rating.
package ranking

import (
	"sort"

	"github.com/chess-ranking/internal/domain"
)

// BestRating returns the higher of a player's two platform ratings
func BestRating(p domain.Player) float64 {
	return max(p.ChessComRating, p.LichessRating)
}

// Rank orders players by best rating, highest first. Players with equal best
// ratings keep their relative input order. The input slice is not modified.
func Rank(players []domain.Player) []domain.RankingEntry {
	entries := make([]domain.RankingEntry, len(players))
	for i, p := range players {
		entries[i] = domain.RankingEntry{
			BestRating: BestRating(p),
			Player:     p,
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].BestRating > entries[j].BestRating
	})

	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// FromOrder builds ranking entries following an externally computed order of
// player ids. It reports false when the order does not cover exactly the given
// players or is not sorted by best rating.
func FromOrder(players []domain.Player, order []int64) ([]domain.RankingEntry, bool) {
	if len(order) != len(players) {
		return nil, false
	}

	byID := make(map[int64]domain.Player, len(players))
	for _, p := range players {
		byID[p.ID] = p
	}

	entries := make([]domain.RankingEntry, 0, len(order))
	for i, id := range order {
		p, ok := byID[id]
		if !ok {
			return nil, false
		}
		delete(byID, id)
		entries = append(entries, domain.RankingEntry{
			Rank:       i + 1,
			BestRating: BestRating(p),
			Player:     p,
		})
	}

	if !IsSorted(entries) {
		return nil, false
	}
	return entries, true
}

// IsSorted reports whether entries are ordered by non-increasing best rating
func IsSorted(entries []domain.RankingEntry) bool {
	for i := 1; i < len(entries); i++ {
		if entries[i].BestRating > entries[i-1].BestRating {
			return false
		}
	}
	return true
}
