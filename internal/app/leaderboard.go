package app

import (
	"math"
	"sort"
	"strconv"

	"quizforge/internal/domain"
)

var podiumBadges = map[int]string{
	1: "Winner",
	2: "2nd",
	3: "3rd",
}

// BuildLeaderboard ranks results by descending score. Equal scores keep their
// arrival order. Stats are recomputed from the full sequence.
func BuildLeaderboard(quizID string, results []domain.AttemptResult) domain.Leaderboard {
	ordered := make([]domain.AttemptResult, len(results))
	copy(ordered, results)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Score > ordered[j].Score
	})

	entries := make([]domain.RankedResult, 0, len(ordered))
	for i, result := range ordered {
		rank := i + 1
		entries = append(entries, domain.RankedResult{
			Rank:       rank,
			Label:      "#" + strconv.Itoa(rank),
			Badge:      podiumBadges[rank],
			Percentage: result.Percentage(),
			Result:     result,
		})
	}

	return domain.Leaderboard{
		QuizID:  quizID,
		Entries: entries,
		Stats:   leaderboardStats(results),
	}
}

func leaderboardStats(results []domain.AttemptResult) domain.LeaderboardStats {
	stats := domain.LeaderboardStats{Participants: len(results)}
	if len(results) == 0 {
		return stats
	}

	sum, pctSum := 0, 0
	stats.MaxScore = results[0].Score
	for _, r := range results {
		sum += r.Score
		pctSum += r.Percentage()
		if r.Score > stats.MaxScore {
			stats.MaxScore = r.Score
		}
	}
	n := float64(len(results))
	stats.MeanScore = math.Round(float64(sum)/n*10) / 10
	stats.AveragePercentage = int(math.Round(float64(pctSum) / n))
	return stats
}

// SummarizeResults aggregates one user's attempts.
func SummarizeResults(results []domain.AttemptResult) domain.ResultsSummary {
	summary := domain.ResultsSummary{Attempts: len(results)}
	if len(results) == 0 {
		return summary
	}
	total := 0.0
	for _, r := range results {
		total += float64(r.Score) / math.Max(float64(r.TotalQuestions), 1) * 100
		if pct := r.Percentage(); pct > summary.BestPercentage {
			summary.BestPercentage = pct
		}
	}
	summary.AveragePercentage = int(math.Round(total / float64(len(results))))
	return summary
}
