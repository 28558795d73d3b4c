package app_test

import (
	"math/rand"
	"testing"

	"quizforge/internal/app"
	"quizforge/internal/domain"
)

func results(scores ...int) []domain.AttemptResult {
	out := make([]domain.AttemptResult, 0, len(scores))
	for i, score := range scores {
		out = append(out, domain.AttemptResult{
			ID:             string(rune('a' + i)),
			PlayerName:     string(rune('A' + i)),
			Score:          score,
			TotalQuestions: 10,
		})
	}
	return out
}

func TestLeaderboardRanksAndBadges(t *testing.T) {
	lb := app.BuildLeaderboard("quiz-1", results(4, 9, 7, 9, 1))

	wantOrder := []string{"B", "D", "C", "A", "E"}
	for i, entry := range lb.Entries {
		if entry.Result.PlayerName != wantOrder[i] {
			t.Fatalf("position %d: expected %s, got %s", i, wantOrder[i], entry.Result.PlayerName)
		}
		if entry.Rank != i+1 {
			t.Fatalf("position %d: rank %d", i, entry.Rank)
		}
	}
	if lb.Entries[0].Badge != "Winner" || lb.Entries[1].Badge != "2nd" || lb.Entries[2].Badge != "3rd" || lb.Entries[3].Badge != "" {
		t.Fatalf("unexpected badges %+v", lb.Entries)
	}
	if lb.Entries[4].Label != "#5" || lb.Entries[0].Percentage != 90 {
		t.Fatalf("unexpected label or percentage %+v", lb.Entries[4])
	}
	if lb.Stats.Participants != 5 || lb.Stats.MaxScore != 9 || lb.Stats.MeanScore != 6 || lb.Stats.AveragePercentage != 60 {
		t.Fatalf("unexpected stats %+v", lb.Stats)
	}
}

func TestLeaderboardOrderIsNonIncreasingForAnyPermutation(t *testing.T) {
	base := results(3, 8, 8, 0, 5, 10, 2, 8)
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 50; round++ {
		shuffled := append([]domain.AttemptResult(nil), base...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		lb := app.BuildLeaderboard("quiz-1", shuffled)
		for i := 1; i < len(lb.Entries); i++ {
			if lb.Entries[i].Result.Score > lb.Entries[i-1].Result.Score {
				t.Fatalf("round %d: score increases at %d", round, i)
			}
		}
		if lb.Stats.MaxScore != 10 || lb.Stats.Participants != len(base) {
			t.Fatalf("round %d: stats depend on order: %+v", round, lb.Stats)
		}
	}
}

func TestLeaderboardMeanRoundsToOneDecimal(t *testing.T) {
	lb := app.BuildLeaderboard("quiz-1", results(1, 2, 2))
	if lb.Stats.MeanScore != 1.7 {
		t.Fatalf("expected 1.7, got %v", lb.Stats.MeanScore)
	}
	empty := app.BuildLeaderboard("quiz-1", nil)
	if len(empty.Entries) != 0 || empty.Stats.Participants != 0 || empty.Stats.MeanScore != 0 {
		t.Fatalf("unexpected empty leaderboard %+v", empty)
	}
}

func TestSummarizeResults(t *testing.T) {
	summary := app.SummarizeResults([]domain.AttemptResult{
		{Score: 1, TotalQuestions: 2},
		{Score: 9, TotalQuestions: 10},
	})
	if summary.Attempts != 2 || summary.AveragePercentage != 70 || summary.BestPercentage != 90 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}
