package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"quizforge/internal/domain"
)

func TestStoreResultsKeepArrivalOrder(t *testing.T) {
	ctx := context.Background()
	store := NewStoreWithQuizzes(map[string]domain.Quiz{"quiz-1": sampleQuiz()})

	for i, name := range []string{"Alice", "Bob", "Carol"} {
		err := store.SaveResult(ctx, domain.AttemptResult{
			ID:         name,
			QuizID:     "quiz-1",
			UserID:     "u" + name,
			PlayerName: name,
			Score:      i % 2,
		})
		if err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	results, err := store.ResultsByQuiz(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(results) != 3 || results[0].PlayerName != "Alice" || results[2].PlayerName != "Carol" {
		t.Fatalf("expected arrival order, got %+v", results)
	}

	byUser, _ := store.ResultsByUser(ctx, "uBob")
	if len(byUser) != 1 || byUser[0].PlayerName != "Bob" {
		t.Fatalf("expected Bob's result, got %+v", byUser)
	}
	if _, err := store.Result(ctx, "nobody"); !errors.Is(err, domain.ErrResultNotFound) {
		t.Fatalf("expected result not found, got %v", err)
	}
}

func TestStoreUsersAndParticipants(t *testing.T) {
	ctx := context.Background()
	store := NewStoreWithQuizzes(map[string]domain.Quiz{"quiz-1": sampleQuiz()})

	if err := store.CreateUser(ctx, domain.User{ID: "u1", Username: "alice"}, []byte("hash")); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := store.CreateUser(ctx, domain.User{ID: "u2", Username: "alice"}, []byte("hash")); !errors.Is(err, domain.ErrUsernameTaken) {
		t.Fatalf("expected username taken, got %v", err)
	}
	user, hash, err := store.UserByName(ctx, "alice")
	if err != nil || user.ID != "u1" || string(hash) != "hash" {
		t.Fatalf("unexpected user lookup: %+v %s %v", user, hash, err)
	}

	if err := store.IncrementParticipants(ctx, "quiz-1"); err != nil {
		t.Fatalf("increment: %v", err)
	}
	quiz, _ := store.LoadQuiz(ctx, "quiz-1")
	if quiz.Participants != 1 {
		t.Fatalf("expected 1 participant, got %d", quiz.Participants)
	}
}

func TestTokenDenylistExpires(t *testing.T) {
	ctx := context.Background()
	denylist := NewTokenDenylist()
	now := time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)
	denylist.clock = func() time.Time { return now }

	if err := denylist.Revoke(ctx, "tok", time.Minute); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if revoked, _ := denylist.IsRevoked(ctx, "tok"); !revoked {
		t.Fatalf("expected token revoked")
	}
	now = now.Add(2 * time.Minute)
	if revoked, _ := denylist.IsRevoked(ctx, "tok"); revoked {
		t.Fatalf("expected revocation to lapse")
	}
}
