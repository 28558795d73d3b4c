package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizforge/internal/domain"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:    "quiz-1",
		Topic: "Colors",
		Questions: []domain.Question{
			{ID: 1, Prompt: "Sky?", Options: []string{"red", "green", "blue", "pink"}, CorrectAnswer: 2},
		},
	}
}

func TestSubmitResultSendsBearerToken(t *testing.T) {
	var gotAuth, gotPath string
	var got domain.AttemptResult
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		got.ID = "res-1"
		_ = json.NewEncoder(w).Encode(got)
	}))
	defer srv.Close()

	c := New(srv.URL, staticToken("tok"))
	answer := 2
	stored, err := c.SubmitResult(context.Background(), domain.AttemptResult{
		QuizID: "quiz-1", PlayerName: "Ada", Score: 1, TotalQuestions: 1, Answers: domain.AnswerSet{&answer},
	})
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "/api/quiz/quiz-1/submit", gotPath)
	assert.Equal(t, "res-1", stored.ID)
	assert.Equal(t, "Ada", got.PlayerName)
}

func TestTrustedCallWithoutTokenFailsLocally(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	defer srv.Close()

	_, err := New(srv.URL, staticToken("")).SubmitResult(context.Background(), domain.AttemptResult{QuizID: "q"})
	assert.True(t, domain.IsAuth(err))
	assert.False(t, called)
}

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		check  func(error) bool
	}{
		{http.StatusBadRequest, domain.IsValidation},
		{http.StatusUnauthorized, domain.IsAuth},
		{http.StatusTooManyRequests, domain.IsRateLimit},
		{http.StatusBadGateway, domain.IsNetwork},
		{http.StatusInternalServerError, domain.IsNetwork},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "boom"})
		}))
		_, err := New(srv.URL, staticToken("tok")).GenerateQuiz(context.Background(), "cats")
		srv.Close()
		require.Error(t, err)
		assert.True(t, tc.check(err), "status %d: %v", tc.status, err)
	}
}

func TestNotFoundMapsToSentinel(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	c := New(srv.URL, nil)
	_, err := c.GetQuiz(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrQuizNotFound)
	_, err = c.Result(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrResultNotFound)
}

func TestTransportFailureIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url, nil).GetQuiz(context.Background(), "quiz-1")
	assert.True(t, domain.IsNetwork(err))
}

func TestGetQuizRejectsMalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bad := sampleQuiz()
		bad.Questions[0].Options = []string{"only", "three", "options"}
		_ = json.NewEncoder(w).Encode(bad)
	}))
	defer srv.Close()

	_, err := New(srv.URL, nil).GetQuiz(context.Background(), "quiz-1")
	assert.True(t, domain.IsValidation(err))
}

func TestGetQuizRequiresAnswerKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"quiz-1","topic":"T","questions":[{"question":"Q?","options":["a","b","c","d"]}]}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, nil).GetQuiz(context.Background(), "quiz-1")
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
	assert.Contains(t, err.Error(), "correctAnswer")
}

func validResult(id, player string, selected int) domain.AttemptResult {
	score := 0
	if selected == 2 {
		score = 1
	}
	return domain.AttemptResult{
		ID: id, QuizID: "quiz-1", PlayerName: player,
		Score: score, TotalQuestions: 1, Answers: domain.AnswerSet{&selected},
	}
}

func TestResultPayloadsAreChecked(t *testing.T) {
	three := 3
	seven := 7
	cases := map[string]domain.AttemptResult{
		"score above total": {ID: "r", QuizID: "quiz-1", Score: 2, TotalQuestions: 1, Answers: domain.AnswerSet{&three}},
		"negative score":    {ID: "r", QuizID: "quiz-1", Score: -1, TotalQuestions: 1, Answers: domain.AnswerSet{&three}},
		"answer off range":  {ID: "r", QuizID: "quiz-1", Score: 0, TotalQuestions: 1, Answers: domain.AnswerSet{&seven}},
		"missing answer":    {ID: "r", QuizID: "quiz-1", Score: 0, TotalQuestions: 1, Answers: domain.AnswerSet{nil}},
		"short answers":     {ID: "r", QuizID: "quiz-1", Score: 0, TotalQuestions: 2, Answers: domain.AnswerSet{&three}},
		"zero total":        {ID: "r", QuizID: "quiz-1"},
	}
	for name, bad := range cases {
		t.Run(name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/api/quiz/quiz-1/leaderboard", func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode([]domain.AttemptResult{validResult("ok", "a", 2), bad})
			})
			mux.HandleFunc("/api/results", func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode([]domain.AttemptResult{bad})
			})
			mux.HandleFunc("/api/results/r", func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(bad)
			})
			srv := httptest.NewServer(mux)
			defer srv.Close()

			c := New(srv.URL, staticToken("tok"))
			_, err := c.Leaderboard(context.Background(), "quiz-1")
			assert.True(t, domain.IsValidation(err), "leaderboard: %v", err)
			_, err = c.ResultsByUser(context.Background(), "u1")
			assert.True(t, domain.IsValidation(err), "results by user: %v", err)
			_, err = c.Result(context.Background(), "r")
			assert.True(t, domain.IsValidation(err), "result: %v", err)
		})
	}
}

func TestLeaderboardRejectsForeignQuiz(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		other := validResult("r1", "a", 2)
		other.QuizID = "quiz-2"
		_ = json.NewEncoder(w).Encode([]domain.AttemptResult{other})
	}))
	defer srv.Close()

	_, err := New(srv.URL, nil).Leaderboard(context.Background(), "quiz-1")
	assert.True(t, domain.IsValidation(err))
}

func TestLoginAndLeaderboard(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(domain.LoginResult{Token: "tok", User: domain.User{ID: "u1", Username: "ada"}})
	})
	mux.HandleFunc("/api/quiz/quiz-1/leaderboard", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]domain.AttemptResult{
			validResult("r1", "a", 0),
			validResult("r2", "b", 1),
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.URL, nil)
	res, err := c.Login(context.Background(), "ada", "secret")
	require.NoError(t, err)
	assert.Equal(t, "u1", res.User.ID)

	results, err := c.Leaderboard(context.Background(), "quiz-1")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].PlayerName)
}
