package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quizforge/internal/app"
	"quizforge/internal/domain"
	"quizforge/internal/infra/memory"
)

type fakeGenerator struct {
	questions []domain.Question
	err       error
}

func (f fakeGenerator) Generate(ctx context.Context, topic string) ([]domain.Question, error) {
	return f.questions, f.err
}

type fixture struct {
	server  *httptest.Server
	store   *memory.Store
	service *app.QuizService
	auth    *app.AuthService
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:        "quiz-1",
		Topic:     "Letters",
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		CreatedBy: "owner",
		Questions: []domain.Question{
			{ID: 1, Prompt: "Third letter?", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: 2},
			{ID: 2, Prompt: "First letter?", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: 0},
		},
	}
}

func newFixture(t *testing.T, gen app.Generator, perMinute int) *fixture {
	t.Helper()
	store := memory.NewStoreWithQuizzes(map[string]domain.Quiz{"quiz-1": sampleQuiz()})
	repo := memory.NewQuizRepository(store, time.Minute)
	service := app.NewQuizService(repo, store, store, gen)
	auth := app.NewAuthService(store, memory.NewTokenDenylist(), "test-secret", time.Hour)

	// Share links point back at this server so they can be followed.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := httptest.NewUnstartedServer(NewRouter(Deps{
		Quizzes:             service,
		Auth:                auth,
		PublicURL:           "http://" + l.Addr().String(),
		GenerationPerMinute: perMinute,
	}))
	srv.Listener.Close()
	srv.Listener = l
	srv.Start()
	t.Cleanup(srv.Close)
	return &fixture{server: srv, store: store, service: service, auth: auth}
}

// login creates an account and returns a bearer token for it.
func (f *fixture) login(t *testing.T, username string) (string, domain.User) {
	t.Helper()
	ctx := context.Background()
	if _, err := f.auth.Signup(ctx, username, "password1"); err != nil {
		t.Fatalf("signup: %v", err)
	}
	res, err := f.auth.Login(ctx, username, "password1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	return res.Token, res.User
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req, err := http.NewRequest(method, f.server.URL+path, &buf)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func intPtr(v int) *int { return &v }
