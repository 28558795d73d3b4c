package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"quizforge/internal/app"
	"quizforge/internal/domain"
)

// AuthService is the account surface the handlers need.
type AuthService interface {
	Authenticator
	Signup(ctx context.Context, username, password string) (domain.User, error)
	Login(ctx context.Context, username, password string) (domain.LoginResult, error)
	Logout(ctx context.Context, token string) error
}

// HealthCheck probes one backing service.
type HealthCheck func(ctx context.Context) error

// Deps wires the router.
type Deps struct {
	Quizzes             *app.QuizService
	Auth                AuthService
	Log                 *zap.Logger
	Registry            *prometheus.Registry
	PublicURL           string
	GenerationPerMinute int
	Checks              map[string]HealthCheck
}

type api struct {
	quizzes   *app.QuizService
	auth      AuthService
	log       *zap.Logger
	metrics   *Metrics
	publicURL string
	limiter   *keyedLimiter
	checks    map[string]HealthCheck
}

// NewRouter builds the REST and WebSocket surface.
func NewRouter(deps Deps) http.Handler {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	reg := deps.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	a := &api{
		quizzes:   deps.Quizzes,
		auth:      deps.Auth,
		log:       log,
		metrics:   NewMetrics(reg),
		publicURL: deps.PublicURL,
		limiter:   newKeyedLimiter(deps.GenerationPerMinute),
		checks:    deps.Checks,
	}
	take := NewTakeHandler(deps.Quizzes, deps.Auth, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(a.metrics.middleware)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", a.handleHealth)
	r.Method(http.MethodGet, "/metrics", a.metrics.handler())
	r.Get("/ws/take", take.ServeWS)

	authed := requireUser(deps.Auth, log)

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/signup", a.handleSignup)
		r.Post("/login", a.handleLogin)
		r.With(authed).Post("/logout", a.handleLogout)
	})

	r.Route("/api/quiz", func(r chi.Router) {
		r.With(authed).Post("/", a.handleCreateQuiz)
		r.With(authed).Get("/", a.handleListQuizzes)
		r.With(authed).Post("/generate", a.handleGenerateQuiz)
		r.Get("/{id}", a.handleGetQuiz)
		r.Get("/{id}/qr", a.handleQuizQR)
		r.With(authed).Post("/{id}/submit", a.handleSubmit)
		r.Get("/{id}/leaderboard", a.handleLeaderboard)
		r.Get("/{id}/standings", a.handleStandings)
	})

	r.Get("/quiz/{id}/take", a.handleTakeLink)

	r.Route("/api/results", func(r chi.Router) {
		r.With(authed).Get("/", a.handleResultsByUser)
		r.Get("/{id}", a.handleResult)
	})

	return r
}

func (a *api) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	body := map[string]string{"status": "ok"}
	for name, check := range a.checks {
		if err := check(ctx); err != nil {
			a.log.Warn("health check failed", zap.String("check", name), zap.Error(err))
			body[name] = "error"
			status = http.StatusServiceUnavailable
			continue
		}
		body[name] = "ok"
	}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	writeJSON(w, status, body)
}
