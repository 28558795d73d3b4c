package http

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"quizforge/internal/domain"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type generateRequest struct {
	Topic string `json:"topic"`
}

func (a *api) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, a.log, err)
		return
	}
	user, err := a.auth.Signup(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, a.log, err)
		return
	}
	a.log.Info("account created", zap.String("user_id", user.ID), zap.String("username", user.Username))
	writeJSON(w, http.StatusCreated, user)
}

func (a *api) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, a.log, err)
		return
	}
	res, err := a.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *api) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := a.auth.Logout(r.Context(), tokenFrom(r)); err != nil {
		writeError(w, a.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) handleCreateQuiz(w http.ResponseWriter, r *http.Request) {
	var quiz domain.Quiz
	if err := readJSON(w, r, &quiz); err != nil {
		writeError(w, a.log, err)
		return
	}
	created, err := a.quizzes.CreateQuiz(r.Context(), userFrom(r), quiz)
	if err != nil {
		writeError(w, a.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (a *api) handleGenerateQuiz(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	if !a.limiter.Allow(user.ID) {
		a.metrics.generations.WithLabelValues("throttled").Inc()
		writeError(w, a.log, &domain.RateLimitError{Reason: "too many generation requests, wait a minute and try again"})
		return
	}
	var req generateRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, a.log, err)
		return
	}
	quiz, err := a.quizzes.GenerateQuiz(r.Context(), user, req.Topic)
	if err != nil {
		a.metrics.generations.WithLabelValues(domain.Kind(err)).Inc()
		// A rejected provider key is an upstream problem, not the caller's session.
		if domain.IsAuth(err) {
			err = &domain.NetworkError{Op: "generate quiz", Err: err}
		}
		writeError(w, a.log, err)
		return
	}
	a.metrics.generations.WithLabelValues("ok").Inc()
	a.log.Info("quiz generated", zap.String("quiz_id", quiz.ID), zap.String("topic", quiz.Topic))
	writeJSON(w, http.StatusCreated, quiz)
}

func (a *api) handleListQuizzes(w http.ResponseWriter, r *http.Request) {
	createdBy := strings.TrimSpace(r.URL.Query().Get("createdBy"))
	if createdBy == "" {
		createdBy = userFrom(r).ID
	}
	quizzes, err := a.quizzes.ListQuizzes(r.Context(), createdBy)
	if err != nil {
		writeError(w, a.log, err)
		return
	}
	if quizzes == nil {
		quizzes = []domain.Quiz{}
	}
	writeJSON(w, http.StatusOK, quizzes)
}

func (a *api) handleGetQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := a.quizzes.GetQuiz(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

// TakeURL is the participant link for a quiz.
func TakeURL(publicURL, quizID string) string {
	return strings.TrimRight(publicURL, "/") + "/quiz/" + url.PathEscape(quizID) + "/take"
}

// QuizIDFromTakeURL extracts the quiz id from a link built by TakeURL.
func QuizIDFromTakeURL(link string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil || u.Host == "" {
		return "", false
	}
	parts := strings.Split(strings.Trim(u.EscapedPath(), "/"), "/")
	n := len(parts)
	if n < 3 || parts[n-3] != "quiz" || parts[n-1] != "take" || parts[n-2] == "" {
		return "", false
	}
	id, err := url.PathUnescape(parts[n-2])
	if err != nil {
		return "", false
	}
	return id, true
}

// takeInfo is what a shared link resolves to: how to join, never the answers.
type takeInfo struct {
	QuizID    string `json:"quizId"`
	Topic     string `json:"topic"`
	Questions int    `json:"questions"`
	WebSocket string `json:"websocket"`
	Command   string `json:"command"`
}

func takeSocketURL(publicURL, quizID string) string {
	base := strings.TrimRight(publicURL, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/ws/take?quizId=" + url.QueryEscape(quizID)
}

func (a *api) handleTakeLink(w http.ResponseWriter, r *http.Request) {
	quiz, err := a.quizzes.GetQuiz(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, takeInfo{
		QuizID:    quiz.ID,
		Topic:     quiz.Topic,
		Questions: len(quiz.Questions),
		WebSocket: takeSocketURL(a.publicURL, quiz.ID),
		Command:   "quizforge take " + quiz.ID,
	})
}

func (a *api) handleQuizQR(w http.ResponseWriter, r *http.Request) {
	quiz, err := a.quizzes.GetQuiz(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, a.log, err)
		return
	}
	png, err := qrcode.Encode(TakeURL(a.publicURL, quiz.ID), qrcode.Medium, 256)
	if err != nil {
		writeError(w, a.log, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (a *api) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var result domain.AttemptResult
	if err := readJSON(w, r, &result); err != nil {
		writeError(w, a.log, err)
		return
	}
	quizID := chi.URLParam(r, "id")
	if result.QuizID == "" {
		result.QuizID = quizID
	}
	if result.QuizID != quizID {
		writeError(w, a.log, &domain.ValidationError{Field: "quizId", Reason: "does not match path"})
		return
	}
	stored, err := a.quizzes.SubmitResult(r.Context(), userFrom(r), result)
	if err != nil {
		writeError(w, a.log, err)
		return
	}
	a.metrics.submissions.Inc()
	writeJSON(w, http.StatusCreated, stored)
}

func (a *api) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	results, err := a.quizzes.Results(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, a.log, err)
		return
	}
	if results == nil {
		results = []domain.AttemptResult{}
	}
	writeJSON(w, http.StatusOK, results)
}

func (a *api) handleStandings(w http.ResponseWriter, r *http.Request) {
	lb, err := a.quizzes.Leaderboard(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

func (a *api) handleResultsByUser(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("userId"))
	if userID == "" {
		userID = userFrom(r).ID
	}
	results, err := a.quizzes.ResultsByUser(r.Context(), userID)
	if err != nil {
		writeError(w, a.log, err)
		return
	}
	if results == nil {
		results = []domain.AttemptResult{}
	}
	writeJSON(w, http.StatusOK, results)
}

func (a *api) handleResult(w http.ResponseWriter, r *http.Request) {
	result, err := a.quizzes.Result(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
