package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"quizforge/internal/domain"
)

// TokenSource supplies the bearer token for trusted calls.
type TokenSource interface {
	Token() string
}

// Client talks to the quiz backend REST API.
type Client struct {
	base   string
	tokens TokenSource
	http   *http.Client
	log    *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger used for failed calls.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		base:   strings.TrimRight(baseURL, "/"),
		tokens: tokens,
		http:   &http.Client{Timeout: 30 * time.Second},
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

type generateBody struct {
	Topic string `json:"topic"`
}

func (c *Client) Signup(ctx context.Context, username, password string) (domain.User, error) {
	var user domain.User
	err := c.do(ctx, http.MethodPost, "/api/auth/signup", false, credentials{username, password}, &user, domain.ErrUserNotFound)
	return user, err
}

func (c *Client) Login(ctx context.Context, username, password string) (domain.LoginResult, error) {
	var res domain.LoginResult
	err := c.do(ctx, http.MethodPost, "/api/auth/login", false, credentials{username, password}, &res, domain.ErrUserNotFound)
	if err != nil {
		return domain.LoginResult{}, err
	}
	if res.Token == "" || res.User.ID == "" {
		return domain.LoginResult{}, &domain.ValidationError{Field: "login", Reason: "response missing token or user"}
	}
	return res, nil
}

// Logout revokes the current token server-side.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", true, nil, nil, domain.ErrUserNotFound)
}

func (c *Client) CreateQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	var created domain.Quiz
	if err := c.do(ctx, http.MethodPost, "/api/quiz", true, quiz, &created, domain.ErrQuizNotFound); err != nil {
		return domain.Quiz{}, err
	}
	return created, checkQuiz(created)
}

// GenerateQuiz asks the backend to generate and store a quiz on topic.
func (c *Client) GenerateQuiz(ctx context.Context, topic string) (domain.Quiz, error) {
	if strings.TrimSpace(topic) == "" {
		return domain.Quiz{}, domain.ErrTopicRequired
	}
	var created domain.Quiz
	if err := c.do(ctx, http.MethodPost, "/api/quiz/generate", true, generateBody{Topic: topic}, &created, domain.ErrQuizNotFound); err != nil {
		return domain.Quiz{}, err
	}
	return created, checkQuiz(created)
}

func (c *Client) ListQuizzes(ctx context.Context, createdBy string) ([]domain.Quiz, error) {
	var quizzes []domain.Quiz
	path := "/api/quiz?createdBy=" + url.QueryEscape(createdBy)
	if err := c.do(ctx, http.MethodGet, path, true, nil, &quizzes, domain.ErrQuizNotFound); err != nil {
		return nil, err
	}
	for _, q := range quizzes {
		if err := checkQuiz(q); err != nil {
			return nil, err
		}
	}
	return quizzes, nil
}

func (c *Client) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var quiz domain.Quiz
	if err := c.do(ctx, http.MethodGet, "/api/quiz/"+url.PathEscape(quizID), false, nil, &quiz, domain.ErrQuizNotFound); err != nil {
		return domain.Quiz{}, err
	}
	return quiz, checkQuiz(quiz)
}

// SubmitResult implements app.Submitter.
func (c *Client) SubmitResult(ctx context.Context, result domain.AttemptResult) (domain.AttemptResult, error) {
	var stored domain.AttemptResult
	path := "/api/quiz/" + url.PathEscape(result.QuizID) + "/submit"
	if err := c.do(ctx, http.MethodPost, path, true, result, &stored, domain.ErrQuizNotFound); err != nil {
		return domain.AttemptResult{}, err
	}
	return stored, checkResult(stored)
}

// Leaderboard returns the raw attempts for a quiz in arrival order.
func (c *Client) Leaderboard(ctx context.Context, quizID string) ([]domain.AttemptResult, error) {
	var results []domain.AttemptResult
	if err := c.do(ctx, http.MethodGet, "/api/quiz/"+url.PathEscape(quizID)+"/leaderboard", false, nil, &results, domain.ErrQuizNotFound); err != nil {
		return nil, err
	}
	for _, r := range results {
		if r.QuizID != quizID {
			return nil, &domain.ValidationError{Field: "quizId", Reason: fmt.Sprintf("result %s belongs to quiz %q", r.ID, r.QuizID)}
		}
	}
	return results, checkResults(results)
}

// Standings returns the server-assembled leaderboard.
func (c *Client) Standings(ctx context.Context, quizID string) (domain.Leaderboard, error) {
	var lb domain.Leaderboard
	err := c.do(ctx, http.MethodGet, "/api/quiz/"+url.PathEscape(quizID)+"/standings", false, nil, &lb, domain.ErrQuizNotFound)
	return lb, err
}

func (c *Client) ResultsByUser(ctx context.Context, userID string) ([]domain.AttemptResult, error) {
	var results []domain.AttemptResult
	if err := c.do(ctx, http.MethodGet, "/api/results?userId="+url.QueryEscape(userID), true, nil, &results, domain.ErrResultNotFound); err != nil {
		return nil, err
	}
	return results, checkResults(results)
}

func (c *Client) Result(ctx context.Context, resultID string) (domain.AttemptResult, error) {
	var result domain.AttemptResult
	if err := c.do(ctx, http.MethodGet, "/api/results/"+url.PathEscape(resultID), false, nil, &result, domain.ErrResultNotFound); err != nil {
		return domain.AttemptResult{}, err
	}
	return result, checkResult(result)
}

// checkQuiz converts a decoded payload into a trusted Quiz or rejects it.
func checkQuiz(q domain.Quiz) error {
	if q.ID == "" {
		return &domain.ValidationError{Field: "quiz", Reason: "response missing id"}
	}
	if err := q.Validate(); err != nil {
		return fmt.Errorf("quiz %s: %w", q.ID, err)
	}
	return nil
}

// checkResult rejects an attempt whose score, total or answers disagree.
func checkResult(r domain.AttemptResult) error {
	invalid := func(field, reason string) error {
		return &domain.ValidationError{Field: field, Reason: fmt.Sprintf("result %s: %s", r.ID, reason)}
	}
	switch {
	case r.ID == "" || r.QuizID == "":
		return invalid("result", "response missing id")
	case r.TotalQuestions <= 0:
		return invalid("totalQuestions", "must be positive")
	case r.Score < 0 || r.Score > r.TotalQuestions:
		return invalid("score", fmt.Sprintf("%d outside 0..%d", r.Score, r.TotalQuestions))
	case len(r.Answers) != r.TotalQuestions:
		return invalid("answers", fmt.Sprintf("expected %d answers, got %d", r.TotalQuestions, len(r.Answers)))
	}
	for i := range r.Answers {
		selected, ok := r.Answers.At(i)
		if !ok {
			return invalid("answers", fmt.Sprintf("answer %d missing", i+1))
		}
		if selected < 0 || selected >= domain.OptionsPerQuestion {
			return invalid("answers", fmt.Sprintf("answer %d out of range", i+1))
		}
	}
	return nil
}

func checkResults(results []domain.AttemptResult) error {
	for _, r := range results {
		if err := checkResult(r); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, auth bool, in, out any, notFound error) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if auth {
		token := ""
		if c.tokens != nil {
			token = c.tokens.Token()
		}
		if token == "" {
			return domain.ErrUnauthenticated
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return &domain.NetworkError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.NetworkError{Op: method + " " + path, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := statusError(resp.StatusCode, raw, notFound)
		c.log.Debug("request rejected", zap.String("method", method), zap.String("path", path), zap.Int("status", resp.StatusCode), zap.Error(err))
		if !errors.Is(err, notFound) {
			err = wrapOp(method+" "+path, err)
		}
		return err
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		var invalid *domain.ValidationError
		if errors.As(err, &invalid) {
			return fmt.Errorf("payload from %s: %w", path, invalid)
		}
		return &domain.ValidationError{Field: "response", Reason: fmt.Sprintf("unexpected payload from %s: %v", path, err)}
	}
	return nil
}

func statusError(status int, raw []byte, notFound error) error {
	var eb errorBody
	_ = json.Unmarshal(raw, &eb)
	msg := eb.Error
	if msg == "" {
		msg = http.StatusText(status)
	}
	switch {
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return &domain.ValidationError{Reason: msg}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &domain.AuthError{Reason: msg}
	case status == http.StatusTooManyRequests:
		return &domain.RateLimitError{Reason: msg}
	case status == http.StatusNotFound:
		return notFound
	case status == http.StatusConflict:
		return domain.ErrUsernameTaken
	default:
		return &domain.NetworkError{Op: "server", Err: fmt.Errorf("status %d: %s", status, msg)}
	}
}

func wrapOp(op string, err error) error {
	var netErr *domain.NetworkError
	if errors.As(err, &netErr) {
		netErr.Op = op
		return netErr
	}
	return err
}
