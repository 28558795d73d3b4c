package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quizforge/internal/domain"
)

const uniqueViolation = "23505"

// Store keeps quizzes, results and users in Postgres. Questions and answers
// are JSONB columns.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const quizColumns = `id, topic, questions, created_by, participants, created_at`

func (s *Store) CreateQuiz(ctx context.Context, quiz domain.Quiz) error {
	questions, err := json.Marshal(quiz.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO quizzes (`+quizColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		quiz.ID, quiz.Topic, string(questions), quiz.CreatedBy, quiz.Participants, quiz.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert quiz: %w", err)
	}
	return nil
}

// LoadQuiz satisfies memory.QuizLoader so caches can sit in front of the store.
func (s *Store) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+quizColumns+` FROM quizzes WHERE id=$1`, quizID)
	quiz, err := scanQuiz(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	return quiz, nil
}

func (s *Store) ListQuizzes(ctx context.Context, createdBy string) ([]domain.Quiz, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+quizColumns+` FROM quizzes WHERE $1 = '' OR created_by = $1 ORDER BY created_at DESC`, createdBy)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	quizzes := make([]domain.Quiz, 0)
	for rows.Next() {
		quiz, err := scanQuiz(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		quizzes = append(quizzes, quiz)
	}
	return quizzes, rows.Err()
}

func (s *Store) IncrementParticipants(ctx context.Context, quizID string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE quizzes SET participants = participants + 1 WHERE id=$1`, quizID)
	if err != nil {
		return fmt.Errorf("increment participants: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

const resultColumns = `id, quiz_id, user_id, player_name, topic, score, total_questions, answers, completed_at`

func (s *Store) SaveResult(ctx context.Context, result domain.AttemptResult) error {
	answers, err := json.Marshal(result.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO results (`+resultColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		result.ID, result.QuizID, result.UserID, result.PlayerName, result.Topic,
		result.Score, result.TotalQuestions, string(answers), result.CompletedAt)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

func (s *Store) ResultsByQuiz(ctx context.Context, quizID string) ([]domain.AttemptResult, error) {
	return s.queryResults(ctx, `SELECT `+resultColumns+` FROM results WHERE quiz_id=$1 ORDER BY seq`, quizID)
}

func (s *Store) ResultsByUser(ctx context.Context, userID string) ([]domain.AttemptResult, error) {
	return s.queryResults(ctx, `SELECT `+resultColumns+` FROM results WHERE user_id=$1 ORDER BY seq`, userID)
}

func (s *Store) Result(ctx context.Context, resultID string) (domain.AttemptResult, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+resultColumns+` FROM results WHERE id=$1`, resultID)
	result, err := scanResult(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.AttemptResult{}, domain.ErrResultNotFound
	}
	if err != nil {
		return domain.AttemptResult{}, fmt.Errorf("load result: %w", err)
	}
	return result, nil
}

func (s *Store) queryResults(ctx context.Context, query string, arg string) ([]domain.AttemptResult, error) {
	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	results := make([]domain.AttemptResult, 0)
	for rows.Next() {
		result, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

func (s *Store) CreateUser(ctx context.Context, user domain.User, passwordHash []byte) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, username, password_hash) VALUES ($1, $2, $3)`,
		user.ID, user.Username, passwordHash)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.ErrUsernameTaken
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) UserByName(ctx context.Context, username string) (domain.User, []byte, error) {
	var (
		user domain.User
		hash []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, password_hash FROM users WHERE username=$1`, username).
		Scan(&user.ID, &user.Username, &hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, nil, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, nil, fmt.Errorf("load user: %w", err)
	}
	return user, hash, nil
}

func scanQuiz(row pgx.Row) (domain.Quiz, error) {
	var (
		quiz domain.Quiz
		raw  []byte
	)
	if err := row.Scan(&quiz.ID, &quiz.Topic, &raw, &quiz.CreatedBy, &quiz.Participants, &quiz.CreatedAt); err != nil {
		return domain.Quiz{}, err
	}
	if err := json.Unmarshal(raw, &quiz.Questions); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal questions: %w", err)
	}
	return quiz, nil
}

func scanResult(row pgx.Row) (domain.AttemptResult, error) {
	var (
		result domain.AttemptResult
		raw    []byte
	)
	err := row.Scan(&result.ID, &result.QuizID, &result.UserID, &result.PlayerName, &result.Topic,
		&result.Score, &result.TotalQuestions, &raw, &result.CompletedAt)
	if err != nil {
		return domain.AttemptResult{}, err
	}
	if err := json.Unmarshal(raw, &result.Answers); err != nil {
		return domain.AttemptResult{}, fmt.Errorf("unmarshal answers: %w", err)
	}
	return result, nil
}
