package memory

import (
	"context"
	"sort"
	"sync"

	"quizforge/internal/domain"
)

// Store keeps quizzes, results and users in memory. Useful for tests, demos and
// running the server without Postgres.
type Store struct {
	mu        sync.RWMutex
	quizzes   map[string]domain.Quiz
	results   []domain.AttemptResult
	users     map[string]storedUser
	userNames map[string]string
}

type storedUser struct {
	user domain.User
	hash []byte
}

func NewStore() *Store {
	return &Store{
		quizzes:   make(map[string]domain.Quiz),
		users:     make(map[string]storedUser),
		userNames: make(map[string]string),
	}
}

// NewStoreWithQuizzes seeds a store, keyed by quiz id.
func NewStoreWithQuizzes(quizzes map[string]domain.Quiz) *Store {
	s := NewStore()
	for id, quiz := range quizzes {
		quiz.ID = id
		s.quizzes[id] = quiz
	}
	return s
}

func (s *Store) CreateQuiz(_ context.Context, quiz domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quizzes[quiz.ID] = quiz
	return nil
}

func (s *Store) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if quiz, ok := s.quizzes[quizID]; ok {
		return quiz, nil
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}

func (s *Store) ListQuizzes(_ context.Context, createdBy string) ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Quiz, 0)
	for _, quiz := range s.quizzes {
		if createdBy == "" || quiz.CreatedBy == createdBy {
			out = append(out, quiz)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) IncrementParticipants(_ context.Context, quizID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return domain.ErrQuizNotFound
	}
	quiz.Participants++
	s.quizzes[quizID] = quiz
	return nil
}

func (s *Store) SaveResult(_ context.Context, result domain.AttemptResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result)
	return nil
}

func (s *Store) ResultsByQuiz(_ context.Context, quizID string) ([]domain.AttemptResult, error) {
	return s.filterResults(func(r domain.AttemptResult) bool { return r.QuizID == quizID }), nil
}

func (s *Store) ResultsByUser(_ context.Context, userID string) ([]domain.AttemptResult, error) {
	return s.filterResults(func(r domain.AttemptResult) bool { return r.UserID == userID }), nil
}

func (s *Store) Result(_ context.Context, resultID string) (domain.AttemptResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.results {
		if r.ID == resultID {
			return r, nil
		}
	}
	return domain.AttemptResult{}, domain.ErrResultNotFound
}

func (s *Store) filterResults(keep func(domain.AttemptResult) bool) []domain.AttemptResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.AttemptResult, 0)
	for _, r := range s.results {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func (s *Store) CreateUser(_ context.Context, user domain.User, passwordHash []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.userNames[user.Username]; taken {
		return domain.ErrUsernameTaken
	}
	s.users[user.ID] = storedUser{user: user, hash: passwordHash}
	s.userNames[user.Username] = user.ID
	return nil
}

func (s *Store) UserByName(_ context.Context, username string) (domain.User, []byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.userNames[username]
	if !ok {
		return domain.User{}, nil, domain.ErrUserNotFound
	}
	stored := s.users[id]
	return stored.user, stored.hash, nil
}
