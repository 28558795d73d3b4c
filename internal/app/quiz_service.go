package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"quizforge/internal/domain"
)

// QuizRepository serves quiz content through a cache.
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	Forget(ctx context.Context, quizID string)
}

// QuizStore is the durable home of quizzes.
type QuizStore interface {
	CreateQuiz(ctx context.Context, quiz domain.Quiz) error
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	ListQuizzes(ctx context.Context, createdBy string) ([]domain.Quiz, error)
	IncrementParticipants(ctx context.Context, quizID string) error
}

// ResultStore persists attempt results. Listings are in arrival order.
type ResultStore interface {
	SaveResult(ctx context.Context, result domain.AttemptResult) error
	ResultsByQuiz(ctx context.Context, quizID string) ([]domain.AttemptResult, error)
	ResultsByUser(ctx context.Context, userID string) ([]domain.AttemptResult, error)
	Result(ctx context.Context, resultID string) (domain.AttemptResult, error)
}

// Generator produces validated questions for a topic.
type Generator interface {
	Generate(ctx context.Context, topic string) ([]domain.Question, error)
}

// QuizService contains the backend quiz use cases.
type QuizService struct {
	quizzes   QuizRepository
	store     QuizStore
	results   ResultStore
	generator Generator
	now       func() time.Time
}

func NewQuizService(quizzes QuizRepository, store QuizStore, results ResultStore, generator Generator) *QuizService {
	return &QuizService{
		quizzes:   quizzes,
		store:     store,
		results:   results,
		generator: generator,
		now:       time.Now,
	}
}

// CreateQuiz validates and stores a fully formed quiz owned by owner.
func (s *QuizService) CreateQuiz(ctx context.Context, owner domain.User, quiz domain.Quiz) (domain.Quiz, error) {
	quiz.Topic = strings.TrimSpace(quiz.Topic)
	if err := quiz.Validate(); err != nil {
		return domain.Quiz{}, err
	}
	for i := range quiz.Questions {
		quiz.Questions[i].ID = i + 1
	}
	quiz.ID = uuid.NewString()
	quiz.CreatedAt = s.now().UTC()
	quiz.CreatedBy = owner.ID
	quiz.Participants = 0

	if err := s.store.CreateQuiz(ctx, quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("create quiz: %w", err)
	}
	return quiz, nil
}

// GenerateQuiz asks the generator for questions on topic and stores the quiz.
func (s *QuizService) GenerateQuiz(ctx context.Context, owner domain.User, topic string) (domain.Quiz, error) {
	if s.generator == nil {
		return domain.Quiz{}, &domain.ValidationError{Field: "generation", Reason: "generation is not configured"}
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return domain.Quiz{}, domain.ErrTopicRequired
	}
	questions, err := s.generator.Generate(ctx, topic)
	if err != nil {
		return domain.Quiz{}, err
	}
	return s.CreateQuiz(ctx, owner, domain.Quiz{Topic: topic, Questions: questions})
}

// GetQuiz returns a quiz through the cache.
func (s *QuizService) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	return s.quizzes.GetQuiz(ctx, quizID)
}

// ListQuizzes returns the quizzes created by a user.
func (s *QuizService) ListQuizzes(ctx context.Context, createdBy string) ([]domain.Quiz, error) {
	return s.store.ListQuizzes(ctx, createdBy)
}

// SubmitResult verifies and stores a completed attempt for user. The score is
// recomputed from the answers; a client score that disagrees is rejected.
func (s *QuizService) SubmitResult(ctx context.Context, user domain.User, result domain.AttemptResult) (domain.AttemptResult, error) {
	if result.QuizID == "" {
		return domain.AttemptResult{}, &domain.ValidationError{Field: "quizId", Reason: "quiz id required"}
	}
	quiz, err := s.quizzes.GetQuiz(ctx, result.QuizID)
	if err != nil {
		return domain.AttemptResult{}, err
	}

	result.PlayerName = strings.TrimSpace(result.PlayerName)
	if result.PlayerName == "" {
		return domain.AttemptResult{}, domain.ErrNameRequired
	}
	if len(result.Answers) != len(quiz.Questions) {
		return domain.AttemptResult{}, &domain.ValidationError{
			Field:  "answers",
			Reason: fmt.Sprintf("expected %d answers, got %d", len(quiz.Questions), len(result.Answers)),
		}
	}
	for i := range result.Answers {
		selected, ok := result.Answers.At(i)
		if !ok {
			return domain.AttemptResult{}, &domain.ValidationError{Field: "answers", Reason: fmt.Sprintf("answer %d missing", i+1)}
		}
		if selected < 0 || selected >= domain.OptionsPerQuestion {
			return domain.AttemptResult{}, &domain.ValidationError{Field: "answers", Reason: fmt.Sprintf("answer %d out of range", i+1)}
		}
	}
	if result.TotalQuestions != len(quiz.Questions) {
		return domain.AttemptResult{}, &domain.ValidationError{Field: "totalQuestions", Reason: "total does not match quiz"}
	}
	if score := domain.Score(quiz.Questions, result.Answers); score != result.Score {
		return domain.AttemptResult{}, &domain.ValidationError{
			Field:  "score",
			Reason: fmt.Sprintf("score %d does not match answers (%d)", result.Score, score),
		}
	}

	result.ID = uuid.NewString()
	result.UserID = user.ID
	result.Topic = quiz.Topic
	if result.CompletedAt.IsZero() {
		result.CompletedAt = s.now().UTC()
	}

	if err := s.results.SaveResult(ctx, result); err != nil {
		return domain.AttemptResult{}, fmt.Errorf("save result: %w", err)
	}
	if err := s.store.IncrementParticipants(ctx, quiz.ID); err != nil {
		return domain.AttemptResult{}, fmt.Errorf("count participant: %w", err)
	}
	s.quizzes.Forget(ctx, quiz.ID)
	return result, nil
}

// Results lists the attempts for a quiz in arrival order.
func (s *QuizService) Results(ctx context.Context, quizID string) ([]domain.AttemptResult, error) {
	if _, err := s.quizzes.GetQuiz(ctx, quizID); err != nil {
		return nil, err
	}
	return s.results.ResultsByQuiz(ctx, quizID)
}

// Leaderboard assembles the ranked view for a quiz.
func (s *QuizService) Leaderboard(ctx context.Context, quizID string) (domain.Leaderboard, error) {
	results, err := s.Results(ctx, quizID)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	return BuildLeaderboard(quizID, results), nil
}

// ResultsByUser lists a user's attempts.
func (s *QuizService) ResultsByUser(ctx context.Context, userID string) ([]domain.AttemptResult, error) {
	return s.results.ResultsByUser(ctx, userID)
}

// Result loads a single attempt.
func (s *QuizService) Result(ctx context.Context, resultID string) (domain.AttemptResult, error) {
	return s.results.Result(ctx, resultID)
}

// UserSubmitter binds a QuizService to one authenticated user so it can back
// a server-hosted Taker.
type UserSubmitter struct {
	Service *QuizService
	User    domain.User
}

func (u UserSubmitter) SubmitResult(ctx context.Context, result domain.AttemptResult) (domain.AttemptResult, error) {
	return u.Service.SubmitResult(ctx, u.User, result)
}
