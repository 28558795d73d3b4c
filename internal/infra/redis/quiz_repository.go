package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"quizforge/internal/domain"
	"quizforge/internal/infra/memory"
)

// QuizRepository caches quizzes in Redis as JSON and falls back to a loader on cache miss.
// Quizzes are stored as: SET quiz:{quizID} {json} EX ttl
type QuizRepository struct {
	client *redis.Client
	loader memory.QuizLoader
	ttl    time.Duration
	log    *zap.Logger
	sf     singleflight.Group

	mu     sync.Mutex
	rnd    *rand.Rand
	epochs map[string]uint64
}

func NewQuizRepository(client *redis.Client, loader memory.QuizLoader, ttl time.Duration, log *zap.Logger) *QuizRepository {
	if log == nil {
		log = zap.NewNop()
	}
	return &QuizRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		log:    log,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		epochs: make(map[string]uint64),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := r.cached(ctx, quizID); ok {
		return quiz, nil
	}

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if quiz, ok := r.cached(ctx, quizID); ok {
			return quiz, nil
		}

		epoch := r.epoch(quizID)
		quiz, err := r.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}

		data, err := json.Marshal(quiz)
		if err != nil {
			return domain.Quiz{}, err
		}
		// A failed cache write only costs a reload later.
		if err := r.client.Set(ctx, r.key(quizID), data, r.ttlWithJitter()).Err(); err != nil {
			r.log.Warn("cache quiz", zap.String("quiz_id", quizID), zap.Error(err))
		}
		// A Forget that landed while loading means this copy may be stale.
		if r.epoch(quizID) != epoch {
			r.client.Del(ctx, r.key(quizID))
		}
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

// Forget drops the cached copy so the next read sees fresh participant counts.
func (r *QuizRepository) Forget(ctx context.Context, quizID string) {
	r.mu.Lock()
	r.epochs[quizID]++
	r.mu.Unlock()
	r.sf.Forget(quizID)
	if err := r.client.Del(ctx, r.key(quizID)).Err(); err != nil {
		r.log.Warn("forget quiz", zap.String("quiz_id", quizID), zap.Error(err))
	}
}

func (r *QuizRepository) cached(ctx context.Context, quizID string) (domain.Quiz, bool) {
	data, err := r.client.Get(ctx, r.key(quizID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.Warn("read cached quiz", zap.String("quiz_id", quizID), zap.Error(err))
		}
		return domain.Quiz{}, false
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(data, &quiz); err != nil {
		return domain.Quiz{}, false
	}
	return quiz, true
}

func (r *QuizRepository) epoch(quizID string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.epochs[quizID]
}

func (r *QuizRepository) key(quizID string) string {
	return "quiz:" + quizID
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
