package session

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"quizforge/internal/domain"
)

// Holder is the in-process view of the client session. It is loaded once and
// written through to its Store on every change.
type Holder struct {
	store Store
	log   *zap.Logger

	mu    sync.RWMutex
	state State
}

func NewHolder(store Store, log *zap.Logger) *Holder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Holder{store: store, log: log}
}

// Load restores the persisted state. A corrupt or half-written state (token
// without user or the reverse) is discarded so the user signs in again.
func (h *Holder) Load(ctx context.Context) error {
	state, err := h.store.Load(ctx)
	if errors.Is(err, ErrCorrupt) {
		h.log.Warn("invalid session data, sign in again", zap.Error(err))
		return h.reset(ctx)
	}
	if err != nil {
		return err
	}
	if (state.Token == "") != (state.User == nil) {
		h.log.Warn("incomplete session data, sign in again")
		return h.reset(ctx)
	}
	h.mu.Lock()
	h.state = state
	h.mu.Unlock()
	return nil
}

// SignIn records a fresh token and identity.
func (h *Holder) SignIn(ctx context.Context, token string, user domain.User) error {
	if token == "" {
		return domain.ErrUnauthenticated
	}
	return h.update(ctx, func(s *State) {
		s.Token = token
		s.User = &user
	})
}

// SignOut forgets everything, including the current quiz.
func (h *Holder) SignOut(ctx context.Context) error {
	return h.reset(ctx)
}

// SetCurrentQuiz remembers the quiz last created or opened.
func (h *Holder) SetCurrentQuiz(ctx context.Context, quiz domain.Quiz) error {
	return h.update(ctx, func(s *State) { s.CurrentQuiz = &quiz })
}

// CurrentQuiz returns the remembered quiz, if any.
func (h *Holder) CurrentQuiz() (domain.Quiz, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.state.CurrentQuiz == nil {
		return domain.Quiz{}, false
	}
	return *h.state.CurrentQuiz, true
}

// Identity implements app.Identity.
func (h *Holder) Identity() (domain.User, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.state.Token == "" || h.state.User == nil {
		return domain.User{}, false
	}
	return *h.state.User, true
}

// Token returns the bearer token or "".
func (h *Holder) Token() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state.Token
}

func (h *Holder) update(ctx context.Context, fn func(*State)) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	next := h.state
	fn(&next)
	if err := h.store.Save(ctx, next); err != nil {
		return err
	}
	h.state = next
	return nil
}

// reset clears the store first so a failed Clear leaves the holder matching
// what is still on disk.
func (h *Holder) reset(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.store.Clear(ctx); err != nil {
		return err
	}
	h.state = State{}
	return nil
}
