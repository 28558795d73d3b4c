package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"quizforge/internal/domain"
)

// Phase is the state of a quiz-taking session.
type Phase int

const (
	PhaseUnauthenticated Phase = iota
	PhaseNamePrompt
	PhaseInProgress
	PhaseCompleted
)

func (p Phase) String() string {
	switch p {
	case PhaseUnauthenticated:
		return "unauthenticated"
	case PhaseNamePrompt:
		return "name_prompt"
	case PhaseInProgress:
		return "in_progress"
	case PhaseCompleted:
		return "completed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Identity reports the participant currently signed in, if any.
type Identity interface {
	Identity() (domain.User, bool)
}

// Submitter relays a completed attempt to the persistence collaborator.
type Submitter interface {
	SubmitResult(ctx context.Context, result domain.AttemptResult) (domain.AttemptResult, error)
}

// TakerOption customizes a Taker.
type TakerOption func(*Taker)

// WithTakerClock is used by tests for deterministic completion timestamps.
func WithTakerClock(now func() time.Time) TakerOption {
	return func(t *Taker) { t.now = now }
}

// Taker drives one participant through a quiz. It is owned by a single
// session and is not safe for concurrent use.
type Taker struct {
	quiz      domain.Quiz
	identity  Identity
	submitter Submitter
	now       func() time.Time

	phase   Phase
	name    string
	index   int
	answers domain.AnswerSet
	result  *domain.AttemptResult
}

// QuestionView is a question without its answer key.
type QuestionView struct {
	Prompt  string   `json:"question"`
	Options []string `json:"options"`
}

// TakerSnapshot is a read-only view of a Taker for rendering.
type TakerSnapshot struct {
	Phase         string           `json:"phase"`
	QuizID        string           `json:"quizId"`
	Topic         string           `json:"topic"`
	PlayerName    string           `json:"playerName,omitempty"`
	Index         int              `json:"index"`
	Total         int              `json:"total"`
	Question      *QuestionView    `json:"question,omitempty"`
	Selected      *int             `json:"selected"`
	Answers       domain.AnswerSet `json:"answers,omitempty"`
	IsLast        bool             `json:"isLast"`
	ProgressRatio float64          `json:"progress"`
}

// NewTaker starts in NamePrompt when an identity is present, otherwise in Unauthenticated.
func NewTaker(quiz domain.Quiz, identity Identity, submitter Submitter, opts ...TakerOption) *Taker {
	t := &Taker{
		quiz:      quiz,
		identity:  identity,
		submitter: submitter,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.Authenticate()
	return t
}

// Authenticate re-reads the identity. An unauthenticated session moves to the
// name prompt with the username prefilled; later phases are untouched.
func (t *Taker) Authenticate() bool {
	user, ok := t.identity.Identity()
	if !ok {
		return false
	}
	if t.phase == PhaseUnauthenticated {
		t.phase = PhaseNamePrompt
		t.name = user.Username
	}
	return true
}

// Start leaves the name prompt and allocates an empty answer set.
func (t *Taker) Start(name string) error {
	if t.phase != PhaseNamePrompt {
		return t.wrongPhase("start")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.ErrNameRequired
	}
	if len(t.quiz.Questions) == 0 {
		return &domain.ValidationError{Field: "questions", Reason: "quiz has no questions"}
	}
	t.name = name
	t.answers = domain.NewAnswerSet(len(t.quiz.Questions))
	t.index = 0
	t.phase = PhaseInProgress
	return nil
}

// Select records option for the current question, replacing any earlier choice.
func (t *Taker) Select(option int) error {
	if t.phase != PhaseInProgress {
		return t.wrongPhase("select")
	}
	if option < 0 || option >= domain.OptionsPerQuestion {
		return domain.ErrOptionOutOfRange
	}
	t.answers.Set(t.index, option)
	return nil
}

// Advance moves to the next question, or completes the quiz on the last one.
// Completion submits the attempt; on any submission failure the session stays
// on the last question and Advance may be called again.
func (t *Taker) Advance(ctx context.Context) error {
	if t.phase != PhaseInProgress {
		return t.wrongPhase("advance")
	}
	if _, ok := t.answers.At(t.index); !ok {
		return domain.ErrAnswerRequired
	}
	if t.index < t.lastIndex() {
		t.index++
		return nil
	}
	return t.complete(ctx)
}

// Retreat moves back one question without clearing anything.
func (t *Taker) Retreat() error {
	if t.phase != PhaseInProgress {
		return t.wrongPhase("retreat")
	}
	if t.index > 0 {
		t.index--
	}
	return nil
}

func (t *Taker) complete(ctx context.Context) error {
	user, ok := t.identity.Identity()
	if !ok {
		return domain.ErrSessionExpired
	}

	answers := t.answers.Clone()
	attempt := domain.AttemptResult{
		QuizID:         t.quiz.ID,
		PlayerName:     t.name,
		UserID:         user.ID,
		Topic:          t.quiz.Topic,
		Score:          domain.Score(t.quiz.Questions, answers),
		TotalQuestions: len(t.quiz.Questions),
		Answers:        answers,
		CompletedAt:    t.now().UTC(),
	}

	stored, err := t.submitter.SubmitResult(ctx, attempt)
	if err != nil {
		return fmt.Errorf("submit result: %w", err)
	}
	if stored.ID != "" {
		attempt.ID = stored.ID
	}
	t.result = &attempt
	t.phase = PhaseCompleted
	return nil
}

// Phase returns the current phase.
func (t *Taker) Phase() Phase { return t.phase }

// Result returns the attempt once the session completed.
func (t *Taker) Result() (domain.AttemptResult, bool) {
	if t.result == nil {
		return domain.AttemptResult{}, false
	}
	return *t.result, true
}

// Snapshot renders the session for a UI.
func (t *Taker) Snapshot() TakerSnapshot {
	total := len(t.quiz.Questions)
	snap := TakerSnapshot{
		Phase:      t.phase.String(),
		QuizID:     t.quiz.ID,
		Topic:      t.quiz.Topic,
		PlayerName: t.name,
		Index:      t.index,
		Total:      total,
	}
	if t.phase != PhaseInProgress {
		return snap
	}
	question := t.quiz.Questions[t.index]
	snap.Question = &QuestionView{Prompt: question.Prompt, Options: question.Options}
	if selected, ok := t.answers.At(t.index); ok {
		snap.Selected = &selected
	}
	snap.Answers = t.answers.Clone()
	snap.IsLast = t.index == t.lastIndex()
	if total > 0 {
		snap.ProgressRatio = float64(t.index+1) / float64(total)
	}
	return snap
}

func (t *Taker) lastIndex() int {
	return len(t.quiz.Questions) - 1
}

func (t *Taker) wrongPhase(op string) error {
	return &domain.ValidationError{Field: "phase", Reason: fmt.Sprintf("cannot %s while %s", op, t.phase)}
}
