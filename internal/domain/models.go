package domain

import (
	"encoding/json"
	"time"
)

// OptionsPerQuestion is the fixed number of options every question carries.
const OptionsPerQuestion = 4

// Question models an MCQ question with exactly one correct option.
type Question struct {
	ID            int      `json:"id"`
	Prompt        string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
}

// UnmarshalJSON rejects a question whose correctAnswer key is absent, which
// would otherwise decode as option 0.
func (q *Question) UnmarshalJSON(data []byte) error {
	type plain Question
	var wire struct {
		plain
		CorrectAnswer *int `json:"correctAnswer"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if wire.CorrectAnswer == nil {
		return &ValidationError{Field: "correctAnswer", Reason: "missing"}
	}
	*q = Question(wire.plain)
	q.CorrectAnswer = *wire.CorrectAnswer
	return nil
}

// Quiz is a named, ordered set of questions. Only Participants changes after creation.
type Quiz struct {
	ID           string     `json:"id"`
	Topic        string     `json:"topic"`
	Questions    []Question `json:"questions"`
	CreatedAt    time.Time  `json:"createdAt"`
	CreatedBy    string     `json:"createdBy"`
	Participants int        `json:"participants"`
}

// AnswerSet holds one nullable selection per question, index-aligned with the quiz.
type AnswerSet []*int

// NewAnswerSet allocates n empty slots.
func NewAnswerSet(n int) AnswerSet {
	return make(AnswerSet, n)
}

// At returns the selection at i and whether one was made.
func (a AnswerSet) At(i int) (int, bool) {
	if i < 0 || i >= len(a) || a[i] == nil {
		return 0, false
	}
	return *a[i], true
}

// Set overwrites the selection at i.
func (a AnswerSet) Set(i, option int) {
	v := option
	a[i] = &v
}

// Complete reports whether every slot holds a selection.
func (a AnswerSet) Complete() bool {
	for _, slot := range a {
		if slot == nil {
			return false
		}
	}
	return true
}

// Clone returns a deep copy so callers cannot mutate a session's slots.
func (a AnswerSet) Clone() AnswerSet {
	out := make(AnswerSet, len(a))
	for i, slot := range a {
		if slot != nil {
			v := *slot
			out[i] = &v
		}
	}
	return out
}

// AttemptResult is the immutable record of one completed attempt.
type AttemptResult struct {
	ID             string    `json:"id,omitempty"`
	QuizID         string    `json:"quizId"`
	PlayerName     string    `json:"playerName"`
	UserID         string    `json:"userId"`
	Topic          string    `json:"topic"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"totalQuestions"`
	Answers        AnswerSet `json:"answers"`
	CompletedAt    time.Time `json:"completedAt"`
}

// Percentage is the score as a rounded share of the total.
func (r AttemptResult) Percentage() int {
	return Percentage(r.Score, r.TotalQuestions)
}

// User is an authenticated account. Passwords never leave the auth service.
type User struct {
	ID       string `json:"id" yaml:"id"`
	Username string `json:"username" yaml:"username"`
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// RankedResult is one leaderboard row.
type RankedResult struct {
	Rank       int           `json:"rank"`
	Label      string        `json:"label"`
	Badge      string        `json:"badge,omitempty"`
	Percentage int           `json:"percentage"`
	Result     AttemptResult `json:"result"`
}

// LeaderboardStats are recomputed from the full result sequence on every view.
type LeaderboardStats struct {
	Participants      int     `json:"participants"`
	MeanScore         float64 `json:"meanScore"`
	MaxScore          int     `json:"maxScore"`
	AveragePercentage int     `json:"averagePercentage"`
}

// Leaderboard captures the ordered scoreboard for a quiz.
type Leaderboard struct {
	QuizID  string           `json:"quizId"`
	Entries []RankedResult   `json:"entries"`
	Stats   LeaderboardStats `json:"stats"`
}

// ResultsSummary aggregates a user's attempts for dashboards.
type ResultsSummary struct {
	Attempts          int `json:"attempts"`
	AveragePercentage int `json:"averagePercentage"`
	BestPercentage    int `json:"bestPercentage"`
}
