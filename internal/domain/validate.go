package domain

import (
	"fmt"
	"math"
	"strings"
)

// Validate checks the question invariants: a prompt, exactly four non-empty
// options and a correct index inside them.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Prompt) == "" {
		return &ValidationError{Field: "question", Reason: "prompt is empty"}
	}
	if len(q.Options) != OptionsPerQuestion {
		return &ValidationError{Field: "options", Reason: fmt.Sprintf("expected %d options, got %d", OptionsPerQuestion, len(q.Options))}
	}
	for i, opt := range q.Options {
		if strings.TrimSpace(opt) == "" {
			return &ValidationError{Field: "options", Reason: fmt.Sprintf("option %d is empty", i)}
		}
	}
	if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
		return &ValidationError{Field: "correctAnswer", Reason: fmt.Sprintf("index %d out of range", q.CorrectAnswer)}
	}
	return nil
}

// Validate checks that a quiz has a topic and at least one well-formed question.
func (q Quiz) Validate() error {
	if strings.TrimSpace(q.Topic) == "" {
		return &ValidationError{Field: "topic", Reason: "topic is empty"}
	}
	if len(q.Questions) == 0 {
		return &ValidationError{Field: "questions", Reason: "quiz has no questions"}
	}
	for i, question := range q.Questions {
		if err := question.Validate(); err != nil {
			return fmt.Errorf("question %d: %w", i+1, err)
		}
	}
	return nil
}

// Score counts the slots matching the correct option. Empty slots never match.
func Score(questions []Question, answers AnswerSet) int {
	score := 0
	for i, question := range questions {
		if selected, ok := answers.At(i); ok && selected == question.CorrectAnswer {
			score++
		}
	}
	return score
}

// Percentage returns round(score/total*100), or 0 for an empty quiz.
func Percentage(score, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(score) / float64(total) * 100))
}
