package generator

import (
	"encoding/json"
	"fmt"
	"strings"

	"quizforge/internal/domain"
)

// QuestionCount is the exact number of questions a generated quiz must have.
const QuestionCount = 10

type generatedQuiz struct {
	Questions []generatedQuestion `json:"questions"`
}

type generatedQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer *int     `json:"correctAnswer"`
}

// ParseQuestions turns model output into validated questions. Markdown code
// fences around the JSON are tolerated; anything else malformed is rejected
// as a whole.
func ParseQuestions(text string) ([]domain.Question, error) {
	cleaned := stripFences(text)
	if cleaned == "" {
		return nil, &domain.ValidationError{Field: "generation", Reason: "empty response"}
	}

	var payload generatedQuiz
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, &domain.ValidationError{Field: "generation", Reason: fmt.Sprintf("response is not quiz JSON: %v", err)}
	}
	if len(payload.Questions) != QuestionCount {
		return nil, &domain.ValidationError{
			Field:  "generation",
			Reason: fmt.Sprintf("expected %d questions, got %d", QuestionCount, len(payload.Questions)),
		}
	}

	questions := make([]domain.Question, 0, len(payload.Questions))
	for i, g := range payload.Questions {
		if g.CorrectAnswer == nil {
			return nil, &domain.ValidationError{Field: "generation", Reason: fmt.Sprintf("question %d has no correctAnswer", i+1)}
		}
		q := domain.Question{
			ID:            i + 1,
			Prompt:        strings.TrimSpace(g.Question),
			Options:       g.Options,
			CorrectAnswer: *g.CorrectAnswer,
		}
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
		questions = append(questions, q)
	}
	return questions, nil
}

func stripFences(text string) string {
	cleaned := strings.TrimSpace(text)
	switch {
	case strings.HasPrefix(cleaned, "```json"):
		cleaned = strings.TrimPrefix(cleaned, "```json")
	case strings.HasPrefix(cleaned, "```"):
		cleaned = strings.TrimPrefix(cleaned, "```")
	default:
		return cleaned
	}
	cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	return strings.TrimSpace(cleaned)
}
