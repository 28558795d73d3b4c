package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"quizforge/internal/domain"
)

const promptTemplate = `Create a quiz about "%s" with exactly 10 multiple choice questions. Each question should have 4 options. Return the response in this exact JSON format:
{
  "questions": [
    {
      "question": "Question text here?",
      "options": ["Option A", "Option B", "Option C", "Option D"],
      "correctAnswer": 0
    }
  ]
}

Make sure the questions are educational, varied in difficulty, and cover different aspects of the topic. The correctAnswer should be the index (0-3) of the correct option.`

// Prompt renders the fixed generation prompt for topic.
func Prompt(topic string) string {
	return fmt.Sprintf(promptTemplate, topic)
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Client calls a generateContent-style text generation endpoint.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
	log      *zap.Logger
}

func NewClient(endpoint, apiKey string, timeout time.Duration, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: timeout},
		log:      log,
	}
}

// Generate asks the model for a quiz on topic and returns exactly ten
// validated questions.
func (c *Client) Generate(ctx context.Context, topic string) ([]domain.Question, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, domain.ErrTopicRequired
	}
	if strings.TrimSpace(c.apiKey) == "" {
		return nil, &domain.ValidationError{Field: "apiKey", Reason: "generation API key is missing"}
	}

	body, err := json.Marshal(generateRequest{Contents: []content{{Parts: []part{{Text: Prompt(topic)}}}}})
	if err != nil {
		return nil, err
	}

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse generation endpoint: %w", err)
	}
	q := u.Query()
	q.Set("key", c.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &domain.NetworkError{Op: "generate quiz", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.NetworkError{Op: "read generation response", Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		c.log.Warn("generation rate limited", zap.Int("status", resp.StatusCode))
		return nil, &domain.RateLimitError{Reason: "generation quota or rate limit exceeded, wait a few minutes and try again"}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		c.log.Error("generation API key rejected", zap.Int("status", resp.StatusCode))
		return nil, &domain.AuthError{Reason: "generation API key was rejected"}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		c.log.Error("generation failed", zap.Int("status", resp.StatusCode), zap.ByteString("body", truncate(raw, 512)))
		return nil, &domain.NetworkError{Op: "generate quiz", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var decoded generateResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, &domain.ValidationError{Field: "generation", Reason: "unreadable generation envelope"}
	}
	text := ""
	if len(decoded.Candidates) > 0 && len(decoded.Candidates[0].Content.Parts) > 0 {
		text = decoded.Candidates[0].Content.Parts[0].Text
	}

	questions, err := ParseQuestions(text)
	if err != nil {
		c.log.Warn("generated quiz rejected", zap.String("topic", topic), zap.Error(err))
		return nil, err
	}
	return questions, nil
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
