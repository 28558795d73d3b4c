package generator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizforge/internal/domain"
)

func envelope(text string) map[string]any {
	return map[string]any{
		"candidates": []any{
			map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": text}}}},
		},
	}
}

func TestClientGenerate(t *testing.T) {
	var gotKey, gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("key")
		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotPrompt = req.Contents[0].Parts[0].Text
		_ = json.NewEncoder(w).Encode(envelope("```json\n" + quizJSON(t, 10) + "\n```"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/v1beta/models/test:generateContent", "secret", 5*time.Second, nil)
	questions, err := c.Generate(context.Background(), "Roman history")
	require.NoError(t, err)
	assert.Len(t, questions, 10)
	assert.Equal(t, "secret", gotKey)
	assert.True(t, strings.Contains(gotPrompt, `"Roman history"`))
	assert.True(t, strings.Contains(gotPrompt, "exactly 10"))
}

func TestClientMapsStatuses(t *testing.T) {
	cases := []struct {
		status int
		check  func(error) bool
	}{
		{http.StatusTooManyRequests, domain.IsRateLimit},
		{http.StatusUnauthorized, domain.IsAuth},
		{http.StatusInternalServerError, domain.IsNetwork},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", tc.status)
		}))
		c := NewClient(srv.URL, "secret", 5*time.Second, nil)
		_, err := c.Generate(context.Background(), "topic")
		srv.Close()
		require.Error(t, err)
		assert.True(t, tc.check(err), "status %d: %v", tc.status, err)
	}
}

func TestClientRejectsShortQuiz(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(envelope(quizJSON(t, 8)))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "secret", 5*time.Second, nil).Generate(context.Background(), "topic")
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
}

func TestClientValidatesBeforeCalling(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "secret", time.Second, nil).Generate(context.Background(), "  ")
	assert.ErrorIs(t, err, domain.ErrTopicRequired)
	_, err = NewClient(srv.URL, "", time.Second, nil).Generate(context.Background(), "topic")
	assert.True(t, domain.IsValidation(err))
	assert.False(t, called)
}
