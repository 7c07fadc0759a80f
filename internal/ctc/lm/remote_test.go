//go:build remotelm

package lm

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// fakeChatResponse mimics the OpenAI chat-completions response shape closely
// enough for go-openai's client to decode it.
type fakeChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
type fakeChatChoice struct {
	Index   int             `json:"index"`
	Message fakeChatMessage `json:"message"`
}
type fakeChatResponse struct {
	ID      string           `json:"id"`
	Object  string           `json:"object"`
	Choices []fakeChatChoice `json:"choices"`
}

func newFakeScorer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(fakeChatResponse{
			Object: "chat.completion",
			Choices: []fakeChatChoice{
				{Message: fakeChatMessage{Role: "assistant", Content: content}},
			},
		})
	}))
}

func TestRemoteModel_ScoreParsesNumericReply(t *testing.T) {
	srv := newFakeScorer(t, "-2.5")
	defer srv.Close()

	m := NewRemoteModel(RemoteModelOptions{
		APIKey:  "test-key",
		BaseURL: srv.URL + "/v1",
		Model:   "test-model",
		Vocab:   []string{"cat"},
	})

	state := m.Start()
	_, delta, err := m.Score(state, 0)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if delta != -2.5 {
		t.Fatalf("Score delta = %v, want -2.5", delta)
	}
}

func TestRemoteModel_UnknownTokenReturnsVocabularyError(t *testing.T) {
	srv := newFakeScorer(t, "0")
	defer srv.Close()

	m := NewRemoteModel(RemoteModelOptions{
		APIKey:  "test-key",
		BaseURL: srv.URL + "/v1",
		Vocab:   []string{"cat"},
	})

	if _, _, err := m.Score(m.Start(), 9); err == nil {
		t.Fatal("expected error for out-of-vocabulary token")
	}
}

func TestRemoteModel_NonNumericReplyIsError(t *testing.T) {
	srv := newFakeScorer(t, "not-a-number")
	defer srv.Close()

	m := NewRemoteModel(RemoteModelOptions{
		APIKey:  "test-key",
		BaseURL: srv.URL + "/v1",
		Vocab:   []string{"cat"},
	})

	if _, _, err := m.Score(m.Start(), 0); err == nil {
		t.Fatal("expected error for non-numeric scorer reply")
	}
}
