//go:build remotelm

package lm

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// RemoteModel scores beam extensions by asking an out-of-process model for
// a log-probability instead of consulting a local ARPA table. It reuses the
// go-openai chat-completions client as the transport: the remote scorer is
// expected to speak the OpenAI chat-completions wire format and reply with
// a bare floating point log-probability as the completion content. This is
// the same client construction the original note-generation assistant used
// to call a chat model, repointed here at a scoring endpoint via BaseURL.
type RemoteModel struct {
	client *openai.Client
	model  string
	vocab  map[int32]string
}

// RemoteModelOptions configures RemoteModel construction.
type RemoteModelOptions struct {
	APIKey  string
	BaseURL string // non-empty to target a self-hosted scorer instead of api.openai.com
	Model   string
	Vocab   []string
}

// NewRemoteModel returns a RemoteModel talking to the configured endpoint.
func NewRemoteModel(opts RemoteModelOptions) *RemoteModel {
	clientConfig := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		clientConfig.BaseURL = opts.BaseURL
	}

	vocab := make(map[int32]string, len(opts.Vocab))
	for id, word := range opts.Vocab {
		vocab[int32(id)] = word
	}

	return &RemoteModel{
		client: openai.NewClientWithConfig(clientConfig),
		model:  opts.Model,
		vocab:  vocab,
	}
}

// remoteState carries the transcript emitted so far; it is sent as context
// on every Score call since the remote endpoint is stateless between calls.
type remoteState struct {
	words []string
}

func (m *RemoteModel) Start() State {
	return remoteState{}
}

func (m *RemoteModel) Score(state State, token int32) (State, float64, error) {
	st, ok := state.(remoteState)
	if !ok {
		return state, 0, fmt.Errorf("lm: unexpected state type %T", state)
	}

	word, ok := m.vocab[token]
	if !ok {
		return state, 0, ErrVocabularyMissing
	}

	delta, err := m.score(context.Background(), st.words, word)
	if err != nil {
		return state, 0, err
	}

	next := remoteState{words: append(append([]string{}, st.words...), word)}
	return next, delta, nil
}

func (m *RemoteModel) Finish(state State) (State, float64, error) {
	st, ok := state.(remoteState)
	if !ok {
		return state, 0, fmt.Errorf("lm: unexpected state type %T", state)
	}
	delta, err := m.score(context.Background(), st.words, endSymbol)
	if err != nil {
		return state, 0, err
	}
	return state, delta, nil
}

func (m *RemoteModel) score(ctx context.Context, history []string, next string) (float64, error) {
	prompt := fmt.Sprintf(
		"Given the prefix %q, reply with only the natural-log probability of the next token %q.",
		strings.Join(history, " "), next,
	)

	resp, err := m.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: m.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens: 16,
	})
	if err != nil {
		return 0, fmt.Errorf("lm: remote scoring request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return 0, fmt.Errorf("lm: remote scoring response had no choices")
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(resp.Choices[0].Message.Content), 64)
	if err != nil {
		return 0, fmt.Errorf("lm: remote scoring response not a float: %w", err)
	}
	return value, nil
}
