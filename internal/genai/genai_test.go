package genai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// mockChatService implements chatService for testing.
type mockChatService struct {
	resp   *openai.ChatCompletion
	err    error
	params openai.ChatCompletionNewParams
}

func (m *mockChatService) New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error) {
	m.params = params
	if m.err != nil {
		return nil, m.err
	}
	return m.resp, nil
}

func TestComplete_Success(t *testing.T) {
	mock := &mockChatService{
		resp: &openai.ChatCompletion{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Content: "Hello World"}},
			},
		},
	}
	client := &Client{chat: mock, model: openai.ChatModelGPT4oMini}
	out, err := client.Complete(context.Background(), Request{Prompt: "say hello", Temperature: 0.7})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out != "Hello World" {
		t.Errorf("expected 'Hello World', got %q", out)
	}
	if !mock.params.Temperature.Valid() || mock.params.Temperature.Value != 0.7 {
		t.Errorf("expected temperature 0.7 to be sent, got %+v", mock.params.Temperature)
	}
	if len(mock.params.Messages) != 1 {
		t.Fatalf("expected exactly one message, got %d", len(mock.params.Messages))
	}
}

func TestComplete_ZeroTemperatureIsExplicit(t *testing.T) {
	mock := &mockChatService{resp: &openai.ChatCompletion{}}
	client := &Client{chat: mock, model: openai.ChatModelGPT4oMini}
	if _, err := client.Complete(context.Background(), Request{Prompt: "p"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !mock.params.Temperature.Valid() {
		t.Error("expected temperature 0 to be sent explicitly")
	}
}

func TestComplete_MaxTokens(t *testing.T) {
	mock := &mockChatService{resp: &openai.ChatCompletion{}}
	client := &Client{chat: mock, model: openai.ChatModelGPT4oMini}
	if _, err := client.Complete(context.Background(), Request{Prompt: "p", MaxTokens: 100}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !mock.params.MaxTokens.Valid() || mock.params.MaxTokens.Value != 100 {
		t.Errorf("expected max tokens 100, got %+v", mock.params.MaxTokens)
	}
}

func TestComplete_ServiceError(t *testing.T) {
	client := &Client{chat: &mockChatService{err: errors.New("service failure")}}
	_, err := client.Complete(context.Background(), Request{Prompt: "p"})
	if err == nil || !strings.Contains(err.Error(), "service failure") {
		t.Errorf("expected service failure error, got %v", err)
	}
}

func TestComplete_NoChoices(t *testing.T) {
	client := &Client{chat: &mockChatService{resp: &openai.ChatCompletion{}}}
	out, err := client.Complete(context.Background(), Request{Prompt: "p"})
	if err != nil {
		t.Fatalf("expected no error for empty choices, got %v", err)
	}
	if out != "" {
		t.Errorf("expected empty string, got %q", out)
	}
}

func TestNewClient_NoKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := NewClient()
	if err == nil {
		t.Error("expected error when API key not provided, got nil")
	}
}

func TestNewClient_WithKey(t *testing.T) {
	cli, err := NewClient(WithAPIKey("test-key"), WithModel("gpt-4o-mini"))
	if err != nil {
		t.Fatalf("expected no error with API key, got %v", err)
	}
	if cli == nil {
		t.Error("expected client instance, got nil")
	}
}
