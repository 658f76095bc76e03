package llm

import "testing"

func TestToOpenAIMessages(t *testing.T) {
	messages := []Message{
		{Role: RoleSystem, Content: "answer only from the transcript"},
		{Role: RoleUser, Content: "Question: what is mitosis?"},
	}

	converted := toOpenAIMessages(messages)
	if len(converted) != len(messages) {
		t.Fatalf("expected %d messages, got %d", len(messages), len(converted))
	}
	for i, msg := range messages {
		if converted[i].Role != msg.Role || converted[i].Content != msg.Content {
			t.Fatalf("message %d: expected %s/%q, got %s/%q",
				i, msg.Role, msg.Content, converted[i].Role, converted[i].Content)
		}
	}
}

func TestNewOpenAIClient(t *testing.T) {
	client := NewOpenAIClient(Options{
		Provider:     "openai",
		Model:        "gpt-4o-mini",
		OpenAIAPIKey: "test-key",
	})
	if client == nil {
		t.Fatal("expected a client")
	}
	if _, ok := client.(*answerClient); !ok {
		t.Fatalf("unexpected client type %T", client)
	}
}
