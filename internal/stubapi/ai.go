package stubapi

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/Esmakirs9082/chat-sub000/internal/models"
)

// Responder produces the character's reply to a user message.
type Responder interface {
	Reply(ctx context.Context, character models.Character, history []models.Message, userMessage string) (string, error)
}

// OpenAIResponder generates replies with the chat completions API, prompting
// with the character's description and personality.
type OpenAIResponder struct {
	client *openai.Client
	model  string
}

func NewOpenAIResponder(apiKey, model string) *OpenAIResponder {
	return &OpenAIResponder{client: openai.NewClient(apiKey), model: model}
}

func (r *OpenAIResponder) Reply(ctx context.Context, character models.Character, history []models.Message, userMessage string) (string, error) {
	messages := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: personaPrompt(character),
		},
	}
	for _, msg := range history {
		role := openai.ChatMessageRoleAssistant
		if msg.Sender == models.SenderUser {
			role = openai.ChatMessageRoleUser
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: msg.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userMessage,
	})

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     r.model,
		Messages:  messages,
		MaxTokens: 512,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func personaPrompt(character models.Character) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s. %s", character.Name, character.Description)
	if len(character.Personality) > 0 {
		traits := make([]string, 0, len(character.Personality))
		for _, t := range character.Personality {
			traits = append(traits, fmt.Sprintf("%s (%d/10)", t.Trait, t.Value))
		}
		fmt.Fprintf(&b, " Personality traits: %s.", strings.Join(traits, ", "))
	}
	b.WriteString(" Stay in character and keep replies conversational.")
	return b.String()
}

// CannedResponder is the fallback when no API key is configured. Replies cycle
// through a fixed set, prefixed with the character's name.
type CannedResponder struct{}

var cannedReplies = []string{
	"Interesting. Tell me more.",
	"I was just thinking about that.",
	"Hm. Let me consider that for a moment.",
	"That reminds me of something that happened to me once.",
	"Go on, I'm listening.",
}

func (CannedResponder) Reply(_ context.Context, character models.Character, history []models.Message, _ string) (string, error) {
	reply := cannedReplies[len(history)%len(cannedReplies)]
	return fmt.Sprintf("%s: %s", character.Name, reply), nil
}
