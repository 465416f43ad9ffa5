package llm

import (
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"google.golang.org/genai"
)

// convertMessagesToClaude converts provider-agnostic messages to the
// Anthropic format. System messages are lifted out since the Anthropic
// API carries them in a separate parameter.
func convertMessagesToClaude(messages []Message) ([]anthropic.MessageParam, string, error) {
	var result []anthropic.MessageParam
	var system string

	for _, msg := range messages {
		switch msg.Role {
		case "system":
			system = msg.Content
		case "user":
			result = append(result, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case "assistant":
			result = append(result, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			return nil, "", fmt.Errorf("unsupported message role: %s", msg.Role)
		}
	}

	return result, system, nil
}

// convertMessagesToGemini converts provider-agnostic messages to the
// Gemini format. Assistant turns map to the model role.
func convertMessagesToGemini(messages []Message) ([]*genai.Content, string, error) {
	var result []*genai.Content
	var system string

	for _, msg := range messages {
		switch msg.Role {
		case "system":
			system = msg.Content
		case "user":
			result = append(result, genai.NewContentFromText(msg.Content, genai.RoleUser))
		case "assistant":
			result = append(result, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			return nil, "", fmt.Errorf("unsupported message role: %s", msg.Role)
		}
	}

	return result, system, nil
}
