package answerer

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_generator.go -package=mocks askerfotball-ai/internal/answerer Generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// ErrGeneration means the remote completion service failed. Callers
// fall back to the extractive path rather than surfacing it.
var ErrGeneration = errors.New("answer generation failed")

// Generator produces an answer from a question and context passages.
type Generator interface {
	Generate(ctx context.Context, question string, passages []string) (string, error)
}

const systemPrompt = "Du er en vennlig og hjelpsom assistent for Asker Fotball.\n" +
	"Svar kort (1–3 setninger) på norsk bokmål, med egne ord. " +
	"Hvis kildene ikke dekker spørsmålet, si 'Jeg vet ikke'."

// OpenAIGenerator answers via the chat completion API.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

// NewOpenAIGenerator creates a generator for the given chat model.
func NewOpenAIGenerator(client *openai.Client, model string) *OpenAIGenerator {
	return &OpenAIGenerator{client: client, model: model}
}

// Generate asks the chat model for a short answer grounded in the
// passages. Failures are wrapped in ErrGeneration.
func (g *OpenAIGenerator) Generate(ctx context.Context, question string, passages []string) (string, error) {
	var ctxBuilder strings.Builder
	for i, p := range passages {
		if i > 0 {
			ctxBuilder.WriteString("\n\n")
		}
		fmt.Fprintf(&ctxBuilder, "Utdrag %d:\n%s", i+1, p)
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Spørsmål: %s\n\nKontekst:\n%s\n\nInstruks: Svar med egne ord i 1–3 setninger.", question, ctxBuilder.String()),
			},
		},
		Temperature: 0.2,
		MaxTokens:   150,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrGeneration)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
