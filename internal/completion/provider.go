package completion

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/michaelbrown/coderoom/internal/protocol"
)

const maxSuggestions = 3

// contextLines is how many lines before the cursor are sent to the model.
const contextLines = 10

// Service asks an OpenAI-compatible provider for code completions. A failed
// primary call is retried once against a fallback model; if that also fails
// the caller falls back to Fallback for a deterministic local suggestion set.
type Service struct {
	client   *openai.Client
	primary  string
	fallback string
}

// NewService creates a completion service for the given provider.
func NewService(baseURL, apiKey, primaryModel, fallbackModel string) *Service {
	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
	)
	return &Service{
		client:   &client,
		primary:  primaryModel,
		fallback: fallbackModel,
	}
}

// Complete returns up to three suggestions for the text at the cursor.
func (s *Service) Complete(ctx context.Context, code, languageID string, cursor protocol.Cursor) ([]string, error) {
	prompt := buildPrompt(code, languageID, cursor)

	suggestions, err := s.ask(ctx, s.primary, prompt)
	if err != nil && s.fallback != "" {
		suggestions, err = s.ask(ctx, s.fallback, prompt)
	}
	if err != nil {
		return nil, err
	}
	return suggestions, nil
}

func (s *Service) ask(ctx context.Context, model, prompt string) ([]string, error) {
	completion, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
		MaxTokens:   openai.Int(100),
		Temperature: openai.Float(0.1),
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned")
	}
	return parseResponse(completion.Choices[0].Message.Content), nil
}

const systemPrompt = "You are a code autocomplete. Return only raw code, no formatting, " +
	"no numbers, no explanations. Each line should be a valid completion."

// buildPrompt marks the cursor position inside the last few lines of context
// so the model knows exactly where to continue.
func buildPrompt(code, languageID string, cursor protocol.Cursor) string {
	lines := strings.Split(code, "\n")

	line := cursor.Line
	if line < 0 {
		line = 0
	}
	if line >= len(lines) {
		line = len(lines) - 1
	}

	current := lines[line]
	col := cursor.Column
	if col < 0 {
		col = 0
	}
	if col > len(current) {
		col = len(current)
	}

	start := line - contextLines
	if start < 0 {
		start = 0
	}
	context := append([]string{}, lines[start:line]...)
	context = append(context, current[:col]+"|CURSOR|")

	return fmt.Sprintf(
		"Complete this %s code. The |CURSOR| shows where to continue. "+
			"Return only the text that should be inserted at the cursor position:\n\n%s\n\n"+
			"Provide %d completions that continue from |CURSOR|:",
		languageID, strings.Join(context, "\n"), maxSuggestions)
}

// parseResponse extracts clean suggestion lines from a model response,
// stripping markdown fences, numbering and stray cursor markers.
func parseResponse(response string) []string {
	var suggestions []string
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.Contains(line, "```") || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.ReplaceAll(line, "|CURSOR|", "")
		line = trimListPrefix(line)
		if len(line) >= 2 {
			if (line[0] == '"' && line[len(line)-1] == '"') ||
				(line[0] == '\'' && line[len(line)-1] == '\'') {
				line = line[1 : len(line)-1]
			}
		}
		line = strings.TrimSpace(line)
		if line != "" {
			suggestions = append(suggestions, line)
		}
		if len(suggestions) >= maxSuggestions {
			break
		}
	}
	return suggestions
}

// trimListPrefix drops "1.", "2)", "-" and "•" style list markers.
func trimListPrefix(line string) string {
	trimmed := strings.TrimLeft(line, "0123456789")
	if trimmed != line && len(trimmed) > 0 && (trimmed[0] == '.' || trimmed[0] == ')') {
		return strings.TrimSpace(trimmed[1:])
	}
	for _, marker := range []string{"- ", "• "} {
		if strings.HasPrefix(line, marker) {
			return strings.TrimSpace(strings.TrimPrefix(line, marker))
		}
	}
	return line
}
